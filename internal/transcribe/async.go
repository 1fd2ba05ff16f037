package transcribe

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"path"
	"strings"
	"time"
)

const (
	DefaultPollInterval = 30 * time.Second
	DefaultMaxWait      = 10 * time.Minute

	// How long a remote job cleanup may take once the caller has gone away.
	cleanupTimeout = 5 * time.Second
)

type (
	// ObjectStore stages source audio where the job runner can read it, and
	// reads back what the job writes.
	ObjectStore interface {
		// Stage copies the audio at sourceURL into storage unless it's already
		// there, and returns its storage reference.
		Stage(ctx context.Context, sourceURL string) (string, error)
		Fetch(ctx context.Context, ref string) ([]byte, error)
	}

	// JobRunner drives an asynchronous transcription service.
	JobRunner interface {
		Submit(ctx context.Context, mediaRef string, opts JobOptions) (string, error)
		Poll(ctx context.Context, jobID string) (JobState, error)
		Delete(ctx context.Context, jobID string) error
	}

	JobOptions struct {
		MediaFormat  string
		LanguageCode string
		MaxSpeakers  int
	}

	JobStatus string

	JobState struct {
		Status        JobStatus
		ResultRef     string
		FailureReason string
	}
)

const (
	JobQueued     JobStatus = "QUEUED"
	JobInProgress JobStatus = "IN_PROGRESS"
	JobCompleted  JobStatus = "COMPLETED"
	JobFailed     JobStatus = "FAILED"
)

type AsyncConfig struct {
	PollInterval time.Duration
	MaxWait      time.Duration
}

// AsyncBackend is the fallback: stage, submit a diarized job, poll until it
// finishes or MaxWait runs out, then download and parse the result.
type AsyncBackend struct {
	store        ObjectStore
	jobs         JobRunner
	pollInterval time.Duration
	maxWait      time.Duration

	// wait blocks for d or until ctx is done. Swapped out in tests.
	wait func(ctx context.Context, d time.Duration) error
}

func NewAsyncBackend(store ObjectStore, jobs JobRunner, cfg AsyncConfig) *AsyncBackend {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.MaxWait <= 0 {
		cfg.MaxWait = DefaultMaxWait
	}

	return &AsyncBackend{
		store:        store,
		jobs:         jobs,
		pollInterval: cfg.PollInterval,
		maxWait:      cfg.MaxWait,
		wait:         sleep,
	}
}

func (a *AsyncBackend) Name() string { return "async" }

func (a *AsyncBackend) Transcribe(ctx context.Context, audioURL string) (string, error) {
	ref, err := a.store.Stage(ctx, audioURL)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrUploadFailed, err)
	}

	jobID, err := a.jobs.Submit(ctx, ref, JobOptions{
		MediaFormat:  MediaFormat(ref),
		LanguageCode: "en-US",
		MaxSpeakers:  10,
	})
	if err != nil {
		return "", fmt.Errorf("%w: error submitting job: %w", ErrTranscription, err)
	}
	defer a.cleanup(ctx, jobID)

	slog.InfoContext(ctx, "submitted transcription job", "job_id", jobID, "media", ref)

	state, err := a.awaitJob(ctx, jobID)
	if err != nil {
		return "", err
	}

	payload, err := a.store.Fetch(ctx, state.ResultRef)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrDownloadFailed, err)
	}

	return ParseTranscriptPayload(payload)
}

// awaitJob polls until the job is terminal. The elapsed time only grows by
// the poll interval, so the number of polls is bounded no matter how long
// each poll takes.
func (a *AsyncBackend) awaitJob(ctx context.Context, jobID string) (JobState, error) {
	var elapsed time.Duration
	for {
		state, err := a.jobs.Poll(ctx, jobID)
		if err != nil {
			return JobState{}, fmt.Errorf("%w: error polling job %s: %w", ErrTranscription, jobID, err)
		}

		switch state.Status {
		case JobCompleted:
			return state, nil
		case JobFailed:
			reason := state.FailureReason
			if reason == "" {
				reason = "unknown error"
			}
			return JobState{}, fmt.Errorf("%w: job %s failed: %s", ErrTranscription, jobID, reason)
		}

		if elapsed >= a.maxWait {
			return JobState{}, fmt.Errorf("%w: job %s timed out after %s", ErrTranscription, jobID, a.maxWait)
		}

		heartbeat(ctx, elapsed.String())
		if err := a.wait(ctx, a.pollInterval); err != nil {
			return JobState{}, fmt.Errorf("%w: job %s abandoned: %w", ErrTranscription, jobID, err)
		}
		elapsed += a.pollInterval

		slog.InfoContext(ctx, "transcription job pending", "job_id", jobID, "status", state.Status, "elapsed", elapsed)
	}
}

// The job is removed however the wait ended. When ctx is already cancelled a
// fresh, short-lived context is used so a revoked task doesn't leak the job.
func (a *AsyncBackend) cleanup(ctx context.Context, jobID string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()

	if err := a.jobs.Delete(ctx, jobID); err != nil {
		slog.WarnContext(ctx, "failed to clean up transcription job", "job_id", jobID, "err", err)
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// MediaFormat guesses the job media format from a reference's extension,
// defaulting to mp3.
func MediaFormat(ref string) string {
	p := ref
	if u, err := url.Parse(ref); err == nil {
		p = u.Path
	}

	switch ext := strings.TrimPrefix(strings.ToLower(path.Ext(p)), "."); ext {
	case "wav", "m4a", "flac", "ogg":
		return ext
	default:
		return "mp3"
	}
}

type transcriptPayload struct {
	Results *struct {
		Transcripts []struct {
			Transcript *string `json:"transcript"`
		} `json:"transcripts"`
	} `json:"results"`
}

// ParseTranscriptPayload pulls the plain text out of a job result shaped like
// {"results": {"transcripts": [{"transcript": "..."}]}}.
func ParseTranscriptPayload(byts []byte) (string, error) {
	var p transcriptPayload
	if err := json.Unmarshal(byts, &p); err != nil {
		return "", fmt.Errorf("%w: %s", ErrParse, err)
	}
	if p.Results == nil || len(p.Results.Transcripts) == 0 || p.Results.Transcripts[0].Transcript == nil {
		return "", fmt.Errorf("%w: missing results.transcripts[0].transcript", ErrParse)
	}

	return *p.Results.Transcripts[0].Transcript, nil
}
