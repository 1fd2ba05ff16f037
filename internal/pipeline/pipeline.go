// Package pipeline runs an episode through transcription, tagging, script
// formatting and summarizing.
//
// The episode row is the only state: a stage whose field is already filled
// counts as done, so a run can be repeated safely and picks up where the last
// one stopped.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jdholdren/podscribe/internal/logger"
	"github.com/jdholdren/podscribe/internal/podscribe"
	"github.com/jdholdren/podscribe/internal/transcribe"
)

type (
	Stage string
	State string
)

const (
	StageTranscript Stage = "transcript"
	StageTags       Stage = "tags"
	StageScript     Stage = "script"
	StageSummary    Stage = "summary"

	StatePending State = "pending"
	StateDone    State = "done"
	StateFailed  State = "failed"
)

type (
	Transcriber interface {
		Transcribe(ctx context.Context, audioURL string, mode transcribe.Mode) (string, error)
	}

	Tagger interface {
		SuggestAndApply(ctx context.Context, ep podscribe.Episode) ([]int64, error)
	}

	// Generator turns a transcript into text, like a script or summary.
	Generator interface {
		Generate(ctx context.Context, transcript string) (string, error)
	}

	Store interface {
		podscribe.EpisodeRepo
		EpisodeTags(ctx context.Context, episodeID string) ([]podscribe.Tag, error)
	}

	// Stages are the services that do each stage's work.
	Stages struct {
		Transcriber Transcriber
		Tagger      Tagger
		Script      Generator
		Summary     Generator

		// TranscriptionMode is passed to the transcriber; empty means its default.
		TranscriptionMode transcribe.Mode
	}

	Orchestrator struct {
		store  Store
		stages Stages
	}

	// Report describes what one run did.
	//
	// The generated flags and TagsApplied only count work done in this run;
	// Stages shows content that was already there as done.
	Report struct {
		EpisodeID           string          `json:"episode_id"`
		TranscriptGenerated bool            `json:"transcript_generated"`
		TagsApplied         int             `json:"tags_applied"`
		ScriptGenerated     bool            `json:"script_generated"`
		SummaryGenerated    bool            `json:"summary_generated"`
		Errors              []string        `json:"errors"`
		Stages              map[Stage]State `json:"stages"`
	}
)

func New(store Store, stages Stages) *Orchestrator {
	return &Orchestrator{store: store, stages: stages}
}

func newReport(episodeID string) Report {
	return Report{
		EpisodeID: episodeID,
		Errors:    []string{},
		Stages: map[Stage]State{
			StageTranscript: StatePending,
			StageTags:       StatePending,
			StageScript:     StatePending,
			StageSummary:    StatePending,
		},
	}
}

// OK reports whether every stage finished.
func (r Report) OK() bool {
	for _, s := range r.Stages {
		if s != StateDone {
			return false
		}
	}
	return len(r.Errors) == 0
}

// RunWorkflow makes one pass over the episode's stages.
//
// The transcript gates the rest: if it can't be produced the run stops there
// with a single error. Tags, script and summary then run side by side and
// fail independently. The returned error is only for a store that couldn't
// load the episode; everything else lands in the report.
func (o *Orchestrator) RunWorkflow(ctx context.Context, episodeID string) (Report, error) {
	ctx = logger.Ctx(ctx, slog.String("episode_id", episodeID))
	report := newReport(episodeID)

	ep, err := o.store.Episode(ctx, episodeID)
	if errors.Is(err, podscribe.ErrNotFound) {
		report.Errors = append(report.Errors, "episode not found")
		return report, nil
	}
	if err != nil {
		return Report{}, fmt.Errorf("error loading episode: %w", err)
	}

	generated, err := o.runTranscript(ctx, &ep)
	if err != nil {
		slog.ErrorContext(ctx, "transcript stage failed, aborting run", "err", err)
		report.Stages[StageTranscript] = StateFailed
		report.Errors = append(report.Errors, fmt.Sprintf("transcript: %s", err))
		return report, nil
	}
	report.Stages[StageTranscript] = StateDone
	report.TranscriptGenerated = generated

	// Each stage writes its own field so they can't step on each other.
	var (
		g       errgroup.Group
		results = map[Stage]*stageResult{
			StageTags:    {},
			StageScript:  {},
			StageSummary: {},
		}
	)
	g.Go(func() error {
		*results[StageTags] = o.runStage(ctx, StageTags, func(ctx context.Context) (bool, int, error) {
			return o.runTags(ctx, ep)
		})
		return nil
	})
	g.Go(func() error {
		*results[StageScript] = o.runStage(ctx, StageScript, func(ctx context.Context) (bool, int, error) {
			return o.runText(ctx, ep, StageScript)
		})
		return nil
	})
	g.Go(func() error {
		*results[StageSummary] = o.runStage(ctx, StageSummary, func(ctx context.Context) (bool, int, error) {
			return o.runText(ctx, ep, StageSummary)
		})
		return nil
	})
	_ = g.Wait()

	// Fixed order so the report reads the same every time.
	for _, stage := range []Stage{StageTags, StageScript, StageSummary} {
		res := results[stage]
		report.Stages[stage] = res.state
		if res.err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("%s: %s", stage, res.err))
		}
	}
	report.TagsApplied = results[StageTags].count
	report.ScriptGenerated = results[StageScript].generated
	report.SummaryGenerated = results[StageSummary].generated

	slog.InfoContext(ctx, "workflow finished",
		"transcript_generated", report.TranscriptGenerated,
		"tags_applied", report.TagsApplied,
		"script_generated", report.ScriptGenerated,
		"summary_generated", report.SummaryGenerated,
		"errors", len(report.Errors),
	)

	return report, nil
}

type stageResult struct {
	state     State
	generated bool
	count     int
	err       error
}

// errSkipped marks a stage that had nothing to do this run.
var errSkipped = errors.New("stage skipped")

// runStage runs fn and turns whatever happens, panics included, into a result.
func (o *Orchestrator) runStage(ctx context.Context, stage Stage, fn func(context.Context) (bool, int, error)) (res stageResult) {
	ctx = logger.Ctx(ctx, slog.String("stage", string(stage)))
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(ctx, "stage panicked", "panic", r)
			res = stageResult{state: StateFailed, err: fmt.Errorf("panic: %v", r)}
			recordOutcome(stage, outcomeFailed)
		}
	}()

	generated, count, err := fn(ctx)
	switch {
	case errors.Is(err, errSkipped):
		recordOutcome(stage, outcomeSkipped)
		return stageResult{state: StatePending}
	case err != nil:
		slog.ErrorContext(ctx, "stage failed", "err", err)
		recordOutcome(stage, outcomeFailed)
		return stageResult{state: StateFailed, err: err}
	case generated:
		recordDuration(stage, time.Since(start).Seconds())
		recordOutcome(stage, outcomeGenerated)
	default:
		recordOutcome(stage, outcomeExisting)
	}

	return stageResult{state: StateDone, generated: generated, count: count}
}

// Returns whether the transcript was produced by this run.
func (o *Orchestrator) runTranscript(ctx context.Context, ep *podscribe.Episode) (generated bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			recordOutcome(StageTranscript, outcomeFailed)
			generated, err = false, fmt.Errorf("panic: %v", r)
		}
	}()

	if ep.HasTranscript() {
		recordOutcome(StageTranscript, outcomeExisting)
		return false, nil
	}

	start := time.Now()
	text, err := o.stages.Transcriber.Transcribe(ctx, ep.URL, o.stages.TranscriptionMode)
	if err != nil {
		recordOutcome(StageTranscript, outcomeFailed)
		return false, err
	}
	if err := o.store.UpdateEpisode(ctx, ep.ID, podscribe.UpdateEpisodeArgs{Transcript: &text}); err != nil {
		recordOutcome(StageTranscript, outcomeFailed)
		return false, fmt.Errorf("error saving transcript: %w", err)
	}

	ep.Transcript = &text
	recordDuration(StageTranscript, time.Since(start).Seconds())
	recordOutcome(StageTranscript, outcomeGenerated)
	slog.InfoContext(ctx, "transcript generated", "chars", len(text))

	return true, nil
}

func (o *Orchestrator) runTags(ctx context.Context, ep podscribe.Episode) (bool, int, error) {
	existing, err := o.store.EpisodeTags(ctx, ep.ID)
	if err != nil {
		return false, 0, fmt.Errorf("error loading episode tags: %w", err)
	}
	if len(existing) > 0 {
		return false, 0, nil
	}

	applied, err := o.stages.Tagger.SuggestAndApply(ctx, ep)
	if err != nil {
		return false, 0, err
	}
	if applied == nil {
		// Empty catalog
		return false, 0, errSkipped
	}

	return true, len(applied), nil
}

// runText covers the script and summary stages, which only differ in the
// generator and the field they fill.
func (o *Orchestrator) runText(ctx context.Context, ep podscribe.Episode, stage Stage) (bool, int, error) {
	var (
		gen    Generator
		exists bool
	)
	switch stage {
	case StageScript:
		gen, exists = o.stages.Script, ep.HasScript()
	case StageSummary:
		gen, exists = o.stages.Summary, ep.HasSummary()
	default:
		return false, 0, fmt.Errorf("unknown text stage %q", stage)
	}
	if exists {
		return false, 0, nil
	}

	text, err := gen.Generate(ctx, ep.TranscriptText())
	if errors.Is(err, podscribe.ErrNoTranscript) {
		return false, 0, errSkipped
	}
	if err != nil {
		return false, 0, err
	}

	args := podscribe.UpdateEpisodeArgs{}
	if stage == StageScript {
		args.Script = &text
	} else {
		args.Summary = &text
	}
	if err := o.store.UpdateEpisode(ctx, ep.ID, args); err != nil {
		return false, 0, fmt.Errorf("error saving %s: %w", stage, err)
	}

	return true, 0, nil
}
