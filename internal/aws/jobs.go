package aws

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awstranscribe "github.com/aws/aws-sdk-go-v2/service/transcribe"
	"github.com/aws/aws-sdk-go-v2/service/transcribe/types"
	"github.com/google/uuid"

	"github.com/jdholdren/podscribe/internal/transcribe"
)

var _ transcribe.JobRunner = (*Jobs)(nil)

type transcribeAPI interface {
	StartTranscriptionJob(ctx context.Context, in *awstranscribe.StartTranscriptionJobInput, optFns ...func(*awstranscribe.Options)) (*awstranscribe.StartTranscriptionJobOutput, error)
	GetTranscriptionJob(ctx context.Context, in *awstranscribe.GetTranscriptionJobInput, optFns ...func(*awstranscribe.Options)) (*awstranscribe.GetTranscriptionJobOutput, error)
	DeleteTranscriptionJob(ctx context.Context, in *awstranscribe.DeleteTranscriptionJobInput, optFns ...func(*awstranscribe.Options)) (*awstranscribe.DeleteTranscriptionJobOutput, error)
}

// Jobs runs Amazon Transcribe jobs.
type Jobs struct {
	api          transcribeAPI
	outputBucket string // Empty lets the service keep the output
}

func NewJobs(cfg aws.Config, outputBucket string) *Jobs {
	return &Jobs{
		api:          awstranscribe.NewFromConfig(cfg),
		outputBucket: strings.TrimSpace(outputBucket),
	}
}

func (j *Jobs) Submit(ctx context.Context, mediaRef string, opts transcribe.JobOptions) (string, error) {
	name := "podcast-transcribe-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]

	in := &awstranscribe.StartTranscriptionJobInput{
		TranscriptionJobName: aws.String(name),
		Media:                &types.Media{MediaFileUri: aws.String(mediaRef)},
		MediaFormat:          types.MediaFormat(opts.MediaFormat),
		LanguageCode:         types.LanguageCode(opts.LanguageCode),
		Settings: &types.Settings{
			ShowSpeakerLabels: aws.Bool(opts.MaxSpeakers > 0),
			ShowAlternatives:  aws.Bool(true),
			MaxAlternatives:   aws.Int32(2),
		},
	}
	if opts.MaxSpeakers > 0 {
		in.Settings.MaxSpeakerLabels = aws.Int32(int32(opts.MaxSpeakers))
	}
	if j.outputBucket != "" {
		in.OutputBucketName = aws.String(j.outputBucket)
	}

	if _, err := j.api.StartTranscriptionJob(ctx, in); err != nil {
		return "", fmt.Errorf("error starting transcription job: %w", err)
	}

	return name, nil
}

func (j *Jobs) Poll(ctx context.Context, jobID string) (transcribe.JobState, error) {
	out, err := j.api.GetTranscriptionJob(ctx, &awstranscribe.GetTranscriptionJobInput{
		TranscriptionJobName: aws.String(jobID),
	})
	if err != nil {
		return transcribe.JobState{}, fmt.Errorf("error getting transcription job: %w", err)
	}
	if out.TranscriptionJob == nil {
		return transcribe.JobState{}, fmt.Errorf("transcription job %s missing from response", jobID)
	}

	job := out.TranscriptionJob
	state := transcribe.JobState{
		Status:        jobStatus(job.TranscriptionJobStatus),
		FailureReason: aws.ToString(job.FailureReason),
	}
	if job.Transcript != nil {
		state.ResultRef = aws.ToString(job.Transcript.TranscriptFileUri)
	}

	return state, nil
}

func (j *Jobs) Delete(ctx context.Context, jobID string) error {
	if _, err := j.api.DeleteTranscriptionJob(ctx, &awstranscribe.DeleteTranscriptionJobInput{
		TranscriptionJobName: aws.String(jobID),
	}); err != nil {
		return fmt.Errorf("error deleting transcription job: %w", err)
	}

	return nil
}

func jobStatus(s types.TranscriptionJobStatus) transcribe.JobStatus {
	switch s {
	case types.TranscriptionJobStatusCompleted:
		return transcribe.JobCompleted
	case types.TranscriptionJobStatusFailed:
		return transcribe.JobFailed
	case types.TranscriptionJobStatusQueued:
		return transcribe.JobQueued
	default:
		return transcribe.JobInProgress
	}
}
