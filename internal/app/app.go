// Package app turns the environment into the services both binaries share.
package app

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/fx"

	"github.com/jdholdren/podscribe/internal/aws"
	"github.com/jdholdren/podscribe/internal/feeds"
	"github.com/jdholdren/podscribe/internal/llm"
	"github.com/jdholdren/podscribe/internal/pipeline"
	"github.com/jdholdren/podscribe/internal/script"
	"github.com/jdholdren/podscribe/internal/sqlite"
	"github.com/jdholdren/podscribe/internal/summary"
	"github.com/jdholdren/podscribe/internal/tagging"
	"github.com/jdholdren/podscribe/internal/transcribe"
)

// Config is what the binaries have in common.
type Config struct {
	Database          string `env:"DATABASE, required"`
	TemporalHostPort  string `env:"TEMPORAL_HOST_PORT, default=localhost:7233"`
	TemporalNamespace string `env:"TEMPORAL_NAMESPACE, default=default"`
	LoggerFormat      string `env:"LOGGER_FORMAT, default=text"`

	AnthropicAPIKey string `env:"ANTHROPIC_API_KEY"`
	TagModel        string `env:"TAG_MODEL, default=claude-haiku-4-5"`
	ScriptModel     string `env:"SCRIPT_MODEL, default=claude-sonnet-4-5"`
	SummaryModel    string `env:"SUMMARY_MODEL, default=claude-sonnet-4-5"`

	WhisperAPIKey     string `env:"WHISPER_API_KEY"`
	WhisperURL        string `env:"WHISPER_URL"`
	WhisperModel      string `env:"WHISPER_MODEL"`
	TranscriptionMode string `env:"TRANSCRIPTION_MODE, default=auto"`

	AWSRegion                 string        `env:"AWS_REGION, default=us-east-1"`
	AWSMediaBucket            string        `env:"AWS_MEDIA_BUCKET"`
	AWSTranscribeOutputBucket string        `env:"AWS_TRANSCRIBE_OUTPUT_BUCKET"`
	TranscribePollInterval    time.Duration `env:"TRANSCRIBE_POLL_INTERVAL, default=30s"`
	TranscribeMaxWait         time.Duration `env:"TRANSCRIBE_MAX_WAIT, default=10m"`

	FeedSyncInterval    time.Duration `env:"FEED_SYNC_INTERVAL, default=1h"`
	AutoProcessEpisodes bool          `env:"AUTO_PROCESS_EPISODES, default=false"`
}

var Module = fx.Module("app",
	fx.Provide(
		NewRepo,
		fx.Annotate(NewLLM, fx.As(new(llm.Provider))),
		NewSelector,
		NewTagger,
		NewScriptFormatter,
		NewSummarizer,
		NewOrchestrator,
		NewIngestor,
	),
)

func NewRepo(dbx *sqlx.DB) sqlite.Repo {
	return sqlite.New(dbx)
}

func NewLLM(cfg Config) *llm.Anthropic {
	if cfg.AnthropicAPIKey == "" {
		slog.Warn("ANTHROPIC_API_KEY is unset, tags, scripts and summaries will fail")
	}

	return llm.NewAnthropic(cfg.AnthropicAPIKey)
}

// NewSelector builds whichever transcription backends are configured: the
// primary needs a Whisper key, the fallback needs a media bucket.
func NewSelector(ctx context.Context, cfg Config) (*transcribe.Selector, error) {
	mode, err := transcribe.ParseMode(cfg.TranscriptionMode)
	if err != nil {
		return nil, err
	}

	// Left nil when unconfigured, a typed nil would look configured
	var primary, fallback transcribe.Backend
	if cfg.WhisperAPIKey != "" {
		primary = transcribe.NewWhisper(transcribe.WhisperConfig{
			APIKey: cfg.WhisperAPIKey,
			URL:    cfg.WhisperURL,
			Model:  cfg.WhisperModel,
		}, nil)
	}
	if cfg.AWSMediaBucket != "" {
		awsCfg, err := aws.LoadConfig(ctx, cfg.AWSRegion)
		if err != nil {
			return nil, err
		}

		outBucket := cfg.AWSTranscribeOutputBucket
		if outBucket == "" {
			outBucket = cfg.AWSMediaBucket
		}
		fallback = transcribe.NewAsyncBackend(
			aws.NewStore(awsCfg, cfg.AWSMediaBucket),
			aws.NewJobs(awsCfg, outBucket),
			transcribe.AsyncConfig{
				PollInterval: cfg.TranscribePollInterval,
				MaxWait:      cfg.TranscribeMaxWait,
			},
		)
	}

	if primary == nil && fallback == nil {
		slog.Warn("no transcription backend configured")
	}
	slog.Debug("configured transcription", "mode", mode, "primary", primary != nil, "fallback", fallback != nil)

	return transcribe.NewSelector(primary, fallback, mode), nil
}

func NewTagger(cfg Config, repo sqlite.Repo, provider llm.Provider) *tagging.Service {
	return tagging.New(repo, provider, tagging.Config{Model: cfg.TagModel})
}

func NewScriptFormatter(cfg Config, provider llm.Provider) *script.Formatter {
	return script.New(provider, script.Config{Model: cfg.ScriptModel})
}

func NewSummarizer(cfg Config, provider llm.Provider) *summary.Summarizer {
	return summary.New(provider, summary.Config{Model: cfg.SummaryModel})
}

func NewOrchestrator(
	repo sqlite.Repo,
	sel *transcribe.Selector,
	tagger *tagging.Service,
	formatter *script.Formatter,
	summarizer *summary.Summarizer,
) *pipeline.Orchestrator {
	return pipeline.New(repo, pipeline.Stages{
		Transcriber: sel,
		Tagger:      tagger,
		Script:      formatter,
		Summary:     summarizer,
	})
}

func NewIngestor(repo sqlite.Repo) *feeds.Ingestor {
	return feeds.NewIngestor(repo, feeds.NewFetcher(&http.Client{Timeout: 30 * time.Second}))
}
