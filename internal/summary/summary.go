// Package summary produces a structured summary of an episode transcript.
package summary

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jdholdren/podscribe/internal/llm"
	"github.com/jdholdren/podscribe/internal/podscribe"
)

//go:embed prompt.txt
var promptTmpl string

type (
	Config struct {
		Model       string
		MaxTokens   int64
		Temperature float64
	}

	Summarizer struct {
		provider llm.Provider
		cfg      Config
	}
)

func New(provider llm.Provider, cfg Config) *Summarizer {
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 1000
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = 0.3
	}

	return &Summarizer{provider: provider, cfg: cfg}
}

// Generate summarizes transcript. A blank transcript gives
// [podscribe.ErrNoTranscript].
func (s *Summarizer) Generate(ctx context.Context, transcript string) (string, error) {
	if strings.TrimSpace(transcript) == "" {
		return "", podscribe.ErrNoTranscript
	}

	resp, err := s.provider.Generate(ctx, llm.Request{
		Model:       s.cfg.Model,
		Prompt:      fmt.Sprintf(promptTmpl, transcript),
		MaxTokens:   s.cfg.MaxTokens,
		Temperature: llm.Temperature(s.cfg.Temperature),
	})
	if err != nil {
		return "", fmt.Errorf("error generating summary: %w", err)
	}

	summary := llm.StripThinking(resp)
	if summary == "" {
		return "", fmt.Errorf("error generating summary: %w", llm.ErrEmptyResponse)
	}

	slog.InfoContext(ctx, "generated summary", "chars", len(summary))
	return summary, nil
}
