// Package script rewrites a raw transcript into a speaker-attributed script.
package script

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

	Formatter struct {
		provider llm.Provider
		cfg      Config
	}
)

func New(provider llm.Provider, cfg Config) *Formatter {
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 8000
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = 0.3
	}

	return &Formatter{provider: provider, cfg: cfg}
}

// Generate returns the script for transcript, or [podscribe.ErrNoTranscript]
// when it's blank.
func (f *Formatter) Generate(ctx context.Context, transcript string) (string, error) {
	if strings.TrimSpace(transcript) == "" {
		return "", podscribe.ErrNoTranscript
	}

	resp, err := f.provider.Generate(ctx, llm.Request{
		Model:       f.cfg.Model,
		Prompt:      fmt.Sprintf(promptTmpl, transcript),
		MaxTokens:   f.cfg.MaxTokens,
		Temperature: llm.Temperature(f.cfg.Temperature),
	})
	if err != nil {
		return "", fmt.Errorf("error generating script: %w", err)
	}

	script := llm.StripThinking(resp)
	if script == "" {
		return "", fmt.Errorf("error generating script: %w", llm.ErrEmptyResponse)
	}

	slog.InfoContext(ctx, "generated speaker script", "chars", len(script))
	return script, nil
}
