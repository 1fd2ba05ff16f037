// Package llm is the language-model provider behind tagging, script
// formatting and summarizing.
package llm

import (
	"context"
	"errors"
	"regexp"
	"strings"
)

var (
	// ErrRateLimited means the provider asked us to back off.
	ErrRateLimited = errors.New("language model rate limit hit")
	// ErrEmptyResponse means the model answered with no text.
	ErrEmptyResponse = errors.New("language model returned no text")
)

// Request is one single-turn prompt.
type Request struct {
	Model       string
	System      string
	Prompt      string
	MaxTokens   int64
	Temperature *float64 // nil keeps the provider default

	// Schema, when set, constrains the answer to JSON matching it.
	Schema map[string]any
}

type Provider interface {
	Generate(ctx context.Context, req Request) (string, error)
}

var thinkBlock = regexp.MustCompile(`(?s)<think>.*?</think>`)

// StripThinking removes any <think>...</think> reasoning the model left in
// its answer.
func StripThinking(s string) string {
	return strings.TrimSpace(thinkBlock.ReplaceAllString(s, ""))
}

// Temperature is a helper for [Request.Temperature].
func Temperature(t float64) *float64 {
	return &t
}
