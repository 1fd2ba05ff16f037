package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStripThinking(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "leading block", input: "<think>reasoning</think>Final text", want: "Final text"},
		{name: "multiline block", input: "<think>\nstep 1\nstep 2\n</think>\n\nHOST: Hello", want: "HOST: Hello"},
		{name: "several blocks", input: "<think>a</think>One <think>b</think>Two", want: "One Two"},
		{name: "nothing to strip", input: "  plain  ", want: "plain"},
		{name: "only thinking", input: "<think>hmm</think>", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripThinking(tt.input))
		})
	}
}

const okMessage = `{
  "id": "msg_01",
  "type": "message",
  "role": "assistant",
  "model": "claude-haiku-4-5",
  "content": [{"type": "text", "text": "[1, 2]"}],
  "stop_reason": "end_turn",
  "stop_sequence": null,
  "usage": {"input_tokens": 10, "output_tokens": 3}
}`

func TestAnthropicGenerate(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(okMessage))
	}))
	defer srv.Close()

	p := NewAnthropic("test-key", option.WithBaseURL(srv.URL), option.WithMaxRetries(0))
	text, err := p.Generate(context.Background(), Request{
		Model:       "claude-haiku-4-5",
		Prompt:      "pick tags",
		MaxTokens:   100,
		Temperature: Temperature(0.3),
	})
	require.NoError(t, err)
	assert.Equal(t, "[1, 2]", text)

	assert.Equal(t, "claude-haiku-4-5", got["model"])
	assert.EqualValues(t, 100, got["max_tokens"])
	assert.InDelta(t, 0.3, got["temperature"], 0.0001)
}

func TestAnthropicGenerate_RateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"type":"error","error":{"type":"rate_limit_error","message":"slow down"}}`))
	}))
	defer srv.Close()

	p := NewAnthropic("test-key", option.WithBaseURL(srv.URL), option.WithMaxRetries(0))
	_, err := p.Generate(context.Background(), Request{Model: "claude-haiku-4-5", Prompt: "hi", MaxTokens: 10})
	assert.ErrorIs(t, err, ErrRateLimited)
}

func TestAnthropicGenerate_Empty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"msg_02","type":"message","role":"assistant","model":"m","content":[],"stop_reason":"end_turn","usage":{"input_tokens":1,"output_tokens":0}}`))
	}))
	defer srv.Close()

	p := NewAnthropic("test-key", option.WithBaseURL(srv.URL), option.WithMaxRetries(0))
	_, err := p.Generate(context.Background(), Request{Model: "m", Prompt: "hi", MaxTokens: 10})
	assert.ErrorIs(t, err, ErrEmptyResponse)
}
