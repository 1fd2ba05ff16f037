package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const structuredOutputsBeta = "structured-outputs-2025-11-13"

var _ Provider = (*Anthropic)(nil)

// Anthropic sends requests to the Claude Messages API.
type Anthropic struct {
	client *anthropic.Client
}

func NewAnthropic(apiKey string, opts ...option.RequestOption) *Anthropic {
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	client := anthropic.NewClient(opts...)

	return &Anthropic{client: &client}
}

func (a *Anthropic) Generate(ctx context.Context, req Request) (string, error) {
	if req.Schema != nil {
		return a.generateStructured(ctx, req)
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(req.Model),
		MaxTokens: req.MaxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}
	if req.Temperature != nil {
		params.Temperature = anthropic.Float(*req.Temperature)
	}

	resp, err := a.client.Messages.New(ctx, params)
	if err != nil {
		return "", wrapErr(err)
	}

	var text strings.Builder
	for _, content := range resp.Content {
		text.WriteString(content.Text)
	}
	if strings.TrimSpace(text.String()) == "" {
		return "", ErrEmptyResponse
	}

	return text.String(), nil
}

// Structured answers go through the beta endpoint so the JSON schema is
// enforced by the API rather than hoped for in the prompt.
func (a *Anthropic) generateStructured(ctx context.Context, req Request) (string, error) {
	params := anthropic.BetaMessageNewParams{
		Model: anthropic.Model(req.Model),
		Betas: []anthropic.AnthropicBeta{
			structuredOutputsBeta,
		},
		MaxTokens:    req.MaxTokens,
		OutputFormat: anthropic.BetaJSONSchemaOutputFormat(req.Schema),
		Messages: []anthropic.BetaMessageParam{
			anthropic.NewBetaUserMessage(anthropic.NewBetaTextBlock(req.Prompt)),
		},
	}
	if req.System != "" {
		params.System = []anthropic.BetaTextBlockParam{{Text: req.System}}
	}
	if req.Temperature != nil {
		params.Temperature = anthropic.Float(*req.Temperature)
	}

	resp, err := a.client.Beta.Messages.New(ctx, params)
	if err != nil {
		return "", wrapErr(err)
	}

	var text strings.Builder
	for _, content := range resp.Content {
		text.WriteString(content.Text)
	}
	if strings.TrimSpace(text.String()) == "" {
		return "", ErrEmptyResponse
	}

	return text.String(), nil
}

func wrapErr(err error) error {
	var claudeErr *anthropic.Error
	if errors.As(err, &claudeErr) && claudeErr.StatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("%w: %s", ErrRateLimited, err)
	}

	return fmt.Errorf("error calling claude: %w", err)
}
