// Package tagging asks a language model which catalog tags fit an episode
// and applies them.
package tagging

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jdholdren/podscribe/internal/llm"
	"github.com/jdholdren/podscribe/internal/podscribe"
)

// ExcerptLimit is how much of the transcript, in characters, the model sees.
const ExcerptLimit = 2000

//go:embed prompt.txt
var promptTmpl string

// Use a schema to constrain the output
var outputSchema = map[string]any{
	"type":  "array",
	"items": map[string]any{"type": "integer"},
}

type (
	// TagSummary is what the model is told about each tag.
	TagSummary struct {
		ID          int64  `json:"id"`
		Name        string `json:"name"`
		Description string `json:"description"`
	}

	Config struct {
		Model       string
		MaxTokens   int64
		Temperature float64
	}

	Service struct {
		tags     podscribe.TagRepo
		provider llm.Provider
		cfg      Config
	}
)

func New(tags podscribe.TagRepo, provider llm.Provider, cfg Config) *Service {
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 100
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = 0.3
	}

	return &Service{tags: tags, provider: provider, cfg: cfg}
}

// AvailableTags lists the catalog for the prompt. It's nil, not empty, when
// there are no tags at all.
func (s *Service) AvailableTags(ctx context.Context) ([]TagSummary, error) {
	tags, err := s.tags.AllTags(ctx)
	if err != nil {
		return nil, fmt.Errorf("error listing tags: %w", err)
	}
	if len(tags) == 0 {
		slog.WarnContext(ctx, "no tags available in the catalog")
		return nil, nil
	}

	catalog := make([]TagSummary, 0, len(tags))
	for _, tag := range tags {
		desc := tag.Name
		if tag.Description != nil && strings.TrimSpace(*tag.Description) != "" {
			desc = *tag.Description
		}
		catalog = append(catalog, TagSummary{ID: tag.ID, Name: tag.Name, Description: desc})
	}

	return catalog, nil
}

// Suggest returns the model's raw answer for which tags apply.
func (s *Service) Suggest(ctx context.Context, transcript string, catalog []TagSummary) (string, error) {
	byts, err := json.MarshalIndent(catalog, "", "  ")
	if err != nil {
		return "", fmt.Errorf("error marshaling catalog: %s", err)
	}

	resp, err := s.provider.Generate(ctx, llm.Request{
		Model:       s.cfg.Model,
		Prompt:      fmt.Sprintf(promptTmpl, byts, ExcerptLimit, Excerpt(transcript)),
		MaxTokens:   s.cfg.MaxTokens,
		Temperature: llm.Temperature(s.cfg.Temperature),
		Schema:      outputSchema,
	})
	if err != nil {
		return "", fmt.Errorf("error suggesting tags: %w", err)
	}

	return resp, nil
}

// ApplyTags adds the tags named in raw to the episode and returns the ids
// that were applied.
//
// raw has to be a JSON array. Ids that aren't integers or aren't in the
// catalog are skipped.
func (s *Service) ApplyTags(ctx context.Context, episodeID string, raw string) ([]int64, error) {
	var elems []json.RawMessage
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &elems); err != nil {
		return nil, fmt.Errorf("error parsing tag suggestions %q: %w", raw, err)
	}
	if elems == nil {
		return nil, fmt.Errorf("tag suggestions were not an array: %q", raw)
	}

	applied := []int64{}
	seen := make(map[int64]bool)
	for _, elem := range elems {
		var id int64
		if err := json.Unmarshal(elem, &id); err != nil {
			slog.WarnContext(ctx, "skipping non-integer tag id", "value", string(elem))
			continue
		}
		if seen[id] {
			continue
		}
		seen[id] = true

		tag, err := s.tags.Tag(ctx, id)
		if errors.Is(err, podscribe.ErrNotFound) {
			slog.WarnContext(ctx, "suggested tag does not exist", "tag_id", id)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("error looking up tag %d: %w", id, err)
		}

		if err := s.tags.AddEpisodeTag(ctx, episodeID, tag.ID); err != nil {
			return nil, err
		}
		slog.InfoContext(ctx, "applied tag", "tag", tag.Name, "tag_id", tag.ID)
		applied = append(applied, tag.ID)
	}

	return applied, nil
}

// SuggestAndApply tags the episode from its transcript.
//
// It returns nil without an error when there's nothing to do: a blank
// transcript or an empty catalog.
func (s *Service) SuggestAndApply(ctx context.Context, ep podscribe.Episode) ([]int64, error) {
	if !ep.HasTranscript() {
		slog.InfoContext(ctx, "no transcript to tag from")
		return nil, nil
	}

	catalog, err := s.AvailableTags(ctx)
	if err != nil {
		return nil, err
	}
	if catalog == nil {
		return nil, nil
	}

	raw, err := s.Suggest(ctx, ep.TranscriptText(), catalog)
	if err != nil {
		return nil, err
	}

	return s.ApplyTags(ctx, ep.ID, raw)
}

// Excerpt cuts the transcript down to [ExcerptLimit] characters.
func Excerpt(transcript string) string {
	r := []rune(transcript)
	if len(r) <= ExcerptLimit {
		return transcript
	}
	return string(r[:ExcerptLimit])
}
