// Package transcribe turns episode audio into transcript text using either a
// fast synchronous speech-to-text API or a slower job-based one.
package transcribe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

var (
	ErrNoBackendConfigured = errors.New("no transcription backend configured")
	ErrUploadFailed        = errors.New("error staging audio")
	ErrTranscription       = errors.New("transcription failed")
	ErrDownloadFailed      = errors.New("error downloading transcript")
	ErrParse               = errors.New("error parsing transcript payload")
)

// Mode picks which backend a transcription uses.
type Mode string

const (
	ModePrimary  Mode = "primary"
	ModeFallback Mode = "fallback"
	ModeAuto     Mode = "auto"
)

func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModePrimary, ModeFallback, ModeAuto:
		return m, nil
	case "":
		return ModeAuto, nil
	default:
		return "", fmt.Errorf("unknown transcription mode %q", s)
	}
}

// Backend is one speech-to-text provider.
type Backend interface {
	Name() string
	Transcribe(ctx context.Context, audioURL string) (string, error)
}

// Selector chooses between the primary and fallback backends.
//
// A nil backend is one that isn't configured.
type Selector struct {
	primary  Backend
	fallback Backend
	mode     Mode
}

func NewSelector(primary, fallback Backend, mode Mode) *Selector {
	if mode == "" {
		mode = ModeAuto
	}

	return &Selector{
		primary:  primary,
		fallback: fallback,
		mode:     mode,
	}
}

// Select resolves mode to a backend. In auto mode the primary wins when it's
// configured.
func (s *Selector) Select(mode Mode) (Backend, error) {
	if mode == "" {
		mode = s.mode
	}

	switch mode {
	case ModePrimary:
		if s.primary == nil {
			return nil, fmt.Errorf("%w: primary", ErrNoBackendConfigured)
		}
		return s.primary, nil
	case ModeFallback:
		if s.fallback == nil {
			return nil, fmt.Errorf("%w: fallback", ErrNoBackendConfigured)
		}
		return s.fallback, nil
	case ModeAuto:
		if s.primary != nil {
			return s.primary, nil
		}
		if s.fallback != nil {
			return s.fallback, nil
		}
		return nil, ErrNoBackendConfigured
	default:
		return nil, fmt.Errorf("unknown transcription mode %q", mode)
	}
}

// Transcribe runs the audio through the backend picked by mode. An empty mode
// uses the selector's default.
//
// A blank result is an [ErrTranscription].
func (s *Selector) Transcribe(ctx context.Context, audioURL string, mode Mode) (string, error) {
	backend, err := s.Select(mode)
	if err != nil {
		return "", err
	}

	slog.InfoContext(ctx, "transcribing audio", "backend", backend.Name(), "url", audioURL)
	text, err := backend.Transcribe(ctx, audioURL)
	if err != nil {
		return "", err
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("%w: %s returned no text", ErrTranscription, backend.Name())
	}

	return text, nil
}
