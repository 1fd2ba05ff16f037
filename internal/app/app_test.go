package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jdholdren/podscribe/internal/transcribe"
)

func TestNewSelector_WhisperOnly(t *testing.T) {
	sel, err := NewSelector(context.Background(), Config{
		WhisperAPIKey:     "key",
		TranscriptionMode: "auto",
	})
	require.NoError(t, err)

	backend, err := sel.Select(transcribe.ModeAuto)
	require.NoError(t, err)
	assert.Equal(t, "whisper", backend.Name())

	// No bucket, no fallback
	_, err = sel.Select(transcribe.ModeFallback)
	assert.ErrorIs(t, err, transcribe.ErrNoBackendConfigured)
}

func TestNewSelector_NothingConfigured(t *testing.T) {
	sel, err := NewSelector(context.Background(), Config{})
	require.NoError(t, err)

	_, err = sel.Select(transcribe.ModeAuto)
	assert.ErrorIs(t, err, transcribe.ErrNoBackendConfigured)
}

func TestNewSelector_BadMode(t *testing.T) {
	_, err := NewSelector(context.Background(), Config{TranscriptionMode: "sideways"})
	assert.Error(t, err)
}
