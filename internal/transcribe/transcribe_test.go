package transcribe

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	name  string
	text  string
	err   error
	calls int
}

func (f *fakeBackend) Name() string { return f.name }

func (f *fakeBackend) Transcribe(context.Context, string) (string, error) {
	f.calls++
	return f.text, f.err
}

func TestSelect(t *testing.T) {
	primary := &fakeBackend{name: "primary"}
	fallback := &fakeBackend{name: "fallback"}

	tests := []struct {
		name     string
		primary  Backend
		fallback Backend
		mode     Mode
		want     string
		wantErr  error
	}{
		{name: "auto prefers primary", primary: primary, fallback: fallback, mode: ModeAuto, want: "primary"},
		{name: "auto falls back", fallback: fallback, mode: ModeAuto, want: "fallback"},
		{name: "auto with nothing", mode: ModeAuto, wantErr: ErrNoBackendConfigured},
		{name: "explicit primary", primary: primary, fallback: fallback, mode: ModePrimary, want: "primary"},
		{name: "explicit primary missing", fallback: fallback, mode: ModePrimary, wantErr: ErrNoBackendConfigured},
		{name: "explicit fallback", primary: primary, fallback: fallback, mode: ModeFallback, want: "fallback"},
		{name: "explicit fallback missing", primary: primary, mode: ModeFallback, wantErr: ErrNoBackendConfigured},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewSelector(tt.primary, tt.fallback, ModeAuto).Select(tt.mode)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Name())
		})
	}
}

func TestSelectorTranscribe(t *testing.T) {
	t.Run("uses default mode and trims", func(t *testing.T) {
		fallback := &fakeBackend{name: "fallback", text: "  hello world \n"}
		s := NewSelector(nil, fallback, ModeFallback)

		got, err := s.Transcribe(context.Background(), "https://cdn.example.com/a.mp3", "")
		require.NoError(t, err)
		assert.Equal(t, "hello world", got)
		assert.Equal(t, 1, fallback.calls)
	})

	t.Run("blank text is a failure", func(t *testing.T) {
		s := NewSelector(&fakeBackend{name: "primary", text: "   "}, nil, ModeAuto)

		_, err := s.Transcribe(context.Background(), "https://cdn.example.com/a.mp3", "")
		assert.ErrorIs(t, err, ErrTranscription)
	})

	t.Run("backend errors pass through", func(t *testing.T) {
		boom := errors.Join(ErrTranscription, errors.New("boom"))
		s := NewSelector(&fakeBackend{name: "primary", err: boom}, nil, ModeAuto)

		_, err := s.Transcribe(context.Background(), "https://cdn.example.com/a.mp3", ModePrimary)
		assert.ErrorIs(t, err, ErrTranscription)
	})
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode(" Fallback ")
	require.NoError(t, err)
	assert.Equal(t, ModeFallback, m)

	m, err = ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, ModeAuto, m)

	_, err = ParseMode("fastest")
	assert.Error(t, err)
}
