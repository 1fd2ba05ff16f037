package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/jdholdren/podscribe/internal/podscribe"
)

const (
	DefaultWhisperURL   = "https://api.groq.com/openai/v1/audio/transcriptions"
	DefaultWhisperModel = "whisper-large-v3"
)

type WhisperConfig struct {
	APIKey   string
	URL      string
	Model    string
	Language string
}

// Whisper is the primary backend: an OpenAI-compatible transcription endpoint
// that fetches the audio itself from a URL.
type Whisper struct {
	client *http.Client
	cfg    WhisperConfig
}

func NewWhisper(cfg WhisperConfig, client *http.Client) *Whisper {
	if cfg.URL == "" {
		cfg.URL = DefaultWhisperURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultWhisperModel
	}
	if cfg.Language == "" {
		cfg.Language = "en"
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Minute}
	}

	return &Whisper{client: client, cfg: cfg}
}

func (w *Whisper) Name() string { return "whisper" }

type whisperResp struct {
	Text string `json:"text"`
}

func (w *Whisper) Transcribe(ctx context.Context, audioURL string) (string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for _, field := range [][2]string{
		{"url", podscribe.CleanURL(audioURL)},
		{"model", w.cfg.Model},
		{"language", w.cfg.Language},
		{"response_format", "json"},
	} {
		if err := mw.WriteField(field[0], field[1]); err != nil {
			return "", fmt.Errorf("%w: error writing form: %s", ErrTranscription, err)
		}
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("%w: error closing form: %s", ErrTranscription, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.cfg.URL, &body)
	if err != nil {
		return "", fmt.Errorf("%w: error creating request: %s", ErrTranscription, err)
	}
	req.Header.Set("Authorization", "Bearer "+w.cfg.APIKey)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := w.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrTranscription, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("%w: unexpected status code %d: %s", ErrTranscription, resp.StatusCode, bytes.TrimSpace(snippet))
	}

	var wr whisperResp
	if err := json.NewDecoder(resp.Body).Decode(&wr); err != nil {
		return "", fmt.Errorf("%w: error decoding response: %s", ErrTranscription, err)
	}

	return wr.Text, nil
}
