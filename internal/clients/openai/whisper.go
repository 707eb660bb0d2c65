package openai

import (
	"context"
	"strings"

	oai "github.com/yungbote/auditbridge-backend/internal/platform/openai"
)

// Whisper transcribes audio chunks through the OpenAI transcription endpoint.
type Whisper struct {
	client oai.Client
}

func NewWhisper(client oai.Client) *Whisper { return &Whisper{client: client} }

func (w *Whisper) Transcribe(ctx context.Context, audio []byte, filename string, mime string) (string, error) {
	text, err := w.client.Transcribe(ctx, audio, filename)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}
