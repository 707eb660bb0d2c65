package extractor

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/yungbote/auditbridge-backend/internal/platform/ctxutil"
	"github.com/yungbote/auditbridge-backend/internal/platform/localmedia"
	"github.com/yungbote/auditbridge-backend/internal/platform/logger"
	"github.com/yungbote/auditbridge-backend/internal/platform/retry"
)

// Transcriber turns one chunk of encoded audio into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, filename string, mime string) (string, error)
}

// Captioner describes an image. relevant is false when the image carries no
// information worth keeping (logos, decoration, blank slides).
type Captioner interface {
	DescribeImage(ctx context.Context, data []byte, mime string) (desc string, relevant bool, err error)
}

type Config struct {
	// AudioChunk bounds the length of each slice sent for transcription.
	AudioChunk time.Duration
	// ChunkConcurrency is how many slices are transcribed at once.
	ChunkConcurrency int
	Audio            localmedia.AudioOptions
	Retry            retry.Policy
	TempDir          string
}

type Extractor struct {
	Log *logger.Logger

	Media       localmedia.Tools
	Transcriber Transcriber
	Captioner   Captioner

	AudioChunk       time.Duration
	ChunkConcurrency int
	Audio            localmedia.AudioOptions
	Retry            retry.Policy
	TempDir          string
}

func New(log *logger.Logger, media localmedia.Tools, transcriber Transcriber, captioner Captioner, cfg Config) *Extractor {
	e := &Extractor{
		Log:              log.With("component", "TextExtractor"),
		Media:            media,
		Transcriber:      transcriber,
		Captioner:        captioner,
		AudioChunk:       cfg.AudioChunk,
		ChunkConcurrency: cfg.ChunkConcurrency,
		Audio:            cfg.Audio,
		Retry:            cfg.Retry,
		TempDir:          cfg.TempDir,
	}
	if e.AudioChunk <= 0 {
		e.AudioChunk = 15 * time.Minute
	}
	if e.ChunkConcurrency <= 0 {
		e.ChunkConcurrency = 1
	}
	if e.Retry.Attempts <= 0 {
		e.Retry = retry.DefaultPolicy()
	}
	return e
}

// Extract produces the plain text of the file at path. An irrelevant image
// yields "" with a nil error. Any error means no text at all; partial
// transcripts are never returned.
func (e *Extractor) Extract(ctx context.Context, path string, cat Category) (string, error) {
	ctx = ctxutil.Default(ctx)
	if strings.TrimSpace(path) == "" {
		return "", fmt.Errorf("path required")
	}
	started := time.Now()

	var (
		text string
		err  error
	)
	switch cat {
	case CategoryAudio:
		text, err = e.extractAudio(ctx, path)
	case CategoryVideo:
		text, err = e.extractVideo(ctx, path)
	case CategoryImage:
		text, err = e.extractImage(ctx, path)
	default:
		text, err = e.extractDocument(ctx, path)
	}
	if err != nil {
		e.Log.Warn("text extraction failed", "category", string(cat), "path", path, "error", err)
		return "", err
	}
	text = sanitizeUTF8(strings.TrimSpace(text))
	e.Log.Debug("text extracted",
		"category", string(cat),
		"chars", utf8.RuneCountInString(text),
		"elapsed", time.Since(started).String(),
	)
	return text, nil
}

func sanitizeUTF8(s string) string {
	if s == "" || utf8.ValidString(s) {
		return s
	}
	return strings.ToValidUTF8(s, " ")
}
