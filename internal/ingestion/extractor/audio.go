package extractor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/yungbote/auditbridge-backend/internal/platform/retry"
)

func (e *Extractor) extractAudio(ctx context.Context, audioPath string) (string, error) {
	if e.Media == nil {
		return "", fmt.Errorf("media tools unavailable")
	}
	if e.Transcriber == nil {
		return "", fmt.Errorf("transcriber unavailable")
	}

	tmpDir, err := os.MkdirTemp(e.TempDir, "ab_audio_*")
	if err != nil {
		return "", fmt.Errorf("temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	chunks, err := e.Media.SplitAudio(ctx, audioPath, tmpDir, e.AudioChunk, e.Audio)
	if err != nil {
		return "", fmt.Errorf("split audio: %w", err)
	}
	if len(chunks) == 0 {
		return "", fmt.Errorf("split audio produced no chunks")
	}

	// Chunks may finish out of order; results keep their slot.
	results := make([]string, len(chunks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.ChunkConcurrency)
	for i, chunkPath := range chunks {
		i, chunkPath := i, chunkPath
		g.Go(func() error {
			data, err := os.ReadFile(chunkPath)
			if err != nil {
				return fmt.Errorf("read chunk %d: %w", i, err)
			}
			text, err := retry.Value(gctx, e.Retry, func(ctx context.Context) (string, error) {
				return e.Transcriber.Transcribe(ctx, data, filepath.Base(chunkPath), e.Audio.MIME())
			})
			if err != nil {
				return fmt.Errorf("transcribe chunk %d/%d: %w", i+1, len(chunks), err)
			}
			results[i] = strings.TrimSpace(text)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", err
	}
	return strings.Join(results, "\n"), nil
}
