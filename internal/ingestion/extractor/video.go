package extractor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// extractVideo transcribes the audio track only. The scratch directory is
// removed whether or not transcription succeeds.
func (e *Extractor) extractVideo(ctx context.Context, videoPath string) (string, error) {
	if e.Media == nil {
		return "", fmt.Errorf("media tools unavailable")
	}
	tmpDir, err := os.MkdirTemp(e.TempDir, "ab_video_*")
	if err != nil {
		return "", fmt.Errorf("temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	audioPath := filepath.Join(tmpDir, "audio"+e.Audio.Ext())
	if _, err := e.Media.ExtractAudioFromVideo(ctx, videoPath, audioPath, e.Audio); err != nil {
		return "", fmt.Errorf("extract audio track: %w", err)
	}
	return e.extractAudio(ctx, audioPath)
}
