package extractor

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/yungbote/auditbridge-backend/internal/platform/retry"
)

type caption struct {
	desc     string
	relevant bool
}

func (e *Extractor) extractImage(ctx context.Context, imgPath string) (string, error) {
	data, err := os.ReadFile(imgPath)
	if err != nil {
		return "", fmt.Errorf("read image: %w", err)
	}
	desc, err := e.describe(ctx, data, imageMIME(imgPath))
	if err != nil {
		return "", err
	}
	return desc, nil
}

// describe returns "" for images the captioner deems irrelevant.
func (e *Extractor) describe(ctx context.Context, data []byte, mimeType string) (string, error) {
	if e.Captioner == nil {
		return "", fmt.Errorf("captioner unavailable")
	}
	if len(data) == 0 {
		return "", fmt.Errorf("empty image")
	}
	c, err := retry.Value(ctx, e.Retry, func(ctx context.Context) (caption, error) {
		desc, relevant, err := e.Captioner.DescribeImage(ctx, data, mimeType)
		return caption{desc: desc, relevant: relevant}, err
	})
	if err != nil {
		return "", fmt.Errorf("describe image: %w", err)
	}
	if !c.relevant {
		return "", nil
	}
	return strings.TrimSpace(c.desc), nil
}

func imageMIME(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".bmp":
		return "image/bmp"
	case ".webp":
		return "image/webp"
	}
	if m := mime.TypeByExtension(ext); m != "" {
		return m
	}
	return "application/octet-stream"
}
