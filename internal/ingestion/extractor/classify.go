package extractor

import (
	"path/filepath"
	"strings"
)

type Category string

const (
	CategoryAudio    Category = "audio"
	CategoryVideo    Category = "video"
	CategoryImage    Category = "image"
	CategoryDocument Category = "document"
)

var extCategories = map[string]Category{
	"mp3":  CategoryAudio,
	"wav":  CategoryAudio,
	"m4a":  CategoryAudio,
	"flac": CategoryAudio,

	"mp4": CategoryVideo,
	"avi": CategoryVideo,
	"mov": CategoryVideo,
	"mkv": CategoryVideo,

	"jpg":  CategoryImage,
	"jpeg": CategoryImage,
	"png":  CategoryImage,
	"gif":  CategoryImage,
	"bmp":  CategoryImage,
	"webp": CategoryImage,
}

var imageMIMEs = map[string]bool{
	"image/jpeg": true,
	"image/jpg":  true,
	"image/png":  true,
	"image/gif":  true,
	"image/bmp":  true,
	"image/webp": true,
}

// Classify maps a file extension (with or without the dot) or a MIME type
// to a category. Anything unrecognised is a document.
func Classify(extOrMime string) Category {
	s := strings.ToLower(strings.TrimSpace(extOrMime))
	if i := strings.IndexByte(s, ';'); i >= 0 {
		s = strings.TrimSpace(s[:i])
	}
	if strings.Contains(s, "/") {
		switch {
		case strings.HasPrefix(s, "audio/"):
			return CategoryAudio
		case strings.HasPrefix(s, "video/"):
			return CategoryVideo
		case imageMIMEs[s]:
			return CategoryImage
		}
		return CategoryDocument
	}
	if c, ok := extCategories[strings.TrimPrefix(s, ".")]; ok {
		return c
	}
	return CategoryDocument
}

// ClassifyFile prefers the filename extension and falls back to the declared
// MIME type only when the extension says nothing.
func ClassifyFile(filename, mime string) Category {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
	if c, ok := extCategories[ext]; ok {
		return c
	}
	if strings.TrimSpace(mime) != "" {
		return Classify(mime)
	}
	return CategoryDocument
}
