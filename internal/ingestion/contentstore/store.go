package contentstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Store keeps uploaded bytes addressed by their content key. Identical bytes
// always land on the same key, so a second Put of the same content is a no-op.
type Store interface {
	Put(ctx context.Context, data []byte, ext string) (string, error)
	Exists(ctx context.Context, key string) (bool, error)
	// Materialize exposes the content as a local file for tools that need a
	// path. cleanup must be called once the caller is done with it.
	Materialize(ctx context.Context, key string) (path string, cleanup func(), err error)
	Delete(ctx context.Context, key string) error
}

// Key is the hex sha256 of data followed by the lower-cased extension.
func Key(data []byte, ext string) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]) + normalizeExt(ext)
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext == "" {
		return ""
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

// validKey rejects anything that could escape the store root.
func validKey(key string) bool {
	if key == "" || strings.ContainsAny(key, `/\`) || strings.Contains(key, "..") {
		return false
	}
	return true
}
