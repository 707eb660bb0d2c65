package contentstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/sync/singleflight"

	"github.com/yungbote/auditbridge-backend/internal/clients/gcp"
	"github.com/yungbote/auditbridge-backend/internal/platform/logger"
)

type gcsStore struct {
	log     *logger.Logger
	bucket  gcp.Bucket
	tempDir string
	group   singleflight.Group
}

// NewGCS stores content as objects in bucket. Materialize downloads into a
// scratch directory under tempDir.
func NewGCS(log *logger.Logger, bucket gcp.Bucket, tempDir string) Store {
	return &gcsStore{
		log:     log.With("service", "GCSContentStore"),
		bucket:  bucket,
		tempDir: tempDir,
	}
}

func (s *gcsStore) Put(ctx context.Context, data []byte, ext string) (string, error) {
	key := Key(data, ext)
	_, err, _ := s.group.Do(key, func() (interface{}, error) {
		created, err := s.bucket.PutIfAbsent(ctx, key, bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		if created {
			s.log.Debug("content stored", "key", key, "bytes", len(data))
		}
		return nil, nil
	})
	if err != nil {
		return "", fmt.Errorf("put %s: %w", key, err)
	}
	return key, nil
}

func (s *gcsStore) Exists(ctx context.Context, key string) (bool, error) {
	if !validKey(key) {
		return false, fmt.Errorf("invalid content key %q", key)
	}
	return s.bucket.Exists(ctx, key)
}

func (s *gcsStore) Materialize(ctx context.Context, key string) (string, func(), error) {
	if !validKey(key) {
		return "", func() {}, fmt.Errorf("invalid content key %q", key)
	}
	dir, err := os.MkdirTemp(s.tempDir, "ab_content_*")
	if err != nil {
		return "", func() {}, fmt.Errorf("temp dir: %w", err)
	}
	cleanup := func() { _ = os.RemoveAll(dir) }

	rc, err := s.bucket.Download(ctx, key)
	if err != nil {
		cleanup()
		return "", func() {}, err
	}
	defer rc.Close()

	p := filepath.Join(dir, key)
	f, err := os.Create(p)
	if err != nil {
		cleanup()
		return "", func() {}, fmt.Errorf("create local copy: %w", err)
	}
	if _, err := io.Copy(f, rc); err != nil {
		_ = f.Close()
		cleanup()
		return "", func() {}, fmt.Errorf("download %s: %w", key, err)
	}
	if err := f.Close(); err != nil {
		cleanup()
		return "", func() {}, err
	}
	return p, cleanup, nil
}

func (s *gcsStore) Delete(ctx context.Context, key string) error {
	if !validKey(key) {
		return fmt.Errorf("invalid content key %q", key)
	}
	return s.bucket.Delete(ctx, key)
}
