package contentstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sync/singleflight"

	"github.com/yungbote/auditbridge-backend/internal/platform/logger"
)

type localStore struct {
	log   *logger.Logger
	root  string
	group singleflight.Group
}

// NewLocal stores content as files directly under root.
func NewLocal(log *logger.Logger, root string) (Store, error) {
	if root == "" {
		return nil, fmt.Errorf("content root required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir content root: %w", err)
	}
	return &localStore{
		log:  log.With("service", "LocalContentStore"),
		root: root,
	}, nil
}

func (s *localStore) path(key string) (string, error) {
	if !validKey(key) {
		return "", fmt.Errorf("invalid content key %q", key)
	}
	return filepath.Join(s.root, key), nil
}

func (s *localStore) Put(ctx context.Context, data []byte, ext string) (string, error) {
	key := Key(data, ext)
	dst, err := s.path(key)
	if err != nil {
		return "", err
	}
	_, err, _ = s.group.Do(key, func() (interface{}, error) {
		if _, err := os.Stat(dst); err == nil {
			return nil, nil
		}
		tmp, err := os.CreateTemp(s.root, ".put-*")
		if err != nil {
			return nil, fmt.Errorf("create temp: %w", err)
		}
		tmpName := tmp.Name()
		if _, err := tmp.Write(data); err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
			return nil, fmt.Errorf("write temp: %w", err)
		}
		if err := tmp.Close(); err != nil {
			_ = os.Remove(tmpName)
			return nil, fmt.Errorf("close temp: %w", err)
		}
		if err := os.Rename(tmpName, dst); err != nil {
			_ = os.Remove(tmpName)
			return nil, fmt.Errorf("rename into place: %w", err)
		}
		s.log.Debug("content stored", "key", key, "bytes", len(data))
		return nil, nil
	})
	if err != nil {
		return "", err
	}
	return key, nil
}

func (s *localStore) Exists(ctx context.Context, key string) (bool, error) {
	p, err := s.path(key)
	if err != nil {
		return false, err
	}
	if _, err := os.Stat(p); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Materialize returns the stored file itself; cleanup is a no-op.
func (s *localStore) Materialize(ctx context.Context, key string) (string, func(), error) {
	p, err := s.path(key)
	if err != nil {
		return "", func() {}, err
	}
	if _, err := os.Stat(p); err != nil {
		return "", func() {}, fmt.Errorf("content %q: %w", key, err)
	}
	return p, func() {}, nil
}

func (s *localStore) Delete(ctx context.Context, key string) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
