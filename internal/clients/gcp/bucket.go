package gcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/yungbote/auditbridge-backend/internal/platform/logger"
)

// Bucket stores evidence bytes under content keys in one GCS bucket.
type Bucket interface {
	// PutIfAbsent writes the object unless it already exists. created is false
	// when another writer got there first.
	PutIfAbsent(ctx context.Context, key string, r io.Reader) (created bool, err error)
	Exists(ctx context.Context, key string) (bool, error)
	Download(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	Close() error
}

type BucketConfig struct {
	Name        string
	Prefix      string
	Credentials string
}

type bucketService struct {
	log    *logger.Logger
	client *storage.Client
	name   string
	prefix string
}

func NewBucket(log *logger.Logger, cfg BucketConfig) (Bucket, error) {
	if strings.TrimSpace(cfg.Name) == "" {
		return nil, fmt.Errorf("bucket name required")
	}
	opts := ClientOptions(cfg.Credentials)
	opts = append(opts, option.WithScopes(storage.ScopeReadWrite))
	client, err := storage.NewClient(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	return &bucketService{
		log:    log.With("service", "gcp.Bucket", "bucket", cfg.Name),
		client: client,
		name:   cfg.Name,
		prefix: strings.Trim(cfg.Prefix, "/"),
	}, nil
}

func (b *bucketService) object(key string) *storage.ObjectHandle {
	name := key
	if b.prefix != "" {
		name = path.Join(b.prefix, key)
	}
	return b.client.Bucket(b.name).Object(name)
}

func (b *bucketService) PutIfAbsent(ctx context.Context, key string, r io.Reader) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := b.object(key).If(storage.Conditions{DoesNotExist: true}).NewWriter(ctx)
	if ct := contentTypeForKey(key); ct != "" {
		w.ContentType = ct
	}
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return false, fmt.Errorf("failed to write data to GCS: %w", err)
	}
	if err := w.Close(); err != nil {
		var gerr *googleapi.Error
		if errors.As(err, &gerr) && gerr.Code == http.StatusPreconditionFailed {
			return false, nil
		}
		return false, fmt.Errorf("failed to close GCS writer: %w", err)
	}
	return true, nil
}

func (b *bucketService) Exists(ctx context.Context, key string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if _, err := b.object(key).Attrs(ctx); err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("stat GCS object %q: %w", key, err)
	}
	return true, nil
}

// The reader owns the timeout context; it is released on Close.
type readCloserWithCancel struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (r *readCloserWithCancel) Close() error {
	err := r.ReadCloser.Close()
	if r.cancel != nil {
		r.cancel()
	}
	return err
}

func (b *bucketService) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	ctx2, cancel := context.WithTimeout(ctx, 5*time.Minute)
	r, err := b.object(key).NewReader(ctx2)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to open GCS reader: %w", err)
	}
	return &readCloserWithCancel{ReadCloser: r, cancel: cancel}, nil
}

func (b *bucketService) Delete(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := b.object(key).Delete(ctx); err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("failed to delete GCS object %q in bucket %q: %w", key, b.name, err)
	}
	return nil
}

func (b *bucketService) Close() error {
	return b.client.Close()
}

func contentTypeForKey(key string) string {
	s := strings.ToLower(strings.TrimSpace(key))
	switch {
	case strings.HasSuffix(s, ".png"):
		return "image/png"
	case strings.HasSuffix(s, ".jpg"), strings.HasSuffix(s, ".jpeg"):
		return "image/jpeg"
	case strings.HasSuffix(s, ".webp"):
		return "image/webp"
	case strings.HasSuffix(s, ".gif"):
		return "image/gif"
	case strings.HasSuffix(s, ".mp4"):
		return "video/mp4"
	case strings.HasSuffix(s, ".mov"):
		return "video/quicktime"
	case strings.HasSuffix(s, ".mp3"):
		return "audio/mpeg"
	case strings.HasSuffix(s, ".wav"):
		return "audio/wav"
	case strings.HasSuffix(s, ".pdf"):
		return "application/pdf"
	case strings.HasSuffix(s, ".txt"):
		return "text/plain; charset=utf-8"
	case strings.HasSuffix(s, ".html"), strings.HasSuffix(s, ".htm"):
		return "text/html; charset=utf-8"
	default:
		return ""
	}
}
