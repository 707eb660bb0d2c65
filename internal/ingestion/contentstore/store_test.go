package contentstore

import (
	"bytes"
	"context"
	"io"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/yungbote/auditbridge-backend/internal/platform/logger"
)

func TestKeyIsContentAddressed(t *testing.T) {
	a := Key([]byte("same bytes"), ".PDF")
	b := Key([]byte("same bytes"), "pdf")
	if a != b {
		t.Fatalf("expected identical keys, got %q and %q", a, b)
	}
	if !strings.HasSuffix(a, ".pdf") || len(a) != 64+4 {
		t.Fatalf("unexpected key %q", a)
	}
	if Key([]byte("other bytes"), ".pdf") == a {
		t.Fatalf("different content must not share a key")
	}
}

func TestLocalStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, err := NewLocal(logger.Nop(), t.TempDir())
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}

	key, err := s.Put(ctx, []byte("evidence"), ".txt")
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	again, err := s.Put(ctx, []byte("evidence"), ".txt")
	if err != nil || again != key {
		t.Fatalf("second Put: key=%q err=%v", again, err)
	}
	ok, err := s.Exists(ctx, key)
	if err != nil || !ok {
		t.Fatalf("Exists: ok=%v err=%v", ok, err)
	}

	p, cleanup, err := s.Materialize(ctx, key)
	if err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	defer cleanup()
	b, err := os.ReadFile(p)
	if err != nil || string(b) != "evidence" {
		t.Fatalf("read materialized: %q err=%v", b, err)
	}

	if err := s.Delete(ctx, key); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if ok, _ := s.Exists(ctx, key); ok {
		t.Fatalf("expected content to be gone")
	}
	if _, err := s.Exists(ctx, "../escape"); err == nil {
		t.Fatalf("expected invalid key error")
	}
}

func TestLocalStoreConcurrentPut(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	s, err := NewLocal(logger.Nop(), root)
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}
	var wg sync.WaitGroup
	keys := make([]string, 8)
	for i := range keys {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			k, err := s.Put(ctx, []byte("concurrent"), ".bin")
			if err != nil {
				t.Errorf("Put: %v", err)
			}
			keys[i] = k
		}(i)
	}
	wg.Wait()
	for _, k := range keys {
		if k != keys[0] {
			t.Fatalf("keys diverged: %v", keys)
		}
	}
	entries, err := os.ReadDir(root)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected exactly one stored file, found %d", len(entries))
	}
}

type memBucket struct {
	mu      sync.Mutex
	objects map[string][]byte
	puts    int
}

func (m *memBucket) PutIfAbsent(ctx context.Context, key string, r io.Reader) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.puts++
	if _, ok := m.objects[key]; ok {
		return false, nil
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return false, err
	}
	m.objects[key] = b
	return true, nil
}

func (m *memBucket) Exists(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[key]
	return ok, nil
}

func (m *memBucket) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return io.NopCloser(bytes.NewReader(m.objects[key])), nil
}

func (m *memBucket) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

func (m *memBucket) Close() error { return nil }

func TestGCSStoreMaterializeCleansUp(t *testing.T) {
	ctx := context.Background()
	bucket := &memBucket{objects: map[string][]byte{}}
	s := NewGCS(logger.Nop(), bucket, t.TempDir())

	key, err := s.Put(ctx, []byte("slides"), ".pptx")
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if _, err := s.Put(ctx, []byte("slides"), ".pptx"); err != nil {
		t.Fatalf("second Put: %v", err)
	}
	if len(bucket.objects) != 1 {
		t.Fatalf("expected one object, got %d", len(bucket.objects))
	}

	p, cleanup, err := s.Materialize(ctx, key)
	if err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	if b, _ := os.ReadFile(p); string(b) != "slides" {
		t.Fatalf("unexpected content %q", b)
	}
	cleanup()
	if _, err := os.Stat(p); !os.IsNotExist(err) {
		t.Fatalf("materialized copy should be removed, err=%v", err)
	}
}
