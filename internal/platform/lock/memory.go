package lock

import (
	"context"
	"sync"
)

type memoryEntry struct {
	ch   chan struct{}
	refs int
}

type memoryLocker struct {
	mu   sync.Mutex
	keys map[string]*memoryEntry
}

// NewMemory returns an in-process keyed mutex.
func NewMemory() Locker {
	return &memoryLocker{keys: map[string]*memoryEntry{}}
}

func (l *memoryLocker) Acquire(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	e, ok := l.keys[key]
	if !ok {
		e = &memoryEntry{ch: make(chan struct{}, 1)}
		l.keys[key] = e
	}
	e.refs++
	l.mu.Unlock()

	select {
	case e.ch <- struct{}{}:
	case <-ctx.Done():
		l.unref(key, e)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-e.ch
			l.unref(key, e)
		})
	}, nil
}

func (l *memoryLocker) unref(key string, e *memoryEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(l.keys, key)
	}
}
