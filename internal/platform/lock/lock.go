package lock

import "context"

// Locker serializes work on a named resource across goroutines, and across
// processes when backed by redis.
type Locker interface {
	// Acquire blocks until the lock is held or ctx is done. release is safe
	// to call more than once.
	Acquire(ctx context.Context, key string) (release func(), err error)
}
