package retry

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/cenkalti/backoff/v4"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Policy is a fixed-backoff retry budget for calls into external backends.
type Policy struct {
	Attempts int           // total attempts, including the first
	Delay    time.Duration // wait between attempts
	Notify   func(err error, wait time.Duration)
}

func DefaultPolicy() Policy {
	return Policy{Attempts: 3, Delay: 5 * time.Second}
}

type transientError struct{ err error }

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

// MarkTransient flags err as worth retrying (rate limits, 5xx, timeouts).
func MarkTransient(err error) error {
	if err == nil {
		return nil
	}
	return &transientError{err: err}
}

func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var te *transientError
	if errors.As(err, &te) {
		return true
	}
	switch status.Code(err) {
	case codes.Unavailable, codes.ResourceExhausted, codes.DeadlineExceeded:
		return true
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}

// Do runs fn until it succeeds, returns a non-transient error, or the attempt
// budget is spent. The last error is returned unwrapped.
func Do(ctx context.Context, p Policy, fn func(ctx context.Context) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}
	var b backoff.BackOff = backoff.NewConstantBackOff(p.Delay)
	b = backoff.WithMaxRetries(b, uint64(attempts-1))
	b = backoff.WithContext(b, ctx)

	op := func() error {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if !IsTransient(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	if p.Notify != nil {
		return backoff.RetryNotify(op, b, p.Notify)
	}
	return backoff.Retry(op, b)
}

// Value is Do for calls that produce a result.
func Value[T any](ctx context.Context, p Policy, fn func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := Do(ctx, p, func(ctx context.Context) error {
		v, err := fn(ctx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}
