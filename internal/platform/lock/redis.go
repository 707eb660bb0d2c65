package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/auditbridge-backend/internal/platform/logger"
)

var releaseScript = goredis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
  return redis.call("del", KEYS[1])
end
return 0`)

var extendScript = goredis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
  return redis.call("pexpire", KEYS[1], ARGV[2])
end
return 0`)

type redisLocker struct {
	log    *logger.Logger
	rdb    goredis.UniversalClient
	prefix string
	ttl    time.Duration
	poll   time.Duration
}

// NewRedis returns a lock backed by SET NX PX. Each holder owns a random
// token; release and renewal only touch keys that still carry that token.
// The TTL is renewed in the background while the lock is held.
func NewRedis(log *logger.Logger, rdb goredis.UniversalClient, prefix string, ttl time.Duration) Locker {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &redisLocker{
		log:    log.With("service", "RedisLocker"),
		rdb:    rdb,
		prefix: prefix,
		ttl:    ttl,
		poll:   100 * time.Millisecond,
	}
}

func (l *redisLocker) Acquire(ctx context.Context, key string) (func(), error) {
	k := l.prefix + key
	token := uuid.NewString()

	for {
		ok, err := l.rdb.SetNX(ctx, k, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire %s: %w", k, err)
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(l.poll):
		}
	}

	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		t := time.NewTicker(l.ttl / 3)
		defer t.Stop()
		for {
			select {
			case <-stop:
				return
			case <-t.C:
				rctx, cancel := context.WithTimeout(context.Background(), l.ttl/3)
				n, err := extendScript.Run(rctx, l.rdb, []string{k}, token, l.ttl.Milliseconds()).Int()
				cancel()
				if err != nil {
					l.log.Warn("lock renewal failed", "key", k, "error", err)
				} else if n == 0 {
					l.log.Warn("lock lost before release", "key", k)
					return
				}
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			wg.Wait()
			rctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := releaseScript.Run(rctx, l.rdb, []string{k}, token).Err(); err != nil && !errors.Is(err, goredis.Nil) {
				l.log.Warn("lock release failed", "key", k, "error", err)
			}
		})
	}, nil
}
