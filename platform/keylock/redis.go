package keylock

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	defaultRedisTTL   = 30 * time.Second
	redisRetryDelay   = 25 * time.Millisecond
	redisMaxRetryWait = 250 * time.Millisecond
)

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

var renewScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// Redis is a Locker shared between processes through SET NX PX. A held lock
// is renewed every ttl/3 until released, so the TTL only bounds how long a
// crashed holder can block a key.
type Redis struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

func NewRedis(client redis.UniversalClient, prefix string, ttl time.Duration) *Redis {
	if ttl < time.Millisecond {
		ttl = defaultRedisTTL
	}
	return &Redis{client: client, prefix: prefix, ttl: ttl}
}

func (r *Redis) Acquire(ctx context.Context, key string) (context.Context, func(), error) {
	if holds(ctx, key) {
		return ctx, noop, nil
	}

	redisKey := r.prefix + key
	token := uuid.NewString()
	delay := redisRetryDelay
	for {
		ok, err := r.client.SetNX(ctx, redisKey, token, r.ttl).Result()
		if err != nil {
			return ctx, noop, err
		}
		if ok {
			break
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return ctx, noop, ErrLockTimeout
			}
			return ctx, noop, ctx.Err()
		case <-timer.C:
		}
		delay = min(delay*2, redisMaxRetryWait)
	}

	stop := make(chan struct{})
	stopped := make(chan struct{})
	go r.keepAlive(context.WithoutCancel(ctx), redisKey, token, stop, stopped)

	var once sync.Once
	release := func() {
		once.Do(func() {
			close(stop)
			<-stopped
			_ = releaseScript.Run(context.WithoutCancel(ctx), r.client, []string{redisKey}, token).Err()
		})
	}
	return withHeld(ctx, key), release, nil
}

// keepAlive extends the key while this holder still owns it. Transient
// Redis errors are retried on the next tick; losing ownership ends the loop.
func (r *Redis) keepAlive(ctx context.Context, redisKey, token string, stop <-chan struct{}, stopped chan<- struct{}) {
	defer close(stopped)

	ticker := time.NewTicker(max(r.ttl/3, time.Millisecond))
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			owned, err := renewScript.Run(ctx, r.client, []string{redisKey}, token, r.ttl.Milliseconds()).Int()
			if err == nil && owned == 0 {
				return
			}
		}
	}
}
