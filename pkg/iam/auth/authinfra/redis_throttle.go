package authinfra

import (
	"context"
	"errors"
	"time"

	"github.com/Abraxas-365/keygate/pkg/errx"
	"github.com/redis/go-redis/v9"
)

const throttlePrefix = "keygate:signin:"

// RedisThrottle cuenta los inicios de sesión fallidos por clave en Redis.
// El contador expira window después del primer fallo.
type RedisThrottle struct {
	client      redis.UniversalClient
	maxAttempts int64
	window      time.Duration
}

func NewRedisThrottle(client redis.UniversalClient, maxAttempts int, window time.Duration) *RedisThrottle {
	return &RedisThrottle{
		client:      client,
		maxAttempts: int64(maxAttempts),
		window:      window,
	}
}

func (t *RedisThrottle) Allow(ctx context.Context, key string) (bool, error) {
	n, err := t.client.Get(ctx, throttlePrefix+key).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return true, nil
		}
		return false, errx.Wrap(err, "failed to read sign-in attempts", errx.TypeInternal)
	}
	return n < t.maxAttempts, nil
}

func (t *RedisThrottle) Fail(ctx context.Context, key string) error {
	n, err := t.client.Incr(ctx, throttlePrefix+key).Result()
	if err != nil {
		return errx.Wrap(err, "failed to record sign-in attempt", errx.TypeInternal)
	}
	if n == 1 {
		if err := t.client.Expire(ctx, throttlePrefix+key, t.window).Err(); err != nil {
			return errx.Wrap(err, "failed to set sign-in attempt window", errx.TypeInternal)
		}
	}
	return nil
}

func (t *RedisThrottle) Reset(ctx context.Context, key string) error {
	if err := t.client.Del(ctx, throttlePrefix+key).Err(); err != nil {
		return errx.Wrap(err, "failed to reset sign-in attempts", errx.TypeInternal)
	}
	return nil
}
