package cache

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/redis/go-redis/v9"

	kerrors "github.com/matzehuels/kinetic/pkg/errors"
	"github.com/matzehuels/kinetic/pkg/observability"
)

// RedisCache stores entries in Redis. Every key is stored under Prefix so
// Clear only touches entries this cache wrote.
type RedisCache struct {
	client *redis.Client
	prefix string
}

// RedisConfig configures NewRedisCache.
type RedisConfig struct {
	URL    string // redis:// or rediss:// URL
	Prefix string // defaults to "kinetic:"
}

// NewRedisCache connects to Redis and verifies the connection with PING.
func NewRedisCache(ctx context.Context, cfg RedisConfig) (*RedisCache, error) {
	if err := kerrors.ValidateRedisURL(cfg.URL); err != nil {
		return nil, err
	}
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, kerrors.Wrap(kerrors.ErrCodeInvalidInput, err, "parse redis URL")
	}
	if cfg.Prefix == "" {
		cfg.Prefix = "kinetic:"
	}
	c := &RedisCache{client: redis.NewClient(opts), prefix: cfg.Prefix}
	err = RetryWithBackoff(ctx, func() error {
		return classify(c.client.Ping(ctx).Err())
	})
	if err != nil {
		c.client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return c, nil
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var data []byte
	err := RetryWithBackoff(ctx, func() error {
		b, err := c.client.Get(ctx, c.prefix+key).Bytes()
		data = b
		return classify(err)
	})
	if errors.Is(err, redis.Nil) {
		observability.Cache().OnCacheMiss(ctx, keyType(key))
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	observability.Cache().OnCacheHit(ctx, keyType(key))
	return data, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	err := RetryWithBackoff(ctx, func() error {
		return classify(c.client.Set(ctx, c.prefix+key, data, ttl).Err())
	})
	if err == nil {
		observability.Cache().OnCacheSet(ctx, keyType(key), len(data))
	}
	return err
}

func (c *RedisCache) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, c.prefix+key).Err()
}

// Clear deletes every key under the cache prefix.
func (c *RedisCache) Clear(ctx context.Context) (int, error) {
	removed := 0
	var cursor uint64
	for {
		keys, next, err := c.client.Scan(ctx, cursor, c.prefix+"*", 256).Result()
		if err != nil {
			return removed, err
		}
		if len(keys) > 0 {
			n, err := c.client.Del(ctx, keys...).Result()
			if err != nil {
				return removed, err
			}
			removed += int(n)
		}
		if next == 0 {
			return removed, nil
		}
		cursor = next
	}
}

func (c *RedisCache) Close() error { return c.client.Close() }

// classify marks network failures retryable.
func classify(err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return Retryable(fmt.Errorf("%w: %v", ErrNetwork, err))
	}
	return err
}

var (
	_ Cache   = (*RedisCache)(nil)
	_ Clearer = (*RedisCache)(nil)
)
