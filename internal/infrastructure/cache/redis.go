package cache

import (
	"context"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/kFady/stereo-site-1/internal/config"
	"github.com/kFady/stereo-site-1/internal/infrastructure/monitoring/logging"
	"github.com/kFady/stereo-site-1/pkg/errors"
)

// NewRedisClient builds and pings a go-redis client from configuration.
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeCacheError, "cache: redis ping failed")
	}
	return client, nil
}

// redisCache is the shared tier.  Unlike the in-process tier, entries carry a
// long TTL (with jitter so a replica restart does not expire everything at
// once) because a shared Redis cannot grow without bound.
type redisCache struct {
	client       *redis.Client
	logger       logging.Logger
	prefix       string
	defaultTTL   time.Duration
	serializer   Serializer
	singleflight singleflight.Group
}

// RedisOption configures a redis cache.
type RedisOption func(*redisCache)

// WithPrefix sets the key namespace prefix.
func WithPrefix(prefix string) RedisOption {
	return func(c *redisCache) { c.prefix = prefix }
}

// WithDefaultTTL sets the entry lifetime.
func WithDefaultTTL(ttl time.Duration) RedisOption {
	return func(c *redisCache) { c.defaultTTL = ttl }
}

// WithRedisSerializer overrides the JSON serializer.
func WithRedisSerializer(s Serializer) RedisOption {
	return func(c *redisCache) { c.serializer = s }
}

// NewRedisCache builds the Redis-backed ResultCache tier.
func NewRedisCache(client *redis.Client, log logging.Logger, opts ...RedisOption) ResultCache {
	c := &redisCache{
		client:     client,
		logger:     log,
		prefix:     "stereo:",
		defaultTTL: 24 * time.Hour,
		serializer: jsonSerializer{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *redisCache) fullKey(key string) string {
	return c.prefix + key
}

// jitterTTL spreads expiry by +/- 10%.
func (c *redisCache) jitterTTL(ttl time.Duration) time.Duration {
	if ttl == 0 {
		return 0
	}
	jitter := float64(ttl) * 0.1 * (rand.Float64()*2 - 1)
	return ttl + time.Duration(jitter)
}

func (c *redisCache) Get(ctx context.Context, key string, dest interface{}) error {
	data, err := c.client.Get(ctx, c.fullKey(key)).Bytes()
	if err == redis.Nil {
		return ErrCacheMiss
	}
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheError, "cache: redis get failed")
	}
	if err := c.serializer.Unmarshal(data, dest); err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "cache: failed to decode entry")
	}
	return nil
}

func (c *redisCache) Set(ctx context.Context, key string, value interface{}) error {
	data, err := c.serializer.Marshal(value)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "cache: failed to encode entry")
	}
	return c.client.Set(ctx, c.fullKey(key), data, c.jitterTTL(c.defaultTTL)).Err()
}

func (c *redisCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	fullKeys := make([]string, len(keys))
	for i, k := range keys {
		fullKeys[i] = c.fullKey(k)
	}
	return c.client.Del(ctx, fullKeys...).Err()
}

// Clear scans and deletes only keys under this cache's prefix so that an
// editor "clear results" action cannot wipe unrelated tenants of the
// same Redis.
func (c *redisCache) Clear(ctx context.Context) error {
	var cursor uint64
	match := c.prefix + "*"
	for {
		keys, nextCursor, err := c.client.Scan(ctx, cursor, match, 100).Result()
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeCacheError, "cache: redis scan failed")
		}
		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				return errors.Wrap(err, errors.ErrCodeCacheError, "cache: redis delete failed")
			}
		}
		cursor = nextCursor
		if cursor == 0 {
			return nil
		}
	}
}

func (c *redisCache) GetOrSet(ctx context.Context, key string, dest interface{}, loader func(ctx context.Context) (interface{}, error)) error {
	if err := c.Get(ctx, key, dest); err == nil {
		return nil
	} else if !errors.IsCode(err, errors.ErrCodeNotFound) {
		return err
	}

	val, err, _ := c.singleflight.Do(key, func() (interface{}, error) {
		v, loadErr := loader(ctx)
		if loadErr != nil {
			return nil, loadErr
		}
		if setErr := c.Set(ctx, key, v); setErr != nil {
			c.logger.Warn("cache: failed to store loaded value", logging.String("key", key), logging.Err(setErr))
		}
		return c.serializer.Marshal(v)
	})
	if err != nil {
		return err
	}
	data, _ := val.([]byte)
	return c.serializer.Unmarshal(data, dest)
}

func (c *redisCache) Len(ctx context.Context) (int, error) {
	var count int
	var cursor uint64
	for {
		keys, nextCursor, err := c.client.Scan(ctx, cursor, c.prefix+"*", 100).Result()
		if err != nil {
			return 0, errors.Wrap(err, errors.ErrCodeCacheError, "cache: redis scan failed")
		}
		count += len(keys)
		cursor = nextCursor
		if cursor == 0 {
			return count, nil
		}
	}
}
