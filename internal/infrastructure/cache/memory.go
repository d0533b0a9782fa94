package cache

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/kFady/stereo-site-1/internal/infrastructure/monitoring/logging"
	"github.com/kFady/stereo-site-1/pkg/errors"
)

// memoryCache is the in-process tier: a bounded LRU holding serialized
// entries.  Values are stored as bytes so both tiers share one wire format
// and Get always hands the caller a private copy.
type memoryCache struct {
	lru          *lru.Cache[string, []byte]
	serializer   Serializer
	logger       logging.Logger
	singleflight singleflight.Group
}

// MemoryOption configures a memory cache.
type MemoryOption func(*memoryCache)

// WithMemorySerializer overrides the JSON serializer.
func WithMemorySerializer(s Serializer) MemoryOption {
	return func(c *memoryCache) { c.serializer = s }
}

// NewMemoryCache builds an LRU-bounded in-process ResultCache.
func NewMemoryCache(maxEntries int, log logging.Logger, opts ...MemoryOption) (ResultCache, error) {
	if maxEntries < 1 {
		return nil, errors.InvalidParam("cache: maxEntries must be >= 1")
	}
	l, err := lru.New[string, []byte](maxEntries)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeCacheError, "cache: failed to build LRU")
	}
	c := &memoryCache{
		lru:        l,
		serializer: jsonSerializer{},
		logger:     log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *memoryCache) Get(_ context.Context, key string, dest interface{}) error {
	data, ok := c.lru.Get(key)
	if !ok {
		return ErrCacheMiss
	}
	if err := c.serializer.Unmarshal(data, dest); err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "cache: failed to decode entry")
	}
	return nil
}

func (c *memoryCache) Set(_ context.Context, key string, value interface{}) error {
	data, err := c.serializer.Marshal(value)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "cache: failed to encode entry")
	}
	c.lru.Add(key, data)
	return nil
}

func (c *memoryCache) Delete(_ context.Context, keys ...string) error {
	for _, k := range keys {
		c.lru.Remove(k)
	}
	return nil
}

func (c *memoryCache) Clear(_ context.Context) error {
	c.lru.Purge()
	return nil
}

func (c *memoryCache) GetOrSet(ctx context.Context, key string, dest interface{}, loader func(ctx context.Context) (interface{}, error)) error {
	if err := c.Get(ctx, key, dest); err == nil {
		return nil
	} else if !errors.IsCode(err, errors.ErrCodeNotFound) {
		return err
	}

	val, err, _ := c.singleflight.Do(key, func() (interface{}, error) {
		// Re-check: a concurrent caller may have populated the entry while
		// this goroutine waited on the flight group.
		if data, ok := c.lru.Get(key); ok {
			return data, nil
		}
		v, loadErr := loader(ctx)
		if loadErr != nil {
			return nil, loadErr
		}
		data, mErr := c.serializer.Marshal(v)
		if mErr != nil {
			return nil, errors.Wrap(mErr, errors.ErrCodeSerialization, "cache: failed to encode loaded value")
		}
		c.lru.Add(key, data)
		return data, nil
	})
	if err != nil {
		return err
	}
	return c.serializer.Unmarshal(val.([]byte), dest)
}

func (c *memoryCache) Len(_ context.Context) (int, error) {
	return c.lru.Len(), nil
}
