// Package cache provides the session-scoped result cache used by the
// resolution/analysis orchestrator.  Two tiers implement the same interface:
// an in-process LRU (always on) and an optional Redis tier for deployments
// that share results across replicas.
package cache

import (
	"context"
	"encoding/json"

	"github.com/kFady/stereo-site-1/pkg/errors"
)

// ErrCacheMiss is returned by Get when the key is absent.
var ErrCacheMiss = errors.New(errors.ErrCodeNotFound, "cache miss")

// ResultCache is the contract both cache tiers satisfy.  Entries live for
// the cache's lifetime; eviction is capacity-driven (LRU), not time-driven.
type ResultCache interface {
	// Get unmarshals the cached value for key into dest.
	// Returns ErrCacheMiss when absent.
	Get(ctx context.Context, key string, dest interface{}) error

	// Set stores value under key, replacing any existing entry.
	Set(ctx context.Context, key string, value interface{}) error

	// Delete removes the given keys; missing keys are ignored.
	Delete(ctx context.Context, keys ...string) error

	// Clear empties the cache.
	Clear(ctx context.Context) error

	// GetOrSet returns the cached value or runs loader exactly once per key
	// across concurrent callers, caching and returning its result.
	GetOrSet(ctx context.Context, key string, dest interface{}, loader func(ctx context.Context) (interface{}, error)) error

	// Len reports the current number of entries.
	Len(ctx context.Context) (int, error)
}

// Serializer converts cached values to and from bytes.  JSON is the default;
// the indirection exists so tests can inject failure modes.
type Serializer interface {
	Marshal(v interface{}) ([]byte, error)
	Unmarshal(data []byte, v interface{}) error
}

type jsonSerializer struct{}

func (jsonSerializer) Marshal(v interface{}) ([]byte, error)      { return json.Marshal(v) }
func (jsonSerializer) Unmarshal(data []byte, v interface{}) error { return json.Unmarshal(data, v) }
