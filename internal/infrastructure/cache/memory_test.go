package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kFady/stereo-site-1/internal/infrastructure/monitoring/logging"
	"github.com/kFady/stereo-site-1/pkg/errors"
)

type payload struct {
	SMILES   string `json:"smiles"`
	Degraded bool   `json:"degraded"`
}

func newMemory(t *testing.T, size int) ResultCache {
	t.Helper()
	c, err := NewMemoryCache(size, logging.NewNopLogger())
	require.NoError(t, err)
	return c
}

func TestMemoryCache_SetGet(t *testing.T) {
	ctx := context.Background()
	c := newMemory(t, 8)

	require.NoError(t, c.Set(ctx, "aspirin", payload{SMILES: "CC(=O)OC1=CC=CC=C1C(=O)O"}))

	var got payload
	require.NoError(t, c.Get(ctx, "aspirin", &got))
	assert.Equal(t, "CC(=O)OC1=CC=CC=C1C(=O)O", got.SMILES)
}

func TestMemoryCache_MissAndDelete(t *testing.T) {
	ctx := context.Background()
	c := newMemory(t, 8)

	var got payload
	err := c.Get(ctx, "absent", &got)
	assert.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, c.Set(ctx, "k", payload{}))
	require.NoError(t, c.Delete(ctx, "k", "never-existed"))
	assert.ErrorIs(t, c.Get(ctx, "k", &got), ErrCacheMiss)
}

func TestMemoryCache_Clear(t *testing.T) {
	ctx := context.Background()
	c := newMemory(t, 8)
	require.NoError(t, c.Set(ctx, "a", payload{}))
	require.NoError(t, c.Set(ctx, "b", payload{}))

	require.NoError(t, c.Clear(ctx))
	n, err := c.Len(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestMemoryCache_EvictsBeyondCapacity(t *testing.T) {
	ctx := context.Background()
	c := newMemory(t, 2)
	require.NoError(t, c.Set(ctx, "a", payload{}))
	require.NoError(t, c.Set(ctx, "b", payload{}))
	require.NoError(t, c.Set(ctx, "c", payload{}))

	n, err := c.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	var got payload
	assert.ErrorIs(t, c.Get(ctx, "a", &got), ErrCacheMiss)
}

func TestMemoryCache_GetOrSet_SingleLoad(t *testing.T) {
	ctx := context.Background()
	c := newMemory(t, 8)

	var loads atomic.Int64
	loader := func(context.Context) (interface{}, error) {
		loads.Add(1)
		return payload{SMILES: "CCO"}, nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var got payload
			require.NoError(t, c.GetOrSet(ctx, "ethanol", &got, loader))
			assert.Equal(t, "CCO", got.SMILES)
		}()
	}
	wg.Wait()
	assert.LessOrEqual(t, loads.Load(), int64(2))

	// Subsequent call is a pure hit.
	var got payload
	require.NoError(t, c.GetOrSet(ctx, "ethanol", &got, loader))
}

func TestMemoryCache_GetOrSet_LoaderError(t *testing.T) {
	ctx := context.Background()
	c := newMemory(t, 8)

	wantErr := errors.Unavailable("upstream down")
	var got payload
	err := c.GetOrSet(ctx, "k", &got, func(context.Context) (interface{}, error) {
		return nil, wantErr
	})
	assert.True(t, errors.IsCode(err, errors.ErrCodeProviderUnavailable))

	// Errors are not cached.
	n, lenErr := c.Len(ctx)
	require.NoError(t, lenErr)
	assert.Zero(t, n)
}

func TestNewMemoryCache_RejectsZeroSize(t *testing.T) {
	_, err := NewMemoryCache(0, logging.NewNopLogger())
	assert.Error(t, err)
}
