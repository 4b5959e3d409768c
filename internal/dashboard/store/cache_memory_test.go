package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rctrack/internal/dashboard/models"
)

func TestMemoryCache(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(time.Minute)
	want := models.Stats{TotalRC: 4, TotalTransferred: 1, TotalFeesPaid: 2, TotalPendingTransfer: 3}

	_, err := c.Get(ctx, "all")
	assert.True(t, errors.Is(err, ErrCacheMiss))

	v, err := c.Version(ctx, "all")
	require.NoError(t, err)
	require.NoError(t, c.SetIfVersion(ctx, "all", v, want))
	got, err := c.Get(ctx, "all")
	require.NoError(t, err)
	assert.Equal(t, want, got)

	require.NoError(t, c.Invalidate(ctx, "all", "owner:missing"))
	_, err = c.Get(ctx, "all")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMemoryCacheRejectsStaleWrite(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(time.Minute)

	before, err := c.Version(ctx, "owner:a")
	require.NoError(t, err)
	require.NoError(t, c.Invalidate(ctx, "owner:a"))

	err = c.SetIfVersion(ctx, "owner:a", before, models.Stats{TotalRC: 1})
	assert.ErrorIs(t, err, ErrStaleVersion)
	_, err = c.Get(ctx, "owner:a")
	assert.ErrorIs(t, err, ErrCacheMiss, "stale stats are not stored")

	after, err := c.Version(ctx, "owner:a")
	require.NoError(t, err)
	assert.Greater(t, after, before)
	require.NoError(t, c.SetIfVersion(ctx, "owner:a", after, models.Stats{TotalRC: 2}))

	other, err := c.Version(ctx, "all")
	require.NoError(t, err)
	assert.Zero(t, other, "invalidation is per key")
}

func TestMemoryCacheConcurrentInvalidation(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(time.Minute)

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, _ := c.Version(ctx, "all")
			_ = c.SetIfVersion(ctx, "all", v, models.Stats{TotalRC: i})
			_ = c.Invalidate(ctx, "all")
		}()
	}
	wg.Wait()

	_, err := c.Get(ctx, "all")
	assert.ErrorIs(t, err, ErrCacheMiss, "every write was followed by an invalidation")
}

func TestMemoryCacheExpires(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(20 * time.Millisecond)
	require.NoError(t, c.SetIfVersion(ctx, "all", 0, models.Stats{TotalRC: 1}))

	assert.Eventually(t, func() bool {
		_, err := c.Get(ctx, "all")
		return errors.Is(err, ErrCacheMiss)
	}, time.Second, 10*time.Millisecond)
}
