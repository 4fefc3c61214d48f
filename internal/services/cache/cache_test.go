package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCacheExpiry(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(0)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	require.NoError(t, c.Set(ctx, "short", "a", time.Minute))
	require.NoError(t, c.Set(ctx, "forever", "b", 0))

	v, ok := c.Get(ctx, "short")
	assert.True(t, ok)
	assert.Equal(t, "a", v)

	now = now.Add(time.Minute)
	_, ok = c.Get(ctx, "short")
	assert.False(t, ok, "entry expires at its deadline")

	v, ok = c.Get(ctx, "forever")
	assert.True(t, ok)
	assert.Equal(t, "b", v)
}

func TestMemoryCacheBounded(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(2)

	c.Set(ctx, "a", "1", 0)
	c.Set(ctx, "b", "2", 0)
	c.Set(ctx, "a", "updated", 0)
	assert.Equal(t, 2, c.Len(), "overwriting does not evict")

	c.Set(ctx, "c", "3", 0)
	assert.LessOrEqual(t, c.Len(), 2)
	v, ok := c.Get(ctx, "c")
	assert.True(t, ok)
	assert.Equal(t, "3", v)
}

// TestRedisCache runs against a live server when REALESTATE_TEST_REDIS is set
func TestRedisCache(t *testing.T) {
	addr := os.Getenv("REALESTATE_TEST_REDIS")
	if addr == "" {
		t.Skip("REALESTATE_TEST_REDIS not set")
	}

	ctx := context.Background()
	c := NewRedisCache(addr, "", 0, "realestate-test:")
	defer c.Close()
	require.NoError(t, c.Ping(ctx))

	require.NoError(t, c.Set(ctx, "k", "v", time.Minute))
	v, ok := c.Get(ctx, "k")
	assert.True(t, ok)
	assert.Equal(t, "v", v)

	_, ok = c.Get(ctx, "missing")
	assert.False(t, ok)
}
