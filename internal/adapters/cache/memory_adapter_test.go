package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carebridge/clinconsult/internal/adapters/cache"
)

func TestMemoryAdapter_SetGet(t *testing.T) {
	c := cache.NewMemoryAdapter()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", []byte("v"), 60))

	got, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)

	exists, err := c.Exists(ctx, "k")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestMemoryAdapter_Expiry(t *testing.T) {
	c := cache.NewMemoryAdapter()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", []byte("v"), 1))
	time.Sleep(1100 * time.Millisecond)

	_, err := c.Get(ctx, "k")
	require.Error(t, err)

	exists, err := c.Exists(ctx, "k")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestMemoryAdapter_Delete(t *testing.T) {
	c := cache.NewMemoryAdapter()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", []byte("v"), 60))
	require.NoError(t, c.Delete(ctx, "k"))

	_, err := c.Get(ctx, "k")
	require.Error(t, err)
}

func TestMemoryAdapter_GetReturnsCopy(t *testing.T) {
	c := cache.NewMemoryAdapter()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", []byte("abc"), 60))

	got, _ := c.Get(ctx, "k")
	got[0] = 'x'

	again, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), again)
}
