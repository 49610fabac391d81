package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type entry struct {
	SKU      string `json:"sku"`
	Quantity int    `json:"quantity"`
}

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := Connect(context.Background(), mr.Addr(), "", 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return New(client, time.Minute), mr
}

func set(t *testing.T, c *Cache, key string, value interface{}) {
	t.Helper()
	ctx := context.Background()
	gen, err := c.Generation(ctx)
	require.NoError(t, err)
	stored, err := c.SetJSONIfGeneration(ctx, key, gen, value)
	require.NoError(t, err)
	require.True(t, stored)
}

func TestCache_GetSet(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()
	key := VariantKey(uuid.New())

	var got entry
	hit, err := c.GetJSON(ctx, key, &got)
	require.NoError(t, err)
	assert.False(t, hit)

	set(t, c, key, entry{SKU: "A-1", Quantity: 3})
	hit, err = c.GetJSON(ctx, key, &got)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, entry{SKU: "A-1", Quantity: 3}, got)

	mr.FastForward(2 * time.Minute)
	hit, err = c.GetJSON(ctx, key, &got)
	require.NoError(t, err)
	assert.False(t, hit, "entries expire after the ttl")
}

func TestCache_InvalidateVariants(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()
	a, b := uuid.New(), uuid.New()

	set(t, c, VariantKey(a), entry{SKU: "A"})
	set(t, c, VariantKey(b), entry{SKU: "B"})
	set(t, c, SummaryKey("category_name,brand_name,color"), map[string]int{})

	require.NoError(t, c.InvalidateVariants(ctx, a))

	assert.False(t, mr.Exists(VariantKey(a)))
	assert.True(t, mr.Exists(VariantKey(b)))
	assert.False(t, mr.Exists(SummaryKey("category_name,brand_name,color")))

	require.NoError(t, c.InvalidateCatalog(ctx))
	assert.False(t, mr.Exists(VariantKey(b)))
}

func TestCache_FillAfterInvalidationIsDropped(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()
	id := uuid.New()

	// a reader loads the row before a stock batch commits
	gen, err := c.Generation(ctx)
	require.NoError(t, err)
	stale := entry{SKU: "A", Quantity: 10}

	// the batch commits and invalidates
	require.NoError(t, c.InvalidateVariants(ctx, id))

	stored, err := c.SetJSONIfGeneration(ctx, VariantKey(id), gen, stale)
	require.NoError(t, err)
	assert.False(t, stored)
	assert.False(t, mr.Exists(VariantKey(id)))

	// a reader that starts after the invalidation may fill
	gen, err = c.Generation(ctx)
	require.NoError(t, err)
	stored, err = c.SetJSONIfGeneration(ctx, VariantKey(id), gen, entry{SKU: "A", Quantity: 7})
	require.NoError(t, err)
	assert.True(t, stored)

	require.NoError(t, c.InvalidateCatalog(ctx))
	stored, err = c.SetJSONIfGeneration(ctx, VariantKey(id), gen, entry{SKU: "A", Quantity: 7})
	require.NoError(t, err)
	assert.False(t, stored)
}

func TestCache_NilIsNoop(t *testing.T) {
	var c *Cache
	ctx := context.Background()

	assert.Nil(t, New(nil, time.Minute))
	hit, err := c.GetJSON(ctx, "k", &entry{})
	assert.NoError(t, err)
	assert.False(t, hit)
	gen, err := c.Generation(ctx)
	assert.NoError(t, err)
	stored, err := c.SetJSONIfGeneration(ctx, "k", gen, entry{})
	assert.NoError(t, err)
	assert.False(t, stored)
	assert.NoError(t, c.InvalidateVariants(ctx, uuid.New()))
	assert.NoError(t, c.InvalidateCatalog(ctx))
	assert.NoError(t, c.Ping(ctx))
}

func TestConnect_Unreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err := Connect(ctx, "127.0.0.1:1", "", 0)
	assert.Error(t, err)
}
