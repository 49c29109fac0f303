package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tm-acme-shop/acme-shop-fulfillment-service/internal/models"
)

func setupTestCache(t *testing.T) (*RedisOrderCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisOrderCacheWithClient(client, time.Minute), mr
}

func TestRedisOrderCache_SetGet(t *testing.T) {
	cache, mr := setupTestCache(t)
	ctx := context.Background()

	order := &models.Order{
		ID:         42,
		UserID:     1,
		Status:     models.OrderStatusPending,
		OrderTotal: decimal.RequireFromString("51.98"),
		Lines: []models.OrderLine{
			{ID: 1, OrderID: 42, ProductItemID: 123, Quantity: 2, Price: decimal.RequireFromString("25.99")},
		},
	}
	require.NoError(t, cache.Set(ctx, order))

	assert.True(t, mr.Exists("order:42"))
	assert.Equal(t, time.Minute, mr.TTL("order:42"))

	got, err := cache.Get(ctx, 42)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, int64(1), got.UserID)
	assert.True(t, got.CalculatedTotal().Equal(decimal.RequireFromString("51.98")))
}

func TestRedisOrderCache_Miss(t *testing.T) {
	cache, _ := setupTestCache(t)

	got, err := cache.Get(context.Background(), 7)

	assert.NoError(t, err)
	assert.Nil(t, got)
}

func TestRedisOrderCache_Delete(t *testing.T) {
	cache, mr := setupTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, &models.Order{ID: 5}))
	require.NoError(t, cache.Delete(ctx, 5))

	assert.False(t, mr.Exists("order:5"))
}

func TestRedisOrderCache_InvalidJSON(t *testing.T) {
	cache, mr := setupTestCache(t)
	mr.HSet("order:9", "order", "{not json")

	_, err := cache.Get(context.Background(), 9)

	assert.Error(t, err)
}

func TestRedisOrderCache_SetKeepsNewerVersion(t *testing.T) {
	cache, mr := setupTestCache(t)
	ctx := context.Background()
	read := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	older := &models.Order{ID: 11, Status: models.OrderStatusPending, UpdatedAt: read}
	newer := &models.Order{ID: 11, Status: models.OrderStatusCancelled, UpdatedAt: read.Add(time.Second)}

	require.NoError(t, cache.Set(ctx, newer))
	require.NoError(t, cache.Set(ctx, older))

	got, err := cache.Get(ctx, 11)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, models.OrderStatusCancelled, got.Status)
	assert.Equal(t, time.Minute, mr.TTL("order:11"))

	newest := &models.Order{ID: 11, Status: models.OrderStatusCancelled, UpdatedAt: read.Add(time.Minute)}
	require.NoError(t, cache.Set(ctx, newest))
	got, err = cache.Get(ctx, 11)
	require.NoError(t, err)
	assert.True(t, newest.UpdatedAt.Equal(got.UpdatedAt))
}

func TestNewRedisOrderCacheWithClient_DefaultTTL(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	cache := NewRedisOrderCacheWithClient(client, 0)

	assert.Equal(t, defaultCacheTTL, cache.ttl)
	assert.NoError(t, cache.Ping(context.Background()))
}
