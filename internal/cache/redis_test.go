package cache

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/HaVuDong/ecome-customer-app/internal/domain"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestRedis creates a miniredis server and returns a RedisCache instance
func setupTestRedis(t *testing.T) (*RedisCache, *miniredis.Miniredis, func()) {
	mr := miniredis.RunT(t)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	cache := NewRedisCache(client)

	cleanup := func() {
		client.Close()
		mr.Close()
	}

	return cache, mr, cleanup
}

func testCart() *domain.Cart {
	return &domain.Cart{
		Items: []domain.CartItem{
			{ID: 1, Product: domain.Product{ID: 10, Price: 150_000, Stock: 5}, Quantity: 2, Selected: true},
			{ID: 2, Product: domain.Product{ID: 11, Price: 80_000, Stock: 9}, Quantity: 3},
		},
	}
}

func TestGet_Success(t *testing.T) {
	cache, mr, cleanup := setupTestRedis(t)
	defer cleanup()

	ctx := context.Background()
	userID := int64(123)

	cartJSON, _ := json.Marshal(testCart())
	mr.Set(cacheKey(userID), string(cartJSON))

	result, err := cache.Get(ctx, userID)
	require.NoError(t, err)
	assert.Len(t, result.Items, 2)
	assert.Equal(t, int64(10), result.Items[0].Product.ID)
	assert.True(t, result.Items[0].Selected)
}

func TestGet_CacheMiss(t *testing.T) {
	cache, _, cleanup := setupTestRedis(t)
	defer cleanup()

	result, err := cache.Get(context.Background(), 404)
	assert.ErrorIs(t, err, ErrCacheMiss)
	assert.Nil(t, result)
}

func TestGet_InvalidJSON(t *testing.T) {
	cache, mr, cleanup := setupTestRedis(t)
	defer cleanup()

	userID := int64(123)
	cartJSON, err := json.Marshal(testCart())
	require.NoError(t, err)
	e2 := mr.Set(cacheKey(userID), string(cartJSON[0:10]))
	require.NoError(t, e2)

	_, cacheError := cache.Get(context.Background(), userID)
	require.ErrorContains(t, cacheError, "unmarshal cart failed")
}

func TestSet_Success(t *testing.T) {
	cache, mr, cleanup := setupTestRedis(t)
	defer cleanup()

	userID := int64(456)
	err := cache.Set(context.Background(), userID, testCart())
	require.NoError(t, err)

	stored, e2 := mr.Get(cacheKey(userID))
	require.NoError(t, e2)
	assert.NotEmpty(t, stored)

	var storedCart domain.Cart
	err = json.Unmarshal([]byte(stored), &storedCart)
	require.NoError(t, err)
	assert.Len(t, storedCart.Items, 2)
}

func TestSet_WithTTL(t *testing.T) {
	cache, mr, cleanup := setupTestRedis(t)
	defer cleanup()

	userID := int64(789)
	err := cache.Set(context.Background(), userID, &domain.Cart{})
	require.NoError(t, err)

	ttl := mr.TTL(cacheKey(userID))
	assert.True(t, ttl >= 15*time.Minute, "TTL should be at least base TTL")
	assert.True(t, ttl <= 20*time.Minute, "TTL should be base + max jitter")
}

func TestDelete_Success(t *testing.T) {
	cache, mr, cleanup := setupTestRedis(t)
	defer cleanup()

	userID := int64(999)
	cartJSON, _ := json.Marshal(testCart())
	mr.Set(cacheKey(userID), string(cartJSON))
	assert.True(t, mr.Exists(cacheKey(userID)))

	err := cache.Delete(context.Background(), userID)
	require.NoError(t, err)
	assert.False(t, mr.Exists(cacheKey(userID)))
}

func TestDelete_NonExistentKey(t *testing.T) {
	cache, _, cleanup := setupTestRedis(t)
	defer cleanup()

	err := cache.Delete(context.Background(), 404)
	assert.NoError(t, err)
}

func TestCacheKey_Format(t *testing.T) {
	assert.Equal(t, "cart:123", cacheKey(123))
}
