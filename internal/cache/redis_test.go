package cache

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/Themagician24/neo-kora/internal/domain"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestCache(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisCache(client), mr
}

func sampleCart(sessionID string) *domain.Cart {
	shipping := 4.9
	return &domain.Cart{
		SessionID: sessionID,
		Items: []domain.LineItem{
			{
				ClientID:     "ci-1",
				ProductID:    "p1",
				Name:         "Test p1",
				Slug:         "test-p1",
				Price:        19.99,
				Quantity:     2,
				CountInStock: 5,
			},
		},
		ItemsPrice:    39.98,
		ShippingPrice: &shipping,
		TaxPrice:      6.0,
		TotalPrice:    50.88,
		PaymentMethod: "PayPal",
	}
}

func TestRedisCache_GetMiss(t *testing.T) {
	c, _ := setupTestCache(t)

	cart, err := c.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrCacheMiss)
	assert.Nil(t, cart)
}

func TestRedisCache_SetThenGet(t *testing.T) {
	c, _ := setupTestCache(t)
	ctx := context.Background()

	want := sampleCart("sess-1")
	require.NoError(t, c.Set(ctx, "sess-1", want))

	got, err := c.Get(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, "sess-1", got.SessionID)
	assert.Equal(t, want.Items, got.Items)
	assert.Equal(t, want.ItemsPrice, got.ItemsPrice)
	require.NotNil(t, got.ShippingPrice)
	assert.Equal(t, *want.ShippingPrice, *got.ShippingPrice)
	assert.Equal(t, want.TotalPrice, got.TotalPrice)
	assert.Equal(t, want.PaymentMethod, got.PaymentMethod)
}

func TestRedisCache_SessionIDNotTrustedFromPayload(t *testing.T) {
	c, mr := setupTestCache(t)

	// SessionID is never serialized; Get stamps the requested one back on.
	data, err := json.Marshal(sampleCart("whatever"))
	require.NoError(t, err)
	assert.NotContains(t, string(data), "whatever")
	require.NoError(t, mr.Set("cart:sess-9", string(data)))

	got, err := c.Get(context.Background(), "sess-9")
	require.NoError(t, err)
	assert.Equal(t, "sess-9", got.SessionID)
}

func TestRedisCache_GetInvalidJSON(t *testing.T) {
	c, mr := setupTestCache(t)
	require.NoError(t, mr.Set("cart:sess-1", "{not json"))

	cart, err := c.Get(context.Background(), "sess-1")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrCacheMiss)
	assert.Nil(t, cart)
}

func TestRedisCache_SetAppliesTTLWithJitter(t *testing.T) {
	c, mr := setupTestCache(t)

	require.NoError(t, c.Set(context.Background(), "sess-1", sampleCart("sess-1")))

	ttl := mr.TTL("cart:sess-1")
	assert.GreaterOrEqual(t, ttl, 15*time.Minute)
	assert.LessOrEqual(t, ttl, 20*time.Minute)
}

func TestRedisCache_Delete(t *testing.T) {
	c, mr := setupTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "sess-1", sampleCart("sess-1")))
	require.NoError(t, c.Delete(ctx, "sess-1"))

	assert.False(t, mr.Exists("cart:sess-1"))
	_, err := c.Get(ctx, "sess-1")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestRedisCache_DeleteMissingKeyIsNoop(t *testing.T) {
	c, _ := setupTestCache(t)

	assert.NoError(t, c.Delete(context.Background(), "never-set"))
}

func TestRedisCache_GetAfterServerGone(t *testing.T) {
	c, mr := setupTestCache(t)
	mr.Close()

	_, err := c.Get(context.Background(), "sess-1")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrCacheMiss)
}
