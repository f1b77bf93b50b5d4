package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartkanban/backend/internal/domain"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *RedisCache) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, NewRedisCacheFromClient(client, "smartkanban:")
}

func TestNewRedisCache(t *testing.T) {
	mr := miniredis.RunT(t)

	c, err := NewRedisCache(context.Background(), "redis://"+mr.Addr()+"/0", "")
	require.NoError(t, err)
	require.NoError(t, c.Close())

	_, err = NewRedisCache(context.Background(), "not a url", "")
	assert.Error(t, err)
}

func TestRedisCache_Backend(t *testing.T) {
	ctx := context.Background()
	mr, c := newTestRedis(t)

	_, err := c.Get(ctx, "k")
	assert.ErrorIs(t, err, domain.ErrCacheMiss)

	require.NoError(t, c.Set(ctx, "k", []byte("v")))
	assert.True(t, mr.Exists("smartkanban:k"))
	assert.Equal(t, time.Duration(0), mr.TTL("smartkanban:k"), "no server-side expiry")

	got, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", string(got))

	got, err = c.GetDel(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", string(got))
	assert.False(t, mr.Exists("smartkanban:k"))

	_, err = c.GetDel(ctx, "k")
	assert.ErrorIs(t, err, domain.ErrCacheMiss)

	require.NoError(t, c.Delete(ctx, "k"))
}

func TestRedisCache_ProductExpiry(t *testing.T) {
	ctx := context.Background()
	mr, backend := newTestRedis(t)
	clock := &fakeClock{now: time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)}
	cache := NewProductCache(backend, nil, WithClock(clock.Now))

	pageURL := "https://shop.example/p/1"
	require.NoError(t, cache.Put(ctx, pageURL, sampleProductData()))
	assert.True(t, mr.Exists("smartkanban:cache_"+pageURL))

	clock.Advance(time.Hour)
	got, err := cache.Get(ctx, pageURL)
	require.NoError(t, err)
	assert.Equal(t, "Espresso Beans", got.TitleShort)

	clock.Advance(24 * time.Hour)
	_, err = cache.Get(ctx, pageURL)
	assert.ErrorIs(t, err, domain.ErrCacheMiss)
	assert.False(t, mr.Exists("smartkanban:cache_"+pageURL))
}

func TestRedisCache_PrintStore(t *testing.T) {
	ctx := context.Background()
	_, backend := newTestRedis(t)
	store := NewPrintStore(backend)

	require.NoError(t, store.Put(ctx, &domain.PrintData{NormalizedRecord: domain.NormalizedRecord{TitleShort: "Tape"}}))

	got, err := store.Take(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Tape", got.TitleShort)

	_, err = store.Take(ctx)
	assert.ErrorIs(t, err, domain.ErrPrintDataNotFound)
}
