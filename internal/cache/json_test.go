package cache_test

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-laundry/internal/cache"
)

type payload struct {
	Name string `json:"name"`
}

func TestJSONRoundTripAndExpiry(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	c := cache.NewJSON(client, time.Minute)
	ctx := context.Background()

	var got payload
	ok, err := c.Get(ctx, cache.KeySettings, &got)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, c.Set(ctx, cache.KeySettings, payload{Name: "wash"}))
	ok, err = c.Get(ctx, cache.KeySettings, &got)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "wash", got.Name)

	require.NoError(t, c.Delete(ctx, cache.KeySettings))
	ok, err = c.Get(ctx, cache.KeySettings, &got)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, c.Set(ctx, cache.KeySettings, payload{Name: "fold"}))
	mr.FastForward(2 * time.Minute)
	ok, err = c.Get(ctx, cache.KeySettings, &got)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestJSONDisabledWithoutClient(t *testing.T) {
	c := cache.NewJSON(nil, time.Minute)
	require.NoError(t, c.Set(context.Background(), "k", payload{}))
	ok, err := c.Get(context.Background(), "k", &payload{})
	require.NoError(t, err)
	require.False(t, ok)
}
