package redisstore_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/idkit/go-oidc-provider/storage"
	"github.com/idkit/go-oidc-provider/storage/redisstore"
)

func setupRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestStore_SetGetDelete(t *testing.T) {
	_, client := setupRedis(t)
	s := redisstore.New[string](client, "test")
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "key", "value", 0))

	got, err := s.Get(ctx, "key")
	require.NoError(t, err)
	require.Equal(t, "value", got)

	require.NoError(t, s.Delete(ctx, "key"))

	_, err = s.Get(ctx, "key")
	require.ErrorIs(t, err, storage.ErrKeyNotFound)
}

func TestStore_TTLExpiry(t *testing.T) {
	mr, client := setupRedis(t)
	s := redisstore.New[string](client, "test")
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "short", "lived", time.Minute))

	mr.FastForward(2 * time.Minute)

	_, err := s.Get(ctx, "short")
	require.ErrorIs(t, err, storage.ErrKeyNotFound)
}

func TestStore_PrefixesIsolateStores(t *testing.T) {
	_, client := setupRedis(t)
	a := redisstore.New[string](client, "a")
	b := redisstore.New[string](client, "b")
	ctx := context.Background()

	require.NoError(t, a.Set(ctx, "key", "from-a", 0))

	_, err := b.Get(ctx, "key")
	require.ErrorIs(t, err, storage.ErrKeyNotFound)
}

func TestStore_JSONRoundTrip(t *testing.T) {
	type record struct {
		Name   string    `json:"name"`
		Expiry time.Time `json:"expiry"`
	}

	_, client := setupRedis(t)
	s := redisstore.New[*record](client, "test")
	ctx := context.Background()

	want := &record{Name: "a", Expiry: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	require.NoError(t, s.Set(ctx, "r", want, 0))

	got, err := s.Get(ctx, "r")
	require.NoError(t, err)
	require.Equal(t, want, got)
}
