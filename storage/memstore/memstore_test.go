package memstore_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/idkit/go-oidc-provider/storage"
	"github.com/idkit/go-oidc-provider/storage/memstore"
)

func TestStore_SetGetDelete(t *testing.T) {
	s := memstore.New[string]()
	defer s.Close()
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "key", "value", 0))

	got, err := s.Get(ctx, "key")
	require.NoError(t, err)
	require.Equal(t, "value", got)

	require.NoError(t, s.Delete(ctx, "key"))

	_, err = s.Get(ctx, "key")
	require.ErrorIs(t, err, storage.ErrKeyNotFound)
}

func TestStore_MissingKey(t *testing.T) {
	s := memstore.New[int]()
	defer s.Close()

	_, err := s.Get(context.Background(), "nope")
	require.ErrorIs(t, err, storage.ErrKeyNotFound)
}

func TestStore_TTLExpiry(t *testing.T) {
	s := memstore.New[string]()
	defer s.Close()
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "short", "lived", 30*time.Millisecond))
	require.NoError(t, s.Set(ctx, "forever", "kept", 0))

	_, err := s.Get(ctx, "short")
	require.NoError(t, err)

	time.Sleep(80 * time.Millisecond)

	_, err = s.Get(ctx, "short")
	require.ErrorIs(t, err, storage.ErrKeyNotFound)

	got, err := s.Get(ctx, "forever")
	require.NoError(t, err)
	require.Equal(t, "kept", got)
}

func TestStore_StructValues(t *testing.T) {
	type record struct {
		Name  string
		Count int
	}

	s := memstore.New[*record]()
	defer s.Close()
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "r", &record{Name: "a", Count: 2}, 0))

	got, err := s.Get(ctx, "r")
	require.NoError(t, err)
	require.Equal(t, &record{Name: "a", Count: 2}, got)
}
