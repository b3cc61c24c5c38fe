package shared

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestIdempotencyStoreRejectsDuplicates(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewIdempotencyStore(client, time.Minute)
	ctx := context.Background()

	require.NoError(t, store.CheckAndInsert(ctx, "abc", "payments"))
	require.ErrorIs(t, store.CheckAndInsert(ctx, "abc", "payments"), ErrIdempotencyConflict)
	require.NoError(t, store.CheckAndInsert(ctx, "abc", "other"))

	require.NoError(t, store.Delete(ctx, "abc", "payments"))
	require.NoError(t, store.CheckAndInsert(ctx, "abc", "payments"))

	mr.FastForward(2 * time.Minute)
	require.NoError(t, store.CheckAndInsert(ctx, "abc", "payments"))
}

func TestIdempotencyStoreArguments(t *testing.T) {
	var nilStore *IdempotencyStore
	require.Error(t, nilStore.CheckAndInsert(context.Background(), "k", "m"))
	require.NoError(t, nilStore.Delete(context.Background(), "k", "m"))

	mr := miniredis.RunT(t)
	store := NewIdempotencyStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}), 0)
	require.Error(t, store.CheckAndInsert(context.Background(), "", "m"))
	require.Error(t, store.CheckAndInsert(context.Background(), "k", ""))
}
