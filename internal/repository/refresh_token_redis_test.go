package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedisStore(t *testing.T) (*redisRefreshTokenStore, *miniredis.Miniredis, *time.Time) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	current := time.Now()
	store := &redisRefreshTokenStore{
		client: client,
		now:    func() time.Time { return current },
	}
	return store, mr, &current
}

func TestRedisRefreshTokenStore_AddContainsRemove(t *testing.T) {
	store, _, _ := newTestRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.Add(ctx, "acct-1", "fp-one", time.Hour))
	require.NoError(t, store.Add(ctx, "acct-1", "fp-two", time.Hour))
	require.NoError(t, store.Add(ctx, "acct-2", "fp-one", time.Hour))

	found, err := store.Contains(ctx, "acct-1", "fp-one")
	require.NoError(t, err)
	assert.True(t, found)

	// Fingerprints are scoped per account.
	found, err = store.Contains(ctx, "acct-2", "fp-two")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, store.Remove(ctx, "acct-1", "fp-one"))
	found, err = store.Contains(ctx, "acct-1", "fp-one")
	require.NoError(t, err)
	assert.False(t, found)

	active, err := store.ListActive(ctx, "acct-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"fp-two"}, active)
}

func TestRedisRefreshTokenStore_RemoveIdempotent(t *testing.T) {
	store, _, _ := newTestRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.Remove(ctx, "acct-1", "never-added"))

	require.NoError(t, store.Add(ctx, "acct-1", "fp-one", time.Hour))
	require.NoError(t, store.Remove(ctx, "acct-1", "fp-one"))
	require.NoError(t, store.Remove(ctx, "acct-1", "fp-one"))
}

func TestRedisRefreshTokenStore_RemoveAll(t *testing.T) {
	store, _, _ := newTestRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.Add(ctx, "acct-1", "fp-one", time.Hour))
	require.NoError(t, store.Add(ctx, "acct-1", "fp-two", time.Hour))
	require.NoError(t, store.Add(ctx, "acct-2", "fp-three", time.Hour))

	require.NoError(t, store.RemoveAll(ctx, "acct-1"))

	active, err := store.ListActive(ctx, "acct-1")
	require.NoError(t, err)
	assert.Empty(t, active)

	// Other accounts keep their sessions.
	found, err := store.Contains(ctx, "acct-2", "fp-three")
	require.NoError(t, err)
	assert.True(t, found)
}

func TestRedisRefreshTokenStore_LazyExpiry(t *testing.T) {
	store, _, current := newTestRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.Add(ctx, "acct-1", "short", time.Minute))
	require.NoError(t, store.Add(ctx, "acct-1", "long", time.Hour))

	*current = current.Add(2 * time.Minute)

	found, err := store.Contains(ctx, "acct-1", "short")
	require.NoError(t, err)
	assert.False(t, found)

	// The expired member was pruned from the set, not just filtered.
	members, err := store.client.SMembers(ctx, refreshKey("acct-1")).Result()
	require.NoError(t, err)
	assert.Len(t, members, 1)

	active, err := store.ListActive(ctx, "acct-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"long"}, active)
}

func TestRedisRefreshTokenStore_PrunesMalformedMembers(t *testing.T) {
	store, _, _ := newTestRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.Add(ctx, "acct-1", "fp-one", time.Hour))
	require.NoError(t, store.client.SAdd(ctx, refreshKey("acct-1"), "garbage-without-expiry").Err())

	found, err := store.Contains(ctx, "acct-1", "fp-one")
	require.NoError(t, err)
	assert.True(t, found)

	members, err := store.client.SMembers(ctx, refreshKey("acct-1")).Result()
	require.NoError(t, err)
	assert.Len(t, members, 1)
}

func TestRedisRefreshTokenStore_KeyCarriesTTL(t *testing.T) {
	store, mr, _ := newTestRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.Add(ctx, "acct-1", "fp-one", time.Hour))
	assert.Greater(t, mr.TTL(refreshKey("acct-1")), time.Duration(0))

	// The whole set ages out with the newest credential.
	mr.FastForward(2 * time.Hour)
	assert.False(t, mr.Exists(refreshKey("acct-1")))
}
