package redis

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/reviewregistry/internal/domain"
)

func setupStore(t *testing.T) (*TokenStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewTokenStore(client), mr
}

func TestTokenStore_PutThenVerify(t *testing.T) {
	store, mr := setupStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, domain.PurchaseToken{ID: 7, Owner: "alice", Valid: true}))

	assert.Equal(t, "alice", mr.HGet("purchase_token:7", "owner"))
	assert.Equal(t, "1", mr.HGet("purchase_token:7", "valid"))

	ok, err := store.Verify(ctx, 7, "alice")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.Verify(ctx, 7, "bob")
	require.NoError(t, err)
	assert.False(t, ok, "token owned by someone else")
}

func TestTokenStore_VerifyUnknownToken(t *testing.T) {
	store, _ := setupStore(t)

	ok, err := store.Verify(context.Background(), 99, "alice")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTokenStore_EmptyPrincipalNeverMatchesMissingOwner(t *testing.T) {
	store, mr := setupStore(t)
	mr.HSet("purchase_token:3", "valid", "1")

	ok, err := store.Verify(context.Background(), 3, "")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTokenStore_Invalidate(t *testing.T) {
	store, mr := setupStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, domain.PurchaseToken{ID: 1, Owner: "alice", Valid: true}))
	require.NoError(t, store.Invalidate(ctx, 1))

	assert.Equal(t, "0", mr.HGet("purchase_token:1", "valid"))
	ok, err := store.Verify(ctx, 1, "alice")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTokenStore_InvalidateUnknownLeavesTombstone(t *testing.T) {
	store, mr := setupStore(t)
	ctx := context.Background()

	require.NoError(t, store.Invalidate(ctx, 42))
	assert.Equal(t, "0", mr.HGet("purchase_token:42", "valid"))
	assert.Empty(t, mr.HGet("purchase_token:42", "owner"))

	require.NoError(t, store.Put(ctx, domain.PurchaseToken{ID: 42, Owner: "alice", Valid: true}))
	assert.Equal(t, "alice", mr.HGet("purchase_token:42", "owner"))
	assert.Equal(t, "0", mr.HGet("purchase_token:42", "valid"))

	ok, err := store.Verify(ctx, 42, "alice")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTokenStore_ConnectionError(t *testing.T) {
	store, mr := setupStore(t)
	mr.Close()

	_, err := store.Verify(context.Background(), 1, "alice")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis hmget token 1")
	assert.False(t, domain.IsRejection(err))

	assert.Error(t, store.Ping(context.Background()))
}
