package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/reviewregistry/internal/domain"
)

func TestTokenStore_Verify(t *testing.T) {
	ctx := context.Background()
	s := NewTokenStore()
	require.NoError(t, s.Put(ctx, domain.PurchaseToken{ID: 1, Owner: "alice", Valid: true}))
	require.NoError(t, s.Put(ctx, domain.PurchaseToken{ID: 2, Owner: "alice", Valid: false}))

	tests := []struct {
		name      string
		tokenID   uint64
		principal string
		want      bool
	}{
		{"valid and owned", 1, "alice", true},
		{"wrong owner", 1, "bob", false},
		{"invalid token", 2, "alice", false},
		{"unknown token", 99, "alice", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := s.Verify(ctx, tt.tokenID, tt.principal)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
		})
	}
}

func TestTokenStore_Invalidate(t *testing.T) {
	ctx := context.Background()
	s := NewTokenStore()
	require.NoError(t, s.Put(ctx, domain.PurchaseToken{ID: 1, Owner: "alice", Valid: true}))

	require.NoError(t, s.Invalidate(ctx, 1))
	require.NoError(t, s.Invalidate(ctx, 42))

	ok, err := s.Verify(ctx, 1, "alice")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTokenStore_InvalidationIsSticky(t *testing.T) {
	ctx := context.Background()
	s := NewTokenStore()

	require.NoError(t, s.Invalidate(ctx, 9))
	require.NoError(t, s.Put(ctx, domain.PurchaseToken{ID: 9, Owner: "alice", Valid: true}))

	ok, err := s.Verify(ctx, 9, "alice")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBusinessSet(t *testing.T) {
	ctx := context.Background()
	s := NewBusinessSet(7)
	s.Register(8)

	for id, want := range map[uint64]bool{7: true, 8: true, 9: false} {
		ok, err := s.IsRegistered(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, want, ok, "business %d", id)
	}
}
