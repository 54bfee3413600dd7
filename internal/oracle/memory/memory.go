// Package memory provides in-process token and business oracles for
// development and tests.
package memory

import (
	"context"
	"sync"

	"github.com/utafrali/reviewregistry/internal/domain"
)

// TokenStore keeps purchase tokens in a map.
type TokenStore struct {
	mu     sync.RWMutex
	tokens map[uint64]domain.PurchaseToken
}

// NewTokenStore creates an empty token store.
func NewTokenStore() *TokenStore {
	return &TokenStore{tokens: make(map[uint64]domain.PurchaseToken)}
}

// Put stores or replaces a token. A token already marked invalid stays
// invalid.
func (s *TokenStore) Put(_ context.Context, token domain.PurchaseToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.tokens[token.ID]; ok && !prev.Valid {
		token.Valid = false
	}
	s.tokens[token.ID] = token
	return nil
}

// Invalidate marks a token invalid. Unknown ids get an ownerless invalid
// entry, so a later Put for the same id cannot revive it.
func (s *TokenStore) Invalidate(_ context.Context, tokenID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.tokens[tokenID]
	t.ID = tokenID
	t.Valid = false
	s.tokens[tokenID] = t
	return nil
}

// Verify reports whether the token exists, is valid, and belongs to principal.
func (s *TokenStore) Verify(_ context.Context, tokenID uint64, principal string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tokens[tokenID]
	return ok && t.Owns(principal), nil
}

// BusinessSet is a set of registered business ids.
type BusinessSet struct {
	mu  sync.RWMutex
	ids map[uint64]struct{}
}

// NewBusinessSet creates a set holding the given ids.
func NewBusinessSet(ids ...uint64) *BusinessSet {
	s := &BusinessSet{ids: make(map[uint64]struct{}, len(ids))}
	for _, id := range ids {
		s.ids[id] = struct{}{}
	}
	return s
}

// Register adds a business id.
func (s *BusinessSet) Register(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids[id] = struct{}{}
}

// IsRegistered reports whether id was registered.
func (s *BusinessSet) IsRegistered(_ context.Context, id uint64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.ids[id]
	return ok, nil
}
