// Package redis keeps the purchase-token projection in Redis hashes and
// answers token ownership checks from it.
package redis

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/utafrali/reviewregistry/internal/domain"
	"github.com/utafrali/reviewregistry/pkg/database"
)

const keyPrefix = "purchase_token:"

const (
	fieldOwner = "owner"
	fieldValid = "valid"
)

// putScript writes owner and valid, but never turns valid=0 back into 1.
var putScript = redis.NewScript(`
local valid = ARGV[2]
if redis.call('HGET', KEYS[1], 'valid') == '0' then
	valid = '0'
end
redis.call('HSET', KEYS[1], 'owner', ARGV[1], 'valid', valid)
return valid
`)

// TokenStore implements registry.TokenVerifier over Redis hashes keyed
// purchase_token:{id} with fields owner and valid.
type TokenStore struct {
	client redis.Cmdable
}

// NewTokenStore creates a Redis-backed token store.
func NewTokenStore(client redis.Cmdable) *TokenStore {
	return &TokenStore{client: client}
}

func tokenKey(id uint64) string {
	return keyPrefix + strconv.FormatUint(id, 10)
}

// Put stores or replaces a token. A token already marked invalid stays
// invalid.
func (s *TokenStore) Put(ctx context.Context, token domain.PurchaseToken) (err error) {
	ctx, end := database.TraceQuery(ctx, "redis", "PutToken", "EVALSHA put purchase_token")
	defer func() { end(err) }()

	valid := "0"
	if token.Valid {
		valid = "1"
	}
	if err = putScript.Run(ctx, s.client, []string{tokenKey(token.ID)}, token.Owner, valid).Err(); err != nil {
		return fmt.Errorf("redis put token %d: %w", token.ID, err)
	}
	return nil
}

// Invalidate marks a token invalid. Unknown ids get an ownerless tombstone,
// so an issuance delivered afterwards cannot make the token valid.
func (s *TokenStore) Invalidate(ctx context.Context, tokenID uint64) (err error) {
	ctx, end := database.TraceQuery(ctx, "redis", "InvalidateToken", "HSET purchase_token valid")
	defer func() { end(err) }()

	if err = s.client.HSet(ctx, tokenKey(tokenID), fieldValid, "0").Err(); err != nil {
		return fmt.Errorf("redis invalidate token %d: %w", tokenID, err)
	}
	return nil
}

// Verify reports whether the token exists, is valid and belongs to principal.
func (s *TokenStore) Verify(ctx context.Context, tokenID uint64, principal string) (ok bool, err error) {
	ctx, end := database.TraceQuery(ctx, "redis", "VerifyToken", "HMGET purchase_token")
	defer func() { end(err) }()

	vals, err := s.client.HMGet(ctx, tokenKey(tokenID), fieldOwner, fieldValid).Result()
	if err != nil {
		return false, fmt.Errorf("redis hmget token %d: %w", tokenID, err)
	}
	owner, _ := vals[0].(string)
	valid, _ := vals[1].(string)

	token := domain.PurchaseToken{ID: tokenID, Owner: owner, Valid: valid == "1"}
	return owner != "" && token.Owns(principal), nil
}

// Ping checks the Redis connection for readiness probes.
func (s *TokenStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
