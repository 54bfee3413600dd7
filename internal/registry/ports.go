package registry

import (
	"context"

	"github.com/utafrali/reviewregistry/internal/domain"
)

// TokenVerifier answers whether a purchase token exists, is valid, and is
// owned by the given principal.
type TokenVerifier interface {
	Verify(ctx context.Context, tokenID uint64, principal string) (bool, error)
}

// BusinessDirectory answers whether a business is registered.
type BusinessDirectory interface {
	IsRegistered(ctx context.Context, businessID uint64) (bool, error)
}

// FeeLedger accepts fee transfer instructions. Debit must not block; the
// registry never observes the outcome of the transfer.
type FeeLedger interface {
	Debit(ctx context.Context, debit domain.FeeDebit)
}
