// Package registry implements the review registry state machine: purchase
// token redemption, review submission and update, and the per-business
// rating aggregate.
//
// Every exported operation runs under a single mutex, so operations are
// totally ordered and each one either applies all of its effects or none.
package registry

import (
	"context"
	"fmt"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/utafrali/reviewregistry/internal/domain"
)

// Defaults applied when no option overrides them.
const (
	DefaultMaxReviewsPerBusiness uint64 = 10000
	DefaultReviewFee             uint64 = 10

	// DefaultOracleTimeout bounds the token and business checks, which run
	// while the registry lock is held.
	DefaultOracleTimeout = 2 * time.Second
)

// SubmitInput holds the caller-supplied fields of a new review.
type SubmitInput struct {
	PurchaseTokenID uint64
	BusinessID      uint64
	Rating          int
	Comment         string
}

type reviewerKey struct {
	principal  string
	businessID uint64
}

// Registry owns all review state. The zero value is not usable; call New.
type Registry struct {
	mu sync.Mutex

	bootstrap  string
	tokens     TokenVerifier
	businesses BusinessDirectory
	ledger     FeeLedger

	counter          uint64
	maxPerBusiness   uint64
	fee              uint64
	authority        string
	authoritySet     bool
	authorityOnlyFee bool
	oracleTimeout    time.Duration

	reviews     map[uint64]domain.Review
	updates     map[uint64]domain.ReviewUpdate
	aggregates  map[uint64]domain.BusinessAggregate
	redemptions map[uint64]uint64
	byReviewer  map[reviewerKey]uint64
	byBusiness  map[uint64][]uint64
}

// Option customizes a Registry at construction.
type Option func(*Registry)

// WithMaxReviewsPerBusiness sets the per-business review cap.
func WithMaxReviewsPerBusiness(n uint64) Option {
	return func(r *Registry) { r.maxPerBusiness = n }
}

// WithReviewFee sets the initial review fee.
func WithReviewFee(fee uint64) Option {
	return func(r *Registry) { r.fee = fee }
}

// WithFeeAuthorityOnly restricts SetReviewFee to the configured authority.
// When disabled, any caller may change the fee once an authority exists.
func WithFeeAuthorityOnly(enabled bool) Option {
	return func(r *Registry) { r.authorityOnlyFee = enabled }
}

// WithOracleTimeout sets the deadline shared by the token and business
// checks of one submission. Zero or less disables it.
func WithOracleTimeout(d time.Duration) Option {
	return func(r *Registry) { r.oracleTimeout = d }
}

// New creates an empty registry. bootstrap is the only principal allowed to
// set the authority.
func New(bootstrap string, tokens TokenVerifier, businesses BusinessDirectory, ledger FeeLedger, opts ...Option) *Registry {
	r := &Registry{
		bootstrap:      bootstrap,
		tokens:         tokens,
		businesses:     businesses,
		ledger:         ledger,
		maxPerBusiness: DefaultMaxReviewsPerBusiness,
		fee:            DefaultReviewFee,
		oracleTimeout:  DefaultOracleTimeout,
		reviews:        make(map[uint64]domain.Review),
		updates:        make(map[uint64]domain.ReviewUpdate),
		aggregates:     make(map[uint64]domain.BusinessAggregate),
		redemptions:    make(map[uint64]uint64),
		byReviewer:     make(map[reviewerKey]uint64),
		byBusiness:     make(map[uint64][]uint64),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// SetAuthority sets the authority principal. It succeeds exactly once, and
// only when called by the bootstrap principal.
func (r *Registry) SetAuthority(caller domain.Caller, principal string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if caller.Principal != r.bootstrap || r.authoritySet || principal == "" {
		return false
	}
	r.authority = principal
	r.authoritySet = true
	return true
}

// SetReviewFee changes the fee debited on each submission. It requires an
// authority to be configured, and the caller to be that authority when
// WithFeeAuthorityOnly is enabled.
func (r *Registry) SetReviewFee(caller domain.Caller, amount uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.authoritySet {
		return false
	}
	if r.authorityOnlyFee && caller.Principal != r.authority {
		return false
	}
	r.fee = amount
	return true
}

// SubmitReview validates and records a new review, returning its id.
func (r *Registry) SubmitReview(ctx context.Context, caller domain.Caller, in SubmitInput) (uint64, error) {
	rv, err := r.Submit(ctx, caller, in)
	if err != nil {
		return 0, err
	}
	return rv.ID, nil
}

// Submit validates and records a new review, returning it as committed.
// Checks run in a fixed order and the first failure is returned.
func (r *Registry) Submit(ctx context.Context, caller domain.Caller, in SubmitInput) (domain.Review, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	agg := r.aggregates[in.BusinessID]
	if agg.Count >= r.maxPerBusiness {
		return domain.Review{}, domain.ErrMaxReviewsExceeded
	}
	if !domain.ValidRating(in.Rating) {
		return domain.Review{}, domain.ErrInvalidRating
	}
	if utf8.RuneCountInString(in.Comment) > domain.MaxCommentLength {
		return domain.Review{}, domain.ErrInvalidCommentLength
	}

	octx := ctx
	if r.oracleTimeout > 0 {
		var cancel context.CancelFunc
		octx, cancel = context.WithTimeout(ctx, r.oracleTimeout)
		defer cancel()
	}

	ok, err := r.tokens.Verify(octx, in.PurchaseTokenID, caller.Principal)
	if err != nil {
		return domain.Review{}, fmt.Errorf("verify purchase token %d: %w", in.PurchaseTokenID, err)
	}
	if !ok {
		return domain.Review{}, domain.ErrInvalidPurchaseToken
	}

	ok, err = r.businesses.IsRegistered(octx, in.BusinessID)
	if err != nil {
		return domain.Review{}, fmt.Errorf("check business %d: %w", in.BusinessID, err)
	}
	if !ok {
		return domain.Review{}, domain.ErrBusinessNotRegistered
	}

	if _, used := r.redemptions[in.PurchaseTokenID]; used {
		return domain.Review{}, domain.ErrPurchaseTokenUsed
	}
	key := reviewerKey{principal: caller.Principal, businessID: in.BusinessID}
	if _, exists := r.byReviewer[key]; exists {
		return domain.Review{}, domain.ErrReviewAlreadyExists
	}
	if !r.authoritySet {
		return domain.Review{}, domain.ErrNotAuthorized
	}

	id := r.counter
	r.ledger.Debit(ctx, domain.FeeDebit{
		ReviewID: id,
		Amount:   r.fee,
		From:     caller.Principal,
		To:       r.authority,
		Height:   caller.Height,
	})
	r.counter++

	agg.BusinessID = in.BusinessID
	rv := domain.Review{
		ID:              id,
		PurchaseTokenID: in.PurchaseTokenID,
		BusinessID:      in.BusinessID,
		Reviewer:        caller.Principal,
		Rating:          in.Rating,
		Comment:         in.Comment,
		Timestamp:       caller.Height,
		Hash:            domain.ContentHash(in.PurchaseTokenID, in.BusinessID, caller.Principal, in.Rating, in.Comment, caller.Height),
		Active:          true,
	}
	r.reviews[id] = rv
	r.redemptions[in.PurchaseTokenID] = id
	r.byReviewer[key] = id
	r.byBusiness[in.BusinessID] = append(r.byBusiness[in.BusinessID], id)
	r.aggregates[in.BusinessID] = agg.Add(in.Rating)

	return rv, nil
}

// UpdateReview replaces the rating and comment of an active review. Only the
// original reviewer may update it.
func (r *Registry) UpdateReview(caller domain.Caller, id uint64, rating int, comment string) error {
	_, _, err := r.Update(caller, id, rating, comment)
	return err
}

// Update is UpdateReview returning the review and update record as
// committed.
func (r *Registry) Update(caller domain.Caller, id uint64, rating int, comment string) (domain.Review, domain.ReviewUpdate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rv, ok := r.reviews[id]
	if !ok {
		return domain.Review{}, domain.ReviewUpdate{}, domain.ErrReviewNotFound
	}
	if rv.Reviewer != caller.Principal {
		return domain.Review{}, domain.ReviewUpdate{}, domain.ErrNotAuthorized
	}
	if !rv.Active {
		return domain.Review{}, domain.ReviewUpdate{}, domain.ErrInvalidStatus
	}
	if !domain.ValidRating(rating) {
		return domain.Review{}, domain.ReviewUpdate{}, domain.ErrInvalidRating
	}
	if utf8.RuneCountInString(comment) > domain.MaxCommentLength {
		return domain.Review{}, domain.ReviewUpdate{}, domain.ErrInvalidCommentLength
	}

	r.aggregates[rv.BusinessID] = r.aggregates[rv.BusinessID].Replace(rv.Rating, rating)

	rv.Rating = rating
	rv.Comment = comment
	rv.Timestamp = caller.Height
	r.reviews[id] = rv

	u := domain.ReviewUpdate{
		ReviewID:  id,
		Rating:    rating,
		Comment:   comment,
		Timestamp: caller.Height,
		Updater:   caller.Principal,
	}
	r.updates[id] = u
	return rv, u, nil
}

// GetReview returns the review with the given id.
func (r *Registry) GetReview(id uint64) (domain.Review, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rv, ok := r.reviews[id]
	if !ok {
		return domain.Review{}, domain.ErrReviewNotFound
	}
	return rv, nil
}

// LatestUpdate returns the most recent update applied to a review.
func (r *Registry) LatestUpdate(id uint64) (domain.ReviewUpdate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.updates[id]
	if !ok {
		return domain.ReviewUpdate{}, domain.ErrReviewNotFound
	}
	return u, nil
}

// ReviewCount returns the number of reviews ever created.
func (r *Registry) ReviewCount() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counter
}

// ReviewExists reports whether a purchase token has been redeemed.
func (r *Registry) ReviewExists(purchaseTokenID uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.redemptions[purchaseTokenID]
	return ok
}

// Aggregate returns the review summary for a business. Businesses without
// reviews report a zero aggregate.
func (r *Registry) Aggregate(businessID uint64) domain.BusinessAggregate {
	r.mu.Lock()
	defer r.mu.Unlock()

	agg := r.aggregates[businessID]
	agg.BusinessID = businessID
	return agg
}

// BusinessReviews returns up to limit reviews of a business in submission
// order, skipping the first offset, along with the business's total review
// count.
func (r *Registry) BusinessReviews(businessID uint64, offset, limit int) ([]domain.Review, int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := r.byBusiness[businessID]
	total := len(ids)
	if offset < 0 {
		offset = 0
	}
	if offset >= total || limit <= 0 {
		return []domain.Review{}, total
	}
	end := offset + limit
	if end > total {
		end = total
	}

	out := make([]domain.Review, 0, end-offset)
	for _, id := range ids[offset:end] {
		out = append(out, r.reviews[id])
	}
	return out, total
}

// Settings returns a snapshot of the registry-wide configuration.
func (r *Registry) Settings() domain.Settings {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := domain.Settings{
		ReviewCounter:         r.counter,
		MaxReviewsPerBusiness: r.maxPerBusiness,
		ReviewFee:             r.fee,
	}
	if r.authoritySet {
		authority := r.authority
		s.Authority = &authority
	}
	return s
}
