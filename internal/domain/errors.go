package domain

import "errors"

// Business-rule rejections surfaced by the registry. Every failed operation
// returns exactly one of these.
var (
	ErrNotAuthorized         = errors.New("not authorized")
	ErrInvalidRating         = errors.New("rating must be between 1 and 5")
	ErrInvalidCommentLength  = errors.New("comment exceeds 500 characters")
	ErrInvalidPurchaseToken  = errors.New("purchase token is invalid or not owned by caller")
	ErrBusinessNotRegistered = errors.New("business is not registered")
	ErrPurchaseTokenUsed     = errors.New("purchase token already used")
	ErrReviewAlreadyExists   = errors.New("reviewer already reviewed this business")
	ErrReviewNotFound        = errors.New("review not found")
	ErrMaxReviewsExceeded    = errors.New("business reached the maximum number of reviews")
	ErrInvalidStatus         = errors.New("review is not active")
)

type errorKind struct {
	err  error
	name string
	code uint32
}

// Wire codes match the deployed contract's error constants.
var kinds = []errorKind{
	{ErrNotAuthorized, "NOT_AUTHORIZED", 100},
	{ErrInvalidRating, "INVALID_RATING", 101},
	{ErrInvalidCommentLength, "INVALID_COMMENT_LENGTH", 102},
	{ErrInvalidPurchaseToken, "INVALID_PURCHASE_TOKEN", 103},
	{ErrReviewAlreadyExists, "REVIEW_ALREADY_EXISTS", 105},
	{ErrReviewNotFound, "REVIEW_NOT_FOUND", 106},
	{ErrBusinessNotRegistered, "BUSINESS_NOT_REGISTERED", 110},
	{ErrPurchaseTokenUsed, "PURCHASE_TOKEN_USED", 111},
	{ErrMaxReviewsExceeded, "MAX_REVIEWS_EXCEEDED", 114},
	{ErrInvalidStatus, "INVALID_STATUS", 115},
}

func lookup(err error) (errorKind, bool) {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k, true
		}
	}
	return errorKind{}, false
}

// IsRejection reports whether err is a registry business-rule rejection
// rather than an infrastructure failure.
func IsRejection(err error) bool {
	_, ok := lookup(err)
	return ok
}

// Kind returns the symbolic name of a rejection, or "" for other errors.
func Kind(err error) string {
	k, _ := lookup(err)
	return k.name
}

// WireCode returns the numeric code of a rejection for wire compatibility.
func WireCode(err error) (uint32, bool) {
	k, ok := lookup(err)
	return k.code, ok
}
