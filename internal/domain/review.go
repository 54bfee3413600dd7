package domain

// Rating and comment bounds enforced on submission and update.
const (
	MinRating        = 1
	MaxRating        = 5
	MaxCommentLength = 500
)

// Review is a customer review backed by a redeemed purchase token.
// Only Rating, Comment and Timestamp change after creation.
type Review struct {
	ID              uint64 `json:"id"`
	PurchaseTokenID uint64 `json:"purchase_token_id"`
	BusinessID      uint64 `json:"business_id"`
	Reviewer        string `json:"reviewer"`
	Rating          int    `json:"rating"`
	Comment         string `json:"comment"`
	Timestamp       uint64 `json:"timestamp"`
	Hash            Hash   `json:"hash"`
	Active          bool   `json:"active"`
}

// ReviewUpdate is the most recent edit applied to a review.
type ReviewUpdate struct {
	ReviewID  uint64 `json:"review_id"`
	Rating    int    `json:"rating"`
	Comment   string `json:"comment"`
	Timestamp uint64 `json:"timestamp"`
	Updater   string `json:"updater"`
}

// BusinessAggregate is the running review summary for a business.
// AverageRating is always floor(RatingSum / Count). It does not match an
// aggregate folded as floor((avg*count ± r) / count): ratings 5, 4, 3 give 4
// here and 3 in the folded form.
type BusinessAggregate struct {
	BusinessID    uint64 `json:"business_id"`
	Count         uint64 `json:"count"`
	AverageRating int    `json:"average_rating"`
	RatingSum     uint64 `json:"-"`
}

// Add folds a new rating into the aggregate.
func (a BusinessAggregate) Add(rating int) BusinessAggregate {
	a.Count++
	a.RatingSum += uint64(rating)
	a.AverageRating = int(a.RatingSum / a.Count)
	return a
}

// Replace swaps one existing rating for another at constant count.
func (a BusinessAggregate) Replace(oldRating, newRating int) BusinessAggregate {
	if a.Count == 0 {
		return a
	}
	a.RatingSum = a.RatingSum - uint64(oldRating) + uint64(newRating)
	a.AverageRating = int(a.RatingSum / a.Count)
	return a
}

// ValidRating reports whether r lies within [MinRating, MaxRating].
func ValidRating(r int) bool {
	return r >= MinRating && r <= MaxRating
}
