package domain

// Caller identifies who invokes a registry operation and at which logical height.
type Caller struct {
	Principal string
	Height    uint64
}

// FeeDebit is the fire-and-forget transfer instruction emitted for every accepted review.
type FeeDebit struct {
	ReviewID uint64 `json:"review_id"`
	Amount   uint64 `json:"amount"`
	From     string `json:"from"`
	To       string `json:"to"`
	Height   uint64 `json:"height"`
}

// Settings is a read-only view of the registry-wide configuration.
type Settings struct {
	ReviewCounter         uint64  `json:"review_counter"`
	MaxReviewsPerBusiness uint64  `json:"max_reviews_per_business"`
	ReviewFee             uint64  `json:"review_fee"`
	Authority             *string `json:"authority"`
}
