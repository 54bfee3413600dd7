package domain

// PurchaseToken is the locally known state of a proof of purchase issued by
// the purchase service.
type PurchaseToken struct {
	ID    uint64 `json:"id"`
	Owner string `json:"owner"`
	Valid bool   `json:"valid"`
}

// Owns reports whether the token is valid and held by principal.
func (t PurchaseToken) Owns(principal string) bool {
	return t.Valid && t.Owner == principal
}
