package domain

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/blake2b"
)

// HashSize is the length of a review content hash in bytes.
const HashSize = 32

// Hash is an opaque fingerprint of the content a review was created with.
type Hash [HashSize]byte

// String returns the lowercase hex encoding of the hash.
func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// MarshalText encodes the hash as hex so it renders as a JSON string.
func (h Hash) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

// UnmarshalText decodes a hex-encoded hash.
func (h *Hash) UnmarshalText(text []byte) error {
	if hex.DecodedLen(len(text)) != HashSize {
		return fmt.Errorf("review hash: want %d hex bytes, got %d", HashSize*2, len(text))
	}
	_, err := hex.Decode(h[:], text)
	return err
}

// ContentHash derives the BLAKE2b-256 hash of a review's original content.
// Variable-length fields are length-prefixed so distinct inputs never collide
// by concatenation.
func ContentHash(purchaseTokenID, businessID uint64, reviewer string, rating int, comment string, height uint64) Hash {
	buf := make([]byte, 0, 8*5+len(reviewer)+len(comment)+1)
	buf = binary.BigEndian.AppendUint64(buf, purchaseTokenID)
	buf = binary.BigEndian.AppendUint64(buf, businessID)
	buf = binary.BigEndian.AppendUint64(buf, uint64(len(reviewer)))
	buf = append(buf, reviewer...)
	buf = append(buf, byte(rating))
	buf = binary.BigEndian.AppendUint64(buf, uint64(len(comment)))
	buf = append(buf, comment...)
	buf = binary.BigEndian.AppendUint64(buf, height)
	return Hash(blake2b.Sum256(buf))
}
