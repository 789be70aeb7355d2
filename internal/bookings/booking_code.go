package bookings

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const (
	bookingCodePrefix   = "BK-"
	bookingCodeLength   = 8
	bookingCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// GenerateBookingCode returns a human-readable code like BK-7Q2MNP4X.
// Each character is drawn with crypto/rand so codes are not guessable.
// Uniqueness is enforced by the database; callers retry on collision.
func GenerateBookingCode() (string, error) {
	code := make([]byte, bookingCodeLength)
	max := big.NewInt(int64(len(bookingCodeAlphabet)))
	for i := range code {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to generate booking code: %w", err)
		}
		code[i] = bookingCodeAlphabet[n.Int64()]
	}
	return bookingCodePrefix + string(code), nil
}
