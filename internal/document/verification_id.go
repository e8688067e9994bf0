package document

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// verificationIDAlphabet is the 36-character alphabet of the shareable code.
const verificationIDAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// verificationIDLength is the number of random characters after the prefix.
const verificationIDLength = 6

// NewVerificationID generates a random shareable code of the form DOC-XXXXXX.
// Six characters over a 36-character alphabet is ~31 bits, so collisions are
// possible at scale; callers must check registry uniqueness and regenerate on
// collision.
func NewVerificationID() (string, error) {
	alphabetSize := big.NewInt(int64(len(verificationIDAlphabet)))

	code := make([]byte, verificationIDLength)
	for i := range code {
		n, err := rand.Int(rand.Reader, alphabetSize)
		if err != nil {
			return "", fmt.Errorf("generate verification id: %w", err)
		}
		code[i] = verificationIDAlphabet[n.Int64()]
	}
	return "DOC-" + string(code), nil
}
