// Package validate provides centralized input validation for the identifiers
// the docledger API accepts from callers: account addresses, content hashes,
// and human-shareable verification IDs.
package validate

import (
	"errors"
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Identifier validation errors
var (
	ErrInvalidAddress        = errors.New("invalid address")
	ErrInvalidContentHash    = errors.New("invalid content hash")
	ErrInvalidVerificationID = errors.New("invalid verification id")
	ErrEmpty                 = errors.New("value is empty")
)

// VerificationIDPattern matches the shareable document code format:
// "DOC-" followed by exactly six characters from the [A-Z0-9] alphabet.
var VerificationIDPattern = regexp.MustCompile(`^DOC-[A-Z0-9]{6}$`)

// contentHashPattern matches a 256-bit digest as 64 lowercase or uppercase
// hex characters. The optional 0x prefix is stripped before matching.
var contentHashPattern = regexp.MustCompile(`^[0-9a-fA-F]{64}$`)

// Address validates an account address and returns its checksummed form.
// Addresses are derived from public keys and compared case-insensitively
// everywhere else; the checksummed form is only used for display.
func Address(s string) (string, error) {
	if s == "" {
		return "", ErrEmpty
	}
	if !common.IsHexAddress(s) {
		return "", ErrInvalidAddress
	}
	return common.HexToAddress(s).Hex(), nil
}

// ContentHash validates a 256-bit content digest and returns it normalized
// to lowercase hex with a 0x prefix, the external interchange form.
func ContentHash(s string) (string, error) {
	if s == "" {
		return "", ErrEmpty
	}
	trimmed := strings.TrimPrefix(s, "0x")
	if !contentHashPattern.MatchString(trimmed) {
		return "", ErrInvalidContentHash
	}
	return "0x" + strings.ToLower(trimmed), nil
}

// VerificationID validates a shareable verification ID. Lowercase input is
// accepted and normalized; the stored form is always uppercase.
func VerificationID(s string) (string, error) {
	if s == "" {
		return "", ErrEmpty
	}
	upper := strings.ToUpper(s)
	if !VerificationIDPattern.MatchString(upper) {
		return "", ErrInvalidVerificationID
	}
	return upper, nil
}
