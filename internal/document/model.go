// Package document provides the content-addressed document registry: metadata
// records keyed by owner, by content hash, and by shareable verification ID,
// with global uniqueness enforced on the latter two.
package document

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"
)

// Document is an immutable metadata record for one uploaded file. The raw
// bytes live in the blob store under StorageLocator; ContentHash is computed
// over the plaintext before encryption.
type Document struct {
	// ID is sequential per owner, assigned by the registry at creation.
	ID int64

	// Owner is the registered identity address the document belongs to.
	Owner string

	DocType  string
	FileName string

	// StorageLocator is the opaque blob store key for the encrypted payload.
	StorageLocator string

	// ContentHash is the SHA-256 digest of the plaintext, as 0x-prefixed
	// lowercase hex. Globally unique across all owners.
	ContentHash string

	// VerificationID is the shareable DOC-XXXXXX code. Globally unique.
	VerificationID string

	UploadedAt time.Time
}

// Registry errors.
var (
	// ErrHashCollision is returned when the content hash is already
	// registered, under any owner.
	ErrHashCollision = errors.New("content hash already registered")

	// ErrVerificationIDCollision is returned when the verification ID is
	// already taken. Callers regenerate and retry rather than overwrite.
	ErrVerificationIDCollision = errors.New("verification id already registered")

	// ErrNotFound is returned by lookups that match no document.
	ErrNotFound = errors.New("document not found")
)

// HashContent computes the content hash over raw bytes, returned in the
// external interchange form: 0x-prefixed lowercase hex of a SHA-256 digest.
func HashContent(data []byte) string {
	sum := sha256.Sum256(data)
	return "0x" + hex.EncodeToString(sum[:])
}
