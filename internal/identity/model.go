// Package identity provides account identities keyed by address and the
// challenge-response authenticator used to prove possession of the matching
// private key without passwords or sessions.
package identity

import (
	"errors"
	"time"
)

// Identity represents a registered actor, keyed by the address derived from
// its public key. Identities are never deleted; Active may be toggled by an
// administrative action.
type Identity struct {
	Address      string
	Username     string
	RegisteredAt time.Time
	Active       bool
}

// Challenge is a short-lived, single-use login nonce bound to one address.
type Challenge struct {
	Address   string
	Nonce     string
	Text      string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Identity errors.
var (
	// ErrNotFound is returned when no identity exists for an address.
	ErrNotFound = errors.New("identity not found")

	// ErrAlreadyRegistered is returned when registering an address twice.
	ErrAlreadyRegistered = errors.New("identity already registered")

	// ErrInvalidSignature is returned when signature recovery fails.
	ErrInvalidSignature = errors.New("invalid signature")

	// ErrAddressMismatch is returned when the recovered signer does not
	// match the claimed address.
	ErrAddressMismatch = errors.New("recovered address does not match claimed address")

	// ErrChallengeNotFound is returned when no live challenge exists for an
	// address. A consumed or expired nonce reports the same error, so a
	// replayed signature is indistinguishable from a stale one.
	ErrChallengeNotFound = errors.New("challenge not found or expired")

	// ErrChallengeMismatch is returned when the signed message is not the
	// challenge that was issued for the address.
	ErrChallengeMismatch = errors.New("signed message does not match issued challenge")
)
