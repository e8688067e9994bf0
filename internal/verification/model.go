// Package verification provides the per-document verification state machine
// and its append-only audit trail. Records move NONE → PENDING →
// {VERIFIED, REJECTED}; REJECTED may return to PENDING on re-request and
// VERIFIED is terminal.
package verification

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"
)

// Status is the verification state of one document. The numeric values are a
// wire contract with external consumers and must not change.
type Status int

// Verification states.
const (
	StatusNone     Status = 0
	StatusPending  Status = 1
	StatusVerified Status = 2
	StatusRejected Status = 3
)

// String returns the canonical text form used in API responses.
func (s Status) String() string {
	switch s {
	case StatusNone:
		return "NONE"
	case StatusPending:
		return "PENDING"
	case StatusVerified:
		return "VERIFIED"
	case StatusRejected:
		return "REJECTED"
	default:
		return "UNKNOWN"
	}
}

// Record tracks the current verification state of one verification ID.
// Absence of a record is equivalent to StatusNone.
type Record struct {
	VerificationID string
	Status         Status

	// VerifierOrg is the organization assigned at request time. Immutable
	// for the lifetime of that request; a re-request after rejection may
	// assign a different organization.
	VerifierOrg string

	// Requester is the address that asked for verification. Recorded for
	// the pending queue, not used for authorization.
	Requester string

	// RejectionReason is set only while Status is StatusRejected. It is
	// cleared by the next successful request, not by the rejection itself.
	RejectionReason string

	LastUpdated time.Time
}

// AuditEntry is one verifier decision in the append-only trail. Entries are
// hash-chained per verification ID: PreviousHash commits to the prior entry,
// so removing or rewriting history is detectable.
type AuditEntry struct {
	ID             string
	VerificationID string
	VerifierOrg    string
	Remarks        string
	Timestamp      time.Time

	// PreviousHash is the SHA-256 chain hash of the preceding entry, empty
	// for the first entry of a verification ID.
	PreviousHash string
}

// ChainHash returns the digest that the next entry's PreviousHash commits to.
func (e *AuditEntry) ChainHash() string {
	payload := fmt.Sprintf("%s|%s|%s|%d|%s",
		e.VerificationID, e.VerifierOrg, e.Remarks, e.Timestamp.UnixNano(), e.PreviousHash)
	sum := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])
}

// State machine errors.
var (
	// ErrUnknownDocument is returned when requesting verification for an ID
	// with no registered document.
	ErrUnknownDocument = errors.New("no document for verification id")

	// ErrUnauthorizedTarget is returned when the requested organization is
	// not in the directory of authorized verifiers.
	ErrUnauthorizedTarget = errors.New("target organization is not authorized")

	// ErrAlreadyVerified is returned when requesting verification for a
	// document that reached the terminal VERIFIED state.
	ErrAlreadyVerified = errors.New("document already verified")

	// ErrNotPending is returned by verify/reject unless the record is
	// PENDING. A retried decision after success fails with this, which is
	// what keeps double submission from appending twice.
	ErrNotPending = errors.New("verification is not pending")

	// ErrWrongVerifier is returned when the acting organization is not the
	// one assigned by the most recent request.
	ErrWrongVerifier = errors.New("acting organization is not the assigned verifier")

	// ErrEmptyReason is returned when rejecting without a reason.
	ErrEmptyReason = errors.New("rejection reason is required")
)
