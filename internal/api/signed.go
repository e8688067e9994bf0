package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/sealdoc/docledger/internal/identity"
	"github.com/sealdoc/docledger/internal/middleware"
	"github.com/sealdoc/docledger/internal/validate"
)

// SignedFields carries the challenge-response proof every privileged request
// must include. The server holds no sessions: each call re-authenticates by
// checking the signature against a live single-use challenge.
type SignedFields struct {
	Address   string `json:"address"`
	Message   string `json:"message"`
	Signature string `json:"signature"`
}

// Request headers used for signed GET endpoints, where there is no body to
// carry the proof.
const (
	AuthAddressHeader   = "X-Auth-Address"
	AuthMessageHeader   = "X-Auth-Message"
	AuthSignatureHeader = "X-Auth-Signature"
)

// signedFieldsFromHeaders extracts the proof from request headers.
func signedFieldsFromHeaders(r *http.Request) SignedFields {
	return SignedFields{
		Address:   r.Header.Get(AuthAddressHeader),
		Message:   r.Header.Get(AuthMessageHeader),
		Signature: r.Header.Get(AuthSignatureHeader),
	}
}

// authenticate runs the full challenge-response check and writes the error
// response on failure. On success the caller address is recorded in the
// request context for the request log, and the checksummed address is
// returned with ok=true.
func authenticate(w http.ResponseWriter, r *http.Request, auth *identity.Authenticator, proof SignedFields) (string, bool) {
	if proof.Address == "" || proof.Message == "" || proof.Signature == "" {
		fail(w, r, http.StatusUnauthorized, ErrCodeAuthFailed, "address, message, and signature are required")
		return "", false
	}

	checksummed, err := validate.Address(proof.Address)
	if err != nil {
		fail(w, r, http.StatusBadRequest, ErrCodeValidation, "malformed address")
		return "", false
	}

	if err := auth.Authenticate(r.Context(), proof.Message, proof.Signature, proof.Address); err != nil {
		switch {
		case errors.Is(err, identity.ErrChallengeNotFound), errors.Is(err, identity.ErrChallengeMismatch):
			fail(w, r, http.StatusUnauthorized, ErrCodeChallengeExpired, "challenge missing, expired, or already used")
		case errors.Is(err, identity.ErrInvalidSignature), errors.Is(err, identity.ErrAddressMismatch):
			fail(w, r, http.StatusUnauthorized, ErrCodeAuthFailed, "signature verification failed")
		default:
			fail(w, r, http.StatusInternalServerError, ErrCodeInternal, "authentication failed")
		}
		return "", false
	}

	middleware.UpdateResponseContext(w, middleware.SetCallerAddress(r.Context(), checksummed))
	return checksummed, true
}

// requireAdmin verifies that the authenticated caller is the configured
// administrator. Writes the error response when it is not.
func requireAdmin(w http.ResponseWriter, r *http.Request, caller, adminAddress string) bool {
	if !strings.EqualFold(caller, adminAddress) {
		fail(w, r, http.StatusForbidden, ErrCodeForbidden, "administrator signature required")
		return false
	}
	return true
}

// pathTail returns the remainder of the URL path after prefix, or "" when the
// path does not extend past it.
func pathTail(r *http.Request, prefix string) string {
	tail := strings.TrimPrefix(r.URL.Path, prefix)
	if tail == r.URL.Path {
		return ""
	}
	return strings.Trim(tail, "/")
}
