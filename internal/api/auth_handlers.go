// Package api provides HTTP handlers for the document ledger API.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/sealdoc/docledger/internal/identity"
	"github.com/sealdoc/docledger/internal/validate"
)

// Username validation constraints
const (
	MinUsernameLength = 3
	MaxUsernameLength = 32
)

// AuthHandlers holds dependencies for identity and login HTTP handlers.
type AuthHandlers struct {
	auth         *identity.Authenticator
	identities   identity.Repository
	adminAddress string
}

// NewAuthHandlers creates a new AuthHandlers instance.
func NewAuthHandlers(auth *identity.Authenticator, identities identity.Repository, adminAddress string) *AuthHandlers {
	return &AuthHandlers{auth: auth, identities: identities, adminAddress: adminAddress}
}

// ChallengeResponse is the body returned for a fresh login challenge.
type ChallengeResponse struct {
	Address   string `json:"address"`
	Nonce     string `json:"nonce"`
	Message   string `json:"message"`
	IssuedAt  int64  `json:"issued_at"`
	ExpiresAt int64  `json:"expires_at"`
}

// ProfileResponse is the public shape of a registered identity.
type ProfileResponse struct {
	Address      string    `json:"address"`
	Username     string    `json:"username"`
	RegisteredAt time.Time `json:"registered_at"`
	Active       bool      `json:"active"`
}

// Nonce handles GET /api/auth/nonce/{address} - issues a login challenge.
func (h *AuthHandlers) Nonce(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		fail(w, r, http.StatusMethodNotAllowed, ErrCodeBadRequest, "Method not allowed")
		return
	}

	address := pathTail(r, "/api/auth/nonce/")
	if address == "" {
		fail(w, r, http.StatusBadRequest, ErrCodeValidation, "address is required")
		return
	}

	ch, err := h.auth.IssueChallenge(r.Context(), address)
	if err != nil {
		if errors.Is(err, validate.ErrInvalidAddress) {
			fail(w, r, http.StatusBadRequest, ErrCodeValidation, "malformed address")
			return
		}
		fail(w, r, http.StatusInternalServerError, ErrCodeInternal, "Failed to issue challenge")
		return
	}

	writeJSON(w, http.StatusOK, ChallengeResponse{
		Address:   ch.Address,
		Nonce:     ch.Nonce,
		Message:   ch.Text,
		IssuedAt:  ch.IssuedAt.UnixMilli(),
		ExpiresAt: ch.ExpiresAt.UnixMilli(),
	})
}

// VerifyLogin handles POST /api/auth/verify - challenge-response login.
// A successful login returns the stored profile; an unregistered but
// authenticated address gets registered=false so the client can prompt for
// registration.
func (h *AuthHandlers) VerifyLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		fail(w, r, http.StatusMethodNotAllowed, ErrCodeBadRequest, "Method not allowed")
		return
	}

	var req SignedFields
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		fail(w, r, http.StatusBadRequest, ErrCodeBadRequest, "Invalid JSON in request body")
		return
	}

	caller, ok := authenticate(w, r, h.auth, req)
	if !ok {
		return
	}

	ident, err := h.identities.Get(r.Context(), caller)
	if errors.Is(err, identity.ErrNotFound) {
		writeJSON(w, http.StatusOK, map[string]any{
			"address":    caller,
			"registered": false,
		})
		return
	}
	if err != nil {
		fail(w, r, http.StatusInternalServerError, ErrCodeInternal, "Failed to load profile")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"address":    ident.Address,
		"registered": true,
		"profile": ProfileResponse{
			Address:      ident.Address,
			Username:     ident.Username,
			RegisteredAt: ident.RegisteredAt,
			Active:       ident.Active,
		},
	})
}

// RegisterIdentityRequest is the body for admin-signed identity registration.
type RegisterIdentityRequest struct {
	SignedFields
	UserAddress string `json:"user_address"`
	Username    string `json:"username"`
}

// Register handles POST /api/auth/register - admin-signed identity
// registration.
func (h *AuthHandlers) Register(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		fail(w, r, http.StatusMethodNotAllowed, ErrCodeBadRequest, "Method not allowed")
		return
	}

	var req RegisterIdentityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		fail(w, r, http.StatusBadRequest, ErrCodeBadRequest, "Invalid JSON in request body")
		return
	}

	caller, ok := authenticate(w, r, h.auth, req.SignedFields)
	if !ok {
		return
	}
	if !requireAdmin(w, r, caller, h.adminAddress) {
		return
	}

	userAddress, err := validate.Address(req.UserAddress)
	if err != nil {
		fail(w, r, http.StatusBadRequest, ErrCodeValidation, "malformed user_address")
		return
	}
	username := strings.TrimSpace(req.Username)
	if len(username) < MinUsernameLength || len(username) > MaxUsernameLength {
		fail(w, r, http.StatusBadRequest, ErrCodeValidation, "username must be 3-32 characters")
		return
	}

	ident := &identity.Identity{
		Address:      userAddress,
		Username:     username,
		RegisteredAt: time.Now().UTC(),
		Active:       true,
	}
	if err := h.identities.Register(r.Context(), ident); err != nil {
		if errors.Is(err, identity.ErrAlreadyRegistered) {
			fail(w, r, http.StatusConflict, ErrCodeAlreadyRegistered, "address is already registered")
			return
		}
		fail(w, r, http.StatusInternalServerError, ErrCodeInternal, "Failed to register identity")
		return
	}

	writeJSON(w, http.StatusCreated, ProfileResponse{
		Address:      ident.Address,
		Username:     ident.Username,
		RegisteredAt: ident.RegisteredAt,
		Active:       ident.Active,
	})
}

// Profile handles GET /api/user/{address} - public profile lookup.
func (h *AuthHandlers) Profile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		fail(w, r, http.StatusMethodNotAllowed, ErrCodeBadRequest, "Method not allowed")
		return
	}

	address := pathTail(r, "/api/user/")
	if address == "" {
		fail(w, r, http.StatusBadRequest, ErrCodeValidation, "address is required")
		return
	}
	if _, err := validate.Address(address); err != nil {
		fail(w, r, http.StatusBadRequest, ErrCodeValidation, "malformed address")
		return
	}

	ident, err := h.identities.Get(r.Context(), address)
	if errors.Is(err, identity.ErrNotFound) {
		fail(w, r, http.StatusNotFound, ErrCodeNotFound, "identity not found")
		return
	}
	if err != nil {
		fail(w, r, http.StatusInternalServerError, ErrCodeInternal, "Failed to load profile")
		return
	}

	writeJSON(w, http.StatusOK, ProfileResponse{
		Address:      ident.Address,
		Username:     ident.Username,
		RegisteredAt: ident.RegisteredAt,
		Active:       ident.Active,
	})
}
