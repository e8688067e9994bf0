package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/sealdoc/docledger/internal/identity"
	"github.com/sealdoc/docledger/internal/org"
	"github.com/sealdoc/docledger/internal/validate"
)

// Organization name constraints
const (
	MinOrgNameLength = 2
	MaxOrgNameLength = 128
)

// OrgHandlers holds dependencies for organization directory HTTP handlers.
type OrgHandlers struct {
	directory    org.Directory
	auth         *identity.Authenticator
	adminAddress string
}

// NewOrgHandlers creates a new OrgHandlers instance.
func NewOrgHandlers(directory org.Directory, auth *identity.Authenticator, adminAddress string) *OrgHandlers {
	return &OrgHandlers{directory: directory, auth: auth, adminAddress: adminAddress}
}

// OrganizationResponse is the public shape of a directory entry.
type OrganizationResponse struct {
	Name         string    `json:"name"`
	Address      string    `json:"address"`
	Authorized   bool      `json:"authorized"`
	RegisteredAt time.Time `json:"registered_at"`
}

// Organizations dispatches /api/organizations by method: GET lists the
// authorized directory, POST registers (admin-signed).
func (h *OrgHandlers) Organizations(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.list(w, r)
	case http.MethodPost:
		h.register(w, r)
	default:
		fail(w, r, http.StatusMethodNotAllowed, ErrCodeBadRequest, "Method not allowed")
	}
}

// list handles GET /api/organizations - authorized organizations only.
func (h *OrgHandlers) list(w http.ResponseWriter, r *http.Request) {
	orgs, err := h.directory.List(r.Context())
	if err != nil {
		fail(w, r, http.StatusInternalServerError, ErrCodeInternal, "Failed to list organizations")
		return
	}

	resp := make([]OrganizationResponse, 0, len(orgs))
	for _, o := range orgs {
		resp = append(resp, OrganizationResponse{
			Name:         o.Name,
			Address:      o.Address,
			Authorized:   o.Authorized,
			RegisteredAt: o.RegisteredAt,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// RegisterOrgRequest is the body for admin-signed organization registration.
type RegisterOrgRequest struct {
	SignedFields
	Name       string `json:"name"`
	OrgAddress string `json:"org_address"`
}

// register handles POST /api/organizations - admin-signed registration.
// Re-registering an existing address updates the name and restores
// authorization.
func (h *OrgHandlers) register(w http.ResponseWriter, r *http.Request) {
	var req RegisterOrgRequest
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

	orgAddress, err := validate.Address(req.OrgAddress)
	if err != nil {
		fail(w, r, http.StatusBadRequest, ErrCodeValidation, "malformed org_address")
		return
	}
	name := strings.TrimSpace(req.Name)
	if len(name) < MinOrgNameLength || len(name) > MaxOrgNameLength {
		fail(w, r, http.StatusBadRequest, ErrCodeValidation, "name must be 2-128 characters")
		return
	}

	registered, err := h.directory.Register(r.Context(), name, orgAddress)
	if err != nil {
		fail(w, r, http.StatusInternalServerError, ErrCodeInternal, "Failed to register organization")
		return
	}

	writeJSON(w, http.StatusCreated, OrganizationResponse{
		Name:         registered.Name,
		Address:      registered.Address,
		Authorized:   registered.Authorized,
		RegisteredAt: registered.RegisteredAt,
	})
}
