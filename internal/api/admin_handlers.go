package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/sealdoc/docledger/internal/identity"
	"github.com/sealdoc/docledger/internal/validate"
	"github.com/sealdoc/docledger/internal/verification"
	"github.com/sealdoc/docledger/internal/workflow"
)

// AdminHandlers holds dependencies for verifier-side HTTP handlers.
type AdminHandlers struct {
	coordinator  *workflow.Coordinator
	auth         *identity.Authenticator
	adminAddress string
}

// NewAdminHandlers creates a new AdminHandlers instance.
func NewAdminHandlers(coordinator *workflow.Coordinator, auth *identity.Authenticator, adminAddress string) *AdminHandlers {
	return &AdminHandlers{coordinator: coordinator, auth: auth, adminAddress: adminAddress}
}

// Pending handles GET /api/admin/pending/{orgAddress} - the organization's
// queue, signed by the organization itself (or the administrator).
func (h *AdminHandlers) Pending(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		fail(w, r, http.StatusMethodNotAllowed, ErrCodeBadRequest, "Method not allowed")
		return
	}

	orgAddress, err := validate.Address(pathTail(r, "/api/admin/pending/"))
	if err != nil {
		fail(w, r, http.StatusBadRequest, ErrCodeValidation, "malformed organization address")
		return
	}

	caller, ok := authenticate(w, r, h.auth, signedFieldsFromHeaders(r))
	if !ok {
		return
	}
	if !strings.EqualFold(caller, orgAddress) && !strings.EqualFold(caller, h.adminAddress) {
		fail(w, r, http.StatusForbidden, ErrCodeForbidden, "queue may only be read by its organization")
		return
	}

	pending, err := h.coordinator.Pending(r.Context(), orgAddress)
	if err != nil {
		fail(w, r, http.StatusInternalServerError, ErrCodeInternal, "Failed to load pending queue")
		return
	}

	resp := make([]RecordResponse, 0, len(pending))
	for _, rec := range pending {
		resp = append(resp, recordResponse(rec))
	}
	writeJSON(w, http.StatusOK, resp)
}

// DecisionRequest is the body for verifier decisions. Remarks doubles as the
// rejection reason on /api/admin/reject, where it must not be empty.
type DecisionRequest struct {
	SignedFields
	VerificationID string `json:"verification_id"`
	Remarks        string `json:"remarks"`
}

// Verify handles POST /api/admin/verify - records a positive decision by the
// signing organization.
func (h *AdminHandlers) Verify(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, false)
}

// Reject handles POST /api/admin/reject - records a rejection with a reason.
func (h *AdminHandlers) Reject(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, true)
}

func (h *AdminHandlers) decide(w http.ResponseWriter, r *http.Request, reject bool) {
	if r.Method != http.MethodPost {
		fail(w, r, http.StatusMethodNotAllowed, ErrCodeBadRequest, "Method not allowed")
		return
	}

	var req DecisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		fail(w, r, http.StatusBadRequest, ErrCodeBadRequest, "Invalid JSON in request body")
		return
	}

	caller, ok := authenticate(w, r, h.auth, req.SignedFields)
	if !ok {
		return
	}

	verificationID, err := validate.VerificationID(req.VerificationID)
	if err != nil {
		fail(w, r, http.StatusBadRequest, ErrCodeValidation, "malformed verification_id")
		return
	}

	var rec *verification.Record
	if reject {
		rec, err = h.coordinator.Reject(r.Context(), verificationID, caller, req.Remarks)
	} else {
		rec, err = h.coordinator.Verify(r.Context(), verificationID, caller, req.Remarks)
	}
	if err != nil {
		switch {
		case errors.Is(err, verification.ErrEmptyReason):
			fail(w, r, http.StatusBadRequest, ErrCodeValidation, "a rejection reason is required")
		case errors.Is(err, verification.ErrNotPending):
			fail(w, r, http.StatusConflict, ErrCodeNotPending, "record is not pending")
		case errors.Is(err, verification.ErrWrongVerifier):
			fail(w, r, http.StatusForbidden, ErrCodeWrongVerifier, "decision must come from the assigned organization")
		default:
			fail(w, r, http.StatusInternalServerError, ErrCodeInternal, "Failed to record decision")
		}
		return
	}

	writeJSON(w, http.StatusOK, recordResponse(rec))
}
