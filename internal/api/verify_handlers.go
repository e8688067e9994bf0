package api

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/sealdoc/docledger/internal/document"
	"github.com/sealdoc/docledger/internal/validate"
	"github.com/sealdoc/docledger/internal/verification"
	"github.com/sealdoc/docledger/internal/workflow"
)

// maxVerifyFileBytes bounds the anonymous hash-check upload.
const maxVerifyFileBytes = 32 * 1024 * 1024

// VerifyHandlers holds dependencies for the public verification endpoints.
type VerifyHandlers struct {
	coordinator *workflow.Coordinator
}

// NewVerifyHandlers creates a new VerifyHandlers instance.
func NewVerifyHandlers(coordinator *workflow.Coordinator) *VerifyHandlers {
	return &VerifyHandlers{coordinator: coordinator}
}

// RecordResponse is the public shape of a verification record.
type RecordResponse struct {
	VerificationID  string    `json:"verification_id"`
	Status          int       `json:"status"`
	StatusText      string    `json:"status_text"`
	VerifierOrg     string    `json:"verifier_org,omitempty"`
	Requester       string    `json:"requester,omitempty"`
	RejectionReason string    `json:"rejection_reason,omitempty"`
	LastUpdated     time.Time `json:"last_updated,omitzero"`
}

func recordResponse(rec *verification.Record) RecordResponse {
	return RecordResponse{
		VerificationID:  rec.VerificationID,
		Status:          int(rec.Status),
		StatusText:      rec.Status.String(),
		VerifierOrg:     rec.VerifierOrg,
		Requester:       rec.Requester,
		RejectionReason: rec.RejectionReason,
		LastUpdated:     rec.LastUpdated,
	}
}

// LookupResponse pairs a document with its verification record for the
// public trust checks.
type LookupResponse struct {
	Document DocumentResponse `json:"document"`
	Record   RecordResponse   `json:"record"`
	Verified bool             `json:"verified"`
}

func (h *VerifyHandlers) writeLookup(w http.ResponseWriter, doc *document.Document, rec *verification.Record) {
	writeJSON(w, http.StatusOK, LookupResponse{
		Document: documentResponse(doc),
		Record:   recordResponse(rec),
		Verified: rec.Status == verification.StatusVerified,
	})
}

// ByID handles GET /api/verify/id/{verificationId}.
func (h *VerifyHandlers) ByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		fail(w, r, http.StatusMethodNotAllowed, ErrCodeBadRequest, "Method not allowed")
		return
	}

	verificationID, err := validate.VerificationID(pathTail(r, "/api/verify/id/"))
	if err != nil {
		fail(w, r, http.StatusBadRequest, ErrCodeValidation, "malformed verification id")
		return
	}

	doc, rec, err := h.coordinator.VerifyByID(r.Context(), verificationID)
	if err != nil {
		if errors.Is(err, document.ErrNotFound) {
			fail(w, r, http.StatusNotFound, ErrCodeNotFound, "no document carries this verification id")
			return
		}
		fail(w, r, http.StatusInternalServerError, ErrCodeInternal, "Lookup failed")
		return
	}
	h.writeLookup(w, doc, rec)
}

// ByHash handles GET /api/verify/hash/{hash}. Bare and 0x-prefixed hex are
// both accepted.
func (h *VerifyHandlers) ByHash(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		fail(w, r, http.StatusMethodNotAllowed, ErrCodeBadRequest, "Method not allowed")
		return
	}

	hash, err := validate.ContentHash(pathTail(r, "/api/verify/hash/"))
	if err != nil {
		fail(w, r, http.StatusBadRequest, ErrCodeValidation, "malformed content hash")
		return
	}

	doc, rec, err := h.coordinator.VerifyByHash(r.Context(), hash)
	if err != nil {
		if errors.Is(err, document.ErrNotFound) {
			fail(w, r, http.StatusNotFound, ErrCodeNotFound, "no document matches this content hash")
			return
		}
		fail(w, r, http.StatusInternalServerError, ErrCodeInternal, "Lookup failed")
		return
	}
	h.writeLookup(w, doc, rec)
}

// File handles POST /api/verify/file - hashes an uploaded file and performs
// the same lookup as ByHash. The payload itself is never stored.
func (h *VerifyHandlers) File(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		fail(w, r, http.StatusMethodNotAllowed, ErrCodeBadRequest, "Method not allowed")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxVerifyFileBytes)
	if err := r.ParseMultipartForm(maxVerifyFileBytes); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			fail(w, r, http.StatusRequestEntityTooLarge, ErrCodePayloadTooLarge, "file exceeds the size limit")
			return
		}
		fail(w, r, http.StatusBadRequest, ErrCodeBadRequest, "Invalid multipart request")
		return
	}

	file, _, err := r.FormFile("document")
	if err != nil {
		fail(w, r, http.StatusBadRequest, ErrCodeValidation, "document file is required")
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		fail(w, r, http.StatusBadRequest, ErrCodeBadRequest, "Failed to read document file")
		return
	}

	doc, rec, err := h.coordinator.VerifyFile(r.Context(), content)
	if err != nil {
		switch {
		case errors.Is(err, workflow.ErrEmptyDocument):
			fail(w, r, http.StatusBadRequest, ErrCodeValidation, "document file is empty")
		case errors.Is(err, document.ErrNotFound):
			fail(w, r, http.StatusNotFound, ErrCodeNotFound, "no document matches this content")
		default:
			fail(w, r, http.StatusInternalServerError, ErrCodeInternal, "Lookup failed")
		}
		return
	}
	h.writeLookup(w, doc, rec)
}

// Status handles GET /api/verify/status/{verificationId}. This endpoint
// always answers 200 with a numeric status; a malformed or unknown id and
// every internal failure all report status 0 (NONE).
func (h *VerifyHandlers) Status(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		fail(w, r, http.StatusMethodNotAllowed, ErrCodeBadRequest, "Method not allowed")
		return
	}

	raw := pathTail(r, "/api/verify/status/")
	verificationID, err := validate.VerificationID(raw)
	if err != nil {
		writeJSON(w, http.StatusOK, RecordResponse{
			VerificationID: raw,
			Status:         int(verification.StatusNone),
			StatusText:     verification.StatusNone.String(),
		})
		return
	}

	rec := h.coordinator.Status(r.Context(), verificationID)
	writeJSON(w, http.StatusOK, recordResponse(rec))
}

// AuditEntryResponse is the public shape of one audit trail entry.
type AuditEntryResponse struct {
	ID             string    `json:"id"`
	VerificationID string    `json:"verification_id"`
	VerifierOrg    string    `json:"verifier_org"`
	Remarks        string    `json:"remarks"`
	Timestamp      time.Time `json:"timestamp"`
	PreviousHash   string    `json:"previous_hash"`
}

// Audit handles GET /api/verify/audit/{verificationId}.
func (h *VerifyHandlers) Audit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		fail(w, r, http.StatusMethodNotAllowed, ErrCodeBadRequest, "Method not allowed")
		return
	}

	verificationID, err := validate.VerificationID(pathTail(r, "/api/verify/audit/"))
	if err != nil {
		fail(w, r, http.StatusBadRequest, ErrCodeValidation, "malformed verification id")
		return
	}

	trail, err := h.coordinator.AuditTrail(r.Context(), verificationID)
	if err != nil {
		fail(w, r, http.StatusInternalServerError, ErrCodeInternal, "Failed to load audit trail")
		return
	}

	resp := make([]AuditEntryResponse, 0, len(trail))
	for _, entry := range trail {
		resp = append(resp, AuditEntryResponse{
			ID:             entry.ID,
			VerificationID: entry.VerificationID,
			VerifierOrg:    entry.VerifierOrg,
			Remarks:        entry.Remarks,
			Timestamp:      entry.Timestamp,
			PreviousHash:   entry.PreviousHash,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}
