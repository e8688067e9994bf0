package api

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/sealdoc/docledger/internal/document"
	"github.com/sealdoc/docledger/internal/identity"
	"github.com/sealdoc/docledger/internal/validate"
	"github.com/sealdoc/docledger/internal/verification"
	"github.com/sealdoc/docledger/internal/workflow"
)

// Document type constraints
const MaxDocTypeLength = 64

// DocumentHandlers holds dependencies for document HTTP handlers.
type DocumentHandlers struct {
	coordinator    *workflow.Coordinator
	auth           *identity.Authenticator
	maxUploadBytes int64
}

// NewDocumentHandlers creates a new DocumentHandlers instance.
func NewDocumentHandlers(coordinator *workflow.Coordinator, auth *identity.Authenticator, maxUploadSizeMB int) *DocumentHandlers {
	return &DocumentHandlers{
		coordinator:    coordinator,
		auth:           auth,
		maxUploadBytes: int64(maxUploadSizeMB) * 1024 * 1024,
	}
}

// DocumentResponse is the public shape of a registered document.
type DocumentResponse struct {
	ID             int64     `json:"id"`
	Owner          string    `json:"owner"`
	DocType        string    `json:"doc_type"`
	FileName       string    `json:"file_name"`
	StorageLocator string    `json:"storage_locator"`
	ContentHash    string    `json:"content_hash"`
	VerificationID string    `json:"verification_id"`
	UploadedAt     time.Time `json:"uploaded_at"`
}

func documentResponse(doc *document.Document) DocumentResponse {
	return DocumentResponse{
		ID:             doc.ID,
		Owner:          doc.Owner,
		DocType:        doc.DocType,
		FileName:       doc.FileName,
		StorageLocator: doc.StorageLocator,
		ContentHash:    doc.ContentHash,
		VerificationID: doc.VerificationID,
		UploadedAt:     doc.UploadedAt,
	}
}

// Upload handles POST /api/documents/upload - multipart, owner-signed.
// Form fields: address, message, signature, doc_type; file field: document.
func (h *DocumentHandlers) Upload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		fail(w, r, http.StatusMethodNotAllowed, ErrCodeBadRequest, "Method not allowed")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			fail(w, r, http.StatusRequestEntityTooLarge, ErrCodePayloadTooLarge, "upload exceeds the size limit")
			return
		}
		fail(w, r, http.StatusBadRequest, ErrCodeBadRequest, "Invalid multipart request")
		return
	}

	proof := SignedFields{
		Address:   r.FormValue("address"),
		Message:   r.FormValue("message"),
		Signature: r.FormValue("signature"),
	}
	caller, ok := authenticate(w, r, h.auth, proof)
	if !ok {
		return
	}

	docType := strings.TrimSpace(r.FormValue("doc_type"))
	if docType == "" || len(docType) > MaxDocTypeLength {
		fail(w, r, http.StatusBadRequest, ErrCodeValidation, "doc_type is required (max 64 characters)")
		return
	}

	file, header, err := r.FormFile("document")
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

	doc, err := h.coordinator.Upload(r.Context(), caller, docType, header.Filename, content)
	if err != nil {
		switch {
		case errors.Is(err, workflow.ErrOwnerNotRegistered):
			fail(w, r, http.StatusForbidden, ErrCodeForbidden, "address is not a registered identity")
		case errors.Is(err, workflow.ErrEmptyDocument):
			fail(w, r, http.StatusBadRequest, ErrCodeValidation, "document file is empty")
		case errors.Is(err, document.ErrHashCollision):
			fail(w, r, http.StatusConflict, ErrCodeDuplicateDocument, "identical content is already registered")
		default:
			fail(w, r, http.StatusInternalServerError, ErrCodeInternal, "Failed to store document")
		}
		return
	}

	writeJSON(w, http.StatusCreated, documentResponse(doc))
}

// ListByOwner handles GET /api/documents/user/{address} - owner-signed.
func (h *DocumentHandlers) ListByOwner(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		fail(w, r, http.StatusMethodNotAllowed, ErrCodeBadRequest, "Method not allowed")
		return
	}

	address := pathTail(r, "/api/documents/user/")
	if _, err := validate.Address(address); err != nil {
		fail(w, r, http.StatusBadRequest, ErrCodeValidation, "malformed address")
		return
	}

	caller, ok := authenticate(w, r, h.auth, signedFieldsFromHeaders(r))
	if !ok {
		return
	}
	if !strings.EqualFold(caller, address) {
		fail(w, r, http.StatusForbidden, ErrCodeForbidden, "documents may only be listed by their owner")
		return
	}

	docs, err := h.coordinator.Documents(r.Context(), address)
	if err != nil {
		fail(w, r, http.StatusInternalServerError, ErrCodeInternal, "Failed to list documents")
		return
	}

	resp := make([]DocumentResponse, 0, len(docs))
	for _, doc := range docs {
		resp = append(resp, documentResponse(doc))
	}
	writeJSON(w, http.StatusOK, resp)
}

// Download handles GET /api/documents/download/{locator} - owner-signed.
// The decrypted payload streams back as an attachment.
func (h *DocumentHandlers) Download(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		fail(w, r, http.StatusMethodNotAllowed, ErrCodeBadRequest, "Method not allowed")
		return
	}

	locator := pathTail(r, "/api/documents/download/")
	if locator == "" {
		fail(w, r, http.StatusBadRequest, ErrCodeValidation, "locator is required")
		return
	}

	caller, ok := authenticate(w, r, h.auth, signedFieldsFromHeaders(r))
	if !ok {
		return
	}

	content, doc, err := h.coordinator.Download(r.Context(), caller, locator)
	if err != nil {
		if errors.Is(err, workflow.ErrNotOwner) {
			fail(w, r, http.StatusForbidden, ErrCodeForbidden, "document does not belong to the caller")
			return
		}
		fail(w, r, http.StatusInternalServerError, ErrCodeInternal, "Failed to fetch document")
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition",
		mime.FormatMediaType("attachment", map[string]string{"filename": doc.FileName}))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(content)
}

// RequestVerificationRequest is the body for requesting verification of an
// uploaded document.
type RequestVerificationRequest struct {
	SignedFields
	VerificationID string `json:"verification_id"`
	OrgAddress     string `json:"organization_address"`
}

// RequestVerification handles POST /api/documents/request-verification.
func (h *DocumentHandlers) RequestVerification(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		fail(w, r, http.StatusMethodNotAllowed, ErrCodeBadRequest, "Method not allowed")
		return
	}

	var req RequestVerificationRequest
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
	orgAddress, err := validate.Address(req.OrgAddress)
	if err != nil {
		fail(w, r, http.StatusBadRequest, ErrCodeValidation, "malformed organization_address")
		return
	}

	rec, err := h.coordinator.Request(r.Context(), verificationID, caller, orgAddress)
	if err != nil {
		switch {
		case errors.Is(err, verification.ErrUnknownDocument):
			fail(w, r, http.StatusNotFound, ErrCodeUnknownDocument, "no document carries this verification id")
		case errors.Is(err, verification.ErrUnauthorizedTarget):
			fail(w, r, http.StatusForbidden, ErrCodeUnauthorizedOrg, "target organization is not authorized to verify")
		case errors.Is(err, verification.ErrAlreadyVerified):
			fail(w, r, http.StatusConflict, ErrCodeAlreadyVerified, "document is already verified")
		default:
			fail(w, r, http.StatusInternalServerError, ErrCodeInternal, "Failed to request verification")
		}
		return
	}

	writeJSON(w, http.StatusOK, recordResponse(rec))
}
