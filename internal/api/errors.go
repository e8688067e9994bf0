// Package api provides HTTP API utilities including standardized error handling.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/sealdoc/docledger/internal/middleware"
)

// Common error codes used throughout the API.
const (
	// ErrCodeValidation indicates input validation failure.
	ErrCodeValidation = "validation_error"

	// ErrCodeAuthFailed indicates signature authentication failure.
	ErrCodeAuthFailed = "auth_failed"

	// ErrCodeNotFound indicates the requested resource was not found.
	ErrCodeNotFound = "not_found"

	// ErrCodeInternal indicates an internal server error.
	ErrCodeInternal = "internal_error"

	// ErrCodeForbidden indicates the request is forbidden.
	ErrCodeForbidden = "forbidden"

	// ErrCodeConflict indicates a conflict with the current state.
	ErrCodeConflict = "conflict"

	// ErrCodeBadRequest indicates a malformed request.
	ErrCodeBadRequest = "bad_request"

	// ErrCodeAlreadyRegistered indicates the identity address is taken.
	ErrCodeAlreadyRegistered = "already_registered"

	// ErrCodeChallengeExpired indicates the login challenge was missing,
	// expired, or already used.
	ErrCodeChallengeExpired = "challenge_expired"

	// ErrCodeDuplicateDocument indicates the content hash is already
	// registered.
	ErrCodeDuplicateDocument = "duplicate_document"

	// ErrCodeUnknownDocument indicates no document carries the verification id.
	ErrCodeUnknownDocument = "unknown_document"

	// ErrCodeUnauthorizedOrg indicates the target organization is not
	// authorized to verify.
	ErrCodeUnauthorizedOrg = "unauthorized_organization"

	// ErrCodeNotPending indicates a decision on a record that is not PENDING.
	ErrCodeNotPending = "not_pending"

	// ErrCodeWrongVerifier indicates the acting organization is not the
	// assigned verifier.
	ErrCodeWrongVerifier = "wrong_verifier"

	// ErrCodeAlreadyVerified indicates a request against a VERIFIED record.
	ErrCodeAlreadyVerified = "already_verified"

	// ErrCodePayloadTooLarge indicates the upload exceeds the size limit.
	ErrCodePayloadTooLarge = "payload_too_large"
)

// ErrorResponse represents the standard error response format.
// All API errors return JSON in this structure: {"error": {"code": "...", "message": "..."}}
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains the error code and human-readable message.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// WriteError writes a standardized JSON error response.
// It writes the appropriate HTTP status code and returns a JSON error body.
//
// Format: {"error": {"code": "error_code", "message": "Error description"}}
//
// The error_code is logged by the logging middleware for 4xx and 5xx
// responses when the updated context is passed along:
//
//	ctx := middleware.SetErrorCode(r.Context(), api.ErrCodeNotFound)
//	api.WriteError(w, ctx, http.StatusNotFound, api.ErrCodeNotFound, "Document not found")
func WriteError(w http.ResponseWriter, ctx context.Context, status int, code, message string) {
	// Make the updated context visible to the logging middleware.
	middleware.UpdateResponseContext(w, ctx)

	errResp := ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
		},
	}

	data, err := json.Marshal(errResp)
	if err != nil {
		// Fallback to plain text if JSON marshaling fails
		slog.ErrorContext(ctx, "failed to marshal error response", "error", err)
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("Internal server error"))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		slog.ErrorContext(ctx, "failed to write error response", "error", err)
	}
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// fail is shorthand for SetErrorCode + WriteError from inside a handler.
func fail(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	ctx := middleware.SetErrorCode(r.Context(), code)
	WriteError(w, ctx, status, code, message)
}

// StatusCodeMapping returns the recommended HTTP status code for common error codes.
func StatusCodeMapping(code string) int {
	switch code {
	case ErrCodeValidation, ErrCodeBadRequest:
		return http.StatusBadRequest
	case ErrCodeAuthFailed, ErrCodeChallengeExpired:
		return http.StatusUnauthorized
	case ErrCodeForbidden, ErrCodeWrongVerifier, ErrCodeUnauthorizedOrg:
		return http.StatusForbidden
	case ErrCodeNotFound, ErrCodeUnknownDocument:
		return http.StatusNotFound
	case ErrCodeConflict, ErrCodeAlreadyRegistered, ErrCodeDuplicateDocument,
		ErrCodeNotPending, ErrCodeAlreadyVerified:
		return http.StatusConflict
	case ErrCodePayloadTooLarge:
		return http.StatusRequestEntityTooLarge
	case ErrCodeInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
