package api

import (
	"net/http"

	"github.com/sealdoc/docledger/internal/middleware"
)

// RouterConfig collects the handler groups the router mounts.
type RouterConfig struct {
	Auth      *AuthHandlers
	Orgs      *OrgHandlers
	Documents *DocumentHandlers
	Verify    *VerifyHandlers
	Admin     *AdminHandlers
	Health    *HealthHandlers

	// Metrics is the /metrics endpoint handler (promhttp). Optional.
	Metrics http.Handler
}

// NewRouter mounts all API routes on a ServeMux. Dynamic trailing segments
// are parsed inside the handlers.
func NewRouter(cfg RouterConfig) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/health", cfg.Health.Health)
	mux.HandleFunc("/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		mux.Handle("/metrics", cfg.Metrics)
	}

	mux.HandleFunc("/api/auth/nonce/", cfg.Auth.Nonce)
	mux.HandleFunc("/api/auth/verify", cfg.Auth.VerifyLogin)
	mux.HandleFunc("/api/auth/register", cfg.Auth.Register)
	mux.HandleFunc("/api/user/", cfg.Auth.Profile)

	mux.HandleFunc("/api/organizations", cfg.Orgs.Organizations)

	mux.HandleFunc("/api/documents/upload", cfg.Documents.Upload)
	mux.HandleFunc("/api/documents/user/", cfg.Documents.ListByOwner)
	mux.HandleFunc("/api/documents/download/", cfg.Documents.Download)
	mux.HandleFunc("/api/documents/request-verification", cfg.Documents.RequestVerification)

	mux.HandleFunc("/api/verify/id/", cfg.Verify.ByID)
	mux.HandleFunc("/api/verify/hash/", cfg.Verify.ByHash)
	mux.HandleFunc("/api/verify/file", cfg.Verify.File)
	mux.HandleFunc("/api/verify/status/", cfg.Verify.Status)
	mux.HandleFunc("/api/verify/audit/", cfg.Verify.Audit)

	mux.HandleFunc("/api/admin/pending/", cfg.Admin.Pending)
	mux.HandleFunc("/api/admin/verify", cfg.Admin.Verify)
	mux.HandleFunc("/api/admin/reject", cfg.Admin.Reject)

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeNotFound)
			WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "The requested resource was not found")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{
			"service": "docledger-api",
			"version": "0.1.0",
		})
	})

	return mux
}
