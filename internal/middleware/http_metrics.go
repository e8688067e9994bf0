// Package middleware provides HTTP middleware components for the API server.
package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// normalizePath converts paths with dynamic segments to route patterns to prevent
// cardinality explosion in metrics. This maps paths like /api/verify/id/DOC-ABC123
// to /api/verify/id/{id}.
func normalizePath(path string) string {
	staticRoutes := map[string]bool{
		"/":                                   true,
		"/api/health":                         true,
		"/ready":                              true,
		"/metrics":                            true,
		"/api/organizations":                  true,
		"/api/auth/verify":                    true,
		"/api/auth/register":                  true,
		"/api/verify/file":                    true,
		"/api/documents/upload":               true,
		"/api/documents/request-verification": true,
		"/api/admin/verify":                   true,
		"/api/admin/reject":                   true,
	}
	if staticRoutes[path] {
		return path
	}

	// Prefix routes carrying one trailing dynamic segment.
	prefixRoutes := map[string]string{
		"/api/auth/nonce/":         "/api/auth/nonce/{address}",
		"/api/user/":               "/api/user/{address}",
		"/api/verify/id/":          "/api/verify/id/{id}",
		"/api/verify/hash/":        "/api/verify/hash/{hash}",
		"/api/verify/status/":      "/api/verify/status/{id}",
		"/api/verify/audit/":       "/api/verify/audit/{id}",
		"/api/documents/user/":     "/api/documents/user/{address}",
		"/api/documents/download/": "/api/documents/download/{locator}",
		"/api/admin/pending/":      "/api/admin/pending/{address}",
	}
	for prefix, pattern := range prefixRoutes {
		if strings.HasPrefix(path, prefix) && len(path) > len(prefix) {
			return pattern
		}
	}

	// Fallback: return as-is for unknown patterns so new routes are not
	// accidentally collapsed.
	return path
}

// metricsResponseWriter wraps http.ResponseWriter to capture status code and response size.
type metricsResponseWriter struct {
	http.ResponseWriter
	statusCode  int
	size        int64
	wroteHeader bool
}

// WriteHeader captures the status code before writing it.
func (mrw *metricsResponseWriter) WriteHeader(code int) {
	if mrw.wroteHeader {
		return
	}
	mrw.statusCode = code
	mrw.wroteHeader = true
	mrw.ResponseWriter.WriteHeader(code)
}

// Write captures the response size and writes the data.
func (mrw *metricsResponseWriter) Write(b []byte) (int, error) {
	n, err := mrw.ResponseWriter.Write(b)
	mrw.size += int64(n)
	return n, err
}

// newMetricsResponseWriter creates a new metricsResponseWriter with default 200 status.
func newMetricsResponseWriter(w http.ResponseWriter) *metricsResponseWriter {
	return &metricsResponseWriter{
		ResponseWriter: w,
		statusCode:     http.StatusOK,
	}
}

// HTTPMetrics is a middleware that records HTTP request metrics.
// It captures duration, request/response sizes, and request counts.
// Health check endpoints (/api/health, /ready) are excluded from metrics to
// avoid cardinality issues.
func HTTPMetrics(metrics *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/api/health" || r.URL.Path == "/ready" {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()

			mrw := newMetricsResponseWriter(w)

			requestSize := int64(0)
			if contentLength := r.Header.Get("Content-Length"); contentLength != "" {
				if size, err := strconv.ParseInt(contentLength, 10, 64); err == nil {
					requestSize = size
				}
			}

			next.ServeHTTP(mrw, r)

			duration := time.Since(start).Seconds()
			normalizedPath := normalizePath(r.URL.Path)

			metrics.ObserveHTTPRequest(
				r.Method,
				normalizedPath,
				strconv.Itoa(mrw.statusCode),
				duration,
				requestSize,
				mrw.size,
			)
		})
	}
}
