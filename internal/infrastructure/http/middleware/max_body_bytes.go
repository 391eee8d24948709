// Package middleware holds HTTP middleware for the admin API.
package middleware

import (
	"log/slog"
	"net/http"

	"github.com/rezkam/taskguard/internal/infrastructure/http/response"
)

// MaxBodyBytes rejects requests whose declared body exceeds maxBytes with 413 and
// caps the body reader for requests without a Content-Length.
func MaxBodyBytes(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > maxBytes {
				slog.WarnContext(r.Context(), "Request body size limit exceeded",
					"method", r.Method,
					"path", r.URL.Path,
					"content_length", r.ContentLength,
					"limit", maxBytes)
				response.Error(w, "PAYLOAD_TOO_LARGE", "request body exceeds size limit", http.StatusRequestEntityTooLarge)
				return
			}

			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}
