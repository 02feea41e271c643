package middleware

import (
	"log/slog"
	"net/http"
	"strings"
)

// LimitBody caps request bodies at maxBytes. Multipart uploads beyond the cap
// fail while the form is parsed.
func LimitBody(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > maxBytes {
				http.Error(w, "Request body too large", http.StatusRequestEntityTooLarge)
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}

// RejectSuspiciousPaths refuses traversal-looking paths before they reach
// the static file server.
func RejectSuspiciousPaths(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if strings.Contains(r.URL.Path, "..") || strings.Contains(r.URL.Path, "//") {
				log.Warn("suspicious path pattern detected",
					slog.String("path", r.URL.Path),
				)
				http.Error(w, "Invalid path", http.StatusBadRequest)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
