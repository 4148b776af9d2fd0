package middleware

import (
	"log/slog"
	"net/http"
)

// DefaultMaxBodyBytes bounds a single request body, guarding the gateway
// against a client streaming an unbounded payload into memory before the
// pipeline ever reaches the upstream call.
const DefaultMaxBodyBytes = 20 * 1024 * 1024

// NewBodyLimitMiddleware caps r.Body at maxBytes using http.MaxBytesReader,
// so a body that exceeds it fails at the first Read with a descriptive
// error instead of growing the process's memory unbounded.
func NewBodyLimitMiddleware(maxBytes int64, logger *slog.Logger) func(http.Handler) http.Handler {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBodyBytes
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			}
			next.ServeHTTP(w, r)
		})
	}
}
