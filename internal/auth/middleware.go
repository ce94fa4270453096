// Package auth implements API-key authentication for the HTTP surface.
package auth

import (
	"crypto/subtle"
	"net/http"

	"github.com/marginmind/backend/internal/apierrors"
)

// HeaderName is the HTTP header carrying the API key.
const HeaderName = "X-API-Key"

// Middleware returns an HTTP middleware that requires a matching API key on
// every request. Comparison is constant-time.
func Middleware(apiKey string) func(http.Handler) http.Handler {
	expected := []byte(apiKey)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := r.Header.Get(HeaderName)
			if got == "" {
				apierrors.NewUnauthorizedError("missing API key").Write(w, r)
				return
			}
			if subtle.ConstantTimeCompare([]byte(got), expected) != 1 {
				apierrors.NewUnauthorizedError("invalid API key").Write(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
