// Package requesttime provides middleware for request-scoped time.
// All operations within a single call use the same "now" timestamp, so a
// committed record and its change event carry the same instant.
package requesttime

import (
	"net/http"
	"time"

	"custos/pkg/requestcontext"
)

// Middleware captures the current time at the start of the request
// and stores it in the context for consistent time references throughout
// the request.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		now := time.Now()
		ctx := requestcontext.WithTime(r.Context(), now)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
