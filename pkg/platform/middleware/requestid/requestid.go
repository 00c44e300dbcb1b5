// Package requestid assigns each request a UUID for log correlation.
package requestid

import (
	"net/http"

	"github.com/google/uuid"

	"custos/pkg/requestcontext"
)

// Header carries the request ID back to clients.
const Header = "X-Request-ID"

// Middleware injects a fresh request ID, honoring one supplied by a
// trusted proxy.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(Header)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(Header, id)
		ctx := requestcontext.WithRequestID(r.Context(), id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
