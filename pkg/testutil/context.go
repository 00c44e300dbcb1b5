package testutil

import (
	"net/http"
	"time"

	"custos/pkg/domain"
	"custos/pkg/requestcontext"
)

// WithCaller adds an authenticated caller address to the request context.
// This simulates what the auth middleware would do for authenticated requests.
func WithCaller(req *http.Request, caller domain.Address) *http.Request {
	return req.WithContext(requestcontext.WithCaller(req.Context(), caller))
}

// WithRequestTime pins the request-scoped commit time, simulating the
// request-time middleware. Handlers and services read it via
// requestcontext.Now.
func WithRequestTime(req *http.Request, t time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), t))
}

// WithRequestID adds a request ID to the request context.
func WithRequestID(req *http.Request, id string) *http.Request {
	return req.WithContext(requestcontext.WithRequestID(req.Context(), id))
}
