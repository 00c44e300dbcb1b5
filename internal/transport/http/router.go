// Package httptransport assembles the chi router: middleware chain,
// feature handler registration, and operational endpoints.
package httptransport

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"custos/internal/platform/metrics"
	"custos/pkg/platform/middleware/auth"
	"custos/pkg/platform/middleware/requestid"
	"custos/pkg/platform/middleware/requesttime"
)

// Registrar is implemented by every feature handler.
type Registrar interface {
	Register(r chi.Router)
}

// NewRouter wires all endpoints. Everything except health and metrics sits
// behind bearer authentication, since even reads expose compliance data.
func NewRouter(validator auth.TokenValidator, logger *slog.Logger, platformMetrics *metrics.Metrics, handlers ...Registrar) http.Handler {
	r := chi.NewRouter()
	r.Use(requestid.Middleware)
	r.Use(requesttime.Middleware)
	r.Use(platformMetrics.Middleware)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(protected chi.Router) {
		protected.Use(auth.RequireAuth(validator, logger))
		for _, h := range handlers {
			h.Register(protected)
		}
	})

	return r
}
