// Package handler exposes owner-only sync administration: target
// registration and bulk resync.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"custos/internal/mirror"
	"custos/internal/platform/redis"
	dErrors "custos/pkg/domain-errors"
	"custos/pkg/domain"
	"custos/pkg/platform/httputil"
	"custos/pkg/requestcontext"
)

// Service defines the sync administration surface the transport needs.
type Service interface {
	SetTarget(ctx context.Context, target mirror.Target) error
	Resync(ctx context.Context, subjects []domain.Address, keys []domain.AttributeKey) error
}

type setTargetRequest struct {
	RedisURL string `json:"redis_url"`
}

type resyncRequest struct {
	Subjects []string `json:"subjects"`
	Keys     []string `json:"keys"`
}

// Handler wires sync endpoints to the mirror service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts sync endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Put("/sync/target", h.HandleSetTarget)
	r.Delete("/sync/target", h.HandleClearTarget)
	r.Post("/sync/resync", h.HandleResync)
}

// HandleSetTarget handles PUT /sync/target.
func (h *Handler) HandleSetTarget(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[setTargetRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	if req.RedisURL == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "redis_url is required"))
		return
	}

	client, err := redis.New(ctx, req.RedisURL)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to dial sync target",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnavailable, "sync target is unreachable"))
		return
	}

	if err := h.service.SetTarget(ctx, mirror.NewRedisTarget(client.Client)); err != nil {
		_ = client.Close()
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"target": "redis"})
}

// HandleClearTarget handles DELETE /sync/target.
func (h *Handler) HandleClearTarget(w http.ResponseWriter, r *http.Request) {
	if err := h.service.SetTarget(r.Context(), nil); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"target": "none"})
}

// HandleResync handles POST /sync/resync.
func (h *Handler) HandleResync(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[resyncRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	subjects := make([]domain.Address, 0, len(req.Subjects))
	for _, raw := range req.Subjects {
		addr, err := domain.ParseAddress(raw)
		if err != nil {
			httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid subject address"))
			return
		}
		subjects = append(subjects, addr)
	}
	keys := make([]domain.AttributeKey, 0, len(req.Keys))
	for _, raw := range req.Keys {
		key, err := domain.ParseKey(raw)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		keys = append(keys, key)
	}

	if err := h.service.Resync(ctx, subjects, keys); err != nil {
		h.logger.WarnContext(ctx, "resync rejected",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]int{"pairs": len(subjects)})
}
