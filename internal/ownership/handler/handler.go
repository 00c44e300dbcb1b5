// Package handler exposes the two-phase ownership handshake over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	dErrors "custos/pkg/domain-errors"
	"custos/pkg/domain"
	"custos/pkg/platform/httputil"
	"custos/pkg/requestcontext"
)

// Service defines the ownership surface the transport needs.
type Service interface {
	Owner(ctx context.Context) (domain.Address, error)
	PendingOwner(ctx context.Context) (domain.Address, error)
	TransferOwnership(ctx context.Context, newOwner domain.Address) error
	ClaimOwnership(ctx context.Context) error
}

type transferRequest struct {
	NewOwner string `json:"new_owner"`
}

type ownerResponse struct {
	Owner        domain.Address `json:"owner"`
	PendingOwner domain.Address `json:"pending_owner"`
}

// Handler wires ownership endpoints to the ownership service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts ownership endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/owner", h.HandleGetOwner)
	r.Post("/owner/transfer", h.HandleTransfer)
	r.Post("/owner/claim", h.HandleClaim)
}

// HandleGetOwner handles GET /owner.
func (h *Handler) HandleGetOwner(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	owner, err := h.service.Owner(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	pending, err := h.service.PendingOwner(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, ownerResponse{Owner: owner, PendingOwner: pending})
}

// HandleTransfer handles POST /owner/transfer.
func (h *Handler) HandleTransfer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[transferRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	newOwner, err := domain.ParseAddress(req.NewOwner)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid new_owner address"))
		return
	}

	if err := h.service.TransferOwnership(ctx, newOwner); err != nil {
		h.logger.WarnContext(ctx, "ownership transfer rejected",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"pending_owner": newOwner.String()})
}

// HandleClaim handles POST /owner/claim.
func (h *Handler) HandleClaim(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.service.ClaimOwnership(ctx); err != nil {
		h.logger.WarnContext(ctx, "ownership claim rejected",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	owner, err := h.service.Owner(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"owner": owner.String()})
}
