// Package handler exposes the authorization predicates to the ledger over
// HTTP. A 403 response carries the error kind the ledger uses to abort the
// enclosing operation.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"custos/internal/authz"
	dErrors "custos/pkg/domain-errors"
	"custos/pkg/domain"
	"custos/pkg/platform/httputil"
	"custos/pkg/requestcontext"
)

// Engine defines the predicate surface the transport needs.
type Engine interface {
	CanTransfer(ctx context.Context, sender, to domain.Address) (authz.TransferAuthorization, error)
	CanTransferFrom(ctx context.Context, spender, from, to domain.Address) (authz.TransferAuthorization, error)
	CanMint(ctx context.Context, to domain.Address) (authz.TransferAuthorization, error)
	CanBurn(ctx context.Context, from domain.Address) error
}

type transferRequest struct {
	Sender string `json:"sender"`
	To     string `json:"to"`
}

type transferFromRequest struct {
	Spender string `json:"spender"`
	From    string `json:"from"`
	To      string `json:"to"`
}

type mintRequest struct {
	To string `json:"to"`
}

type burnRequest struct {
	From string `json:"from"`
}

type authorizationResponse struct {
	Allowed              bool           `json:"allowed"`
	ResolvedTo           domain.Address `json:"resolved_to"`
	ToRegisteredContract bool           `json:"to_registered_contract"`
}

// Handler wires authorization endpoints to the engine.
type Handler struct {
	engine Engine
	logger *slog.Logger
}

func New(engine Engine, logger *slog.Logger) *Handler {
	return &Handler{engine: engine, logger: logger}
}

// Register mounts authorization endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/authz/transfer", h.HandleCanTransfer)
	r.Post("/authz/transfer-from", h.HandleCanTransferFrom)
	r.Post("/authz/mint", h.HandleCanMint)
	r.Post("/authz/burn", h.HandleCanBurn)
}

// HandleCanTransfer handles POST /authz/transfer.
func (h *Handler) HandleCanTransfer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[transferRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	sender, err := parseAddr(req.Sender, "sender")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	to, err := parseAddr(req.To, "to")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	auth, err := h.engine.CanTransfer(ctx, sender, to)
	h.respond(w, r, "can_transfer", auth, err)
}

// HandleCanTransferFrom handles POST /authz/transfer-from.
func (h *Handler) HandleCanTransferFrom(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[transferFromRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	spender, err := parseAddr(req.Spender, "spender")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	from, err := parseAddr(req.From, "from")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	to, err := parseAddr(req.To, "to")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	auth, err := h.engine.CanTransferFrom(ctx, spender, from, to)
	h.respond(w, r, "can_transfer_from", auth, err)
}

// HandleCanMint handles POST /authz/mint.
func (h *Handler) HandleCanMint(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[mintRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	to, err := parseAddr(req.To, "to")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	auth, err := h.engine.CanMint(ctx, to)
	h.respond(w, r, "can_mint", auth, err)
}

// HandleCanBurn handles POST /authz/burn.
func (h *Handler) HandleCanBurn(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[burnRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	from, err := parseAddr(req.From, "from")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	err = h.engine.CanBurn(ctx, from)
	h.respond(w, r, "can_burn", authz.TransferAuthorization{ResolvedTo: from}, err)
}

func (h *Handler) respond(w http.ResponseWriter, r *http.Request, predicate string, auth authz.TransferAuthorization, err error) {
	ctx := r.Context()
	if err != nil {
		h.logger.InfoContext(ctx, "authorization rejected",
			"request_id", requestcontext.RequestID(ctx),
			"predicate", predicate,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, authorizationResponse{
		Allowed:              true,
		ResolvedTo:           auth.ResolvedTo,
		ToRegisteredContract: auth.ToRegisteredContract,
	})
}

func parseAddr(raw, field string) (domain.Address, error) {
	addr, err := domain.ParseAddress(raw)
	if err != nil {
		return domain.Address{}, dErrors.New(dErrors.CodeValidation, "invalid "+field+" address")
	}
	return addr, nil
}
