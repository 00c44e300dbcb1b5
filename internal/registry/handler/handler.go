// Package handler wires the attribute registry endpoints to the registry
// service.
package handler

import (
	"context"
	"log/slog"
	"math/big"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"custos/internal/registry/models"
	dErrors "custos/pkg/domain-errors"
	"custos/pkg/domain"
	"custos/pkg/platform/httputil"
	"custos/pkg/requestcontext"
)

// Service defines the registry operations the transport needs.
type Service interface {
	SetAttribute(ctx context.Context, subject domain.Address, key domain.AttributeKey, value *big.Int, notes domain.Notes) (models.AttributeRecord, error)
	SetAttributeValue(ctx context.Context, subject domain.Address, key domain.AttributeKey, value *big.Int) (models.AttributeRecord, error)
	GetAttribute(ctx context.Context, subject domain.Address, key domain.AttributeKey) (models.AttributeRecord, error)
	GetAttributeValue(ctx context.Context, subject domain.Address, key domain.AttributeKey) (*big.Int, error)
	GetAttributeAdminAddr(ctx context.Context, subject domain.Address, key domain.AttributeKey) (domain.Address, error)
	GetAttributeTimestamp(ctx context.Context, subject domain.Address, key domain.AttributeKey) (time.Time, error)
	HasAttribute(ctx context.Context, subject domain.Address, key domain.AttributeKey) (bool, error)
}

// Handler is the thin HTTP layer over the registry service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts registry endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/attributes", h.HandleSetAttribute)
	r.Post("/attributes/value", h.HandleSetAttributeValue)
	r.Get("/attributes/{subject}/{key}", h.HandleGetAttribute)
	r.Get("/attributes/{subject}/{key}/exists", h.HandleHasAttribute)
}

// HandleSetAttribute handles POST /attributes.
func (h *Handler) HandleSetAttribute(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[SetAttributeRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	subject, key, err := parseSubjectKey(req.Subject, req.Key)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	value, err := ParseValue(req.Value)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	notes, err := domain.ParseNotes(req.Notes)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	rec, err := h.service.SetAttribute(ctx, subject, key, value, notes)
	if err != nil {
		h.logger.WarnContext(ctx, "attribute write rejected",
			"request_id", requestID,
			"subject", subject,
			"key", key,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromRecord(subject, key, rec))
}

// HandleSetAttributeValue handles POST /attributes/value.
func (h *Handler) HandleSetAttributeValue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[SetAttributeValueRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	subject, key, err := parseSubjectKey(req.Subject, req.Key)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	value, err := ParseValue(req.Value)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	rec, err := h.service.SetAttributeValue(ctx, subject, key, value)
	if err != nil {
		h.logger.WarnContext(ctx, "attribute write rejected",
			"request_id", requestID,
			"subject", subject,
			"key", key,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromRecord(subject, key, rec))
}

// HandleGetAttribute handles GET /attributes/{subject}/{key}. The optional
// field query parameter projects a single record field instead of the full
// record.
func (h *Handler) HandleGetAttribute(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	subject, key, err := parseSubjectKey(chi.URLParam(r, "subject"), chi.URLParam(r, "key"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	switch field := r.URL.Query().Get("field"); field {
	case "":
		rec, err := h.service.GetAttribute(ctx, subject, key)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, FromRecord(subject, key, rec))
	case "value":
		value, err := h.service.GetAttributeValue(ctx, subject, key)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, ValueProjection{Subject: subject, Key: key, Value: value.String()})
	case "admin":
		admin, err := h.service.GetAttributeAdminAddr(ctx, subject, key)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, AdminProjection{Subject: subject, Key: key, AdminAddress: admin})
	case "timestamp":
		ts, err := h.service.GetAttributeTimestamp(ctx, subject, key)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		resp := TimestampProjection{Subject: subject, Key: key}
		if !ts.IsZero() {
			resp.Timestamp = &ts
		}
		httputil.WriteJSON(w, http.StatusOK, resp)
	default:
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "field must be one of value, admin, timestamp"))
	}
}

// HandleHasAttribute handles GET /attributes/{subject}/{key}/exists.
func (h *Handler) HandleHasAttribute(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	subject, key, err := parseSubjectKey(chi.URLParam(r, "subject"), chi.URLParam(r, "key"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	has, err := h.service.HasAttribute(ctx, subject, key)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]bool{"has_attribute": has})
}

func parseSubjectKey(subjectRaw, keyRaw string) (domain.Address, domain.AttributeKey, error) {
	subject, err := domain.ParseAddress(subjectRaw)
	if err != nil {
		return domain.Address{}, domain.AttributeKey{}, dErrors.New(dErrors.CodeValidation, "invalid subject address")
	}
	key, err := domain.ParseKey(keyRaw)
	if err != nil {
		return domain.Address{}, domain.AttributeKey{}, err
	}
	return subject, key, nil
}
