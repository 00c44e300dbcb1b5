// Package service implements the attribute registry operations: authorized
// writes with sync fan-out and audit emission, and zero-default reads.
package service

import (
	"context"
	"errors"
	"log/slog"
	"math/big"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"custos/internal/audit"
	registrymetrics "custos/internal/registry/metrics"
	"custos/internal/registry/models"
	"custos/internal/registry/store"
	dErrors "custos/pkg/domain-errors"
	"custos/pkg/domain"
	"custos/pkg/platform/sentinel"
	"custos/pkg/requestcontext"
)

// WriteAuthorizer decides whether a caller may write a given attribute key.
type WriteAuthorizer interface {
	CanWrite(ctx context.Context, caller domain.Address, key domain.AttributeKey) error
}

// Pusher forwards committed values to the registered sync consumer.
type Pusher interface {
	Push(ctx context.Context, subject domain.Address, key domain.AttributeKey, value *big.Int) error
}

// AuditPublisher records one change event per accepted write.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service orchestrates attribute reads and the atomic write pipeline:
// authorize, stage, push to the sync target, then emit. A failed push rolls
// the staged write back so the store and the consumer never diverge.
type Service struct {
	store       store.Store
	access      WriteAuthorizer
	broadcaster Pusher
	auditor     AuditPublisher
	metrics     *registrymetrics.Metrics
	logger      *slog.Logger
	tracer      trace.Tracer
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *registrymetrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func New(st store.Store, access WriteAuthorizer, broadcaster Pusher, auditor AuditPublisher, opts ...Option) *Service {
	s := &Service{
		store:       st,
		access:      access,
		broadcaster: broadcaster,
		auditor:     auditor,
		logger:      slog.Default(),
		tracer:      otel.Tracer("custos/registry"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetAttribute writes the full record for (subject, key): value, notes, the
// caller as admin, and the request-scoped commit time. The caller must be
// the owner or hold the delegated-write grant for key.
func (s *Service) SetAttribute(ctx context.Context, subject domain.Address, key domain.AttributeKey, value *big.Int, notes domain.Notes) (models.AttributeRecord, error) {
	return s.write(ctx, subject, key, value, notes, audit.ActionSetAttribute)
}

// SetAttributeValue writes value and clears notes; authorization and
// emission behavior match SetAttribute.
func (s *Service) SetAttributeValue(ctx context.Context, subject domain.Address, key domain.AttributeKey, value *big.Int) (models.AttributeRecord, error) {
	return s.write(ctx, subject, key, value, domain.ZeroNotes, audit.ActionSetAttributeValue)
}

func (s *Service) write(ctx context.Context, subject domain.Address, key domain.AttributeKey, value *big.Int, notes domain.Notes, action audit.Action) (models.AttributeRecord, error) {
	ctx, span := s.tracer.Start(ctx, "registry.write")
	defer span.End()

	if err := domain.ValidateValue(value); err != nil {
		s.metrics.ObserveWrite("rejected")
		return models.AttributeRecord{}, err
	}

	caller := requestcontext.Caller(ctx)
	if err := s.access.CanWrite(ctx, caller, key); err != nil {
		s.metrics.ObserveWrite("unauthorized")
		return models.AttributeRecord{}, err
	}

	rec := models.AttributeRecord{
		Value:        new(big.Int).Set(value),
		Notes:        notes,
		AdminAddress: caller,
		Timestamp:    requestcontext.Now(ctx),
	}

	prev, existed, err := s.store.Put(ctx, subject, key, rec)
	if err != nil {
		s.metrics.ObserveWrite("rejected")
		return models.AttributeRecord{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to stage attribute write")
	}

	if err := s.broadcaster.Push(ctx, subject, key, rec.Value); err != nil {
		s.metrics.ObserveSyncPush("failed")
		if restoreErr := s.store.Restore(ctx, subject, key, prev, existed); restoreErr != nil {
			s.logger.ErrorContext(ctx, "failed to roll back staged attribute write",
				"request_id", requestcontext.RequestID(ctx),
				"subject", subject,
				"key", key,
				"error", restoreErr,
			)
		}
		s.metrics.ObserveWrite("rolled_back")
		return models.AttributeRecord{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "sync target rejected the write")
	}
	s.metrics.ObserveSyncPush("ok")

	if err := s.auditor.Emit(ctx, audit.Event{
		Timestamp:    rec.Timestamp,
		Action:       action,
		Subject:      subject,
		Key:          key,
		Value:        new(big.Int).Set(rec.Value),
		Notes:        rec.Notes,
		AdminAddress: rec.AdminAddress,
	}); err != nil {
		s.logger.ErrorContext(ctx, "failed to emit attribute change event",
			"request_id", requestcontext.RequestID(ctx),
			"subject", subject,
			"key", key,
			"error", err,
		)
	}

	s.metrics.ObserveWrite("committed")
	s.logger.InfoContext(ctx, "attribute written",
		"request_id", requestcontext.RequestID(ctx),
		"subject", subject,
		"key", key,
		"admin", caller,
	)
	return rec, nil
}

// GetAttribute returns the stored record, or the zero record when the pair
// has never been written. Reads always succeed.
func (s *Service) GetAttribute(ctx context.Context, subject domain.Address, key domain.AttributeKey) (models.AttributeRecord, error) {
	rec, err := s.store.Get(ctx, subject, key)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return models.ZeroRecord(), nil
		}
		return models.AttributeRecord{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read attribute")
	}
	return rec, nil
}

// HasAttribute reports value != 0 for (subject, key). Physical record
// presence with a zero value still reads as unset.
func (s *Service) HasAttribute(ctx context.Context, subject domain.Address, key domain.AttributeKey) (bool, error) {
	rec, err := s.GetAttribute(ctx, subject, key)
	if err != nil {
		return false, err
	}
	return rec.Has(), nil
}

// GetAttributeValue projects the value field.
func (s *Service) GetAttributeValue(ctx context.Context, subject domain.Address, key domain.AttributeKey) (*big.Int, error) {
	rec, err := s.GetAttribute(ctx, subject, key)
	if err != nil {
		return nil, err
	}
	return rec.Value, nil
}

// GetAttributeAdminAddr projects the admin address field.
func (s *Service) GetAttributeAdminAddr(ctx context.Context, subject domain.Address, key domain.AttributeKey) (domain.Address, error) {
	rec, err := s.GetAttribute(ctx, subject, key)
	if err != nil {
		return domain.Address{}, err
	}
	return rec.AdminAddress, nil
}

// GetAttributeTimestamp projects the commit time; zero when unset.
func (s *Service) GetAttributeTimestamp(ctx context.Context, subject domain.Address, key domain.AttributeKey) (time.Time, error) {
	rec, err := s.GetAttribute(ctx, subject, key)
	if err != nil {
		return time.Time{}, err
	}
	return rec.Timestamp, nil
}
