package mirror

import (
	"context"
	"errors"
	"log/slog"
	"math/big"

	"custos/internal/audit"
	"custos/internal/registry/models"
	dErrors "custos/pkg/domain-errors"
	"custos/pkg/domain"
	"custos/pkg/platform/sentinel"
	"custos/pkg/requestcontext"
)

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks OwnerGuard,RecordReader,AuditPublisher

// OwnerGuard rejects callers that do not hold the owner role.
type OwnerGuard interface {
	RequireOwner(ctx context.Context) error
}

// RecordReader is the attribute read side used to source resync values.
type RecordReader interface {
	Get(ctx context.Context, subject domain.Address, key domain.AttributeKey) (models.AttributeRecord, error)
}

// AuditPublisher records one change event per resynced pair.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service wraps the broadcaster with owner-only administration: target
// registration and explicit bulk resync.
type Service struct {
	broadcaster *Broadcaster
	owner       OwnerGuard
	records     RecordReader
	auditor     AuditPublisher
	logger      *slog.Logger
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func NewService(broadcaster *Broadcaster, owner OwnerGuard, records RecordReader, auditor AuditPublisher, opts ...Option) *Service {
	s := &Service{
		broadcaster: broadcaster,
		owner:       owner,
		records:     records,
		auditor:     auditor,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetTarget registers a new downstream consumer. Owner-only. Passing nil
// unregisters the consumer, turning subsequent pushes into no-ops.
func (s *Service) SetTarget(ctx context.Context, target Target) error {
	if err := s.owner.RequireOwner(ctx); err != nil {
		return err
	}
	s.broadcaster.SetTarget(target)
	name := "none"
	if target != nil {
		name = target.Name()
	}
	s.logger.InfoContext(ctx, "sync target replaced",
		"request_id", requestcontext.RequestID(ctx),
		"target", name,
	)
	return nil
}

// Resync re-pushes the current stored value for each (subject, key) pair to
// the current target. Owner-only; the two arrays are parallel and must have
// equal length. Values reflect the store at call time regardless of when
// they were originally written, so a freshly registered consumer can be
// backfilled.
func (s *Service) Resync(ctx context.Context, subjects []domain.Address, keys []domain.AttributeKey) error {
	if err := s.owner.RequireOwner(ctx); err != nil {
		return err
	}
	if len(subjects) != len(keys) {
		return dErrors.New(dErrors.CodeArityMismatch, "subjects and keys must have equal length")
	}

	for i := range subjects {
		rec, err := s.records.Get(ctx, subjects[i], keys[i])
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				rec = models.ZeroRecord()
			} else {
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to read attribute for resync")
			}
		}
		if err := s.broadcaster.Push(ctx, subjects[i], keys[i], rec.Value); err != nil {
			return dErrors.Wrap(err, dErrors.CodeUnavailable, "sync target rejected resync push")
		}
		if err := s.auditor.Emit(ctx, audit.Event{
			Action:       audit.ActionResync,
			Subject:      subjects[i],
			Key:          keys[i],
			Value:        new(big.Int).Set(rec.Value),
			Notes:        rec.Notes,
			AdminAddress: rec.AdminAddress,
		}); err != nil {
			s.logger.ErrorContext(ctx, "failed to emit resync event",
				"request_id", requestcontext.RequestID(ctx),
				"subject", subjects[i],
				"key", keys[i],
				"error", err,
			)
		}
	}

	s.logger.InfoContext(ctx, "attributes resynced",
		"request_id", requestcontext.RequestID(ctx),
		"pairs", len(subjects),
	)
	return nil
}
