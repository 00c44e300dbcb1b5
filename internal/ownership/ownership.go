// Package ownership maintains the registry's owner and pending-owner
// singletons and enforces the two-phase transfer handshake.
package ownership

import (
	"context"
	"log/slog"

	dErrors "custos/pkg/domain-errors"
	"custos/pkg/domain"
	"custos/pkg/requestcontext"
)

// State is the ownership singleton. At most one pending nominee exists at
// a time; the zero pending address means no transfer is in flight.
type State struct {
	Owner        domain.Address
	PendingOwner domain.Address
}

// Store guards the ownership singleton. Execute runs the callback while
// holding the store's lock so validate-then-mutate stays atomic.
type Store interface {
	Init(ctx context.Context, owner domain.Address) error
	State(ctx context.Context) (State, error)
	Execute(ctx context.Context, fn func(s *State) error) error
}

// Service exposes ownership reads and the two-phase transfer operations.
type Service struct {
	store  Store
	logger *slog.Logger
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func NewService(store Store, opts ...Option) *Service {
	s := &Service{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Owner returns the current owner address.
func (s *Service) Owner(ctx context.Context) (domain.Address, error) {
	st, err := s.store.State(ctx)
	if err != nil {
		return domain.Address{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read ownership state")
	}
	return st.Owner, nil
}

// PendingOwner returns the nominee, or the zero address when none is set.
func (s *Service) PendingOwner(ctx context.Context) (domain.Address, error) {
	st, err := s.store.State(ctx)
	if err != nil {
		return domain.Address{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read ownership state")
	}
	return st.PendingOwner, nil
}

// IsOwner reports whether addr is the current owner.
func (s *Service) IsOwner(ctx context.Context, addr domain.Address) (bool, error) {
	st, err := s.store.State(ctx)
	if err != nil {
		return false, err
	}
	return !addr.IsZero() && addr == st.Owner, nil
}

// RequireOwner rejects with unauthorized unless the context caller is the
// current owner.
func (s *Service) RequireOwner(ctx context.Context) error {
	caller := requestcontext.Caller(ctx)
	isOwner, err := s.IsOwner(ctx, caller)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check owner role")
	}
	if !isOwner {
		return dErrors.New(dErrors.CodeUnauthorized, "caller is not the owner")
	}
	return nil
}

// TransferOwnership nominates a new owner. Owner-only; replaces any prior
// nominee so at most one is pending.
func (s *Service) TransferOwnership(ctx context.Context, newOwner domain.Address) error {
	caller := requestcontext.Caller(ctx)
	if newOwner.IsZero() {
		return dErrors.New(dErrors.CodeValidation, "new owner address is required")
	}
	err := s.store.Execute(ctx, func(st *State) error {
		if caller != st.Owner {
			return dErrors.New(dErrors.CodeUnauthorized, "caller is not the owner")
		}
		st.PendingOwner = newOwner
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "ownership transfer nominated",
		"request_id", requestcontext.RequestID(ctx),
		"owner", caller,
		"pending_owner", newOwner,
	)
	return nil
}

// ClaimOwnership finalizes a pending transfer. Only the nominee may claim;
// on success the nomination clears and the old owner loses all privileges.
func (s *Service) ClaimOwnership(ctx context.Context) error {
	caller := requestcontext.Caller(ctx)
	err := s.store.Execute(ctx, func(st *State) error {
		if caller.IsZero() || caller != st.PendingOwner {
			return dErrors.New(dErrors.CodeUnauthorized, "caller is not the pending owner")
		}
		st.Owner = caller
		st.PendingOwner = domain.Address{}
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "ownership transfer claimed",
		"request_id", requestcontext.RequestID(ctx),
		"owner", caller,
	)
	return nil
}
