// Package authz composes attribute lookups into the authorization
// predicates the ledger must consult before transfers, minting, and
// burning. Each predicate is a short-circuit decision pipeline: the first
// failing screen aborts the enclosing operation with a decisive error.
package authz

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	authzmetrics "custos/internal/authz/metrics"
	"custos/internal/registry/models"
	dErrors "custos/pkg/domain-errors"
	"custos/pkg/domain"
	"custos/pkg/platform/sentinel"
)

// RecordReader is the attribute read side the engine screens against.
type RecordReader interface {
	Get(ctx context.Context, subject domain.Address, key domain.AttributeKey) (models.AttributeRecord, error)
}

// AddressResolver maps deposit addresses to canonical accounts.
type AddressResolver interface {
	Resolve(ctx context.Context, addr domain.Address) (domain.Address, error)
}

// TransferAuthorization is the pass result of transfer/mint predicates. The
// ledger uses ResolvedTo for settlement and the registered-contract flag to
// pick downstream behavior such as fee handling.
type TransferAuthorization struct {
	ResolvedTo           domain.Address
	ToRegisteredContract bool
}

// Engine evaluates authorization predicates against the attribute store.
type Engine struct {
	records  RecordReader
	resolver AddressResolver
	metrics  *authzmetrics.Metrics
	tracer   trace.Tracer
}

type Option func(e *Engine)

func WithMetrics(m *authzmetrics.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

func NewEngine(records RecordReader, resolver AddressResolver, opts ...Option) *Engine {
	e := &Engine{
		records:  records,
		resolver: resolver,
		tracer:   otel.Tracer("custos/authz"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// CanTransfer screens an ordinary transfer: the sender must not be
// blacklisted, and neither may the resolved recipient. No KYC is required
// for transfers.
func (e *Engine) CanTransfer(ctx context.Context, sender, to domain.Address) (TransferAuthorization, error) {
	ctx, span := e.tracer.Start(ctx, "authz.CanTransfer")
	defer span.End()
	auth, err := e.canTransfer(ctx, sender, to)
	return e.observe("can_transfer", auth, err)
}

// CanTransferFrom screens a delegated transfer: the initiating spender is
// screened first, then the funds holder and the resolved recipient.
func (e *Engine) CanTransferFrom(ctx context.Context, spender, from, to domain.Address) (TransferAuthorization, error) {
	ctx, span := e.tracer.Start(ctx, "authz.CanTransferFrom")
	defer span.End()

	blacklisted, err := e.has(ctx, spender, domain.KeyIsBlacklisted)
	if err != nil {
		return e.observe("can_transfer_from", TransferAuthorization{}, err)
	}
	if blacklisted {
		return e.observe("can_transfer_from", TransferAuthorization{},
			dErrors.New(dErrors.CodeBlacklisted, "spender is blacklisted"))
	}
	auth, err := e.canTransfer(ctx, from, to)
	return e.observe("can_transfer_from", auth, err)
}

func (e *Engine) canTransfer(ctx context.Context, sender, to domain.Address) (TransferAuthorization, error) {
	blacklisted, err := e.has(ctx, sender, domain.KeyIsBlacklisted)
	if err != nil {
		return TransferAuthorization{}, err
	}
	if blacklisted {
		return TransferAuthorization{}, dErrors.New(dErrors.CodeBlacklisted, "sender is blacklisted")
	}

	resolvedTo, err := e.resolver.Resolve(ctx, to)
	if err != nil {
		return TransferAuthorization{}, err
	}

	blacklisted, err = e.has(ctx, resolvedTo, domain.KeyIsBlacklisted)
	if err != nil {
		return TransferAuthorization{}, err
	}
	if blacklisted {
		return TransferAuthorization{}, dErrors.New(dErrors.CodeBlacklisted, "recipient is blacklisted")
	}

	registered, err := e.has(ctx, resolvedTo, domain.KeyIsRegisteredContract)
	if err != nil {
		return TransferAuthorization{}, err
	}
	return TransferAuthorization{ResolvedTo: resolvedTo, ToRegisteredContract: registered}, nil
}

// CanMint requires the resolved recipient to hold the KYC/AML attestation
// and to pass the blacklist screen. Compliance is administered on the
// canonical account, so a deposit address inherits its KYC status.
func (e *Engine) CanMint(ctx context.Context, to domain.Address) (TransferAuthorization, error) {
	ctx, span := e.tracer.Start(ctx, "authz.CanMint")
	defer span.End()

	resolvedTo, err := e.resolver.Resolve(ctx, to)
	if err != nil {
		return e.observe("can_mint", TransferAuthorization{}, err)
	}

	passed, err := e.has(ctx, resolvedTo, domain.KeyHasPassedKYCAML)
	if err != nil {
		return e.observe("can_mint", TransferAuthorization{}, err)
	}
	if !passed {
		return e.observe("can_mint", TransferAuthorization{},
			dErrors.New(dErrors.CodeComplianceNotMet, "recipient has not passed KYC/AML"))
	}

	blacklisted, err := e.has(ctx, resolvedTo, domain.KeyIsBlacklisted)
	if err != nil {
		return e.observe("can_mint", TransferAuthorization{}, err)
	}
	if blacklisted {
		return e.observe("can_mint", TransferAuthorization{},
			dErrors.New(dErrors.CodeBlacklisted, "recipient is blacklisted"))
	}

	registered, err := e.has(ctx, resolvedTo, domain.KeyIsRegisteredContract)
	if err != nil {
		return e.observe("can_mint", TransferAuthorization{}, err)
	}
	return e.observe("can_mint",
		TransferAuthorization{ResolvedTo: resolvedTo, ToRegisteredContract: registered}, nil)
}

// CanBurn requires the literal from address to hold the burn capability and
// to pass the blacklist screen. Burning is not deposit-address-aware.
func (e *Engine) CanBurn(ctx context.Context, from domain.Address) error {
	ctx, span := e.tracer.Start(ctx, "authz.CanBurn")
	defer span.End()

	canBurn, err := e.has(ctx, from, domain.KeyCanBurn)
	if err != nil {
		_, err = e.observe("can_burn", TransferAuthorization{}, err)
		return err
	}
	if !canBurn {
		_, err = e.observe("can_burn", TransferAuthorization{},
			dErrors.New(dErrors.CodeComplianceNotMet, "account lacks burn capability"))
		return err
	}

	blacklisted, err := e.has(ctx, from, domain.KeyIsBlacklisted)
	if err != nil {
		_, err = e.observe("can_burn", TransferAuthorization{}, err)
		return err
	}
	if blacklisted {
		_, err = e.observe("can_burn", TransferAuthorization{},
			dErrors.New(dErrors.CodeBlacklisted, "account is blacklisted"))
		return err
	}
	_, err = e.observe("can_burn", TransferAuthorization{}, nil)
	return err
}

func (e *Engine) has(ctx context.Context, subject domain.Address, key domain.AttributeKey) (bool, error) {
	rec, err := e.records.Get(ctx, subject, key)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return false, nil
		}
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read attribute")
	}
	return rec.Has(), nil
}

func (e *Engine) observe(predicate string, auth TransferAuthorization, err error) (TransferAuthorization, error) {
	switch {
	case err == nil:
		e.metrics.ObserveDecision(predicate, "allowed")
	case dErrors.HasCode(err, dErrors.CodeBlacklisted):
		e.metrics.ObserveDecision(predicate, "blacklisted")
	case dErrors.HasCode(err, dErrors.CodeComplianceNotMet):
		e.metrics.ObserveDecision(predicate, "compliance_not_met")
	default:
		e.metrics.ObserveDecision(predicate, "error")
	}
	return auth, err
}
