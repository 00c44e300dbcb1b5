// Package store persists attribute records keyed by (subject, key).
package store

import (
	"context"

	"custos/internal/registry/models"
	"custos/pkg/domain"
)

// Reader is the read side shared by the service, the access controller,
// the address resolver, and the authorization engine.
type Reader interface {
	// Get returns the stored record, or sentinel.ErrNotFound when the pair
	// has never been written.
	Get(ctx context.Context, subject domain.Address, key domain.AttributeKey) (models.AttributeRecord, error)
}

// Store is the full attribute persistence contract. Put stages a record and
// reports the previous state so the service can roll back if the downstream
// sync push aborts the transition.
type Store interface {
	Reader

	// Put replaces the record for (subject, key) and returns the previous
	// record plus whether one existed.
	Put(ctx context.Context, subject domain.Address, key domain.AttributeKey, rec models.AttributeRecord) (prev models.AttributeRecord, existed bool, err error)

	// Restore reverts a staged Put: it reinstates prev when a record existed
	// before, and removes the staged record otherwise. Only the write
	// pipeline calls this; records are never deleted through the public API.
	Restore(ctx context.Context, subject domain.Address, key domain.AttributeKey, prev models.AttributeRecord, existed bool) error
}
