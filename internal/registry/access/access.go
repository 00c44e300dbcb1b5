// Package access decides whether a caller may write a given attribute key.
//
// The model is capability-style: the owner may write anything, and any other
// account must hold a non-zero value under the delegated-write key derived
// from the base key. Grants are themselves attribute writes under the
// derived key, so only the owner can mint them and delegates cannot
// re-delegate.
package access

import (
	"context"
	"errors"

	"golang.org/x/crypto/sha3"

	"custos/internal/registry/models"
	dErrors "custos/pkg/domain-errors"
	"custos/pkg/domain"
	"custos/pkg/platform/sentinel"
)

// delegationTag domain-separates derived capability keys from every literal
// attribute key a writer could choose.
const delegationTag = "canWriteTo"

// DelegatedWriteKey derives the capability key for base key k: Keccak-256
// over the domain tag and the full key bytes. Holding a non-zero value
// under this key grants write access to k for any subject.
func DelegatedWriteKey(k domain.AttributeKey) domain.AttributeKey {
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(delegationTag))
	h.Write(k[:])
	var out domain.AttributeKey
	h.Sum(out[:0])
	return out
}

// OwnerChecker reports whether an address currently holds the owner role.
type OwnerChecker interface {
	IsOwner(ctx context.Context, addr domain.Address) (bool, error)
}

// RecordReader is the attribute read side the controller consults for
// delegated grants.
type RecordReader interface {
	Get(ctx context.Context, subject domain.Address, key domain.AttributeKey) (models.AttributeRecord, error)
}

// Controller evaluates write authorization for attribute keys.
type Controller struct {
	owner   OwnerChecker
	records RecordReader
}

func NewController(owner OwnerChecker, records RecordReader) *Controller {
	return &Controller{owner: owner, records: records}
}

// CanWrite returns nil when caller may write key, or an unauthorized domain
// error. The owner passes unconditionally; everyone else needs a non-zero
// delegated grant.
func (c *Controller) CanWrite(ctx context.Context, caller domain.Address, key domain.AttributeKey) error {
	isOwner, err := c.owner.IsOwner(ctx, caller)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check owner role")
	}
	if isOwner {
		return nil
	}

	rec, err := c.records.Get(ctx, caller, DelegatedWriteKey(key))
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeUnauthorized, "caller lacks write capability for attribute key")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check delegated write grant")
	}
	if !rec.Has() {
		return dErrors.New(dErrors.CodeUnauthorized, "caller lacks write capability for attribute key")
	}
	return nil
}
