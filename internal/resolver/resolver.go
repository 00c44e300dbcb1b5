// Package resolver maps deposit addresses to their canonical settlement
// account. Deposit addresses share a bucket prefix (the address with its
// low 5 bytes zeroed); one isDepositAddress mapping registered on the
// bucket covers the whole suffix range, so a custodian can route per-user
// deposit sub-addresses to one account without registering each.
package resolver

import (
	"context"
	"errors"

	"custos/internal/registry/models"
	dErrors "custos/pkg/domain-errors"
	"custos/pkg/domain"
	"custos/pkg/platform/sentinel"
)

// bucketSuffixLen is the number of low-order bytes zeroed to form the
// bucket prefix.
const bucketSuffixLen = 5

// RecordReader is the attribute read side consulted for mappings.
type RecordReader interface {
	Get(ctx context.Context, subject domain.Address, key domain.AttributeKey) (models.AttributeRecord, error)
}

// Resolver performs the single-hop deposit address lookup.
type Resolver struct {
	records RecordReader
}

func New(records RecordReader) *Resolver {
	return &Resolver{records: records}
}

// DepositBucket returns addr with its low 5 bytes zeroed. Two addresses
// differing only in those bytes share a bucket and resolve identically.
func DepositBucket(addr domain.Address) domain.Address {
	bucket := addr
	for i := domain.AddressLen - bucketSuffixLen; i < domain.AddressLen; i++ {
		bucket[i] = 0
	}
	return bucket
}

// Resolve returns the canonical account for addr: the account embedded in
// the bucket's isDepositAddress value when one is registered, addr itself
// otherwise. Resolution is a single hop; results are never re-resolved.
func (r *Resolver) Resolve(ctx context.Context, addr domain.Address) (domain.Address, error) {
	rec, err := r.records.Get(ctx, DepositBucket(addr), domain.KeyIsDepositAddress)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return addr, nil
		}
		return domain.Address{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve deposit address")
	}
	if !rec.Has() {
		return addr, nil
	}
	return domain.AddressFromValue(rec.Value), nil
}
