// Package models holds the attribute record shapes persisted by the
// registry store.
package models

import (
	"math/big"
	"time"

	"custos/pkg/domain"
)

// AttributeRecord is the full state stored for one (subject, key) pair.
// Absence of a record is equivalent to the zero record: value 0, zero
// notes, zero admin address, zero timestamp. Records are overwritten in
// full on every accepted write and never deleted.
type AttributeRecord struct {
	Value        *big.Int
	Notes        domain.Notes
	AdminAddress domain.Address
	Timestamp    time.Time
}

// ZeroRecord is what reads return for a pair that has never been written.
func ZeroRecord() AttributeRecord {
	return AttributeRecord{Value: new(big.Int)}
}

// Has reports whether the record carries a boolean-style "set" value.
// Role attributes store account references, so callers must test the
// value, not physical record presence.
func (r AttributeRecord) Has() bool {
	return r.Value != nil && r.Value.Sign() != 0
}

// Clone returns a deep copy so store internals never alias caller-held
// big.Int values.
func (r AttributeRecord) Clone() AttributeRecord {
	out := r
	if r.Value != nil {
		out.Value = new(big.Int).Set(r.Value)
	} else {
		out.Value = new(big.Int)
	}
	return out
}
