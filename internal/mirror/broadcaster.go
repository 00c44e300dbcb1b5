// Package mirror keeps one registered downstream consumer synchronized with
// attribute writes. The broadcaster pushes every accepted write to the
// current target inside the same transition as the write itself; bulk
// resync backfills a newly registered target with pre-existing data.
package mirror

import (
	"context"
	"io"
	"math/big"
	"sync"

	"custos/pkg/domain"
)

// Target is the downstream consumer's setter. Implementations must treat a
// push as the authoritative current value for (subject, key).
type Target interface {
	SetAttributeValue(ctx context.Context, subject domain.Address, key domain.AttributeKey, value *big.Int) error
	Name() string
}

// Broadcaster holds at most one target and forwards attribute values to it.
// With no target registered, pushes are no-ops rather than errors.
type Broadcaster struct {
	mu     sync.RWMutex
	target Target
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{}
}

// SetTarget replaces the registered consumer and releases the displaced
// one's connection when it holds one. Writes already pushed to the old
// target are not replayed; use Resync for backfill.
func (b *Broadcaster) SetTarget(target Target) {
	b.mu.Lock()
	displaced := b.target
	b.target = target
	b.mu.Unlock()

	if displaced == nil || displaced == target {
		return
	}
	if closer, ok := displaced.(io.Closer); ok {
		_ = closer.Close()
	}
}

// Target returns the current consumer, or nil.
func (b *Broadcaster) Target() Target {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.target
}

// Push forwards (subject, key, value) to the current target. A push error
// aborts the enclosing write transition, so callers roll back local state
// when this fails.
func (b *Broadcaster) Push(ctx context.Context, subject domain.Address, key domain.AttributeKey, value *big.Int) error {
	target := b.Target()
	if target == nil {
		return nil
	}
	return target.SetAttributeValue(ctx, subject, key, value)
}
