package mirror

import (
	"context"
	"math/big"
	"sync"

	"custos/pkg/domain"
)

type memoryPair struct {
	subject domain.Address
	key     domain.AttributeKey
}

// MemoryTarget is an in-process consumer for tests and local runs.
type MemoryTarget struct {
	mu     sync.RWMutex
	values map[memoryPair]*big.Int

	// FailNext makes the next push return ErrPushFailed, letting tests
	// exercise the write-path rollback.
	FailNext bool
}

// ErrPushFailed is returned by MemoryTarget when FailNext is armed.
var ErrPushFailed = errPushFailed{}

type errPushFailed struct{}

func (errPushFailed) Error() string { return "mirror push failed" }

func NewMemoryTarget() *MemoryTarget {
	return &MemoryTarget{values: make(map[memoryPair]*big.Int)}
}

func (t *MemoryTarget) Name() string { return "memory" }

func (t *MemoryTarget) SetAttributeValue(_ context.Context, subject domain.Address, key domain.AttributeKey, value *big.Int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.FailNext {
		t.FailNext = false
		return ErrPushFailed
	}
	v := new(big.Int)
	if value != nil {
		v.Set(value)
	}
	t.values[memoryPair{subject, key}] = v
	return nil
}

// Value returns the mirrored value, zero when never pushed.
func (t *MemoryTarget) Value(subject domain.Address, key domain.AttributeKey) *big.Int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if v, ok := t.values[memoryPair{subject, key}]; ok {
		return new(big.Int).Set(v)
	}
	return new(big.Int)
}

// Len reports how many (subject, key) pairs have been pushed.
func (t *MemoryTarget) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.values)
}
