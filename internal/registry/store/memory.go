package store

import (
	"context"
	"sync"

	"custos/internal/registry/models"
	"custos/pkg/domain"
	"custos/pkg/platform/sentinel"
)

type pairKey struct {
	subject domain.Address
	key     domain.AttributeKey
}

// InMemoryStore keeps attribute records in a mutex-guarded map. It is the
// default backend when no Postgres URL is configured and the fixture for
// unit tests.
type InMemoryStore struct {
	mu      sync.RWMutex
	records map[pairKey]models.AttributeRecord
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{records: make(map[pairKey]models.AttributeRecord)}
}

func (s *InMemoryStore) Get(_ context.Context, subject domain.Address, key domain.AttributeKey) (models.AttributeRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if rec, ok := s.records[pairKey{subject, key}]; ok {
		return rec.Clone(), nil
	}
	return models.AttributeRecord{}, sentinel.ErrNotFound
}

func (s *InMemoryStore) Put(_ context.Context, subject domain.Address, key domain.AttributeKey, rec models.AttributeRecord) (models.AttributeRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pk := pairKey{subject, key}
	prev, existed := s.records[pk]
	s.records[pk] = rec.Clone()
	if !existed {
		return models.AttributeRecord{}, false, nil
	}
	return prev.Clone(), true, nil
}

func (s *InMemoryStore) Restore(_ context.Context, subject domain.Address, key domain.AttributeKey, prev models.AttributeRecord, existed bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	pk := pairKey{subject, key}
	if !existed {
		delete(s.records, pk)
		return nil
	}
	s.records[pk] = prev.Clone()
	return nil
}
