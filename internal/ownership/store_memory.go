package ownership

import (
	"context"
	"sync"

	dErrors "custos/pkg/domain-errors"
	"custos/pkg/domain"
)

// InMemoryStore holds the ownership singleton behind a mutex. Init runs
// exactly once, at boot, with the configured owner.
type InMemoryStore struct {
	mu          sync.Mutex
	state       State
	initialized bool
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Init(_ context.Context, owner domain.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.initialized {
		return dErrors.New(dErrors.CodeAlreadyInitialized, "ownership store already initialized")
	}
	if owner.IsZero() {
		return dErrors.New(dErrors.CodeValidation, "owner address is required")
	}
	s.state = State{Owner: owner}
	s.initialized = true
	return nil
}

func (s *InMemoryStore) State(_ context.Context) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state, nil
}

func (s *InMemoryStore) Execute(_ context.Context, fn func(st *State) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.state
	if err := fn(&next); err != nil {
		return err
	}
	s.state = next
	return nil
}
