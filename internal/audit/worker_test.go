package audit

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"custos/pkg/domain"
	"custos/pkg/requestcontext"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestPublisherStampsEvents(t *testing.T) {
	p := NewPublisher(4)
	at := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	ctx := requestcontext.WithTime(context.Background(), at)

	require.NoError(t, p.Emit(ctx, Event{
		Action:  ActionSetAttribute,
		Subject: domain.Address{0x01},
		Value:   big.NewInt(1),
	}))

	e := <-p.Inbox()
	assert.NotEqual(t, uuid.Nil, e.ID)
	assert.Equal(t, at, e.Timestamp)
}

func TestWorkerPersistsAndForwards(t *testing.T) {
	p := NewPublisher(4)
	store := NewInMemoryStore()
	sink := &recordingSink{}
	w := NewWorker(store, sink, p.Inbox(), testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Run(ctx) }()

	subject := domain.Address{0x01}
	require.NoError(t, p.Emit(ctx, Event{
		Action:  ActionSetAttributeValue,
		Subject: subject,
		Key:     domain.KeyIsBlacklisted,
		Value:   big.NewInt(1),
	}))

	waitFor(t, func() bool { return len(store.All()) == 1 })

	events, err := store.ListBySubject(ctx, subject)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, ActionSetAttributeValue, events[0].Action)

	waitFor(t, func() bool { return sink.count() == 1 })
}

func TestWorkerKeepsDrainingOnSinkFailure(t *testing.T) {
	p := NewPublisher(4)
	store := NewInMemoryStore()
	sink := &recordingSink{err: errors.New("broker down")}
	w := NewWorker(store, sink, p.Inbox(), testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Run(ctx) }()

	for i := 0; i < 3; i++ {
		require.NoError(t, p.Emit(ctx, Event{
			Action:  ActionResync,
			Subject: domain.Address{byte(i + 1)},
		}))
	}

	// Sink failures must not block persistence.
	waitFor(t, func() bool { return len(store.All()) == 3 })
}

type recordingSink struct {
	mu     sync.Mutex
	events []Event
	err    error
}

func (s *recordingSink) Publish(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, event)
	return nil
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}
