package audit

import (
	"context"

	"github.com/google/uuid"

	"custos/pkg/requestcontext"
)

// Publisher hands change events to the background worker through a buffered
// channel. Enqueueing is in-process and cannot fail short of context
// cancellation, which keeps "accepted write implies event" intact without
// coupling the write path to sink availability.
type Publisher struct {
	inbox chan Event
}

// NewPublisher allocates a publisher with the given buffer depth.
func NewPublisher(buffer int) *Publisher {
	if buffer <= 0 {
		buffer = 256
	}
	return &Publisher{inbox: make(chan Event, buffer)}
}

// Emit stamps missing identity/time fields and enqueues the event.
func (p *Publisher) Emit(ctx context.Context, event Event) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx)
	}
	select {
	case p.inbox <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Inbox exposes the receive side for the worker.
func (p *Publisher) Inbox() <-chan Event {
	return p.inbox
}
