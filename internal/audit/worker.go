package audit

import (
	"context"
	"log/slog"
)

// Sink forwards events to an external log, e.g. a Kafka topic.
type Sink interface {
	Publish(ctx context.Context, event Event) error
}

// Worker consumes change events from the publisher channel, persists them,
// and forwards them to the optional sink. Persistence and sink failures are
// logged, not fatal: the registry write already committed, and the log must
// keep draining.
type Worker struct {
	store  Store
	sink   Sink
	inbox  <-chan Event
	logger *slog.Logger
}

func NewWorker(store Store, sink Sink, inbox <-chan Event, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{store: store, sink: sink, inbox: inbox, logger: logger}
}

func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-w.inbox:
			if err := w.store.Append(ctx, event); err != nil {
				w.logger.ErrorContext(ctx, "failed to append audit event",
					"event_id", event.ID,
					"subject", event.Subject,
					"error", err,
				)
			}
			if w.sink == nil {
				continue
			}
			if err := w.sink.Publish(ctx, event); err != nil {
				w.logger.ErrorContext(ctx, "failed to publish audit event",
					"event_id", event.ID,
					"subject", event.Subject,
					"error", err,
				)
			}
		}
	}
}
