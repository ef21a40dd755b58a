package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"carbonledger/internal/platform/middleware"
)

// Publisher captures structured audit events. Emit is non-blocking: when the
// inbox is full the event is dropped and counted in the log rather than
// stalling the request path.
type Publisher struct {
	inbox  chan Event
	logger *slog.Logger
}

func NewPublisher(buffer int, logger *slog.Logger) *Publisher {
	if buffer <= 0 {
		buffer = 256
	}
	return &Publisher{
		inbox:  make(chan Event, buffer),
		logger: logger,
	}
}

// Emit queues an event. Safe to call on a nil publisher so services can run
// without auditing in tests. The actor defaults to the authenticated user on
// the context, falling back to "system" for background work.
func (p *Publisher) Emit(ctx context.Context, event Event) {
	if p == nil {
		return
	}
	if event.Actor == "" {
		event.Actor = middleware.GetUserID(ctx)
	}
	if event.Actor == "" {
		event.Actor = "system"
	}
	if event.ID == "" {
		event.ID = "evt_" + uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	select {
	case p.inbox <- event:
	default:
		p.logger.WarnContext(ctx, "audit inbox full, event dropped",
			"action", event.Action,
			"subject", event.Subject,
		)
	}
}

// Inbox exposes the receive side for the worker.
func (p *Publisher) Inbox() <-chan Event {
	return p.inbox
}
