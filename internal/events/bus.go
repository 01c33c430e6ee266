// Package events carries lifecycle notifications from the services to the
// delivery sinks. Services publish after their writes land; delivery is
// best-effort and never feeds back into the operation that produced the
// event.
package events

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/learnloop/tutor_marketplace/internal/model"
)

// Event is one outbound notification.
type Event struct {
	UserID  string
	Message string
	Link    string
	Kind    model.NotificationKind
}

// Sink delivers an event to one channel (database, Telegram, ...).
type Sink interface {
	Deliver(ctx context.Context, event Event) error
}

const deliverTimeout = 10 * time.Second

// Bus fans events out to the configured sinks from a single worker
// goroutine. A full buffer drops the event rather than block the caller.
type Bus struct {
	ch     chan Event
	sinks  []Sink
	logger *zap.Logger
	wg     sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

func NewBus(logger *zap.Logger, sinks ...Sink) *Bus {
	b := &Bus{
		ch:     make(chan Event, 256),
		sinks:  sinks,
		logger: logger,
	}

	b.wg.Add(1)
	go b.run()

	return b
}

// Publish enqueues an event. Safe to call from any goroutine; never blocks.
func (b *Bus) Publish(event Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}

	select {
	case b.ch <- event:
	default:
		b.logger.Warn("Notification dropped, bus buffer full",
			zap.String("user_id", event.UserID),
			zap.String("kind", string(event.Kind)),
		)
	}
}

// Close drains pending events and stops the worker.
func (b *Bus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	close(b.ch)
	b.mu.Unlock()

	b.wg.Wait()
}

func (b *Bus) run() {
	defer b.wg.Done()

	for event := range b.ch {
		for _, sink := range b.sinks {
			ctx, cancel := context.WithTimeout(context.Background(), deliverTimeout)
			if err := sink.Deliver(ctx, event); err != nil {
				b.logger.Warn("Notification delivery failed",
					zap.String("user_id", event.UserID),
					zap.String("kind", string(event.Kind)),
					zap.Error(err),
				)
			}
			cancel()
		}
	}
}
