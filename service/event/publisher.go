package event

import (
	"context"

	"github.com/viant/jobgate/internal/clock"
	"github.com/viant/jobgate/internal/idgen"
	"github.com/viant/jobgate/service/messaging"
)

// Publisher publishes typed events to a queue
type Publisher[T any] struct {
	queue messaging.Queue[Event[T]]
}

// NewPublisher creates a publisher
func NewPublisher[T any](queue messaging.Queue[Event[T]]) *Publisher[T] {
	return &Publisher[T]{queue: queue}
}

// Publish stamps and enqueues the event
func (p *Publisher[T]) Publish(ctx context.Context, event *Event[T]) error {
	if event.ID == "" {
		event.ID = idgen.New()
	}
	event.CreatedAt = clock.Now()
	return p.queue.Publish(ctx, event)
}
