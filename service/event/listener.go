package event

import (
	"context"
	"errors"
	"sync"

	"github.com/viant/jobgate/service/messaging"
	"go.uber.org/zap"
)

// Handler processes an event; an error requests redelivery
type Handler[T any] func(ctx context.Context, event *Event[T]) error

// Listener consumes events on its own goroutine
type Listener[T any] struct {
	queue   messaging.Queue[Event[T]]
	handler Handler[T]
	logger  *zap.Logger
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewListener creates a listener
func NewListener[T any](queue messaging.Queue[Event[T]], handler Handler[T], logger *zap.Logger) *Listener[T] {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Listener[T]{queue: queue, handler: handler, logger: logger}
}

// Start begins consuming
func (l *Listener[T]) Start(ctx context.Context) {
	ctx, l.cancel = context.WithCancel(ctx)
	l.wg.Add(1)
	go l.run(ctx)
}

func (l *Listener[T]) run(ctx context.Context) {
	defer l.wg.Done()
	for {
		msg, err := l.queue.Consume(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, messaging.ErrClosed) {
				return
			}
			l.logger.Warn("failed to consume event", zap.Error(err))
			continue
		}
		event := msg.T()
		if err = l.handler(ctx, event); err != nil {
			l.logger.Warn("event handler failed",
				zap.String("event.id", event.ID),
				zap.String("job.id", event.Context.JobID),
				zap.Error(err))
			_ = msg.Nack(err)
			continue
		}
		_ = msg.Ack()
	}
}

// Stop terminates consumption and waits for the goroutine to exit
func (l *Listener[T]) Stop() {
	if l.cancel != nil {
		l.cancel()
	}
	l.wg.Wait()
}
