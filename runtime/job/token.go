package job

import (
	"context"
	"sync"
	"sync/atomic"
)

// Token is a set-once cancellation flag. Once stopped it can not be cleared.
type Token struct {
	stopped atomic.Bool
	once    sync.Once
	done    chan struct{}
	mux     sync.Mutex
	cancel  context.CancelFunc
}

// NewToken creates a token
func NewToken() *Token {
	return &Token{done: make(chan struct{})}
}

// Stop sets the flag; it returns true on the first call only
func (t *Token) Stop() bool {
	first := false
	t.once.Do(func() {
		first = true
		t.stopped.Store(true)
		close(t.done)
		t.mux.Lock()
		cancel := t.cancel
		t.mux.Unlock()
		if cancel != nil {
			cancel()
		}
	})
	return first
}

// Stopped returns true once stop was requested
func (t *Token) Stopped() bool {
	return t.stopped.Load()
}

// Done is closed when stop is requested
func (t *Token) Done() <-chan struct{} {
	return t.done
}

// bind derives a context cancelled when the token stops
func (t *Token) bind(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	t.mux.Lock()
	t.cancel = cancel
	t.mux.Unlock()
	if t.Stopped() {
		cancel()
	}
	return ctx, cancel
}
