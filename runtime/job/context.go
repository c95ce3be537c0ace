package job

import (
	"context"
	"reflect"
)

// Context is handed to a running unit of work. It carries the job and its
// cancellation token; the embedded context is cancelled on stop.
type Context struct {
	job *Job
	context.Context
}

// Key is the context key of the running job
var Key = KeyOf[*Job]()

// NewContext binds ctx to j; the returned cancel func must be called once the
// unit returns.
func NewContext(ctx context.Context, j *Job) (*Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	bound, cancel := j.token.bind(ctx)
	return &Context{job: j, Context: bound}, cancel
}

// Job returns the running job
func (c *Context) Job() *Job {
	return c.job
}

// Safepoint returns ErrStopped once stop was requested
func (c *Context) Safepoint() error {
	if c.job.token.Stopped() {
		return ErrStopped
	}
	return nil
}

func (c *Context) Value(key any) any {
	if key == Key {
		return c.job
	}
	return c.Context.Value(key)
}

// FromContext returns the job executing under ctx or nil
func FromContext(ctx context.Context) *Job {
	if ctx == nil {
		return nil
	}
	if j, ok := ctx.Value(Key).(*Job); ok {
		return j
	}
	return nil
}

// KeyOf returns the reflect.Type of the provided type
func KeyOf[T any]() reflect.Type {
	var a T
	return reflect.TypeOf(a)
}
