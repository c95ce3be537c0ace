package event

import "time"

// Type represents job lifecycle event type
type Type string

const (
	TypeQueued   Type = "queued"
	TypeStarted  Type = "started"
	TypeFinished Type = "finished"
	TypeFailed   Type = "failed"
	TypeStopped  Type = "stopped"
)

// Context describes the job an event refers to
type Context struct {
	JobID       string `json:"jobID"`
	SessionID   string `json:"sessionID,omitempty"`
	Kind        string `json:"kind"`
	EventType   Type   `json:"eventType"`
	Locks       string `json:"locks,omitempty"`
	TimeTakenMs int    `json:"timeTakenMs,omitempty"`
}

// Event represents a typed event
type Event[T any] struct {
	ID        string                 `json:"id"`
	Context   *Context               `json:"context"`
	CreatedAt time.Time              `json:"createdAt"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Data      T                      `json:"data"`
}

// NewEvent creates an event
func NewEvent[T any](context *Context, data T) *Event[T] {
	return &Event[T]{
		Context:  context,
		Metadata: make(map[string]interface{}),
		Data:     data,
	}
}
