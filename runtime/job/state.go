package job

// State represents job lifecycle state
type State string

const (
	StateQueued   State = "queued"
	StateRunning  State = "running"
	StateFinished State = "finished"
	StateFailed   State = "failed"
	StateStopped  State = "stopped"
)

// IsTerminal returns true for finished, failed and stopped
func (s State) IsTerminal() bool {
	switch s {
	case StateFinished, StateFailed, StateStopped:
		return true
	}
	return false
}

// Kind distinguishes queries from administrative commands
type Kind string

const (
	KindQuery   Kind = "query"
	KindCommand Kind = "command"
)
