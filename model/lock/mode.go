package lock

import (
	"fmt"
	"strings"
)

// Mode represents lock access mode
type Mode int

const (
	// Read allows any number of concurrent readers
	Read Mode = iota + 1
	// Write requires exclusive access
	Write
)

// IsValid returns true for a known mode
func (m Mode) IsValid() bool {
	return m == Read || m == Write
}

// Conflicts reports whether two holders in the given modes can not share a resource.
func (m Mode) Conflicts(other Mode) bool {
	return m == Write || other == Write
}

func (m Mode) String() string {
	switch m {
	case Read:
		return "read"
	case Write:
		return "write"
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

// ParseMode parses "read" or "write" (case-insensitive)
func ParseMode(text string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "read", "r":
		return Read, nil
	case "write", "w":
		return Write, nil
	}
	return 0, fmt.Errorf("unsupported lock mode: %q", text)
}
