package workload

import (
	"time"

	"github.com/viant/afs"
)

type Option func(*Service)

// WithFS sets the storage service used to download workloads
func WithFS(fs afs.Service) Option {
	return func(s *Service) {
		s.fs = fs
	}
}

// WithSafepoint sets the stop check interval of loaded plans
func WithSafepoint(interval time.Duration) Option {
	return func(s *Service) {
		s.safepoint = interval
	}
}
