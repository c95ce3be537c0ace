package jobgate

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/viant/afs"
	"github.com/viant/jobgate/metrics"
	"github.com/viant/jobgate/progress"
	"github.com/viant/jobgate/runtime/job"
	"github.com/viant/jobgate/service/control"
	"github.com/viant/jobgate/service/dao/job/memory"
	"github.com/viant/jobgate/service/dao/workload"
	"github.com/viant/jobgate/service/event"
	"github.com/viant/jobgate/service/lock"
	mmemory "github.com/viant/jobgate/service/messaging/memory"
	"github.com/viant/jobgate/service/scheduler"
	"github.com/viant/jobgate/service/session"
	"github.com/viant/jobgate/tracing"
	"go.uber.org/zap"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Service wires the job runtime
type Service struct {
	runtime      *Runtime
	config       *Config
	logger       *zap.Logger
	parallel     *int
	eventHandler event.Handler[*job.Detail]
	registerer   prometheus.Registerer
	fs           afs.Service
	tracing      *TracingConfig
	exporter     sdktrace.SpanExporter
}

// New creates a service
func New(options ...Option) (*Service, error) {
	ret := &Service{config: DefaultConfig(), runtime: &Runtime{}}
	if err := ret.init(options); err != nil {
		return nil, err
	}
	return ret, nil
}

func (s *Service) init(options []Option) error {
	for _, option := range options {
		option(s)
	}
	config := *s.config
	if s.parallel != nil {
		config.Parallel = *s.parallel
	}
	if s.tracing != nil {
		config.Tracing = *s.tracing
	}
	if err := config.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	s.config = &config
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if err := s.initTracing(); err != nil {
		return err
	}

	rt := s.runtime
	rt.config = s.config
	rt.logger = s.logger
	rt.progress = progress.New()
	registry, err := memory.New(memory.WithRetention(s.config.Retention))
	if err != nil {
		return err
	}
	if s.registerer != nil {
		rt.metrics = metrics.New(rt.progress)
		if err = rt.metrics.Register(s.registerer); err != nil {
			return fmt.Errorf("failed to register metrics: %w", err)
		}
		rt.registerer = s.registerer
	}
	if s.eventHandler != nil {
		rt.events = event.New(context.Background(), mmemory.DefaultConfig(), s.eventHandler, event.WithLogger(s.logger))
	}
	rt.scheduler, err = scheduler.New(
		scheduler.WithParallel(s.config.Parallel),
		scheduler.WithRegistry(registry),
		scheduler.WithLockManager(lock.New()),
		scheduler.WithLogger(s.logger),
		scheduler.WithProgress(rt.progress),
		scheduler.WithMetrics(rt.metrics),
		scheduler.WithEvents(rt.events))
	if err != nil {
		return err
	}
	rt.control = control.New(rt.scheduler)
	rt.sessions = session.New(rt.control, session.WithLogger(s.logger))
	var workloadOptions = []workload.Option{workload.WithSafepoint(s.config.Safepoint)}
	if s.fs != nil {
		workloadOptions = append(workloadOptions, workload.WithFS(s.fs))
	}
	rt.workloads = workload.New(workloadOptions...)
	return nil
}

func (s *Service) initTracing() error {
	cfg := s.config.Tracing
	if !cfg.Enabled {
		return nil
	}
	if s.exporter != nil {
		return tracing.InitWithExporter(cfg.ServiceName, cfg.ServiceVersion, s.exporter)
	}
	return tracing.Init(cfg.ServiceName, cfg.ServiceVersion, cfg.OutputFile)
}

// Runtime returns the runtime
func (s *Service) Runtime() *Runtime {
	return s.runtime
}

// Config returns the effective configuration
func (s *Service) Config() *Config {
	return s.config
}

// Logger returns the logger
func (s *Service) Logger() *zap.Logger {
	return s.logger
}
