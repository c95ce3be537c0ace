package jobgate

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/viant/afs"
	"github.com/viant/jobgate/runtime/job"
	"github.com/viant/jobgate/service/event"
	"go.uber.org/zap"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Option customises the service
type Option func(s *Service)

// WithConfig sets the configuration
func WithConfig(config *Config) Option {
	return func(s *Service) {
		if config != nil {
			s.config = config
		}
	}
}

// WithLogger sets the logger, a no-op logger is used by default
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithParallel sets the maximum number of running locking jobs
func WithParallel(parallel int) Option {
	return func(s *Service) {
		s.parallel = &parallel
	}
}

// WithEventListener registers a handler receiving job lifecycle events
func WithEventListener(handler event.Handler[*job.Detail]) Option {
	return func(s *Service) {
		s.eventHandler = handler
	}
}

// WithMetricsRegisterer exposes job metrics through registerer
func WithMetricsRegisterer(registerer prometheus.Registerer) Option {
	return func(s *Service) {
		s.registerer = registerer
	}
}

// WithFS sets the storage service used to load workloads
func WithFS(fs afs.Service) Option {
	return func(s *Service) {
		s.fs = fs
	}
}

// WithTracing configures OpenTelemetry tracing with the stdout exporter. If
// outputFile is empty spans are written to stdout. The first successful
// initialisation wins.
func WithTracing(serviceName, serviceVersion, outputFile string) Option {
	return func(s *Service) {
		s.tracing = &TracingConfig{Enabled: true, ServiceName: serviceName, ServiceVersion: serviceVersion, OutputFile: outputFile}
	}
}

// WithTracingExporter configures OpenTelemetry tracing using a custom exporter
func WithTracingExporter(serviceName, serviceVersion string, exporter sdktrace.SpanExporter) Option {
	return func(s *Service) {
		s.tracing = &TracingConfig{Enabled: true, ServiceName: serviceName, ServiceVersion: serviceVersion}
		s.exporter = exporter
	}
}
