// Package tracing wraps OpenTelemetry so that job execution can be traced
// without the scheduler importing the SDK directly. Until Init or
// InitWithExporter is called, spans are no-ops.
package tracing
