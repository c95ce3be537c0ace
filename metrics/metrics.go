// Package metrics exposes scheduler progress as prometheus collectors.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/viant/jobgate/progress"
)

const namespace = "jobgate"

// Metrics holds the collectors bound to one progress tracker
type Metrics struct {
	collectors    []prometheus.Collector
	admissionWait prometheus.Histogram
	runDuration   *prometheus.HistogramVec
}

func gauge(name, help string, value func(c progress.Counters) int) func(tracker *progress.Progress) prometheus.Collector {
	return func(tracker *progress.Progress) prometheus.Collector {
		return prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      name,
			Help:      help,
		}, func() float64 { return float64(value(tracker.Snapshot())) })
	}
}

func counter(name, help string, value func(c progress.Counters) int) func(tracker *progress.Progress) prometheus.Collector {
	return func(tracker *progress.Progress) prometheus.Collector {
		return prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      name,
			Help:      help,
		}, func() float64 { return float64(value(tracker.Snapshot())) })
	}
}

var progressCollectors = []func(tracker *progress.Progress) prometheus.Collector{
	gauge("jobs_queued", "Number of jobs waiting for admission.", func(c progress.Counters) int { return c.Queued }),
	gauge("jobs_running", "Number of jobs currently running.", func(c progress.Counters) int { return c.Running }),
	gauge("jobs_running_locking", "Number of running jobs counted against the parallel bound.", func(c progress.Counters) int { return c.Locking }),
	counter("jobs_submitted_total", "Total number of submitted jobs.", func(c progress.Counters) int { return c.Submitted }),
	counter("jobs_finished_total", "Total number of jobs that finished successfully.", func(c progress.Counters) int { return c.Finished }),
	counter("jobs_failed_total", "Total number of jobs that failed.", func(c progress.Counters) int { return c.Failed }),
	counter("jobs_stopped_total", "Total number of stopped jobs.", func(c progress.Counters) int { return c.Stopped }),
}

// New creates collectors reading from tracker
func New(tracker *progress.Progress) *Metrics {
	ret := &Metrics{
		admissionWait: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "admission_wait_seconds",
			Help:      "Time between job submission and start.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}),
		runDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "job_duration_seconds",
			Help:      "Job run time by terminal state.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}, []string{"state"}),
	}
	for _, build := range progressCollectors {
		ret.collectors = append(ret.collectors, build(tracker))
	}
	ret.collectors = append(ret.collectors, ret.admissionWait, ret.runDuration)
	return ret
}

// Register registers all collectors
func (m *Metrics) Register(registerer prometheus.Registerer) error {
	for _, collector := range m.collectors {
		if err := registerer.Register(collector); err != nil {
			return err
		}
	}
	return nil
}

// Unregister removes all collectors
func (m *Metrics) Unregister(registerer prometheus.Registerer) {
	for _, collector := range m.collectors {
		registerer.Unregister(collector)
	}
}

// ObserveAdmission records how long a job waited before it started
func (m *Metrics) ObserveAdmission(wait time.Duration) {
	if m == nil {
		return
	}
	m.admissionWait.Observe(wait.Seconds())
}

// ObserveRun records a job's run time under its terminal state
func (m *Metrics) ObserveRun(state string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.runDuration.WithLabelValues(state).Observe(elapsed.Seconds())
}
