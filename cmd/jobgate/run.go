package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/viant/jobgate"
	"github.com/viant/jobgate/model/plan"
	"github.com/viant/jobgate/runtime/job"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

type runOptions struct {
	config   string
	workload string
	metrics  string
	parallel int
}

// outcome is a reported plan result
type outcome struct {
	Name  string      `yaml:"name"`
	JobID string      `yaml:"jobId,omitempty"`
	State string      `yaml:"state"`
	Value interface{} `yaml:"value,omitempty"`
	Error string      `yaml:"error,omitempty"`
}

func newRunCmd() *cobra.Command {
	opts := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Submit a workload of plans and report outcomes",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}
	cmd.Flags().StringVar(&opts.config, "config", "", "configuration URL")
	cmd.Flags().StringVar(&opts.workload, "workload", "", "workload URL")
	cmd.Flags().StringVar(&opts.metrics, "metrics", "", "address exposing prometheus metrics, e.g. :9090")
	cmd.Flags().IntVar(&opts.parallel, "parallel", 0, "overrides configured parallel")
	_ = cmd.MarkFlagRequired("workload")
	return cmd
}

func run(ctx context.Context, out io.Writer, opts *runOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	config := jobgate.DefaultConfig()
	if opts.config != "" {
		var err error
		if config, err = jobgate.LoadConfig(ctx, opts.config); err != nil {
			return err
		}
	}
	if opts.parallel > 0 {
		config.Parallel = opts.parallel
	}
	logger, err := newLogger(config)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	registry := prometheus.NewRegistry()
	srv, err := jobgate.New(jobgate.WithConfig(config), jobgate.WithLogger(logger), jobgate.WithMetricsRegisterer(registry))
	if err != nil {
		return err
	}
	rt := srv.Runtime()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := rt.Shutdown(shutdownCtx); err != nil {
			logger.Warn("shutdown failed", zap.Error(err))
		}
	}()
	if opts.metrics != "" {
		server := serveMetrics(opts.metrics, registry, logger)
		defer server.Close()
	}

	workload, err := rt.LoadWorkload(ctx, opts.workload)
	if err != nil {
		return err
	}
	outcomes := submit(ctx, rt, workload)
	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		supervise(ctx, out, rt, workload, outcomes, done, logger)
	}()
	wait(ctx, rt, outcomes)
	close(done)
	wg.Wait()

	encoded, err := yaml.Marshal(map[string]interface{}{"outcomes": outcomes, "stats": rt.Stats()})
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "---\n%s", encoded)
	return err
}

func newLogger(config *jobgate.Config) (*zap.Logger, error) {
	level, err := config.Logging.ZapLevel()
	if err != nil {
		return nil, err
	}
	zapConfig := zap.NewProductionConfig()
	zapConfig.Level = zap.NewAtomicLevelAt(level)
	return zapConfig.Build()
}

func serveMetrics(addr string, registry *prometheus.Registry, logger *zap.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", zap.Error(err))
		}
	}()
	return server
}

// submit admits every plan in workload order
func submit(ctx context.Context, rt *jobgate.Runtime, workload *plan.Workload) []*outcome {
	ret := make([]*outcome, 0, len(workload.Plans))
	for _, p := range workload.Plans {
		item := &outcome{Name: p.Name}
		id, err := rt.Submit(ctx, "", p)
		if err != nil {
			item.State = "rejected"
			item.Error = err.Error()
		}
		item.JobID = id
		ret = append(ret, item)
	}
	return ret
}

// supervise stops plans named by the workload and periodically prints the
// job listing until done is closed
func supervise(ctx context.Context, out io.Writer, rt *jobgate.Runtime, workload *plan.Workload, outcomes []*outcome, done chan struct{}, logger *zap.Logger) {
	var stopTimer <-chan time.Time
	if len(workload.Stop) > 0 {
		stopTimer = time.After(workload.StopAfter)
	}
	var report <-chan time.Time
	if workload.Report > 0 {
		ticker := time.NewTicker(workload.Report)
		defer ticker.Stop()
		report = ticker.C
	}
	for {
		select {
		case <-done:
			return
		case <-stopTimer:
			stopTimer = nil
			for _, name := range workload.Stop {
				for _, item := range outcomes {
					if item.Name != name || item.JobID == "" {
						continue
					}
					if err := rt.Stop(ctx, item.JobID); err != nil {
						logger.Warn("failed to stop job", zap.String("job.id", item.JobID), zap.Error(err))
					}
				}
			}
		case <-report:
			details, err := rt.ListDetails(ctx)
			if err != nil {
				logger.Warn("failed to list jobs", zap.Error(err))
				continue
			}
			encoded, err := yaml.Marshal(map[string]interface{}{"jobs": details})
			if err != nil {
				continue
			}
			_, _ = fmt.Fprintf(out, "---\n%s", encoded)
		}
	}
}

// wait collects the outcome of every admitted job
func wait(ctx context.Context, rt *jobgate.Runtime, outcomes []*outcome) {
	var wg sync.WaitGroup
	for _, item := range outcomes {
		if item.JobID == "" {
			continue
		}
		wg.Add(1)
		go func(item *outcome) {
			defer wg.Done()
			value, err := rt.Wait(ctx, item.JobID)
			item.Value = value
			switch {
			case err == nil:
				item.State = "finished"
			case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
				item.State = "abandoned"
				item.Error = err.Error()
			default:
				item.State = "failed"
				if errors.Is(err, job.ErrStopped) {
					item.State = "stopped"
				}
				item.Error = err.Error()
			}
		}(item)
	}
	wg.Wait()
}
