package jobgate

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/viant/afs"
	"github.com/viant/jobgate/internal/env"
	"github.com/viant/jobgate/model/plan"
	"github.com/viant/jobgate/service/dao/job/memory"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// Config is a serialisable representation of the runtime configuration. It
// can be populated from JSON or YAML; LoadConfig starts from DefaultConfig so
// omitted fields keep their defaults.
type Config struct {
	// Parallel is the maximum number of concurrently running locking jobs
	Parallel int `json:"parallel" yaml:"parallel"`
	// Retention is the number of terminal outcomes kept for late waiters
	Retention int `json:"retention" yaml:"retention"`
	// Safepoint is the stop check interval of sleeping plan steps
	Safepoint time.Duration `json:"safepoint" yaml:"safepoint"`
	Logging   LoggingConfig `json:"logging" yaml:"logging"`
	Tracing   TracingConfig `json:"tracing" yaml:"tracing"`
}

type LoggingConfig struct {
	Level string `json:"level" yaml:"level"`
}

type TracingConfig struct {
	Enabled        bool   `json:"enabled" yaml:"enabled"`
	ServiceName    string `json:"serviceName,omitempty" yaml:"serviceName,omitempty"`
	ServiceVersion string `json:"serviceVersion,omitempty" yaml:"serviceVersion,omitempty"`
	// OutputFile receives stdout exporter spans, empty writes to stdout
	OutputFile string `json:"outputFile,omitempty" yaml:"outputFile,omitempty"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Parallel:  8,
		Retention: memory.DefaultRetention,
		Safepoint: plan.DefaultSafepoint,
		Logging:   LoggingConfig{Level: "info"},
		Tracing:   TracingConfig{ServiceName: "jobgate"},
	}
}

// Validate returns aggregated error describing invalid settings or nil.
func (c *Config) Validate() error {
	if c == nil {
		return nil
	}
	var result *multierror.Error
	if c.Parallel < 1 {
		result = multierror.Append(result, fmt.Errorf("parallel must be >= 1, got %d", c.Parallel))
	}
	if c.Retention < 0 {
		result = multierror.Append(result, fmt.Errorf("retention must be >= 0, got %d", c.Retention))
	}
	if c.Safepoint <= 0 {
		result = multierror.Append(result, fmt.Errorf("safepoint must be > 0, got %v", c.Safepoint))
	}
	if _, err := c.Logging.ZapLevel(); err != nil {
		result = multierror.Append(result, err)
	}
	if c.Tracing.Enabled && c.Tracing.ServiceName == "" {
		result = multierror.Append(result, fmt.Errorf("tracing.serviceName was empty"))
	}
	return result.ErrorOrNil()
}

// ZapLevel parses the configured level
func (c LoggingConfig) ZapLevel() (zapcore.Level, error) {
	if c.Level == "" {
		return zapcore.InfoLevel, nil
	}
	level, err := zapcore.ParseLevel(c.Level)
	if err != nil {
		return level, fmt.Errorf("logging.level: %w", err)
	}
	return level, nil
}

// LoadConfig downloads YAML configuration from URL (any afs supported
// scheme), expands ${env.NAME} references and validates the result.
func LoadConfig(ctx context.Context, URL string) (*Config, error) {
	data, err := afs.New().DownloadWithURL(ctx, URL)
	if err != nil {
		return nil, fmt.Errorf("failed to load config %v: %w", URL, err)
	}
	ret := DefaultConfig()
	if err = yaml.Unmarshal([]byte(env.Expand(string(data))), ret); err != nil {
		return nil, fmt.Errorf("failed to decode config %v: %w", URL, err)
	}
	if err = ret.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %v: %w", URL, err)
	}
	return ret, nil
}
