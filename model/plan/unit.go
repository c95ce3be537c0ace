package plan

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/viant/jobgate/model/lock"
	"github.com/viant/jobgate/runtime/job"
)

var _ job.Unit = (*Plan)(nil)

// Kind returns the job kind, query when not set
func (p *Plan) Kind() job.Kind {
	if p.Type == "" {
		return job.KindQuery
	}
	return p.Type
}

// Accesses reports every database the plan may touch. Expr targets are
// reported as dynamic since their value is only known at run time.
func (p *Plan) Accesses() ([]lock.Access, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	var ret []lock.Access
	for _, step := range p.Steps {
		mode := step.Kind.Mode()
		if mode == 0 {
			continue
		}
		if step.Target.IsDynamic() {
			ret = append(ret, lock.DynamicOf(mode))
			continue
		}
		ret = append(ret, lock.Access{Database: step.Target.Literal, Mode: mode})
	}
	return ret, nil
}

// Run executes steps in order, checking for stop before each one
func (p *Plan) Run(ctx *job.Context) (interface{}, error) {
	result := &Result{}
	for i, step := range p.Steps {
		if err := ctx.Safepoint(); err != nil {
			return nil, err
		}
		switch step.Kind {
		case StepRead, StepWrite, StepCreate, StepDrop:
			database, err := p.resolve(step.Target)
			if err != nil {
				return nil, fmt.Errorf("step[%d]: %w", i, err)
			}
			result.Operations = append(result.Operations, string(step.Kind)+":"+database)
		case StepSleep:
			if err := p.sleep(ctx, step.Duration); err != nil {
				return nil, err
			}
		case StepCompute:
			result.Value = step.Value
		case StepFail:
			return nil, errors.New(step.Message)
		default:
			return nil, fmt.Errorf("step[%d]: unsupported kind: %q", i, step.Kind)
		}
	}
	return result, nil
}

func (p *Plan) resolve(target *Target) (string, error) {
	if !target.IsDynamic() {
		return target.Literal, nil
	}
	name := strings.TrimPrefix(target.Expr, "$")
	database, ok := p.Bindings[name]
	if !ok || database == "" {
		return "", fmt.Errorf("unbound variable: %v", target.Expr)
	}
	return database, nil
}

// sleep waits for d in safepoint sized chunks
func (p *Plan) sleep(ctx *job.Context, d time.Duration) error {
	interval := p.Safepoint
	if interval <= 0 {
		interval = DefaultSafepoint
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	deadline := time.NewTimer(d)
	defer deadline.Stop()
	for {
		select {
		case <-deadline.C:
			return nil
		case <-ticker.C:
			if err := ctx.Safepoint(); err != nil {
				return err
			}
		case <-ctx.Done():
			if err := ctx.Safepoint(); err != nil {
				return err
			}
			return context.Cause(ctx)
		}
	}
}
