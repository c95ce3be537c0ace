// Package plan is a declarative unit of work: a list of steps that read,
// write, create or drop named databases, sleep, compute a value or fail.
// Targets are either literal names or $variables resolved from bindings at
// run time; the latter can not be known at admission and lock everything.
package plan

import (
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/viant/jobgate/model/lock"
	"github.com/viant/jobgate/runtime/job"
)

// DefaultSafepoint is the interval at which a sleeping step checks for stop
const DefaultSafepoint = 10 * time.Millisecond

type (
	// StepKind represents step operation
	StepKind string

	// Plan represents a query or a command
	Plan struct {
		Name      string            `json:"name,omitempty" yaml:"name,omitempty"`
		Type      job.Kind          `json:"kind,omitempty" yaml:"kind,omitempty"`
		Session   string            `json:"session,omitempty" yaml:"session,omitempty"`
		Bindings  map[string]string `json:"bindings,omitempty" yaml:"bindings,omitempty"`
		Steps     []*Step           `json:"steps,omitempty" yaml:"steps,omitempty"`
		Safepoint time.Duration     `json:"-" yaml:"-"`
	}

	// Step represents a single plan operation
	Step struct {
		Kind     StepKind      `json:"kind" yaml:"kind"`
		Target   *Target       `json:"target,omitempty" yaml:"target,omitempty"`
		Duration time.Duration `json:"duration,omitempty" yaml:"duration,omitempty"`
		Value    interface{}   `json:"value,omitempty" yaml:"value,omitempty"`
		Message  string        `json:"message,omitempty" yaml:"message,omitempty"`
	}

	// Target names a database, literally or through a binding
	Target struct {
		Literal string `json:"literal,omitempty" yaml:"literal,omitempty"`
		Expr    string `json:"expr,omitempty" yaml:"expr,omitempty"`
	}

	// Result is the value produced by a finished plan
	Result struct {
		Operations []string    `json:"operations,omitempty" yaml:"operations,omitempty"`
		Value      interface{} `json:"value,omitempty" yaml:"value,omitempty"`
	}
)

const (
	StepRead    StepKind = "read"
	StepWrite   StepKind = "write"
	StepCreate  StepKind = "create"
	StepDrop    StepKind = "drop"
	StepSleep   StepKind = "sleep"
	StepCompute StepKind = "compute"
	StepFail    StepKind = "fail"
)

// Literal returns a target naming database name
func Literal(name string) *Target {
	return &Target{Literal: name}
}

// Expr returns a target resolved at run time, e.g. "$db"
func Expr(expr string) *Target {
	return &Target{Expr: expr}
}

// IsDynamic returns true if target is resolved at run time
func (t *Target) IsDynamic() bool {
	return t.Expr != ""
}

func (t *Target) String() string {
	if t == nil {
		return ""
	}
	if t.IsDynamic() {
		return t.Expr
	}
	return t.Literal
}

func (t *Target) validate() error {
	switch {
	case t == nil:
		return fmt.Errorf("target was empty")
	case t.Literal != "" && t.Expr != "":
		return fmt.Errorf("target %q: both literal and expr defined", t.Literal)
	case t.Literal == "" && t.Expr == "":
		return fmt.Errorf("unknown target kind")
	case t.Expr != "" && !strings.HasPrefix(t.Expr, "$"):
		return fmt.Errorf("invalid expr %q, expected $name", t.Expr)
	}
	return nil
}

// Mode returns the lock mode a step requires, zero for steps without data access
func (k StepKind) Mode() lock.Mode {
	switch k {
	case StepRead:
		return lock.Read
	case StepWrite, StepCreate, StepDrop:
		return lock.Write
	}
	return 0
}

// IsValid returns true for a known kind
func (k StepKind) IsValid() bool {
	switch k {
	case StepRead, StepWrite, StepCreate, StepDrop, StepSleep, StepCompute, StepFail:
		return true
	}
	return false
}

// New creates a plan
func New(kind job.Kind, steps ...*Step) *Plan {
	return &Plan{Type: kind, Steps: steps}
}

// Read returns a read step
func Read(target *Target) *Step { return &Step{Kind: StepRead, Target: target} }

// Write returns a write step
func Write(target *Target) *Step { return &Step{Kind: StepWrite, Target: target} }

// Create returns a create step
func Create(target *Target) *Step { return &Step{Kind: StepCreate, Target: target} }

// Drop returns a drop step
func Drop(target *Target) *Step { return &Step{Kind: StepDrop, Target: target} }

// Sleep returns a step that waits for d, observing stop requests
func Sleep(d time.Duration) *Step { return &Step{Kind: StepSleep, Duration: d} }

// Compute returns a step producing value
func Compute(value interface{}) *Step { return &Step{Kind: StepCompute, Value: value} }

// Fail returns a step that fails with message
func Fail(message string) *Step { return &Step{Kind: StepFail, Message: message} }

// WithBinding binds $name to database
func (p *Plan) WithBinding(name, database string) *Plan {
	if p.Bindings == nil {
		p.Bindings = map[string]string{}
	}
	p.Bindings[strings.TrimPrefix(name, "$")] = database
	return p
}

// Validate returns every problem found in the plan
func (p *Plan) Validate() error {
	var result *multierror.Error
	switch p.Type {
	case "", job.KindQuery, job.KindCommand:
	default:
		result = multierror.Append(result, fmt.Errorf("unsupported kind: %q", p.Type))
	}
	for i, step := range p.Steps {
		if step == nil {
			result = multierror.Append(result, fmt.Errorf("step[%d]: was nil", i))
			continue
		}
		if !step.Kind.IsValid() {
			result = multierror.Append(result, fmt.Errorf("step[%d]: unsupported kind: %q", i, step.Kind))
			continue
		}
		if step.Kind.Mode() != 0 {
			if err := step.Target.validate(); err != nil {
				result = multierror.Append(result, fmt.Errorf("step[%d]: %w", i, err))
			}
		}
		if step.Duration < 0 {
			result = multierror.Append(result, fmt.Errorf("step[%d]: negative duration: %v", i, step.Duration))
		}
	}
	return result.ErrorOrNil()
}

// Workload is a named batch of plans submitted together
type Workload struct {
	Name      string        `json:"name,omitempty" yaml:"name,omitempty"`
	Plans     []*Plan       `json:"plans,omitempty" yaml:"plans,omitempty"`
	Stop      []string      `json:"stop,omitempty" yaml:"stop,omitempty"`
	StopAfter time.Duration `json:"stopAfter,omitempty" yaml:"stopAfter,omitempty"`
	Report    time.Duration `json:"report,omitempty" yaml:"report,omitempty"`
}

// Lookup returns the plan with name
func (w *Workload) Lookup(name string) *Plan {
	for _, p := range w.Plans {
		if p.Name == name {
			return p
		}
	}
	return nil
}

// Validate checks every plan and stop reference
func (w *Workload) Validate() error {
	var result *multierror.Error
	seen := map[string]bool{}
	for i, p := range w.Plans {
		if p == nil {
			result = multierror.Append(result, fmt.Errorf("plans[%d]: was nil", i))
			continue
		}
		if seen[p.Name] {
			result = multierror.Append(result, fmt.Errorf("plans[%d]: duplicate name %q", i, p.Name))
		}
		seen[p.Name] = true
		if err := p.Validate(); err != nil {
			result = multierror.Append(result, fmt.Errorf("plan %q: %w", p.Name, err))
		}
	}
	for _, name := range w.Stop {
		if !seen[name] {
			result = multierror.Append(result, fmt.Errorf("stop: unknown plan %q", name))
		}
	}
	return result.ErrorOrNil()
}
