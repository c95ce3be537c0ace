// Package workload loads batches of plans from YAML documents stored on any
// afs supported storage (file://, mem://, embed://...).
package workload

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/viant/afs"
	"github.com/viant/jobgate/internal/env"
	"github.com/viant/jobgate/internal/yml"
	"github.com/viant/jobgate/model/plan"
	"gopkg.in/yaml.v3"
)

type Service struct {
	fs        afs.Service
	safepoint time.Duration
}

// New creates a workload loader
func New(options ...Option) *Service {
	ret := &Service{}
	for _, option := range options {
		option(ret)
	}
	if ret.fs == nil {
		ret.fs = afs.New()
	}
	return ret
}

// Load loads a workload from YAML at the specified URL
func (s *Service) Load(ctx context.Context, URL string) (*plan.Workload, error) {
	if filepath.Ext(URL) == "" {
		URL += ".yaml"
	}
	data, err := s.fs.DownloadWithURL(ctx, URL)
	if err != nil {
		return nil, fmt.Errorf("failed to load workload from %s: %w", URL, err)
	}
	ret, err := s.DecodeYAML([]byte(env.Expand(string(data))))
	if err != nil {
		return nil, fmt.Errorf("failed to parse workload from %s: %w", URL, err)
	}
	if ret.Name == "" {
		ret.Name = nameFromURL(URL)
	}
	return ret, nil
}

// DecodeYAML decodes a workload. A document holding a plain sequence is read
// as a list of plans.
func (s *Service) DecodeYAML(encoded []byte) (*plan.Workload, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(encoded, &node); err != nil {
		return nil, err
	}
	root := (*yml.Node)(&node).Root()
	ret := &plan.Workload{}
	var err error
	switch root.Kind {
	case yaml.SequenceNode:
		ret.Plans, err = s.parsePlans(root)
	case yaml.MappingNode:
		err = s.parseWorkload(root, ret)
	default:
		err = fmt.Errorf("line %d: expected workload mapping or plan list", root.Line)
	}
	if err != nil {
		return nil, err
	}
	for _, p := range ret.Plans {
		if p.Name == "" {
			p.Name = generateAnonymousName()
		}
		if s.safepoint > 0 {
			p.Safepoint = s.safepoint
		}
	}
	if err = ret.Validate(); err != nil {
		return nil, err
	}
	return ret, nil
}

func (s *Service) parseWorkload(root *yml.Node, workload *plan.Workload) error {
	return root.Pairs(func(key string, value *yml.Node) (err error) {
		switch strings.ToLower(key) {
		case "name":
			workload.Name = value.Value
		case "plans", "jobs":
			workload.Plans, err = s.parsePlans(value)
		case "stop":
			workload.Stop, err = value.Strings()
		case "stopafter":
			workload.StopAfter, err = time.ParseDuration(value.Value)
		case "report":
			workload.Report, err = time.ParseDuration(value.Value)
		default:
			err = fmt.Errorf("line %d: unsupported workload key %q", value.Line, key)
		}
		return err
	})
}

func (s *Service) parsePlans(node *yml.Node) ([]*plan.Plan, error) {
	var ret []*plan.Plan
	err := node.Items(func(index int, item *yml.Node) error {
		p := &plan.Plan{}
		if err := item.Decode(p); err != nil {
			return fmt.Errorf("plans[%d]: %w", index, err)
		}
		ret = append(ret, p)
		return nil
	})
	return ret, err
}
