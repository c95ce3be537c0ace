package plan

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// UnmarshalYAML accepts either a scalar ("orders" or "$db") or a mapping with
// literal/expr keys
func (t *Target) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		if strings.HasPrefix(node.Value, "$") {
			t.Expr = node.Value
			return nil
		}
		t.Literal = node.Value
		return nil
	case yaml.MappingNode:
		type target Target
		return node.Decode((*target)(t))
	}
	return fmt.Errorf("line %d: unsupported target node", node.Line)
}

// Decode decodes a single plan from YAML
func Decode(encoded []byte) (*Plan, error) {
	ret := &Plan{}
	if err := yaml.Unmarshal(encoded, ret); err != nil {
		return nil, fmt.Errorf("failed to decode plan: %w", err)
	}
	if err := ret.Validate(); err != nil {
		return nil, err
	}
	return ret, nil
}
