// Package yml provides helpers for walking yaml.v3 node trees.
package yml

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Node wraps yaml.Node
type Node yaml.Node

// Root returns the document's top node
func (n *Node) Root() *Node {
	if n.Kind == yaml.DocumentNode && len(n.Content) > 0 {
		return (*Node)(n.Content[0])
	}
	return n
}

// Pairs iterates mapping key/value pairs
func (n *Node) Pairs(callback func(key string, node *Node) error) error {
	if n.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: expected mapping", n.Line)
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		if err := callback(n.Content[i].Value, (*Node)(n.Content[i+1])); err != nil {
			return err
		}
	}
	return nil
}

// Items iterates sequence items
func (n *Node) Items(callback func(index int, node *Node) error) error {
	if n.Kind != yaml.SequenceNode {
		return fmt.Errorf("line %d: expected sequence", n.Line)
	}
	for i, item := range n.Content {
		if err := callback(i, (*Node)(item)); err != nil {
			return err
		}
	}
	return nil
}

// Strings returns a scalar or a sequence of scalars as a slice
func (n *Node) Strings() ([]string, error) {
	if n.Kind == yaml.ScalarNode {
		return []string{n.Value}, nil
	}
	var ret []string
	err := n.Items(func(_ int, item *Node) error {
		if item.Kind != yaml.ScalarNode {
			return fmt.Errorf("line %d: expected scalar", item.Line)
		}
		ret = append(ret, item.Value)
		return nil
	})
	return ret, err
}

// Decode decodes the node into v
func (n *Node) Decode(v interface{}) error {
	return (*yaml.Node)(n).Decode(v)
}
