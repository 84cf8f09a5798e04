package manifest

import (
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

var ErrEmptyIdentifier = errors.New("identifier is empty")

// Identifier is an ordered list of aliases for one object. The first value is
// the key identifier used to join manifest, ledger and repository.
type Identifier []string

// UnmarshalYAML accepts a scalar or a sequence of scalars.
func (id *Identifier) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		*id = Identifier{strings.TrimSpace(node.Value)}
		return nil
	case yaml.SequenceNode:
		out := make(Identifier, 0, len(node.Content))
		for _, item := range node.Content {
			if item.Kind != yaml.ScalarNode {
				return fmt.Errorf("line %d: identifier entries must be scalars", item.Line)
			}
			out = append(out, strings.TrimSpace(item.Value))
		}
		*id = out
		return nil
	default:
		return fmt.Errorf("line %d: identifier must be a scalar or a sequence", node.Line)
	}
}

// Key returns the key identifier.
func (id Identifier) Key() (string, error) {
	if len(id) == 0 || id[0] == "" {
		return "", ErrEmptyIdentifier
	}
	return id[0], nil
}

// Values returns the non-empty identifier values in declared order.
func (id Identifier) Values() []string {
	out := make([]string, 0, len(id))
	for _, v := range id {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
