package manifest

import (
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

var ErrMultipleSpecs = errors.New("only one spec allowed")

// ContentSpec locates an object's primary content file.
type ContentSpec struct {
	Location  string `yaml:"location"`
	Extension string `yaml:"extension"`
}

// UnmarshalYAML accepts a mapping or a single-element sequence.
func (s *ContentSpec) UnmarshalYAML(node *yaml.Node) error {
	type plain ContentSpec
	return decodeSingle(node, "content", (*plain)(s))
}

// ChecksumSpec locates the external checksum manifest.
type ChecksumSpec struct {
	Location string `yaml:"location"`
	Source   string `yaml:"source"`
	Type     string `yaml:"type"`
}

// UnmarshalYAML accepts a mapping or a single-element sequence.
func (s *ChecksumSpec) UnmarshalYAML(node *yaml.Node) error {
	type plain ChecksumSpec
	return decodeSingle(node, "checksum", (*plain)(s))
}

// StructureSpec drives structural metadata generation.
type StructureSpec struct {
	Type           string `yaml:"type"`
	SequenceStart  int    `yaml:"sequencestart"`
	SequenceLength int    `yaml:"sequencelength"`
	FileGrpID      string `yaml:"filegrp_id"`
	FileGrpUse     string `yaml:"filegrp_use"`
	Div0ID         string `yaml:"div0_id"`
	Div0Type       string `yaml:"div0_type"`
	Div0Label      string `yaml:"div0_label"`
}

// SplitSpec carves a multi-record source document into per-object files.
type SplitSpec struct {
	Type       string `yaml:"type"`
	Source     string `yaml:"source"`
	XPath      string `yaml:"xpath"`
	IDElement  string `yaml:"idelement"`
	TargetPath string `yaml:"targetpath"`
}

func decodeSingle(node *yaml.Node, name string, out any) error {
	switch node.Kind {
	case yaml.MappingNode:
		return node.Decode(out)
	case yaml.SequenceNode:
		switch len(node.Content) {
		case 0:
			return nil
		case 1:
			return node.Content[0].Decode(out)
		default:
			return fmt.Errorf("%w: %s has %d entries", ErrMultipleSpecs, name, len(node.Content))
		}
	default:
		return fmt.Errorf("line %d: %s must be a mapping", node.Line, name)
	}
}
