package dbstate

import (
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

// ParseFixtureYAML reads a fixture from a YAML document holding a single flat sequence:
//
//	- widgets
//	- {id: 1, name: A}
//	- [2, B]
//
// A string scalar is a table marker, a mapping a record by columns and a sequence a positional record.
func ParseFixtureYAML(data []byte) (Fixture, error) {
	var document yaml.Node
	if err := yaml.Unmarshal(data, &document); err != nil {
		return nil, errors.Join(ErrInvalidFixture, err)
	}

	if document.Kind == 0 {
		return NewFixture(), nil
	}

	if document.Kind != yaml.DocumentNode || len(document.Content) != 1 {
		return nil, errors.Join(ErrInvalidFixture, errors.New("expected a single yaml document"))
	}

	root := document.Content[0]
	if root.Kind != yaml.SequenceNode {
		return nil, errors.Join(ErrInvalidFixture, fmt.Errorf("line %d: expected a sequence at the top level", root.Line))
	}

	fixture := make(Fixture, 0, len(root.Content))

	for _, node := range root.Content {
		item, err := fixtureItemFromNode(node)
		if err != nil {
			return nil, err
		}

		fixture = append(fixture, item)
	}

	return fixture, nil
}

func fixtureItemFromNode(node *yaml.Node) (FixtureItem, error) {
	switch node.Kind {
	case yaml.ScalarNode:
		if node.Tag != "!!str" {
			return nil, errors.Join(ErrInvalidFixture, fmt.Errorf("line %d: table marker must be a string, got %s", node.Line, node.Tag))
		}

		return TableMarker(node.Value), nil

	case yaml.MappingNode:
		record := make(map[string]any, len(node.Content)/2)
		if err := node.Decode(&record); err != nil {
			return nil, errors.Join(ErrInvalidFixture, fmt.Errorf("line %d: %w", node.Line, err))
		}

		return RecordByColumns(record), nil

	case yaml.SequenceNode:
		values := make([]any, 0, len(node.Content))
		if err := node.Decode(&values); err != nil {
			return nil, errors.Join(ErrInvalidFixture, fmt.Errorf("line %d: %w", node.Line, err))
		}

		return RecordPositional(values), nil

	default:
		return nil, errors.Join(ErrInvalidFixture, fmt.Errorf("line %d: unsupported yaml node", node.Line))
	}
}
