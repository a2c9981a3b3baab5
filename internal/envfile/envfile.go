// Package envfile parses envoy environment definition files.
//
// An environment file is a single flat mapping from variable names to
// values. Files are typically JSON (the historical format) but any YAML
// document with the same shape is accepted. Document order is preserved
// because it determines the order operators are applied in.
package envfile

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Sentinel errors for environment file parsing.
var (
	// ErrNotFound is returned when the environment file does not exist.
	ErrNotFound = errors.New("environment file not found")

	// ErrMalformed is returned when the file is not a flat key/value mapping.
	ErrMalformed = errors.New("malformed environment file")
)

// Op selects how an entry combines with the value already present in the
// environment being built.
type Op int

const (
	// OpReplace sets the variable outright. This is the default.
	OpReplace Op = iota

	// OpAppend joins the new value after the current one ("+=" prefix).
	OpAppend

	// OpPrepend joins the new value before the current one ("^=" prefix).
	OpPrepend
)

// String returns the operator prefix as it appears in a file.
func (o Op) String() string {
	switch o {
	case OpAppend:
		return "+="
	case OpPrepend:
		return "^="
	default:
		return ""
	}
}

// Entry is one key/value pair from an environment file, in document order.
type Entry struct {
	Op     Op
	Name   string
	Values []string // scalar values are a single element; lists keep element order
}

// File is a parsed environment file.
type File struct {
	Path    string
	Entries []Entry
}

// Parse reads and parses the environment file at path.
//
// The document must contain a single mapping whose values are scalars or
// sequences of scalars. Scalars keep their literal text (numbers and
// booleans are not reformatted). Keys prefixed with "+=" or "^=" become
// append/prepend entries with the prefix stripped.
func Parse(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: callers pass bundle-derived paths
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("read environment file %s: %w", path, err)
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrMalformed, path, err)
	}

	if len(doc.Content) == 0 {
		return nil, fmt.Errorf("%w: %s: document is empty", ErrMalformed, path)
	}

	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: %s: document must contain a single mapping", ErrMalformed, path)
	}

	f := &File{Path: path}
	for i := 0; i+1 < len(root.Content); i += 2 {
		key := root.Content[i]
		value := root.Content[i+1]

		if key.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("%w: %s: line %d: key must be a string", ErrMalformed, path, key.Line)
		}

		entry := Entry{Name: key.Value}
		switch {
		case strings.HasPrefix(key.Value, "+="):
			entry.Op = OpAppend
			entry.Name = key.Value[2:]
		case strings.HasPrefix(key.Value, "^="):
			entry.Op = OpPrepend
			entry.Name = key.Value[2:]
		}

		values, err := scalarValues(value)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: key %q: %w", ErrMalformed, path, key.Value, err)
		}
		entry.Values = values

		f.Entries = append(f.Entries, entry)
	}

	return f, nil
}

// scalarValues extracts the value of an entry as a list of scalar strings.
func scalarValues(node *yaml.Node) ([]string, error) {
	switch node.Kind {
	case yaml.ScalarNode:
		return []string{node.Value}, nil
	case yaml.SequenceNode:
		values := make([]string, 0, len(node.Content))
		for _, item := range node.Content {
			if item.Kind != yaml.ScalarNode {
				return nil, fmt.Errorf("line %d: list elements must be scalars", item.Line)
			}
			values = append(values, item.Value)
		}
		return values, nil
	default:
		return nil, fmt.Errorf("line %d: value must be a scalar or a list of scalars", node.Line)
	}
}
