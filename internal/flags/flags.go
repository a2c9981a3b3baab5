// Package flags provides parsing, merging, and reconstruction of KEY=VALUE
// environment overrides given on the command line.
package flags

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Overrides represents environment overrides as a name-value map.
type Overrides map[string]string

// Sentinel errors for override operations.
var (
	// ErrInvalidOverride is returned when an override is not a valid KEY=VALUE pair.
	ErrInvalidOverride = errors.New("invalid environment override")
)

// namePattern matches valid environment variable names.
var namePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Parse converts repeated --env values into Overrides.
//
// Rules:
//   - "KEY=value" → override KEY with value
//   - "KEY=" → override KEY with the empty string
//   - "KEY" (no =) → rejected
//   - Values containing = are handled correctly (splits on first = only)
//   - A repeated key keeps the last value
func Parse(pairs []string) (Overrides, error) {
	result := make(Overrides, len(pairs))
	for _, pair := range pairs {
		key, value, hasEquals := strings.Cut(pair, "=")
		if !hasEquals {
			return nil, fmt.Errorf("%w: %q is not KEY=VALUE", ErrInvalidOverride, pair)
		}
		if !namePattern.MatchString(key) {
			return nil, fmt.Errorf("%w: bad variable name %q", ErrInvalidOverride, key)
		}
		result[key] = value
	}
	return result, nil
}

// FromConfig validates and normalizes config values into Overrides.
// Accepts string values only; YAML numerics and booleans must be quoted.
func FromConfig(cfg map[string]any) (Overrides, error) {
	if cfg == nil {
		return make(Overrides), nil
	}

	result := make(Overrides, len(cfg))
	for k, v := range cfg {
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("%w: %s has unsupported type %T", ErrInvalidOverride, k, v)
		}
		if !namePattern.MatchString(k) {
			return nil, fmt.Errorf("%w: bad variable name %q", ErrInvalidOverride, k)
		}
		result[k] = s
	}
	return result, nil
}

// Merge combines two override maps with override taking precedence.
// Keys in override replace keys in base.
func Merge(base, override Overrides) Overrides {
	result := make(Overrides, len(base)+len(override))

	for k, v := range base {
		result[k] = v
	}
	for k, v := range override {
		result[k] = v
	}

	return result
}

// ToPairs reconstructs Overrides into KEY=VALUE strings.
// Output is sorted by key for deterministic ordering.
func ToPairs(o Overrides) []string {
	if len(o) == 0 {
		return nil
	}

	keys := make([]string, 0, len(o))
	for k := range o {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+o[k])
	}
	return pairs
}
