// Package environment composes the child process environment from layered
// environment files.
//
// Composition is deterministic: seed (closed-mode allowlist or full
// passthrough), then each file in caller order, then explicit overrides.
// Within a file, entries apply in document order. Variable expansion and
// the append/prepend operators only ever read the mapping under
// construction — never the launcher's ambient environment — which is what
// makes closed mode actually closed.
package environment

import (
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/gt-labs/envoy/internal/envfile"
)

// ListSeparator joins path-list values: ";" on Windows, ":" elsewhere.
const ListSeparator = string(os.PathListSeparator)

// Mode selects how the environment is seeded before files are applied.
type Mode int

const (
	// Closed seeds only the core variables plus the caller allowlist,
	// each copied from the ambient environment if present. Default.
	Closed Mode = iota

	// Passthrough seeds the entire ambient environment.
	Passthrough
)

// Composer builds child process environments.
type Composer struct {
	Mode      Mode
	Allowlist []string // extra names inherited in closed mode
	Logger    *slog.Logger
}

// Compose produces the environment mapping for an ordered list of
// environment files with the given explicit overrides layered on top.
//
// Any file-level failure (missing file, malformed document) aborts the
// whole composition; no partial mapping is returned. Overrides are
// applied verbatim, without template expansion.
func (c *Composer) Compose(files []string, overrides map[string]string) (map[string]string, error) {
	env := c.seed()

	for _, path := range files {
		f, err := envfile.Parse(path)
		if err != nil {
			return nil, err
		}

		special, err := SpecialVars(path)
		if err != nil {
			return nil, err
		}

		for _, entry := range f.Entries {
			value := Expand(strings.Join(entry.Values, ListSeparator), env, special)

			switch entry.Op {
			case envfile.OpAppend:
				// Current value comes from the mapping under construction
				// only. First use of += collapses to plain assignment.
				if cur := env[entry.Name]; cur != "" {
					value = cur + ListSeparator + value
				}
			case envfile.OpPrepend:
				if cur := env[entry.Name]; cur != "" {
					value = value + ListSeparator + cur
				}
			}
			env[entry.Name] = value
		}

		c.logger().Debug("applied environment file", "path", path, "entries", len(f.Entries))
	}

	for name, value := range overrides {
		env[name] = value
	}

	return env, nil
}

// seed builds the starting mapping from the ambient environment
// according to the isolation mode.
func (c *Composer) seed() map[string]string {
	env := make(map[string]string)

	if c.Mode == Passthrough {
		for _, kv := range os.Environ() {
			if name, value, ok := strings.Cut(kv, "="); ok {
				env[name] = value
			}
		}
		return env
	}

	for _, name := range coreVars {
		if value, ok := os.LookupEnv(name); ok {
			env[name] = value
		}
	}
	for _, name := range c.Allowlist {
		if value, ok := os.LookupEnv(name); ok {
			env[name] = value
		}
	}
	return env
}

func (c *Composer) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

// Environ converts a composed mapping to the KEY=VALUE form expected by
// os/exec, sorted by name for deterministic spawns.
func Environ(env map[string]string) []string {
	out := make([]string, 0, len(env))
	for name, value := range env {
		out = append(out, name+"="+value)
	}
	sort.Strings(out)
	return out
}
