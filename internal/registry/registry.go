// Package registry loads and indexes named commands from commands.json
// manifests inside bundle envoy_env/ directories.
package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/gt-labs/envoy/internal/bundle"
	"github.com/gt-labs/envoy/internal/flags"
)

// manifestName is the registry manifest file inside envoy_env/.
const manifestName = "commands.json"

// Sentinel errors for registry operations.
var (
	// ErrNotFound is returned when a named command is not registered.
	ErrNotFound = errors.New("command not found")

	// ErrManifestMissing is returned when a commands.json cannot be located.
	ErrManifestMissing = errors.New("commands manifest not found")

	// ErrManifestInvalid is returned when a commands.json cannot be parsed.
	ErrManifestInvalid = errors.New("invalid commands manifest")
)

// Command is one registered command definition.
type Command struct {
	Name        string
	Executable  string   // command name or path, resolved via the composed PATH
	BaseArgs    []string // arguments prepended before user arguments
	Environment []string        // env file names applied after global_env.json
	Env         flags.Overrides // fixed overrides from the manifest, applied under --env
	Alias       []string        // replacement argv; when set, Executable/BaseArgs derive from it
	Bundle      string          // owning bundle name, empty in single-manifest mode
	EnvDir      string          // envoy_env/ directory the manifest came from
}

// manifestCommand is the on-disk shape of one command entry.
type manifestCommand struct {
	Executable  string         `json:"executable"`
	Args        []string       `json:"args"`
	Environment []string       `json:"environment"`
	Env         map[string]any `json:"env"`
	Alias       []string       `json:"alias"`
}

// manifest is the on-disk shape of commands.json: either a flat map of
// commands or an object with a "commands" key.
type manifest struct {
	Commands map[string]manifestCommand `json:"commands"`
}

// Registry indexes commands by name.
type Registry struct {
	commands map[string]*Command
	logger   *slog.Logger
}

// New creates an empty registry.
func New(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{commands: make(map[string]*Command), logger: logger}
}

// Len returns the number of registered commands.
func (r *Registry) Len() int {
	return len(r.commands)
}

// Get returns the named command.
func (r *Registry) Get(name string) (*Command, error) {
	cmd, ok := r.commands[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return cmd, nil
}

// Names returns all registered command names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.commands))
	for name := range r.commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LoadFile loads a single commands.json manifest. Commands get the
// manifest's directory as their env dir so relative environment file
// names can be resolved later.
func (r *Registry) LoadFile(path string) error {
	cmds, err := parseManifest(path)
	if err != nil {
		return err
	}

	envDir := filepath.Dir(path)
	for name, mc := range cmds {
		if err := r.add(name, mc, "", envDir); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
	}
	r.logger.Info("loaded commands", "manifest", path, "count", len(cmds))
	return nil
}

// LoadBundles loads the manifest of every bundle that has one. On a name
// conflict the earlier bundle wins and the loser is logged.
func (r *Registry) LoadBundles(bundles []*bundle.Bundle) error {
	for _, b := range bundles {
		path := filepath.Join(b.EnvDir, manifestName)
		if _, err := os.Stat(path); err != nil {
			continue
		}

		cmds, err := parseManifest(path)
		if err != nil {
			return fmt.Errorf("bundle %s: %w", b.Name, err)
		}

		for name, mc := range cmds {
			if existing, ok := r.commands[name]; ok {
				r.logger.Warn("command name conflict, keeping first",
					"command", name, "kept", existing.Bundle, "ignored", b.Name)
				continue
			}
			if err := r.add(name, mc, b.Name, b.EnvDir); err != nil {
				return fmt.Errorf("bundle %s: %w", b.Name, err)
			}
		}
	}
	return nil
}

// add registers one command, deriving executable and base args from the
// alias when one is set.
func (r *Registry) add(name string, mc manifestCommand, bundleName, envDir string) error {
	env, err := flags.FromConfig(mc.Env)
	if err != nil {
		return fmt.Errorf("%w: command %s: %w", ErrManifestInvalid, name, err)
	}

	cmd := &Command{
		Name:        name,
		Executable:  mc.Executable,
		BaseArgs:    mc.Args,
		Environment: mc.Environment,
		Env:         env,
		Alias:       mc.Alias,
		Bundle:      bundleName,
		EnvDir:      envDir,
	}
	if len(mc.Alias) > 0 {
		cmd.Executable = mc.Alias[0]
		cmd.BaseArgs = append(append([]string{}, mc.Alias[1:]...), mc.Args...)
	}
	r.commands[name] = cmd
	return nil
}

// parseManifest reads one commands.json, accepting both the wrapped
// {"commands": {...}} form and a flat command map.
func parseManifest(path string) (map[string]manifestCommand, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: manifest paths come from bundle discovery
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrManifestMissing, path)
		}
		return nil, fmt.Errorf("read commands manifest: %w", err)
	}

	var m manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrManifestInvalid, path, err)
	}
	if m.Commands != nil {
		return m.Commands, nil
	}

	var flat map[string]manifestCommand
	if err := json.Unmarshal(data, &flat); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrManifestInvalid, path, err)
	}
	return flat, nil
}

// Find walks up from dir looking for envoy_env/commands.json, the
// single-bundle fallback when no roots are configured.
func Find(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolve search directory: %w", err)
	}

	for d := abs; ; {
		candidate := filepath.Join(d, "envoy_env", manifestName)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
		parent := filepath.Dir(d)
		if parent == d {
			return "", fmt.Errorf("%w: searched %s and parents", ErrManifestMissing, abs)
		}
		d = parent
	}
}
