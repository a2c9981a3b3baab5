package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gt-labs/envoy/internal/bundle"
	"github.com/gt-labs/envoy/internal/config"
	"github.com/gt-labs/envoy/internal/environment"
	"github.com/gt-labs/envoy/internal/registry"
)

// globalEnvFile is the environment file applied for every command in a
// bundle before the command's own files.
const globalEnvFile = "global_env.json"

// allowlistEnvVar names the ambient variable carrying extra allowlisted
// variable names, separated by commas or semicolons.
const allowlistEnvVar = "ENVOY_ALLOWLIST"

// ExitError carries a child process exit code to main without printing
// anything: the child already wrote its own output.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit status %d", e.Code)
}

// IsExitError reports whether err is an ExitError.
func IsExitError(err error) bool {
	var exitErr *ExitError
	return errors.As(err, &exitErr)
}

func requireRegistry(ctx context.Context) (*registry.Registry, error) {
	reg := RegistryFromContext(ctx)
	if reg == nil {
		return nil, errors.New("command registry not initialized")
	}
	return reg, nil
}

// lookupCommand fetches a registered command with a hint when the name is
// unknown.
func lookupCommand(ctx context.Context, name string) (*registry.Command, error) {
	reg, err := requireRegistry(ctx)
	if err != nil {
		return nil, err
	}

	c, err := reg.Get(name)
	if err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			return nil, fmt.Errorf("unknown command %q: run 'envoy list' to see registered commands", name)
		}
		return nil, err
	}
	return c, nil
}

// environmentMode decides between closed and passthrough seeding from the
// --passthrough flag and the configured default.
func environmentMode(cmd *cobra.Command) (environment.Mode, error) {
	passthrough, err := cmd.Flags().GetBool("passthrough")
	if err != nil {
		return environment.Closed, fmt.Errorf("get passthrough flag: %w", err)
	}
	if passthrough {
		return environment.Passthrough, nil
	}
	if cfg := ConfigFromContext(cmd.Context()); cfg != nil && cfg.Defaults.Mode == "passthrough" {
		return environment.Passthrough, nil
	}
	return environment.Closed, nil
}

// allowlist merges extra closed-mode variable names from ENVOY_ALLOWLIST
// (comma or semicolon separated) and the configured allowlist.
func allowlist(ctx context.Context) []string {
	var names []string

	raw := os.Getenv(allowlistEnvVar)
	for _, name := range strings.FieldsFunc(raw, func(r rune) bool { return r == ',' || r == ';' }) {
		if name = strings.TrimSpace(name); name != "" {
			names = append(names, name)
		}
	}

	if cfg := ConfigFromContext(ctx); cfg != nil {
		names = append(names, cfg.Defaults.Allowlist...)
	}
	return names
}

// envFilesFor collects the environment files for a command run, in
// application order: every bundle's global file first, then each of the
// command's files, taken from every bundle that carries a file of that
// name. A name no bundle carries resolves against the command's own env
// directory so missing files fail composition loudly.
func envFilesFor(c *registry.Command, bundles []*bundle.Bundle) []string {
	var files []string

	if len(bundles) == 0 {
		if c.EnvDir != "" {
			if global := filepath.Join(c.EnvDir, globalEnvFile); fileExists(global) {
				files = append(files, global)
			}
			for _, name := range c.Environment {
				files = append(files, filepath.Join(c.EnvDir, name))
			}
		}
		return files
	}

	for _, b := range bundles {
		if path, ok := b.EnvFiles[globalEnvFile]; ok {
			files = append(files, path)
		}
	}
	for _, name := range c.Environment {
		found := false
		for _, b := range bundles {
			if path, ok := b.EnvFiles[name]; ok {
				files = append(files, path)
				found = true
			}
		}
		if !found && c.EnvDir != "" {
			files = append(files, filepath.Join(c.EnvDir, name))
		}
	}
	return files
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func defaultDataDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}
	return filepath.Join(home, config.DefaultDataDir), nil
}
