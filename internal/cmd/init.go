package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/gt-labs/envoy/internal/prompt"
)

// scaffoldEnvDir is the configuration directory created by init.
const scaffoldEnvDir = "envoy_env"

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Scaffold an envoy_env/ directory in the current directory",
	Long: `Create an envoy_env/ configuration directory with a starter
global_env.json and commands.json, turning the current directory into a
bundle.

Prompts before writing; pass --yes to skip confirmation (for scripts).`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		yes, err := cmd.Flags().GetBool("yes")
		if err != nil {
			return fmt.Errorf("get yes flag: %w", err)
		}

		wd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("get working directory: %w", err)
		}

		envDir := filepath.Join(wd, scaffoldEnvDir)
		if _, err := os.Stat(envDir); err == nil {
			return fmt.Errorf("%s already exists", envDir)
		}

		var p prompt.Prompter = prompt.New()

		name, executable := "hello", "echo"
		if !yes {
			confirmed, err := p.Confirm(
				"Create "+scaffoldEnvDir+"/ here?",
				"This turns "+wd+" into an envoy bundle.",
			)
			if err != nil {
				if errors.Is(err, prompt.ErrCanceled) {
					return nil
				}
				return err
			}
			if !confirmed {
				return nil
			}

			if name, err = promptNonEmpty(p, "Name for the first command", name); err != nil {
				return err
			}
			if executable, err = promptNonEmpty(p, "Executable it runs", executable); err != nil {
				return err
			}
		}

		if err := scaffold(envDir, name, executable); err != nil {
			return err
		}

		p.Print("Created " + envDir)
		p.Print("Try: envoy run " + name)
		return nil
	},
}

// promptNonEmpty asks for input, keeping the fallback when the user
// enters nothing.
func promptNonEmpty(p prompt.Prompter, title, fallback string) (string, error) {
	value, err := p.Input(title, fallback)
	if err != nil {
		return "", err
	}
	if value == "" {
		return fallback, nil
	}
	return value, nil
}

// scaffold writes the starter bundle files.
func scaffold(envDir, name, executable string) error {
	if err := os.MkdirAll(envDir, 0o750); err != nil {
		return fmt.Errorf("create %s: %w", envDir, err)
	}

	global := map[string]any{
		"PATH": []string{"/usr/local/bin", "/usr/bin", "/bin"},
	}
	if err := writeJSON(filepath.Join(envDir, globalEnvFile), global); err != nil {
		return err
	}

	manifest := map[string]any{
		"commands": map[string]any{
			name: map[string]any{
				"executable":  executable,
				"environment": []string{},
			},
		},
	}
	return writeJSON(filepath.Join(envDir, "commands.json"), manifest)
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil { //nolint:gosec // G306: bundle config is not sensitive
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(initCmd)

	initCmd.Flags().BoolP("yes", "y", false, "skip prompts and scaffold with defaults")
}
