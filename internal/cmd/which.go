package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gt-labs/envoy/internal/environment"
	"github.com/gt-labs/envoy/internal/executor"
	"github.com/gt-labs/envoy/internal/slogger"
)

var whichCmd = &cobra.Command{
	Use:   "which <command>",
	Short: "Resolve a command's executable against its composed PATH",
	Long: `Compose a command's environment exactly as a run would and print the
executable path that would be spawned. The lookup goes through the
composed PATH, never the launcher's own.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		c, err := lookupCommand(ctx, args[0])
		if err != nil {
			return err
		}

		mode, err := environmentMode(cmd)
		if err != nil {
			return err
		}

		composer := &environment.Composer{
			Mode:      mode,
			Allowlist: allowlist(ctx),
			Logger:    slogger.L(ctx),
		}
		env, err := composer.Compose(envFilesFor(c, BundlesFromContext(ctx)), nil)
		if err != nil {
			return fmt.Errorf("compose environment: %w", err)
		}

		resolved, err := executor.Resolve(c.Executable, env["PATH"])
		if err != nil {
			return err
		}

		fmt.Println(resolved)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(whichCmd)
}
