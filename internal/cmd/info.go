package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gt-labs/envoy/internal/flags"
)

var infoCmd = &cobra.Command{
	Use:   "info <command>",
	Short: "Show details for a registered command",
	Long: `Show a registered command's executable, arguments, environment files,
and owning bundle, plus the resolved list of environment files a run
would apply.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		c, err := lookupCommand(ctx, args[0])
		if err != nil {
			return err
		}

		fmt.Printf("name:        %s\n", c.Name)
		fmt.Printf("executable:  %s\n", c.Executable)
		if len(c.BaseArgs) > 0 {
			fmt.Printf("args:        %s\n", strings.Join(c.BaseArgs, " "))
		}
		if len(c.Alias) > 0 {
			fmt.Printf("alias:       %s\n", strings.Join(c.Alias, " "))
		}
		if c.Bundle != "" {
			fmt.Printf("bundle:      %s\n", c.Bundle)
		}
		if c.EnvDir != "" {
			fmt.Printf("env dir:     %s\n", c.EnvDir)
		}

		if len(c.Env) > 0 {
			fmt.Println("env overrides:")
			for _, pair := range flags.ToPairs(c.Env) {
				fmt.Printf("  %s\n", pair)
			}
		}

		files := envFilesFor(c, BundlesFromContext(ctx))
		if len(files) > 0 {
			fmt.Println("env files:")
			for _, f := range files {
				fmt.Printf("  %s\n", f)
			}
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(infoCmd)
}
