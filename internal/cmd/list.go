package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered commands",
	Long: `List the commands registered across all discovered bundles.

Use --bundles to list the discovered bundles themselves instead.`,
	Example: `  # List registered commands
  envoy list

  # List discovered bundles
  envoy list --bundles`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		showBundles, err := cmd.Flags().GetBool("bundles")
		if err != nil {
			return fmt.Errorf("get bundles flag: %w", err)
		}
		if showBundles {
			return listBundles(cmd)
		}
		return listCommands(cmd)
	},
}

func listCommands(cmd *cobra.Command) error {
	reg, err := requireRegistry(cmd.Context())
	if err != nil {
		return err
	}

	names := reg.Names()
	if len(names) == 0 {
		fmt.Println("No commands registered")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	if _, err := fmt.Fprintln(w, "NAME\tEXECUTABLE\tBUNDLE"); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, name := range names {
		c, err := reg.Get(name)
		if err != nil {
			return err
		}
		bundleName := c.Bundle
		if bundleName == "" {
			bundleName = "-"
		}
		if _, err := fmt.Fprintf(w, "%s\t%s\t%s\n", c.Name, c.Executable, bundleName); err != nil {
			return fmt.Errorf("write command: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("flush output: %w", err)
	}

	return nil
}

func listBundles(cmd *cobra.Command) error {
	bundles := BundlesFromContext(cmd.Context())
	if len(bundles) == 0 {
		fmt.Println("No bundles discovered")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	if _, err := fmt.Fprintln(w, "NAME\tROOT\tENV FILES"); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, b := range bundles {
		if _, err := fmt.Fprintf(w, "%s\t%s\t%d\n", b.Name, b.Root, len(b.EnvFiles)); err != nil {
			return fmt.Errorf("write bundle: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("flush output: %w", err)
	}

	return nil
}

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().Bool("bundles", false, "list discovered bundles instead of commands")
}
