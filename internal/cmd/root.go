// Package cmd implements the envoy CLI commands using Cobra.
// It provides commands for running registered commands inside composed
// environments, inspecting bundles and commands, and managing configuration.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/gt-labs/envoy/internal/bundle"
	"github.com/gt-labs/envoy/internal/config"
	"github.com/gt-labs/envoy/internal/registry"
	"github.com/gt-labs/envoy/internal/slogger"
)

// appConfig holds the loaded application configuration.
var appConfig *config.Config

// configLoader is used for reading and writing configuration keys.
var configLoader *config.Loader

var rootCmd = &cobra.Command{
	Use:   "envoy",
	Short: "Run commands inside composed environments",
	Long: `Envoy launches executables inside environments composed from layered
configuration files instead of the ambient shell environment.

Commands are registered in bundles: directory trees carrying an envoy_env/
configuration directory. Each run seeds a closed environment, applies the
bundle's environment files in order, and resolves the executable against
the composed PATH.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		verbosity, err := cmd.Flags().GetCount("verbose")
		if err != nil {
			return fmt.Errorf("get verbose flag: %w", err)
		}

		logger := slogger.New(slogger.Config{Verbosity: verbosity})

		reg, bundles, err := loadRegistry(cmd, logger)
		if err != nil {
			return err
		}

		// Store dependencies in context for subcommands
		ctx := cmd.Context()
		ctx = slogger.WithLogger(ctx, logger)
		ctx = WithConfig(ctx, appConfig)
		ctx = WithLoader(ctx, configLoader)
		ctx = WithRegistry(ctx, reg)
		ctx = WithBundles(ctx, bundles)
		cmd.SetContext(ctx)

		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil && !IsExitError(err) {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	return err
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().CountP("verbose", "v", "increase log verbosity (-v info, -vv debug)")
	rootCmd.PersistentFlags().Bool("passthrough", false, "seed the full ambient environment instead of the closed core set")
	rootCmd.PersistentFlags().String("bundles-config", "", "JSON file listing bundle roots explicitly")
	rootCmd.PersistentFlags().String("commands-file", "", "load commands from a single commands.json instead of bundles")
}

func initConfig() {
	loader, err := config.NewLoader()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to initialize config: %v\n", err)
		return
	}

	cfg, err := loader.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to load config: %v\n", err)
		return
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: config validation failed: %v\n", err)
	}

	appConfig = cfg
	configLoader = loader
}

// loadRegistry builds the command registry for this invocation.
//
// Sources, in priority order:
//  1. --commands-file: a single manifest, no bundle discovery.
//  2. --bundles-config or the bundles.config_file setting: explicit list.
//  3. Configured bundle roots plus ENVOY_BNDL_ROOTS auto-discovery.
//  4. An envoy_env/commands.json found walking up from the working
//     directory (single-bundle mode).
func loadRegistry(cmd *cobra.Command, logger *slog.Logger) (*registry.Registry, []*bundle.Bundle, error) {
	reg := registry.New(logger)

	commandsFile, err := cmd.Flags().GetString("commands-file")
	if err != nil {
		return nil, nil, fmt.Errorf("get commands-file flag: %w", err)
	}
	if commandsFile != "" {
		if err := reg.LoadFile(commandsFile); err != nil {
			return nil, nil, err
		}
		return reg, nil, nil
	}

	bundlesConfig, err := cmd.Flags().GetString("bundles-config")
	if err != nil {
		return nil, nil, fmt.Errorf("get bundles-config flag: %w", err)
	}
	if bundlesConfig == "" && appConfig != nil {
		bundlesConfig = appConfig.Bundles.ConfigFile
	}

	var bundles []*bundle.Bundle
	switch {
	case bundlesConfig != "":
		bundles, err = bundle.LoadFromConfig(bundlesConfig, logger)
		if err != nil {
			return nil, nil, err
		}
	default:
		if appConfig != nil && len(appConfig.Bundles.Roots) > 0 {
			bundles = bundle.DiscoverFromRoots(appConfig.Bundles.Roots, logger)
		}
		bundles = append(bundles, bundle.DiscoverAuto(logger)...)
	}

	if len(bundles) > 0 {
		if err := reg.LoadBundles(bundles); err != nil {
			return nil, nil, err
		}
		return reg, bundles, nil
	}

	// No bundles anywhere: fall back to a manifest above the working
	// directory. Commands are optional for most subcommands, so a miss is
	// not fatal here.
	wd, err := os.Getwd()
	if err != nil {
		return reg, nil, nil
	}
	manifest, err := registry.Find(wd)
	if err != nil {
		logger.Debug("no commands manifest found", "dir", wd)
		return reg, nil, nil
	}
	if err := reg.LoadFile(manifest); err != nil {
		return nil, nil, err
	}
	return reg, nil, nil
}
