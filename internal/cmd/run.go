package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/gt-labs/envoy/internal/executor"
	"github.com/gt-labs/envoy/internal/flags"
	"github.com/gt-labs/envoy/internal/logging"
	"github.com/gt-labs/envoy/internal/slogger"
	"github.com/gt-labs/envoy/internal/spinner"
	"github.com/gt-labs/envoy/internal/wrapper"
)

var runCmd = &cobra.Command{
	Use:   "run <command> [args...]",
	Short: "Run a registered command in its composed environment",
	Long: `Run a registered command inside its composed environment.

The environment is seeded closed (core variables plus the allowlist),
every bundle's global_env.json is applied first, then the command's own
environment files, then any --env overrides verbatim. The executable is
resolved against the composed PATH, never the launcher's.

The process exits with the child's exit code; an interrupted run exits
with 130.`,
	Example: `  # Run a registered command
  envoy run build

  # Pass arguments through to the child
  envoy run build -- --target dist

  # Override a variable for this run only
  envoy run build --env CC=clang

  # Bound the run and capture output quietly
  envoy run deploy --timeout 5m --capture`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRunCmd,
}

// runFlags holds parsed flags for the run command.
type runFlags struct {
	env     []string
	cwd     string
	timeout time.Duration
	capture bool
	shell   bool
	logRun  bool
}

// parseRunFlags extracts and validates flags from the command.
func parseRunFlags(cmd *cobra.Command) (*runFlags, error) {
	env, err := cmd.Flags().GetStringArray("env")
	if err != nil {
		return nil, fmt.Errorf("get env flag: %w", err)
	}
	cwd, err := cmd.Flags().GetString("cwd")
	if err != nil {
		return nil, fmt.Errorf("get cwd flag: %w", err)
	}
	timeout, err := cmd.Flags().GetDuration("timeout")
	if err != nil {
		return nil, fmt.Errorf("get timeout flag: %w", err)
	}
	capture, err := cmd.Flags().GetBool("capture")
	if err != nil {
		return nil, fmt.Errorf("get capture flag: %w", err)
	}
	shell, err := cmd.Flags().GetBool("shell")
	if err != nil {
		return nil, fmt.Errorf("get shell flag: %w", err)
	}
	logRun, err := cmd.Flags().GetBool("log")
	if err != nil {
		return nil, fmt.Errorf("get log flag: %w", err)
	}

	cfg := ConfigFromContext(cmd.Context())
	if !cmd.Flags().Changed("timeout") && cfg != nil {
		timeout = cfg.Defaults.Timeout
	}
	if !cmd.Flags().Changed("shell") && cfg != nil {
		shell = cfg.Defaults.Shell
	}

	return &runFlags{
		env:     env,
		cwd:     cwd,
		timeout: timeout,
		capture: capture,
		shell:   shell,
		logRun:  logRun,
	}, nil
}

func runRunCmd(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	logger := slogger.L(ctx)

	command, err := lookupCommand(ctx, args[0])
	if err != nil {
		return err
	}

	rf, err := parseRunFlags(cmd)
	if err != nil {
		return err
	}

	overrides, err := flags.Parse(rf.env)
	if err != nil {
		return err
	}
	// Manifest-declared overrides apply first, --env wins on conflict.
	overrides = flags.Merge(command.Env, overrides)

	mode, err := environmentMode(cmd)
	if err != nil {
		return err
	}

	cfg := wrapper.Config{
		Executable:    command.Executable,
		Args:          append(append([]string{}, command.BaseArgs...), args[1:]...),
		EnvFiles:      envFilesFor(command, BundlesFromContext(ctx)),
		Env:           overrides,
		Mode:          mode,
		Allowlist:     allowlist(ctx),
		Dir:           rf.cwd,
		Timeout:       rf.timeout,
		Shell:         rf.shell,
		CaptureOutput: rf.capture,
		StreamOutput:  !rf.capture,
	}

	opts := []wrapper.Option{wrapper.WithLogger(logger)}

	if rf.logRun {
		exec, closeLog, err := logExecutor(ctx, command.Name, rf.capture, logger)
		if err != nil {
			return err
		}
		defer closeLog()
		// Lines reach the log through the console writers, so the run
		// streams even when captured.
		cfg.StreamOutput = true
		opts = append(opts, wrapper.WithExecutor(exec))
	}

	// A captured run on a terminal gets a spinner ticking over the child's
	// latest output line instead of silence.
	var spin *spinner.Spinner
	if rf.capture && term.IsTerminal(int(os.Stderr.Fd())) {
		spin = spinner.New(os.Stderr, command.Name)
		spinWriter := spin.Writer()
		cfg.OnOutput = func(line string) { fmt.Fprintln(spinWriter, line) }
		cfg.OnError = func(line string) { fmt.Fprintln(spinWriter, line) }
		go spin.Start() //nolint:errcheck // display only
	}

	result, err := wrapper.New(cfg, opts...).Run(ctx)
	if spin != nil {
		spin.Stop()
	}
	if err != nil {
		return err
	}

	if rf.capture {
		if result.Stdout != "" {
			fmt.Println(result.Stdout)
		}
		if result.Stderr != "" {
			fmt.Fprintln(os.Stderr, result.Stderr)
		}
	}

	return exitFromResult(result)
}

// exitFromResult maps a run result onto the launcher's own exit code.
func exitFromResult(result *wrapper.Result) error {
	code := result.ReturnCode
	switch {
	case result.Interrupted:
		code = 130
	case code == executor.ReturnCodeFailure || code < 0:
		code = 1
	}
	if code == 0 {
		return nil
	}
	return &ExitError{Code: code}
}

// logExecutor builds an executor whose console writers tee into a fresh
// run log file. The returned func closes the log.
func logExecutor(ctx context.Context, name string, quiet bool, logger *slog.Logger) (*executor.Executor, func(), error) {
	logsDir := ""
	if cfg := ConfigFromContext(ctx); cfg != nil {
		logsDir = cfg.Storage.Logs
	}
	if logsDir == "" {
		dataDir, err := defaultDataDir()
		if err != nil {
			return nil, nil, err
		}
		logsDir = filepath.Join(dataDir, "logs")
	}

	pm := logging.NewPathManager(logsDir)
	logPath, err := pm.EnsureRunLog(name, logging.NewRunID(time.Now()))
	if err != nil {
		return nil, nil, err
	}

	// Quiet runs log without echoing to the console.
	var primaryOut, primaryErr io.Writer
	if !quiet {
		primaryOut, primaryErr = os.Stdout, os.Stderr
	}
	rw, err := logging.NewRunWriters(primaryOut, primaryErr, logPath)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("logging run output", "path", logPath)

	exec := executor.New()
	exec.Stdout = rw.Stdout
	exec.Stderr = rw.Stderr
	return exec, func() { _ = rw.Close() }, nil
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringArray("env", nil, "override a variable for this run (KEY=VALUE, repeatable)")
	runCmd.Flags().String("cwd", "", "working directory for the child process")
	runCmd.Flags().Duration("timeout", 0, "kill the child after this duration (0 = no limit)")
	runCmd.Flags().Bool("capture", false, "capture output instead of streaming it")
	runCmd.Flags().Bool("shell", false, "run the command line through /bin/sh -c")
	runCmd.Flags().Bool("log", false, "tee child output into the run log directory")
}
