package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/gt-labs/envoy/internal/logging"
)

// Default poll interval for following logs.
const defaultLogPollInterval = 100 * time.Millisecond

var logsCmd = &cobra.Command{
	Use:   "logs <command> [run-id]",
	Short: "View logged output from past runs",
	Long: `View the output a run logged with 'envoy run --log'.

Without a run ID, shows the most recent run. Use --list to enumerate the
logged runs for a command.`,
	Example: `  # View the latest logged run
  envoy logs build

  # Follow a run still in progress
  envoy logs build -f

  # Show last 500 lines of a specific run
  envoy logs build 20260314-092653.589 -n 500

  # List logged runs
  envoy logs build --list`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runLogsCmd,
}

func runLogsCmd(cmd *cobra.Command, args []string) error {
	command := args[0]

	follow, err := cmd.Flags().GetBool("follow")
	if err != nil {
		return fmt.Errorf("get follow flag: %w", err)
	}
	lines, err := cmd.Flags().GetInt("lines")
	if err != nil {
		return fmt.Errorf("get lines flag: %w", err)
	}
	full, err := cmd.Flags().GetBool("full")
	if err != nil {
		return fmt.Errorf("get full flag: %w", err)
	}
	list, err := cmd.Flags().GetBool("list")
	if err != nil {
		return fmt.Errorf("get list flag: %w", err)
	}

	logsDir, err := getLogsDir(cmd.Context())
	if err != nil {
		return fmt.Errorf("get logs directory: %w", err)
	}
	pathMgr := logging.NewPathManager(logsDir)

	if list {
		runs, err := pathMgr.ListRunLogs(command)
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Printf("No logged runs for %s\n", command)
			return nil
		}
		for _, run := range runs {
			fmt.Println(run)
		}
		return nil
	}

	runID := ""
	if len(args) == 2 {
		runID = args[1]
	} else {
		runID, err = pathMgr.LatestRunID(command)
		if err != nil {
			return err
		}
	}

	if !pathMgr.LogExists(command, runID) {
		return fmt.Errorf("no log file for %s run %s", command, runID)
	}

	reader := logging.NewReader(pathMgr)
	return outputLogs(cmd.Context(), reader, command, runID, follow, lines, full)
}

func outputLogs(ctx context.Context, reader *logging.Reader, command, runID string, follow bool, lines int, full bool) error {
	if follow {
		// Follow mode: show last N lines then stream new output
		return reader.FollowWithHistory(ctx, command, runID, os.Stdout, lines, defaultLogPollInterval)
	}

	// Read mode: show lines and exit
	var logLines []string
	var err error

	if full {
		logLines, err = reader.ReadAll(command, runID)
	} else {
		logLines, err = reader.ReadLastN(command, runID, lines)
	}

	if err != nil {
		return fmt.Errorf("read log: %w", err)
	}

	for _, line := range logLines {
		fmt.Println(line)
	}

	return nil
}

func init() {
	rootCmd.AddCommand(logsCmd)

	logsCmd.Flags().BoolP("follow", "f", false, "follow log output in real-time")
	logsCmd.Flags().IntP("lines", "n", logging.DefaultTailLines, "number of lines to show")
	logsCmd.Flags().Bool("full", false, "show the entire log")
	logsCmd.Flags().Bool("list", false, "list logged runs for the command")
}

// getLogsDir returns the logs directory from config, or the default if config is nil.
func getLogsDir(ctx context.Context) (string, error) {
	cfg := ConfigFromContext(ctx)
	if cfg != nil && cfg.Storage.Logs != "" {
		return cfg.Storage.Logs, nil
	}

	// Fallback to default
	dataDir, err := defaultDataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dataDir, "logs"), nil
}
