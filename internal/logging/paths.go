// Package logging provides run output logging infrastructure for envoy.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// runIDLayout formats run identifiers so lexicographic order is
// chronological order.
const runIDLayout = "20060102-150405.000"

// NewRunID derives a run identifier from a start time.
func NewRunID(startedAt time.Time) string {
	return startedAt.UTC().Format(runIDLayout)
}

// PathManager handles log file path construction and directory management.
type PathManager struct {
	baseDir string
}

// NewPathManager creates a new PathManager with the given base directory.
// The base directory is typically ~/.local/share/envoy/logs.
func NewPathManager(baseDir string) *PathManager {
	return &PathManager{baseDir: baseDir}
}

// BaseDir returns the base log directory.
func (p *PathManager) BaseDir() string {
	return p.baseDir
}

// CommandDir returns the log directory for a specific command.
// Path format: <baseDir>/<command>/
func (p *PathManager) CommandDir(command string) string {
	return filepath.Join(p.baseDir, command)
}

// RunLogPath returns the full path for one run's log file.
// Path format: <baseDir>/<command>/<runID>.log
func (p *PathManager) RunLogPath(command, runID string) string {
	return filepath.Join(p.baseDir, command, runID+".log")
}

// EnsureCommandDir creates the command log directory if it doesn't exist.
// Returns the command directory path.
func (p *PathManager) EnsureCommandDir(command string) (string, error) {
	dir := p.CommandDir(command)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("create command log directory: %w", err)
	}
	return dir, nil
}

// EnsureRunLog ensures the parent directory exists for a run log file.
// Returns the full log file path.
func (p *PathManager) EnsureRunLog(command, runID string) (string, error) {
	if _, err := p.EnsureCommandDir(command); err != nil {
		return "", err
	}
	return p.RunLogPath(command, runID), nil
}

// LogExists checks if a log file exists for the given run.
func (p *PathManager) LogExists(command, runID string) bool {
	_, err := os.Stat(p.RunLogPath(command, runID))
	return err == nil
}

// RemoveRunLog removes one run's log file if it exists.
func (p *PathManager) RemoveRunLog(command, runID string) error {
	path := p.RunLogPath(command, runID)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove run log: %w", err)
	}
	return nil
}

// RemoveCommandLogs removes all log files for a command.
func (p *PathManager) RemoveCommandLogs(command string) error {
	if err := os.RemoveAll(p.CommandDir(command)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove command logs: %w", err)
	}
	return nil
}

// ListRunLogs returns the run IDs that have log files for the given
// command, oldest first.
func (p *PathManager) ListRunLogs(command string) ([]string, error) {
	entries, err := os.ReadDir(p.CommandDir(command))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read command log directory: %w", err)
	}

	var runs []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if ext := filepath.Ext(name); ext == ".log" {
			runs = append(runs, name[:len(name)-len(ext)])
		}
	}
	sort.Strings(runs)
	return runs, nil
}

// LatestRunID returns the most recent run ID for a command, or an error
// when no run has been logged.
func (p *PathManager) LatestRunID(command string) (string, error) {
	runs, err := p.ListRunLogs(command)
	if err != nil {
		return "", err
	}
	if len(runs) == 0 {
		return "", fmt.Errorf("no run logs for %s", command)
	}
	return runs[len(runs)-1], nil
}
