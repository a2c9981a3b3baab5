package logging

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"time"
)

// DefaultTailLines is how much history 'envoy logs' shows by default.
const DefaultTailLines = 100

// Reader reads the log files written by 'envoy run --log'.
type Reader struct {
	pathMgr *PathManager
}

// NewReader builds a Reader over the given run-log layout.
func NewReader(pathMgr *PathManager) *Reader {
	return &Reader{pathMgr: pathMgr}
}

// ReadAll returns every line a run logged.
func (r *Reader) ReadAll(command, runID string) ([]string, error) {
	return readAllLines(r.pathMgr.RunLogPath(command, runID))
}

// ReadLastN returns the last n logged lines, or DefaultTailLines worth
// when n <= 0.
func (r *Reader) ReadLastN(command, runID string, n int) ([]string, error) {
	if n <= 0 {
		n = DefaultTailLines
	}
	return readLastNLines(r.pathMgr.RunLogPath(command, runID), n)
}

// Follow copies newly appended log content to out, tail -f style, until
// the context is cancelled. The run may still be writing; pollInterval
// bounds how stale the output can get.
func (r *Reader) Follow(ctx context.Context, command, runID string, out io.Writer, pollInterval time.Duration) error {
	path := r.pathMgr.RunLogPath(command, runID)

	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	// Only new content; history is FollowWithHistory's job.
	if _, err := file.Seek(0, io.SeekEnd); err != nil {
		return fmt.Errorf("seek to end: %w", err)
	}

	reader := bufio.NewReader(file)
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			for {
				line, err := reader.ReadBytes('\n')
				// A partial line at EOF still gets written; the child
				// may finish it before the next poll.
				if len(line) > 0 {
					if _, werr := out.Write(line); werr != nil {
						return fmt.Errorf("write output: %w", werr)
					}
				}
				if err != nil {
					if err == io.EOF {
						break
					}
					return fmt.Errorf("read line: %w", err)
				}
			}
		}
	}
}

// FollowWithHistory prints the last n lines, then follows new output —
// what 'envoy logs -f' does.
func (r *Reader) FollowWithHistory(ctx context.Context, command, runID string, out io.Writer, n int, pollInterval time.Duration) error {
	lines, err := r.ReadLastN(command, runID, n)
	if err != nil && !os.IsNotExist(err) {
		return err
	}

	for _, line := range lines {
		if _, err := fmt.Fprintln(out, line); err != nil {
			return fmt.Errorf("write history: %w", err)
		}
	}

	return r.Follow(ctx, command, runID, out, pollInterval)
}

func readAllLines(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan log file: %w", err)
	}

	return lines, nil
}

// readLastNLines keeps only the last n lines in a ring buffer, so long
// run logs never load fully into memory.
func readLastNLines(path string, n int) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	ring := make([]string, n)
	idx := 0
	count := 0

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		ring[idx] = scanner.Text()
		idx = (idx + 1) % n
		count++
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan log file: %w", err)
	}

	if count == 0 {
		return nil, nil
	}
	if count < n {
		return ring[:count], nil
	}

	// Full ring: idx points at the oldest line.
	result := make([]string, n)
	for i := 0; i < n; i++ {
		result[i] = ring[(idx+i)%n]
	}
	return result, nil
}
