package wrapper

import (
	"fmt"
	"strings"
	"time"
)

// PreRunError reports a failed pre-run hook.
type PreRunError struct {
	Err error
}

func (e *PreRunError) Error() string {
	return fmt.Sprintf("pre-run operation failed: %v", e.Err)
}

func (e *PreRunError) Unwrap() error { return e.Err }

// PostRunError reports a failed post-run hook.
type PostRunError struct {
	Err error
}

func (e *PostRunError) Error() string {
	return fmt.Sprintf("post-run operation failed: %v", e.Err)
}

func (e *PostRunError) Unwrap() error { return e.Err }

// ExecutionError reports a run that did not succeed: environment
// composition or spawn failure, non-zero exit, timeout, or interruption.
type ExecutionError struct {
	Command  []string
	ExitCode int
	TimedOut bool
	Timeout  time.Duration
	Err      error // underlying cause, nil for plain non-zero exits
}

func (e *ExecutionError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("execution failed: %v", e.Err)
	case e.TimedOut:
		return fmt.Sprintf("process timed out after %s", e.Timeout)
	default:
		return fmt.Sprintf("process exited with code %d\ncommand: %s",
			e.ExitCode, strings.Join(e.Command, " "))
	}
}

func (e *ExecutionError) Unwrap() error { return e.Err }
