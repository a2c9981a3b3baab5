package wrapper

import (
	"fmt"
	"time"
)

// Result reports how a wrapped run ended. It is created with sentinel
// values at invocation start, filled in as the run progresses, and
// finalized before the post-run hook sees it.
type Result struct {
	ReturnCode  int
	Stdout      string // captured stdout, empty unless CaptureOutput was set
	Stderr      string
	Duration    time.Duration
	PID         int
	Command     []string // fully resolved command vector
	TimedOut    bool
	Interrupted bool
}

// Success reports a clean run: zero exit code and no timeout.
func (r *Result) Success() bool {
	return r.ReturnCode == 0 && !r.TimedOut
}

// String summarizes the result for logs.
func (r *Result) String() string {
	status := "SUCCESS"
	if !r.Success() {
		status = fmt.Sprintf("FAILED (code=%d)", r.ReturnCode)
	}
	return fmt.Sprintf("Result(%s, time=%.2fs, pid=%d)", status, r.Duration.Seconds(), r.PID)
}
