// Package executor spawns and supervises the child process: output
// streaming, timeout enforcement, and scoped interrupt handling.
package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"strings"
	"syscall"
	"time"
)

// Sentinel return codes reported instead of a child exit status.
const (
	// ReturnCodeFailure is reported when the child never produced an exit
	// status (spawn failure or timeout).
	ReturnCodeFailure = -1

	// ReturnCodeInterrupted is reported when the run was cut short by an
	// interrupt signal.
	ReturnCodeInterrupted = -2
)

// terminateGracePeriod is how long a child gets between SIGTERM and SIGKILL.
const terminateGracePeriod = 5 * time.Second

// Spec describes one supervised child process run.
type Spec struct {
	Command []string      // resolved argv: absolute executable first
	Env     []string      // composed environment in KEY=VALUE form
	Dir     string        // working directory (empty = inherit)
	Timeout time.Duration // 0 = no deadline
	Shell   bool          // run the command line through /bin/sh -c

	CaptureOutput bool // collect stdout/stderr into the Outcome
	StreamOutput  bool // echo child output line by line to the console

	// Callbacks. All are optional; a panicking callback is logged and
	// suppressed, never propagated.
	OnStart  func(pid int)
	OnOutput func(line string)
	OnError  func(line string)
}

// Outcome reports how a supervised run ended.
type Outcome struct {
	ExitCode    int
	Stdout      string // captured stdout, lines joined with \n
	Stderr      string
	PID         int
	TimedOut    bool
	Interrupted bool
}

// Executor runs child processes. The console writers default to the
// launcher's own stdout/stderr; tests and log tees substitute their own.
type Executor struct {
	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger
}

// New returns an Executor wired to the process console.
func New() *Executor {
	return &Executor{Stdout: os.Stdout, Stderr: os.Stderr}
}

// Run spawns the child described by spec and supervises it to completion.
//
// The returned error is non-nil only for spawn-level failures; a child
// that runs and exits non-zero, times out, or is interrupted is reported
// through the Outcome. Both output streams are drained concurrently, so
// a child writing heavily to stderr cannot deadlock against stdout;
// lines within one stream stay ordered, but stdout and stderr callbacks
// may interleave.
//
// An interrupt handler is installed only for the duration of the run and
// released on every exit path.
func (e *Executor) Run(ctx context.Context, spec Spec) (*Outcome, error) {
	argv := spec.Command
	if spec.Shell {
		argv = []string{"/bin/sh", "-c", strings.Join(spec.Command, " ")}
	}
	if len(argv) == 0 {
		return nil, errors.New("empty command")
	}

	cmd := exec.Command(argv[0], argv[1:]...) //nolint:gosec // G204: running user-requested commands is the point
	cmd.Env = spec.Env
	cmd.Dir = spec.Dir
	cmd.Stdin = os.Stdin

	// Bound the post-exit wait for stragglers holding the output pipes
	// (a grandchild that inherited stdout and outlived the child).
	cmd.WaitDelay = terminateGracePeriod

	outcome := &Outcome{ExitCode: ReturnCodeFailure}

	var stdoutLines, stderrLines *lineWriter
	if spec.CaptureOutput || spec.StreamOutput {
		var echoOut, echoErr io.Writer
		if spec.StreamOutput {
			echoOut = e.stdout()
			echoErr = e.stderr()
		}
		stdoutLines = &lineWriter{console: echoOut, callback: spec.OnOutput, stream: "stdout", exec: e}
		stderrLines = &lineWriter{console: echoErr, callback: spec.OnError, stream: "stderr", exec: e}
		cmd.Stdout = stdoutLines
		cmd.Stderr = stderrLines
	} else {
		cmd.Stdout = e.stdout()
		cmd.Stderr = e.stderr()
	}

	if err := cmd.Start(); err != nil {
		return outcome, fmt.Errorf("start %s: %w", argv[0], err)
	}

	outcome.PID = cmd.Process.Pid
	e.logger().Info("process started", "pid", outcome.PID)
	if spec.OnStart != nil {
		e.safely("on-start callback", func() { spec.OnStart(outcome.PID) })
	}

	var waitErr error
	exited := make(chan struct{})
	go func() {
		waitErr = cmd.Wait()
		close(exited)
	}()

	// Scoped interrupt handling: installed for this run only, released
	// unconditionally on the way out.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	defer signal.Stop(sigCh)

	var deadline <-chan time.Time
	if spec.Timeout > 0 {
		timer := time.NewTimer(spec.Timeout)
		defer timer.Stop()
		deadline = timer.C
	}

	select {
	case <-exited:
	case <-deadline:
		e.logger().Error("process timed out", "timeout", spec.Timeout, "pid", outcome.PID)
		outcome.TimedOut = true
		e.terminate(cmd, exited)
	case <-sigCh:
		e.logger().Warn("interrupt received, terminating process", "pid", outcome.PID)
		outcome.Interrupted = true
		e.terminate(cmd, exited)
	case <-ctx.Done():
		e.logger().Warn("run canceled, terminating process", "pid", outcome.PID)
		outcome.Interrupted = true
		e.terminate(cmd, exited)
	}
	<-exited

	switch {
	case outcome.TimedOut:
		outcome.ExitCode = ReturnCodeFailure
	case outcome.Interrupted:
		outcome.ExitCode = ReturnCodeInterrupted
	default:
		outcome.ExitCode = cmd.ProcessState.ExitCode()
		var exitErr *exec.ExitError
		if waitErr != nil && !errors.As(waitErr, &exitErr) {
			e.logger().Warn("wait failed", "err", waitErr)
		}
	}

	if stdoutLines != nil {
		stdoutLines.flush()
		stderrLines.flush()
	}
	if spec.CaptureOutput {
		outcome.Stdout = strings.Join(stdoutLines.lines, "\n")
		outcome.Stderr = strings.Join(stderrLines.lines, "\n")
	}

	return outcome, nil
}

// terminate asks the child to exit, escalating to SIGKILL after the grace
// period. The caller still waits on exited for the final status.
func (e *Executor) terminate(cmd *exec.Cmd, exited <-chan struct{}) {
	if cmd.Process == nil {
		return
	}

	if err := cmd.Process.Signal(syscall.SIGTERM); err != nil {
		e.logger().Debug("signal process", "err", err)
	}

	select {
	case <-exited:
	case <-time.After(terminateGracePeriod):
		e.logger().Warn("process did not terminate gracefully, killing", "pid", cmd.Process.Pid)
		if err := cmd.Process.Kill(); err != nil {
			e.logger().Debug("kill process", "err", err)
		}
	}
}

// safely invokes a user callback, logging and suppressing panics.
func (e *Executor) safely(what string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			e.logger().Warn(what+" failed", "err", r)
		}
	}()
	fn()
}

func (e *Executor) stdout() io.Writer {
	if e.Stdout != nil {
		return e.Stdout
	}
	return os.Stdout
}

func (e *Executor) stderr() io.Writer {
	if e.Stderr != nil {
		return e.Stderr
	}
	return os.Stderr
}

func (e *Executor) logger() *slog.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return slog.Default()
}

// lineWriter splits one output stream into lines, echoing and forwarding
// each as it completes. os/exec drives each writer from its own copy
// goroutine, so no locking is needed; the happens-before edge of
// cmd.Wait makes the collected lines safe to read afterwards.
type lineWriter struct {
	buf      bytes.Buffer
	console  io.Writer // nil = no echo
	callback func(line string)
	stream   string
	exec     *Executor
	lines    []string
}

func (lw *lineWriter) Write(p []byte) (int, error) {
	lw.buf.Write(p)
	for {
		i := bytes.IndexByte(lw.buf.Bytes(), '\n')
		if i < 0 {
			return len(p), nil
		}
		line := string(lw.buf.Next(i + 1))
		lw.emit(strings.TrimRight(line, "\r\n"))
	}
}

func (lw *lineWriter) emit(line string) {
	lw.lines = append(lw.lines, line)
	if lw.console != nil {
		fmt.Fprintln(lw.console, line)
	}
	if lw.callback != nil {
		lw.exec.safely(lw.stream+" callback", func() { lw.callback(line) })
	}
}

// flush emits any unterminated final line.
func (lw *lineWriter) flush() {
	if lw.buf.Len() > 0 {
		lw.emit(strings.TrimRight(lw.buf.String(), "\r\n"))
		lw.buf.Reset()
	}
}
