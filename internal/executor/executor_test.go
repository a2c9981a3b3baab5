package executor

import (
	"bytes"
	"context"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecutor_Run(t *testing.T) {
	t.Run("captures stdout and stderr", func(t *testing.T) {
		e := New()
		outcome, err := e.Run(context.Background(), Spec{
			Command:       []string{"/bin/sh", "-c", "echo out; echo err >&2"},
			CaptureOutput: true,
		})

		require.NoError(t, err)
		assert.Equal(t, 0, outcome.ExitCode)
		assert.Equal(t, "out", outcome.Stdout)
		assert.Equal(t, "err", outcome.Stderr)
		assert.False(t, outcome.TimedOut)
		assert.False(t, outcome.Interrupted)
		assert.Positive(t, outcome.PID)
	})

	t.Run("reports non-zero exit code", func(t *testing.T) {
		e := New()
		outcome, err := e.Run(context.Background(), Spec{
			Command:       []string{"/bin/sh", "-c", "exit 42"},
			CaptureOutput: true,
		})

		require.NoError(t, err)
		assert.Equal(t, 42, outcome.ExitCode)
	})

	t.Run("streams lines to the console writers", func(t *testing.T) {
		var stdout, stderr bytes.Buffer
		e := &Executor{Stdout: &stdout, Stderr: &stderr}

		outcome, err := e.Run(context.Background(), Spec{
			Command:      []string{"/bin/sh", "-c", "echo one; echo two; echo three >&2"},
			StreamOutput: true,
		})

		require.NoError(t, err)
		assert.Equal(t, 0, outcome.ExitCode)
		assert.Equal(t, "one\ntwo\n", stdout.String())
		assert.Equal(t, "three\n", stderr.String())
		// Capture was not requested.
		assert.Empty(t, outcome.Stdout)
	})

	t.Run("forwards lines to callbacks", func(t *testing.T) {
		var mu sync.Mutex
		var outLines, errLines []string

		e := &Executor{Stdout: &bytes.Buffer{}, Stderr: &bytes.Buffer{}}
		outcome, err := e.Run(context.Background(), Spec{
			Command:       []string{"/bin/sh", "-c", "echo a; echo b; echo c >&2"},
			CaptureOutput: true,
			OnOutput: func(line string) {
				mu.Lock()
				outLines = append(outLines, line)
				mu.Unlock()
			},
			OnError: func(line string) {
				mu.Lock()
				errLines = append(errLines, line)
				mu.Unlock()
			},
		})

		require.NoError(t, err)
		assert.Equal(t, 0, outcome.ExitCode)
		assert.Equal(t, []string{"a", "b"}, outLines)
		assert.Equal(t, []string{"c"}, errLines)
	})

	t.Run("panicking callback is suppressed", func(t *testing.T) {
		e := &Executor{Stdout: &bytes.Buffer{}, Stderr: &bytes.Buffer{}}
		outcome, err := e.Run(context.Background(), Spec{
			Command:       []string{"/bin/sh", "-c", "echo boom"},
			CaptureOutput: true,
			OnOutput:      func(string) { panic("callback exploded") },
			OnStart:       func(int) { panic("on-start exploded") },
		})

		require.NoError(t, err)
		assert.Equal(t, 0, outcome.ExitCode)
		assert.Equal(t, "boom", outcome.Stdout)
	})

	t.Run("heavy interleaved output arrives complete", func(t *testing.T) {
		// A child alternating large writes on both streams would deadlock
		// a sequential drain; both pipes are read concurrently.
		script := "i=0; while [ $i -lt 2000 ]; do echo \"out $i\"; echo \"err $i\" >&2; i=$((i+1)); done"

		e := &Executor{Stdout: &bytes.Buffer{}, Stderr: &bytes.Buffer{}}
		outcome, err := e.Run(context.Background(), Spec{
			Command:       []string{"/bin/sh", "-c", script},
			CaptureOutput: true,
		})

		require.NoError(t, err)
		assert.Equal(t, 0, outcome.ExitCode)
		assert.Len(t, strings.Split(outcome.Stdout, "\n"), 2000)
		assert.Len(t, strings.Split(outcome.Stderr, "\n"), 2000)
	})

	t.Run("respects working directory", func(t *testing.T) {
		dir := t.TempDir()
		e := New()
		outcome, err := e.Run(context.Background(), Spec{
			Command:       []string{"/bin/sh", "-c", "pwd"},
			Dir:           dir,
			CaptureOutput: true,
		})

		require.NoError(t, err)
		assert.Contains(t, outcome.Stdout, dir)
	})

	t.Run("passes the supplied environment only", func(t *testing.T) {
		e := New()
		outcome, err := e.Run(context.Background(), Spec{
			Command:       []string{"/bin/sh", "-c", "echo \"$ENVOY_SPEC_VAR:$HOME\""},
			Env:           []string{"ENVOY_SPEC_VAR=composed", "PATH=/usr/bin:/bin"},
			CaptureOutput: true,
		})

		require.NoError(t, err)
		assert.Equal(t, "composed:", outcome.Stdout)
	})

	t.Run("shell mode joins the command line", func(t *testing.T) {
		e := New()
		outcome, err := e.Run(context.Background(), Spec{
			Command:       []string{"echo", "hello", "shell"},
			Shell:         true,
			CaptureOutput: true,
		})

		require.NoError(t, err)
		assert.Equal(t, "hello shell", outcome.Stdout)
	})

	t.Run("spawn failure returns an error", func(t *testing.T) {
		e := New()
		_, err := e.Run(context.Background(), Spec{
			Command: []string{"/nonexistent/binary"},
		})
		assert.Error(t, err)
	})

	t.Run("timeout terminates the child within the grace bound", func(t *testing.T) {
		e := &Executor{Stdout: &bytes.Buffer{}, Stderr: &bytes.Buffer{}}

		start := time.Now()
		outcome, err := e.Run(context.Background(), Spec{
			Command:       []string{"/bin/sh", "-c", "sleep 30"},
			Timeout:       200 * time.Millisecond,
			CaptureOutput: true,
		})
		elapsed := time.Since(start)

		require.NoError(t, err)
		assert.True(t, outcome.TimedOut)
		assert.Equal(t, ReturnCodeFailure, outcome.ExitCode)
		assert.Less(t, elapsed, 200*time.Millisecond+terminateGracePeriod+2*time.Second)
	})

	t.Run("sigterm-ignoring child is killed after the grace period", func(t *testing.T) {
		if testing.Short() {
			t.Skip("grace period wait is slow")
		}

		e := &Executor{Stdout: &bytes.Buffer{}, Stderr: &bytes.Buffer{}}
		start := time.Now()
		outcome, err := e.Run(context.Background(), Spec{
			Command: []string{"/bin/sh", "-c", "trap '' TERM; sleep 30"},
			Timeout: 200 * time.Millisecond,
		})
		elapsed := time.Since(start)

		require.NoError(t, err)
		assert.True(t, outcome.TimedOut)
		assert.Greater(t, elapsed, terminateGracePeriod)
		assert.Less(t, elapsed, terminateGracePeriod+5*time.Second)
	})

	t.Run("context cancellation terminates the child", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		go func() {
			time.Sleep(100 * time.Millisecond)
			cancel()
		}()

		e := &Executor{Stdout: &bytes.Buffer{}, Stderr: &bytes.Buffer{}}
		outcome, err := e.Run(ctx, Spec{
			Command: []string{"/bin/sh", "-c", "sleep 30"},
		})

		require.NoError(t, err)
		assert.True(t, outcome.Interrupted)
		assert.Equal(t, ReturnCodeInterrupted, outcome.ExitCode)
	})

	t.Run("empty command", func(t *testing.T) {
		e := New()
		_, err := e.Run(context.Background(), Spec{})
		assert.Error(t, err)
	})
}

func TestExecutor_Run_InheritedConsole(t *testing.T) {
	// With neither capture nor streaming requested the child writes
	// straight to the executor's writers (the process console by default).
	var out bytes.Buffer
	e := &Executor{Stdout: &out, Stderr: os.Stderr}

	outcome, err := e.Run(context.Background(), Spec{
		Command: []string{"/bin/sh", "-c", "echo direct"},
	})

	require.NoError(t, err)
	assert.Equal(t, 0, outcome.ExitCode)
	assert.Equal(t, "direct\n", out.String())
	assert.Empty(t, outcome.Stdout)
}

func TestReturnCodes(t *testing.T) {
	// The interrupted sentinel must be distinguishable from both a clean
	// exit and the timeout/failure sentinel.
	assert.Equal(t, -1, ReturnCodeFailure)
	assert.Equal(t, -2, ReturnCodeInterrupted)
}
