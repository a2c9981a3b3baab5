// Package wrapper sequences a supervised run: pre-run hook, environment
// composition, executable resolution, spawn, supervision, post-run hook,
// and the final error decision.
package wrapper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/gt-labs/envoy/internal/environment"
	"github.com/gt-labs/envoy/internal/executor"
)

// Wrapper runs one configured command. It holds no state across runs.
type Wrapper struct {
	cfg      Config
	composer *environment.Composer
	exec     *executor.Executor
	logger   *slog.Logger
}

// Option customizes a Wrapper.
type Option func(*Wrapper)

// WithExecutor substitutes the process executor (used by tests and by
// callers that tee console output into a log file).
func WithExecutor(e *executor.Executor) Option {
	return func(w *Wrapper) { w.exec = e }
}

// WithLogger sets the logger used for run progress.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Wrapper) { w.logger = logger }
}

// New creates a Wrapper for the given configuration.
func New(cfg Config, opts ...Option) *Wrapper {
	w := &Wrapper{
		cfg: cfg,
		composer: &environment.Composer{
			Mode:      cfg.Mode,
			Allowlist: cfg.Allowlist,
		},
		exec:   executor.New(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.composer.Logger = w.logger
	w.exec.Logger = w.logger
	return w
}

// Run executes the configured command.
//
// Ordering guarantees: the pre-run hook completes (or fails) before
// anything is spawned; the child is fully terminated before the post-run
// hook runs; the post-run hook runs exactly once whenever a result
// exists, regardless of how the run ended. A post-run failure with
// ContinueOnPostRunError unset supersedes any pending execution error.
func (w *Wrapper) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	result := &Result{ReturnCode: executor.ReturnCodeFailure}

	if err := w.preRun(); err != nil {
		result.Duration = time.Since(start)
		return w.finish(result, err)
	}

	runErr := w.execute(ctx, result, start)
	return w.finish(result, runErr)
}

// execute composes the environment, resolves the executable against it,
// and supervises the child. The result is updated in place.
func (w *Wrapper) execute(ctx context.Context, result *Result, start time.Time) error {
	defer func() { result.Duration = time.Since(start) }()

	// The environment is built before resolution so that the child's
	// PATH, not the launcher's, decides what gets executed. This is what
	// keeps closed mode closed.
	env, err := w.composer.Compose(w.cfg.EnvFiles, w.cfg.Env)
	if err != nil {
		return fmt.Errorf("compose environment: %w", err)
	}

	resolved, err := executor.Resolve(w.cfg.Executable, env["PATH"])
	if err != nil {
		return err
	}

	result.Command = append([]string{resolved}, w.cfg.Args...)
	w.logger.Info("executing", "command", strings.Join(result.Command, " "), "dir", w.cfg.Dir)

	outcome, err := w.exec.Run(ctx, executor.Spec{
		Command:       result.Command,
		Env:           environment.Environ(env),
		Dir:           w.cfg.Dir,
		Timeout:       w.cfg.Timeout,
		Shell:         w.cfg.Shell,
		CaptureOutput: w.cfg.CaptureOutput,
		StreamOutput:  w.cfg.StreamOutput,
		OnStart:       w.cfg.OnStart,
		OnOutput:      w.cfg.OnOutput,
		OnError:       w.cfg.OnError,
	})
	if outcome != nil {
		result.PID = outcome.PID
	}
	if err != nil {
		return fmt.Errorf("spawn process: %w", err)
	}

	result.ReturnCode = outcome.ExitCode
	result.Stdout = outcome.Stdout
	result.Stderr = outcome.Stderr
	result.TimedOut = outcome.TimedOut
	result.Interrupted = outcome.Interrupted

	w.logger.Info("process finished", "result", result.String())
	return nil
}

// finish runs the post-run hook and applies the final error policy.
func (w *Wrapper) finish(result *Result, runErr error) (*Result, error) {
	if err := w.postRun(result); err != nil {
		// Post-run failure supersedes whatever was pending.
		return result, err
	}

	if runErr != nil {
		// Pre-run failures propagate regardless of RaiseOnError: nothing
		// was spawned and the caller asked for the hook to be fatal.
		var preErr *PreRunError
		if errors.As(runErr, &preErr) {
			return result, runErr
		}
		if w.cfg.RaiseOnError {
			return result, &ExecutionError{Command: result.Command, ExitCode: result.ReturnCode, Err: runErr}
		}
		w.logger.Error("execution failed", "err", runErr)
		return result, nil
	}

	if w.cfg.RaiseOnError && !result.Success() {
		return result, &ExecutionError{
			Command:  result.Command,
			ExitCode: result.ReturnCode,
			TimedOut: result.TimedOut,
			Timeout:  w.cfg.Timeout,
		}
	}
	return result, nil
}

// preRun invokes the pre-run hook, honoring ContinueOnPreRunError.
func (w *Wrapper) preRun() error {
	if w.cfg.PreRun == nil {
		return nil
	}

	w.logger.Info("executing pre-run operations")
	if err := w.cfg.PreRun(); err != nil {
		w.logger.Error("pre-run operation failed", "err", err)
		if !w.cfg.ContinueOnPreRunError {
			return &PreRunError{Err: err}
		}
	}
	return nil
}

// postRun invokes the post-run hook, honoring ContinueOnPostRunError.
func (w *Wrapper) postRun(result *Result) error {
	if w.cfg.PostRun == nil {
		return nil
	}

	w.logger.Info("executing post-run operations")
	if err := w.cfg.PostRun(result); err != nil {
		w.logger.Error("post-run operation failed", "err", err)
		if !w.cfg.ContinueOnPostRunError {
			return &PostRunError{Err: err}
		}
	}
	return nil
}
