package wrapper

import (
	"time"

	"github.com/gt-labs/envoy/internal/environment"
)

// Config describes one wrapped run. It is built once by the caller and
// not modified after Run starts.
type Config struct {
	// Executable is a command name searched through the composed PATH, or
	// an absolute/relative path used as-is.
	Executable string
	Args       []string

	// EnvFiles are applied in order, later files overriding earlier ones.
	// Env holds explicit overrides applied verbatim after all files.
	EnvFiles []string
	Env      map[string]string

	// Mode and Allowlist control closed-mode isolation (see environment).
	Mode      environment.Mode
	Allowlist []string

	Dir     string
	Timeout time.Duration // 0 = no deadline
	Shell   bool

	CaptureOutput bool
	StreamOutput  bool

	// Lifecycle hooks. PreRun/PostRun errors respect the continue flags
	// below; OnStart/OnOutput/OnError failures are always suppressed.
	PreRun   func() error
	PostRun  func(*Result) error
	OnStart  func(pid int)
	OnOutput func(line string)
	OnError  func(line string)

	// RaiseOnError turns any non-success result into an ExecutionError
	// returned from Run. Callers running permissively inspect
	// Result.Success instead.
	RaiseOnError           bool
	ContinueOnPreRunError  bool
	ContinueOnPostRunError bool
}
