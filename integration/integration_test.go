// Package integration provides integration tests for the envoy CLI using testscript.
package integration

import (
	"errors"
	"os"
	"testing"

	"github.com/rogpeppe/go-internal/testscript"

	"github.com/gt-labs/envoy/internal/cmd"
)

// TestMain sets up the testscript environment. The envoy command runs
// in-process, so the scripts need no pre-built binary.
func TestMain(m *testing.M) {
	os.Exit(testscript.RunMain(m, map[string]func() int{
		"envoy": envoyMain,
	}))
}

func envoyMain() int {
	if err := cmd.Execute(); err != nil {
		var exitErr *cmd.ExitError
		if errors.As(err, &exitErr) {
			return exitErr.Code
		}
		return 1
	}
	return 0
}

// TestScripts runs all testscript files in testdata/scripts.
func TestScripts(t *testing.T) {
	testscript.Run(t, testscript.Params{
		Dir: "testdata/scripts",
	})
}
