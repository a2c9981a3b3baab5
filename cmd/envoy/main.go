// Command envoy launches executables inside composed environments.
package main

import (
	"errors"
	"os"

	"github.com/gt-labs/envoy/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		var exitErr *cmd.ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		os.Exit(1)
	}
}
