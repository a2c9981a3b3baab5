package executor

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrExecutableNotFound is returned when an executable cannot be resolved.
var ErrExecutableNotFound = errors.New("executable not found")

// Resolve turns a requested executable name or path into an absolute path.
//
// Requests that are absolute or contain a directory separator must exist
// (and be executable) as given. Bare names are searched directory by
// directory through searchPath, which must be the PATH value of the
// composed child environment — resolving against the launcher's own PATH
// would silently defeat closed environments that redefine it. An empty
// searchPath falls back to the launcher PATH, matching the case where the
// composed environment defines no PATH at all.
func Resolve(name, searchPath string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("%w: empty executable name", ErrExecutableNotFound)
	}

	if filepath.IsAbs(name) || strings.ContainsRune(name, os.PathSeparator) {
		if !isExecutable(name) {
			return "", fmt.Errorf("%w: %s", ErrExecutableNotFound, name)
		}
		abs, err := filepath.Abs(name)
		if err != nil {
			return "", fmt.Errorf("resolve executable path %s: %w", name, err)
		}
		return abs, nil
	}

	if searchPath == "" {
		searchPath = os.Getenv("PATH")
	}

	for _, dir := range filepath.SplitList(searchPath) {
		if dir == "" {
			continue
		}
		candidate := filepath.Join(dir, name)
		if isExecutable(candidate) {
			abs, err := filepath.Abs(candidate)
			if err != nil {
				continue
			}
			return abs, nil
		}
	}

	return "", fmt.Errorf("%w: %q not found in search path", ErrExecutableNotFound, name)
}

// isExecutable reports whether path exists as an executable regular file.
func isExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}
	return info.Mode()&0o111 != 0
}
