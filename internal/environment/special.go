package environment

import (
	"fmt"
	"path/filepath"
)

// envDirName is the directory that marks the root of a bundle.
const envDirName = "envoy_env"

// SpecialVars computes the file-location variables available during
// expansion of one environment file:
//
//	__FILE__        absolute path of the file being processed
//	__BUNDLE__      bundle root (parent of the enclosing envoy_env/)
//	__BUNDLE_ENV__  the envoy_env/ directory itself
//	__BUNDLE_NAME__ base name of the bundle root
//
// If no envoy_env/ directory is found on the path, the file's parent
// directory stands in for both the root and the env directory. Paths use
// forward slashes regardless of platform.
func SpecialVars(path string) (map[string]string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve environment file path: %w", err)
	}

	dir := filepath.Dir(abs)
	root := dir
	envDir := dir
	for d := dir; ; {
		if filepath.Base(d) == envDirName {
			envDir = d
			root = filepath.Dir(d)
			break
		}
		parent := filepath.Dir(d)
		if parent == d {
			break
		}
		d = parent
	}

	return map[string]string{
		"__FILE__":        filepath.ToSlash(abs),
		"__BUNDLE__":      filepath.ToSlash(root),
		"__BUNDLE_ENV__":  filepath.ToSlash(envDir),
		"__BUNDLE_NAME__": filepath.Base(root),
	}, nil
}
