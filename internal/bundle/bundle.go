// Package bundle discovers envoy bundles: directory trees (typically git
// repositories) carrying an envoy_env/ configuration directory.
package bundle

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// envDirName is the subdirectory that makes a directory a bundle.
const envDirName = "envoy_env"

// maxSearchDepth bounds the recursive scan below each root directory.
const maxSearchDepth = 5

// RootsEnvVar names the ambient variable holding path-list separated
// bundle search roots.
const RootsEnvVar = "ENVOY_BNDL_ROOTS"

// Sentinel errors for bundle loading.
var (
	// ErrConfigNotFound is returned when a bundles config file is missing.
	ErrConfigNotFound = errors.New("bundles config file not found")

	// ErrConfigInvalid is returned when a bundles config file cannot be parsed.
	ErrConfigInvalid = errors.New("invalid bundles config file")
)

// Bundle is one discovered bundle with its environment files indexed.
type Bundle struct {
	Root     string
	Name     string
	EnvDir   string
	EnvFiles map[string]string // file name -> absolute path
}

// String formats the bundle for listings.
func (b *Bundle) String() string {
	return fmt.Sprintf("%s (%s)", b.Name, b.Root)
}

// New builds a Bundle rooted at dir, indexing envoy_env/ once so later
// lookups do no filesystem work.
func New(root string) *Bundle {
	b := &Bundle{
		Root:     root,
		Name:     filepath.Base(root),
		EnvDir:   filepath.Join(root, envDirName),
		EnvFiles: make(map[string]string),
	}

	entries, err := os.ReadDir(b.EnvDir)
	if err != nil {
		return b
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		b.EnvFiles[entry.Name()] = filepath.Join(b.EnvDir, entry.Name())
	}
	return b
}

// IsValid reports whether path is a directory containing envoy_env/.
func IsValid(path string) bool {
	info, err := os.Stat(filepath.Join(path, envDirName))
	return err == nil && info.IsDir()
}

// isGitRepo reports whether path contains a .git directory.
func isGitRepo(path string) bool {
	info, err := os.Stat(filepath.Join(path, ".git"))
	return err == nil && info.IsDir()
}

// DiscoverFromRoots scans each root directory for git repositories that
// are valid bundles. Git repositories are not descended into, dot
// directories are skipped, and the scan is depth-bounded.
func DiscoverFromRoots(roots []string, logger *slog.Logger) []*Bundle {
	if logger == nil {
		logger = slog.Default()
	}

	var bundles []*Bundle
	for _, root := range roots {
		abs, err := filepath.Abs(root)
		if err != nil {
			logger.Debug("skipping bundle root", "root", root, "err", err)
			continue
		}
		if info, err := os.Stat(abs); err != nil || !info.IsDir() {
			logger.Warn("bundle root does not exist", "root", abs)
			continue
		}

		for _, repo := range findGitRepos(abs, 0, logger) {
			if !IsValid(repo) {
				logger.Debug("git repo is not an envoy bundle", "path", repo)
				continue
			}
			b := New(repo)
			bundles = append(bundles, b)
			logger.Info("discovered bundle", "bundle", b.String())
		}
	}
	return bundles
}

// findGitRepos recursively collects git repository roots under path.
func findGitRepos(path string, depth int, logger *slog.Logger) []string {
	if depth > maxSearchDepth {
		return nil
	}

	if isGitRepo(path) {
		return []string{path}
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		logger.Debug("cannot read directory", "path", path, "err", err)
		return nil
	}

	var repos []string
	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		repos = append(repos, findGitRepos(filepath.Join(path, entry.Name()), depth+1, logger)...)
	}
	return repos
}

// DiscoverAuto discovers bundles from the roots named in ENVOY_BNDL_ROOTS,
// a path-list separated directory list. An unset or empty variable yields
// no bundles, not an error.
func DiscoverAuto(logger *slog.Logger) []*Bundle {
	if logger == nil {
		logger = slog.Default()
	}

	rootsValue := os.Getenv(RootsEnvVar)
	if rootsValue == "" {
		logger.Debug(RootsEnvVar + " not set, no auto-discovery")
		return nil
	}

	var roots []string
	for _, root := range filepath.SplitList(rootsValue) {
		if root = strings.TrimSpace(root); root != "" {
			roots = append(roots, root)
		}
	}
	if len(roots) == 0 {
		return nil
	}

	logger.Info("auto-discovering bundles", "roots", len(roots))
	return DiscoverFromRoots(roots, logger)
}

// bundlesConfig is the on-disk config file shape: either a JSON object
// with a "bundles" key or a bare array of paths.
type bundlesConfig struct {
	Bundles []string `json:"bundles"`
}

// LoadFromConfig reads an explicit bundle list from a JSON config file.
// Entries that are not valid bundles are logged and skipped.
func LoadFromConfig(path string, logger *slog.Logger) ([]*Bundle, error) {
	if logger == nil {
		logger = slog.Default()
	}

	data, err := os.ReadFile(path) //nolint:gosec // G304: user-supplied config path
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return nil, fmt.Errorf("read bundles config: %w", err)
	}

	var paths []string
	var cfg bundlesConfig
	if err := json.Unmarshal(data, &cfg); err == nil {
		paths = cfg.Bundles
	} else if err := json.Unmarshal(data, &paths); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrConfigInvalid, path, err)
	}

	var bundles []*Bundle
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			logger.Warn("invalid bundle path in config", "path", p, "err", err)
			continue
		}
		if !IsValid(abs) {
			logger.Warn("invalid bundle in config", "path", abs)
			continue
		}
		b := New(abs)
		bundles = append(bundles, b)
		logger.Info("loaded bundle from config", "bundle", b.String())
	}
	return bundles, nil
}
