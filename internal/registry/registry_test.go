package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gt-labs/envoy/internal/bundle"
)

// makeBundle creates a bundle directory with a commands.json manifest.
func makeBundle(t *testing.T, parent, name, manifest string) *bundle.Bundle {
	t.Helper()
	root := filepath.Join(parent, name)
	envDir := filepath.Join(root, "envoy_env")
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".git"), 0o755))
	require.NoError(t, os.MkdirAll(envDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(envDir, "commands.json"), []byte(manifest), 0o644))
	return bundle.New(root)
}

func TestRegistry_LoadFile(t *testing.T) {
	t.Run("wrapped form", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "commands.json")
		require.NoError(t, os.WriteFile(path, []byte(`{
			"commands": {
				"build": {"executable": "make", "args": ["-j4"], "environment": ["build.json"]}
			}
		}`), 0o644))

		r := New(nil)
		require.NoError(t, r.LoadFile(path))

		cmd, err := r.Get("build")
		require.NoError(t, err)
		assert.Equal(t, "make", cmd.Executable)
		assert.Equal(t, []string{"-j4"}, cmd.BaseArgs)
		assert.Equal(t, []string{"build.json"}, cmd.Environment)
		assert.Equal(t, dir, cmd.EnvDir)
	})

	t.Run("flat form", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "commands.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"lint": {"executable": "golangci-lint"}}`), 0o644))

		r := New(nil)
		require.NoError(t, r.LoadFile(path))
		assert.Equal(t, 1, r.Len())
	})

	t.Run("alias derives the command vector", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "commands.json")
		require.NoError(t, os.WriteFile(path, []byte(`{
			"commands": {"gs": {"alias": ["git", "status", "--short"]}}
		}`), 0o644))

		r := New(nil)
		require.NoError(t, r.LoadFile(path))

		cmd, err := r.Get("gs")
		require.NoError(t, err)
		assert.Equal(t, "git", cmd.Executable)
		assert.Equal(t, []string{"status", "--short"}, cmd.BaseArgs)
		assert.Equal(t, []string{"git", "status", "--short"}, cmd.Alias)
	})

	t.Run("manifest env overrides", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "commands.json")
		require.NoError(t, os.WriteFile(path, []byte(`{
			"commands": {"build": {"executable": "make", "env": {"CC": "clang", "MAKEFLAGS": "-j4"}}}
		}`), 0o644))

		r := New(nil)
		require.NoError(t, r.LoadFile(path))

		cmd, err := r.Get("build")
		require.NoError(t, err)
		assert.Equal(t, "clang", cmd.Env["CC"])
		assert.Equal(t, "-j4", cmd.Env["MAKEFLAGS"])
	})

	t.Run("non-string env value is rejected", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "commands.json")
		require.NoError(t, os.WriteFile(path, []byte(`{
			"commands": {"build": {"executable": "make", "env": {"JOBS": 4}}}
		}`), 0o644))

		r := New(nil)
		assert.ErrorIs(t, r.LoadFile(path), ErrManifestInvalid)
	})

	t.Run("missing manifest", func(t *testing.T) {
		r := New(nil)
		err := r.LoadFile(filepath.Join(t.TempDir(), "commands.json"))
		assert.ErrorIs(t, err, ErrManifestMissing)
	})

	t.Run("malformed manifest", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "commands.json")
		require.NoError(t, os.WriteFile(path, []byte(`{nope`), 0o644))

		r := New(nil)
		assert.ErrorIs(t, r.LoadFile(path), ErrManifestInvalid)
	})
}

func TestRegistry_LoadBundles(t *testing.T) {
	t.Run("merges commands across bundles", func(t *testing.T) {
		parent := t.TempDir()
		a := makeBundle(t, parent, "alpha", `{"commands": {"build": {"executable": "make"}}}`)
		b := makeBundle(t, parent, "beta", `{"commands": {"test": {"executable": "pytest"}}}`)

		r := New(nil)
		require.NoError(t, r.LoadBundles([]*bundle.Bundle{a, b}))

		assert.Equal(t, []string{"build", "test"}, r.Names())

		cmd, err := r.Get("build")
		require.NoError(t, err)
		assert.Equal(t, "alpha", cmd.Bundle)
	})

	t.Run("first bundle wins on conflict", func(t *testing.T) {
		parent := t.TempDir()
		a := makeBundle(t, parent, "alpha", `{"commands": {"build": {"executable": "make"}}}`)
		b := makeBundle(t, parent, "beta", `{"commands": {"build": {"executable": "ninja"}}}`)

		r := New(nil)
		require.NoError(t, r.LoadBundles([]*bundle.Bundle{a, b}))

		cmd, err := r.Get("build")
		require.NoError(t, err)
		assert.Equal(t, "make", cmd.Executable)
		assert.Equal(t, "alpha", cmd.Bundle)
	})

	t.Run("bundles without a manifest are skipped", func(t *testing.T) {
		parent := t.TempDir()
		root := filepath.Join(parent, "plain")
		require.NoError(t, os.MkdirAll(filepath.Join(root, "envoy_env"), 0o755))

		r := New(nil)
		require.NoError(t, r.LoadBundles([]*bundle.Bundle{bundle.New(root)}))
		assert.Equal(t, 0, r.Len())
	})
}

func TestRegistry_Get(t *testing.T) {
	r := New(nil)
	_, err := r.Get("ghost")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFind(t *testing.T) {
	t.Run("finds manifest in a parent directory", func(t *testing.T) {
		root := t.TempDir()
		envDir := filepath.Join(root, "envoy_env")
		require.NoError(t, os.MkdirAll(envDir, 0o755))
		manifest := filepath.Join(envDir, "commands.json")
		require.NoError(t, os.WriteFile(manifest, []byte(`{}`), 0o644))

		nested := filepath.Join(root, "src", "deep")
		require.NoError(t, os.MkdirAll(nested, 0o755))

		found, err := Find(nested)
		require.NoError(t, err)
		assert.Equal(t, manifest, found)
	})

	t.Run("reports failure when nothing is found", func(t *testing.T) {
		_, err := Find(t.TempDir())
		assert.ErrorIs(t, err, ErrManifestMissing)
	})
}
