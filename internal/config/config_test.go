package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoader_Load_CreatesDefaultIfMissing(t *testing.T) {
	tmpHome := t.TempDir()
	t.Setenv("HOME", tmpHome)

	loader, err := NewLoader()
	require.NoError(t, err)

	cfg, err := loader.Load()
	require.NoError(t, err)

	// Check defaults
	assert.Equal(t, "closed", cfg.Defaults.Mode)
	assert.Equal(t, time.Duration(0), cfg.Defaults.Timeout)
	assert.Empty(t, cfg.Defaults.Allowlist)
	assert.Empty(t, cfg.Bundles.Roots)
	assert.Contains(t, cfg.Storage.Logs, "logs")

	// Verify file was created
	_, err = os.Stat(loader.Path())
	assert.NoError(t, err)
}

func TestLoader_Load_ReadsExistingConfig(t *testing.T) {
	tmpHome := t.TempDir()
	t.Setenv("HOME", tmpHome)

	// Create config manually
	configDir := filepath.Join(tmpHome, ".config", "envoy")
	require.NoError(t, os.MkdirAll(configDir, 0755))

	configContent := `
defaults:
  mode: passthrough
  timeout: 90s
  allowlist: [JAVA_HOME, GOPATH]
bundles:
  roots:
    - ~/workspace
storage:
  logs: ~/custom/logs
`
	require.NoError(t, os.WriteFile(
		filepath.Join(configDir, "config.yaml"),
		[]byte(configContent),
		0644,
	))

	loader, err := NewLoader()
	require.NoError(t, err)

	cfg, err := loader.Load()
	require.NoError(t, err)

	assert.Equal(t, "passthrough", cfg.Defaults.Mode)
	assert.Equal(t, 90*time.Second, cfg.Defaults.Timeout)
	assert.Equal(t, []string{"JAVA_HOME", "GOPATH"}, cfg.Defaults.Allowlist)
	assert.Equal(t, []string{filepath.Join(tmpHome, "workspace")}, cfg.Bundles.Roots)
	assert.Equal(t, filepath.Join(tmpHome, "custom", "logs"), cfg.Storage.Logs)
}

func TestLoader_Load_EnvVarOverride(t *testing.T) {
	tmpHome := t.TempDir()
	t.Setenv("HOME", tmpHome)
	t.Setenv("ENVOY_MODE", "passthrough")
	t.Setenv("ENVOY_BUNDLES_CONFIG", "/etc/envoy/bundles.json")

	loader, err := NewLoader()
	require.NoError(t, err)

	cfg, err := loader.Load()
	require.NoError(t, err)

	// Env vars should override file defaults
	assert.Equal(t, "passthrough", cfg.Defaults.Mode)
	assert.Equal(t, "/etc/envoy/bundles.json", cfg.Bundles.ConfigFile)
}

func TestLoader_Path(t *testing.T) {
	tmpHome := t.TempDir()
	t.Setenv("HOME", tmpHome)

	loader, err := NewLoader()
	require.NoError(t, err)

	expected := filepath.Join(tmpHome, ".config", "envoy", "config.yaml")
	assert.Equal(t, expected, loader.Path())
}

func TestLoader_Get(t *testing.T) {
	tmpHome := t.TempDir()
	t.Setenv("HOME", tmpHome)

	loader, err := NewLoader()
	require.NoError(t, err)

	_, err = loader.Load()
	require.NoError(t, err)

	t.Run("valid key returns value", func(t *testing.T) {
		val, err := loader.Get("defaults.mode")
		require.NoError(t, err)
		assert.Equal(t, "closed", val)
	})

	t.Run("invalid key returns error", func(t *testing.T) {
		_, err := loader.Get("invalid.key")
		assert.ErrorIs(t, err, ErrInvalidKey)
	})
}

func TestLoader_Set(t *testing.T) {
	tmpHome := t.TempDir()
	t.Setenv("HOME", tmpHome)

	loader, err := NewLoader()
	require.NoError(t, err)

	_, err = loader.Load()
	require.NoError(t, err)

	t.Run("sets valid key", func(t *testing.T) {
		err := loader.Set("defaults.mode", "passthrough")
		require.NoError(t, err)

		val, err := loader.Get("defaults.mode")
		require.NoError(t, err)
		assert.Equal(t, "passthrough", val)
	})

	t.Run("rejects invalid key", func(t *testing.T) {
		err := loader.Set("invalid.key", "value")
		assert.ErrorIs(t, err, ErrInvalidKey)
	})

	t.Run("rejects invalid mode", func(t *testing.T) {
		err := loader.Set("defaults.mode", "open")
		assert.ErrorIs(t, err, ErrInvalidMode)
	})

	t.Run("rejects malformed timeout", func(t *testing.T) {
		err := loader.Set("defaults.timeout", "soon")
		assert.Error(t, err)
	})

	t.Run("accepts duration timeout", func(t *testing.T) {
		err := loader.Set("defaults.timeout", "2m30s")
		assert.NoError(t, err)
	})
}

func TestConfig_Validate(t *testing.T) {
	t.Run("valid config", func(t *testing.T) {
		cfg := &Config{
			Defaults: DefaultsConfig{Mode: "closed", Timeout: time.Minute},
			Storage:  StorageConfig{Logs: "/tmp/logs"},
		}
		assert.NoError(t, cfg.Validate())
	})

	t.Run("empty mode is allowed", func(t *testing.T) {
		cfg := &Config{
			Defaults: DefaultsConfig{},
			Storage:  StorageConfig{Logs: "/tmp/logs"},
		}
		assert.NoError(t, cfg.Validate())
	})

	t.Run("invalid mode", func(t *testing.T) {
		cfg := &Config{
			Defaults: DefaultsConfig{Mode: "open"},
			Storage:  StorageConfig{Logs: "/tmp/logs"},
		}
		err := cfg.Validate()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "Mode")
	})

	t.Run("missing logs path", func(t *testing.T) {
		cfg := &Config{
			Defaults: DefaultsConfig{Mode: "closed"},
		}
		err := cfg.Validate()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "Logs")
	})
}

func TestIsValidMode(t *testing.T) {
	assert.True(t, IsValidMode("closed"))
	assert.True(t, IsValidMode("passthrough"))
	assert.False(t, IsValidMode("open"))
	assert.False(t, IsValidMode(""))
}

func TestValidateKey(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		wantErr error
	}{
		{"defaults.mode is valid", "defaults.mode", nil},
		{"defaults.timeout is valid", "defaults.timeout", nil},
		{"defaults.allowlist is valid", "defaults.allowlist", nil},
		{"bundles.roots is valid", "bundles.roots", nil},
		{"bundles.config_file is valid", "bundles.config_file", nil},
		{"storage.logs is valid", "storage.logs", nil},
		{"defaults is valid", "defaults", nil},
		{"bundles is valid", "bundles", nil},
		{"storage is valid", "storage", nil},
		{"unknown.key returns error", "unknown.key", ErrInvalidKey},
		{"empty key returns error", "", ErrInvalidKey},
		{"random key returns error", "foo", ErrInvalidKey},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateKey(tt.key)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoader_expandPath(t *testing.T) {
	tmpHome := "/home/test"
	loader := &Loader{homeDir: tmpHome}

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"expands ~/ prefix", "~/foo", filepath.Join(tmpHome, "foo")},
		{"expands ~ alone", "~", tmpHome},
		{"preserves absolute path", "/absolute/path", "/absolute/path"},
		{"preserves relative path", "relative/path", "relative/path"},
		{"handles nested paths", "~/foo/bar/baz", filepath.Join(tmpHome, "foo", "bar", "baz")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := loader.expandPath(tt.input)
			assert.Equal(t, tt.expected, result)
		})
	}
}
