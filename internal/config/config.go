// Package config provides configuration management for envoy.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// Default configuration values.
const (
	DefaultConfigDir  = ".config/envoy"
	DefaultConfigFile = "config.yaml"
	DefaultDataDir    = ".local/share/envoy"
)

// Sentinel errors for configuration operations.
var (
	ErrInvalidKey  = errors.New("invalid configuration key")
	ErrInvalidMode = errors.New("invalid environment mode")
)

// validModes contains the allowed environment mode names (unexported).
var validModes = map[string]bool{
	"closed":      true,
	"passthrough": true,
}

// validKeys is built once from Config struct reflection.
var validKeys = buildValidKeys()

// validate is the shared validator instance.
var validate = validator.New()

// Config represents the full envoy configuration.
type Config struct {
	Defaults DefaultsConfig `mapstructure:"defaults" validate:"required"`
	Bundles  BundlesConfig  `mapstructure:"bundles"`
	Storage  StorageConfig  `mapstructure:"storage" validate:"required"`
}

// DefaultsConfig holds defaults applied to every run.
type DefaultsConfig struct {
	Mode      string        `mapstructure:"mode" validate:"omitempty,oneof=closed passthrough"`
	Timeout   time.Duration `mapstructure:"timeout" validate:"min=0"`
	Allowlist []string      `mapstructure:"allowlist"`
	Shell     bool          `mapstructure:"shell"`
}

// BundlesConfig holds bundle discovery configuration.
type BundlesConfig struct {
	Roots      []string `mapstructure:"roots"`
	ConfigFile string   `mapstructure:"config_file"`
}

// StorageConfig holds storage location configuration.
type StorageConfig struct {
	Logs string `mapstructure:"logs" validate:"required"`
}

// Validate checks the configuration for errors using struct tags.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}

// IsValidMode returns true if the environment mode name is valid.
func IsValidMode(name string) bool {
	return validModes[name]
}

// ValidModeNames returns the list of valid environment mode names.
func ValidModeNames() []string {
	return []string{"closed", "passthrough"}
}

// Loader provides configuration loading and saving.
type Loader struct {
	v       *viper.Viper
	path    string
	homeDir string
}

// NewLoader creates a new configuration loader.
func NewLoader() (*Loader, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("get home directory: %w", err)
	}

	configPath := filepath.Join(home, DefaultConfigDir, DefaultConfigFile)

	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	// Environment variable binding
	v.SetEnvPrefix("ENVOY")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Bind specific env vars to config keys.
	// We intentionally ignore errors here as BindEnv only fails if called with zero arguments.
	//nolint:errcheck // BindEnv only fails with zero arguments
	v.BindEnv("defaults.mode", "ENVOY_MODE")
	//nolint:errcheck // BindEnv only fails with zero arguments
	v.BindEnv("bundles.config_file", "ENVOY_BUNDLES_CONFIG")

	l := &Loader{
		v:       v,
		path:    configPath,
		homeDir: home,
	}

	// Set defaults before any config reading
	l.setDefaults()

	return l, nil
}

// setDefaults sets all default configuration values using Viper.
func (l *Loader) setDefaults() {
	l.v.SetDefault("defaults.mode", "closed")
	l.v.SetDefault("defaults.timeout", time.Duration(0))
	l.v.SetDefault("defaults.allowlist", []string{})
	l.v.SetDefault("defaults.shell", false)
	l.v.SetDefault("bundles.roots", []string{})
	l.v.SetDefault("bundles.config_file", "")
	l.v.SetDefault("storage.logs", "~/.local/share/envoy/logs")
}

// Load reads the configuration file, creating defaults if it doesn't exist.
func (l *Loader) Load() (*Config, error) {
	if _, err := os.Stat(l.path); os.IsNotExist(err) {
		if err := l.createDefault(); err != nil {
			return nil, fmt.Errorf("create default config: %w", err)
		}
	}

	if err := l.v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := l.v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.WeaklyTypedInput = true
		dc.DecodeHook = mapstructure.StringToTimeDurationHookFunc()
	}); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// Expand paths
	cfg.Storage.Logs = l.expandPath(cfg.Storage.Logs)
	cfg.Bundles.ConfigFile = l.expandPath(cfg.Bundles.ConfigFile)
	for i, root := range cfg.Bundles.Roots {
		cfg.Bundles.Roots[i] = l.expandPath(root)
	}

	return &cfg, nil
}

// Path returns the configuration file path.
func (l *Loader) Path() string {
	return l.path
}

// Get returns a configuration value by dot-notation key.
func (l *Loader) Get(key string) (any, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}
	return l.v.Get(key), nil
}

// Set sets a configuration value by dot-notation key.
func (l *Loader) Set(key, value string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}

	// Validate mode name if setting defaults.mode
	if key == "defaults.mode" && value != "" {
		if !validModes[value] {
			return fmt.Errorf("%w: %s (valid: closed, passthrough)", ErrInvalidMode, value)
		}
	}

	// Validate duration syntax if setting defaults.timeout
	if key == "defaults.timeout" && value != "" {
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("invalid timeout: %w", err)
		}
	}

	l.v.Set(key, value)
	return l.v.WriteConfig()
}

// createDefault writes the default configuration file using Viper.
func (l *Loader) createDefault() error {
	dir := filepath.Dir(l.path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	return l.v.SafeWriteConfigAs(l.path)
}

// expandPath replaces ~ with the home directory.
func (l *Loader) expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(l.homeDir, path[2:])
	}
	if path == "~" {
		return l.homeDir
	}
	return path
}

// ValidateKey checks if a key is a valid configuration key.
func ValidateKey(key string) error {
	if key == "" {
		return fmt.Errorf("%w: empty key", ErrInvalidKey)
	}

	if validKeys[key] {
		return nil
	}

	return fmt.Errorf("%w: %s", ErrInvalidKey, key)
}

// buildValidKeys builds the set of valid keys from Config struct using reflection.
func buildValidKeys() map[string]bool {
	keys := make(map[string]bool)
	addKeysFromType(reflect.TypeOf(Config{}), "", keys)
	return keys
}

// addKeysFromType recursively adds keys from a struct type.
func addKeysFromType(t reflect.Type, prefix string, keys map[string]bool) {
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag := field.Tag.Get("mapstructure")
		if tag == "" {
			continue
		}

		key := tag
		if prefix != "" {
			key = prefix + "." + tag
		}
		keys[key] = true

		// Recurse into nested structs (but not maps)
		if field.Type.Kind() == reflect.Struct {
			addKeysFromType(field.Type, key, keys)
		}
	}
}
