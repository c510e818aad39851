package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Loader provides configuration loading capabilities.
type Loader interface {
	// Load loads configuration from file and environment variables.
	// Priority: defaults → config file → environment variables
	// (env wins).
	Load() (*Config, error)
}

type loader struct {
	rootDir string
}

// NewLoader creates a configuration loader for the given root directory.
func NewLoader(rootDir string) Loader {
	return &loader{rootDir: rootDir}
}

// Load loads configuration with the following priority (highest to
// lowest):
// 1. Environment variables (FACTORYLENS_*)
// 2. Config file (.factorylens/config.yml or .factorylens/config.yaml)
// 3. Default values
func (l *loader) Load() (*Config, error) {
	v := viper.New()

	configDir := filepath.Join(l.rootDir, ".factorylens")
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configDir)

	v.SetEnvPrefix("FACTORYLENS")
	v.AutomaticEnv()
	// Replace . with _ in env var names (e.g. FACTORYLENS_CACHE_TTL_SECONDS).
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.BindEnv("cache.ttl_seconds")
	v.BindEnv("indexing.batch_size")
	v.BindEnv("debug")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// Config file not found is acceptable; defaults + env apply.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.Normalize()

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// setDefaults configures viper with default values.
func setDefaults(v *viper.Viper) {
	defaults := Default()

	v.SetDefault("paths.patterns", defaults.Paths.Patterns)
	v.SetDefault("paths.priority", defaults.Paths.Priority)
	v.SetDefault("paths.ignore", defaults.Paths.Ignore)

	v.SetDefault("cache.ttl_seconds", defaults.Cache.TTLSeconds)
	v.SetDefault("indexing.batch_size", defaults.Indexing.BatchSize)
	v.SetDefault("resolver.call_identifiers", defaults.Resolver.CallIdentifiers)
	v.SetDefault("debug", defaults.Debug)
}

// LoadConfig is a convenience function that creates a loader for the
// current working directory and loads config.
func LoadConfig() (*Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}
	return NewLoader(wd).Load()
}

// LoadConfigFromDir loads configuration from a specific directory.
func LoadConfigFromDir(rootDir string) (*Config, error) {
	return NewLoader(rootDir).Load()
}
