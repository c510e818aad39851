// Package config defines factorylens configuration and its loader.
package config

import (
	"fmt"
	"strings"

	"github.com/factorylens/factorylens/internal/pattern"
)

const (
	// MinTTLSeconds is the floor applied to the cache TTL at the
	// configuration layer. The store enforces its own 1s floor again.
	MinTTLSeconds = 10
	// MinBatchSize and MaxBatchSize bound the batch parsing group size.
	MinBatchSize = 1
	MaxBatchSize = 50
)

// Config represents the complete factorylens configuration.
// It can be loaded from .factorylens/config.yml with environment
// variable overrides.
type Config struct {
	Paths    PathsConfig    `yaml:"paths" mapstructure:"paths"`
	Cache    CacheConfig    `yaml:"cache" mapstructure:"cache"`
	Indexing IndexingConfig `yaml:"indexing" mapstructure:"indexing"`
	Resolver ResolverConfig `yaml:"resolver" mapstructure:"resolver"`
	Debug    bool           `yaml:"debug" mapstructure:"debug"`
}

// PathsConfig defines where factory definitions live.
type PathsConfig struct {
	// Patterns are ordered glob patterns for definition files. The
	// order doubles as the priority order for first-wins resolution
	// when Priority is empty.
	Patterns []string `yaml:"patterns" mapstructure:"patterns"`
	// Priority, when set, overrides the pattern order for first-wins
	// name collisions during the initial bulk load.
	Priority []string `yaml:"priority" mapstructure:"priority"`
	// Ignore holds glob patterns excluded from enumeration.
	Ignore []string `yaml:"ignore" mapstructure:"ignore"`
}

// CacheConfig defines index expiry behavior.
type CacheConfig struct {
	TTLSeconds int `yaml:"ttl_seconds" mapstructure:"ttl_seconds"`
}

// IndexingConfig defines batch parsing behavior.
type IndexingConfig struct {
	BatchSize int `yaml:"batch_size" mapstructure:"batch_size"`
}

// ResolverConfig defines which call identifiers introduce a factory
// reference.
type ResolverConfig struct {
	CallIdentifiers []string `yaml:"call_identifiers" mapstructure:"call_identifiers"`
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Paths: PathsConfig{
			Patterns: []string{
				"spec/factories/**/*.rb",
				"spec/factories.rb",
				"test/factories/**/*.rb",
				"test/factories.rb",
			},
			Priority: []string{},
			Ignore: []string{
				"vendor/**",
				"node_modules/**",
				".git/**",
				"tmp/**",
			},
		},
		Cache: CacheConfig{
			TTLSeconds: 600,
		},
		Indexing: IndexingConfig{
			BatchSize: 10,
		},
		Resolver: ResolverConfig{
			CallIdentifiers: []string{
				"create",
				"create_list",
				"create_pair",
				"build",
				"build_list",
				"build_pair",
				"build_stubbed",
				"build_stubbed_list",
				"attributes_for",
				"attributes_for_list",
			},
		},
		Debug: false,
	}
}

// PriorityPatterns returns the effective priority order: Priority when
// set, else Patterns order.
func (c *Config) PriorityPatterns() []string {
	if len(c.Paths.Priority) > 0 {
		return c.Paths.Priority
	}
	return c.Paths.Patterns
}

// Normalize clamps out-of-range values instead of rejecting them:
// TTL is floored to MinTTLSeconds, batch size is clamped to
// [MinBatchSize, MaxBatchSize].
func (c *Config) Normalize() {
	if c.Cache.TTLSeconds < MinTTLSeconds {
		c.Cache.TTLSeconds = MinTTLSeconds
	}
	if c.Indexing.BatchSize < MinBatchSize {
		c.Indexing.BatchSize = MinBatchSize
	}
	if c.Indexing.BatchSize > MaxBatchSize {
		c.Indexing.BatchSize = MaxBatchSize
	}
}

// Validate checks the configuration for errors that cannot be fixed by
// clamping. Returns all problems found, joined.
func Validate(c *Config) error {
	var problems []string

	if len(c.Paths.Patterns) == 0 {
		problems = append(problems, "paths.patterns must not be empty")
	}
	if len(c.Resolver.CallIdentifiers) == 0 {
		problems = append(problems, "resolver.call_identifiers must not be empty")
	}
	for _, id := range c.Resolver.CallIdentifiers {
		if !pattern.ValidName(id) {
			problems = append(problems, fmt.Sprintf("resolver.call_identifiers: invalid identifier %q", id))
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}
