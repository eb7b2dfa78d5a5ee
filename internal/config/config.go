// Package config loads and validates the build configuration.
package config

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/colldocs/internal/errors"
)

// Config represents the application configuration.
type Config struct {
	// CollectionPath is the collection root: a directory, or a
	// "git+<url>[#branch]" source cloned before extraction.
	CollectionPath string `yaml:"collection_path"`
	// OutputPath is the destination directory for generated page sources.
	OutputPath string `yaml:"output_path"`

	// IncludeTypes/ExcludeTypes restrict which plugin kinds are documented.
	// Empty IncludeTypes means all.
	IncludeTypes []string `yaml:"include_types,omitempty"`
	ExcludeTypes []string `yaml:"exclude_types,omitempty"`

	// IncludePrivate documents plugins/options marked private.
	IncludePrivate bool `yaml:"include_private"`

	// Strict aborts the whole build on the first validation error instead
	// of accumulating and reporting.
	Strict bool `yaml:"strict"`

	// MaxDepth bounds option/return nesting; 0 selects the default.
	MaxDepth int `yaml:"max_depth,omitempty"`

	// Workers bounds per-plugin build parallelism; 0 selects an automatic
	// value.
	Workers int `yaml:"workers,omitempty"`

	Watch   WatchConfig   `yaml:"watch,omitempty"`
	Logging LoggingConfig `yaml:"logging,omitempty"`
}

// WatchConfig configures watch mode.
type WatchConfig struct {
	// Debounce collapses change bursts before triggering a rebuild.
	Debounce time.Duration `yaml:"debounce,omitempty"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	Level string `yaml:"level,omitempty"` // debug|info|warn|error
}

// Load loads configuration from the specified file.
func Load(configPath string) (*Config, error) {
	// Load .env file if present; missing is fine.
	_ = godotenv.Load()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, errors.New(errors.CategoryConfig, errors.SeverityFatal,
			fmt.Sprintf("configuration file not found: %s", configPath))
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryConfig, errors.SeverityFatal, "failed to read config file")
	}

	// Expand environment variables in the YAML content.
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, errors.Wrap(err, errors.CategoryConfig, errors.SeverityFatal, "failed to unmarshal config")
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ApplyDefaults fills zero values with sensible defaults.
func (c *Config) ApplyDefaults() {
	if c.OutputPath == "" {
		c.OutputPath = "./docs"
	}
	if c.MaxDepth == 0 {
		c.MaxDepth = 20
	}
	if c.Workers == 0 {
		c.Workers = runtime.NumCPU()
		if c.Workers > 4 {
			c.Workers = 4
		}
	}
	if c.Watch.Debounce == 0 {
		c.Watch.Debounce = 2 * time.Second
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

// Validate checks the configuration for fatal problems.
func (c *Config) Validate() error {
	if c.CollectionPath == "" {
		return errors.New(errors.CategoryConfig, errors.SeverityFatal, "collection_path is required")
	}
	if c.OutputPath == "" {
		return errors.New(errors.CategoryConfig, errors.SeverityFatal, "output_path is required")
	}
	if c.MaxDepth < 0 {
		return errors.New(errors.CategoryConfig, errors.SeverityFatal, "max_depth must not be negative")
	}
	if c.Workers < 0 {
		return errors.New(errors.CategoryConfig, errors.SeverityFatal, "workers must not be negative")
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return errors.New(errors.CategoryConfig, errors.SeverityFatal,
			fmt.Sprintf("invalid logging level %q", c.Logging.Level))
	}
	if len(c.IncludeTypes) > 0 && len(c.ExcludeTypes) > 0 {
		return errors.New(errors.CategoryConfig, errors.SeverityFatal,
			"include_types and exclude_types are mutually exclusive")
	}
	return nil
}

// TypeIncluded reports whether a plugin kind should be documented.
func (c *Config) TypeIncluded(kind string) bool {
	if len(c.IncludeTypes) > 0 {
		for _, t := range c.IncludeTypes {
			if t == kind {
				return true
			}
		}
		return false
	}
	for _, t := range c.ExcludeTypes {
		if t == kind {
			return false
		}
	}
	return true
}

const exampleConfig = `# colldocs configuration
collection_path: ./my_collection
output_path: ./docs

# Restrict documented plugin kinds (empty means all):
# include_types: [module, role]
# exclude_types: [callback]

include_private: false
strict: false

logging:
  level: info
`

// Init creates a new configuration file with example content.
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return errors.New(errors.CategoryConfig, errors.SeverityFatal,
			fmt.Sprintf("configuration file already exists: %s (use --force to overwrite)", configPath))
	}
	return os.WriteFile(configPath, []byte(exampleConfig), 0o644)
}
