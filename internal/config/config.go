// Package config provides configuration loading and validation for tinydbc.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/patarapolw/tinydb-constraint/internal/value"
)

// Config is the root configuration structure.
type Config struct {
	Database DatabaseConfig         `yaml:"database"`
	Engine   EngineConfig           `yaml:"engine"`
	Logging  LoggingConfig          `yaml:"logging"`
	Metrics  MetricsConfig          `yaml:"metrics"`
	Tables   map[string]TableConfig `yaml:"tables"`
}

// DatabaseConfig configures the SQLite document store.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// EngineConfig configures value coercion and the sanitize pipeline.
// Nil toggles default to enabled.
type EngineConfig struct {
	Coerce   *bool    `yaml:"coerce"`
	Sanitize *bool    `yaml:"sanitize"`
	DateMode string   `yaml:"date_mode"` // "strict" or "lenient"
	Elidable []string `yaml:"elidable"`  // Tokens meaning "field absent"
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // console or json
}

// MetricsConfig configures the Prometheus textfile written after each command.
type MetricsConfig struct {
	File string `yaml:"file"` // Empty disables the textfile
}

// TableConfig configures one table.
type TableConfig struct {
	// Schema is a schema configuration file applied when the table is opened,
	// on top of the schema stored in the database.
	Schema string `yaml:"schema"`
}

// CoerceEnabled reports whether string coercion is on.
func (e EngineConfig) CoerceEnabled() bool { return e.Coerce == nil || *e.Coerce }

// SanitizeEnabled reports whether the sanitize pipeline is on.
func (e EngineConfig) SanitizeEnabled() bool { return e.Sanitize == nil || *e.Sanitize }

// Normalizer builds the value normalizer described by the engine settings.
func (e EngineConfig) Normalizer() (*value.Normalizer, error) {
	dates, err := value.DateParserFor(e.DateMode)
	if err != nil {
		return nil, err
	}
	return value.NewNormalizer(
		value.WithCoercion(e.CoerceEnabled()),
		value.WithDateParser(dates),
		value.WithElidable(e.Elidable...),
	), nil
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Expand environment variables
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// Apply environment variable overrides
	applyEnvOverrides(&cfg)

	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// LoadFromEnv creates configuration entirely from environment variables.
//
// Environment variables:
//
//	TINYDBC_DB            - Database path (default: tinydbc.db)
//	TINYDBC_COERCE        - String coercion (default: true)
//	TINYDBC_SANITIZE      - Sanitize pipeline (default: true)
//	TINYDBC_DATE_MODE     - Date parsing: strict or lenient (default: lenient)
//	TINYDBC_ELIDE         - Comma-separated elidable tokens (default: "",-)
//	TINYDBC_LOG_LEVEL     - Log level: debug, info, warn, error (default: warn)
//	TINYDBC_LOG_FORMAT    - Log format: console or json (default: console)
//	TINYDBC_METRICS_FILE  - Prometheus textfile path (default: none)
func LoadFromEnv() (*Config, error) {
	var cfg Config

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// LoadWithFallback loads from path when it is set and exists, and from the
// environment otherwise.
func LoadWithFallback(path string) (*Config, error) {
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}
	return LoadFromEnv()
}

// applyEnvOverrides applies TINYDBC_* environment variables to the config.
// Environment variables always override file-based configuration.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("TINYDBC_DB"); v != "" {
		cfg.Database.Path = v
	}

	// Engine configuration
	if v := os.Getenv("TINYDBC_COERCE"); v != "" {
		b := parseBool(v)
		cfg.Engine.Coerce = &b
	}
	if v := os.Getenv("TINYDBC_SANITIZE"); v != "" {
		b := parseBool(v)
		cfg.Engine.Sanitize = &b
	}
	if v := os.Getenv("TINYDBC_DATE_MODE"); v != "" {
		cfg.Engine.DateMode = v
	}
	if v, ok := os.LookupEnv("TINYDBC_ELIDE"); ok {
		cfg.Engine.Elidable = strings.Split(v, ",")
	}

	// Logging configuration
	if v := os.Getenv("TINYDBC_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("TINYDBC_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}

	if v := os.Getenv("TINYDBC_METRICS_FILE"); v != "" {
		cfg.Metrics.File = v
	}
}

// parseBool parses a boolean from common string values.
func parseBool(v string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	return v == "true" || v == "1" || v == "yes" || v == "on"
}

func setDefaults(cfg *Config) {
	if cfg.Database.Path == "" {
		cfg.Database.Path = "tinydbc.db"
	}
	if cfg.Engine.DateMode == "" {
		cfg.Engine.DateMode = value.DateModeLenient
	}
	if cfg.Engine.Elidable == nil {
		cfg.Engine.Elidable = append([]string{}, value.DefaultElidable...)
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "warn"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "console"
	}
	if cfg.Tables == nil {
		cfg.Tables = make(map[string]TableConfig)
	}
}

func validate(cfg *Config) error {
	if _, err := value.DateParserFor(cfg.Engine.DateMode); err != nil {
		return fmt.Errorf("engine.date_mode: %w", err)
	}

	if _, err := zerolog.ParseLevel(cfg.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}

	validFormats := map[string]bool{"console": true, "json": true}
	if !validFormats[cfg.Logging.Format] {
		return fmt.Errorf("logging.format must be 'console' or 'json', got %q", cfg.Logging.Format)
	}

	for name, table := range cfg.Tables {
		if name == "" {
			return fmt.Errorf("tables: empty table name")
		}
		if table.Schema != "" {
			if _, err := os.Stat(table.Schema); err != nil {
				return fmt.Errorf("tables.%s.schema: %w", name, err)
			}
		}
	}

	return nil
}
