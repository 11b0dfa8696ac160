package config

import (
	"fmt"
	"os"

	"series-canon/src/helpers"
	"series-canon/src/models"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

var validate = validator.New()

// -----------------------------------------------------------------------------

// Config wraps models.MConfig and provides business logic methods
type Config struct {
	*models.MConfig
}

// -----------------------------------------------------------------------------

// NewConfig creates a new Config instance from YAML file
func NewConfig(configPath string) (*Config, error) {
	// 1. Read the YAML file content
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", configPath, err)
	}

	return Parse(data)
}

// -----------------------------------------------------------------------------

// Parse builds a Config from YAML bytes, applies defaults and validates it.
func Parse(data []byte) (*Config, error) {
	var modelConfig models.MConfig
	if err := yaml.Unmarshal(data, &modelConfig); err != nil {
		return nil, fmt.Errorf("failed to parse config from YAML: %w", err)
	}

	config := &Config{MConfig: &modelConfig}
	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// -----------------------------------------------------------------------------

func (c *Config) applyDefaults() {
	if c.Host == "" {
		c.Host = "127.0.0.1"
	}
	if c.Port == 0 {
		c.Port = 8088
	}
	if c.LogLevel == "" {
		c.LogLevel = "INFO"
	}
	if c.Storage.DBType == "" {
		c.Storage.DBType = "memory"
	}
	if c.Engine.Workers == 0 {
		c.Engine.Workers = helpers.RecommendedWorkers()
	}
	if c.Engine.ExtractDir == "" {
		c.Engine.ExtractDir = "extracts"
	}
	if c.Engine.PollSeconds == 0 {
		c.Engine.PollSeconds = 60
	}
}

// -----------------------------------------------------------------------------

// Validate performs struct-tag validation followed by cross-field checks.
func (c *Config) Validate() error {
	if err := validate.Struct(c.MConfig); err != nil {
		return err
	}

	if c.Port <= 1024 || c.Port > 65535 {
		return fmt.Errorf("invalid server port number: %d (must be between 1025 and 65535)", c.Port)
	}

	// Validate Storage configuration
	if c.Storage.DBType == "sqlite" && c.Storage.DBPath == "" {
		return fmt.Errorf("database path cannot be empty for sqlite")
	}
	if c.Storage.DBType == "postgres" && c.Storage.DBConnectionString == "" {
		return fmt.Errorf("database connection string cannot be empty for postgres")
	}

	if len(c.Sources) == 0 {
		return fmt.Errorf("at least one source must be configured")
	}
	seen := make(map[string]bool, len(c.Sources))
	for _, src := range c.Sources {
		if seen[src.SourceID] {
			return fmt.Errorf("source '%s' is configured twice", src.SourceID)
		}
		seen[src.SourceID] = true

		if err := ValidateDescriptor(src); err != nil {
			return err
		}
	}

	return nil
}

// -----------------------------------------------------------------------------

// ValidateDescriptor checks the source-wide settings every record of the
// source depends on. A failure is a ConfigurationError for the whole source.
func ValidateDescriptor(d models.MSourceDescriptor) error {
	if err := validate.Struct(d); err != nil {
		return helpers.NewConfigurationError("source '%s': %v", d.SourceID, err)
	}
	if models.SecondsPerDay%d.WindowDuration != 0 {
		return helpers.NewConfigurationError("source '%s': window_duration %ds does not evenly divide a day", d.SourceID, d.WindowDuration)
	}
	if d.FieldMapping.Metric == "" && d.Metric == "" {
		return helpers.NewConfigurationError("source '%s': needs either field_mapping.metric or metric", d.SourceID)
	}
	r := d.Rules
	if r.MinValue != nil && r.MaxValue != nil && *r.MinValue > *r.MaxValue {
		return helpers.NewConfigurationError("source '%s': min_value %v is above max_value %v", d.SourceID, *r.MinValue, *r.MaxValue)
	}
	if d.ActiveFrom != nil && d.ActiveUntil != nil && !d.ActiveFrom.Before(*d.ActiveUntil) {
		return helpers.NewConfigurationError("source '%s': active_from must be before active_until", d.SourceID)
	}
	return nil
}

// -----------------------------------------------------------------------------

// Save persists the current configuration to the specified YAML file path
func (c *Config) Save(configPath string) error {
	data, err := yaml.Marshal(c.MConfig)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config to file '%s': %w", configPath, err)
	}

	return nil
}
