package config

import (
	"fmt"

	"github.com/kbukum/dataflow/cast"
	"github.com/kbukum/dataflow/checkpoint"
	"github.com/kbukum/dataflow/database"
	"github.com/kbukum/dataflow/logger"
	"github.com/kbukum/dataflow/observability"
	"github.com/kbukum/dataflow/resilience"
	"github.com/kbukum/dataflow/storage"
	"github.com/kbukum/dataflow/trigger"
	"github.com/kbukum/dataflow/validation"
)

// Environment names accepted by Config.Environment.
const (
	EnvDevelopment = "development"
	EnvStaging     = "staging"
	EnvProduction  = "production"
)

// Config is the root configuration of a dataflow deployment. Sections map
// one-to-one onto the packages that consume them.
type Config struct {
	Name        string `yaml:"name" mapstructure:"name" validate:"required"`
	Environment string `yaml:"environment" mapstructure:"environment" validate:"oneof=development staging production"`
	Debug       bool   `yaml:"debug" mapstructure:"debug"`

	Logging       logger.Config          `yaml:"logging" mapstructure:"logging"`
	Cast          cast.Options           `yaml:"cast" mapstructure:"cast"`
	Storage       storage.Config         `yaml:"storage" mapstructure:"storage"`
	Checkpoint    checkpoint.Config      `yaml:"checkpoint" mapstructure:"checkpoint"`
	Database      database.Config        `yaml:"database" mapstructure:"database"`
	Observability observability.Config   `yaml:"observability" mapstructure:"observability"`
	Retry         resilience.RetryConfig `yaml:"retry" mapstructure:"retry"`
	Trigger       trigger.Config         `yaml:"trigger" mapstructure:"trigger"`
}

// ApplyDefaults fills zero values in every section.
func (c *Config) ApplyDefaults() {
	if c.Environment == "" {
		c.Environment = EnvDevelopment
	}
	if c.Environment == EnvDevelopment {
		c.Debug = true
	}
	if c.Debug && c.Logging.Level == "" {
		c.Logging.Level = "debug"
	}
	c.Logging.ApplyDefaults()
	c.Cast.ApplyDefaults()
	c.Storage.ApplyDefaults()
	c.Checkpoint.ApplyDefaults()
	c.Database.ApplyDefaults()
	if c.Observability.ServiceName == "" {
		c.Observability.ServiceName = c.Name
	}
	c.Observability.ApplyDefaults()
	c.Retry.ApplyDefaults()
	c.Trigger.ApplyDefaults()
}

// Validate runs the struct-tag checks and then each section's own rules.
func (c *Config) Validate() error {
	if err := validation.Validate(c); err != nil {
		return err
	}
	sections := []struct {
		name string
		fn   func() error
	}{
		{"logging", c.Logging.Validate},
		{"cast", c.Cast.Validate},
		{"storage", c.Storage.Validate},
		{"checkpoint", c.Checkpoint.Validate},
		{"database", c.Database.Validate},
		{"observability", c.Observability.Validate},
		{"retry", c.Retry.Validate},
		{"trigger", c.Trigger.Validate},
	}
	for _, s := range sections {
		if err := s.fn(); err != nil {
			return fmt.Errorf("config.%s: %w", s.name, err)
		}
	}
	return nil
}

// Load reads the configuration for the named flow, applies defaults and
// validates the result. The name doubles as the default Config.Name.
func Load(name string, opts ...LoaderOption) (*Config, error) {
	cfg := &Config{Name: name}
	if err := LoadConfig(name, cfg, opts...); err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
