package checkpoint

import (
	"fmt"
	"strings"
)

// DefaultPrefix is the storage prefix checkpoint records are written under.
const DefaultPrefix = "checkpoints"

// Config holds checkpoint store configuration.
type Config struct {
	// Prefix is prepended to every record path.
	Prefix string `yaml:"prefix" mapstructure:"prefix" json:"prefix"`
}

// ApplyDefaults fills in zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.Prefix == "" {
		c.Prefix = DefaultPrefix
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if strings.Contains(c.Prefix, "..") {
		return fmt.Errorf("checkpoint: prefix must not contain %q (got %q)", "..", c.Prefix)
	}
	return nil
}
