package trigger

import (
	"time"

	"github.com/kbukum/dataflow/validation"
)

// Config configures a Runner.
type Config struct {
	// Debounce delays a watch run until files have been quiet this long.
	Debounce time.Duration `yaml:"debounce" mapstructure:"debounce" validate:"gte=0"`
	// StopTimeout bounds how long Stop waits for running flows.
	StopTimeout time.Duration `yaml:"stop_timeout" mapstructure:"stop_timeout" validate:"gte=0"`
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	if c.Debounce <= 0 {
		c.Debounce = 500 * time.Millisecond
	}
	if c.StopTimeout <= 0 {
		c.StopTimeout = 30 * time.Second
	}
}

// Validate checks the settings.
func (c *Config) Validate() error {
	return validation.Validate(c)
}
