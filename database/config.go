package database

import (
	"fmt"
	"net/url"
	"time"

	gomysql "github.com/go-sql-driver/mysql"

	"github.com/kbukum/dataflow/validation"
)

// Supported drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
)

// Config holds database connection configuration. A zero Config means no
// database is configured.
type Config struct {
	// Driver selects the SQL dialect: sqlite, postgres or mysql.
	Driver string `yaml:"driver" mapstructure:"driver" validate:"omitempty,oneof=sqlite postgres mysql"`

	// DSN is the driver-specific connection string: a file path or
	// "file::memory:" for sqlite, a URL or key=value string for postgres,
	// "user:pass@tcp(host:port)/db" for mysql.
	DSN string `yaml:"dsn" mapstructure:"dsn"`

	// MaxOpenConns sets the maximum number of open connections to the database.
	MaxOpenConns int `yaml:"max_open_conns" mapstructure:"max_open_conns"`

	// MaxIdleConns sets the maximum number of idle connections in the pool.
	MaxIdleConns int `yaml:"max_idle_conns" mapstructure:"max_idle_conns"`

	// ConnMaxLifetime is the maximum time a connection may be reused (e.g. "1h", "30m").
	ConnMaxLifetime string `yaml:"conn_max_lifetime" mapstructure:"conn_max_lifetime"`

	// ConnMaxIdleTime is the maximum time a connection may sit idle (e.g. "5m", "10m").
	ConnMaxIdleTime string `yaml:"conn_max_idle_time" mapstructure:"conn_max_idle_time"`

	// MaxRetries is the number of connection attempts before giving up.
	MaxRetries int `yaml:"max_retries" mapstructure:"max_retries"`

	// LogLevel is the GORM log level: silent, error, warn or info.
	LogLevel string `yaml:"log_level" mapstructure:"log_level" validate:"omitempty,oneof=silent error warn info"`

	// SlowQueryThreshold is the duration above which queries are logged as slow (e.g. "200ms").
	SlowQueryThreshold string `yaml:"slow_query_threshold" mapstructure:"slow_query_threshold"`
}

// Configured reports whether a database is set up.
func (c *Config) Configured() bool {
	return c.Driver != "" || c.DSN != ""
}

// ApplyDefaults sets sensible defaults for zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.MaxOpenConns <= 0 {
		c.MaxOpenConns = 25
	}
	if c.MaxIdleConns <= 0 {
		c.MaxIdleConns = 5
	}
	if c.ConnMaxLifetime == "" {
		c.ConnMaxLifetime = "1h"
	}
	if c.ConnMaxIdleTime == "" {
		c.ConnMaxIdleTime = "5m"
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.LogLevel == "" {
		c.LogLevel = "warn"
	}
	if c.SlowQueryThreshold == "" {
		c.SlowQueryThreshold = "200ms"
	}
}

// Validate checks that required fields are present and parseable.
func (c *Config) Validate() error {
	if !c.Configured() {
		return nil
	}
	if err := validation.Validate(c); err != nil {
		return err
	}
	if c.Driver == "" {
		return fmt.Errorf("database driver is required")
	}
	if c.DSN == "" {
		return fmt.Errorf("database DSN is required")
	}
	if err := checkDSN(c.Driver, c.DSN); err != nil {
		return err
	}
	if c.MaxOpenConns <= 0 {
		return fmt.Errorf("max_open_conns must be > 0")
	}
	if c.MaxIdleConns > c.MaxOpenConns {
		return fmt.Errorf("max_idle_conns (%d) must be <= max_open_conns (%d)", c.MaxIdleConns, c.MaxOpenConns)
	}
	for name, v := range map[string]string{
		"conn_max_lifetime":    c.ConnMaxLifetime,
		"conn_max_idle_time":   c.ConnMaxIdleTime,
		"slow_query_threshold": c.SlowQueryThreshold,
	} {
		if _, err := time.ParseDuration(v); err != nil {
			return fmt.Errorf("invalid %s %q: %w", name, v, err)
		}
	}
	if c.MaxRetries <= 0 {
		return fmt.Errorf("max_retries must be > 0")
	}
	return nil
}

func checkDSN(driver, dsn string) error {
	switch driver {
	case DriverMySQL:
		if _, err := gomysql.ParseDSN(dsn); err != nil {
			return fmt.Errorf("invalid mysql dsn: %w", err)
		}
	case DriverPostgres:
		if u, err := url.Parse(dsn); err == nil && u.Scheme != "" && u.Scheme != "postgres" && u.Scheme != "postgresql" {
			return fmt.Errorf("invalid postgres dsn scheme %q", u.Scheme)
		}
	}
	return nil
}
