package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kbukum/dataflow/errors"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestConfigApplyDefaults(t *testing.T) {
	cfg := Config{Name: "orders"}
	cfg.ApplyDefaults()

	assert.Equal(t, EnvDevelopment, cfg.Environment)
	assert.True(t, cfg.Debug)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "local", cfg.Storage.Provider)
	assert.Equal(t, "orders", cfg.Observability.ServiceName)
	assert.Equal(t, 100, cfg.Cast.InferSampleSize)
	assert.NotEmpty(t, cfg.Checkpoint.Prefix)
	assert.Equal(t, 3, cfg.Retry.MaxAttempts)
	assert.Equal(t, 500*time.Millisecond, cfg.Trigger.Debounce)
}

func TestConfigProductionKeepsInfoLevel(t *testing.T) {
	cfg := Config{Name: "orders", Environment: EnvProduction}
	cfg.ApplyDefaults()
	assert.False(t, cfg.Debug)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(*Config) {}, false},
		{"missing name", func(c *Config) { c.Name = "" }, true},
		{"bad environment", func(c *Config) { c.Environment = "qa" }, true},
		{"bad storage provider", func(c *Config) { c.Storage.Provider = "ftp" }, true},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }, true},
		{"bad retry factor", func(c *Config) { c.Retry.BackoffFactor = 0.5 }, true},
		{"negative debounce", func(c *Config) { c.Trigger.Debounce = -time.Second }, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Config{Name: "orders"}
			cfg.ApplyDefaults()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfigValidateReportsInvalidInput(t *testing.T) {
	cfg := Config{Environment: EnvStaging}
	cfg.ApplyDefaults()
	err := cfg.Validate()
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidInput))
	assert.Contains(t, err.Error(), "name: is required")
}

func TestLoadWithYAML(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yml", `
name: nightly
environment: staging
logging:
  level: warn
  format: json
storage:
  provider: local
  base_path: `+dir+`
cast:
  group_char: ","
checkpoint:
  prefix: ckpt
trigger:
  debounce: 2s
`)

	cfg, err := Load("nightly", WithConfigFile(path), WithEnvPrefix("DATAFLOW_TEST_UNUSED"))
	require.NoError(t, err)
	assert.Equal(t, "nightly", cfg.Name)
	assert.Equal(t, EnvStaging, cfg.Environment)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, dir, cfg.Storage.BasePath)
	assert.Equal(t, ",", cfg.Cast.GroupChar)
	assert.Equal(t, "ckpt", cfg.Checkpoint.Prefix)
	assert.Equal(t, 2*time.Second, cfg.Trigger.Debounce)
}

func TestLoadEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yml", "name: nightly\nstorage:\n  provider: local\n")
	t.Setenv("DFTEST_STORAGE_BASE_PATH", dir)
	t.Setenv("DFTEST_ENVIRONMENT", "production")

	cfg, err := Load("nightly", WithConfigFile(path), WithEnvPrefix("DFTEST"))
	require.NoError(t, err)
	assert.Equal(t, dir, cfg.Storage.BasePath)
	assert.Equal(t, EnvProduction, cfg.Environment)
}

func TestLoadConfigMissingFile(t *testing.T) {
	var cfg Config
	err := LoadConfig("nonexistent", &cfg, WithConfigFile("/nonexistent/path.yml"))
	require.NoError(t, err)
}

func TestLoadConfigUnreadableFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yml", "name: [unclosed\n")
	var cfg Config
	err := LoadConfig("broken", &cfg, WithConfigFile(path))
	assert.Error(t, err)
}

type mockFS struct {
	files  map[string]bool
	loaded []string
}

func (m *mockFS) Exists(path string) bool { return m.files[path] }
func (m *mockFS) LoadEnv(path string) error {
	m.loaded = append(m.loaded, path)
	return nil
}

func TestResolverWithMockFS(t *testing.T) {
	fs := &mockFS{files: map[string]bool{
		"./flows/orders/config.yml": true,
		"./config/config.yml":       true,
		"./.env":                    true,
	}}
	resolver := &Resolver{FileSystem: fs}
	files := resolver.ResolveFiles("orders", LoaderConfig{})
	assert.Equal(t, "./flows/orders/config.yml", files.ConfigFile)
	assert.Equal(t, "./.env", files.EnvFile)

	files = resolver.ResolveFiles("other", LoaderConfig{EnvFile: "/explicit/.env"})
	assert.Equal(t, "./config/config.yml", files.ConfigFile)
	assert.Equal(t, "/explicit/.env", files.EnvFile)
}

func TestLoadConfigLoadsEnvFile(t *testing.T) {
	fs := &mockFS{files: map[string]bool{"./.env": true}}
	var cfg Config
	require.NoError(t, LoadConfig("orders", &cfg, WithFileSystem(fs)))
	assert.Equal(t, []string{"./.env"}, fs.loaded)
}

func TestGenerateEnvKeyVariants(t *testing.T) {
	got := generateEnvKeyVariants("STORAGE_BASE_PATH")
	assert.Contains(t, got, "storage_base_path")
	assert.Contains(t, got, "storage.base.path")
	assert.Contains(t, got, "storage.base_path")
	assert.Equal(t, []string{"name"}, generateEnvKeyVariants("NAME"))
}

func TestLoaderOptions(t *testing.T) {
	var lc LoaderConfig
	WithFileSystem(&mockFS{})(&lc)
	WithConfigFile("/c.yml")(&lc)
	WithEnvFile("/.env")(&lc)
	WithEnvPrefix("X")(&lc)
	assert.NotNil(t, lc.FileSystem)
	assert.Equal(t, "/c.yml", lc.ConfigFile)
	assert.Equal(t, "/.env", lc.EnvFile)
	assert.Equal(t, "X", lc.EnvPrefix)
}
