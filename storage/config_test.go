package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfigDefaults(t *testing.T) {
	var c Config
	c.ApplyDefaults()
	assert.Equal(t, ProviderLocal, c.Provider)
	assert.Equal(t, DefaultBasePath, c.BasePath)
	assert.NoError(t, c.Validate())
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"local", Config{Provider: ProviderLocal, BasePath: "/tmp/x"}, false},
		{"local without path", Config{Provider: ProviderLocal}, true},
		{"s3", Config{Provider: ProviderS3, Bucket: "b", Region: "eu-west-1"}, false},
		{"s3 without bucket", Config{Provider: ProviderS3, Region: "eu-west-1"}, true},
		{"unknown", Config{Provider: "ftp", BasePath: "/tmp"}, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
