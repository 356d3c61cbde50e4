package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyPlatformDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://platform/db")
	t.Setenv("REDIS_URL", "redis://platform:6379/1")
	t.Setenv("PORT", "9090")

	cfg := Config{Addr: "0.0.0.0:8080", RedisURL: "redis://localhost:6379/0"}
	cfg.applyPlatformDefaults()

	assert.Equal(t, "postgres://platform/db", cfg.DatabaseURL)
	assert.Equal(t, "redis://platform:6379/1", cfg.RedisURL)
	assert.Equal(t, "0.0.0.0:9090", cfg.Addr)
}

func TestApplyPlatformDefaults_ExplicitValuesWin(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://platform/db")
	t.Setenv("REDIS_URL", "redis://platform:6379/1")
	t.Setenv("PORT", "9090")

	cfg := Config{
		Addr:        "127.0.0.1:7000",
		DatabaseURL: "postgres://explicit/db",
		RedisURL:    "redis://explicit:6379/0",
	}
	cfg.applyPlatformDefaults()

	assert.Equal(t, "postgres://explicit/db", cfg.DatabaseURL)
	assert.Equal(t, "redis://explicit:6379/0", cfg.RedisURL)
	assert.Equal(t, "127.0.0.1:7000", cfg.Addr)
}

func TestConfigValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			DatabaseURL: "postgres://localhost/bakery",
			Timezone:    "UTC",
			Auth:        AuthConfig{Pepper: "pepper"},
			Storage:     StorageConfig{Driver: "dir"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "uploads disabled", mutate: func(c *Config) { c.Storage.Driver = "none" }},
		{name: "missing database", mutate: func(c *Config) { c.DatabaseURL = "" }, wantErr: "database URL is required"},
		{name: "missing pepper", mutate: func(c *Config) { c.Auth.Pepper = "" }, wantErr: "pepper is required"},
		{name: "s3 without bucket", mutate: func(c *Config) { c.Storage.Driver = "s3" }, wantErr: "bucket"},
		{name: "s3 with bucket", mutate: func(c *Config) {
			c.Storage.Driver = "s3"
			c.Storage.S3.Bucket = "images"
		}},
		{name: "unknown driver", mutate: func(c *Config) { c.Storage.Driver = "ftp" }, wantErr: "unknown storage driver"},
		{name: "bad timezone", mutate: func(c *Config) { c.Timezone = "Mars/Olympus" }, wantErr: "timezone"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
