package config

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "memory", cfg.DatabaseType)
	assert.Equal(t, "memory", cfg.StorageType)
	assert.Equal(t, time.Hour, cfg.SweepInterval)
	assert.Equal(t, 24*time.Hour, cfg.SweepThreshold)
	assert.False(t, cfg.IsProduction())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*ServerConfig)
		wantErr bool
	}{
		{"defaults are valid", func(c *ServerConfig) {}, false},
		{"empty port", func(c *ServerConfig) { c.Port = "" }, true},
		{"postgres without url", func(c *ServerConfig) { c.DatabaseType = "postgres" }, true},
		{"postgres with url", func(c *ServerConfig) {
			c.DatabaseType = "postgres"
			c.DatabaseURL = "postgres://localhost/dreams"
		}, false},
		{"unknown database", func(c *ServerConfig) { c.DatabaseType = "oracle" }, true},
		{"fs without base dir", func(c *ServerConfig) { c.StorageType = "fs" }, true},
		{"s3 without bucket", func(c *ServerConfig) { c.StorageType = "s3" }, true},
		{"zero sweep interval", func(c *ServerConfig) { c.SweepInterval = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaults()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestWithEnv(t *testing.T) {
	t.Setenv("DL_PORT", "9090")
	t.Setenv("DL_ENVIRONMENT", "production")
	t.Setenv("DL_DATABASE_URL", "postgres://localhost/dreams")
	t.Setenv("DL_STORAGE_TYPE", "fs")
	t.Setenv("DL_FS_BASE_DIR", t.TempDir())
	t.Setenv("DL_REDIS_ADDR", "localhost:6379")
	t.Setenv("DL_IMAGE_DOMAINS", "img.example.com, cdn.example.com")
	t.Setenv("DL_JWT_SECRET", "prod-secret")
	t.Setenv("DL_SWEEP_INTERVAL", "30m")
	t.Setenv("DL_SWEEP_THRESHOLD", "48h")
	t.Setenv("DL_TASK_WORKERS", "8")

	cfg, err := Load(WithEnv("DL_"))
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "postgres", cfg.DatabaseType)
	assert.Equal(t, "fs", cfg.StorageType)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.Equal(t, []string{"img.example.com", "cdn.example.com"}, cfg.ImageDomains)
	assert.Equal(t, "prod-secret", cfg.JWTSecret)
	assert.Equal(t, 30*time.Minute, cfg.SweepInterval)
	assert.Equal(t, 48*time.Hour, cfg.SweepThreshold)
	assert.Equal(t, 8, cfg.TaskWorkers)
}

func TestWithEnvRejectsBadValues(t *testing.T) {
	t.Setenv("DL_DATABASE_URL", "mysql://localhost/dreams")
	_, err := Load(WithEnv("DL_"))
	assert.Error(t, err)
}

func TestBuildServiceInMemory(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	store, err := cfg.BuildBlobStore()
	require.NoError(t, err)

	svc, err := cfg.BuildService(context.Background(), store, nil)
	require.NoError(t, err)
	assert.NotNil(t, svc)
}

func TestBuildNotifierWithoutRedis(t *testing.T) {
	cfg := defaults()
	pub, sub := cfg.BuildNotifier(nil, nil)
	assert.NotNil(t, pub)
	assert.NotNil(t, sub)
}
