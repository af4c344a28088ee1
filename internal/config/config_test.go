package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestDefaultsAreValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 5*time.Minute, cfg.Cache.StaleTime)
	assert.Equal(t, 5*time.Minute, cfg.Cache.Retention)
	assert.Equal(t, "zap", cfg.Log.Backend)
	assert.Equal(t, 10, cfg.PageSize)
}

func TestLoadMissingDefaultFileUsesDefaults(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("HOME", t.TempDir())

	cfg, err := LoadWithEnv("", nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadExplicitMissingFileFails(t *testing.T) {
	_, err := LoadWithEnv(filepath.Join(t.TempDir(), "nope.yaml"), nil)
	assert.Error(t, err)
}

func TestLoadYAML(t *testing.T) {
	path := writeConfig(t, `
api:
  url: https://tasks.example.com/api
  token: abc
  timeout: 5s
  max_retries: 2
cache:
  provider: Ristretto
  codec: msgpack
  stale_time: 1m
  retention: 10m
  max_cost: 1000
log:
  backend: zerolog
  level: debug
page_size: 25
prefetch_next: true
`)
	cfg, err := LoadWithEnv(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "https://tasks.example.com/api", cfg.API.URL)
	assert.Equal(t, "abc", cfg.API.Token)
	assert.Equal(t, 5*time.Second, cfg.API.Timeout)
	assert.Equal(t, 2, cfg.API.MaxRetries)
	assert.Equal(t, "ristretto", cfg.Cache.Provider)
	assert.Equal(t, "msgpack", cfg.Cache.Codec)
	assert.Equal(t, time.Minute, cfg.Cache.StaleTime)
	assert.Equal(t, 10*time.Minute, cfg.Cache.Retention)
	assert.Equal(t, int64(1000), cfg.Cache.MaxCost)
	assert.Equal(t, "zerolog", cfg.Log.Backend)
	assert.Equal(t, 25, cfg.PageSize)
	assert.True(t, cfg.PrefetchNext)
	// untouched keys keep their defaults
	assert.Equal(t, "tasks", cfg.Cache.Namespace)
	assert.Equal(t, time.Minute, cfg.Cache.SweepInterval)
}

func TestEnvOverridesYAML(t *testing.T) {
	path := writeConfig(t, "api:\n  url: http://file\ncache:\n  codec: cbor\n")
	cfg, err := LoadWithEnv(path, map[string]string{
		"TASKS_API_URL":        "http://env",
		"TASKS_CACHE_PROVIDER": "redis",
		"TASKS_REDIS_ADDR":     "cache:6379",
		"TASKS_REDIS_DB":       "3",
		"TASKS_STALE_TIME":     "30s",
		"TASKS_LOG_BACKEND":    "logrus",
		"TASKS_PREFETCH_NEXT":  "true",
	})
	require.NoError(t, err)
	assert.Equal(t, "http://env", cfg.API.URL)
	assert.Equal(t, "cbor", cfg.Cache.Codec)
	assert.Equal(t, "redis", cfg.Cache.Provider)
	assert.Equal(t, "cache:6379", cfg.Redis.Addr)
	assert.Equal(t, 3, cfg.Redis.DB)
	assert.Equal(t, 30*time.Second, cfg.Cache.StaleTime)
	assert.Equal(t, "logrus", cfg.Log.Backend)
	assert.True(t, cfg.PrefetchNext)
}

func TestInvalidYAML(t *testing.T) {
	path := writeConfig(t, "api: [unclosed")
	_, err := LoadWithEnv(path, nil)
	assert.ErrorContains(t, err, "invalid YAML")
}

func TestInvalidEnv(t *testing.T) {
	path := writeConfig(t, "")
	_, err := LoadWithEnv(path, map[string]string{"TASKS_STALE_TIME": "soon"})
	assert.ErrorContains(t, err, "invalid environment")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"no url", func(c *Config) { c.API.URL = "" }, "api.url"},
		{"provider", func(c *Config) { c.Cache.Provider = "memcached" }, "cache.provider"},
		{"codec", func(c *Config) { c.Cache.Codec = "xml" }, "cache.codec"},
		{"redis addr", func(c *Config) { c.Cache.Provider = "redis"; c.Redis.Addr = "" }, "redis.addr"},
		{"ristretto cost", func(c *Config) { c.Cache.Provider = "ristretto"; c.Cache.MaxCost = 0 }, "max_cost"},
		{"log backend", func(c *Config) { c.Log.Backend = "glog" }, "log.backend"},
		{"log level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
		{"page size", func(c *Config) { c.PageSize = 1000 }, "page_size"},
		{"negative stale", func(c *Config) { c.Cache.StaleTime = -time.Second }, "stale_time"},
		{"negative retries", func(c *Config) { c.API.MaxRetries = -1 }, "must not be negative"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.want)
		})
	}
}
