// Package config loads the tasks CLI configuration: defaults, then an
// optional YAML file, then TASKS_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/unkn0wn-root/querycache/pagination"
)

// Config is the full CLI configuration.
type Config struct {
	API          APIConfig   `yaml:"api"`
	Cache        CacheConfig `yaml:"cache"`
	Redis        RedisConfig `yaml:"redis"`
	Log          LogConfig   `yaml:"log"`
	PageSize     int         `yaml:"page_size" env:"TASKS_PAGE_SIZE"`
	PrefetchNext bool        `yaml:"prefetch_next" env:"TASKS_PREFETCH_NEXT"`
}

// APIConfig holds task service connection settings
type APIConfig struct {
	URL        string        `yaml:"url" env:"TASKS_API_URL"`
	Token      string        `yaml:"token" env:"TASKS_API_TOKEN"`
	Timeout    time.Duration `yaml:"timeout" env:"TASKS_API_TIMEOUT"`
	MaxRetries int           `yaml:"max_retries" env:"TASKS_API_RETRIES"`
	RetryDelay time.Duration `yaml:"retry_delay" env:"TASKS_API_RETRY_DELAY"`
}

// CacheConfig holds query cache settings
type CacheConfig struct {
	Namespace      string        `yaml:"namespace" env:"TASKS_CACHE_NAMESPACE"`
	Provider       string        `yaml:"provider" env:"TASKS_CACHE_PROVIDER"` // bigcache, ristretto, redis
	Codec          string        `yaml:"codec" env:"TASKS_CACHE_CODEC"`       // json, cbor, msgpack
	MaxDecodeBytes int           `yaml:"max_decode_bytes" env:"TASKS_MAX_DECODE_BYTES"`
	StaleTime      time.Duration `yaml:"stale_time" env:"TASKS_STALE_TIME"`
	Retention      time.Duration `yaml:"retention" env:"TASKS_CACHE_RETENTION"`
	SweepInterval  time.Duration `yaml:"sweep_interval" env:"TASKS_SWEEP_INTERVAL"`
	FetchTimeout   time.Duration `yaml:"fetch_timeout" env:"TASKS_FETCH_TIMEOUT"`
	MaxCost        int64         `yaml:"max_cost" env:"TASKS_CACHE_MAX_COST"`       // ristretto only
	MaxSizeMB      int           `yaml:"max_size_mb" env:"TASKS_CACHE_MAX_SIZE_MB"` // bigcache only
}

// RedisConfig is used when Cache.Provider is "redis"
type RedisConfig struct {
	Addr     string `yaml:"addr" env:"TASKS_REDIS_ADDR"`
	Password string `yaml:"password" env:"TASKS_REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"TASKS_REDIS_DB"`
}

// LogConfig selects the logging backend
type LogConfig struct {
	Backend string `yaml:"backend" env:"TASKS_LOG_BACKEND"` // zap, logrus, slog, zerolog
	Level   string `yaml:"level" env:"TASKS_LOG_LEVEL"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		API: APIConfig{
			URL:        "http://localhost:8080/api",
			Timeout:    30 * time.Second,
			RetryDelay: 500 * time.Millisecond,
		},
		Cache: CacheConfig{
			Namespace:      "tasks",
			Provider:       "bigcache",
			Codec:          "json",
			MaxDecodeBytes: 4 << 20,
			StaleTime:      5 * time.Minute,
			Retention:      5 * time.Minute,
			SweepInterval:  time.Minute,
			MaxCost:        64 << 20,
		},
		Redis:    RedisConfig{Addr: "localhost:6379"},
		Log:      LogConfig{Backend: "zap", Level: "warn"},
		PageSize: pagination.DefaultLimit,
	}
}

// DefaultPath is $XDG_CONFIG_HOME/tasks/config.yaml or its platform equivalent.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "tasks", "config.yaml")
}

// Load reads configuration from path (or DefaultPath when empty) and the
// process environment. A missing file at the default path is not an error.
func Load(path string) (*Config, error) {
	return load(path, nil)
}

// LoadWithEnv is Load with an explicit environment instead of os.Environ.
func LoadWithEnv(path string, environ map[string]string) (*Config, error) {
	if environ == nil {
		environ = map[string]string{}
	}
	return load(path, environ)
}

func load(path string, environ map[string]string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("invalid YAML in config file %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist) && !explicit:
		default:
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := env.ParseWithOptions(cfg, env.Options{Environment: environ}); err != nil {
		return nil, fmt.Errorf("invalid environment: %w", err)
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) normalize() {
	c.Cache.Provider = strings.ToLower(strings.TrimSpace(c.Cache.Provider))
	c.Cache.Codec = strings.ToLower(strings.TrimSpace(c.Cache.Codec))
	c.Log.Backend = strings.ToLower(strings.TrimSpace(c.Log.Backend))
	c.Log.Level = strings.ToLower(strings.TrimSpace(c.Log.Level))
	c.API.URL = strings.TrimSpace(c.API.URL)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.API.URL == "" {
		return errors.New("api.url is required")
	}
	if c.API.Timeout < 0 || c.API.RetryDelay < 0 || c.API.MaxRetries < 0 {
		return errors.New("api timeout, retries and retry delay must not be negative")
	}
	if c.Cache.Namespace == "" {
		return errors.New("cache.namespace is required")
	}
	switch c.Cache.Provider {
	case "bigcache", "ristretto":
	case "redis":
		if c.Redis.Addr == "" {
			return errors.New("redis.addr is required for the redis provider")
		}
	default:
		return fmt.Errorf("unknown cache.provider: %q (must be bigcache, ristretto or redis)", c.Cache.Provider)
	}
	switch c.Cache.Codec {
	case "json", "cbor", "msgpack":
	default:
		return fmt.Errorf("unknown cache.codec: %q (must be json, cbor or msgpack)", c.Cache.Codec)
	}
	if c.Cache.StaleTime < 0 || c.Cache.Retention < 0 {
		return errors.New("cache stale_time and retention must not be negative")
	}
	if c.Cache.Provider == "ristretto" && c.Cache.MaxCost <= 0 {
		return errors.New("cache.max_cost must be positive for the ristretto provider")
	}
	switch c.Log.Backend {
	case "zap", "logrus", "slog", "zerolog":
	default:
		return fmt.Errorf("unknown log.backend: %q (must be zap, logrus, slog or zerolog)", c.Log.Backend)
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log.level: %q", c.Log.Level)
	}
	if c.PageSize < 1 || c.PageSize > pagination.MaxLimit {
		return fmt.Errorf("page_size must be between 1 and %d, got %d", pagination.MaxLimit, c.PageSize)
	}
	return nil
}
