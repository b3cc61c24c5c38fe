package app

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/odyssey-erp/erpnext-gateway/internal/platform/cache"
)

// Session backends.
const (
	SessionBackendMemory = "memory"
	SessionBackendRedis  = "redis"
)

// Config holds runtime configuration for the application.
type Config struct {
	AppEnv            string        `envconfig:"APP_ENV" default:"development"`
	AppAddr           string        `envconfig:"APP_ADDR" default:":8080"`
	AppReadTimeout    time.Duration `envconfig:"APP_READ_TIMEOUT" default:"15s"`
	AppWriteTimeout   time.Duration `envconfig:"APP_WRITE_TIMEOUT" default:"60s"`
	AppRequestTimeout time.Duration `envconfig:"APP_REQUEST_TIMEOUT" default:"45s"`
	RateLimit         int           `envconfig:"APP_RATE_LIMIT" default:"120"`

	LogFormat string `envconfig:"LOG_FORMAT" default:"pretty"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`

	ERPBaseURL string        `envconfig:"ERP_BASE_URL" required:"true"`
	ERPTimeout time.Duration `envconfig:"ERP_TIMEOUT" default:"30s"`

	SessionBackend string        `envconfig:"SESSION_BACKEND" default:"memory"`
	SessionSecret  string        `envconfig:"SESSION_SECRET"`
	SessionTTL     time.Duration `envconfig:"SESSION_TTL" default:"12h"`

	RedisAddr            string        `envconfig:"REDIS_ADDR" default:"127.0.0.1:6379"`
	RedisPassword        string        `envconfig:"REDIS_PASSWORD"`
	RedisDB              int           `envconfig:"REDIS_DB" default:"0"`
	IdempotencyRetention time.Duration `envconfig:"IDEMPOTENCY_RETENTION" default:"24h"`

	// JobsEnabled routes background resubmits through the Redis queue.
	JobsEnabled bool `envconfig:"JOBS_ENABLED" default:"false"`
	// WorkerConcurrency sets the worker's parallel task count.
	WorkerConcurrency int `envconfig:"WORKER_CONCURRENCY" default:"5"`
	// WorkerMetricsAddr is where the worker serves /metrics and /healthz.
	WorkerMetricsAddr string `envconfig:"WORKER_METRICS_ADDR" default:":9091"`
}

// RedisOptions returns the Redis endpoint settings.
func (c *Config) RedisOptions() cache.Options {
	return cache.Options{Addr: c.RedisAddr, Password: c.RedisPassword, DB: c.RedisDB}
}

// UsesRedis reports whether any component needs the Redis connection.
func (c *Config) UsesRedis() bool {
	return c.SessionBackend == SessionBackendRedis || c.JobsEnabled
}

// LoadConfig reads configuration from a .env file, when present, and the
// environment. Values already set in the environment win over the file.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	u, err := url.Parse(c.ERPBaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("ERP_BASE_URL must be an absolute URL, got %q", c.ERPBaseURL)
	}
	switch c.SessionBackend {
	case SessionBackendMemory:
	case SessionBackendRedis:
		if c.SessionSecret == "" {
			return errors.New("session secret must be provided for the redis session backend")
		}
	default:
		return fmt.Errorf("unknown SESSION_BACKEND %q", c.SessionBackend)
	}
	if c.JobsEnabled && c.SessionBackend != SessionBackendRedis {
		return errors.New("JOBS_ENABLED requires the redis session backend so the worker shares the ERP session")
	}
	return nil
}

// IsProduction returns true when the application runs in production.
func (c *Config) IsProduction() bool {
	return c != nil && c.AppEnv == "production"
}
