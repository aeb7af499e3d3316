package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	goerrors "github.com/goliatone/go-errors"
	"github.com/joho/godotenv"

	"github.com/goliatone/go-query-cache/cache"
)

// Environment variable names.
const (
	EnvEnvironment   = "GO_ENV"
	EnvAPIBaseURL    = "API_BASE_URL"
	EnvSessionDSN    = "SESSION_DSN"
	EnvGraceWindow   = "CACHE_GRACE_WINDOW"
	EnvCacheCapacity = "CACHE_CAPACITY"
	EnvCacheShards   = "CACHE_SHARDS"
	EnvLogLevel      = "LOG_LEVEL"
)

// Defaults used when the environment leaves a value unset.
const (
	DefaultEnvironment = "development"
	DefaultAPIBaseURL  = "http://10.10.20.16:5137"
	DefaultSessionDSN  = "sqlite://admin-session.db"
	DefaultLogLevel    = "info"
)

// Config holds all configuration for the dashboard client.
type Config struct {
	Environment string
	APIBaseURL  string
	SessionDSN  string
	LogLevel    string
	Cache       cache.Config
}

// Load reads the configuration from environment variables. Outside
// production a .env file in the working directory is loaded first; a
// missing file is not an error.
func Load() (*Config, error) {
	env := os.Getenv(EnvEnvironment)
	if env == "" {
		env = DefaultEnvironment
	}

	if env != "production" {
		_ = godotenv.Load()
	}

	return loadFrom(os.Getenv)
}

func loadFrom(getenv func(string) string) (*Config, error) {
	cfg := &Config{
		Environment: getenv(EnvEnvironment),
		APIBaseURL:  getenv(EnvAPIBaseURL),
		SessionDSN:  getenv(EnvSessionDSN),
		LogLevel:    getenv(EnvLogLevel),
		Cache:       cache.DefaultConfig(),
	}

	if cfg.Environment == "" {
		cfg.Environment = DefaultEnvironment
	}
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = DefaultAPIBaseURL
	}
	if cfg.SessionDSN == "" {
		cfg.SessionDSN = DefaultSessionDSN
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = DefaultLogLevel
	}

	if s := getenv(EnvGraceWindow); s != "" {
		d, err := time.ParseDuration(s)
		if err != nil {
			return nil, invalid(EnvGraceWindow, s, err)
		}
		cfg.Cache.GraceWindow = d
	}
	if s := getenv(EnvCacheCapacity); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return nil, invalid(EnvCacheCapacity, s, err)
		}
		cfg.Cache.Capacity = n
	}
	if s := getenv(EnvCacheShards); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return nil, invalid(EnvCacheShards, s, err)
		}
		cfg.Cache.NumShards = n
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration, including the cache settings.
func (c Config) Validate() error {
	err := validation.ValidateStruct(&c,
		validation.Field(&c.Environment, validation.Required, validation.In("development", "test", "staging", "production")),
		validation.Field(&c.APIBaseURL, validation.Required, validation.By(absoluteURL)),
		validation.Field(&c.SessionDSN, validation.Required),
		validation.Field(&c.LogLevel, validation.In("debug", "info", "warn", "error")),
	)
	if err != nil {
		return goerrors.FromOzzoValidation(err, "invalid configuration")
	}
	if err := c.Cache.Validate(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid cache configuration").
			WithTextCode("INVALID_CONFIG")
	}
	return nil
}

// IsProduction reports whether GO_ENV is production.
func (c Config) IsProduction() bool { return c.Environment == "production" }

func absoluteURL(value any) error {
	s, _ := value.(string)
	u, err := url.Parse(s)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return validation.NewError("validation_absolute_url", "must be an absolute http(s) URL")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return validation.NewError("validation_absolute_url", "must be an absolute http(s) URL")
	}
	return nil
}

func invalid(name, value string, err error) error {
	return goerrors.Wrap(err, goerrors.CategoryValidation, fmt.Sprintf("%s=%q is not valid", name, value)).
		WithTextCode("INVALID_CONFIG")
}
