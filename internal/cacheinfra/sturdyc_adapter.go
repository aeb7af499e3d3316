package cacheinfra

import (
	"time"

	"github.com/viccon/sturdyc"
)

// Config holds the configuration for the sturdyc retention adapter.
type Config struct {
	// Capacity defines the maximum number of retained entries.
	// Must be greater than 0.
	Capacity int

	// NumShards determines the number of cache shards for concurrent access.
	// Must be greater than 0. Default: 64
	NumShards int

	// TTL is the grace window: how long an entry nobody subscribes to is kept.
	// Must be greater than 0.
	TTL time.Duration

	// EvictionPercentage specifies what percentage of entries to evict
	// when the cache reaches its capacity. Must be between 1-100.
	EvictionPercentage int

	// EvictionInterval sets how often expired entries are swept.
	// Zero value uses the sturdyc default.
	EvictionInterval time.Duration
}

// DefaultConfig returns a Config with sensible defaults for a dashboard
// sized client.
func DefaultConfig() Config {
	return Config{
		Capacity:           2048,
		NumShards:          64,
		TTL:                60 * time.Second,
		EvictionPercentage: 10,
		EvictionInterval:   0,
	}
}

// ToSturdycOptions maps the optional settings to sturdyc options.
// Capacity, NumShards, TTL and EvictionPercentage go to sturdyc.New directly.
func (c Config) ToSturdycOptions() []sturdyc.Option {
	var options []sturdyc.Option
	if c.EvictionInterval > 0 {
		options = append(options, sturdyc.WithEvictionInterval(c.EvictionInterval))
	}
	return options
}

// Validate checks if the configuration values are valid.
func (c Config) Validate() error {
	if c.Capacity <= 0 {
		return &ConfigError{Field: "Capacity", Message: "must be greater than 0"}
	}

	if c.NumShards <= 0 {
		return &ConfigError{Field: "NumShards", Message: "must be greater than 0"}
	}

	if c.NumShards > c.Capacity {
		return &ConfigError{Field: "NumShards", Message: "must not exceed Capacity"}
	}

	if c.TTL <= 0 {
		return &ConfigError{Field: "TTL", Message: "must be greater than 0"}
	}

	if c.EvictionPercentage < 1 || c.EvictionPercentage > 100 {
		return &ConfigError{Field: "EvictionPercentage", Message: "must be between 1 and 100"}
	}

	if c.EvictionInterval < 0 {
		return &ConfigError{Field: "EvictionInterval", Message: "must be non-negative"}
	}

	return nil
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return "config error in field " + e.Field + ": " + e.Message
}

// SturdycRetention keeps unsubscribed cache entries in a sturdyc client
// until their TTL runs out. Values are stored as-is, so a revived entry is
// the same value that was retained.
type SturdycRetention struct {
	client *sturdyc.Client[any]
}

// NewSturdycRetention validates cfg and creates the sturdyc client.
//
// sturdyc starts a background eviction loop that lives as long as the
// process; Close only empties the client.
func NewSturdycRetention(cfg Config) (*SturdycRetention, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client := sturdyc.New[any](
		cfg.Capacity,
		cfg.NumShards,
		cfg.TTL,
		cfg.EvictionPercentage,
		cfg.ToSturdycOptions()...,
	)

	return &SturdycRetention{client: client}, nil
}

func (r *SturdycRetention) Retain(key string, value any) {
	r.client.Set(key, value)
}

// Peek returns the retained value without removing it. Expired values are
// reported as missing even before the eviction loop removes them.
func (r *SturdycRetention) Peek(key string) (any, bool) {
	return r.client.Get(key)
}

func (r *SturdycRetention) Revive(key string) (any, bool) {
	v, ok := r.client.Get(key)
	r.client.Delete(key)
	return v, ok
}

func (r *SturdycRetention) Drop(key string) {
	r.client.Delete(key)
}

// Keys may include expired keys that were not swept yet; Peek filters them.
func (r *SturdycRetention) Keys() []string {
	return r.client.ScanKeys()
}

// Len returns the number of keys currently held.
func (r *SturdycRetention) Len() int {
	return r.client.Size()
}

func (r *SturdycRetention) Close() error {
	for _, key := range r.client.ScanKeys() {
		r.client.Delete(key)
	}
	return nil
}
