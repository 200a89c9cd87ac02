package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

type (
	// RedisConfig holds connection settings for the engine's Redis store
	RedisConfig struct {
		Addr     string
		Password string
		DB       int
		Prefix   string
	}

	// Config holds configuration settings for the engine
	Config struct {
		// API Server
		APIHost  string
		APIPort  int
		LogLevel string

		// Store
		Store RedisConfig

		// Delay scheduling
		SweepInterval time.Duration

		// Session archival
		ArchiveBucketURL string
		ArchivePrefix    string
		ArchiveInterval  time.Duration

		// AI provider
		AIAPIKey  string
		AIBaseURL string
		AIModel   string

		// Engine
		DispatchIterCap int
		ShutdownTimeout time.Duration
	}
)

const (
	DefaultAPIPort = 8080
	DefaultAPIHost = "0.0.0.0"
	MaxTCPPort     = 65535

	DefaultRedisEndpoint = "localhost:6379"
	DefaultRedisDB       = 0
	DefaultRedisPrefix   = "talkweave"

	DefaultSweepInterval   = 10 * time.Second
	DefaultArchiveInterval = time.Minute
	DefaultDispatchIterCap = 256
	DefaultShutdownTimeout = 10 * time.Second
	DefaultAIModel         = "gpt-4o-mini"

	MaxDispatchIterCap = 100_000
	MaxSweepInterval   = 24 * time.Hour
)

var (
	ErrInvalidAPIPort       = errors.New("invalid API port")
	ErrInvalidSweepInterval = errors.New("sweep interval must be positive")
	ErrInvalidIterCap       = errors.New(
		"dispatch iteration cap must be positive",
	)
)

// NewDefaultConfig creates a configuration with sensible defaults for all
// engine settings
func NewDefaultConfig() *Config {
	return &Config{
		APIPort:  DefaultAPIPort,
		APIHost:  DefaultAPIHost,
		LogLevel: "info",
		Store: RedisConfig{
			Addr:     DefaultRedisEndpoint,
			Password: "",
			DB:       DefaultRedisDB,
			Prefix:   DefaultRedisPrefix,
		},
		SweepInterval:   DefaultSweepInterval,
		ArchiveInterval: DefaultArchiveInterval,
		ArchivePrefix:   "sessions/",
		AIModel:         DefaultAIModel,
		DispatchIterCap: DefaultDispatchIterCap,
		ShutdownTimeout: DefaultShutdownTimeout,
	}
}

// LoadFromEnv populates configuration values from environment variables.
// Returns an error if any env var cannot be parsed
func (c *Config) LoadFromEnv() error {
	if host := os.Getenv("API_HOST"); host != "" {
		c.APIHost = host
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		c.LogLevel = level
	}
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		c.Store.Addr = addr
	}
	if password := os.Getenv("REDIS_PASSWORD"); password != "" {
		c.Store.Password = password
	}
	if prefix := os.Getenv("REDIS_PREFIX"); prefix != "" {
		c.Store.Prefix = prefix
	}
	if bucket := os.Getenv("ARCHIVE_BUCKET_URL"); bucket != "" {
		c.ArchiveBucketURL = bucket
	}
	if prefix := os.Getenv("ARCHIVE_PREFIX"); prefix != "" {
		c.ArchivePrefix = prefix
	}
	if key := os.Getenv("AI_API_KEY"); key != "" {
		c.AIAPIKey = key
	}
	if base := os.Getenv("AI_BASE_URL"); base != "" {
		c.AIBaseURL = base
	}
	if model := os.Getenv("AI_MODEL"); model != "" {
		c.AIModel = model
	}

	if err := loadEnvInt("API_PORT", &c.APIPort, 0, MaxTCPPort); err != nil {
		return err
	}
	if err := loadEnvInt(
		"REDIS_DB", &c.Store.DB, -1, 15,
	); err != nil {
		return err
	}
	if err := loadEnvInt(
		"DISPATCH_ITERATION_CAP", &c.DispatchIterCap, 0, MaxDispatchIterCap,
	); err != nil {
		return err
	}
	if err := loadEnvDuration("SWEEP_INTERVAL", &c.SweepInterval); err != nil {
		return err
	}
	if err := loadEnvDuration(
		"ARCHIVE_INTERVAL", &c.ArchiveInterval,
	); err != nil {
		return err
	}
	return nil
}

// Validate checks that all configuration values are valid
func (c *Config) Validate() error {
	if c.APIPort <= 0 || c.APIPort > MaxTCPPort {
		return fmt.Errorf("%w: %d", ErrInvalidAPIPort, c.APIPort)
	}
	if c.SweepInterval <= 0 || c.SweepInterval > MaxSweepInterval {
		return ErrInvalidSweepInterval
	}
	if c.DispatchIterCap <= 0 {
		return ErrInvalidIterCap
	}
	return nil
}

// loadEnvInt reads key from the environment, parses it as an integer, and
// sets *dst if the value is in the range (min, max). Returns an error if
// the value cannot be parsed or falls outside the valid range
func loadEnvInt[T ~int](key string, dst *T, min, max T) error {
	s := os.Getenv(key)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid %s: %q", key, s)
	}
	tv := T(v)
	if tv <= min || tv > max {
		return fmt.Errorf("invalid %s: %d out of range [%d, %d]",
			key, tv, min+1, max)
	}
	*dst = tv
	return nil
}

func loadEnvDuration(key string, dst *time.Duration) error {
	s := os.Getenv(key)
	if s == "" {
		return nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fmt.Errorf("invalid %s: %q", key, s)
	}
	*dst = d
	return nil
}
