package config_test

import (
	"testing"
	"time"

	"github.com/talkweave/engine/internal/assert"
	"github.com/talkweave/engine/internal/config"
)

func TestDefaultConfig(t *testing.T) {
	as := assert.New(t)
	cfg := config.NewDefaultConfig()

	as.Equal(config.DefaultAPIPort, cfg.APIPort)
	as.Equal(config.DefaultRedisEndpoint, cfg.Store.Addr)
	as.Equal(config.DefaultRedisPrefix, cfg.Store.Prefix)
	as.Equal(config.DefaultSweepInterval, cfg.SweepInterval)
	as.Equal(config.DefaultDispatchIterCap, cfg.DispatchIterCap)
	as.NoError(cfg.Validate())
}

func TestLoadFromEnv(t *testing.T) {
	as := assert.New(t)

	t.Setenv("API_PORT", "9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("REDIS_ADDR", "redis.internal:6380")
	t.Setenv("REDIS_PREFIX", "flows")
	t.Setenv("SWEEP_INTERVAL", "30s")
	t.Setenv("DISPATCH_ITERATION_CAP", "512")
	t.Setenv("AI_MODEL", "gpt-4o")

	cfg := config.NewDefaultConfig()
	as.Require.NoError(cfg.LoadFromEnv())

	as.Equal(9090, cfg.APIPort)
	as.Equal("debug", cfg.LogLevel)
	as.Equal("redis.internal:6380", cfg.Store.Addr)
	as.Equal("flows", cfg.Store.Prefix)
	as.Equal(30*time.Second, cfg.SweepInterval)
	as.Equal(512, cfg.DispatchIterCap)
	as.Equal("gpt-4o", cfg.AIModel)
	as.NoError(cfg.Validate())
}

func TestLoadFromEnvRejectsBadValues(t *testing.T) {
	as := assert.New(t)

	t.Setenv("API_PORT", "not-a-port")
	as.Error(config.NewDefaultConfig().LoadFromEnv())

	t.Setenv("API_PORT", "70000")
	as.Error(config.NewDefaultConfig().LoadFromEnv())

	t.Setenv("API_PORT", "")
	t.Setenv("SWEEP_INTERVAL", "-5s")
	as.Error(config.NewDefaultConfig().LoadFromEnv())
}

func TestValidate(t *testing.T) {
	as := assert.New(t)

	cfg := config.NewDefaultConfig()
	cfg.APIPort = 0
	as.ErrorIs(cfg.Validate(), config.ErrInvalidAPIPort)

	cfg = config.NewDefaultConfig()
	cfg.SweepInterval = 0
	as.ErrorIs(cfg.Validate(), config.ErrInvalidSweepInterval)

	cfg = config.NewDefaultConfig()
	cfg.DispatchIterCap = -1
	as.ErrorIs(cfg.Validate(), config.ErrInvalidIterCap)
}
