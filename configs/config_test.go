package configs

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("GO_ENV", "test")
	for _, k := range []string{"HTTP_PORT", "DB_DRIVER", "DB_PORT", "REDIS_HOST", "LOGIN_DELAY", "RATE_LIMIT_MAX", "LOG_DIR"} {
		t.Setenv(k, "")
	}

	cfg := LoadConfig()
	assert.Equal(t, 3004, cfg.HTTPPort)
	assert.Equal(t, "postgres", cfg.DBDriver)
	assert.Equal(t, 5432, cfg.DBPort)
	assert.Equal(t, "", cfg.RedisHost)
	assert.Equal(t, time.Second, cfg.LoginDelay)
	assert.Equal(t, 100, cfg.RateLimitMax)
	assert.Equal(t, "logs", cfg.LogDir)
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("GO_ENV", "test")
	t.Setenv("DB_DRIVER", "SQLite")
	t.Setenv("SQLITE_PATH", "/tmp/x.db")
	t.Setenv("LOGIN_DELAY", "250ms")
	t.Setenv("DB_PORT", "not-a-number")

	cfg := LoadConfig()
	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, "/tmp/x.db", cfg.SQLitePath)
	assert.Equal(t, 250*time.Millisecond, cfg.LoginDelay)
	assert.Equal(t, 5432, cfg.DBPort)
}

func TestLoadConfigBadDuration(t *testing.T) {
	t.Setenv("GO_ENV", "test")
	t.Setenv("LOGIN_DELAY", "soon")

	assert.Equal(t, time.Second, LoadConfig().LoginDelay)
}
