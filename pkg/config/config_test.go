package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carebridge/clinconsult/pkg/config"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "./data/patients.json", cfg.Store.PatientsFile)
	assert.Equal(t, "./data/prompts.json", cfg.Store.PromptsFile)
	assert.Equal(t, "localhost:6379", cfg.Redis.RedisAddr())
	assert.Equal(t, 3600, cfg.Terminology.CacheTTLSeconds)
	assert.Equal(t, 8*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, map[string]string{"demo": "demo"}, cfg.Auth.Users)
	assert.False(t, cfg.OTEL.Enabled)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("PATIENTS_FILE", "/tmp/patients.json")
	t.Setenv("DEFAULT_MODEL", "gpt-4o-mini")
	t.Setenv("AUTH_USERS", "alice:secret, bob:hunter2")
	t.Setenv("OTEL_ENABLED", "true")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "/tmp/patients.json", cfg.Store.PatientsFile)
	assert.Equal(t, "gpt-4o-mini", cfg.DefaultModel)
	assert.Equal(t, "secret", cfg.Auth.Users["alice"])
	assert.Equal(t, "hunter2", cfg.Auth.Users["bob"])
	assert.True(t, cfg.OTEL.Enabled)
}

func TestLoad_MalformedUsersIgnored(t *testing.T) {
	t.Setenv("AUTH_USERS", "nocolon,:nopass,ok:pw")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"ok": "pw"}, cfg.Auth.Users)
}
