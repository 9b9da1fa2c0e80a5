package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/tourney")
	t.Setenv("JWT_SECRET_KEY", "secret")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "8080", cfg.Port)
	require.Equal(t, 100, cfg.RateLimit)
	require.Equal(t, 30*time.Second, cfg.AnnounceInterval)
	require.Equal(t, []string{"http://localhost:5173"}, cfg.Origins())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("POSTGRES_URL", "postgres://legacy/tourney")
	t.Setenv("JWT_SECRET_KEY", "secret")
	t.Setenv("SERVICE_PORT", "9100")
	t.Setenv("RATE_LIMIT", "20")
	t.Setenv("ANNOUNCE_INTERVAL", "5s")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "postgres://legacy/tourney", cfg.DatabaseURL)
	require.Equal(t, "9100", cfg.Port)
	require.Equal(t, 20, cfg.RateLimit)
	require.Equal(t, 5*time.Second, cfg.AnnounceInterval)
	require.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Origins())
}

func TestLoadRequiresSecrets(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("POSTGRES_URL", "")
	t.Setenv("JWT_SECRET_KEY", "")
	t.Setenv("RATE_LIMIT", "0")

	_, err := Load()
	require.Error(t, err)
	require.ErrorContains(t, err, "DATABASE_URL")
	require.ErrorContains(t, err, "JWT_SECRET_KEY")
	require.ErrorContains(t, err, "RATE_LIMIT")
}
