package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":8000", cfg.Server.Addr)
	assert.Equal(t, "agroai.db", cfg.Database.Path)
	assert.Equal(t, 24*time.Hour, cfg.Auth.SessionTTL)
	assert.Equal(t, "keyword", cfg.Assistant.Backend)
	assert.Equal(t, int64(30), cfg.Redis.RateLimit)
	assert.Equal(t, time.Minute, cfg.Redis.RateWindow)
	assert.Empty(t, cfg.Kafka.Brokers)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadFileAndEnvironment(t *testing.T) {
	path := writeConfig(t, `
server:
  addr: ":9000"
auth:
  secret: from-file
  session_ttl: 2h
kafka:
  brokers: ["k1:9092"]
`)
	t.Setenv("AGROAI_AUTH_SECRET", "from-env")
	t.Setenv("AGROAI_REDIS_RATE_WINDOW", "30s")
	t.Setenv("AGROAI_ASSISTANT_SEED", "42")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, "from-env", cfg.Auth.Secret)
	assert.Equal(t, 2*time.Hour, cfg.Auth.SessionTTL)
	assert.Equal(t, 30*time.Second, cfg.Redis.RateWindow)
	assert.Equal(t, int64(42), cfg.Assistant.Seed)
	assert.Equal(t, []string{"k1:9092"}, cfg.Kafka.Brokers)
}

func TestLoadExplicitMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	chdir(t, t.TempDir())
	cfg, err := Load("")
	require.NoError(t, err)

	err = cfg.Validate()
	require.Error(t, err)
	assert.Len(t, multierr.Errors(err), 1)
	assert.Contains(t, err.Error(), "auth.secret")

	cfg.Auth.Secret = strings.Repeat("k", MinSecretLength)
	assert.NoError(t, cfg.Validate())

	cfg.Assistant.Backend = "telepathy"
	cfg.Redis.Addr = "localhost:6379"
	cfg.Redis.RateLimit = 0
	cfg.Kafka.Brokers = []string{"k1:9092"}
	cfg.Kafka.Topic = ""
	assert.Len(t, multierr.Errors(cfg.Validate()), 3)
}

func TestValidateRejectsWeakSecrets(t *testing.T) {
	tests := []struct {
		name   string
		secret string
		want   string
	}{
		{"too short", "s3cret", "at least 32 bytes"},
		{"shipped placeholder", "dev-only-secret-change-me", "example value"},
		{"env example placeholder", "replace-with-a-long-random-string", "example value"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chdir(t, t.TempDir())
			cfg, err := Load("")
			require.NoError(t, err)
			cfg.Auth.Secret = tt.secret

			err = cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestCommittedConfigNeedsSecret(t *testing.T) {
	t.Setenv("AGROAI_AUTH_SECRET", "")
	cfg, err := Load(filepath.Join("..", "..", "config", "config.yaml"))
	require.NoError(t, err)
	assert.Empty(t, cfg.Auth.Secret)

	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "auth.secret is required")

	t.Setenv("AGROAI_AUTH_SECRET", strings.Repeat("x", MinSecretLength))
	cfg, err = Load(filepath.Join("..", "..", "config", "config.yaml"))
	require.NoError(t, err)
	assert.NoError(t, cfg.Validate())
}

func TestNewLogger(t *testing.T) {
	logger, err := Log{Level: "debug", Development: true}.NewLogger()
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(-1))

	_, err = Log{Level: "loud"}.NewLogger()
	assert.Error(t, err)
}
