package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "oxiforms.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv(FileEnv, "")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":5000", cfg.HTTPAddr)
	assert.Equal(t, StoreOxiDB, cfg.Store)
	assert.Equal(t, 4444, cfg.OxiDB.Port)
	assert.Equal(t, []string{"data.records:read", "data.records:write", "schema.bases:read"}, cfg.Airtable.Scopes())
	assert.Equal(t, cfg.JWTSecret, cfg.SealingKey())
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeFile(t, `
http_addr: ":7000"
store: mongo
session_ttl: 2h
oxidb:
  port: 5555
mongo:
  database: forms
airtable:
  client_id: from-file
webhook:
  secret: file-secret
cors_origins: ["http://a.example"]
log:
  level: debug
`)
	t.Setenv(FileEnv, path)
	t.Setenv("AIRTABLE_CLIENT_ID", "from-env")
	t.Setenv("WEBHOOK_REQUIRE_SECRET", "true")
	t.Setenv("CORS_ORIGINS", "http://b.example,http://c.example")
	t.Setenv("TOKEN_ENCRYPTION_KEY", "k")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":7000", cfg.HTTPAddr)
	assert.Equal(t, StoreMongo, cfg.Store)
	assert.Equal(t, 2*time.Hour, cfg.SessionTTL)
	assert.Equal(t, 5555, cfg.OxiDB.Port)
	assert.Equal(t, "127.0.0.1", cfg.OxiDB.Host)
	assert.Equal(t, "forms", cfg.Mongo.Database)
	assert.Equal(t, "from-env", cfg.Airtable.ClientID)
	assert.Equal(t, "file-secret", cfg.Webhook.Secret)
	assert.True(t, cfg.Webhook.RequireSecret)
	assert.Equal(t, []string{"http://b.example", "http://c.example"}, cfg.CORSOrigins)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "k", cfg.SealingKey())
}

func TestLoadRejectsInvalid(t *testing.T) {
	t.Setenv(FileEnv, "")
	t.Setenv("OXIFORMS_STORE", "sqlite")
	_, err := Load()
	assert.ErrorContains(t, err, "store must be")
}

func TestLoadMissingFile(t *testing.T) {
	t.Setenv(FileEnv, filepath.Join(t.TempDir(), "nope.yaml"))
	_, err := Load()
	assert.Error(t, err)
}

func TestLoadRelay(t *testing.T) {
	t.Setenv(FileEnv, writeFile(t, "relay:\n  target_url: http://backend.example/\n"))
	t.Setenv("WEBHOOK_SECRET", "s")
	t.Setenv("PORT", "6001")

	cfg, err := LoadRelay()
	require.NoError(t, err)
	assert.Equal(t, ":6001", cfg.Addr)
	assert.Equal(t, "http://backend.example", cfg.TargetURL)
	assert.Equal(t, "s", cfg.Secret)
}

func TestLoadRelayRequiresSecret(t *testing.T) {
	t.Setenv(FileEnv, "")
	t.Setenv("WEBHOOK_SECRET", "")
	_, err := LoadRelay()
	assert.Error(t, err)
}
