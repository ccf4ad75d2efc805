package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))

	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, "files", cfg.Data.Source)
	assert.Equal(t, "degrade", cfg.Data.MissingPolicy)
	assert.Equal(t, "precomputed", cfg.Data.RankMode)
	assert.Equal(t, "apartment_rankings", cfg.Data.Resources.Rankings)
	assert.Equal(t, 5, cfg.Consistency.ExampleLimit)
	assert.Empty(t, cfg.Server.TrustedProxies)
}

func TestLoadConfig_YAMLOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 8080
data:
  source: sqlite
  rank_mode: computed
  resources:
    rankings: rankings_v2
database:
  sqlite:
    path: /tmp/apartments.db
consistency:
  example_limit: 10
  audit_enabled: true
  audit_schedule: "04:30"
`), 0o644))

	cfg, err := LoadConfig(path)

	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Data.Source)
	assert.Equal(t, "computed", cfg.Data.RankMode)
	assert.Equal(t, "rankings_v2", cfg.Data.Resources.Rankings)
	assert.Equal(t, "geometries", cfg.Data.Resources.Geometries)
	assert.Equal(t, "/tmp/apartments.db", cfg.Database.SQLite.Path)
	assert.Equal(t, 10, cfg.Consistency.ExampleLimit)
	assert.True(t, cfg.Consistency.AuditEnabled)
	assert.Equal(t, "04:30", cfg.Consistency.AuditSchedule)
	assert.Equal(t, []string{"http://localhost:4200"}, cfg.Server.CORSOrigins)
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [unterminated"), 0o644))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestLoadConfig_Environment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("DATA_SOURCE", "s3")
	t.Setenv("DATA_DIR", "/srv/data")
	t.Setenv("CORS_ORIGINS", "https://a.example,https://b.example")
	t.Setenv("S3_BUCKET", "apartments")
	t.Setenv("TRUSTED_PROXIES", "10.0.0.1,10.0.0.0/8")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))

	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "s3", cfg.Data.Source)
	assert.Equal(t, "/srv/data", cfg.Data.Dir)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.CORSOrigins)
	assert.Equal(t, "apartments", cfg.S3.Bucket)
	assert.Equal(t, []string{"10.0.0.1", "10.0.0.0/8"}, cfg.Server.TrustedProxies)
}

func TestGetEnvOrConfig(t *testing.T) {
	t.Setenv("APARTMENTS_TEST_HOST", "env-host")

	assert.Equal(t, "cfg-host", GetEnvOrConfig("cfg-host", "APARTMENTS_TEST_HOST", "default"))
	assert.Equal(t, "env-host", GetEnvOrConfig("", "APARTMENTS_TEST_HOST", "default"))
	assert.Equal(t, "default", GetEnvOrConfig("", "APARTMENTS_TEST_UNSET", "default"))
}

func TestGetLoadTimeout(t *testing.T) {
	assert.Equal(t, 2*time.Minute, (&DataConfig{}).GetLoadTimeout())
	assert.Equal(t, 30*time.Second, (&DataConfig{LoadTimeout: 30}).GetLoadTimeout())
}

func TestInitLogger(t *testing.T) {
	prev := zap.L()
	t.Cleanup(func() { zap.ReplaceGlobals(prev) })

	require.NoError(t, InitLogger(LoggingConfig{Level: "debug", Format: "console"}))
	assert.True(t, zap.L().Core().Enabled(zap.DebugLevel))

	assert.Error(t, InitLogger(LoggingConfig{Level: "loud"}))
}
