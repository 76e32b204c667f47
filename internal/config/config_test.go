package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:5000", cfg.Backend.URL)
	assert.Equal(t, "/api", cfg.Backend.APIPrefix)
	assert.Equal(t, 10.0, cfg.Backend.RateLimit)
	assert.Equal(t, 100, cfg.Logs.DefaultTail)
	assert.True(t, cfg.Logs.Color)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.NotEmpty(t, cfg.State.Path)
}

func TestLoad_FromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lmxctl.yaml")
	content := `
backend:
  url: https://lmx.internal:8443
  api_prefix: /lmx/api
logs:
  default_tail: 500
  color: false
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://lmx.internal:8443", cfg.Backend.URL)
	assert.Equal(t, "/lmx/api", cfg.Backend.APIPrefix)
	assert.Equal(t, 500, cfg.Logs.DefaultTail)
	assert.False(t, cfg.Logs.Color)
	// Untouched keys keep their defaults.
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoad_MissingFileIsOptional(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:5000", cfg.Backend.URL)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("LMX_BACKEND_URL", "http://envhost:9999")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "http://envhost:9999", cfg.Backend.URL)
}

func TestValidate(t *testing.T) {
	valid := &Config{
		Backend: BackendConfig{URL: "http://localhost:5000"},
		Logs:    LogsConfig{DefaultTail: 100},
	}
	assert.NoError(t, valid.Validate())

	noURL := &Config{}
	assert.Error(t, noURL.Validate())

	badScheme := &Config{Backend: BackendConfig{URL: "ftp://host"}}
	assert.Error(t, badScheme.Validate())

	negativeTail := &Config{
		Backend: BackendConfig{URL: "http://localhost:5000"},
		Logs:    LogsConfig{DefaultTail: -1},
	}
	assert.Error(t, negativeTail.Validate())
}
