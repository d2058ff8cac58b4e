package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	data := `
[service]
base_url = "http://classifier:8000"
timeout_seconds = 30

[server]
port = "9090"

[upload]
max_rows = 200

[log]
level = "debug"
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "http://classifier:8000", cfg.Service.BaseURL)
	assert.Equal(t, 30, cfg.Service.TimeoutSeconds)
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, 200, cfg.Upload.MaxRows)
	assert.Equal(t, int64(10<<20), cfg.Upload.MaxBytes)
	assert.Equal(t, 60, cfg.Session.TTLMinutes)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.NoError(t, cfg.Validate())
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 50, cfg.Upload.MaxRows)
	assert.Equal(t, 0, cfg.Service.TimeoutSeconds)
	assert.Error(t, cfg.Validate(), "base url is required")
}

func TestLoadInvalidTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte("[service\nbase_url="), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	cfg := &Config{}
	cfg.ApplyDefaults()

	env := map[string]string{
		"EXOSEEK_API_URL": "http://localhost:8000",
		"PORT":            "7000",
		"LOG_LEVEL":       "WARN",
		"UPLOAD_MAX_ROWS": "10",
	}
	require.NoError(t, cfg.ApplyEnv(func(k string) string { return env[k] }))

	assert.Equal(t, "http://localhost:8000", cfg.Service.BaseURL)
	assert.Equal(t, "7000", cfg.Server.Port)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, 10, cfg.Upload.MaxRows)

	env["UPLOAD_MAX_ROWS"] = "lots"
	assert.Error(t, cfg.ApplyEnv(func(k string) string { return env[k] }))
}
