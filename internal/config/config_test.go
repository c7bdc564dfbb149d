package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadLayers(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "clubhub.yaml")
	yml := `
http_port: "9000"
store_backend: memory
session_backend: memory
attendance_points: 7
session_ttl: 2h
log:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o600))

	t.Setenv("HTTP_PORT", "9100")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("RATE_LIMIT_PER_MIN", "not-a-number")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "9100", cfg.HTTPPort, "env wins over file")
	assert.Equal(t, "memory", cfg.StoreBackend)
	assert.Equal(t, 7, cfg.AttendancePoints)
	assert.Equal(t, 2*time.Hour, cfg.SessionTTL)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	assert.Equal(t, 30, cfg.RateLimitPerMin, "bad int falls back")
	assert.Equal(t, ":9100", cfg.Addr())
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*App)
		wantErr bool
	}{
		{"defaults", func(*App) {}, false},
		{"unknown store", func(c *App) { c.StoreBackend = "mongo" }, true},
		{"unknown sessions", func(c *App) { c.SessionBackend = "file" }, true},
		{"default key in prod", func(c *App) { c.Env = "prod" }, true},
		{"custom key in prod", func(c *App) { c.Env = "prod"; c.JWTSigningKey = "s3cr3t" }, false},
		{"negative attendance points", func(c *App) { c.AttendancePoints = -1 }, true},
		{"zero ttl", func(c *App) { c.SessionTTL = 0 }, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := Defaults()
			tc.mutate(&c)
			err := c.Validate()
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCloudinaryEnabled(t *testing.T) {
	assert.False(t, Cloudinary{CloudName: "demo"}.Enabled())
	assert.True(t, Cloudinary{CloudName: "demo", APIKey: "k", APISecret: "s"}.Enabled())
}
