package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempJSON(t *testing.T, dir, name string, data map[string]any) string {
	t.Helper()
	if dir == "" {
		dir = t.TempDir()
	}
	if name == "" {
		name = "cfg.json"
	}
	path := filepath.Join(dir, name)
	b, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func Test_parseJson_SourcesAndPrecedence(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	path := writeTempJSON(t, "", "flag.json", map[string]any{
		"remote_dsn":            "postgres://db.example/storefront",
		"local_store":           "redis",
		"redis_db":              0,
		"redis_prefix":          "kiosk:",
		"debounce_window":       "250ms",
		"stable_timeout":        int64(5 * time.Second),
		"online_check_interval": "10s",
		"log_format":            "json",
	})

	t.Run("loads from -config", func(t *testing.T) {
		os.Args = []string{"testbin", "-config", path}

		cfg := &Config{RedisDB: 3, LogLevel: "debug"}
		parseJson(cfg)

		assert.Equal(t, "postgres://db.example/storefront", cfg.RemoteDSN)
		assert.Equal(t, LocalStoreRedis, cfg.LocalStore)
		assert.Equal(t, 0, cfg.RedisDB, "explicit zero overrides")
		assert.Equal(t, "kiosk:", cfg.RedisPrefix)
		assert.Equal(t, 250*time.Millisecond, cfg.DebounceWindow)
		assert.Equal(t, 5*time.Second, cfg.StableTimeout)
		assert.Equal(t, 10*time.Second, cfg.OnlineCheckInterval)
		assert.Equal(t, "json", cfg.LogFormat)
		assert.Equal(t, "debug", cfg.LogLevel, "missing keys keep their value")
	})

	t.Run("loads from -c", func(t *testing.T) {
		os.Args = []string{"testbin", "-c", path}

		cfg := &Config{}
		parseJson(cfg)

		assert.Equal(t, LocalStoreRedis, cfg.LocalStore)
	})

	t.Run("no flags leaves config unchanged", func(t *testing.T) {
		os.Args = []string{"testbin"}

		cfg := &Config{LocalStore: "sqlite", OnlineCheckInterval: 42 * time.Second}
		parseJson(cfg)

		assert.Equal(t, "sqlite", cfg.LocalStore)
		assert.Equal(t, 42*time.Second, cfg.OnlineCheckInterval)
	})
}

func Test_parseJson_Errors(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	t.Run("missing file panics", func(t *testing.T) {
		os.Args = []string{"testbin", "-c", filepath.Join(t.TempDir(), "absent.json")}
		assert.Panics(t, func() { parseJson(&Config{}) })
	})

	t.Run("bad duration panics", func(t *testing.T) {
		path := writeTempJSON(t, "", "", map[string]any{"stable_timeout": "soon"})
		os.Args = []string{"testbin", "-c", path}
		assert.Panics(t, func() { parseJson(&Config{}) })
	})
}
