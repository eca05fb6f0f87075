package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	assert.Empty(t, ValidateConfig(cfg))
	assert.Equal(t, 3*time.Second, cfg.Sync.Interval)
	assert.Equal(t, 10, cfg.Sync.HistoryLimit)
	assert.Equal(t, "http://127.0.0.1:5001/api", cfg.Engine.URL)
}

func TestParseConfigMergesDefaults(t *testing.T) {
	data := []byte(`
engine:
  url: http://engine.internal:5001/api
sync:
  interval: 1500ms
compare:
  maxConcurrency: 2
`)
	cfg, err := ParseConfig(data)
	require.NoError(t, err)

	assert.Equal(t, "http://engine.internal:5001/api", cfg.Engine.URL)
	assert.Equal(t, 5*time.Second, cfg.Engine.Timeout, "unset field keeps default")
	assert.Equal(t, 1500*time.Millisecond, cfg.Sync.Interval)
	assert.Equal(t, 2, cfg.Compare.MaxConcurrency)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestParseConfigEmptyDocument(t *testing.T) {
	cfg, err := ParseConfig([]byte("# nothing here\n"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestParseConfigRejectsUnknownKeys(t *testing.T) {
	_, err := ParseConfig([]byte("sync:\n  intervall: 2s\n"))
	require.ErrorIs(t, err, ErrInvalidYAML)
}

func TestParseConfigSubstitutesEnv(t *testing.T) {
	t.Setenv("TEST_ENGINE_HOST", "db.example")

	cfg, err := ParseConfig([]byte(`
engine:
  url: http://${TEST_ENGINE_HOST}:5001/api
logging:
  level: ${TEST_UNSET_LEVEL:-debug}
`))
	require.NoError(t, err)
	assert.Equal(t, "http://db.example:5001/api", cfg.Engine.URL)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, ErrFileNotFound)
}

func TestMarshalYAMLRoundTrip(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Sync.Interval = 7 * time.Second

	data, err := MarshalYAML(cfg)
	require.NoError(t, err)
	assert.Contains(t, string(data), "interval: 7s")

	parsed, err := ParseConfig(data)
	require.NoError(t, err)
	assert.Equal(t, cfg.Sync, parsed.Sync)
	assert.Equal(t, cfg.Engine, parsed.Engine)
}

func TestValidateConfig(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"empty engine url", func(c *Config) { c.Engine.URL = "" }, "engine.url"},
		{"bad engine scheme", func(c *Config) { c.Engine.URL = "ftp://x/api" }, "engine.url"},
		{"zero interval", func(c *Config) { c.Sync.Interval = 0 }, "sync.interval"},
		{"zero history", func(c *Config) { c.Sync.HistoryLimit = 0 }, "sync.historyLimit"},
		{"zero concurrency", func(c *Config) { c.Compare.MaxConcurrency = 0 }, "compare.maxConcurrency"},
		{"bad address", func(c *Config) { c.Dashboard.Address = "nohostport" }, "dashboard.address"},
		{"username without hash", func(c *Config) { c.Dashboard.Username = "admin" }, "dashboard.passwordHash"},
		{"plaintext password", func(c *Config) {
			c.Dashboard.Username = "admin"
			c.Dashboard.PasswordHash = "secret"
		}, "dashboard.passwordHash"},
		{"zero ttl", func(c *Config) { c.Notify.TTL = 0 }, "notify.ttl"},
		{"relative metrics path", func(c *Config) { c.Metrics.Path = "metrics" }, "metrics.path"},
		{"bad level", func(c *Config) { c.Logging.Level = "verbose" }, "logging.level"},
		{"relative log file", func(c *Config) { c.Logging.Output = "out.log" }, "logging.output"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)

			errs := ValidateConfig(cfg)
			require.Len(t, errs, 1)
			var verr ValidationError
			require.ErrorAs(t, errs[0], &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}

	t.Run("valid auth", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Dashboard.Username = "admin"
		cfg.Dashboard.PasswordHash = string(hash)
		assert.Empty(t, ValidateConfig(cfg))
		assert.True(t, cfg.Dashboard.AuthEnabled())
	})
}

func TestWatcherReportsChanges(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("sync:\n  interval: 3s\n"), 0o644))

	changes := make(chan *Config, 1)
	w, err := NewWatcher(WatcherConfig{
		FilePath:     path,
		PollInterval: 10 * time.Millisecond,
		Debounce:     10 * time.Millisecond,
		OnChange:     func(_, next *Config) { changes <- next },
	})
	require.NoError(t, err)
	assert.Equal(t, 3*time.Second, w.Current().Sync.Interval)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	// Different size guarantees detection even on coarse mtime filesystems.
	require.NoError(t, os.WriteFile(path, []byte("sync:\n  interval: 10s\n"), 0o644))

	select {
	case next := <-changes:
		assert.Equal(t, 10*time.Second, next.Sync.Interval)
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not report the change")
	}
}

func TestNewWatcherRequiresCallback(t *testing.T) {
	_, err := NewWatcher(WatcherConfig{FilePath: "x.yaml"})
	assert.ErrorIs(t, err, ErrMissingOnChange)

	_, err = NewWatcher(WatcherConfig{OnChange: func(_, _ *Config) {}})
	assert.ErrorIs(t, err, ErrMissingConfigFile)
}
