package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("BOT_TOKEN", "123:abc")
	t.Setenv("ALLOWED_USER_IDS", "11,22")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, []int64{11, 22}, cfg.AllowedUserIDs)
	assert.Equal(t, ClientTransmission, cfg.DownloadClient)
	assert.Equal(t, "transmission", cfg.Transmission.Host)
	assert.Equal(t, 9091, cfg.Transmission.Port)
	assert.Equal(t, "/transmission/rpc", cfg.Transmission.RPCPath)
	assert.Equal(t, 60*time.Second, cfg.CheckInterval)
	assert.False(t, cfg.NotifyExistingOnStart)
	assert.Equal(t, 10, cfg.MaxTorrentsDisplay)
	assert.Equal(t, 9, cfg.PageSize)
	assert.Equal(t, []string{"Movies", "Series", "Music", "Books", "Software", "Other"}, cfg.CategoryNames())
	assert.Equal(t, time.Hour, cfg.TempMaxAge)
	assert.Equal(t, 30*time.Minute, cfg.SessionIdleTimeout)
	assert.NotEmpty(t, cfg.TempDir)
	assert.Equal(t, "0.0.0.0:8080", cfg.Web.BindAddress)
	assert.True(t, cfg.TelemetryEnabled)
}

func TestLoadConfig_RequiresToken(t *testing.T) {
	t.Setenv("BOT_TOKEN", "")

	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("BOT_TOKEN", "123:abc")
	t.Setenv("TRANSMISSION_HOST", "10.0.0.5")
	t.Setenv("TRANSMISSION_USER", "admin")
	t.Setenv("CHECK_INTERVAL", "15s")
	t.Setenv("CATEGORIES", "Anime, ,Docs")
	t.Setenv("WEB_BIND_ADDRESS", "127.0.0.1:9000")
	t.Setenv("DOWNLOAD_CLIENT", " Transmission ")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "10.0.0.5", cfg.Transmission.Host)
	assert.Equal(t, "admin", cfg.Transmission.User)
	assert.Equal(t, 15*time.Second, cfg.CheckInterval)
	assert.Equal(t, []string{"Anime", "Docs"}, cfg.CategoryNames())
	assert.Equal(t, "127.0.0.1:9000", cfg.Web.BindAddress)
	assert.Equal(t, ClientTransmission, cfg.DownloadClient)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			BotToken:        "123:abc",
			DownloadClient:  ClientTransmission,
			CheckInterval:   time.Minute,
			CleanupInterval: time.Minute,
			PageSize:        9,
			Categories:      []string{"Movies"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "token", mutate: func(c *Config) { c.BotToken = "" }, wantErr: "BOT_TOKEN"},
		{name: "page size", mutate: func(c *Config) { c.PageSize = 0 }, wantErr: "PAGE_SIZE"},
		{name: "interval", mutate: func(c *Config) { c.CheckInterval = 0 }, wantErr: "CHECK_INTERVAL"},
		{name: "cleanup interval", mutate: func(c *Config) { c.CleanupInterval = 0 }, wantErr: "CLEANUP_INTERVAL"},
		{name: "categories", mutate: func(c *Config) { c.Categories = []string{" "} }, wantErr: "CATEGORIES"},
		{name: "unknown client", mutate: func(c *Config) { c.DownloadClient = "deluge" }, wantErr: "unsupported DOWNLOAD_CLIENT"},
		{name: "putio without token", mutate: func(c *Config) { c.DownloadClient = ClientPutio }, wantErr: "PUTIO_TOKEN"},
		{name: "putio with token", mutate: func(c *Config) { c.DownloadClient = ClientPutio; c.PutioToken = "t" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestGlyphsAndMessages(t *testing.T) {
	cfg := &Config{}
	cfg.Emoji.Seeding = "🌱"
	cfg.HelpMessage = `line one\nline two`

	g := cfg.Glyphs()
	assert.Equal(t, "🌱", g.Seeding)
	assert.Equal(t, "⬇️", g.Downloading)

	assert.Equal(t, "line one\nline two", cfg.Help())
	assert.Contains(t, cfg.Welcome(), "Welcome")
}

func TestSlogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, (&Config{LogLevel: "debug"}).SlogLevel())
	assert.Equal(t, slog.LevelWarn, (&Config{LogLevel: "WARN"}).SlogLevel())
	assert.Equal(t, slog.LevelInfo, (&Config{LogLevel: "nonsense"}).SlogLevel())
}
