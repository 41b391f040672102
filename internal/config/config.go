package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/italolelis/seedbox_bot/internal/present"
	"github.com/kelseyhightower/envconfig"
)

const (
	ClientTransmission = "transmission"
	ClientPutio        = "putio"
)

const defaultWelcome = "👋 Welcome! Send me a magnet link or a .torrent file and pick a category.\n\n" +
	"Use /help to see every command."

const defaultHelp = "📖 Commands:\n\n" +
	"/list - show torrents\n" +
	"/status - engine summary\n" +
	"/delete - remove a torrent\n" +
	"/history - recent submissions\n" +
	"/cancel - abort the current action\n" +
	"/help - this message\n\n" +
	"Send a magnet link or upload a .torrent file to add a download."

// Config struct for environment variables.
type Config struct {
	BotToken       string  `envconfig:"BOT_TOKEN" required:"true"`
	AllowedUserIDs []int64 `envconfig:"ALLOWED_USER_IDS"`
	DownloadClient string  `envconfig:"DOWNLOAD_CLIENT" default:"transmission"`

	Transmission struct {
		Host    string `split_words:"true" default:"transmission"`
		Port    int    `split_words:"true" default:"9091"`
		User    string `split_words:"true"`
		Pass    string `split_words:"true"`
		RPCPath string `split_words:"true" default:"/transmission/rpc"`
		TLS     bool   `split_words:"true" default:"false"`
	}

	PutioToken   string `envconfig:"PUTIO_TOKEN"`
	PutioRootDir string `envconfig:"PUTIO_ROOT_DIR" default:"/"`

	CheckInterval         time.Duration `envconfig:"CHECK_INTERVAL" default:"60s"`
	NotifyExistingOnStart bool          `envconfig:"NOTIFY_EXISTING_ON_START" default:"false"`
	MaxTorrentsDisplay    int           `envconfig:"MAX_TORRENTS_DISPLAY" default:"10"`
	Categories            []string      `envconfig:"CATEGORIES" default:"Movies,Series,Music,Books,Software,Other"`
	PageSize              int           `envconfig:"PAGE_SIZE" default:"9"`

	TempDir            string        `envconfig:"TEMP_DIR"`
	TempMaxAge         time.Duration `envconfig:"TEMP_MAX_AGE" default:"1h"`
	SessionIdleTimeout time.Duration `envconfig:"SESSION_IDLE_TIMEOUT" default:"30m"`
	CleanupInterval    time.Duration `envconfig:"CLEANUP_INTERVAL" default:"5m"`

	DBPath            string `envconfig:"DB_PATH" default:"history.db"`
	DiscordWebhookURL string `envconfig:"DISCORD_WEBHOOK_URL"`
	LogLevel          string `envconfig:"LOG_LEVEL" default:"INFO"`

	Emoji struct {
		Downloading string `split_words:"true"`
		Seeding     string `split_words:"true"`
		Paused      string `split_words:"true"`
		Error       string `split_words:"true"`
		Completed   string `split_words:"true"`
	}

	WelcomeMessage string `envconfig:"WELCOME_MESSAGE"`
	HelpMessage    string `envconfig:"HELP_MESSAGE"`

	TelemetryEnabled     bool   `envconfig:"TELEMETRY_ENABLED" default:"true"`
	TelemetryServiceName string `envconfig:"TELEMETRY_SERVICE_NAME" default:"seedbox_bot"`
	OTLPEndpoint         string `envconfig:"OTLP_ENDPOINT"`

	Web struct {
		BindAddress     string        `split_words:"true" default:"0.0.0.0:8080"`
		ReadTimeout     time.Duration `split_words:"true" default:"30s"`
		WriteTimeout    time.Duration `split_words:"true" default:"30s"`
		IdleTimeout     time.Duration `split_words:"true" default:"5s"`
		ShutdownTimeout time.Duration `split_words:"true" default:"30s"`
	}
}

// LoadConfig reads environment variables and populates the Config struct.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("error processing env: %w", err)
	}

	cfg.DownloadClient = strings.ToLower(strings.TrimSpace(cfg.DownloadClient))

	if cfg.TempDir == "" {
		cfg.TempDir = filepath.Join(os.TempDir(), "seedbox_bot")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate rejects values the rest of the service cannot run with.
func (c *Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.BotToken) == "" {
		errs = append(errs, errors.New("BOT_TOKEN is required"))
	}

	if c.PageSize < 1 {
		errs = append(errs, fmt.Errorf("PAGE_SIZE must be at least 1, got %d", c.PageSize))
	}

	if c.CheckInterval <= 0 {
		errs = append(errs, fmt.Errorf("CHECK_INTERVAL must be positive, got %s", c.CheckInterval))
	}

	if c.CleanupInterval <= 0 {
		errs = append(errs, fmt.Errorf("CLEANUP_INTERVAL must be positive, got %s", c.CleanupInterval))
	}

	if len(c.CategoryNames()) == 0 {
		errs = append(errs, errors.New("CATEGORIES must name at least one category"))
	}

	switch strings.ToLower(c.DownloadClient) {
	case ClientTransmission:
	case ClientPutio:
		if c.PutioToken == "" {
			errs = append(errs, errors.New("PUTIO_TOKEN is required when DOWNLOAD_CLIENT=putio"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported DOWNLOAD_CLIENT %q", c.DownloadClient))
	}

	return errors.Join(errs...)
}

// CategoryNames returns the configured categories trimmed, without blanks.
func (c *Config) CategoryNames() []string {
	names := make([]string, 0, len(c.Categories))

	for _, name := range c.Categories {
		if name = strings.TrimSpace(name); name != "" {
			names = append(names, name)
		}
	}

	return names
}

// Glyphs applies emoji overrides on top of the defaults.
func (c *Config) Glyphs() present.Glyphs {
	g := present.DefaultGlyphs()

	override := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}

	override(&g.Downloading, c.Emoji.Downloading)
	override(&g.Seeding, c.Emoji.Seeding)
	override(&g.Paused, c.Emoji.Paused)
	override(&g.Error, c.Emoji.Error)
	override(&g.Completed, c.Emoji.Completed)

	return g
}

func (c *Config) Welcome() string {
	return messageOrDefault(c.WelcomeMessage, defaultWelcome)
}

func (c *Config) Help() string {
	return messageOrDefault(c.HelpMessage, defaultHelp)
}

// messageOrDefault expands literal \n sequences, since env files cannot
// carry real newlines.
func messageOrDefault(v, def string) string {
	if v == "" {
		return def
	}

	return strings.ReplaceAll(v, `\n`, "\n")
}

func (c *Config) SlogLevel() slog.Level {
	switch strings.ToUpper(c.LogLevel) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
