package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/italolelis/seedbox_bot/internal/access"
	"github.com/italolelis/seedbox_bot/internal/bot"
	"github.com/italolelis/seedbox_bot/internal/config"
	"github.com/italolelis/seedbox_bot/internal/dc"
	"github.com/italolelis/seedbox_bot/internal/dialog"
	"github.com/italolelis/seedbox_bot/internal/http/rest"
	"github.com/italolelis/seedbox_bot/internal/logctx"
	"github.com/italolelis/seedbox_bot/internal/notifier"
	"github.com/italolelis/seedbox_bot/internal/present"
	"github.com/italolelis/seedbox_bot/internal/session"
	"github.com/italolelis/seedbox_bot/internal/storage/sqlite"
	"github.com/italolelis/seedbox_bot/internal/telemetry"
	"github.com/italolelis/seedbox_bot/internal/tempstore"
	"github.com/italolelis/seedbox_bot/internal/transfer"
	"github.com/italolelis/seedbox_bot/internal/watcher"
	"golang.org/x/sync/errgroup"
)

var version = "dev"

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("config error", "err", err)
		os.Exit(1)
	}

	logger := slog.New(logctx.NewTraceHandler(
		slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}),
	))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("seedbox bot starting...", "log_level", cfg.LogLevel, "version", version)

	if err := run(logctx.WithLogger(ctx, logger), cfg); err != nil {
		slog.Error("fatal error", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	logger := logctx.LoggerFromContext(ctx)

	// =========================================================================
	// Start Telemetry
	tel, err := telemetry.New(ctx, telemetry.Config{
		Enabled:        cfg.TelemetryEnabled,
		ServiceName:    cfg.TelemetryServiceName,
		ServiceVersion: version,
		OTLPEndpoint:   cfg.OTLPEndpoint,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}

	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := tel.Shutdown(ctx); err != nil {
			logger.Error("failed to shutdown telemetry", "err", err)
		}
	}()

	// =========================================================================
	// Start Database
	database, err := sqlite.InitDB(cfg.DBPath)
	if err != nil {
		logger.Error("DB error", "err", err)

		return err
	}
	defer database.Close()

	history := sqlite.NewInstrumentedHistoryRepository(database, tel)

	// =========================================================================
	// Start Download Client
	engine, err := dc.NewClient(ctx, cfg, tel)
	if err != nil {
		return fmt.Errorf("failed to build download client: %w", err)
	}

	// =========================================================================
	// Start Dialog State
	blobs, err := tempstore.New(cfg.TempDir, tel)
	if err != nil {
		return fmt.Errorf("failed to prepare temp dir: %w", err)
	}

	sessions := session.NewStore(blobs)
	gate := access.NewGate(cfg.AllowedUserIDs)
	renderer := present.NewRenderer(cfg.Glyphs(), cfg.MaxTorrentsDisplay)

	if len(gate.Recipients()) == 0 {
		logger.Warn("no allowed user ids configured, the bot will only answer /start")
	}

	// =========================================================================
	// Start Telegram
	api, err := bot.NewAPI(cfg.BotToken, "")
	if err != nil {
		return err
	}

	messenger := bot.NewMessenger(api)

	handler := dialog.NewHandler(dialog.Deps{
		Gate:      gate,
		Sessions:  sessions,
		Blobs:     blobs,
		Client:    engine,
		Messenger: messenger,
		Files:     messenger,
		Renderer:  renderer,
		History:   history,
		Telemetry: tel,
	}, dialog.Options{
		Categories: cfg.CategoryNames(),
		PageSize:   cfg.PageSize,
		Welcome:    cfg.Welcome(),
		Help:       cfg.Help(),
	})

	telegram := bot.New(api, messenger, handler, tel)

	// =========================================================================
	// Start Completion Watcher
	w := watcher.New(engine, gate, messenger, renderer, tel, watcher.Config{
		Interval:              cfg.CheckInterval,
		NotifyExistingOnStart: cfg.NotifyExistingOnStart,
	}, buildSinks(cfg)...)

	// =========================================================================
	// Start API Service
	server := setupServer(ctx, engine, tel, cfg)

	logger.Info("waiting for updates...",
		"download_client", cfg.DownloadClient,
		"categories", cfg.CategoryNames(),
		"check_interval", cfg.CheckInterval.String(),
		"allowed_users", len(gate.Recipients()),
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return telegram.Run(gctx)
	})

	g.Go(func() error {
		return w.Run(gctx)
	})

	g.Go(func() error {
		runCleanup(gctx, sessions, blobs, cfg)

		return nil
	})

	g.Go(func() error {
		logger.Info("Initializing API support", "host", cfg.Web.BindAddress)

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

		return nil
	})

	g.Go(func() error {
		<-gctx.Done()

		logger.Info("start shutdown")

		// Give outstanding requests a deadline for completion.
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Web.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			logger.Error("failed to gracefully shutdown the server", "err", err)

			if err = server.Close(); err != nil {
				return fmt.Errorf("could not stop server gracefully: %w", err)
			}
		}

		return nil
	})

	return g.Wait()
}

func buildSinks(cfg *config.Config) []notifier.Notifier {
	var sinks []notifier.Notifier

	if cfg.DiscordWebhookURL != "" {
		sinks = append(sinks, notifier.NewDiscordNotifier(cfg.DiscordWebhookURL))
	}

	return sinks
}

// setupServer prepares the ops http server.
func setupServer(ctx context.Context, engine transfer.Lister, tel *telemetry.Telemetry, cfg *config.Config) *http.Server {
	return &http.Server{
		Addr:         cfg.Web.BindAddress,
		ReadTimeout:  cfg.Web.ReadTimeout,
		WriteTimeout: cfg.Web.WriteTimeout,
		IdleTimeout:  cfg.Web.IdleTimeout,
		Handler:      rest.NewOpsHandler(engine, tel).Routes(),
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}
}

// runCleanup expires abandoned dialogs and sweeps descriptor files left
// behind by a crash until ctx is done.
func runCleanup(ctx context.Context, sessions *session.Store, blobs *tempstore.Store, cfg *config.Config) {
	logger := logctx.LoggerFromContext(ctx)

	if n, err := blobs.Sweep(ctx, cfg.TempMaxAge); err != nil {
		logger.Error("failed to sweep temp dir", "err", err)
	} else if n > 0 {
		logger.Info("removed stale temp files", "count", n)
	}

	ticker := time.NewTicker(cfg.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("cleanup goroutine shutting down.")

			return
		case <-ticker.C:
			if n := sessions.ExpireIdle(ctx, cfg.SessionIdleTimeout); n > 0 {
				logger.Info("expired idle sessions", "count", n)
			}

			n, err := blobs.Sweep(ctx, cfg.TempMaxAge)
			if err != nil {
				logger.Error("failed to sweep temp dir", "err", err)

				continue
			}

			if n > 0 {
				logger.Info("removed stale temp files", "count", n)
			}
		}
	}
}
