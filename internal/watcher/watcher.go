// Package watcher polls the download engine and announces finished torrents.
package watcher

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/italolelis/seedbox_bot/internal/access"
	"github.com/italolelis/seedbox_bot/internal/logctx"
	"github.com/italolelis/seedbox_bot/internal/notifier"
	"github.com/italolelis/seedbox_bot/internal/present"
	"github.com/italolelis/seedbox_bot/internal/telemetry"
	"github.com/italolelis/seedbox_bot/internal/transfer"
)

// DefaultInterval is used when Config.Interval is not positive.
const DefaultInterval = 60 * time.Second

// Sender delivers a text message to one chat recipient.
type Sender interface {
	SendText(ctx context.Context, recipient int64, text string) error
}

// Config controls the polling cadence and startup behavior.
type Config struct {
	Interval time.Duration
	// NotifyExistingOnStart announces torrents that were already complete
	// when the process started. When false Run reads the engine once before
	// its first sleep and only fills the cache from that read.
	NotifyExistingOnStart bool
}

// Watcher announces every torrent that reaches 100% at most once per process
// run, to all allow-listed users and the extra sinks.
type Watcher struct {
	lister    transfer.Lister
	gate      *access.Gate
	sender    Sender
	renderer  *present.Renderer
	sinks     []notifier.Notifier
	telemetry *telemetry.Telemetry
	cfg       Config

	cache *CompletionCache

	// mu keeps polls from overlapping.
	mu sync.Mutex
}

// New creates a watcher. A nil telemetry is allowed.
func New(
	lister transfer.Lister,
	gate *access.Gate,
	sender Sender,
	renderer *present.Renderer,
	tel *telemetry.Telemetry,
	cfg Config,
	sinks ...notifier.Notifier,
) *Watcher {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}

	return &Watcher{
		lister:    lister,
		gate:      gate,
		sender:    sender,
		renderer:  renderer,
		sinks:     sinks,
		telemetry: tel,
		cfg:       cfg,
		cache:     NewCompletionCache(),
	}
}

// Cache exposes the set of torrents already announced.
func (w *Watcher) Cache() *CompletionCache {
	return w.cache
}

// Run records the startup state (unless existing completions should be
// announced), then sleeps one interval, polls, and repeats until ctx is
// cancelled. Fetch failures and panics inside a poll are logged and the loop
// keeps its pace.
func (w *Watcher) Run(ctx context.Context) error {
	logger := logctx.LoggerFromContext(ctx)

	logger.InfoContext(ctx, "completion watcher started", "interval", w.cfg.Interval, "notify_existing", w.cfg.NotifyExistingOnStart)

	if !w.cfg.NotifyExistingOnStart {
		// Without a baseline nothing is treated as old, so the first
		// successful poll announces whatever is complete by then.
		if err := w.safely(ctx, "prime", w.Prime); err != nil {
			logger.WarnContext(ctx, "failed to read startup state, completions found by the next successful poll will be announced", "err", err)
		}
	}

	ticker := time.NewTicker(w.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.InfoContext(ctx, "completion watcher shutdown", "reason", "context_cancelled")

			return nil
		case <-ticker.C:
			if err := w.safely(ctx, "poll", w.Poll); err != nil {
				logger.ErrorContext(ctx, "failed to check for completed torrents", "err", err)
			}
		}
	}
}

func (w *Watcher) safely(ctx context.Context, operation string, fn func(context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			logctx.LoggerFromContext(ctx).ErrorContext(ctx, "completion watcher panic",
				"operation", operation,
				"panic", r,
				"stack", string(debug.Stack()))

			w.telemetry.RecordSystemError("watcher", "panic")

			err = fmt.Errorf("%s panicked: %v", operation, r)
		}
	}()

	return fn(ctx)
}

// Prime adds every torrent that is complete right now to the cache without
// announcing it.
func (w *Watcher) Prime(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	transfers, err := w.lister.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list torrents: %w", err)
	}

	for _, t := range transfers {
		if t.IsComplete() {
			w.cache.MarkIfNew(t.ID)
		}
	}

	logctx.LoggerFromContext(ctx).InfoContext(ctx, "primed completion cache", "already_complete", w.cache.Len())

	return nil
}

// Poll runs a single iteration and returns how the fetch went. Every complete
// torrent missing from the cache is announced. Delivery failures never
// surface here.
func (w *Watcher) Poll(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	logger := logctx.LoggerFromContext(ctx)

	transfers, err := w.lister.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list torrents: %w", err)
	}

	for _, t := range transfers {
		if !t.IsComplete() || !w.cache.MarkIfNew(t.ID) {
			continue
		}

		w.telemetry.RecordCompletion(ctx)

		logger.InfoContext(ctx, "torrent completed", "torrent_id", t.ID, "name", t.Name)

		w.deliver(ctx, w.renderer.CompletionText(t))
	}

	return nil
}

func (w *Watcher) deliver(ctx context.Context, text string) {
	logger := logctx.LoggerFromContext(ctx)

	for _, recipient := range w.gate.Recipients() {
		if !w.gate.IsAuthorized(recipient) {
			continue
		}

		if err := w.sender.SendText(ctx, recipient, text); err != nil {
			logger.WarnContext(ctx, "failed to deliver completion notice", "recipient", recipient, "err", err)
			w.telemetry.RecordNotification(ctx, "chat", "failed")

			continue
		}

		w.telemetry.RecordNotification(ctx, "chat", "sent")
	}

	for _, sink := range w.sinks {
		if err := sink.Notify(ctx, text); err != nil {
			logger.WarnContext(ctx, "failed to deliver completion notice", "channel", sink.Name(), "err", err)
			w.telemetry.RecordNotification(ctx, sink.Name(), "failed")

			continue
		}

		w.telemetry.RecordNotification(ctx, sink.Name(), "sent")
	}
}
