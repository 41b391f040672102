package dialog

import (
	"context"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/italolelis/seedbox_bot/internal/present"
	"github.com/italolelis/seedbox_bot/internal/session"
	"github.com/italolelis/seedbox_bot/internal/storage"
	"github.com/italolelis/seedbox_bot/internal/transfer"
	"golang.org/x/sync/errgroup"
)

// Start is the only handler that answers strangers, so they learn their id.
func (h *Handler) Start(ctx context.Context, ev Event) error {
	if !h.gate.IsAuthorized(ev.UserID) {
		return h.messenger.Send(ctx, ev.ChatID,
			fmt.Sprintf("⛔ Access denied.\n\nYour user ID is %d. Ask the administrator to add it to the allow-list.", ev.UserID), nil)
	}

	return h.messenger.Send(ctx, ev.ChatID, h.opts.Welcome, nil)
}

func (h *Handler) Help(ctx context.Context, ev Event) error {
	if !h.Authorized(ctx, ev) {
		return nil
	}

	return h.messenger.Send(ctx, ev.ChatID, h.opts.Help, nil)
}

func (h *Handler) List(ctx context.Context, ev Event) error {
	if !h.Authorized(ctx, ev) {
		return nil
	}

	list, err := h.client.List(ctx)
	if err != nil {
		return h.messenger.Send(ctx, ev.ChatID, formatError(err), nil)
	}

	return h.messenger.Send(ctx, ev.ChatID, h.renderer.ListText(present.Sort(list)), nil)
}

// Status fetches the torrent list and session settings concurrently.
func (h *Handler) Status(ctx context.Context, ev Event) error {
	if !h.Authorized(ctx, ev) {
		return nil
	}

	var (
		list []*transfer.Transfer
		dir  string
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		list, err = h.client.List(gctx)

		return err
	})

	g.Go(func() error {
		var err error
		dir, err = h.client.DownloadDir(gctx)

		return err
	})

	if err := g.Wait(); err != nil {
		return h.messenger.Send(ctx, ev.ChatID, formatError(err), nil)
	}

	return h.messenger.Send(ctx, ev.ChatID, h.renderer.StatusText(list, dir), nil)
}

// Cancel abandons whatever the user was doing.
func (h *Handler) Cancel(ctx context.Context, ev Event) error {
	if !h.Authorized(ctx, ev) {
		return nil
	}

	state := h.sessions.Get(ev.UserID).State
	h.sessions.Clear(ctx, ev.UserID)

	switch state {
	case session.AwaitingCategory:
		h.telemetry.RecordDialog(ctx, flowAdd, "cancelled")
	case session.SelectingDeleteTarget, session.ConfirmingDeletion:
		h.telemetry.RecordDialog(ctx, flowDelete, "cancelled")
	}

	return h.reply(ctx, ev, "❌ Cancelled.", nil)
}

func (h *Handler) History(ctx context.Context, ev Event) error {
	if !h.Authorized(ctx, ev) {
		return nil
	}

	if h.history == nil {
		return h.messenger.Send(ctx, ev.ChatID, "📜 History is not enabled.", nil)
	}

	entries, err := h.history.Recent(ctx, h.opts.HistoryLimit)
	if err != nil {
		return h.messenger.Send(ctx, ev.ChatID, formatError(err), nil)
	}

	return h.messenger.Send(ctx, ev.ChatID, historyText(entries), nil)
}

// Text handles a plain message: magnet links start a submission, anything
// else gets a hint.
func (h *Handler) Text(ctx context.Context, ev Event, text string) error {
	if !h.Authorized(ctx, ev) {
		return nil
	}

	text = strings.TrimSpace(text)
	if strings.HasPrefix(strings.ToLower(text), "magnet:?") {
		return h.SubmitMagnet(ctx, ev, text)
	}

	return h.messenger.Send(ctx, ev.ChatID, "🤔 Send me a magnet link or a .torrent file. See /help for commands.", nil)
}

func historyText(entries []storage.Entry) string {
	if len(entries) == 0 {
		return "📜 No history yet."
	}

	var b strings.Builder

	b.WriteString("📜 Recent activity:\n\n")

	for _, e := range entries {
		icon := "✅"

		switch e.Outcome {
		case storage.OutcomeFailed:
			icon = "❌"
		case storage.OutcomeRemoved:
			icon = "🗑"
		}

		name := e.Name
		if name == "" {
			name = fmt.Sprintf("#%d", e.TorrentID)
		}

		fmt.Fprintf(&b, "%s %s", icon, name)

		if e.Category != "" {
			fmt.Fprintf(&b, " → %s", e.Category)
		}

		fmt.Fprintf(&b, " (%s)\n", humanize.Time(e.CreatedAt))
	}

	return strings.TrimRight(b.String(), "\n")
}
