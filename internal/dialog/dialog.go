// Package dialog reacts to chat events. Each exported method on Handler is
// the entry point for one event type; the per-user state they share lives in
// the session store.
package dialog

import (
	"context"

	"github.com/italolelis/seedbox_bot/internal/access"
	"github.com/italolelis/seedbox_bot/internal/logctx"
	"github.com/italolelis/seedbox_bot/internal/present"
	"github.com/italolelis/seedbox_bot/internal/session"
	"github.com/italolelis/seedbox_bot/internal/storage"
	"github.com/italolelis/seedbox_bot/internal/telemetry"
	"github.com/italolelis/seedbox_bot/internal/tempstore"
	"github.com/italolelis/seedbox_bot/internal/transfer"
)

const defaultHistoryLimit = 10

// Button is one inline keyboard button.
type Button struct {
	Text string
	Data string
}

// Keyboard is a list of button rows.
type Keyboard [][]Button

// Messenger delivers and edits chat messages.
type Messenger interface {
	Send(ctx context.Context, chatID int64, text string, kb Keyboard) error
	Edit(ctx context.Context, chatID int64, messageID int, text string, kb Keyboard) error
}

// FileFetcher downloads the bytes of an uploaded document.
type FileFetcher interface {
	FetchFile(ctx context.Context, fileRef string) ([]byte, error)
}

// Event identifies who triggered a handler and where to answer. Callback
// events answer by editing the message that carried the keyboard.
type Event struct {
	UserID    int64
	ChatID    int64
	MessageID int
	Callback  bool
}

// Upload describes a document attached to a message.
type Upload struct {
	FileRef  string
	FileName string
	Size     int64
}

type Options struct {
	Categories   []string
	PageSize     int
	Welcome      string
	Help         string
	HistoryLimit int
}

type Handler struct {
	gate      *access.Gate
	sessions  *session.Store
	blobs     *tempstore.Store
	client    transfer.Client
	messenger Messenger
	files     FileFetcher
	renderer  *present.Renderer
	history   storage.HistoryRepository
	telemetry *telemetry.Telemetry
	opts      Options
}

type Deps struct {
	Gate      *access.Gate
	Sessions  *session.Store
	Blobs     *tempstore.Store
	Client    transfer.Client
	Messenger Messenger
	Files     FileFetcher
	Renderer  *present.Renderer
	History   storage.HistoryRepository // optional
	Telemetry *telemetry.Telemetry      // optional
}

func NewHandler(deps Deps, opts Options) *Handler {
	if opts.PageSize < 1 {
		opts.PageSize = present.DefaultPageSize
	}

	if opts.HistoryLimit < 1 {
		opts.HistoryLimit = defaultHistoryLimit
	}

	return &Handler{
		gate:      deps.Gate,
		sessions:  deps.Sessions,
		blobs:     deps.Blobs,
		client:    deps.Client,
		messenger: deps.Messenger,
		files:     deps.Files,
		renderer:  deps.Renderer,
		history:   deps.History,
		telemetry: deps.Telemetry,
		opts:      opts,
	}
}

// Authorized reports whether ev comes from an allow-listed user. Denials are
// expected traffic and only logged at debug.
func (h *Handler) Authorized(ctx context.Context, ev Event) bool {
	if h.gate.IsAuthorized(ev.UserID) {
		return true
	}

	logctx.LoggerFromContext(ctx).DebugContext(ctx, "ignoring event from unauthorized user", "user_id", ev.UserID)

	return false
}

// reply edits the keyboard message for callbacks and sends a new message
// otherwise.
func (h *Handler) reply(ctx context.Context, ev Event, text string, kb Keyboard) error {
	if ev.Callback && ev.MessageID != 0 {
		return h.messenger.Edit(ctx, ev.ChatID, ev.MessageID, text, kb)
	}

	return h.messenger.Send(ctx, ev.ChatID, text, kb)
}

// fail clears the dialog and shows err to the user.
func (h *Handler) fail(ctx context.Context, ev Event, flow string, err error) error {
	h.sessions.Clear(ctx, ev.UserID)
	h.telemetry.RecordDialog(ctx, flow, "error")

	logctx.LoggerFromContext(ctx).WarnContext(ctx, "dialog failed", "flow", flow, "err", err)

	return h.reply(ctx, ev, formatError(err), nil)
}

// record stores a history entry; failures never reach the user.
func (h *Handler) record(ctx context.Context, entry storage.Entry) {
	if h.history == nil {
		return
	}

	if err := h.history.Record(ctx, entry); err != nil {
		logctx.LoggerFromContext(ctx).WarnContext(ctx, "failed to record history", "err", err)
	}
}

func cancelRow() []Button {
	return []Button{{Text: "❌ Cancel", Data: CancelData}}
}
