// Package bot connects the dialog handlers to the Telegram Bot API.
package bot

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/italolelis/seedbox_bot/internal/dialog"
	"github.com/italolelis/seedbox_bot/internal/logctx"
	"github.com/italolelis/seedbox_bot/internal/telemetry"
)

const pollTimeoutSeconds = 60

// Handler is the set of dialog entry points the bot routes updates to.
type Handler interface {
	Start(ctx context.Context, ev dialog.Event) error
	Help(ctx context.Context, ev dialog.Event) error
	List(ctx context.Context, ev dialog.Event) error
	Status(ctx context.Context, ev dialog.Event) error
	Cancel(ctx context.Context, ev dialog.Event) error
	History(ctx context.Context, ev dialog.Event) error
	BeginDelete(ctx context.Context, ev dialog.Event) error
	Text(ctx context.Context, ev dialog.Event, text string) error
	SubmitFile(ctx context.Context, ev dialog.Event, up dialog.Upload) error
	ChooseCategory(ctx context.Context, ev dialog.Event, index int) error
	ChangePage(ctx context.Context, ev dialog.Event, page int) error
	SelectTarget(ctx context.Context, ev dialog.Event, id int64) error
	ConfirmDelete(ctx context.Context, ev dialog.Event, id int64, deleteData bool) error
}

type Bot struct {
	api        *tgbotapi.BotAPI
	messenger  *Messenger
	handler    Handler
	dispatcher *Dispatcher
	telemetry  *telemetry.Telemetry
}

func New(api *tgbotapi.BotAPI, messenger *Messenger, handler Handler, tel *telemetry.Telemetry) *Bot {
	return &Bot{
		api:        api,
		messenger:  messenger,
		handler:    handler,
		dispatcher: NewDispatcher(),
		telemetry:  tel,
	}
}

// Run long-polls for updates until ctx is cancelled, then waits for the
// handlers already in flight.
func (b *Bot) Run(ctx context.Context) error {
	logger := logctx.LoggerFromContext(ctx)
	logger.InfoContext(ctx, "starting update loop", "bot", b.api.Self.UserName)

	if err := tgbotapi.SetLogger(apiLogger{logger: logger}); err != nil {
		return fmt.Errorf("failed to set telegram logger: %w", err)
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = pollTimeoutSeconds

	updates := b.api.GetUpdatesChan(u)

	defer b.dispatcher.Wait()

	for {
		select {
		case <-ctx.Done():
			logger.InfoContext(ctx, "stopping update loop")
			b.api.StopReceivingUpdates()

			return nil
		case upd, ok := <-updates:
			if !ok {
				return nil
			}

			b.dispatch(ctx, upd)
		}
	}
}

func (b *Bot) dispatch(ctx context.Context, upd tgbotapi.Update) {
	userID, ok := senderID(upd)
	if !ok {
		return
	}

	b.dispatcher.Submit(ctx, userID, func(ctx context.Context) {
		b.handleUpdate(ctx, upd)
	})
}

func (b *Bot) handleUpdate(ctx context.Context, upd tgbotapi.Update) {
	userID, _ := senderID(upd)

	ctx, logger := logctx.With(ctx,
		"update_id", upd.UpdateID,
		"correlation_id", telemetry.NewCorrelationID(),
		"user_id", userID,
	)

	kind := updateKind(upd)

	err := b.telemetry.InstrumentUpdate(ctx, kind, func(ctx context.Context) error {
		return b.route(ctx, upd)
	})
	if err != nil {
		logger.WarnContext(ctx, "failed to handle update", "kind", kind, "err", err)
	}
}

func (b *Bot) route(ctx context.Context, upd tgbotapi.Update) error {
	switch {
	case upd.CallbackQuery != nil:
		return b.routeCallback(ctx, upd.CallbackQuery)
	case upd.Message != nil && upd.Message.From != nil:
		return b.routeMessage(ctx, upd.Message)
	default:
		return nil
	}
}

func (b *Bot) routeMessage(ctx context.Context, msg *tgbotapi.Message) error {
	ev := dialog.Event{UserID: msg.From.ID, ChatID: msg.Chat.ID}

	if msg.IsCommand() {
		switch msg.Command() {
		case "start":
			return b.handler.Start(ctx, ev)
		case "list":
			return b.handler.List(ctx, ev)
		case "status":
			return b.handler.Status(ctx, ev)
		case "delete":
			return b.handler.BeginDelete(ctx, ev)
		case "cancel":
			return b.handler.Cancel(ctx, ev)
		case "history":
			return b.handler.History(ctx, ev)
		default:
			return b.handler.Help(ctx, ev)
		}
	}

	if doc := msg.Document; doc != nil {
		return b.handler.SubmitFile(ctx, ev, dialog.Upload{
			FileRef:  doc.FileID,
			FileName: doc.FileName,
			Size:     int64(doc.FileSize),
		})
	}

	if msg.Text != "" {
		return b.handler.Text(ctx, ev, msg.Text)
	}

	return nil
}

func (b *Bot) routeCallback(ctx context.Context, cq *tgbotapi.CallbackQuery) error {
	logger := logctx.LoggerFromContext(ctx)

	if err := b.messenger.AnswerCallback(ctx, cq.ID); err != nil {
		logger.DebugContext(ctx, "failed to answer callback", "err", err)
	}

	// Inline-mode callbacks carry no message to edit.
	if cq.Message == nil || cq.From == nil {
		return nil
	}

	ev := dialog.Event{
		UserID:    cq.From.ID,
		ChatID:    cq.Message.Chat.ID,
		MessageID: cq.Message.MessageID,
		Callback:  true,
	}

	action, err := dialog.ParseCallback(cq.Data)
	if err != nil {
		logger.DebugContext(ctx, "ignoring callback", "data", cq.Data, "err", err)

		return nil
	}

	switch action.Kind {
	case dialog.ActionCategory:
		return b.handler.ChooseCategory(ctx, ev, action.Index)
	case dialog.ActionPage:
		return b.handler.ChangePage(ctx, ev, action.Page)
	case dialog.ActionPick:
		return b.handler.SelectTarget(ctx, ev, action.ID)
	case dialog.ActionConfirm:
		return b.handler.ConfirmDelete(ctx, ev, action.ID, action.DeleteData)
	case dialog.ActionCancel:
		return b.handler.Cancel(ctx, ev)
	default:
		return nil
	}
}

func senderID(upd tgbotapi.Update) (int64, bool) {
	switch {
	case upd.CallbackQuery != nil && upd.CallbackQuery.From != nil:
		return upd.CallbackQuery.From.ID, true
	case upd.Message != nil && upd.Message.From != nil:
		return upd.Message.From.ID, true
	default:
		return 0, false
	}
}

func updateKind(upd tgbotapi.Update) string {
	switch {
	case upd.CallbackQuery != nil:
		return "callback"
	case upd.Message == nil:
		return "other"
	case upd.Message.IsCommand():
		return "command"
	case upd.Message.Document != nil:
		return "document"
	default:
		return "text"
	}
}
