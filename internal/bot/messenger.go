package bot

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/italolelis/seedbox_bot/internal/dialog"
	"github.com/italolelis/seedbox_bot/internal/transfer"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Messenger talks to the Telegram Bot API on behalf of the dialogs and the
// completion watcher.
type Messenger struct {
	api        *tgbotapi.BotAPI
	httpClient *http.Client
	fileURL    func(fileID string) (string, error)
}

// NewAPI connects to Telegram through a traced HTTP client. endpoint may be
// empty for the public API.
func NewAPI(token, endpoint string) (*tgbotapi.BotAPI, error) {
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}

	client := &http.Client{
		Timeout:   90 * time.Second,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}

	api, err := tgbotapi.NewBotAPIWithClient(token, endpoint, client)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to telegram: %w", err)
	}

	return api, nil
}

func NewMessenger(api *tgbotapi.BotAPI) *Messenger {
	return &Messenger{
		api: api,
		httpClient: &http.Client{
			Timeout:   60 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		fileURL: api.GetFileDirectURL,
	}
}

func (m *Messenger) Send(_ context.Context, chatID int64, text string, kb dialog.Keyboard) error {
	msg := tgbotapi.NewMessage(chatID, text)
	if len(kb) > 0 {
		msg.ReplyMarkup = markup(kb)
	}

	if _, err := m.api.Send(msg); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}

	return nil
}

func (m *Messenger) Edit(_ context.Context, chatID int64, messageID int, text string, kb dialog.Keyboard) error {
	var edit tgbotapi.EditMessageTextConfig
	if len(kb) > 0 {
		edit = tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID, text, markup(kb))
	} else {
		edit = tgbotapi.NewEditMessageText(chatID, messageID, text)
	}

	if _, err := m.api.Send(edit); err != nil {
		// Re-rendering an unchanged page is not a failure.
		if strings.Contains(err.Error(), "message is not modified") {
			return nil
		}

		return fmt.Errorf("failed to edit message: %w", err)
	}

	return nil
}

// SendText delivers a plain notification to one recipient.
func (m *Messenger) SendText(ctx context.Context, recipient int64, text string) error {
	return m.Send(ctx, recipient, text, nil)
}

// AnswerCallback stops the client-side spinner on a pressed button.
func (m *Messenger) AnswerCallback(_ context.Context, callbackID string) error {
	if _, err := m.api.Request(tgbotapi.NewCallback(callbackID, "")); err != nil {
		return fmt.Errorf("failed to answer callback: %w", err)
	}

	return nil
}

// FetchFile downloads an uploaded document, refusing anything larger than a
// torrent descriptor may be.
func (m *Messenger) FetchFile(ctx context.Context, fileRef string) ([]byte, error) {
	url, err := m.fileURL(fileRef)
	if err != nil {
		return nil, &transfer.NetworkError{Operation: "get_file", APIMessage: err.Error(), Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return nil, &transfer.NetworkError{Operation: "download_file", APIMessage: "failed to download file", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &transfer.NetworkError{
			Operation:  "download_file",
			StatusCode: resp.StatusCode,
			APIMessage: http.StatusText(resp.StatusCode),
		}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, transfer.MaxTorrentSize+1))
	if err != nil {
		return nil, &transfer.NetworkError{Operation: "download_file", APIMessage: "failed to read file", Err: err}
	}

	if len(data) > transfer.MaxTorrentSize {
		return nil, &transfer.InvalidContentError{
			Filename: fileRef,
			Reason:   fmt.Sprintf("size exceeds maximum %d bytes", transfer.MaxTorrentSize),
		}
	}

	return data, nil
}

func markup(kb dialog.Keyboard) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(kb))

	for _, row := range kb {
		buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(b.Text, b.Data))
		}

		rows = append(rows, buttons)
	}

	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// apiLogger routes the library's own log lines into slog at debug level.
type apiLogger struct {
	logger *slog.Logger
}

func (l apiLogger) Println(v ...any) {
	l.logger.Debug(strings.TrimSpace(fmt.Sprintln(v...)), "component", "telegram")
}

func (l apiLogger) Printf(format string, v ...any) {
	l.logger.Debug(fmt.Sprintf(format, v...), "component", "telegram")
}
