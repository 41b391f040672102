package dialog

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/italolelis/seedbox_bot/internal/logctx"
	"github.com/italolelis/seedbox_bot/internal/session"
	"github.com/italolelis/seedbox_bot/internal/storage"
	"github.com/italolelis/seedbox_bot/internal/transfer"
)

const (
	flowAdd    = "add"
	flowDelete = "delete"
)

// SubmitMagnet stores link as the pending source and asks for a category.
func (h *Handler) SubmitMagnet(ctx context.Context, ev Event, link string) error {
	if !h.Authorized(ctx, ev) {
		return nil
	}

	h.sessions.SetPendingMagnet(ctx, ev.UserID, link)

	return h.messenger.Send(ctx, ev.ChatID, "🧲 Magnet link received.\n\n📂 Choose a category:", h.categoryKeyboard())
}

// SubmitFile downloads an uploaded descriptor, keeps it as a temporary blob
// and asks for a category.
func (h *Handler) SubmitFile(ctx context.Context, ev Event, up Upload) error {
	if !h.Authorized(ctx, ev) {
		return nil
	}

	if !strings.EqualFold(filepath.Ext(up.FileName), ".torrent") {
		return h.messenger.Send(ctx, ev.ChatID, "⚠️ Please send a file with the .torrent extension.", nil)
	}

	if up.Size > transfer.MaxTorrentSize {
		return h.fail(ctx, ev, flowAdd, &transfer.InvalidContentError{
			Filename: up.FileName,
			Reason:   fmt.Sprintf("size %d bytes exceeds maximum %d bytes", up.Size, transfer.MaxTorrentSize),
		})
	}

	data, err := h.files.FetchFile(ctx, up.FileRef)
	if err != nil {
		return h.fail(ctx, ev, flowAdd, err)
	}

	if err := transfer.ValidateTorrentFile(up.FileName, data); err != nil {
		return h.fail(ctx, ev, flowAdd, err)
	}

	blob, err := h.blobs.Create(ctx, data)
	if err != nil {
		return h.fail(ctx, ev, flowAdd, err)
	}

	h.sessions.SetPendingFile(ctx, ev.UserID, blob)

	return h.messenger.Send(ctx, ev.ChatID,
		fmt.Sprintf("📄 File %s received.\n\n📂 Choose a category:", up.FileName), h.categoryKeyboard())
}

// ChooseCategory submits the pending source into <base>/<category>. The
// session is Idle again whatever the outcome.
func (h *Handler) ChooseCategory(ctx context.Context, ev Event, index int) error {
	if !h.Authorized(ctx, ev) {
		return nil
	}

	if index < 0 || index >= len(h.opts.Categories) {
		h.sessions.Clear(ctx, ev.UserID)

		return h.reply(ctx, ev, "⚠️ Unknown category. Send the link or file again.", nil)
	}

	category := h.opts.Categories[index]

	src := h.sessions.TakePendingSource(ctx, ev.UserID)
	if src.IsNone() {
		return h.reply(ctx, ev, "⚠️ Nothing to add. Send a magnet link or a .torrent file first.", nil)
	}

	if src.Kind == session.SourceFile {
		defer h.blobs.Release(ctx, src.Blob)
	}

	ctx, logger := logctx.With(ctx, "category", category, "source", sourceName(src))

	entry := storage.Entry{UserID: ev.UserID, Source: sourceName(src), Category: category}

	base, err := h.client.DownloadDir(ctx)
	if err != nil {
		entry.Outcome, entry.Detail = storage.OutcomeFailed, err.Error()
		h.record(ctx, entry)

		return h.fail(ctx, ev, flowAdd, err)
	}

	dest := path.Join(base, category)
	entry.DownloadDir = dest

	added, err := h.submit(ctx, src, dest)
	if err != nil {
		entry.Outcome, entry.Detail = storage.OutcomeFailed, err.Error()
		h.record(ctx, entry)

		return h.fail(ctx, ev, flowAdd, err)
	}

	entry.Outcome, entry.TorrentID, entry.Name = storage.OutcomeAdded, added.ID, added.Name
	h.record(ctx, entry)

	h.sessions.Clear(ctx, ev.UserID)
	h.telemetry.RecordDialog(ctx, flowAdd, "success")

	logger.InfoContext(ctx, "torrent added", "torrent_id", added.ID, "download_dir", dest)

	name := added.Name
	if name == "" {
		name = fmt.Sprintf("#%d", added.ID)
	}

	return h.reply(ctx, ev, fmt.Sprintf("✅ Torrent added!\n\n📝 %s\n📂 Category: %s", name, category), nil)
}

func (h *Handler) submit(ctx context.Context, src session.PendingSource, dest string) (*transfer.Transfer, error) {
	switch src.Kind {
	case session.SourceMagnet:
		return h.client.AddMagnet(ctx, src.Magnet, dest)
	case session.SourceFile:
		data, err := h.blobs.ReadAndConsume(ctx, src.Blob)
		if err != nil {
			return nil, err
		}

		return h.client.AddTorrentFile(ctx, data, dest)
	default:
		return nil, fmt.Errorf("unsupported source kind %d", src.Kind)
	}
}

func (h *Handler) categoryKeyboard() Keyboard {
	const perRow = 2

	kb := make(Keyboard, 0, len(h.opts.Categories)/perRow+2)

	var row []Button

	for i, name := range h.opts.Categories {
		row = append(row, Button{Text: name, Data: CategoryData(i)})

		if len(row) == perRow {
			kb = append(kb, row)
			row = nil
		}
	}

	if len(row) > 0 {
		kb = append(kb, row)
	}

	return append(kb, cancelRow())
}

func sourceName(src session.PendingSource) string {
	if src.Kind == session.SourceFile {
		return "file"
	}

	return "magnet"
}
