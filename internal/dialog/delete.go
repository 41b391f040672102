package dialog

import (
	"context"
	"errors"
	"fmt"

	"github.com/italolelis/seedbox_bot/internal/logctx"
	"github.com/italolelis/seedbox_bot/internal/present"
	"github.com/italolelis/seedbox_bot/internal/session"
	"github.com/italolelis/seedbox_bot/internal/storage"
)

const expiredText = "⚠️ This menu has expired. Use /delete to start again."

// BeginDelete lists the first page of delete candidates.
func (h *Handler) BeginDelete(ctx context.Context, ev Event) error {
	if !h.Authorized(ctx, ev) {
		return nil
	}

	h.sessions.BeginDeleteSelection(ctx, ev.UserID)

	return h.renderDeletePage(ctx, ev, 0)
}

// ChangePage moves the delete listing to page.
func (h *Handler) ChangePage(ctx context.Context, ev Event, page int) error {
	if !h.Authorized(ctx, ev) {
		return nil
	}

	if err := h.sessions.SetDeletePage(ctx, ev.UserID, page); err != nil {
		return h.expired(ctx, ev, err)
	}

	return h.renderDeletePage(ctx, ev, h.sessions.DeletePage(ctx, ev.UserID))
}

func (h *Handler) renderDeletePage(ctx context.Context, ev Event, page int) error {
	list, err := h.client.List(ctx)
	if err != nil {
		return h.fail(ctx, ev, flowDelete, err)
	}

	if len(list) == 0 {
		h.sessions.Clear(ctx, ev.UserID)

		return h.reply(ctx, ev, "📭 No torrents to delete.", nil)
	}

	sorted := present.Sort(list)
	p := present.Paginate(sorted, page, h.opts.PageSize)

	// The list may have shrunk since the page was requested.
	if len(p.Items) == 0 && page > 0 {
		last := (len(sorted) - 1) / h.opts.PageSize
		if err := h.sessions.SetDeletePage(ctx, ev.UserID, last); err != nil {
			return h.expired(ctx, ev, err)
		}

		p = present.Paginate(sorted, last, h.opts.PageSize)
	}

	kb := make(Keyboard, 0, len(p.Items)+2)
	for _, t := range p.Items {
		kb = append(kb, []Button{{Text: h.renderer.ButtonLabel(t), Data: PickData(t.ID)}})
	}

	var nav []Button
	if p.HasPrev {
		nav = append(nav, Button{Text: "⬅️ Previous", Data: PageData(p.Index - 1)})
	}

	if p.HasNext {
		nav = append(nav, Button{Text: "Next ➡️", Data: PageData(p.Index + 1)})
	}

	if len(nav) > 0 {
		kb = append(kb, nav)
	}

	kb = append(kb, cancelRow())

	pages := (len(sorted) + h.opts.PageSize - 1) / h.opts.PageSize
	text := fmt.Sprintf("🗑 Select a torrent to delete (page %d of %d):", p.Index+1, pages)

	return h.reply(ctx, ev, text, kb)
}

// SelectTarget records the torrent to delete and asks for confirmation.
func (h *Handler) SelectTarget(ctx context.Context, ev Event, id int64) error {
	if !h.Authorized(ctx, ev) {
		return nil
	}

	if err := h.sessions.SelectDeleteTarget(ctx, ev.UserID, id); err != nil {
		return h.expired(ctx, ev, err)
	}

	t, err := h.client.Get(ctx, id)
	if err != nil {
		return h.fail(ctx, ev, flowDelete, err)
	}

	kb := Keyboard{
		{
			{Text: "🗑 Delete with data", Data: ConfirmData(id, true)},
			{Text: "📁 Keep data", Data: ConfirmData(id, false)},
		},
		{
			{Text: "⬅️ Back", Data: PageData(h.sessions.DeletePage(ctx, ev.UserID))},
			{Text: "❌ Cancel", Data: CancelData},
		},
	}

	return h.reply(ctx, ev, h.renderer.ConfirmDeleteText(t), kb)
}

// ConfirmDelete removes the selected torrent. A confirmation for anything but
// the current selection is treated as stale.
func (h *Handler) ConfirmDelete(ctx context.Context, ev Event, id int64, deleteData bool) error {
	if !h.Authorized(ctx, ev) {
		return nil
	}

	selected, ok := h.sessions.TakeDeleteTarget(ctx, ev.UserID)
	if !ok || selected != id {
		return h.expired(ctx, ev, session.ErrUnexpectedState)
	}

	ctx, logger := logctx.With(ctx, "torrent_id", id, "delete_data", deleteData)

	entry := storage.Entry{UserID: ev.UserID, TorrentID: id}

	if t, err := h.client.Get(ctx, id); err == nil {
		entry.Name = t.Name
	}

	if err := h.client.Remove(ctx, id, deleteData); err != nil {
		entry.Outcome, entry.Detail = storage.OutcomeFailed, err.Error()
		h.record(ctx, entry)

		return h.fail(ctx, ev, flowDelete, err)
	}

	entry.Outcome = storage.OutcomeRemoved
	if deleteData {
		entry.Detail = "data deleted"
	}

	h.record(ctx, entry)
	h.sessions.Clear(ctx, ev.UserID)
	h.telemetry.RecordDialog(ctx, flowDelete, "success")

	logger.InfoContext(ctx, "torrent removed")

	text := "✅ Torrent removed. Downloaded data was kept."
	if deleteData {
		text = "✅ Torrent and its data removed."
	}

	return h.reply(ctx, ev, text, nil)
}

func (h *Handler) expired(ctx context.Context, ev Event, err error) error {
	if !errors.Is(err, session.ErrUnexpectedState) {
		return h.fail(ctx, ev, flowDelete, err)
	}

	logctx.LoggerFromContext(ctx).DebugContext(ctx, "stale delete action", "user_id", ev.UserID)

	return h.reply(ctx, ev, expiredText, nil)
}
