package present

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/dustin/go-humanize"
	"github.com/italolelis/seedbox_bot/internal/transfer"
)

const maxButtonName = 40

// Renderer builds message texts. The zero value is not usable; use NewRenderer.
type Renderer struct {
	glyphs     Glyphs
	maxDisplay int
}

func NewRenderer(glyphs Glyphs, maxDisplay int) *Renderer {
	if maxDisplay < 1 {
		maxDisplay = 10
	}

	return &Renderer{glyphs: glyphs, maxDisplay: maxDisplay}
}

func (r *Renderer) Glyphs() Glyphs {
	return r.glyphs
}

// TorrentLine renders a two-line summary of t.
func (r *Renderer) TorrentLine(t *transfer.Transfer) string {
	glyph := r.glyphs.Status(t.Status)
	if t.HasError() {
		glyph = r.glyphs.Error
	}

	line := fmt.Sprintf("%s %s\n   Progress: %.1f%% | Size: %s", glyph, t.Name, t.Progress, FormatSize(t.Size))
	if t.ErrorMessage != "" {
		line += "\n   Error: " + t.ErrorMessage
	}

	return line
}

// ListText renders at most maxDisplay entries of an already sorted list.
func (r *Renderer) ListText(sorted []*transfer.Transfer) string {
	if len(sorted) == 0 {
		return "📭 No torrents."
	}

	var b strings.Builder

	b.WriteString("📋 Torrents:\n\n")

	shown := sorted
	if len(shown) > r.maxDisplay {
		shown = shown[:r.maxDisplay]
	}

	for _, t := range shown {
		b.WriteString(r.TorrentLine(t))
		b.WriteString("\n\n")
	}

	if rest := len(sorted) - len(shown); rest > 0 {
		fmt.Fprintf(&b, "... and %s more", humanize.Comma(int64(rest)))
	}

	return strings.TrimRight(b.String(), "\n")
}

// StatusText summarizes counts, aggregate rates and the base download dir.
func (r *Renderer) StatusText(list []*transfer.Transfer, downloadDir string) string {
	var downloading, seeding, stopped int

	var rateDown, rateUp int64

	for _, t := range list {
		switch t.Status {
		case transfer.StatusDownloading:
			downloading++
		case transfer.StatusSeeding:
			seeding++
		case transfer.StatusStopped:
			stopped++
		}

		rateDown += t.RateDownload
		rateUp += t.RateUpload
	}

	return fmt.Sprintf(
		"📊 System status:\n\n"+
			"%s Downloading: %s\n"+
			"%s Seeding: %s\n"+
			"%s Stopped: %s\n"+
			"📦 Total: %s\n\n"+
			"⬇️ Download speed: %s/s\n"+
			"⬆️ Upload speed: %s/s\n\n"+
			"📁 Download folder: %s",
		r.glyphs.Downloading, humanize.Comma(int64(downloading)),
		r.glyphs.Seeding, humanize.Comma(int64(seeding)),
		r.glyphs.Paused, humanize.Comma(int64(stopped)),
		humanize.Comma(int64(len(list))),
		FormatSize(rateDown),
		FormatSize(rateUp),
		downloadDir,
	)
}

// CompletionText is the push notification for a finished torrent.
func (r *Renderer) CompletionText(t *transfer.Transfer) string {
	return fmt.Sprintf("%s Download complete!\n\n📝 %s\n📦 Size: %s", r.glyphs.Completed, t.Name, FormatSize(t.Size))
}

// ButtonLabel is the compact label for a torrent inside a selection keyboard.
func (r *Renderer) ButtonLabel(t *transfer.Transfer) string {
	glyph := r.glyphs.Status(t.Status)
	if t.HasError() {
		glyph = r.glyphs.Error
	}

	return fmt.Sprintf("%s %s (%.0f%%)", glyph, truncate(t.Name, maxButtonName), t.Progress)
}

// ConfirmDeleteText asks whether to remove t.
func (r *Renderer) ConfirmDeleteText(t *transfer.Transfer) string {
	return fmt.Sprintf("🗑 Remove this torrent?\n\n%s\n\nYou can keep or delete the downloaded data.", r.TorrentLine(t))
}

func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}

	runes := []rune(s)

	return string(runes[:limit-1]) + "…"
}
