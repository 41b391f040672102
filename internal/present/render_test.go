package present

import (
	"fmt"
	"strings"
	"testing"

	"github.com/italolelis/seedbox_bot/internal/transfer"
	"github.com/stretchr/testify/assert"
)

func TestRenderer_ListTextTruncatesWithFooter(t *testing.T) {
	r := NewRenderer(DefaultGlyphs(), 2)

	list := []*transfer.Transfer{
		{ID: 3, Name: "Alpha", Status: transfer.StatusDownloading, Progress: 45.3, Size: 1 << 30},
		{ID: 2, Name: "Beta", Status: transfer.StatusSeeding, Progress: 100, Size: 1 << 20},
		{ID: 1, Name: "Gamma", Status: transfer.StatusStopped},
	}

	text := r.ListText(list)

	assert.Contains(t, text, "⬇️ Alpha\n   Progress: 45.3% | Size: 1.00 GB")
	assert.Contains(t, text, "✅ Beta")
	assert.NotContains(t, text, "Gamma")
	assert.True(t, strings.HasSuffix(text, "... and 1 more"))
}

func TestRenderer_ListTextEmpty(t *testing.T) {
	assert.Equal(t, "📭 No torrents.", NewRenderer(DefaultGlyphs(), 10).ListText(nil))
}

func TestRenderer_StatusText(t *testing.T) {
	r := NewRenderer(DefaultGlyphs(), 10)

	text := r.StatusText([]*transfer.Transfer{
		{Status: transfer.StatusDownloading, RateDownload: 1024},
		{Status: transfer.StatusSeeding, RateUpload: 2048},
		{Status: transfer.StatusStopped},
	}, "/downloads")

	assert.Contains(t, text, "Downloading: 1")
	assert.Contains(t, text, "Seeding: 1")
	assert.Contains(t, text, "Stopped: 1")
	assert.Contains(t, text, "Total: 3")
	assert.Contains(t, text, "Download speed: 1.00 KB/s")
	assert.Contains(t, text, "Upload speed: 2.00 KB/s")
	assert.Contains(t, text, "/downloads")
}

func TestRenderer_ErrorGlyphWins(t *testing.T) {
	r := NewRenderer(DefaultGlyphs(), 10)

	label := r.ButtonLabel(&transfer.Transfer{Name: "Broken", Status: transfer.StatusSeeding, ErrorCode: 1, Progress: 100})

	assert.Equal(t, "❌ Broken (100%)", label)
}

func TestRenderer_ButtonLabelTruncatesLongNames(t *testing.T) {
	r := NewRenderer(DefaultGlyphs(), 10)

	long := strings.Repeat("ж", 60)
	label := r.ButtonLabel(&transfer.Transfer{Name: long, Status: transfer.StatusStopped})

	assert.Equal(t, fmt.Sprintf("⏸️ %s… (0%%)", strings.Repeat("ж", maxButtonName-1)), label)
}

func TestRenderer_CompletionText(t *testing.T) {
	r := NewRenderer(DefaultGlyphs(), 10)

	text := r.CompletionText(&transfer.Transfer{Name: "Ubuntu ISO", Size: 3 * (1 << 30)})

	assert.Equal(t, "🎉 Download complete!\n\n📝 Ubuntu ISO\n📦 Size: 3.00 GB", text)
}
