// Package present turns torrent snapshots into ordered, paged, human-readable
// output for the chat dialogs.
package present

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/italolelis/seedbox_bot/internal/transfer"
)

// DefaultPageSize is the number of torrents per delete-selection page.
const DefaultPageSize = 9

var sizeUnits = []string{"B", "KB", "MB", "GB", "TB"}

// FormatSize renders bytes with a 1024 divisor and two decimals. PB is the
// terminal unit and absorbs anything larger.
func FormatSize(bytes int64) string {
	size := float64(bytes)

	for _, unit := range sizeUnits {
		if size < 1024 {
			return fmt.Sprintf("%.2f %s", size, unit)
		}

		size /= 1024
	}

	return fmt.Sprintf("%.2f PB", size)
}

// Glyphs maps statuses to display symbols.
type Glyphs struct {
	Downloading string
	Seeding     string
	Paused      string
	Error       string
	Completed   string
	Checking    string
	Pending     string
}

// DefaultGlyphs returns the stock emoji set.
func DefaultGlyphs() Glyphs {
	return Glyphs{
		Downloading: "⬇️",
		Seeding:     "✅",
		Paused:      "⏸️",
		Error:       "❌",
		Completed:   "🎉",
		Checking:    "🔍",
		Pending:     "⏳",
	}
}

// Status returns the symbol for s; anything unknown renders as paused.
func (g Glyphs) Status(s transfer.Status) string {
	switch s {
	case transfer.StatusDownloading:
		return g.Downloading
	case transfer.StatusSeeding:
		return g.Seeding
	case transfer.StatusStopped:
		return g.Paused
	case transfer.StatusChecking:
		return g.Checking
	case transfer.StatusCheckPending, transfer.StatusDownloadPending, transfer.StatusSeedPending:
		return g.Pending
	default:
		return g.Paused
	}
}

// Priority returns the sort key of t. Tier 1 is downloading, tier 2 is any
// errored torrent (even a seeding one), tier 3 is seeding and tier 4 the rest.
// The tiebreak puts higher ids first.
func Priority(t *transfer.Transfer) (tier int, tiebreak int64) {
	switch {
	case t.IsDownloading():
		tier = 1
	case t.HasError():
		tier = 2
	case t.IsSeeding():
		tier = 3
	default:
		tier = 4
	}

	return tier, -t.ID
}

func compareTransfers(a, b *transfer.Transfer) int {
	tierA, tieA := Priority(a)
	tierB, tieB := Priority(b)

	if c := cmp.Compare(tierA, tierB); c != 0 {
		return c
	}

	return cmp.Compare(tieA, tieB)
}

// Sort returns a sorted copy of list. If ordering fails, for example on a nil
// snapshot, the input is returned unsorted.
func Sort(list []*transfer.Transfer) (sorted []*transfer.Transfer) {
	defer func() {
		if r := recover(); r != nil {
			sorted = list
		}
	}()

	sorted = slices.Clone(list)
	slices.SortStableFunc(sorted, compareTransfers)

	return sorted
}

// Page is one window of a paginated list.
type Page[T any] struct {
	Items   []T
	Index   int
	HasPrev bool
	HasNext bool
}

// Paginate returns items [index*size, index*size+size) clamped to list. A page
// past the end is empty, never an error.
func Paginate[T any](list []T, index, size int) Page[T] {
	if size < 1 {
		size = DefaultPageSize
	}

	if index < 0 {
		return Page[T]{Index: index}
	}

	start := index * size
	if start >= len(list) {
		return Page[T]{Index: index, HasPrev: index > 0 && len(list) > 0}
	}

	end := min(start+size, len(list))

	return Page[T]{
		Items:   list[start:end],
		Index:   index,
		HasPrev: index > 0,
		HasNext: end < len(list),
	}
}
