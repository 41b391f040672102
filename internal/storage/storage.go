package storage

import (
	"context"
	"time"
)

// Outcomes recorded for a history entry.
const (
	OutcomeAdded   = "added"
	OutcomeFailed  = "failed"
	OutcomeRemoved = "removed"
)

// Entry is one submission or removal made through the bot.
type Entry struct {
	ID          int64
	UserID      int64
	TorrentID   int64
	Name        string
	Source      string // magnet, file or empty for removals
	Category    string
	DownloadDir string
	Outcome     string
	Detail      string
	CreatedAt   time.Time
}

// HistoryRepository keeps an audit trail of dialog outcomes.
type HistoryRepository interface {
	Record(ctx context.Context, entry Entry) error
	Recent(ctx context.Context, limit int) ([]Entry, error)
}
