package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/italolelis/seedbox_bot/internal/storage"
)

type HistoryRepository struct {
	db  *sql.DB
	now func() time.Time
}

var _ storage.HistoryRepository = (*HistoryRepository)(nil)

func NewHistoryRepository(dbConn *sql.DB) *HistoryRepository {
	return &HistoryRepository{db: dbConn, now: time.Now}
}

// Record appends entry. A zero CreatedAt is stamped with the current time.
func (r *HistoryRepository) Record(ctx context.Context, entry storage.Entry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = r.now()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO history (user_id, torrent_id, name, source, category, download_dir, outcome, detail, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		entry.UserID,
		entry.TorrentID,
		entry.Name,
		entry.Source,
		entry.Category,
		entry.DownloadDir,
		entry.Outcome,
		entry.Detail,
		entry.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to record history entry: %w", err)
	}

	return nil
}

// Recent returns up to limit entries, newest first.
func (r *HistoryRepository) Recent(ctx context.Context, limit int) ([]storage.Entry, error) {
	if limit <= 0 {
		return nil, nil
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, torrent_id, name, source, category, download_dir, outcome, detail, created_at
		FROM history
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var entries []storage.Entry

	for rows.Next() {
		var (
			entry                                       storage.Entry
			torrentID                                   sql.NullInt64
			name, source, category, downloadDir, detail sql.NullString
			createdAt                                   string
		)

		err := rows.Scan(
			&entry.ID,
			&entry.UserID,
			&torrentID,
			&name,
			&source,
			&category,
			&downloadDir,
			&entry.Outcome,
			&detail,
			&createdAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}

		entry.TorrentID = torrentID.Int64
		entry.Name = name.String
		entry.Source = source.String
		entry.Category = category.String
		entry.DownloadDir = downloadDir.String
		entry.Detail = detail.String

		if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
			entry.CreatedAt = t
		}

		entries = append(entries, entry)
	}

	return entries, rows.Err()
}
