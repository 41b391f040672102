package sqlite

import (
	"context"
	"database/sql"

	"github.com/italolelis/seedbox_bot/internal/storage"
	"github.com/italolelis/seedbox_bot/internal/telemetry"
)

// InstrumentedHistoryRepository wraps HistoryRepository with telemetry.
type InstrumentedHistoryRepository struct {
	repo      *HistoryRepository
	telemetry *telemetry.Telemetry
}

var _ storage.HistoryRepository = (*InstrumentedHistoryRepository)(nil)

// NewInstrumentedHistoryRepository creates a new instrumented history repository.
func NewInstrumentedHistoryRepository(dbConn *sql.DB, tel *telemetry.Telemetry) *InstrumentedHistoryRepository {
	return &InstrumentedHistoryRepository{
		repo:      NewHistoryRepository(dbConn),
		telemetry: tel,
	}
}

// Record stores an entry with telemetry.
func (r *InstrumentedHistoryRepository) Record(ctx context.Context, entry storage.Entry) error {
	return r.telemetry.InstrumentDBOperation(ctx, "record_history", func(ctx context.Context) error {
		return r.repo.Record(ctx, entry)
	})
}

// Recent lists entries with telemetry.
func (r *InstrumentedHistoryRepository) Recent(ctx context.Context, limit int) ([]storage.Entry, error) {
	var result []storage.Entry

	err := r.telemetry.InstrumentDBOperation(ctx, "recent_history", func(ctx context.Context) error {
		var err error
		result, err = r.repo.Recent(ctx, limit)

		return err
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}
