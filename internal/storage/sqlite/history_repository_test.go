package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/italolelis/seedbox_bot/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRepo(t *testing.T) *InstrumentedHistoryRepository {
	t.Helper()

	db, err := InitDB(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return NewInstrumentedHistoryRepository(db, nil)
}

func TestHistory_RecordAndRecent(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	entries := []storage.Entry{
		{UserID: 1, TorrentID: 10, Name: "first", Source: "magnet", Category: "Movies", DownloadDir: "/d/Movies", Outcome: storage.OutcomeAdded, CreatedAt: base},
		{UserID: 1, Name: "broken", Source: "file", Category: "Other", Outcome: storage.OutcomeFailed, Detail: "invalid bencode", CreatedAt: base.Add(time.Minute)},
		{UserID: 2, TorrentID: 10, Name: "first", Outcome: storage.OutcomeRemoved, CreatedAt: base.Add(2 * time.Minute)},
	}

	for _, e := range entries {
		require.NoError(t, repo.Record(ctx, e))
	}

	recent, err := repo.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)

	assert.Equal(t, storage.OutcomeRemoved, recent[0].Outcome)
	assert.Equal(t, int64(2), recent[0].UserID)
	assert.True(t, recent[0].CreatedAt.Equal(base.Add(2*time.Minute)))

	assert.Equal(t, "broken", recent[1].Name)
	assert.Equal(t, "invalid bencode", recent[1].Detail)
	assert.Zero(t, recent[1].TorrentID)

	all, err := repo.Recent(ctx, 50)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "/d/Movies", all[2].DownloadDir)
}

func TestHistory_StampsMissingTime(t *testing.T) {
	repo := newRepo(t)
	fixed := time.Date(2024, 5, 5, 5, 5, 5, 0, time.UTC)
	repo.repo.now = func() time.Time { return fixed }

	require.NoError(t, repo.Record(context.Background(), storage.Entry{UserID: 1, Outcome: storage.OutcomeAdded}))

	recent, err := repo.Recent(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.True(t, recent[0].CreatedAt.Equal(fixed))
}

func TestHistory_NonPositiveLimit(t *testing.T) {
	repo := newRepo(t)

	recent, err := repo.Recent(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, recent)
}
