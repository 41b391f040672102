// Package session tracks where each user is in a multi-step chat dialog.
//
// Every exported operation runs under that user's own lock, so concurrent
// events for one user serialize while different users never contend. The raw
// session records are never exposed; callers get value snapshots.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/italolelis/seedbox_bot/internal/tempstore"
)

// ErrUnexpectedState is returned when an operation does not apply to the
// dialog the user is currently in, typically a stale button press.
var ErrUnexpectedState = errors.New("action does not match the current dialog")

// DialogState is the step of a multi-turn interaction.
type DialogState int

const (
	Idle DialogState = iota
	AwaitingCategory
	SelectingDeleteTarget
	ConfirmingDeletion
)

func (s DialogState) String() string {
	switch s {
	case Idle:
		return "idle"
	case AwaitingCategory:
		return "awaiting_category"
	case SelectingDeleteTarget:
		return "selecting_delete_target"
	case ConfirmingDeletion:
		return "confirming_deletion"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// SourceKind tags a PendingSource.
type SourceKind int

const (
	SourceNone SourceKind = iota
	SourceMagnet
	SourceFile
)

// PendingSource is a magnet link or an uploaded blob waiting for a category.
// Exactly one of Magnet and Blob is meaningful, chosen by Kind.
type PendingSource struct {
	Kind   SourceKind
	Magnet string
	Blob   *tempstore.Blob
}

func MagnetSource(link string) PendingSource {
	return PendingSource{Kind: SourceMagnet, Magnet: link}
}

func FileSource(blob *tempstore.Blob) PendingSource {
	return PendingSource{Kind: SourceFile, Blob: blob}
}

func (p PendingSource) IsNone() bool {
	return p.Kind == SourceNone
}

// Session is a snapshot of one user's dialog.
type Session struct {
	State        DialogState
	Source       PendingSource
	SelectedID   int64
	HasSelection bool
	DeletePage   int
	LastActivity time.Time
}

// Releaser frees blobs held by a pending source.
type Releaser interface {
	Release(ctx context.Context, b *tempstore.Blob)
}

type entry struct {
	mu sync.Mutex
	s  Session
}

// Store holds one session per user identity for the life of the process.
type Store struct {
	releaser Releaser
	now      func() time.Time

	mu      sync.Mutex
	entries map[int64]*entry
}

// NewStore returns an empty store. releaser may be nil when no uploads are
// ever stored.
func NewStore(releaser Releaser) *Store {
	return &Store{
		releaser: releaser,
		now:      time.Now,
		entries:  make(map[int64]*entry),
	}
}

// lookup holds the global lock only long enough to find or create the entry.
func (st *Store) lookup(userID int64) *entry {
	st.mu.Lock()
	defer st.mu.Unlock()

	e, ok := st.entries[userID]
	if !ok {
		e = &entry{}
		st.entries[userID] = e
	}

	return e
}

func (st *Store) with(userID int64, fn func(s *Session) error) error {
	e := st.lookup(userID)

	e.mu.Lock()
	defer e.mu.Unlock()

	err := fn(&e.s)
	e.s.LastActivity = st.now()

	return err
}

func (st *Store) release(ctx context.Context, src PendingSource) {
	if src.Kind == SourceFile && src.Blob != nil && st.releaser != nil {
		st.releaser.Release(ctx, src.Blob)
	}
}

// reset releases anything held and returns s to Idle.
func (st *Store) reset(ctx context.Context, s *Session) {
	st.release(ctx, s.Source)
	*s = Session{}
}

// SetPendingMagnet replaces any pending source with link and waits for a
// category.
func (st *Store) SetPendingMagnet(ctx context.Context, userID int64, link string) {
	_ = st.with(userID, func(s *Session) error {
		st.reset(ctx, s)
		s.Source = MagnetSource(link)
		s.State = AwaitingCategory

		return nil
	})
}

// SetPendingFile replaces any pending source with blob, releasing a previously
// held blob first.
func (st *Store) SetPendingFile(ctx context.Context, userID int64, blob *tempstore.Blob) {
	_ = st.with(userID, func(s *Session) error {
		if s.Source.Kind == SourceFile && s.Source.Blob == blob {
			s.State = AwaitingCategory
			return nil
		}

		st.reset(ctx, s)
		s.Source = FileSource(blob)
		s.State = AwaitingCategory

		return nil
	})
}

// TakePendingSource reads and clears the pending source, leaving the user
// Idle. Ownership of a returned blob passes to the caller. It returns a
// SourceNone value when nothing was pending.
func (st *Store) TakePendingSource(_ context.Context, userID int64) PendingSource {
	var src PendingSource

	_ = st.with(userID, func(s *Session) error {
		if s.State == AwaitingCategory {
			src = s.Source
		}

		*s = Session{}

		return nil
	})

	return src
}

// BeginDeleteSelection starts the delete flow at page zero, discarding any
// other dialog in progress.
func (st *Store) BeginDeleteSelection(ctx context.Context, userID int64) {
	_ = st.with(userID, func(s *Session) error {
		st.reset(ctx, s)
		s.State = SelectingDeleteTarget

		return nil
	})
}

// SetDeletePage moves the delete listing to page. Negative pages clamp to 0.
// A confirmation in progress goes back to selection.
func (st *Store) SetDeletePage(_ context.Context, userID int64, page int) error {
	return st.with(userID, func(s *Session) error {
		if s.State != SelectingDeleteTarget && s.State != ConfirmingDeletion {
			return ErrUnexpectedState
		}

		s.State = SelectingDeleteTarget
		s.SelectedID = 0
		s.HasSelection = false
		s.DeletePage = max(page, 0)

		return nil
	})
}

// DeletePage returns the current delete listing page.
func (st *Store) DeletePage(_ context.Context, userID int64) int {
	var page int

	_ = st.with(userID, func(s *Session) error {
		page = s.DeletePage
		return nil
	})

	return page
}

// SelectDeleteTarget records the torrent to delete. A later selection
// overwrites an earlier one.
func (st *Store) SelectDeleteTarget(_ context.Context, userID, torrentID int64) error {
	return st.with(userID, func(s *Session) error {
		if s.State != SelectingDeleteTarget && s.State != ConfirmingDeletion {
			return ErrUnexpectedState
		}

		s.SelectedID = torrentID
		s.HasSelection = true
		s.State = ConfirmingDeletion

		return nil
	})
}

// TakeDeleteTarget reads and clears the selected torrent, leaving the user
// Idle. ok is false when no deletion was awaiting confirmation, so a repeated
// confirmation never removes twice.
func (st *Store) TakeDeleteTarget(_ context.Context, userID int64) (id int64, ok bool) {
	_ = st.with(userID, func(s *Session) error {
		if s.State == ConfirmingDeletion && s.HasSelection {
			id, ok = s.SelectedID, true
		}

		*s = Session{}

		return nil
	})

	return id, ok
}

// Clear releases anything held and resets the user to Idle.
func (st *Store) Clear(ctx context.Context, userID int64) {
	_ = st.with(userID, func(s *Session) error {
		st.reset(ctx, s)
		return nil
	})
}

// Get returns a snapshot of the user's session. Unknown users read as Idle.
func (st *Store) Get(userID int64) Session {
	st.mu.Lock()
	e, ok := st.entries[userID]
	st.mu.Unlock()

	if !ok {
		return Session{}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	return e.s
}

// ExpireIdle resets every non-idle session whose last activity is older than
// timeout and returns how many were reset.
func (st *Store) ExpireIdle(ctx context.Context, timeout time.Duration) int {
	st.mu.Lock()
	entries := make([]*entry, 0, len(st.entries))
	for _, e := range st.entries {
		entries = append(entries, e)
	}
	st.mu.Unlock()

	now := st.now()
	expired := 0

	for _, e := range entries {
		e.mu.Lock()
		if e.s.State != Idle && now.Sub(e.s.LastActivity) > timeout {
			st.reset(ctx, &e.s)
			e.s.LastActivity = now
			expired++
		}
		e.mu.Unlock()
	}

	return expired
}
