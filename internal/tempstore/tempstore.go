// Package tempstore keeps uploaded torrent descriptors on local disk until they
// are submitted to the download engine or discarded.
package tempstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/italolelis/seedbox_bot/internal/logctx"
	"github.com/italolelis/seedbox_bot/internal/telemetry"
	"github.com/italolelis/seedbox_bot/internal/transfer"
	"github.com/segmentio/ksuid"
)

const (
	blobExt  = ".torrent"
	dirPerm  = 0o700
	filePerm = 0o600
)

// ErrBlobReleased is returned when reading a blob that was already released.
var ErrBlobReleased = errors.New("blob already released")

// Blob is a handle to one stored upload. It is owned by a single session.
type Blob struct {
	Path      string
	Size      int64
	CreatedAt time.Time

	released atomic.Bool
}

// Released reports whether the backing file has been removed.
func (b *Blob) Released() bool {
	return b.released.Load()
}

// Store owns a directory of blobs.
type Store struct {
	dir       string
	telemetry *telemetry.Telemetry

	mu   sync.Mutex
	live map[string]*Blob
}

// New creates dir if needed.
func New(dir string, tel *telemetry.Telemetry) (*Store, error) {
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}

	return &Store{dir: dir, telemetry: tel, live: make(map[string]*Blob)}, nil
}

// Dir returns the directory blobs are written to.
func (s *Store) Dir() string {
	return s.dir
}

// Create writes data under a fresh collision-free name.
func (s *Store) Create(ctx context.Context, data []byte) (*Blob, error) {
	if len(data) == 0 {
		return nil, transfer.ErrEmptyUpload
	}

	path := filepath.Join(s.dir, ksuid.New().String()+blobExt)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, filePerm)
	if err != nil {
		return nil, fmt.Errorf("failed to create blob: %w", err)
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(path)

		return nil, fmt.Errorf("failed to write blob: %w", err)
	}

	if err := f.Close(); err != nil {
		os.Remove(path)

		return nil, fmt.Errorf("failed to close blob: %w", err)
	}

	blob := &Blob{Path: path, Size: int64(len(data)), CreatedAt: time.Now()}

	s.mu.Lock()
	s.live[path] = blob
	s.mu.Unlock()

	s.telemetry.AddTempBlobs(ctx, 1)

	logctx.LoggerFromContext(ctx).DebugContext(ctx, "stored uploaded descriptor", "path", path, "size_bytes", blob.Size)

	return blob, nil
}

// ReadAndConsume returns the full contents of b. The caller must Release b
// afterwards.
func (s *Store) ReadAndConsume(ctx context.Context, b *Blob) ([]byte, error) {
	if b == nil || b.Released() {
		return nil, ErrBlobReleased
	}

	data, err := os.ReadFile(b.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read blob: %w", err)
	}

	return data, nil
}

// Release removes b. It is idempotent, a missing file counts as success, and
// other failures are logged and swallowed.
func (s *Store) Release(ctx context.Context, b *Blob) {
	if b == nil || !b.released.CompareAndSwap(false, true) {
		return
	}

	s.mu.Lock()
	delete(s.live, b.Path)
	s.mu.Unlock()

	s.telemetry.AddTempBlobs(ctx, -1)

	if err := os.Remove(b.Path); err != nil && !os.IsNotExist(err) {
		logctx.LoggerFromContext(ctx).WarnContext(ctx, "failed to remove blob", "path", b.Path, "err", err)
	}
}

// Live returns the number of blobs created and not yet released.
func (s *Store) Live() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.live)
}

// Sweep deletes blob files older than maxAge that no live handle refers to,
// such as files left behind by a crash. It returns the number removed.
func (s *Store) Sweep(ctx context.Context, maxAge time.Duration) (int, error) {
	logger := logctx.LoggerFromContext(ctx)

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, fmt.Errorf("failed to list temp dir: %w", err)
	}

	now := time.Now()
	removed := 0

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), blobExt) {
			continue
		}

		path := filepath.Join(s.dir, entry.Name())

		s.mu.Lock()
		_, isLive := s.live[path]
		s.mu.Unlock()

		if isLive {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}

			logger.ErrorContext(ctx, "failed to stat blob", "file", path, "err", err)

			continue
		}

		if now.Sub(info.ModTime()) <= maxAge {
			continue
		}

		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			logger.ErrorContext(ctx, "failed to delete expired blob", "file", path, "err", err)

			continue
		}

		removed++

		logger.InfoContext(ctx, "deleted expired blob", "file", path)
	}

	return removed, nil
}
