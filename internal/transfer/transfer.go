package transfer

import (
	"context"
	"fmt"
)

// Status is the lifecycle state of a torrent as reported by the download engine.
type Status int

const (
	StatusStopped Status = iota
	StatusCheckPending
	StatusChecking
	StatusDownloadPending
	StatusDownloading
	StatusSeedPending
	StatusSeeding
)

func (s Status) String() string {
	switch s {
	case StatusStopped:
		return "stopped"
	case StatusCheckPending:
		return "check pending"
	case StatusChecking:
		return "checking"
	case StatusDownloadPending:
		return "download pending"
	case StatusDownloading:
		return "downloading"
	case StatusSeedPending:
		return "seed pending"
	case StatusSeeding:
		return "seeding"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// Transfer is a point-in-time snapshot of one torrent. Snapshots are rebuilt on
// every poll and never mutated after the client hands them out.
type Transfer struct {
	ID           int64
	Name         string
	Status       Status
	Progress     float64 // percent, 0..100
	Size         int64
	ErrorCode    int
	ErrorMessage string
	RateDownload int64
	RateUpload   int64
}

// IsComplete reports whether every byte of the torrent is present.
func (t *Transfer) IsComplete() bool {
	return t.Progress >= 100
}

// HasError reports whether the engine flagged the torrent with an error.
func (t *Transfer) HasError() bool {
	return t.ErrorCode != 0 || t.ErrorMessage != ""
}

func (t *Transfer) IsDownloading() bool {
	return t.Status == StatusDownloading || t.Status == StatusDownloadPending
}

func (t *Transfer) IsSeeding() bool {
	return t.Status == StatusSeeding || t.Status == StatusSeedPending
}

// Lister is the read-only slice of Client used by background pollers.
type Lister interface {
	List(ctx context.Context) ([]*Transfer, error)
}

// Client is the download engine control surface.
type Client interface {
	Lister
	Get(ctx context.Context, id int64) (*Transfer, error)
	AddMagnet(ctx context.Context, magnetLink, downloadDir string) (*Transfer, error)
	AddTorrentFile(ctx context.Context, torrentBytes []byte, downloadDir string) (*Transfer, error)
	Remove(ctx context.Context, id int64, deleteLocalData bool) error
	DownloadDir(ctx context.Context) (string, error)
}
