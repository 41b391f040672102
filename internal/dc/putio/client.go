// Package putio adapts the Put.io transfers API to the download engine
// interface.
package putio

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"path"
	"strings"

	"github.com/italolelis/seedbox_bot/internal/logctx"
	"github.com/italolelis/seedbox_bot/internal/transfer"
	"github.com/putdotio/go-putio"
	"golang.org/x/oauth2"
)

// Client implements transfer.Client. Put.io has no session download
// directory, so the configured root folder stands in for it.
type Client struct {
	putioClient *putio.Client
	rootDir     string
}

var _ transfer.Client = (*Client)(nil)

func NewClient(token, rootDir string) *Client {
	tokenSource := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	oauthClient := oauth2.NewClient(context.Background(), tokenSource)

	return &Client{
		putioClient: putio.NewClient(oauthClient),
		rootDir:     normalizeDir(rootDir),
	}
}

func normalizeDir(dir string) string {
	if dir == "" {
		return "/"
	}

	return path.Clean("/" + dir)
}

// Authenticate checks the token against the account endpoint.
func (c *Client) Authenticate(ctx context.Context) error {
	logger := logctx.LoggerFromContext(ctx)

	logger.InfoContext(ctx, "authenticating with Put.io")

	user, err := c.putioClient.Account.Info(ctx)
	if err != nil {
		return &transfer.AuthenticationError{Operation: "account_info", Err: err}
	}

	logger.InfoContext(ctx, "authenticated with Put.io", "user", user.Username)

	return nil
}

func (c *Client) List(ctx context.Context) ([]*transfer.Transfer, error) {
	transfers, err := c.putioClient.Transfers.List(ctx)
	if err != nil {
		return nil, &transfer.NetworkError{Operation: "list_transfers", APIMessage: err.Error(), Err: err}
	}

	out := make([]*transfer.Transfer, 0, len(transfers))
	for _, t := range transfers {
		out = append(out, toTransfer(t))
	}

	return out, nil
}

func (c *Client) Get(ctx context.Context, id int64) (*transfer.Transfer, error) {
	t, err := c.find(ctx, id)
	if err != nil {
		return nil, err
	}

	return toTransfer(t), nil
}

func (c *Client) find(ctx context.Context, id int64) (putio.Transfer, error) {
	transfers, err := c.putioClient.Transfers.List(ctx)
	if err != nil {
		return putio.Transfer{}, &transfer.NetworkError{Operation: "list_transfers", APIMessage: err.Error(), Err: err}
	}

	for _, t := range transfers {
		if t.ID == id {
			return t, nil
		}
	}

	return putio.Transfer{}, &transfer.NotFoundError{ID: id}
}

func (c *Client) AddMagnet(ctx context.Context, magnetLink, downloadDir string) (*transfer.Transfer, error) {
	logger := logctx.LoggerFromContext(ctx).With("download_dir", downloadDir)

	dirID, err := c.resolveDir(ctx, downloadDir)
	if err != nil {
		return nil, err
	}

	t, err := c.putioClient.Transfers.Add(ctx, magnetLink, dirID, "")
	if err != nil {
		return nil, &transfer.NetworkError{Operation: "add_transfer", APIMessage: err.Error(), Err: err}
	}

	logger.InfoContext(ctx, "transfer added to Put.io", "transfer_id", t.ID)

	return toTransfer(t), nil
}

// AddTorrentFile uploads the descriptor; Put.io turns uploaded .torrent files
// into transfers on its own.
func (c *Client) AddTorrentFile(ctx context.Context, torrentBytes []byte, downloadDir string) (*transfer.Transfer, error) {
	sum := sha1.Sum(torrentBytes)
	filename := hex.EncodeToString(sum[:])[:16] + ".torrent"

	logger := logctx.LoggerFromContext(ctx).With("filename", filename, "download_dir", downloadDir)

	if err := transfer.ValidateTorrentFile(filename, torrentBytes); err != nil {
		return nil, err
	}

	dirID, err := c.resolveDir(ctx, downloadDir)
	if err != nil {
		return nil, err
	}

	logger.InfoContext(ctx, "uploading torrent file to Put.io", "size_bytes", len(torrentBytes))

	upload, err := c.putioClient.Files.Upload(ctx, bytes.NewReader(torrentBytes), filename, dirID)
	if err != nil {
		return nil, &transfer.NetworkError{Operation: "upload_torrent", APIMessage: err.Error(), Err: err}
	}

	if upload.Transfer == nil {
		return nil, &transfer.InvalidContentError{
			Filename: filename,
			Reason:   "Put.io did not create transfer (file may not be valid torrent)",
		}
	}

	logger.InfoContext(ctx, "transfer created from torrent upload", "transfer_id", upload.Transfer.ID)

	return toTransfer(*upload.Transfer), nil
}

func (c *Client) Remove(ctx context.Context, id int64, deleteLocalData bool) error {
	logger := logctx.LoggerFromContext(ctx).With("transfer_id", id)

	t, err := c.find(ctx, id)
	if err != nil {
		return err
	}

	if err := c.putioClient.Transfers.Cancel(ctx, t.ID); err != nil {
		return &transfer.NetworkError{Operation: "cancel_transfer", APIMessage: err.Error(), Err: err}
	}

	if deleteLocalData && t.FileID != 0 {
		if err := c.putioClient.Files.Delete(ctx, t.FileID); err != nil {
			return &transfer.NetworkError{Operation: "delete_files", APIMessage: err.Error(), Err: err}
		}

		logger.InfoContext(ctx, "transfer data deleted", "file_id", t.FileID)
	}

	logger.InfoContext(ctx, "transfer removed from Put.io")

	return nil
}

func (c *Client) DownloadDir(context.Context) (string, error) {
	return c.rootDir, nil
}

// resolveDir maps a destination path to a folder id. Put.io folders are found
// by name, so only the last path element is searched for.
func (c *Client) resolveDir(ctx context.Context, downloadDir string) (int64, error) {
	name := path.Base(normalizeDir(downloadDir))
	if name == "/" {
		return 0, nil
	}

	search, err := c.putioClient.Files.Search(ctx, name, 1)
	if err != nil {
		return 0, &transfer.DirectoryError{DirectoryName: downloadDir, Reason: "search failed", Err: err}
	}

	for _, f := range search.Files {
		if f.IsDir() && strings.EqualFold(f.Name, name) {
			return f.ID, nil
		}
	}

	return 0, &transfer.DirectoryError{DirectoryName: downloadDir, Reason: "directory not found or inaccessible"}
}

func toTransfer(t putio.Transfer) *transfer.Transfer {
	out := &transfer.Transfer{
		ID:           t.ID,
		Name:         t.Name,
		Status:       mapStatus(t.Status),
		Progress:     float64(t.PercentDone),
		Size:         int64(t.Size),
		ErrorMessage: t.ErrorMessage,
		RateDownload: int64(t.DownloadSpeed),
		RateUpload:   int64(t.UploadSpeed),
	}

	if strings.EqualFold(t.Status, "ERROR") {
		out.ErrorCode = 1
	}

	return out
}

func mapStatus(status string) transfer.Status {
	switch strings.ToUpper(status) {
	case "IN_QUEUE", "WAITING", "PREPARING_DOWNLOAD":
		return transfer.StatusDownloadPending
	case "DOWNLOADING":
		return transfer.StatusDownloading
	case "COMPLETING":
		return transfer.StatusChecking
	case "SEEDING":
		return transfer.StatusSeeding
	default:
		return transfer.StatusStopped
	}
}
