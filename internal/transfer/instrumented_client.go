package transfer

import (
	"context"

	"github.com/italolelis/seedbox_bot/internal/telemetry"
)

// InstrumentedClient wraps Client with telemetry.
type InstrumentedClient struct {
	client     Client
	telemetry  *telemetry.Telemetry
	clientType string
}

var _ Client = (*InstrumentedClient)(nil)

// NewInstrumentedClient creates a new instrumented download engine client.
func NewInstrumentedClient(client Client, tel *telemetry.Telemetry, clientType string) *InstrumentedClient {
	return &InstrumentedClient{
		client:     client,
		telemetry:  tel,
		clientType: clientType,
	}
}

// List retrieves every torrent with telemetry.
func (c *InstrumentedClient) List(ctx context.Context) ([]*Transfer, error) {
	var result []*Transfer

	err := c.telemetry.InstrumentClientOperation(ctx, c.clientType, "list", func(ctx context.Context) error {
		var err error
		result, err = c.client.List(ctx)

		return err
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// Get retrieves one torrent with telemetry.
func (c *InstrumentedClient) Get(ctx context.Context, id int64) (*Transfer, error) {
	var result *Transfer

	err := c.telemetry.InstrumentClientOperation(ctx, c.clientType, "get", func(ctx context.Context) error {
		var err error
		result, err = c.client.Get(ctx, id)

		return err
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// AddMagnet adds a magnet link with telemetry.
func (c *InstrumentedClient) AddMagnet(ctx context.Context, magnetLink, downloadDir string) (*Transfer, error) {
	var result *Transfer

	err := c.telemetry.InstrumentClientOperation(ctx, c.clientType, "add_magnet", func(ctx context.Context) error {
		var err error
		result, err = c.client.AddMagnet(ctx, magnetLink, downloadDir)

		return err
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// AddTorrentFile adds a descriptor file with telemetry.
func (c *InstrumentedClient) AddTorrentFile(ctx context.Context, torrentBytes []byte, downloadDir string) (*Transfer, error) {
	var result *Transfer

	err := c.telemetry.InstrumentClientOperation(ctx, c.clientType, "add_torrent_file", func(ctx context.Context) error {
		var err error
		result, err = c.client.AddTorrentFile(ctx, torrentBytes, downloadDir)

		return err
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// Remove removes a torrent with telemetry.
func (c *InstrumentedClient) Remove(ctx context.Context, id int64, deleteLocalData bool) error {
	return c.telemetry.InstrumentClientOperation(ctx, c.clientType, "remove", func(ctx context.Context) error {
		return c.client.Remove(ctx, id, deleteLocalData)
	})
}

// DownloadDir reads the base download directory with telemetry.
func (c *InstrumentedClient) DownloadDir(ctx context.Context) (string, error) {
	var result string

	err := c.telemetry.InstrumentClientOperation(ctx, c.clientType, "download_dir", func(ctx context.Context) error {
		var err error
		result, err = c.client.DownloadDir(ctx)

		return err
	})
	if err != nil {
		return "", err
	}

	return result, nil
}
