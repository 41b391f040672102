// Package dc builds the download engine backend selected by configuration.
package dc

import (
	"context"
	"fmt"

	"github.com/italolelis/seedbox_bot/internal/config"
	"github.com/italolelis/seedbox_bot/internal/dc/putio"
	"github.com/italolelis/seedbox_bot/internal/dc/transmission"
	"github.com/italolelis/seedbox_bot/internal/telemetry"
	"github.com/italolelis/seedbox_bot/internal/transfer"
)

// Authenticator is implemented by backends that can verify their credentials
// before the bot starts taking requests.
type Authenticator interface {
	Authenticate(ctx context.Context) error
}

// NewClient is an abstract factory for the download engine. The returned
// client is instrumented.
func NewClient(ctx context.Context, cfg *config.Config, tel *telemetry.Telemetry) (transfer.Client, error) {
	var client transfer.Client

	switch cfg.DownloadClient {
	case config.ClientTransmission:
		client = transmission.NewClient(transmission.Config{
			Host:     cfg.Transmission.Host,
			Port:     cfg.Transmission.Port,
			Username: cfg.Transmission.User,
			Password: cfg.Transmission.Pass,
			RPCPath:  cfg.Transmission.RPCPath,
			TLS:      cfg.Transmission.TLS,
		})
	case config.ClientPutio:
		client = putio.NewClient(cfg.PutioToken, cfg.PutioRootDir)
	default:
		return nil, fmt.Errorf("invalid download client: %s", cfg.DownloadClient)
	}

	if auth, ok := client.(Authenticator); ok {
		if err := auth.Authenticate(ctx); err != nil {
			return nil, fmt.Errorf("authentication error: %w", err)
		}
	}

	return transfer.NewInstrumentedClient(client, tel, cfg.DownloadClient), nil
}
