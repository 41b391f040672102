package dc

import (
	"context"
	"testing"

	"github.com/italolelis/seedbox_bot/internal/config"
	"github.com/italolelis/seedbox_bot/internal/transfer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient(t *testing.T) {
	t.Run("transmission", func(t *testing.T) {
		cfg := &config.Config{DownloadClient: config.ClientTransmission}
		cfg.Transmission.Host = "localhost"

		client, err := NewClient(context.Background(), cfg, nil)
		require.NoError(t, err)
		assert.IsType(t, &transfer.InstrumentedClient{}, client)
	})

	t.Run("unknown backend", func(t *testing.T) {
		cfg := &config.Config{DownloadClient: "deluge"}

		_, err := NewClient(context.Background(), cfg, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid download client: deluge")
	})
}
