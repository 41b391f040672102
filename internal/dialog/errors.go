package dialog

import (
	"errors"
	"fmt"

	"github.com/italolelis/seedbox_bot/internal/transfer"
)

// formatError turns a failure into the text shown to the user.
func formatError(err error) string {
	var (
		invalid *transfer.InvalidContentError
		dirErr  *transfer.DirectoryError
		authErr *transfer.AuthenticationError
		netErr  *transfer.NetworkError
	)

	switch {
	case errors.Is(err, transfer.ErrEmptyUpload):
		return "❌ The uploaded file is empty."
	case errors.As(err, &invalid):
		return "❌ Invalid torrent file: " + invalid.Reason
	case transfer.IsNotFound(err):
		return "❌ Torrent not found. It may have been removed already."
	case errors.As(err, &authErr):
		return "❌ The download client rejected our credentials."
	case errors.As(err, &dirErr):
		return fmt.Sprintf("❌ Download folder unavailable: %s", dirErr.DirectoryName)
	case errors.As(err, &netErr):
		return "❌ Download client error: " + netErr.APIMessage
	default:
		return "❌ Error: " + err.Error()
	}
}
