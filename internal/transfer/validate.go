package transfer

import (
	"fmt"

	"github.com/zeebo/bencode"
)

// MaxTorrentSize caps descriptor uploads accepted from chat.
const MaxTorrentSize = 10 * 1024 * 1024

// ValidateTorrentFile checks that data is a non-empty bencoded dictionary
// carrying the mandatory "info" key.
func ValidateTorrentFile(filename string, data []byte) error {
	if len(data) == 0 {
		return &InvalidContentError{Filename: filename, Reason: "file is empty", Err: ErrEmptyUpload}
	}

	if len(data) > MaxTorrentSize {
		return &InvalidContentError{
			Filename: filename,
			Reason:   fmt.Sprintf("size %d bytes exceeds maximum %d bytes", len(data), MaxTorrentSize),
		}
	}

	var torrentData interface{}
	if err := bencode.DecodeBytes(data, &torrentData); err != nil {
		return &InvalidContentError{
			Filename: filename,
			Reason:   fmt.Sprintf("invalid bencode structure: %v", err),
			Err:      err,
		}
	}

	dict, ok := torrentData.(map[string]interface{})
	if !ok {
		return &InvalidContentError{Filename: filename, Reason: "bencode root must be a dictionary"}
	}

	if _, hasInfo := dict["info"]; !hasInfo {
		return &InvalidContentError{Filename: filename, Reason: "bencode missing required 'info' dictionary"}
	}

	return nil
}
