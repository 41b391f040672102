package dialog

import (
	"errors"
	"testing"

	"github.com/italolelis/seedbox_bot/internal/transfer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCallback(t *testing.T) {
	tests := []struct {
		data string
		want Action
	}{
		{data: CategoryData(3), want: Action{Kind: ActionCategory, Index: 3}},
		{data: PageData(2), want: Action{Kind: ActionPage, Page: 2}},
		{data: PickData(12345), want: Action{Kind: ActionPick, ID: 12345}},
		{data: ConfirmData(7, true), want: Action{Kind: ActionConfirm, ID: 7, DeleteData: true}},
		{data: ConfirmData(7, false), want: Action{Kind: ActionConfirm, ID: 7}},
		{data: CancelData, want: Action{Kind: ActionCancel}},
	}

	for _, tt := range tests {
		t.Run(tt.data, func(t *testing.T) {
			got, err := ParseCallback(tt.data)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseCallback_Malformed(t *testing.T) {
	for _, data := range []string{"", "cat", "cat:x", "cat:-1", "del:page:-2", "del:pick:abc", "del:ok:1:2", "del:ok:1", "nope:1"} {
		_, err := ParseCallback(data)
		assert.ErrorIs(t, err, ErrMalformedCallback, data)
	}
}

func TestFormatError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "empty upload",
			err:  &transfer.InvalidContentError{Filename: "x", Reason: "file is empty", Err: transfer.ErrEmptyUpload},
			want: "❌ The uploaded file is empty.",
		},
		{
			name: "invalid content",
			err:  &transfer.InvalidContentError{Filename: "x", Reason: "bencode root must be a dictionary"},
			want: "❌ Invalid torrent file: bencode root must be a dictionary",
		},
		{name: "not found", err: &transfer.NotFoundError{ID: 4}, want: "❌ Torrent not found. It may have been removed already."},
		{name: "auth", err: &transfer.AuthenticationError{Operation: "torrent-get"}, want: "❌ The download client rejected our credentials."},
		{name: "directory", err: &transfer.DirectoryError{DirectoryName: "/Movies"}, want: "❌ Download folder unavailable: /Movies"},
		{name: "network", err: &transfer.NetworkError{Operation: "torrent-add", APIMessage: "duplicate torrent"}, want: "❌ Download client error: duplicate torrent"},
		{name: "other", err: errors.New("boom"), want: "❌ Error: boom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, formatError(tt.err))
		})
	}
}
