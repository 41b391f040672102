package transmission

import (
	"encoding/json"

	"github.com/italolelis/seedbox_bot/internal/transfer"
)

const (
	sessionHeader = "X-Transmission-Session-Id"
	resultSuccess = "success"
)

// torrentFields is what torrent-get asks for on every call.
var torrentFields = []string{
	"id",
	"name",
	"status",
	"percentDone",
	"totalSize",
	"error",
	"errorString",
	"rateDownload",
	"rateUpload",
}

type rpcRequest struct {
	Method    string `json:"method"`
	Arguments any    `json:"arguments,omitempty"`
}

type rpcResponse struct {
	Result    string          `json:"result"`
	Arguments json.RawMessage `json:"arguments"`
}

type getArgs struct {
	Fields []string `json:"fields"`
	IDs    []int64  `json:"ids,omitempty"`
}

type addArgs struct {
	Filename    string `json:"filename,omitempty"`
	MetaInfo    string `json:"metainfo,omitempty"`
	DownloadDir string `json:"download-dir,omitempty"`
}

type removeArgs struct {
	IDs             []int64 `json:"ids"`
	DeleteLocalData bool    `json:"delete-local-data"`
}

type torrentList struct {
	Torrents []rpcTorrent `json:"torrents"`
}

type addedTorrent struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type addResult struct {
	Added     *addedTorrent `json:"torrent-added"`
	Duplicate *addedTorrent `json:"torrent-duplicate"`
}

type sessionSettings struct {
	DownloadDir string `json:"download-dir"`
	Version     string `json:"version"`
	RPCVersion  int    `json:"rpc-version"`
}

type rpcTorrent struct {
	ID           int64   `json:"id"`
	Name         string  `json:"name"`
	Status       int     `json:"status"`
	PercentDone  float64 `json:"percentDone"`
	TotalSize    int64   `json:"totalSize"`
	Error        int     `json:"error"`
	ErrorString  string  `json:"errorString"`
	RateDownload int64   `json:"rateDownload"`
	RateUpload   int64   `json:"rateUpload"`
}

// toTransfer maps the engine's 0..6 status codes one to one and scales the
// 0..1 completion ratio to a percentage.
func (t rpcTorrent) toTransfer() *transfer.Transfer {
	return &transfer.Transfer{
		ID:           t.ID,
		Name:         t.Name,
		Status:       transfer.Status(t.Status),
		Progress:     t.PercentDone * 100,
		Size:         t.TotalSize,
		ErrorCode:    t.Error,
		ErrorMessage: t.ErrorString,
		RateDownload: t.RateDownload,
		RateUpload:   t.RateUpload,
	}
}
