package putio

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"

	"github.com/italolelis/seedbox_bot/internal/transfer"
	putio "github.com/putdotio/go-putio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(serverURL string) *Client {
	goputioClient := putio.NewClient(nil)
	u, _ := url.Parse(serverURL)
	goputioClient.BaseURL = u

	return &Client{putioClient: goputioClient, rootDir: "/"}
}

const transfersBody = `{"transfers":[
	{"id":1,"name":"queued","status":"IN_QUEUE","percent_done":0,"size":1000},
	{"id":2,"name":"active","status":"DOWNLOADING","percent_done":50,"size":2000,"down_speed":1048576,"up_speed":512},
	{"id":3,"name":"finishing","status":"COMPLETING","percent_done":100,"size":3000},
	{"id":4,"name":"seeding","status":"SEEDING","percent_done":100,"size":4000,"file_id":400},
	{"id":5,"name":"failed","status":"ERROR","percent_done":10,"size":5000,"error_message":"tracker unreachable"},
	{"id":6,"name":"done","status":"COMPLETED","percent_done":100,"size":6000,"file_id":600}
]}`

type fakePutio struct {
	mu    sync.Mutex
	paths []string
}

func (f *fakePutio) handler(t *testing.T) http.Handler {
	t.Helper()

	mux := http.NewServeMux()

	mux.HandleFunc("/v2/transfers/list", func(w http.ResponseWriter, _ *http.Request) {
		f.record("/v2/transfers/list")
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, transfersBody)
	})

	mux.HandleFunc("/v2/transfers/cancel", func(w http.ResponseWriter, r *http.Request) {
		f.record("/v2/transfers/cancel")
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"status":"OK"}`)
	})

	mux.HandleFunc("/v2/files/delete", func(w http.ResponseWriter, r *http.Request) {
		f.record("/v2/files/delete")
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"status":"OK"}`)
	})

	mux.HandleFunc("/v2/transfers/add", func(w http.ResponseWriter, r *http.Request) {
		f.record("/v2/transfers/add")
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"transfer":{"id":77,"name":"new","status":"IN_QUEUE","percent_done":0,"size":0}}`)
	})

	return mux
}

func (f *fakePutio) record(p string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.paths = append(f.paths, p)
}

func (f *fakePutio) calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]string(nil), f.paths...)
}

func newServer(t *testing.T) (*fakePutio, *Client) {
	t.Helper()

	f := &fakePutio{}
	server := httptest.NewServer(f.handler(t))
	t.Cleanup(server.Close)

	return f, newTestClient(server.URL)
}

func TestList_MapsStatuses(t *testing.T) {
	_, client := newServer(t)

	list, err := client.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 6)

	want := []transfer.Status{
		transfer.StatusDownloadPending,
		transfer.StatusDownloading,
		transfer.StatusChecking,
		transfer.StatusSeeding,
		transfer.StatusStopped,
		transfer.StatusStopped,
	}

	for i, status := range want {
		assert.Equal(t, status, list[i].Status, list[i].Name)
	}

	assert.Equal(t, int64(1048576), list[1].RateDownload)
	assert.Equal(t, int64(512), list[1].RateUpload)
	assert.InDelta(t, 50.0, list[1].Progress, 0.001)

	assert.True(t, list[4].HasError())
	assert.Equal(t, 1, list[4].ErrorCode)
	assert.Equal(t, "tracker unreachable", list[4].ErrorMessage)

	assert.True(t, list[5].IsComplete())
	assert.False(t, list[5].HasError())
}

func TestGet(t *testing.T) {
	_, client := newServer(t)

	got, err := client.Get(context.Background(), 4)
	require.NoError(t, err)
	assert.Equal(t, "seeding", got.Name)

	_, err = client.Get(context.Background(), 404)
	assert.True(t, transfer.IsNotFound(err))
}

func TestRemove(t *testing.T) {
	t.Run("cancels and deletes data", func(t *testing.T) {
		f, client := newServer(t)

		require.NoError(t, client.Remove(context.Background(), 6, true))
		assert.Equal(t, []string{"/v2/transfers/list", "/v2/transfers/cancel", "/v2/files/delete"}, f.calls())
	})

	t.Run("keeps data", func(t *testing.T) {
		f, client := newServer(t)

		require.NoError(t, client.Remove(context.Background(), 6, false))
		assert.Equal(t, []string{"/v2/transfers/list", "/v2/transfers/cancel"}, f.calls())
	})

	t.Run("vanished transfer", func(t *testing.T) {
		f, client := newServer(t)

		err := client.Remove(context.Background(), 99, true)
		assert.True(t, transfer.IsNotFound(err))
		assert.Equal(t, []string{"/v2/transfers/list"}, f.calls())
	})
}

func TestAddMagnet_RootFolder(t *testing.T) {
	f, client := newServer(t)

	got, err := client.AddMagnet(context.Background(), "magnet:?xt=urn:btih:abc", "/")
	require.NoError(t, err)

	assert.Equal(t, int64(77), got.ID)
	assert.Equal(t, transfer.StatusDownloadPending, got.Status)
	assert.Equal(t, []string{"/v2/transfers/add"}, f.calls())
}

func TestAddTorrentFile_RejectsInvalidContent(t *testing.T) {
	f, client := newServer(t)

	tests := []struct {
		name   string
		data   []byte
		reason string
	}{
		{name: "oversized", data: make([]byte, transfer.MaxTorrentSize+1), reason: "exceeds maximum"},
		{name: "not bencode", data: []byte("hello"), reason: "invalid bencode"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := client.AddTorrentFile(context.Background(), tt.data, "/Movies")

			var invalidErr *transfer.InvalidContentError
			require.ErrorAs(t, err, &invalidErr)
			assert.Contains(t, invalidErr.Reason, tt.reason)
			assert.Contains(t, invalidErr.Filename, ".torrent")
		})
	}

	assert.Empty(t, f.calls())
}

func TestDownloadDir(t *testing.T) {
	client := NewClient("token", "media/incoming/")

	dir, err := client.DownloadDir(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "/media/incoming", dir)

	dir, err = NewClient("token", "").DownloadDir(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "/", dir)
}

func TestMapStatus_UnknownIsStopped(t *testing.T) {
	assert.Equal(t, transfer.StatusStopped, mapStatus("SOMETHING_NEW"))
	assert.Equal(t, transfer.StatusDownloading, mapStatus("downloading"))
}
