// Package transmission talks to a Transmission daemon over its JSON-RPC API.
package transmission

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/italolelis/seedbox_bot/internal/logctx"
	"github.com/italolelis/seedbox_bot/internal/transfer"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	DefaultPort    = 9091
	DefaultRPCPath = "/transmission/rpc"
)

type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	RPCPath  string
	TLS      bool
	Insecure bool // skip TLS verification
	Timeout  time.Duration
}

// Client implements transfer.Client.
type Client struct {
	endpoint   string
	username   string
	password   string
	httpClient *http.Client

	mu        sync.Mutex
	sessionID string
}

var _ transfer.Client = (*Client)(nil)

func NewClient(cfg Config) *Client {
	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}

	if cfg.RPCPath == "" {
		cfg.RPCPath = DefaultRPCPath
	}

	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	scheme := "http"
	if cfg.TLS {
		scheme = "https"
	}

	base := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.Insecure {
		base.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec
	}

	return &Client{
		endpoint: fmt.Sprintf("%s://%s%s", scheme, net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)), cfg.RPCPath),
		username: cfg.Username,
		password: cfg.Password,
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(base),
		},
	}
}

// NewClientWithURL points the client at a full RPC URL.
func NewClientWithURL(endpoint, username, password string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	return &Client{endpoint: endpoint, username: username, password: password, httpClient: httpClient}
}

func (c *Client) List(ctx context.Context) ([]*transfer.Transfer, error) {
	var res torrentList
	if err := c.call(ctx, "torrent-get", getArgs{Fields: torrentFields}, &res); err != nil {
		return nil, err
	}

	transfers := make([]*transfer.Transfer, 0, len(res.Torrents))
	for _, t := range res.Torrents {
		transfers = append(transfers, t.toTransfer())
	}

	return transfers, nil
}

func (c *Client) Get(ctx context.Context, id int64) (*transfer.Transfer, error) {
	var res torrentList
	if err := c.call(ctx, "torrent-get", getArgs{Fields: torrentFields, IDs: []int64{id}}, &res); err != nil {
		return nil, err
	}

	for _, t := range res.Torrents {
		if t.ID == id {
			return t.toTransfer(), nil
		}
	}

	return nil, &transfer.NotFoundError{ID: id}
}

func (c *Client) AddMagnet(ctx context.Context, magnetLink, downloadDir string) (*transfer.Transfer, error) {
	return c.add(ctx, addArgs{Filename: magnetLink, DownloadDir: downloadDir})
}

func (c *Client) AddTorrentFile(ctx context.Context, torrentBytes []byte, downloadDir string) (*transfer.Transfer, error) {
	return c.add(ctx, addArgs{
		MetaInfo:    base64.StdEncoding.EncodeToString(torrentBytes),
		DownloadDir: downloadDir,
	})
}

func (c *Client) add(ctx context.Context, args addArgs) (*transfer.Transfer, error) {
	logger := logctx.LoggerFromContext(ctx).With("method", "torrent-add")

	var res addResult
	if err := c.call(ctx, "torrent-add", args, &res); err != nil {
		return nil, err
	}

	added := res.Added
	if added == nil {
		added = res.Duplicate

		logger.InfoContext(ctx, "torrent already present", "download_dir", args.DownloadDir)
	}

	if added == nil {
		return nil, &transfer.NetworkError{Operation: "torrent-add", APIMessage: "response carries no torrent"}
	}

	return &transfer.Transfer{ID: added.ID, Name: added.Name, Status: transfer.StatusDownloadPending}, nil
}

// Remove fails with a NotFoundError when id is no longer known to the daemon,
// which would otherwise accept the call silently.
func (c *Client) Remove(ctx context.Context, id int64, deleteLocalData bool) error {
	if _, err := c.Get(ctx, id); err != nil {
		return err
	}

	return c.call(ctx, "torrent-remove", removeArgs{IDs: []int64{id}, DeleteLocalData: deleteLocalData}, nil)
}

func (c *Client) DownloadDir(ctx context.Context) (string, error) {
	var res sessionSettings
	if err := c.call(ctx, "session-get", nil, &res); err != nil {
		return "", err
	}

	return res.DownloadDir, nil
}

// call performs one RPC, repeating it once when the daemon asks for a fresh
// session id with a 409.
func (c *Client) call(ctx context.Context, method string, args, out any) error {
	body, err := json.Marshal(rpcRequest{Method: method, Arguments: args})
	if err != nil {
		return fmt.Errorf("failed to marshal %s request: %w", method, err)
	}

	for attempt := 0; attempt < 2; attempt++ {
		resp, err := c.do(ctx, body)
		if err != nil {
			return &transfer.NetworkError{Operation: method, APIMessage: err.Error(), Err: err}
		}

		if resp.StatusCode == http.StatusConflict {
			c.setSessionID(resp.Header.Get(sessionHeader))
			drain(resp)

			logctx.LoggerFromContext(ctx).DebugContext(ctx, "refreshed transmission session id", "method", method)

			continue
		}

		return c.decode(method, resp, out)
	}

	return &transfer.NetworkError{
		Operation:  method,
		StatusCode: http.StatusConflict,
		APIMessage: "session id handshake failed",
	}
}

func (c *Client) do(ctx context.Context, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")

	if id := c.getSessionID(); id != "" {
		req.Header.Set(sessionHeader, id)
	}

	if c.username != "" || c.password != "" {
		req.SetBasicAuth(c.username, c.password)
	}

	return c.httpClient.Do(req)
}

func (c *Client) decode(method string, resp *http.Response, out any) error {
	defer drain(resp)

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return &transfer.AuthenticationError{
			Operation: method,
			Err:       fmt.Errorf("HTTP %d", resp.StatusCode),
		}
	case resp.StatusCode != http.StatusOK:
		return &transfer.NetworkError{
			Operation:  method,
			StatusCode: resp.StatusCode,
			APIMessage: http.StatusText(resp.StatusCode),
		}
	}

	var rpc rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&rpc); err != nil {
		return &transfer.NetworkError{Operation: method, APIMessage: "malformed response", Err: err}
	}

	if rpc.Result != resultSuccess {
		return &transfer.NetworkError{Operation: method, APIMessage: rpc.Result}
	}

	if out == nil || len(rpc.Arguments) == 0 {
		return nil
	}

	if err := json.Unmarshal(rpc.Arguments, out); err != nil {
		return &transfer.NetworkError{Operation: method, APIMessage: "malformed arguments", Err: err}
	}

	return nil
}

func (c *Client) getSessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.sessionID
}

func (c *Client) setSessionID(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.sessionID = id
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}
