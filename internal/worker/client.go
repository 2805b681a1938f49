package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/velocity-9/v9-router/internal/component"
	"github.com/velocity-9/v9-router/internal/routererr"
)

const (
	statusPath    = "/meta/status"
	forwardPrefix = "/sl"

	// DefaultTimeout bounds every single call to a worker.
	DefaultTimeout = 3 * time.Second

	maxStatusBodyBytes = 1 << 20
)

// Client talks to one worker node. It is immutable after construction; the
// underlying http.Client and its connection pool are shared by all callers.
type Client struct {
	baseURL string
	timeout time.Duration

	httpClient *http.Client
}

func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	tr := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   timeout,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		timeout:    timeout,
		httpClient: &http.Client{Transport: tr},
	}
}

// NewWithHTTPClient is intended for tests; it avoids network access by using
// a custom RoundTripper.
func NewWithHTTPClient(baseURL string, timeout time.Duration, httpClient *http.Client) *Client {
	c := New(baseURL, timeout)
	if httpClient != nil {
		c.httpClient = httpClient
	}
	return c
}

func (c *Client) BaseURL() string { return c.baseURL }

// ListComponents fetches the worker's component inventory from /meta/status
// and returns the hosted component paths in source order.
func (c *Client) ListComponents(ctx context.Context) ([]component.Path, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+statusPath, nil)
	if err != nil {
		return nil, routererr.Network(err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, routererr.Network(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxStatusBodyBytes))
	if err != nil {
		return nil, routererr.Network(err)
	}

	var status component.StatusResponse
	if err := json.Unmarshal(body, &status); err != nil {
		return nil, routererr.Decode(err)
	}

	paths := make([]component.Path, 0, len(status.ActiveComponents))
	for _, ac := range status.ActiveComponents {
		paths = append(paths, ac.ID.Path)
	}
	return paths, nil
}

// Forward relays a component request to this worker and returns the worker's
// status code and raw body. Status codes are data here, never errors; the
// forwarding policy upstairs decides what a 404 means.
func (c *Client) Forward(ctx context.Context, req component.Request) (int, []byte, error) {
	url := c.baseURL + forwardPrefix + "/" + req.Path.User + "/" + req.Path.Repo + "/" + req.Method
	if req.Query != "" {
		url += "?" + req.Query
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, req.Verb, url, bytes.NewReader(req.Body))
	if err != nil {
		return 0, nil, routererr.Network(err)
	}
	if req.ContentType != "" {
		httpReq.Header.Set("Content-Type", req.ContentType)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return 0, nil, routererr.Network(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, routererr.Network(err)
	}
	return resp.StatusCode, body, nil
}
