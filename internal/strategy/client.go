package strategy

import (
	"context"
	"io"
	"net/http"
	"time"

	"futures-monitor/internal/api"
	"futures-monitor/internal/types"
)

// Client opens streaming strategy analyses against the dashboard backend.
// The response body is a sequence of "data: "-prefixed event lines consumed
// by stream.Consumer; Open is a stream.Opener.
type Client struct {
	endpoint string
	client   *api.Client
}

// NewClient builds a client for the generate-strategy endpoint. The timeout
// bounds the whole stream, so it is minutes, not seconds: reasoning models
// keep the connection open for a long time.
func NewClient(endpoint string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	return &Client{
		endpoint: endpoint,
		client: api.NewClient(
			api.WithTimeout(timeout),
			api.WithLogging(true),
		),
	}
}

// Open posts the strategy request and returns the unread event stream. A
// non-success status is returned as an error before any event byte is read.
func (c *Client) Open(ctx context.Context, req types.StrategyRequest) (io.ReadCloser, error) {
	r := api.NewRequest(http.MethodPost, c.endpoint).
		WithContext(ctx).
		WithBody(req)
	for k, v := range api.EventStreamHeaders() {
		r.WithHeader(k, v)
	}
	return c.client.Stream(r)
}
