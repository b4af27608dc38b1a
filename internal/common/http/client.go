// Package http wraps the outbound HTTP client used by the provider
// adapters and the directory proxy, one client per provider timeout.
package http

import (
	"context"
	"net/http"
	"time"
)

type Client struct {
	httpClient *http.Client
}

func NewClient(timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// DoWithContext executes the request under the caller's context in
// addition to the client timeout.
func (c *Client) DoWithContext(ctx context.Context, req *http.Request) (*http.Response, error) {
	req = req.WithContext(ctx)
	return c.httpClient.Do(req)
}
