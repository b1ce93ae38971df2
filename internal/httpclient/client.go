package httpclient

import (
	"context"
	"io"
	"net/http"
	"time"
)

// Client wraps net/http.Client with convenience methods for JSON APIs.
type Client struct {
	http *http.Client
}

// Response wraps the status code, headers, and body bytes from a completed
// HTTP request. The underlying http.Response body is already closed; callers
// read from Body instead.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// New creates a Client with a 30-second timeout.
func New() *Client {
	return &Client{http: &http.Client{Timeout: 30 * time.Second}}
}

// NewWithTimeout creates a Client with the given timeout.
// Falls back to 30s if the value is zero or negative.
func NewWithTimeout(timeout time.Duration) *Client {
	if timeout <= 0 {
		return New()
	}
	return &Client{http: &http.Client{Timeout: timeout}}
}

// RequestOption configures an http.Request before it is sent.
type RequestOption func(*http.Request)

// DoCtx sends an HTTP request with the given context, method and URL, applies
// options, reads the full body, and returns a Response. A non-nil error
// indicates a network-level failure (DNS, connect, timeout) or context
// cancellation; HTTP error status codes are returned in Response.StatusCode.
func (c *Client) DoCtx(ctx context.Context, method, rawURL string, body io.Reader, opts ...RequestOption) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return nil, err
	}
	for _, opt := range opts {
		opt(req)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: respBody}, nil
}

// GetCtx sends a GET request and returns the raw response.
func (c *Client) GetCtx(ctx context.Context, rawURL string, opts ...RequestOption) (*Response, error) {
	return c.DoCtx(ctx, http.MethodGet, rawURL, nil, opts...)
}
