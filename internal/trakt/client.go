// Package trakt is the API client for api.trakt.tv. Every read goes through
// an explicit two-step cache contract: look up the response cache first,
// and store only successful responses after a network fetch. Failures are
// returned as typed errors and never cached.
package trakt

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"traktdata/internal/cache"
	"traktdata/internal/httpclient"
	"traktdata/internal/logging"
)

const defaultBaseURL = "https://api.trakt.tv"

// pageLimit is the page size requested for paginated endpoints.
const pageLimit = 1000

// Options configures a Client.
type Options struct {
	ClientID    string
	AccessToken string
	Timeout     time.Duration
	BaseURL     string // defaults to the production API
	Cache       *cache.Store
}

// Client issues authenticated requests against the Trakt API, using a
// response cache as a write-through layer.
type Client struct {
	http        *httpclient.Client
	baseURL     string
	clientID    string
	accessToken string
	cache       *cache.Store
}

func NewClient(opts Options) *Client {
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		http:        httpclient.NewWithTimeout(opts.Timeout),
		baseURL:     baseURL,
		clientID:    opts.ClientID,
		accessToken: opts.AccessToken,
		cache:       opts.Cache,
	}
}

// Get returns the response payload for a single-page endpoint, serving from
// the cache when an entry exists regardless of its age. Staleness is the
// caller's call: use GetFresh to force a network fetch.
func (c *Client) Get(ctx context.Context, path string, params url.Values) (json.RawMessage, error) {
	return c.get(ctx, path, params, true)
}

// GetFresh bypasses the cache lookup but still stores the response on
// success, refreshing the entry for later runs.
func (c *Client) GetFresh(ctx context.Context, path string, params url.Values) (json.RawMessage, error) {
	return c.get(ctx, path, params, false)
}

// GetInto decodes a cached Get into out.
func (c *Client) GetInto(ctx context.Context, path string, params url.Values, out any) error {
	payload, err := c.Get(ctx, path, params)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("trakt: decoding %s: %w", path, err)
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, useCache bool) (json.RawMessage, error) {
	key := cache.Key(path, params)

	if useCache && c.cache != nil {
		if payload, ok := c.cache.Get(key); ok {
			logging.FromContext(ctx).Debug("cache hit", "path", path)
			return payload, nil
		}
	}

	payload, header, err := c.fetch(ctx, path, params)
	if err != nil {
		return nil, err
	}
	if header.Get("X-Pagination-Page") != "" {
		return nil, fmt.Errorf("trakt: GET %s: paginated response not supported here", path)
	}

	if c.cache != nil {
		if err := c.cache.Put(key, c.requestURL(path, params), payload); err != nil {
			return nil, err
		}
	}
	return payload, nil
}

// Paginated fetches every page of a paginated endpoint and returns the
// combined item array. The joined result is one logical response: it is
// cached under the unpaginated request identity, so a later run replays it
// without touching the network.
func (c *Client) Paginated(ctx context.Context, path string, params url.Values) (json.RawMessage, error) {
	return c.paginated(ctx, path, params, true)
}

// PaginatedFresh is Paginated without the cache lookup.
func (c *Client) PaginatedFresh(ctx context.Context, path string, params url.Values) (json.RawMessage, error) {
	return c.paginated(ctx, path, params, false)
}

func (c *Client) paginated(ctx context.Context, path string, params url.Values, useCache bool) (json.RawMessage, error) {
	key := cache.Key(path, params)

	if useCache && c.cache != nil {
		if payload, ok := c.cache.Get(key); ok {
			logging.FromContext(ctx).Debug("cache hit", "path", path)
			return payload, nil
		}
	}

	logger := logging.FromContext(ctx)

	var items []json.RawMessage
	page := 1
	pageCount := 1
	itemCount := 0

	for page <= pageCount {
		pageParams := url.Values{}
		for k, vs := range params {
			pageParams[k] = vs
		}
		pageParams.Set("page", strconv.Itoa(page))
		pageParams.Set("limit", strconv.Itoa(pageLimit))

		payload, header, err := c.fetch(ctx, path, pageParams)
		if err != nil {
			return nil, err
		}

		pc, err := strconv.Atoi(header.Get("X-Pagination-Page-Count"))
		if err != nil {
			return nil, fmt.Errorf("trakt: GET %s: missing pagination headers", path)
		}
		pageCount = pc
		if ic, err := strconv.Atoi(header.Get("X-Pagination-Item-Count")); err == nil {
			itemCount = ic
		}

		var pageItems []json.RawMessage
		if err := json.Unmarshal(payload, &pageItems); err != nil {
			return nil, fmt.Errorf("trakt: decoding page %d of %s: %w", page, path, err)
		}
		items = append(items, pageItems...)
		page++
	}

	if len(items) != itemCount {
		logger.Warn("pagination item count mismatch", "path", path, "got", len(items), "expected", itemCount)
	}

	if items == nil {
		items = []json.RawMessage{}
	}
	combined, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("trakt: joining pages of %s: %w", path, err)
	}

	if c.cache != nil {
		if err := c.cache.Put(key, c.requestURL(path, params), combined); err != nil {
			return nil, err
		}
	}
	return combined, nil
}

func (c *Client) requestURL(path string, params url.Values) string {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	return u
}

// fetch performs one network GET. Non-2xx responses come back as *APIError;
// transport failures are wrapped. Neither is ever written to the cache.
func (c *Client) fetch(ctx context.Context, path string, params url.Values) (json.RawMessage, http.Header, error) {
	rawURL := c.requestURL(path, params)
	logging.FromContext(ctx).Info("GET", "url", rawURL)

	resp, err := c.http.GetCtx(ctx, rawURL,
		httpclient.WithHeader("Content-Type", "application/json"),
		httpclient.WithHeader("trakt-api-key", c.clientID),
		httpclient.WithHeader("trakt-api-version", "2"),
		httpclient.WithBearer(c.accessToken),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("trakt: GET %s: %w", path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, nil, &APIError{
			Status: resp.StatusCode,
			Path:   path,
			Body:   httpclient.SummarizeBody(resp.Body),
		}
	}
	return resp.Body, resp.Header, nil
}
