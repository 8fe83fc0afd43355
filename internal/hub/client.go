// Package hub is the remote dataset gateway: a thin client for the
// HuggingFace datasets-server rows API. It performs a single paged fetch per
// call and carries no state beyond the configured HTTP client; paging,
// retries and caching belong to the callers.
package hub

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const (
	// DefaultBaseURL is the public datasets-server endpoint.
	DefaultBaseURL = "https://datasets-server.huggingface.co"

	// DefaultTimeout bounds a single page fetch. A timed-out page is treated
	// like any other transient failure by the orchestrator.
	DefaultTimeout = 60 * time.Second
)

// Row is one raw, provider-defined row prior to normalization.
type Row struct {
	Index  int
	Fields map[string]any
}

// Page is the result of a single paged fetch.
type Page struct {
	Rows      []Row
	TotalRows int
}

// Config holds the gateway client configuration.
type Config struct {
	BaseURL    string
	Token      string        // optional bearer token for gated datasets
	Timeout    time.Duration // per-page fetch timeout
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Client fetches dataset rows from the datasets-server API.
type Client struct {
	baseURL string
	token   string
	timeout time.Duration
	hc      *http.Client
	logger  *slog.Logger
}

// New creates a gateway client with the given configuration.
func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = http.DefaultClient
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Client{
		baseURL: cfg.BaseURL,
		token:   cfg.Token,
		timeout: cfg.Timeout,
		hc:      cfg.HTTPClient,
		logger:  cfg.Logger,
	}
}

// rowsResponse mirrors the datasets-server /rows payload.
type rowsResponse struct {
	Rows []struct {
		RowIdx int            `json:"row_idx"`
		Row    map[string]any `json:"row"`
	} `json:"rows"`
	NumRowsTotal int `json:"num_rows_total"`
}

// FetchPage requests rows [offset, offset+length) of the given dataset split.
// Failures come back as *StatusError for non-2xx responses and wrapped
// transport errors otherwise, so callers can distinguish the categories.
func (c *Client) FetchPage(ctx context.Context, dataset, config, split string, offset, length int) (*Page, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	q := url.Values{}
	q.Set("dataset", dataset)
	q.Set("config", config)
	q.Set("split", split)
	q.Set("offset", strconv.Itoa(offset))
	q.Set("length", strconv.Itoa(length))

	reqURL := c.baseURL + "/rows?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("hub: building rows request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	c.logger.Debug("fetching dataset page",
		"dataset", dataset, "offset", offset, "length", length)

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("hub: fetching rows for %s: %w", dataset, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		// Read a bounded amount of the body for the error message.
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &StatusError{
			StatusCode: resp.StatusCode,
			Dataset:    dataset,
			Body:       string(body),
		}
	}

	var parsed rowsResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("hub: decoding rows response for %s: %w", dataset, err)
	}

	page := &Page{
		Rows:      make([]Row, 0, len(parsed.Rows)),
		TotalRows: parsed.NumRowsTotal,
	}
	for _, r := range parsed.Rows {
		page.Rows = append(page.Rows, Row{Index: r.RowIdx, Fields: r.Row})
	}
	return page, nil
}
