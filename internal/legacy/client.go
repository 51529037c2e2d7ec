// Package legacy talks to the spreadsheet-backed HTTP API the dashboard
// is migrating away from. The client exposes the same page/cell/batch
// surface as the Postgres-backed store so the grid engine and the sync
// job can use either side interchangeably.
package legacy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/folkops/opsboard/internal/grid"
	"github.com/folkops/opsboard/internal/models"
)

// ErrStatus wraps a non-2xx response.
type ErrStatus struct {
	Code int
	Body string
}

func (e *ErrStatus) Error() string {
	return fmt.Sprintf("legacy api: status %d: %s", e.Code, e.Body)
}

// Client is a thin JSON client for the legacy orders API.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// New creates a client for the given base URL. The token, when set, is
// sent as a bearer token on every request.
func New(baseURL, token string) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// NewWithHTTPClient creates a client using a caller-supplied http.Client.
func NewWithHTTPClient(baseURL, token string, hc *http.Client) *Client {
	c := New(baseURL, token)
	c.http = hc
	return c
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &ErrStatus{Code: resp.StatusCode, Body: string(raw)}
	}
	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// FetchPage loads one page of orders from the legacy API.
func (c *Client) FetchPage(ctx context.Context, q grid.Query) (*grid.PageResult, error) {
	query := url.Values{}
	query.Set("page", strconv.Itoa(q.Page))
	query.Set("pageSize", strconv.Itoa(q.PageSize))
	if q.Team != "" {
		query.Set("team", q.Team)
	}
	if q.Status != "" {
		query.Set("status", q.Status)
	}
	for _, m := range q.Markets {
		query.Add("market", m)
	}
	for _, p := range q.Products {
		query.Add("product", p)
	}
	if q.DateFrom != "" {
		query.Set("from", q.DateFrom)
	}
	if q.DateTo != "" {
		query.Set("to", q.DateTo)
	}
	for _, s := range q.AllowedStaff {
		query.Add("staff", s)
	}

	var page grid.PageResult
	if err := c.do(ctx, http.MethodGet, "/api/orders", query, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// UpdateCell updates one cell of one order row.
func (c *Client) UpdateCell(ctx context.Context, rowKey, colKey, value string) error {
	body := models.CellUpdateRequest{Column: colKey, Value: value}
	path := "/api/orders/" + url.PathEscape(rowKey)
	return c.do(ctx, http.MethodPatch, path, nil, body, nil)
}

// UpdateBatch sends several row patches in one request.
func (c *Client) UpdateBatch(ctx context.Context, patches []grid.RowPatch) (grid.BatchResult, error) {
	body := models.BatchUpdateRequest{Rows: patches}
	var resp models.BatchUpdateResponse
	if err := c.do(ctx, http.MethodPost, "/api/orders/batch", nil, body, &resp); err != nil {
		return grid.BatchResult{}, err
	}
	if !resp.Success {
		return grid.BatchResult{}, fmt.Errorf("legacy api: batch rejected")
	}
	return grid.BatchResult{Updated: resp.Summary.Updated}, nil
}

var _ grid.RemoteStore = (*Client)(nil)
