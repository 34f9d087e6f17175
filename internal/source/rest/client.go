// Package rest is the categories backend adapter speaking the backend's JSON
// REST API.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"kasa/internal/core"
	"kasa/internal/source"
)

// DefaultTimeout bounds a single backend round-trip when no client is supplied.
const DefaultTimeout = 10 * time.Second

// maxErrorBody caps how much of an error response is read for its message.
const maxErrorBody = 4 << 10

type Client struct {
	baseURL string
	http    *http.Client
}

// New returns a client for the API rooted at baseURL. A nil httpClient gets a
// client with the given timeout (DefaultTimeout when zero).
func New(baseURL string, timeout time.Duration, httpClient *http.Client) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}
}

func (c *Client) ListCategories(ctx context.Context, includeArchived bool) ([]core.Category, error) {
	path := "/categories"
	if includeArchived {
		path = "/categories/all"
	}
	var wire []wireCategory
	if err := c.do(ctx, http.MethodGet, path, nil, &wire); err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	out := make([]core.Category, 0, len(wire))
	for _, w := range wire {
		out = append(out, w.toCore())
	}
	return out, nil
}

func (c *Client) GetCategory(ctx context.Context, id int64) (core.Category, error) {
	var w wireCategory
	if err := c.do(ctx, http.MethodGet, categoryPath(id), nil, &w); err != nil {
		return core.Category{}, fmt.Errorf("get category %d: %w", id, err)
	}
	return w.toCore(), nil
}

func (c *Client) CreateCategory(ctx context.Context, in core.CategoryInput) (core.Category, error) {
	var w wireCategory
	if err := c.do(ctx, http.MethodPost, "/categories", toWireInput(in), &w); err != nil {
		return core.Category{}, fmt.Errorf("create category: %w", err)
	}
	return w.toCore(), nil
}

func (c *Client) UpdateCategory(ctx context.Context, id int64, in core.CategoryInput) (core.Category, error) {
	var w wireCategory
	if err := c.do(ctx, http.MethodPut, categoryPath(id), toWireInput(in), &w); err != nil {
		return core.Category{}, fmt.Errorf("update category %d: %w", id, err)
	}
	return w.toCore(), nil
}

// ArchiveCategory soft-deletes a category. Any 2xx response counts as success,
// with or without a body.
func (c *Client) ArchiveCategory(ctx context.Context, id int64) error {
	if err := c.do(ctx, http.MethodDelete, categoryPath(id), nil, nil); err != nil {
		return fmt.Errorf("archive category %d: %w", id, err)
	}
	return nil
}

func (c *Client) RestoreCategory(ctx context.Context, id int64) (core.Category, error) {
	var w wireCategory
	if err := c.do(ctx, http.MethodPost, categoryPath(id)+"/restore", nil, &w); err != nil {
		return core.Category{}, fmt.Errorf("restore category %d: %w", id, err)
	}
	return w.toCore(), nil
}

func (c *Client) ListTransactions(ctx context.Context) ([]core.Transaction, error) {
	var wire []wireTransaction
	if err := c.do(ctx, http.MethodGet, "/transactions", nil, &wire); err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	out := make([]core.Transaction, 0, len(wire))
	for _, w := range wire {
		out = append(out, w.toCore())
	}
	return out, nil
}

func categoryPath(id int64) string {
	return "/categories/" + url.PathEscape(strconv.FormatInt(id, 10))
}

func toWireInput(in core.CategoryInput) wireCategoryInput {
	return wireCategoryInput{
		Name:  strings.TrimSpace(in.Name),
		Type:  string(in.Type),
		Color: in.Color,
	}
}

// do sends one request and decodes a JSON response into out when out is not
// nil. An empty 2xx body leaves out untouched. A list response may also be
// wrapped as {"data": [...]}.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reqBody = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", core.ErrNetwork, method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read response: %v", core.ErrNetwork, err)
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(unwrapData(raw), out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// unwrapData returns the "data" member of an enveloped response, or raw
// itself when there is no envelope.
func unwrapData(raw []byte) []byte {
	if raw[0] != '{' {
		return raw
	}
	var env struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &env); err != nil || len(env.Data) == 0 {
		return raw
	}
	return env.Data
}

// statusError maps a non-2xx response to the error taxonomy.
func statusError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var we wireError
	_ = json.Unmarshal(raw, &we)
	msg := we.text()
	if msg == "" {
		msg = strings.TrimSpace(string(raw))
	}

	switch resp.StatusCode {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", core.ErrNotFound, resp.Status)
	case http.StatusConflict:
		return fmt.Errorf("%w: %s", core.ErrConflict, firstNonEmpty(msg, resp.Status))
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		if msg == "" {
			msg = "the server rejected the request"
		}
		return core.NewValidationError(we.Field, msg)
	}
	return fmt.Errorf("unexpected status %s", resp.Status)
}

var _ source.Backend = (*Client)(nil)
