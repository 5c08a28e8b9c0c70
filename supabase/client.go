package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Client wraps the two HTTP APIs a Supabase project exposes: PostgREST table
// access under /rest/v1 and GoTrue auth under /auth/v1. ServiceKey is the
// project service-role key; user-scoped calls pass their own bearer token.
type Client struct {
	BaseURL    string
	ServiceKey string
	HTTPClient *http.Client
}

func NewClient(baseURL, serviceKey string) *Client {
	return &Client{
		BaseURL:    baseURL,
		ServiceKey: serviceKey,
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// Session is the row written to the sessions table when a journaling session
// starts. It is write-only from this backend's point of view.
type Session struct {
	SessionID string `json:"session_id"`
	UserID    string `json:"user_id,omitempty"`
	Date      string `json:"date"`
	CreatedAt string `json:"created_at"`
}

func (c *Client) InsertSession(ctx context.Context, s Session) error {
	return c.Insert(ctx, "sessions", s)
}

// Insert adds one row to a table.
func (c *Client) Insert(ctx context.Context, table string, row any) error {
	body, err := json.Marshal(row)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, "POST",
		fmt.Sprintf("%s/rest/v1/%s", c.BaseURL, table), bytes.NewReader(body))
	if err != nil {
		return err
	}
	c.restHeaders(req)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("supabase insert %s: %w", table, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusError(fmt.Sprintf("insert %s", table), resp)
	}
	return nil
}

// Select fetches the rows of a table matching every equality filter and
// decodes them into out, which must be a pointer to a slice.
func (c *Client) Select(ctx context.Context, table string, filters map[string]string, out any) error {
	params := url.Values{}
	params.Set("select", "*")
	for col, val := range filters {
		params.Set(col, "eq."+val)
	}

	req, err := http.NewRequestWithContext(ctx, "GET",
		fmt.Sprintf("%s/rest/v1/%s?%s", c.BaseURL, table, params.Encode()), nil)
	if err != nil {
		return err
	}
	c.restHeaders(req)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("supabase select %s: %w", table, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return statusError(fmt.Sprintf("select %s", table), resp)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// Count returns how many rows of a table match the equality filters.
func (c *Client) Count(ctx context.Context, table string, filters map[string]string) (int, error) {
	var rows []json.RawMessage
	if err := c.Select(ctx, table, filters, &rows); err != nil {
		return 0, err
	}
	return len(rows), nil
}

// Delete removes the rows of a table matching every equality filter.
func (c *Client) Delete(ctx context.Context, table string, filters map[string]string) error {
	params := url.Values{}
	for col, val := range filters {
		params.Set(col, "eq."+val)
	}

	req, err := http.NewRequestWithContext(ctx, "DELETE",
		fmt.Sprintf("%s/rest/v1/%s?%s", c.BaseURL, table, params.Encode()), nil)
	if err != nil {
		return err
	}
	c.restHeaders(req)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("supabase delete %s: %w", table, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusError(fmt.Sprintf("delete %s", table), resp)
	}
	return nil
}

func (c *Client) restHeaders(req *http.Request) {
	req.Header.Set("apikey", c.ServiceKey)
	req.Header.Set("Authorization", "Bearer "+c.ServiceKey)
	req.Header.Set("Content-Type", "application/json")
}

func statusError(op string, resp *http.Response) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("supabase %s: unexpected status code: %d", op, resp.StatusCode)
	}
	return fmt.Errorf("supabase %s: unexpected status code: %d, response body: %s", op, resp.StatusCode, string(body))
}
