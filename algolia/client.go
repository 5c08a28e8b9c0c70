package algolia

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

// Client talks to the Algolia indexing and query REST APIs. The write key is
// used for indexing; the search key (falling back to the write key when
// unset) is used for queries.
type Client struct {
	AppID      string
	APIKey     string
	SearchKey  string
	Index      string
	HTTPClient *http.Client

	// WriteBase and SearchBase are derived from AppID by NewClient and only
	// overridden in tests.
	WriteBase  string
	SearchBase string
}

func NewClient(appID, apiKey, searchKey, index string) *Client {
	return &Client{
		AppID:      appID,
		APIKey:     apiKey,
		SearchKey:  searchKey,
		Index:      index,
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
		WriteBase:  fmt.Sprintf("https://%s.algolia.net", appID),
		SearchBase: fmt.Sprintf("https://%s-dsn.algolia.net", appID),
	}
}

// Record is a journal entry as stored in the index. ObjectID is empty on
// first save; Algolia assigns one and the entry is updated in place on
// later saves that carry it.
type Record struct {
	ObjectID  string   `json:"objectID,omitempty"`
	UserID    string   `json:"user_id"`
	SessionID string   `json:"session_id"`
	Date      string   `json:"date"`
	Timestamp string   `json:"timestamp"`
	Title     string   `json:"title"`
	Summary   string   `json:"summary"`
	Tags      []string `json:"tags"`
	Text      string   `json:"text"`
	AudioURL  string   `json:"audio_url,omitempty"`
}

// Hit is the trimmed projection of a Record that queries return.
type Hit struct {
	ObjectID  string   `json:"objectID"`
	Title     string   `json:"title"`
	Summary   string   `json:"summary"`
	Tags      []string `json:"tags"`
	Timestamp string   `json:"timestamp"`
}

type SaveResult struct {
	ObjectID  string `json:"objectID"`
	TaskID    int64  `json:"taskID"`
	UpdatedAt string `json:"updatedAt"`
	CreatedAt string `json:"createdAt"`
}

// SaveObject upserts one record. A record with an ObjectID replaces the
// stored object under that identifier; one without gets a new identifier
// from Algolia.
func (c *Client) SaveObject(ctx context.Context, rec Record) (*SaveResult, error) {
	var endpoint, method string
	if rec.ObjectID != "" {
		endpoint = fmt.Sprintf("%s/1/indexes/%s/%s", c.WriteBase, c.Index, url.PathEscape(rec.ObjectID))
		method = "PUT"
	} else {
		endpoint = fmt.Sprintf("%s/1/indexes/%s", c.WriteBase, c.Index)
		method = "POST"
	}

	body, err := json.Marshal(rec)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	c.setHeaders(req, c.APIKey)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("algolia save: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, statusError("save", resp)
	}

	var result SaveResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}
	if result.ObjectID == "" {
		result.ObjectID = rec.ObjectID
	}
	return &result, nil
}

// SaveObjects upserts a batch of records in one request.
func (c *Client) SaveObjects(ctx context.Context, recs []Record) error {
	type batchRequest struct {
		Action string `json:"action"`
		Body   Record `json:"body"`
	}
	var payload struct {
		Requests []batchRequest `json:"requests"`
	}
	for _, rec := range recs {
		action := "addObject"
		if rec.ObjectID != "" {
			action = "updateObject"
		}
		payload.Requests = append(payload.Requests, batchRequest{Action: action, Body: rec})
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	endpoint := fmt.Sprintf("%s/1/indexes/%s/batch", c.WriteBase, c.Index)
	req, err := http.NewRequestWithContext(ctx, "POST", endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	c.setHeaders(req, c.APIKey)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("algolia batch save: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusError("batch save", resp)
	}
	return nil
}

// Query runs one full-text query against the index. A non-empty userID adds
// an equality facet filter so hits stay scoped to their owner.
func (c *Client) Query(ctx context.Context, term, userID string) ([]Hit, error) {
	params := url.Values{}
	params.Set("query", term)
	if userID != "" {
		params.Set("filters", fmt.Sprintf("user_id:%q", userID))
	}

	body, err := json.Marshal(map[string]string{"params": params.Encode()})
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/1/indexes/%s/query", c.SearchBase, c.Index)
	req, err := http.NewRequestWithContext(ctx, "POST", endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	key := c.SearchKey
	if key == "" {
		key = c.APIKey
	}
	c.setHeaders(req, key)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("algolia query: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError("query", resp)
	}

	var result struct {
		Hits []Hit `json:"hits"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}
	return result.Hits, nil
}

func (c *Client) setHeaders(req *http.Request, key string) {
	req.Header.Set("X-Algolia-API-Key", key)
	req.Header.Set("X-Algolia-Application-Id", c.AppID)
	req.Header.Set("Content-Type", "application/json")
}

func statusError(op string, resp *http.Response) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("algolia %s: unexpected status code: %d", op, resp.StatusCode)
	}
	return fmt.Errorf("algolia %s: unexpected status code: %d, response body: %s", op, resp.StatusCode, string(body))
}
