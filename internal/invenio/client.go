// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package invenio is a client for the INIS records REST API: search,
// record reads, and the draft/publish mutation flow.
package invenio

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/pdiddy/inis-qa/internal/httputil"
	"github.com/pdiddy/inis-qa/pkg/types"
)

// Client talks to one repository instance. A zero Token is fine for search
// and record reads; draft and publish operations need one.
type Client struct {
	BaseURL    string
	Token      string
	UserAgent  string
	HTTP       *http.Client
	MaxRetries int
}

// NewClient builds a Client from repository configuration.
func NewClient(cfg types.RepositoryConfig) *Client {
	return &Client{
		BaseURL:    cfg.BaseURL,
		Token:      cfg.Token,
		UserAgent:  cfg.UserAgent,
		HTTP:       &http.Client{Timeout: cfg.Timeout},
		MaxRetries: cfg.MaxRetries,
	}
}

// SearchResult is the hits envelope of a records search.
type SearchResult struct {
	Total   int
	Records []types.Record
}

type searchResponse struct {
	Hits struct {
		Total   int               `json:"total"`
		Records []json.RawMessage `json:"hits"`
	} `json:"hits"`
}

// Search runs a records query. The query string uses the repository's
// field:value mini-language with boolean AND/NOT terms; it is sent
// URL-encoded as the q parameter. sort may be empty.
func (c *Client) Search(ctx context.Context, query string, size int, sort string) (*SearchResult, error) {
	params := url.Values{
		"q":    {query},
		"size": {strconv.Itoa(size)},
	}
	if sort != "" {
		params.Set("sort", sort)
	}

	reqURL := c.BaseURL + "/api/records?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	c.setHeaders(req)

	resp, err := httputil.DoWithRetry(ctx, c.HTTP, req, c.MaxRetries)
	if err != nil {
		return nil, fmt.Errorf("records search: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("records search returned HTTP %d", resp.StatusCode)
	}

	var sr searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("parsing search response: %w", err)
	}

	result := &SearchResult{Total: sr.Hits.Total}
	for _, raw := range sr.Hits.Records {
		var rec types.Record
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, fmt.Errorf("parsing search hit: %w", err)
		}
		result.Records = append(result.Records, rec)
	}
	return result, nil
}

// GetRecord fetches one record. It returns both the typed record and the
// raw response body, so callers that snapshot the original keep it
// byte-faithful.
func (c *Client) GetRecord(ctx context.Context, id string) (*types.Record, json.RawMessage, error) {
	raw, err := c.getJSON(ctx, c.recordURL(id))
	if err != nil {
		return nil, nil, fmt.Errorf("fetching record %s: %w", id, err)
	}
	var rec types.Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, nil, fmt.Errorf("parsing record %s: %w", id, err)
	}
	return &rec, raw, nil
}

// NewDraft creates (or reopens) the draft for a record. The repository
// signals success by echoing an id.
func (c *Client) NewDraft(ctx context.Context, id string) error {
	raw, err := c.postJSON(ctx, c.draftURL(id))
	if err != nil {
		return fmt.Errorf("creating draft for %s: %w", id, err)
	}
	if !hasID(raw) {
		return fmt.Errorf("creating draft for %s: no id in response", id)
	}
	return nil
}

// GetDraft fetches the full draft document for a record.
func (c *Client) GetDraft(ctx context.Context, id string) (*types.Record, error) {
	raw, err := c.getJSON(ctx, c.draftURL(id))
	if err != nil {
		return nil, fmt.Errorf("fetching draft for %s: %w", id, err)
	}
	var rec types.Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("parsing draft for %s: %w", id, err)
	}
	if rec.ID == "" {
		return nil, fmt.Errorf("fetching draft for %s: no id in response", id)
	}
	return &rec, nil
}

// UpdateDraft replaces the draft with the full record body.
func (c *Client) UpdateDraft(ctx context.Context, id string, rec *types.Record) error {
	body, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshaling draft for %s: %w", id, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.draftURL(id), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	c.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("updating draft for %s: %w", id, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("updating draft for %s: HTTP %d", id, resp.StatusCode)
	}
	return nil
}

// Publish publishes the draft. The repository signals success by echoing
// an id.
func (c *Client) Publish(ctx context.Context, id string) error {
	raw, err := c.postJSON(ctx, c.draftURL(id)+"/actions/publish")
	if err != nil {
		return fmt.Errorf("publishing %s: %w", id, err)
	}
	if !hasID(raw) {
		return fmt.Errorf("publishing %s: no id in response", id)
	}
	return nil
}

func (c *Client) recordURL(id string) string {
	return c.BaseURL + "/api/records/" + url.PathEscape(id)
}

func (c *Client) draftURL(id string) string {
	return c.recordURL(id) + "/draft"
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Accept", "application/json")
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
}

func (c *Client) getJSON(ctx context.Context, reqURL string) (json.RawMessage, error) {
	return c.doJSON(ctx, http.MethodGet, reqURL)
}

func (c *Client) postJSON(ctx context.Context, reqURL string) (json.RawMessage, error) {
	return c.doJSON(ctx, http.MethodPost, reqURL)
}

func (c *Client) doJSON(ctx context.Context, method, reqURL string) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, method, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	return body, nil
}

func hasID(raw json.RawMessage) bool {
	var probe struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return false
	}
	return probe.ID != ""
}
