package notion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	defaultAPIBase = "https://api.notion.com/v1"
	// defaultAPIVersion must support the data source endpoints; the
	// /v1/data_sources family only exists from 2025-09-03 on.
	defaultAPIVersion = "2025-09-03"
	pageSize          = 100
)

// Client talks to the Notion REST API. It only reads: data source
// queries and block children listings.
type Client struct {
	token      string
	baseURL    string
	apiVersion string
	httpClient *http.Client
}

// NewClient creates an API client for the given integration token.
func NewClient(token string) *Client {
	return &Client{
		token:      token,
		baseURL:    defaultAPIBase,
		apiVersion: defaultAPIVersion,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// RecordPage is one page of a paginated data source query.
type RecordPage struct {
	Results    []Record `json:"results"`
	HasMore    bool     `json:"has_more"`
	NextCursor string   `json:"next_cursor"`
}

// BlockPage is one page of a paginated block children listing.
type BlockPage struct {
	Results    []Block `json:"results"`
	HasMore    bool    `json:"has_more"`
	NextCursor string  `json:"next_cursor"`
}

// QueryDataSource fetches one page of records from a data source.
// Pass cursor "" for the first page.
func (c *Client) QueryDataSource(ctx context.Context, dataSourceID, cursor string) (*RecordPage, error) {
	body := map[string]interface{}{
		"page_size": pageSize,
	}
	if cursor != "" {
		body["start_cursor"] = cursor
	}

	url := fmt.Sprintf("%s/data_sources/%s/query", c.baseURL, dataSourceID)
	resp, err := c.doRequest(ctx, http.MethodPost, url, body)
	if err != nil {
		return nil, err
	}

	var page RecordPage
	if err := json.Unmarshal(resp, &page); err != nil {
		return nil, fmt.Errorf("parse data source response: %w", err)
	}
	return &page, nil
}

// BlockChildren fetches one page of a block's direct children.
// Pass cursor "" for the first page.
func (c *Client) BlockChildren(ctx context.Context, blockID, cursor string) (*BlockPage, error) {
	url := fmt.Sprintf("%s/blocks/%s/children?page_size=%d", c.baseURL, blockID, pageSize)
	if cursor != "" {
		url += "&start_cursor=" + cursor
	}

	resp, err := c.doRequest(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	var page BlockPage
	if err := json.Unmarshal(resp, &page); err != nil {
		return nil, fmt.Errorf("parse block children response: %w", err)
	}
	return &page, nil
}

func (c *Client) doRequest(ctx context.Context, method, url string, body interface{}) ([]byte, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Notion-Version", c.apiVersion)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("notion api error %d: %s", resp.StatusCode, respBody)
	}
	return respBody, nil
}
