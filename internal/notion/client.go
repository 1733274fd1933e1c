package notion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

const (
	// BaseURL is the Notion REST API base URL.
	BaseURL = "https://api.notion.com/v1"

	// APIVersion is the Notion-Version header sent with every request.
	APIVersion = "2022-06-28"

	// DefaultTimeout bounds each request.
	DefaultTimeout = 30 * time.Second

	// RateLimit is the average request rate Notion allows per integration.
	RateLimit = 3.0

	// DefaultPageSize is the page size used for database queries (the API maximum).
	DefaultPageSize = 100
)

// Client is a rate-limited HTTP client for the Notion API. Requests are
// issued one at a time.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	token      string
	baseURL    string
	pageSize   int
	timeout    time.Duration
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(url string) ClientOption {
	return func(c *Client) {
		c.baseURL = url
	}
}

// WithPageSize sets the page size of database queries.
func WithPageSize(n int) ClientOption {
	return func(c *Client) {
		if n > 0 && n <= DefaultPageSize {
			c.pageSize = n
		}
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithRateLimit sets the request rate in requests per second.
func WithRateLimit(perSecond float64) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
	}
}

// NewClient creates a Notion client authenticated with an integration token.
func NewClient(token string, opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{},
		limiter:    rate.NewLimiter(rate.Limit(RateLimit), 1),
		token:      token,
		baseURL:    BaseURL,
		pageSize:   DefaultPageSize,
		timeout:    DefaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// QueryResult is one page of a database query.
type QueryResult struct {
	Pages      []*Page
	HasMore    bool
	NextCursor string
}

// RetrieveDatabase fetches a database schema.
func (c *Client) RetrieveDatabase(ctx context.Context, databaseID string) (*Database, error) {
	body, err := c.do(ctx, http.MethodGet, "/databases/"+databaseID, nil)
	if err != nil {
		return nil, err
	}
	return ParseDatabase(body)
}

// QueryDatabasePage fetches one page of query results starting at cursor
// (empty for the first page).
func (c *Client) QueryDatabasePage(ctx context.Context, databaseID, cursor string) (*QueryResult, error) {
	payload := map[string]any{"page_size": c.pageSize}
	if cursor != "" {
		payload["start_cursor"] = cursor
	}

	body, err := c.do(ctx, http.MethodPost, "/databases/"+databaseID+"/query", payload)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Results    []json.RawMessage `json:"results"`
		HasMore    bool              `json:"has_more"`
		NextCursor *string           `json:"next_cursor"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: parsing query results: %v", ErrInvalidResponse, err)
	}

	result := &QueryResult{HasMore: resp.HasMore, Pages: make([]*Page, 0, len(resp.Results))}
	if resp.NextCursor != nil {
		result.NextCursor = *resp.NextCursor
	}
	for _, r := range resp.Results {
		p, err := ParsePage(r)
		if err != nil {
			return nil, err
		}
		result.Pages = append(result.Pages, p)
	}
	return result, nil
}

// QueryDatabase fetches every page of a database, following cursors until
// the API reports no more results.
func (c *Client) QueryDatabase(ctx context.Context, databaseID string) ([]*Page, error) {
	var pages []*Page
	cursor := ""
	for {
		result, err := c.QueryDatabasePage(ctx, databaseID, cursor)
		if err != nil {
			return nil, err
		}
		pages = append(pages, result.Pages...)
		if !result.HasMore || result.NextCursor == "" {
			return pages, nil
		}
		cursor = result.NextCursor
	}
}

// SearchDatabases lists every database shared with the integration, least
// recently edited first.
func (c *Client) SearchDatabases(ctx context.Context) ([]*Database, error) {
	var dbs []*Database
	cursor := ""
	for {
		payload := map[string]any{
			"filter":    map[string]any{"property": "object", "value": "database"},
			"sort":      map[string]any{"direction": "ascending", "timestamp": "last_edited_time"},
			"page_size": c.pageSize,
		}
		if cursor != "" {
			payload["start_cursor"] = cursor
		}

		body, err := c.do(ctx, http.MethodPost, "/search", payload)
		if err != nil {
			return nil, err
		}

		var resp struct {
			Results    []json.RawMessage `json:"results"`
			HasMore    bool              `json:"has_more"`
			NextCursor *string           `json:"next_cursor"`
		}
		if err := json.Unmarshal(body, &resp); err != nil {
			return nil, fmt.Errorf("%w: parsing search results: %v", ErrInvalidResponse, err)
		}
		for _, r := range resp.Results {
			db, err := ParseDatabase(r)
			if err != nil {
				return nil, err
			}
			dbs = append(dbs, db)
		}

		if !resp.HasMore || resp.NextCursor == nil || *resp.NextCursor == "" {
			return dbs, nil
		}
		cursor = *resp.NextCursor
	}
}

// CreatePage creates the page in its parent database and returns the
// created page.
func (c *Client) CreatePage(ctx context.Context, page *Page) (*Page, error) {
	payload := map[string]any{
		"parent": map[string]any{
			"type":        "database_id",
			"database_id": page.ParentID,
		},
		"properties": page.Properties(),
	}
	body, err := c.do(ctx, http.MethodPost, "/pages", payload)
	if err != nil {
		return nil, err
	}
	return ParsePage(body)
}

// RetrievePage fetches a page by id.
func (c *Client) RetrievePage(ctx context.Context, pageID string) (*Page, error) {
	body, err := c.do(ctx, http.MethodGet, "/pages/"+pageID, nil)
	if err != nil {
		return nil, err
	}
	return ParsePage(body)
}

// UpdatePage sends the properties carried by page. Properties the page does
// not carry are left untouched remotely.
func (c *Client) UpdatePage(ctx context.Context, page *Page) (*Page, error) {
	payload := map[string]any{"properties": page.Properties()}
	body, err := c.do(ctx, http.MethodPatch, "/pages/"+page.ID, payload)
	if err != nil {
		return nil, err
	}
	return ParsePage(body)
}

// ArchivePage moves a page to the trash.
func (c *Client) ArchivePage(ctx context.Context, pageID string) (*Page, error) {
	return c.setArchived(ctx, pageID, true)
}

// RestorePage restores an archived page.
func (c *Client) RestorePage(ctx context.Context, pageID string) (*Page, error) {
	return c.setArchived(ctx, pageID, false)
}

func (c *Client) setArchived(ctx context.Context, pageID string, archived bool) (*Page, error) {
	body, err := c.do(ctx, http.MethodPatch, "/pages/"+pageID, map[string]any{"archived": archived})
	if err != nil {
		return nil, err
	}
	return ParsePage(body)
}

// do issues one request and returns the response body of a 2xx response.
func (c *Client) do(ctx context.Context, method, path string, payload any) ([]byte, error) {
	if c.token == "" {
		return nil, fmt.Errorf("%w: no integration token", ErrAuth)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshaling request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Notion-Version", APIVersion)
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetworkError, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", ErrNetworkError, err)
	}

	if err := checkHTTPErrors(resp.StatusCode, body); err != nil {
		return nil, err
	}
	return body, nil
}

// checkHTTPErrors returns an error if the status code indicates a problem.
func checkHTTPErrors(status int, body []byte) error {
	if status >= 200 && status < 300 {
		return nil
	}

	var apiErr struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	_ = json.Unmarshal(body, &apiErr)
	if apiErr.Message == "" {
		apiErr.Message = fmt.Sprintf("HTTP %d", status)
	}

	e := &APIError{
		StatusCode: status,
		Code:       apiErr.Code,
		Message:    apiErr.Message,
		Body:       string(body),
	}
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		e.err = ErrAuth
	case http.StatusNotFound:
		e.err = ErrNotFound
	default:
		e.err = ErrUnavailable
	}
	return e
}
