package semantic

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/matsen/hpm/internal/engine"
	"golang.org/x/time/rate"
)

const (
	// Name is the engine name used in templates.
	Name = "semantic"

	// BaseURL is the Semantic Scholar Graph API base URL.
	BaseURL = "https://api.semanticscholar.org/graph/v1"

	// DefaultTimeout bounds each request.
	DefaultTimeout = 30 * time.Second

	// RateLimit is the unauthenticated shared limit of about one request per second.
	RateLimit = 1.0

	// PaperFields are the fields requested for a paper lookup.
	PaperFields = "title,authors,citationCount,journal,externalIds,url,publicationDate,year,abstract"

	// APIKeyEnv is the environment variable holding an optional API key.
	APIKeyEnv = "S2_API_KEY"
)

// Client is a rate-limited Semantic Scholar engine.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	apiKey     string
	baseURL    string
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithAPIKey sets the API key for authenticated requests.
func WithAPIKey(key string) ClientOption {
	return func(c *Client) {
		c.apiKey = key
	}
}

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

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithRateLimit sets the request rate in requests per second.
func WithRateLimit(perSecond float64) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
	}
}

// NewClient creates a Semantic Scholar engine. An API key in S2_API_KEY is
// picked up unless overridden by WithAPIKey.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: DefaultTimeout},
		limiter:    rate.NewLimiter(rate.Limit(RateLimit), 1),
		baseURL:    BaseURL,
	}

	if key := os.Getenv(APIKeyEnv); key != "" {
		c.apiKey = key
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Name implements engine.Engine.
func (c *Client) Name() string {
	return Name
}

// Fetch looks up a paper by corpus id, arXiv id or DOI. A bare number is
// read as a corpus id.
func (c *Client) Fetch(ctx context.Context, identifier string) (*engine.Result, error) {
	id := engine.ParseIdentifier(identifier)
	switch {
	case id.Type == engine.IDUnknown && id.IsNumeric():
		id.Type = engine.IDCorpus
	case id.Type == engine.IDCorpus, id.Type == engine.IDArxiv, id.Type == engine.IDDOI:
	default:
		return nil, fmt.Errorf("%w: %s cannot look up %q", engine.ErrInvalidIdentifier, Name, identifier)
	}

	endpoint := fmt.Sprintf("%s/paper/%s?fields=%s", c.baseURL, id.String(), PaperFields)
	body, err := c.get(ctx, identifier, endpoint)
	if err != nil {
		return nil, err
	}

	var p paper
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("%w: parsing paper %s: %v", engine.ErrInvalidResponse, identifier, err)
	}
	return toResult(p), nil
}

func (c *Client) get(ctx context.Context, identifier, endpoint string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("x-api-key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", engine.ErrNetworkError, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", engine.ErrNetworkError, endpoint, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, engine.NewFetchError(Name, identifier, endpoint, resp.StatusCode, body)
	}
	return body, nil
}

// toResult maps a Graph API paper onto the engine result.
func toResult(p paper) *engine.Result {
	r := &engine.Result{
		Engine:    Name,
		Title:     p.Title,
		Citations: p.CitationCount,
		Date:      p.PublicationDate,
		ArxivID:   p.ExternalIDs.ArXiv,
		DOI:       p.ExternalIDs.DOI,
		URL:       p.URL,
		Abstract:  p.Abstract,
		Published: engine.VenueUnpublished,
	}
	if r.Date == "" && p.Year != 0 {
		r.Date = strconv.Itoa(p.Year)
	}
	if p.ExternalIDs.CorpusID != 0 {
		r.CorpusID = strconv.Itoa(p.ExternalIDs.CorpusID)
	}
	if p.Journal != nil && p.Journal.Name != "" {
		r.Published = p.Journal.Name
	}

	authors := p.Authors
	if len(authors) > engine.MaxAuthors {
		authors = authors[:engine.MaxAuthors]
	}
	r.Authors = make([]engine.Author, 0, len(authors))
	for _, a := range authors {
		r.Authors = append(r.Authors, engine.Author{Name: a.Name, ID: a.AuthorID})
	}
	return r
}
