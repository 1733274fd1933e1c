package inspire

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/matsen/hpm/internal/engine"
	"golang.org/x/time/rate"
)

const (
	// Name is the engine name used in templates.
	Name = "inspire"

	// BaseURL is the InspireHEP REST API base URL.
	BaseURL = "https://inspirehep.net/api"

	// LiteratureURL is the prefix of a record's landing page.
	LiteratureURL = "https://inspirehep.net/literature/"

	// DefaultTimeout bounds each request.
	DefaultTimeout = 30 * time.Second

	// RateLimit stays under InspireHEP's 15 requests per 5 seconds.
	RateLimit = 3.0
)

const (
	docArticle    = "article"
	docConference = "conference paper"
	baiSchema     = "INSPIRE BAI"
)

// baiSuffix matches the numeric disambiguator of a BAI ("E.Witten.1").
var baiSuffix = regexp.MustCompile(`\.\d+$`)

// Client is a rate-limited InspireHEP engine.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	baseURL    string
	bibtex     bool
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
		c.baseURL = strings.TrimSuffix(url, "/")
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

// WithBibtex controls whether Fetch also retrieves the BibTeX entry.
func WithBibtex(enabled bool) ClientOption {
	return func(c *Client) {
		c.bibtex = enabled
	}
}

// NewClient creates an InspireHEP engine.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: DefaultTimeout},
		limiter:    rate.NewLimiter(rate.Limit(RateLimit), 1),
		baseURL:    BaseURL,
		bibtex:     true,
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

// Fetch looks up a paper by arXiv id, INSPIRE record id or DOI.
func (c *Client) Fetch(ctx context.Context, identifier string) (*engine.Result, error) {
	endpoint, err := c.lookupURL(identifier)
	if err != nil {
		return nil, err
	}

	body, err := c.get(ctx, identifier, endpoint, "application/json")
	if err != nil {
		return nil, err
	}

	var resp literatureResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: parsing record %s: %v", engine.ErrInvalidResponse, identifier, err)
	}
	meta := resp.Metadata

	result := &engine.Result{
		Engine:    Name,
		Citations: meta.CitationCount,
		Date:      recordDate(meta),
	}
	if len(meta.Titles) > 0 {
		result.Title = meta.Titles[0].Title
	}
	if len(meta.ArxivEprints) > 0 {
		result.ArxivID = meta.ArxivEprints[0].Value
	}
	if len(meta.DOIs) > 0 {
		result.DOI = meta.DOIs[0].Value
	}
	if len(meta.Abstracts) > 0 {
		result.Abstract = meta.Abstracts[0].Value
	}
	if meta.ControlNumber != 0 {
		result.InspireID = strconv.Itoa(meta.ControlNumber)
		result.URL = LiteratureURL + result.InspireID
	}

	if result.Authors, err = c.resolveAuthors(ctx, identifier, meta); err != nil {
		return nil, err
	}
	if result.Published, err = c.resolveVenue(ctx, identifier, meta); err != nil {
		return nil, err
	}

	if c.bibtex {
		link := resp.Links.Bibtex
		if link == "" && result.InspireID != "" {
			link = c.baseURL + "/literature/" + result.InspireID + "?format=bibtex"
		}
		if link != "" {
			if result.Bibtex, err = c.fetchBibtex(ctx, identifier, link); err != nil {
				return nil, err
			}
		}
	}

	return result, nil
}

func (c *Client) lookupURL(identifier string) (string, error) {
	id := engine.ParseIdentifier(identifier)
	switch {
	case id.Type == engine.IDArxiv:
		return c.baseURL + "/arxiv/" + id.Value, nil
	case id.Type == engine.IDLiterature, id.Type == engine.IDUnknown && id.IsNumeric():
		return c.baseURL + "/literature/" + id.Value, nil
	case id.Type == engine.IDDOI:
		return c.baseURL + "/doi/" + url.PathEscape(id.Value), nil
	default:
		return "", fmt.Errorf("%w: %s cannot look up %q", engine.ErrInvalidIdentifier, Name, identifier)
	}
}

// resolveAuthors returns a single collaboration author, or the first
// engine.MaxAuthors authors keyed by BAI. Authors listed without ids cost
// one extra request to their author record.
func (c *Client) resolveAuthors(ctx context.Context, identifier string, meta literatureMetadata) ([]engine.Author, error) {
	if len(meta.Collaborations) > 0 && meta.Collaborations[0].Value != "" {
		return []engine.Author{{Name: meta.Collaborations[0].Value + " Collaboration"}}, nil
	}

	entries := meta.Authors
	if len(entries) > engine.MaxAuthors {
		entries = entries[:engine.MaxAuthors]
	}

	authors := make([]engine.Author, 0, len(entries))
	for _, a := range entries {
		author := engine.Author{Name: a.FullName}
		ids := a.IDs
		if len(ids) == 0 && a.Record != nil && a.Record.Ref != "" {
			body, err := c.get(ctx, identifier, a.Record.Ref, "application/json")
			if err != nil {
				return nil, err
			}
			var rec authorResponse
			if err := json.Unmarshal(body, &rec); err != nil {
				return nil, fmt.Errorf("%w: parsing author record %s: %v", engine.ErrInvalidResponse, a.Record.Ref, err)
			}
			ids = rec.Metadata.IDs
			if author.Name == "" {
				author.Name = rec.Metadata.Name.Value
			}
		}
		author.ID = bai(ids)
		authors = append(authors, author)
	}
	return authors, nil
}

// resolveVenue applies the document-type policy: journal title for
// articles, conference acronym (or title) for conference papers, Unknown
// for every other document type.
func (c *Client) resolveVenue(ctx context.Context, identifier string, meta literatureMetadata) (string, error) {
	if len(meta.DocumentType) == 0 {
		return engine.VenueUnknown, nil
	}

	switch meta.DocumentType[0] {
	case docArticle:
		for _, info := range meta.PublicationInfo {
			if info.JournalTitle != "" {
				return info.JournalTitle, nil
			}
		}
		return engine.VenueUnpublished, nil

	case docConference:
		for _, info := range meta.PublicationInfo {
			if info.ConferenceRecord == nil || info.ConferenceRecord.Ref == "" {
				continue
			}
			body, err := c.get(ctx, identifier, info.ConferenceRecord.Ref, "application/json")
			if err != nil {
				return "", err
			}
			var conf conferenceResponse
			if err := json.Unmarshal(body, &conf); err != nil {
				return "", fmt.Errorf("%w: parsing conference record %s: %v", engine.ErrInvalidResponse, info.ConferenceRecord.Ref, err)
			}
			if len(conf.Metadata.Acronyms) > 0 && conf.Metadata.Acronyms[0] != "" {
				return conf.Metadata.Acronyms[0], nil
			}
			if len(conf.Metadata.Titles) > 0 && conf.Metadata.Titles[0].Title != "" {
				return conf.Metadata.Titles[0].Title, nil
			}
		}
		return engine.VenueUnpublished, nil

	default:
		return engine.VenueUnknown, nil
	}
}

// fetchBibtex retrieves the BibTeX variant of the record and strips the
// single trailing newline InspireHEP appends.
func (c *Client) fetchBibtex(ctx context.Context, identifier, link string) (string, error) {
	body, err := c.get(ctx, identifier, link, "application/x-bibtex")
	if err != nil {
		return "", err
	}
	return strings.TrimSuffix(string(body), "\n"), nil
}

func (c *Client) get(ctx context.Context, identifier, endpoint, accept string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", accept)

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

func bai(ids []authorID) string {
	for _, id := range ids {
		if id.Schema == baiSchema {
			return baiSuffix.ReplaceAllString(id.Value, "")
		}
	}
	return ""
}

// recordDate prefers the preprint date, then the first imprint date, then
// the legacy creation date.
func recordDate(meta literatureMetadata) string {
	if meta.PreprintDate != "" {
		return meta.PreprintDate
	}
	for _, imp := range meta.Imprints {
		if imp.Date != "" {
			return imp.Date
		}
	}
	return meta.LegacyCreationDate
}
