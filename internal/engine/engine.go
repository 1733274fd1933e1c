// Package engine defines the common record produced by literature engines
// (InspireHEP, Semantic Scholar) and the registry of fields a sync template
// may read from it.
package engine

import "context"

// MaxAuthors is the number of individual authors an engine keeps per paper.
const MaxAuthors = 10

// Venue values used when a record has no resolvable venue.
const (
	VenueUnpublished = "Unpublished"
	VenueUnknown     = "Unknown"
)

// Engine fetches paper metadata from one remote source.
type Engine interface {
	// Name returns the engine name used in templates ("inspire", "semantic").
	Name() string

	// Fetch looks up a paper by identifier and normalizes it into a Result.
	Fetch(ctx context.Context, identifier string) (*Result, error)
}

// Author is one paper author. ID is a stable author identifier (INSPIRE BAI
// without its numeric disambiguator, or a Semantic Scholar author id) and is
// empty when the source provides none.
type Author struct {
	Name string `json:"name"`
	ID   string `json:"id,omitempty"`
}

// Key returns the author's stable id, falling back to the name.
func (a Author) Key() string {
	if a.ID != "" {
		return a.ID
	}
	return a.Name
}

// Result is the normalized paper record. It is not modified after Fetch
// returns.
type Result struct {
	Engine    string   `json:"engine"`
	Title     string   `json:"title"`
	Authors   []Author `json:"authors"`
	Published string   `json:"published"`
	Citations int      `json:"citations"`
	Date      string   `json:"date,omitempty"` // YYYY-MM-DD when known

	ArxivID   string `json:"arxiv_id,omitempty"`
	CorpusID  string `json:"corpus_id,omitempty"`
	InspireID string `json:"inspire_id,omitempty"`
	DOI       string `json:"doi,omitempty"`
	URL       string `json:"url,omitempty"`

	Abstract string `json:"abstract,omitempty"`
	Bibtex   string `json:"bibtex,omitempty"`
}
