// Package semantic provides an engine for the Semantic Scholar Graph API.
package semantic

// paper is the subset of a Graph API paper record the engine reads.
type paper struct {
	PaperID         string      `json:"paperId"`
	Title           string      `json:"title"`
	Abstract        string      `json:"abstract"`
	Authors         []author    `json:"authors"`
	CitationCount   int         `json:"citationCount"`
	PublicationDate string      `json:"publicationDate"`
	Year            int         `json:"year"`
	URL             string      `json:"url"`
	Journal         *journal    `json:"journal"`
	ExternalIDs     externalIDs `json:"externalIds"`
}

type author struct {
	AuthorID string `json:"authorId"`
	Name     string `json:"name"`
}

type journal struct {
	Name   string `json:"name"`
	Volume string `json:"volume"`
	Pages  string `json:"pages"`
}

type externalIDs struct {
	DOI      string `json:"DOI"`
	ArXiv    string `json:"ArXiv"`
	CorpusID int    `json:"CorpusId"`
}
