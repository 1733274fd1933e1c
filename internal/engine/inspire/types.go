// Package inspire provides an engine for the InspireHEP literature API.
package inspire

// literatureResponse is the response of GET /literature/{id} and /arxiv/{id}.
type literatureResponse struct {
	ID    string `json:"id"`
	Links struct {
		Bibtex string `json:"bibtex"`
	} `json:"links"`
	Metadata literatureMetadata `json:"metadata"`
}

type literatureMetadata struct {
	ControlNumber   int               `json:"control_number"`
	Titles          []titleEntry      `json:"titles"`
	Collaborations  []valueEntry      `json:"collaborations"`
	Authors         []authorEntry     `json:"authors"`
	DocumentType    []string          `json:"document_type"`
	PublicationInfo []publicationInfo `json:"publication_info"`
	CitationCount   int               `json:"citation_count"`
	ArxivEprints    []valueEntry      `json:"arxiv_eprints"`
	DOIs            []valueEntry      `json:"dois"`
	Abstracts       []valueEntry      `json:"abstracts"`
	PreprintDate    string            `json:"preprint_date"`
	Imprints        []struct {
		Date string `json:"date"`
	} `json:"imprints"`
	LegacyCreationDate string `json:"legacy_creation_date"`
}

type titleEntry struct {
	Title string `json:"title"`
}

type valueEntry struct {
	Value string `json:"value"`
}

type reference struct {
	Ref string `json:"$ref"`
}

type authorEntry struct {
	FullName string     `json:"full_name"`
	IDs      []authorID `json:"ids"`
	Record   *reference `json:"record"`
}

type authorID struct {
	Schema string `json:"schema"`
	Value  string `json:"value"`
}

type publicationInfo struct {
	JournalTitle     string     `json:"journal_title"`
	CNUM             string     `json:"cnum"`
	ConferenceRecord *reference `json:"conference_record"`
}

// authorResponse is the response of an author record ($ref of an author).
type authorResponse struct {
	Metadata struct {
		IDs  []authorID `json:"ids"`
		Name struct {
			Value string `json:"value"`
		} `json:"name"`
	} `json:"metadata"`
}

// conferenceResponse is the response of a conference record.
type conferenceResponse struct {
	Metadata struct {
		Acronyms []string     `json:"acronyms"`
		Titles   []titleEntry `json:"titles"`
	} `json:"metadata"`
}
