package engine

import (
	"regexp"
	"strings"
)

// Identifier types understood by the engines.
const (
	IDArxiv      = "ARXIV"
	IDCorpus     = "CorpusId"
	IDLiterature = "LITERATURE"
	IDDOI        = "DOI"
	IDUnknown    = "UNKNOWN"
)

// Identifier is a parsed paper identifier.
type Identifier struct {
	Type  string
	Value string
}

// String returns the identifier in prefixed form, e.g. "ARXIV:1511.05190".
func (i Identifier) String() string {
	if i.Type == IDUnknown {
		return i.Value
	}
	return i.Type + ":" + i.Value
}

var (
	// New-style arXiv ids (1511.05190, 1511.05190v2).
	arxivNewPattern = regexp.MustCompile(`^\d{4}\.\d{4,5}(v\d+)?$`)
	// Old-style arXiv ids (hep-th/9901001, math.GT/0309136).
	arxivOldPattern = regexp.MustCompile(`^[a-z\-]+(\.[A-Z]{2})?/\d{7}(v\d+)?$`)
	digitsPattern   = regexp.MustCompile(`^\d+$`)
)

// prefixes maps lower-cased prefixes to identifier types.
var prefixes = []struct {
	prefix string
	typ    string
}{
	{"arxiv:", IDArxiv},
	{"corpusid:", IDCorpus},
	{"literature:", IDLiterature},
	{"inspire:", IDLiterature},
	{"doi:", IDDOI},
}

// ParseIdentifier parses a paper identifier. Supported formats:
//   - ARXIV:1511.05190, arXiv:hep-th/9901001 or a bare arXiv id
//   - CorpusId:215416146
//   - LITERATURE:1405106 (INSPIRE record id)
//   - DOI:10.1007/JHEP09(2014)075 or a bare 10.xxxx/... DOI
//
// A bare number is ambiguous between engines and is returned with type
// UNKNOWN; each engine decides how to read it.
func ParseIdentifier(id string) Identifier {
	id = strings.TrimSpace(id)
	lower := strings.ToLower(id)

	for _, p := range prefixes {
		if strings.HasPrefix(lower, p.prefix) {
			return Identifier{Type: p.typ, Value: strings.TrimSpace(id[len(p.prefix):])}
		}
	}

	switch {
	case arxivNewPattern.MatchString(id), arxivOldPattern.MatchString(id):
		return Identifier{Type: IDArxiv, Value: id}
	case strings.HasPrefix(id, "10.") && strings.Contains(id, "/"):
		return Identifier{Type: IDDOI, Value: id}
	}

	return Identifier{Type: IDUnknown, Value: id}
}

// IsNumeric reports whether the identifier value is a plain record number.
func (i Identifier) IsNumeric() bool {
	return digitsPattern.MatchString(i.Value)
}
