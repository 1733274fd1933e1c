package notion

import (
	"encoding/json"
	"fmt"
)

// Page is one row of a database: identity fields plus an ordered mapping of
// column name to typed value. A page built for an update call may carry only
// a subset of the database columns.
type Page struct {
	ID       string // empty before creation
	ParentID string
	URL      string // empty before creation
	Archived bool

	names  []string
	values map[string]Value
}

// NewPage returns an unsaved page of the database with one empty value per
// supported column, so unmapped columns are still sent on creation.
func NewPage(db *Database) *Page {
	p := &Page{ParentID: db.ID, values: make(map[string]Value)}
	for _, d := range db.Descriptors() {
		p.Set(d.Name, d.Empty())
	}
	return p
}

// NewSparsePage returns a page carrying no properties, for building update
// payloads.
func NewSparsePage(id string) *Page {
	return &Page{ID: id, values: make(map[string]Value)}
}

// ParsePage builds a Page from a page object as returned by the retrieve,
// create, update and query endpoints. Properties of unsupported kinds are
// skipped.
func ParsePage(raw []byte) (*Page, error) {
	var resp struct {
		ID     string `json:"id"`
		URL    string `json:"url"`
		Parent struct {
			DatabaseID string `json:"database_id"`
		} `json:"parent"`
		Archived   bool            `json:"archived"`
		Properties json.RawMessage `json:"properties"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("%w: parsing page: %v", ErrInvalidResponse, err)
	}

	p := &Page{
		ID:       NormalizeID(resp.ID),
		ParentID: NormalizeID(resp.Parent.DatabaseID),
		URL:      resp.URL,
		Archived: resp.Archived,
		values:   make(map[string]Value),
	}

	names, props, err := orderedObject(resp.Properties)
	if err != nil {
		return nil, fmt.Errorf("%w: parsing page properties: %v", ErrInvalidResponse, err)
	}
	for _, name := range names {
		var head struct {
			Type Kind `json:"type"`
		}
		if err := json.Unmarshal(props[name], &head); err != nil {
			return nil, &PropertyError{Name: name, Err: fmt.Errorf("%w: %v", ErrMalformedProperty, err)}
		}
		if !head.Type.Supported() {
			continue
		}
		v, err := Decode(head.Type, props[name])
		if err != nil {
			return nil, withName(err, name)
		}
		p.Set(name, v)
	}

	return p, nil
}

// Title returns the value of the page's title property, or "".
func (p *Page) Title() string {
	for _, n := range p.names {
		if t, ok := p.values[n].(Title); ok {
			return t.Text
		}
	}
	return ""
}

// Get returns the value of the named property.
func (p *Page) Get(name string) (Value, error) {
	v, ok := p.values[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q in page %s", ErrPropertyNotFound, name, p.ID)
	}
	return v, nil
}

// Set stores a value, appending the name if it is new.
func (p *Page) Set(name string, v Value) {
	if p.values == nil {
		p.values = make(map[string]Value)
	}
	if _, ok := p.values[name]; !ok {
		p.names = append(p.names, name)
	}
	p.values[name] = v
}

// Names returns the property names in insertion order.
func (p *Page) Names() []string {
	return append([]string(nil), p.names...)
}

// Properties returns the wire form of every property the page carries.
func (p *Page) Properties() map[string]any {
	out := make(map[string]any, len(p.names))
	for _, n := range p.names {
		out[n] = Encode(p.values[n])
	}
	return out
}

// Equal reports whether two pages have the same identity fields and the
// same property values. Property order is ignored.
func (p *Page) Equal(other *Page) bool {
	if p == nil || other == nil {
		return p == nil && other == nil
	}
	if p.ID != other.ID || p.ParentID != other.ParentID || p.URL != other.URL || p.Archived != other.Archived {
		return false
	}
	if len(p.values) != len(other.values) {
		return false
	}
	for name, v := range p.values {
		ov, ok := other.values[name]
		if !ok || !Equal(v, ov) {
			return false
		}
	}
	return true
}

func withName(err error, name string) error {
	if pe, ok := err.(*PropertyError); ok && pe.Name == "" {
		return &PropertyError{Name: name, Kind: pe.Kind, Err: pe.Err}
	}
	return err
}
