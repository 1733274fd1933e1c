package notion

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Descriptor describes one column of a database schema.
type Descriptor struct {
	ID   string
	Name string
	Kind Kind

	// Options lists the defined option names for select, multi-select and
	// status columns.
	Options []string

	// RelatedDatabaseID is the target database of a relation column, stored
	// without dashes. It is not resolved here.
	RelatedDatabaseID string
}

// Empty returns the empty value for the column's kind.
func (d Descriptor) Empty() Value {
	return Empty(d.Kind)
}

// Database is a retrieved database schema. It is not modified after parsing.
type Database struct {
	ID          string
	Title       string
	Description string
	URL         string

	names       []string
	descriptors map[string]Descriptor
}

// ParseDatabase builds a Database from a GET /databases/{id} response.
// Columns of unsupported kinds are skipped.
func ParseDatabase(raw []byte) (*Database, error) {
	var resp struct {
		ID          string          `json:"id"`
		Title       json.RawMessage `json:"title"`
		Description json.RawMessage `json:"description"`
		URL         string          `json:"url"`
		Properties  json.RawMessage `json:"properties"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("%w: parsing database: %v", ErrInvalidResponse, err)
	}

	db := &Database{
		ID:          NormalizeID(resp.ID),
		URL:         resp.URL,
		descriptors: make(map[string]Descriptor),
	}
	if len(resp.Title) > 0 {
		title, err := decodeText(resp.Title)
		if err != nil {
			return nil, fmt.Errorf("%w: parsing database title: %v", ErrInvalidResponse, err)
		}
		db.Title = title
	}
	if len(resp.Description) > 0 {
		desc, err := decodeText(resp.Description)
		if err != nil {
			return nil, fmt.Errorf("%w: parsing database description: %v", ErrInvalidResponse, err)
		}
		db.Description = desc
	}

	names, props, err := orderedObject(resp.Properties)
	if err != nil {
		return nil, fmt.Errorf("%w: parsing database properties: %v", ErrInvalidResponse, err)
	}
	for _, name := range names {
		d, ok, err := parseDescriptor(name, props[name])
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		db.names = append(db.names, name)
		db.descriptors[name] = d
	}

	return db, nil
}

func parseDescriptor(name string, raw json.RawMessage) (Descriptor, bool, error) {
	var head struct {
		ID   string `json:"id"`
		Type Kind   `json:"type"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return Descriptor{}, false, &PropertyError{Name: name, Err: fmt.Errorf("%w: %v", ErrMalformedProperty, err)}
	}
	if !head.Type.Supported() {
		return Descriptor{}, false, nil
	}

	d := Descriptor{ID: head.ID, Name: name, Kind: head.Type}

	switch head.Type {
	case KindSelect, KindMultiSelect, KindStatus:
		var body map[string]json.RawMessage
		if err := json.Unmarshal(raw, &body); err != nil {
			return Descriptor{}, false, &PropertyError{Name: name, Kind: head.Type, Err: fmt.Errorf("%w: %v", ErrMalformedProperty, err)}
		}
		payload, ok := body[string(head.Type)]
		if !ok {
			return Descriptor{}, false, &PropertyError{Name: name, Kind: head.Type, Err: fmt.Errorf("%w: missing %q key", ErrMalformedProperty, head.Type)}
		}
		var cfg *struct {
			Options []struct {
				Name string `json:"name"`
			} `json:"options"`
		}
		if err := json.Unmarshal(payload, &cfg); err != nil {
			return Descriptor{}, false, &PropertyError{Name: name, Kind: head.Type, Err: fmt.Errorf("%w: %v", ErrMalformedProperty, err)}
		}
		if cfg != nil {
			d.Options = make([]string, 0, len(cfg.Options))
			for _, o := range cfg.Options {
				d.Options = append(d.Options, o.Name)
			}
		}
	case KindRelation:
		var body struct {
			Relation *struct {
				DatabaseID string `json:"database_id"`
			} `json:"relation"`
		}
		if err := json.Unmarshal(raw, &body); err != nil {
			return Descriptor{}, false, &PropertyError{Name: name, Kind: head.Type, Err: fmt.Errorf("%w: %v", ErrMalformedProperty, err)}
		}
		if body.Relation == nil {
			return Descriptor{}, false, &PropertyError{Name: name, Kind: head.Type, Err: fmt.Errorf("%w: missing relation database_id", ErrMalformedProperty)}
		}
		d.RelatedDatabaseID = NormalizeID(body.Relation.DatabaseID)
	}

	return d, true, nil
}

// Property returns the descriptor of the named column.
func (db *Database) Property(name string) (Descriptor, error) {
	d, ok := db.descriptors[name]
	if !ok {
		return Descriptor{}, fmt.Errorf("%w: %q in database %s", ErrPropertyNotFound, name, db.ID)
	}
	return d, nil
}

// Names returns the supported column names in schema order.
func (db *Database) Names() []string {
	return append([]string(nil), db.names...)
}

// Descriptors returns the supported columns in schema order.
func (db *Database) Descriptors() []Descriptor {
	out := make([]Descriptor, 0, len(db.names))
	for _, n := range db.names {
		out = append(out, db.descriptors[n])
	}
	return out
}

// TitleProperty returns the name of the title column.
func (db *Database) TitleProperty() (string, bool) {
	for _, n := range db.names {
		if db.descriptors[n].Kind == KindTitle {
			return n, true
		}
	}
	return "", false
}

// orderedObject decodes a JSON object keeping the key order of the document.
func orderedObject(raw json.RawMessage) ([]string, map[string]json.RawMessage, error) {
	values := make(map[string]json.RawMessage)
	if len(raw) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil, values, nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, nil, fmt.Errorf("expected object, got %v", tok)
	}

	var keys []string
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, nil, fmt.Errorf("expected object key, got %v", tok)
		}
		var v json.RawMessage
		if err := dec.Decode(&v); err != nil {
			return nil, nil, err
		}
		if _, seen := values[key]; !seen {
			keys = append(keys, key)
		}
		values[key] = v
	}
	return keys, values, nil
}
