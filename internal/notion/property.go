// Package notion models Notion databases and pages as typed values and
// provides a client for the Notion REST API.
package notion

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Kind identifies a Notion property type.
type Kind string

// Supported property kinds.
const (
	KindTitle       Kind = "title"
	KindRichText    Kind = "rich_text"
	KindSelect      Kind = "select"
	KindMultiSelect Kind = "multi_select"
	KindNumber      Kind = "number"
	KindURL         Kind = "url"
	KindRelation    Kind = "relation"
	KindStatus      Kind = "status"
	KindDate        Kind = "date"
)

// MaxTextLength is the longest text content Notion accepts in a single
// rich text object.
const MaxTextLength = 2000

// truncationMarker replaces the tail of text that reaches MaxTextLength.
const truncationMarker = "..."

// Value is a typed property value. The set of implementations is closed:
// Title, RichText, Select, MultiSelect, Number, URL, Relation, Status and Date.
type Value interface {
	fmt.Stringer

	// Kind returns the property kind of the value.
	Kind() Kind

	// IsEmpty reports whether the value is the kind's empty value.
	IsEmpty() bool

	wire() any
	equal(other Value) bool
}

// codec decodes the kind-keyed payload of a property object.
type codec struct {
	decode func(payload json.RawMessage) (Value, error)
	empty  func() Value
}

var codecs = map[Kind]codec{
	KindTitle: {
		decode: func(p json.RawMessage) (Value, error) {
			s, err := decodeText(p)
			return Title{Text: s}, err
		},
		empty: func() Value { return Title{} },
	},
	KindRichText: {
		decode: func(p json.RawMessage) (Value, error) {
			s, err := decodeText(p)
			return RichText{Text: s}, err
		},
		empty: func() Value { return RichText{} },
	},
	KindSelect: {
		decode: func(p json.RawMessage) (Value, error) {
			name, err := decodeOption(p)
			return Select{Name: name}, err
		},
		empty: func() Value { return Select{} },
	},
	KindStatus: {
		decode: func(p json.RawMessage) (Value, error) {
			name, err := decodeOption(p)
			return Status{Name: name}, err
		},
		empty: func() Value { return Status{} },
	},
	KindMultiSelect: {
		decode: func(p json.RawMessage) (Value, error) {
			var options []struct {
				Name string `json:"name"`
			}
			if err := json.Unmarshal(p, &options); err != nil {
				return nil, err
			}
			names := make([]string, 0, len(options))
			for _, o := range options {
				names = append(names, o.Name)
			}
			return MultiSelect{Names: names}, nil
		},
		empty: func() Value { return MultiSelect{Names: []string{}} },
	},
	KindNumber: {
		decode: func(p json.RawMessage) (Value, error) {
			var n *float64
			if err := json.Unmarshal(p, &n); err != nil {
				return nil, err
			}
			return Number{Number: n}, nil
		},
		empty: func() Value { return Number{} },
	},
	KindURL: {
		decode: func(p json.RawMessage) (Value, error) {
			var u *string
			if err := json.Unmarshal(p, &u); err != nil {
				return nil, err
			}
			return NewURL(deref(u)), nil
		},
		empty: func() Value { return URL{} },
	},
	KindRelation: {
		decode: func(p json.RawMessage) (Value, error) {
			var refs []struct {
				ID string `json:"id"`
			}
			if err := json.Unmarshal(p, &refs); err != nil {
				return nil, err
			}
			ids := make([]string, 0, len(refs))
			for _, r := range refs {
				ids = append(ids, NormalizeID(r.ID))
			}
			return Relation{IDs: ids}, nil
		},
		empty: func() Value { return Relation{IDs: []string{}} },
	},
	KindDate: {
		decode: func(p json.RawMessage) (Value, error) {
			var d *struct {
				Start string `json:"start"`
			}
			if err := json.Unmarshal(p, &d); err != nil {
				return nil, err
			}
			if d == nil {
				return Date{}, nil
			}
			return NewDate(d.Start), nil
		},
		empty: func() Value { return Date{} },
	},
}

// Supported reports whether the kind is handled by this package.
func (k Kind) Supported() bool {
	_, ok := codecs[k]
	return ok
}

// Empty returns the empty value of a supported kind, or nil.
func Empty(kind Kind) Value {
	c, ok := codecs[kind]
	if !ok {
		return nil
	}
	return c.empty()
}

// Decode parses a property object as returned by the API (for example
// {"id": "x", "type": "select", "select": {"name": "a"}}) or as produced by
// Encode. The payload is looked up under the kind's key.
func Decode(kind Kind, raw json.RawMessage) (Value, error) {
	c, ok := codecs[kind]
	if !ok {
		return nil, &PropertyError{Kind: kind, Err: ErrUnsupportedKind}
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, &PropertyError{Kind: kind, Err: fmt.Errorf("%w: %v", ErrMalformedProperty, err)}
	}
	payload, ok := obj[string(kind)]
	if !ok {
		return nil, &PropertyError{Kind: kind, Err: fmt.Errorf("%w: missing %q key", ErrMalformedProperty, kind)}
	}

	v, err := c.decode(payload)
	if err != nil {
		return nil, &PropertyError{Kind: kind, Err: fmt.Errorf("%w: %v", ErrMalformedProperty, err)}
	}
	return v, nil
}

// Encode returns the minimal payload accepted by page create and update calls.
func Encode(v Value) map[string]any {
	return map[string]any{string(v.Kind()): v.wire()}
}

// Equal compares two values with kind-appropriate semantics. List values are
// order-sensitive.
func Equal(a, b Value) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.Kind() != b.Kind() {
		return false
	}
	return a.equal(b)
}

// Display renders a value for change reports. Missing and empty values of
// every kind render as "None".
func Display(v Value) string {
	if v == nil || v.IsEmpty() {
		return "None"
	}
	return v.String()
}

// NormalizeID returns a Notion object id without dashes, which is the form
// stored in Relation values and relation lookup tables.
func NormalizeID(id string) string {
	if u, err := uuid.Parse(id); err == nil {
		return strings.ReplaceAll(u.String(), "-", "")
	}
	return strings.ReplaceAll(id, "-", "")
}

// Title is the value of a title property.
type Title struct {
	Text string
}

// NewTitle returns a title value.
func NewTitle(s string) Title { return Title{Text: s} }

func (Title) Kind() Kind { return KindTitle }
func (t Title) IsEmpty() bool { return t.Text == "" }
func (t Title) String() string { return t.Text }
func (t Title) wire() any { return textRuns(t.Text) }
func (t Title) equal(o Value) bool { return t.Text == o.(Title).Text }

// RichText is the value of a rich text property, flattened to plain text.
type RichText struct {
	Text string
}

// NewRichText returns a rich text value.
func NewRichText(s string) RichText { return RichText{Text: s} }

func (RichText) Kind() Kind { return KindRichText }
func (r RichText) IsEmpty() bool { return r.Text == "" }
func (r RichText) String() string { return r.Text }
func (r RichText) wire() any { return textRuns(r.Text) }
func (r RichText) equal(o Value) bool { return r.Text == o.(RichText).Text }

// Select is the value of a select property. Name is nil when unset.
type Select struct {
	Name *string
}

// NewSelect returns a select value; an empty name yields the unset value.
func NewSelect(name string) Select { return Select{Name: optional(name)} }

func (Select) Kind() Kind { return KindSelect }
func (s Select) IsEmpty() bool { return s.Name == nil }
func (s Select) String() string { return display(s.Name) }
func (s Select) wire() any { return optionWire(s.Name) }
func (s Select) equal(o Value) bool { return sameString(s.Name, o.(Select).Name) }

// Status is the value of a status property.
type Status struct {
	Name *string
}

// NewStatus returns a status value; an empty name yields the unset value.
func NewStatus(name string) Status { return Status{Name: optional(name)} }

func (Status) Kind() Kind { return KindStatus }
func (s Status) IsEmpty() bool { return s.Name == nil }
func (s Status) String() string { return display(s.Name) }
func (s Status) wire() any { return optionWire(s.Name) }
func (s Status) equal(o Value) bool { return sameString(s.Name, o.(Status).Name) }

// MultiSelect is the value of a multi-select property, in insertion order.
type MultiSelect struct {
	Names []string
}

// NewMultiSelect returns a multi-select value.
func NewMultiSelect(names ...string) MultiSelect {
	return MultiSelect{Names: append([]string{}, names...)}
}

func (MultiSelect) Kind() Kind { return KindMultiSelect }
func (m MultiSelect) IsEmpty() bool { return len(m.Names) == 0 }
func (m MultiSelect) String() string { return displayList(m.Names) }

func (m MultiSelect) wire() any {
	out := make([]map[string]any, 0, len(m.Names))
	for _, n := range m.Names {
		out = append(out, map[string]any{"name": n})
	}
	return out
}

func (m MultiSelect) equal(o Value) bool { return sameList(m.Names, o.(MultiSelect).Names) }

// Number is the value of a number property. Number is nil when unset.
type Number struct {
	Number *float64
}

// NewNumber returns a number value.
func NewNumber(f float64) Number { return Number{Number: &f} }

func (Number) Kind() Kind { return KindNumber }
func (n Number) IsEmpty() bool { return n.Number == nil }

func (n Number) String() string {
	if n.Number == nil {
		return "None"
	}
	return strconv.FormatFloat(*n.Number, 'f', -1, 64)
}

func (n Number) wire() any {
	if n.Number == nil {
		return nil
	}
	return *n.Number
}

func (n Number) equal(o Value) bool {
	other := o.(Number).Number
	if n.Number == nil || other == nil {
		return n.Number == nil && other == nil
	}
	return *n.Number == *other
}

// URL is the value of a url property. URL is nil when unset.
type URL struct {
	URL *string
}

// NewURL returns a url value; an empty string yields the unset value.
func NewURL(u string) URL { return URL{URL: optional(u)} }

func (URL) Kind() Kind { return KindURL }
func (u URL) IsEmpty() bool { return u.URL == nil }
func (u URL) String() string { return display(u.URL) }
func (u URL) equal(o Value) bool { return sameString(u.URL, o.(URL).URL) }

func (u URL) wire() any {
	if u.URL == nil {
		return nil
	}
	return *u.URL
}

// Relation is the value of a relation property: ids of linked pages, stored
// without dashes (see NormalizeID).
type Relation struct {
	IDs []string
}

// NewRelation returns a relation value with normalized ids.
func NewRelation(ids ...string) Relation {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, NormalizeID(id))
	}
	return Relation{IDs: out}
}

func (Relation) Kind() Kind { return KindRelation }
func (r Relation) IsEmpty() bool { return len(r.IDs) == 0 }
func (r Relation) String() string { return displayList(r.IDs) }

func (r Relation) wire() any {
	out := make([]map[string]any, 0, len(r.IDs))
	for _, id := range r.IDs {
		out = append(out, map[string]any{"id": NormalizeID(id)})
	}
	return out
}

func (r Relation) equal(o Value) bool { return sameList(r.IDs, o.(Relation).IDs) }

// Date is the value of a date property. Only the start date is tracked.
type Date struct {
	Start *string
}

// NewDate returns a date value; an empty string yields the unset value.
func NewDate(start string) Date { return Date{Start: optional(start)} }

func (Date) Kind() Kind { return KindDate }
func (d Date) IsEmpty() bool { return d.Start == nil }
func (d Date) String() string { return display(d.Start) }
func (d Date) equal(o Value) bool { return sameString(d.Start, o.(Date).Start) }

func (d Date) wire() any {
	if d.Start == nil {
		return nil
	}
	return map[string]any{"start": *d.Start}
}

// decodeText concatenates the plain text of every run. Runs produced by
// Encode carry only text.content, so that is used when plain_text is absent.
func decodeText(p json.RawMessage) (string, error) {
	var runs []struct {
		PlainText *string `json:"plain_text"`
		Text      *struct {
			Content string `json:"content"`
		} `json:"text"`
	}
	if err := json.Unmarshal(p, &runs); err != nil {
		return "", err
	}
	var b strings.Builder
	for _, r := range runs {
		switch {
		case r.PlainText != nil:
			b.WriteString(*r.PlainText)
		case r.Text != nil:
			b.WriteString(r.Text.Content)
		}
	}
	return b.String(), nil
}

func decodeOption(p json.RawMessage) (*string, error) {
	var opt *struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(p, &opt); err != nil {
		return nil, err
	}
	if opt == nil {
		return nil, nil
	}
	return optional(opt.Name), nil
}

func textRuns(s string) any {
	return []map[string]any{
		{"text": map[string]any{"content": TruncateText(s)}},
	}
}

// TruncateText shortens s so it stays within MaxTextLength characters. Text
// that reaches the limit keeps its first MaxTextLength-3 characters followed
// by "...".
func TruncateText(s string) string {
	if utf8.RuneCountInString(s) < MaxTextLength {
		return s
	}
	runes := []rune(s)
	return string(runes[:MaxTextLength-len(truncationMarker)]) + truncationMarker
}

func optionWire(name *string) any {
	if name == nil {
		return nil
	}
	return map[string]any{"name": *name}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func display(s *string) string {
	if s == nil {
		return "None"
	}
	return *s
}

func displayList(items []string) string {
	return "[" + strings.Join(items, ", ") + "]"
}

func sameString(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func sameList(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
