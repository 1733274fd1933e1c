package engine

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Shape is the semantic type of a field value.
type Shape int

const (
	ShapeText Shape = iota
	ShapeNumber
	ShapeList
)

func (s Shape) String() string {
	switch s {
	case ShapeText:
		return "text"
	case ShapeNumber:
		return "number"
	case ShapeList:
		return "list"
	default:
		return "unknown"
	}
}

// FieldValue is the value of one field of a Result.
type FieldValue struct {
	Shape  Shape
	Text   string
	Number float64
	List   []string
}

// AsText renders the value as a single string. Lists are comma separated.
func (v FieldValue) AsText() string {
	switch v.Shape {
	case ShapeNumber:
		return strconv.FormatFloat(v.Number, 'f', -1, 64)
	case ShapeList:
		return strings.Join(v.List, ", ")
	default:
		return v.Text
	}
}

// AsList returns list values as is and wraps a non-empty scalar in a list.
func (v FieldValue) AsList() []string {
	if v.Shape == ShapeList {
		return v.List
	}
	if s := v.AsText(); s != "" {
		return []string{s}
	}
	return []string{}
}

// Field is a named accessor into a Result.
type Field struct {
	Name  string
	Shape Shape
	get   func(*Result) FieldValue
}

// Value extracts the field from a result.
func (f Field) Value(r *Result) FieldValue {
	return f.get(r)
}

func text(get func(*Result) string) func(*Result) FieldValue {
	return func(r *Result) FieldValue { return FieldValue{Shape: ShapeText, Text: get(r)} }
}

// authorList extracts one attribute per author, skipping authors that lack it.
func authorList(get func(Author) string) func(*Result) FieldValue {
	return func(r *Result) FieldValue {
		out := make([]string, 0, len(r.Authors))
		for _, a := range r.Authors {
			if v := get(a); v != "" {
				out = append(out, v)
			}
		}
		return FieldValue{Shape: ShapeList, List: out}
	}
}

// fields is the registry of template-addressable fields. Dotted names
// address an attribute of every element of a list field.
var fields = map[string]Field{
	"title":      {Shape: ShapeText, get: text(func(r *Result) string { return r.Title })},
	"published":  {Shape: ShapeText, get: text(func(r *Result) string { return r.Published })},
	"date":       {Shape: ShapeText, get: text(func(r *Result) string { return r.Date })},
	"arxiv_id":   {Shape: ShapeText, get: text(func(r *Result) string { return r.ArxivID })},
	"corpus_id":  {Shape: ShapeText, get: text(func(r *Result) string { return r.CorpusID })},
	"inspire_id": {Shape: ShapeText, get: text(func(r *Result) string { return r.InspireID })},
	"doi":        {Shape: ShapeText, get: text(func(r *Result) string { return r.DOI })},
	"url":        {Shape: ShapeText, get: text(func(r *Result) string { return r.URL })},
	"abstract":   {Shape: ShapeText, get: text(func(r *Result) string { return r.Abstract })},
	"bibtex":     {Shape: ShapeText, get: text(func(r *Result) string { return r.Bibtex })},
	"citations": {Shape: ShapeNumber, get: func(r *Result) FieldValue {
		return FieldValue{Shape: ShapeNumber, Number: float64(r.Citations)}
	}},
	"authors":      {Shape: ShapeList, get: authorList(Author.Key)},
	"authors.name": {Shape: ShapeList, get: authorList(func(a Author) string { return a.Name })},
	"authors.id":   {Shape: ShapeList, get: authorList(func(a Author) string { return a.ID })},
}

func init() {
	for name, f := range fields {
		f.Name = name
		fields[name] = f
	}
}

// LookupField returns the accessor registered under name.
func LookupField(name string) (Field, error) {
	f, ok := fields[name]
	if !ok {
		return Field{}, fmt.Errorf("%w: %q (known: %v)", ErrUnknownField, name, FieldNames())
	}
	return f, nil
}

// FieldNames returns the registered field names in sorted order.
func FieldNames() []string {
	names := make([]string, 0, len(fields))
	for n := range fields {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
