// Package template loads the declarative mapping from engine result fields
// to Notion database columns.
package template

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/matsen/hpm/internal/engine"
	"gopkg.in/yaml.v3"
)

var (
	// ErrUnknownField indicates a template maps a field no engine provides.
	ErrUnknownField = errors.New("template maps an unknown field")

	// ErrInvalidTemplate indicates a template missing a required key.
	ErrInvalidTemplate = errors.New("invalid template")
)

// DefaultName is the template used when none is named on the command line.
const DefaultName = "paper"

// defaultIdentifiers maps engine names to the field that identifies a paper
// when re-fetching it from a page.
var defaultIdentifiers = map[string]string{
	"inspire":  "arxiv_id",
	"semantic": "corpus_id",
}

// Mapping routes one engine field into one database column.
type Mapping struct {
	Field  engine.Field
	Column string
}

// Template is a validated sync template. It is not modified after Load.
type Template struct {
	Name       string
	Engine     string
	DatabaseID string
	// Identifier is the engine field whose column holds the paper identifier.
	Identifier string
	Mappings   []Mapping
}

// file is the on-disk YAML form. Properties is kept as a node so the
// mapping order in the file is the column order of the template.
type file struct {
	Engine     string    `yaml:"engine"`
	DatabaseID string    `yaml:"database_id"`
	Identifier string    `yaml:"identifier,omitempty"`
	Properties yaml.Node `yaml:"properties"`
}

// Path returns the path of the named template under dir.
func Path(dir, name string) string {
	return filepath.Join(dir, name+".yml")
}

// Load reads and validates a template file.
func Load(path string) (*Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading template: %w", err)
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return Parse(name, data)
}

// Parse validates template YAML. Every mapped field must exist in the
// engine field registry.
func Parse(name string, data []byte) (*Template, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: parsing %s: %v", ErrInvalidTemplate, name, err)
	}
	if f.Engine == "" {
		f.Engine = "inspire"
	}
	if f.DatabaseID == "" {
		return nil, fmt.Errorf("%w: %s has no database_id", ErrInvalidTemplate, name)
	}
	if f.Properties.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: %s properties must be a field: column mapping", ErrInvalidTemplate, name)
	}

	t := &Template{
		Name:       name,
		Engine:     f.Engine,
		DatabaseID: f.DatabaseID,
		Identifier: f.Identifier,
	}
	if t.Identifier == "" {
		t.Identifier = defaultIdentifiers[t.Engine]
	}

	columns := make(map[string]string)
	nodes := f.Properties.Content
	for i := 0; i+1 < len(nodes); i += 2 {
		fieldName, column := nodes[i].Value, nodes[i+1].Value
		field, err := engine.LookupField(fieldName)
		if err != nil {
			return nil, fmt.Errorf("%w: %s line %d: %w", ErrUnknownField, name, nodes[i].Line, err)
		}
		if column == "" {
			return nil, fmt.Errorf("%w: %s maps %q to an empty column", ErrInvalidTemplate, name, fieldName)
		}
		if prev, ok := columns[column]; ok {
			return nil, fmt.Errorf("%w: %s maps both %q and %q to column %q", ErrInvalidTemplate, name, prev, fieldName, column)
		}
		columns[column] = fieldName
		t.Mappings = append(t.Mappings, Mapping{Field: field, Column: column})
	}

	if t.Identifier != "" {
		if _, err := engine.LookupField(t.Identifier); err != nil {
			return nil, fmt.Errorf("%w: %s identifier: %w", ErrUnknownField, name, err)
		}
	}

	return t, nil
}

// IdentifierColumn returns the column the identifier field is mapped to.
func (t *Template) IdentifierColumn() (string, bool) {
	for _, m := range t.Mappings {
		if m.Field.Name == t.Identifier {
			return m.Column, true
		}
	}
	return "", false
}

// Columns returns the mapped column names in template order.
func (t *Template) Columns() []string {
	cols := make([]string, len(t.Mappings))
	for i, m := range t.Mappings {
		cols[i] = m.Column
	}
	return cols
}

// Marshal encodes the template in its on-disk form, preserving mapping order.
func (t *Template) Marshal() ([]byte, error) {
	props := yaml.Node{Kind: yaml.MappingNode}
	for _, m := range t.Mappings {
		props.Content = append(props.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: m.Field.Name},
			&yaml.Node{Kind: yaml.ScalarNode, Value: m.Column},
		)
	}
	return yaml.Marshal(file{
		Engine:     t.Engine,
		DatabaseID: t.DatabaseID,
		Identifier: t.Identifier,
		Properties: props,
	})
}

// Save writes the template to path, creating its directory.
func (t *Template) Save(path string) error {
	data, err := t.Marshal()
	if err != nil {
		return fmt.Errorf("encoding template: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating template directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing template: %w", err)
	}
	return nil
}

// Default returns the starter paper template for an engine and database.
// Column names match a typical paper database and are meant to be edited.
func Default(engineName, databaseID string) *Template {
	pairs := [][2]string{
		{"title", "Title"},
		{"date", "Date"},
		{"published", "Published in"},
		{"arxiv_id", "ArXiv ID"},
		{"citations", "Citations"},
		{"authors", "Authors"},
		{"url", "Link"},
		{"bibtex", "Bibtex"},
	}
	if engineName == "semantic" {
		pairs[3] = [2]string{"corpus_id", "Corpus ID"}
	}

	t := &Template{
		Name:       DefaultName,
		Engine:     engineName,
		DatabaseID: databaseID,
		Identifier: defaultIdentifiers[engineName],
	}
	for _, p := range pairs {
		field, err := engine.LookupField(p[0])
		if err != nil {
			panic(err)
		}
		t.Mappings = append(t.Mappings, Mapping{Field: field, Column: p[1]})
	}
	return t
}
