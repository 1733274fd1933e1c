package syncer

import (
	"strings"
	"testing"

	"github.com/matsen/hpm/internal/engine"
	"github.com/matsen/hpm/internal/notion"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupResolve_DropsUnknownNames(t *testing.T) {
	l := Lookup{"Alice": "id1", "Bob": "id2"}
	got := l.Resolve([]string{"Alice", "Carol"})
	assert.Equal(t, []string{"id1"}, got.IDs)
}

func TestNewLookup_FirstTitleWins(t *testing.T) {
	l := newLookup([]*notion.Page{
		titledPage("a-1", authorsDB, "Alice"),
		titledPage("a-2", authorsDB, "Alice"),
		titledPage("a-3", authorsDB, ""),
	})
	assert.Equal(t, Lookup{"Alice": "a1"}, l)
}

func TestConvert(t *testing.T) {
	text := func(s string) engine.FieldValue { return engine.FieldValue{Shape: engine.ShapeText, Text: s} }
	list := func(s ...string) engine.FieldValue { return engine.FieldValue{Shape: engine.ShapeList, List: s} }

	tests := []struct {
		name  string
		kind  notion.Kind
		value engine.FieldValue
		want  notion.Value
	}{
		{"title", notion.KindTitle, text("T"), notion.NewTitle("T")},
		{"list into rich text", notion.KindRichText, list("a", "b"), notion.NewRichText("a, b")},
		{"select", notion.KindSelect, text("JHEP"), notion.NewSelect("JHEP")},
		{"empty select", notion.KindSelect, text(""), notion.Select{}},
		{"status", notion.KindStatus, text("Done"), notion.NewStatus("Done")},
		{"url", notion.KindURL, text("https://x"), notion.NewURL("https://x")},
		{"date", notion.KindDate, text("2014-07-21"), notion.NewDate("2014-07-21")},
		{"month date", notion.KindDate, text("2014-07"), notion.NewDate("2014-07-01")},
		{"year date", notion.KindDate, text("2014"), notion.NewDate("2014-01-01")},
		{"multi select", notion.KindMultiSelect, list("a", "b"), notion.NewMultiSelect("a", "b")},
		{"scalar multi select", notion.KindMultiSelect, text("a"), notion.NewMultiSelect("a")},
		{"multi select without empty names", notion.KindMultiSelect, list("X.Y", "", "Z.W"), notion.NewMultiSelect("X.Y", "Z.W")},
		{"number", notion.KindNumber, engine.FieldValue{Shape: engine.ShapeNumber, Number: 3}, notion.NewNumber(3)},
		{"number from text", notion.KindNumber, text("1306300"), notion.NewNumber(1306300)},
		{"empty number", notion.KindNumber, text(""), notion.Number{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := convert(notion.Descriptor{Name: "C", Kind: tt.kind}, tt.value, nil)
			require.NoError(t, err)
			assert.True(t, notion.Equal(tt.want, got), "convert() = %#v, want %#v", got, tt.want)
		})
	}
}

func TestConvert_AuthorIDsSkipMissing(t *testing.T) {
	field, err := engine.LookupField("authors.id")
	require.NoError(t, err)
	result := &engine.Result{Authors: []engine.Author{{Name: "A", ID: "X.Y"}, {Name: "B"}}}

	got, err := convert(notion.Descriptor{Name: "Author IDs", Kind: notion.KindMultiSelect}, field.Value(result), nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"multi_select": []map[string]any{{"name": "X.Y"}}}, notion.Encode(got))
}

func TestConvert_Relation(t *testing.T) {
	got, err := convert(notion.Descriptor{Kind: notion.KindRelation},
		engine.FieldValue{Shape: engine.ShapeList, List: []string{"Bob", "Alice", "Dave"}},
		Lookup{"Alice": "id1", "Bob": "id2"})
	require.NoError(t, err)
	assert.Equal(t, notion.NewRelation("id2", "id1"), got)
}

func TestConvert_Errors(t *testing.T) {
	_, err := convert(notion.Descriptor{Name: "Citations", Kind: notion.KindNumber},
		engine.FieldValue{Shape: engine.ShapeText, Text: "many"}, nil)
	assert.ErrorIs(t, err, ErrSchema)

	_, err = convert(notion.Descriptor{Name: "Citations", Kind: notion.KindNumber},
		engine.FieldValue{Shape: engine.ShapeList, List: []string{"1"}}, nil)
	assert.ErrorIs(t, err, ErrSchema)

	_, err = convert(notion.Descriptor{Name: "Rollup", Kind: notion.Kind("rollup")},
		engine.FieldValue{}, nil)
	assert.ErrorIs(t, err, ErrSchema)
}

func TestConvert_TruncatesLongText(t *testing.T) {
	got, err := convert(notion.Descriptor{Kind: notion.KindRichText},
		engine.FieldValue{Shape: engine.ShapeText, Text: strings.Repeat("x", 2500)}, nil)
	require.NoError(t, err)
	text := got.(notion.RichText).Text
	assert.Equal(t, strings.Repeat("x", 1997)+"...", text)
}

func TestChangeString(t *testing.T) {
	c := Change{Column: "Venue", Before: notion.Select{}, After: notion.NewSelect("JHEP")}
	assert.Equal(t, "Venue: None -> JHEP", c.String())
}
