package syncer

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/matsen/hpm/internal/engine"
	"github.com/matsen/hpm/internal/notion"
)

// Lookup maps related page titles to dashless page ids.
type Lookup map[string]string

// Resolve maps names through the lookup table in order. Names with no page
// are dropped.
func (l Lookup) Resolve(names []string) notion.Relation {
	ids := make([]string, 0, len(names))
	for _, name := range names {
		if id, ok := l[name]; ok {
			ids = append(ids, id)
		}
	}
	return notion.NewRelation(ids...)
}

// newLookup indexes pages by title. The first page with a title wins.
func newLookup(pages []*notion.Page) Lookup {
	l := make(Lookup, len(pages))
	for _, p := range pages {
		title := p.Title()
		if title == "" {
			continue
		}
		if _, ok := l[title]; !ok {
			l[title] = notion.NormalizeID(p.ID)
		}
	}
	return l
}

// convert builds the column value for a field value, choosing the
// conversion by the column kind.
func convert(desc notion.Descriptor, v engine.FieldValue, lookup Lookup) (notion.Value, error) {
	switch desc.Kind {
	case notion.KindTitle:
		return notion.NewTitle(notion.TruncateText(v.AsText())), nil
	case notion.KindRichText:
		return notion.NewRichText(notion.TruncateText(v.AsText())), nil
	case notion.KindSelect:
		return notion.NewSelect(v.AsText()), nil
	case notion.KindStatus:
		return notion.NewStatus(v.AsText()), nil
	case notion.KindURL:
		return notion.NewURL(v.AsText()), nil
	case notion.KindDate:
		return notion.NewDate(normalizeDate(v.AsText())), nil
	case notion.KindMultiSelect:
		return notion.NewMultiSelect(nonEmpty(v.AsList())...), nil
	case notion.KindRelation:
		return lookup.Resolve(v.AsList()), nil
	case notion.KindNumber:
		if v.Shape == engine.ShapeNumber {
			return notion.NewNumber(v.Number), nil
		}
		if v.Shape == engine.ShapeList {
			return nil, fmt.Errorf("%w: column %q is a number but the field is a list", ErrSchema, desc.Name)
		}
		if v.Text == "" {
			return notion.Number{}, nil
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(v.Text), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: column %q is a number but the field holds %q", ErrSchema, desc.Name, v.Text)
		}
		return notion.NewNumber(f), nil
	default:
		return nil, fmt.Errorf("%w: column %q has unsupported kind %q", ErrSchema, desc.Name, desc.Kind)
	}
}

// nonEmpty drops empty names, which Notion rejects as options.
func nonEmpty(names []string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		if n != "" {
			out = append(out, n)
		}
	}
	return out
}

// normalizeDate pads partial dates (2014, 2014-07) to a full ISO date.
func normalizeDate(s string) string {
	switch len(s) {
	case 4:
		return s + "-01-01"
	case 7:
		return s + "-01"
	default:
		return s
	}
}
