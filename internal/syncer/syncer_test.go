package syncer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/matsen/hpm/internal/engine"
	"github.com/matsen/hpm/internal/notion"
	"github.com/matsen/hpm/internal/template"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	papersDB  = "19ef8e6eab3542aa91a2f4aa54623479"
	authorsDB = "480d39ea2a6d49d3a6e9af7b2aed8152"
)

const testSchemaJSON = `{
  "object": "database",
  "id": "19ef8e6e-ab35-42aa-91a2-f4aa54623479",
  "title": [{"plain_text": "Papers"}],
  "properties": {
    "Title": {"type": "title", "title": {}},
    "Venue": {"type": "select", "select": {"options": []}},
    "Date": {"type": "date", "date": {}},
    "Authors": {"type": "relation", "relation": {"database_id": "480d39ea-2a6d-49d3-a6e9-af7b2aed8152"}},
    "Citations": {"type": "number", "number": {}},
    "ArXiv ID": {"type": "rich_text", "rich_text": {}},
    "Notes": {"type": "rich_text", "rich_text": {}}
  }
}`

const testTemplateYAML = `engine: inspire
database_id: 19ef8e6e-ab35-42aa-91a2-f4aa54623479
properties:
  title: Title
  published: Venue
  date: Date
  authors.name: Authors
  citations: Citations
  arxiv_id: ArXiv ID
`

type fakeEngine struct {
	results map[string]*engine.Result
	calls   int
}

func (e *fakeEngine) Name() string { return "inspire" }

func (e *fakeEngine) Fetch(_ context.Context, id string) (*engine.Result, error) {
	e.calls++
	r, ok := e.results[id]
	if !ok {
		return nil, engine.NewFetchError("inspire", id, "http://test/"+id, 404, []byte(`{"message":"not found"}`))
	}
	return r, nil
}

type fakeWorkspace struct {
	schema        *notion.Database
	pages         map[string][]*notion.Page
	retrieveCalls int
	queryCalls    map[string]int
	created       []*notion.Page
	updated       []*notion.Page
	updateErr     error
}

func newFakeWorkspace(t *testing.T) *fakeWorkspace {
	t.Helper()
	db, err := notion.ParseDatabase([]byte(testSchemaJSON))
	require.NoError(t, err)
	return &fakeWorkspace{
		schema: db,
		pages: map[string][]*notion.Page{
			authorsDB: {
				titledPage("id1", authorsDB, "Alice"),
				titledPage("id2", authorsDB, "Bob"),
			},
		},
		queryCalls: make(map[string]int),
	}
}

func (w *fakeWorkspace) RetrieveDatabase(_ context.Context, id string) (*notion.Database, error) {
	w.retrieveCalls++
	if notion.NormalizeID(id) != papersDB {
		return nil, notion.ErrNotFound
	}
	return w.schema, nil
}

func (w *fakeWorkspace) QueryDatabase(_ context.Context, id string) ([]*notion.Page, error) {
	id = notion.NormalizeID(id)
	w.queryCalls[id]++
	return w.pages[id], nil
}

func (w *fakeWorkspace) CreatePage(_ context.Context, p *notion.Page) (*notion.Page, error) {
	w.created = append(w.created, p)
	p.ID = "new"
	return p, nil
}

func (w *fakeWorkspace) UpdatePage(_ context.Context, p *notion.Page) (*notion.Page, error) {
	if w.updateErr != nil {
		return nil, w.updateErr
	}
	w.updated = append(w.updated, p)
	return p, nil
}

func titledPage(id, parent, title string) *notion.Page {
	p := notion.NewSparsePage(id)
	p.ParentID = parent
	p.Set("Title", notion.NewTitle(title))
	return p
}

func testPaper() *engine.Result {
	return &engine.Result{
		Engine:    "inspire",
		Title:     "Entanglement and the thermodynamic arrow",
		Authors:   []engine.Author{{Name: "Alice", ID: "A.Alice"}, {Name: "Carol"}},
		Published: "JHEP",
		Citations: 42,
		Date:      "2014-07-21",
		ArxivID:   "1407.5675",
	}
}

// existingPaper is the stored page for testPaper before venue and date
// were known.
func existingPaper() *notion.Page {
	p := titledPage("p1", papersDB, "Entanglement and the thermodynamic arrow")
	p.Set("Venue", notion.Select{})
	p.Set("Date", notion.Date{})
	p.Set("Authors", notion.NewRelation("id1"))
	p.Set("Citations", notion.NewNumber(42))
	p.Set("ArXiv ID", notion.NewRichText("1407.5675"))
	p.Set("Notes", notion.NewRichText("keep me"))
	return p
}

func newTestSyncer(t *testing.T, ws *fakeWorkspace, yaml string) (*Syncer, *fakeEngine) {
	t.Helper()
	tmpl, err := template.Parse("paper", []byte(yaml))
	require.NoError(t, err)
	eng := &fakeEngine{results: map[string]*engine.Result{"1407.5675": testPaper()}}
	s, err := New(ws, eng, tmpl)
	require.NoError(t, err)
	return s, eng
}

func TestAdd_CreatesPageMirroringSchema(t *testing.T) {
	ws := newFakeWorkspace(t)
	s, _ := newTestSyncer(t, ws, testTemplateYAML)

	out, err := s.Add(context.Background(), "1407.5675", false)
	require.NoError(t, err)
	assert.Equal(t, ActionCreated, out.Action)
	require.Len(t, ws.created, 1)

	page := ws.created[0]
	assert.Equal(t, papersDB, page.ParentID)
	assert.Equal(t, ws.schema.Names(), page.Names(), "every schema column is present")

	notes, err := page.Get("Notes")
	require.NoError(t, err)
	assert.True(t, notes.IsEmpty(), "unmapped column is an empty placeholder")

	authors, _ := page.Get("Authors")
	assert.Equal(t, notion.NewRelation("id1"), authors, "Carol has no page and is dropped")

	venue, _ := page.Get("Venue")
	assert.Equal(t, notion.NewSelect("JHEP"), venue)
	citations, _ := page.Get("Citations")
	assert.Equal(t, notion.NewNumber(42), citations)
}

func TestAdd_ConflictDoesNotCreate(t *testing.T) {
	ws := newFakeWorkspace(t)
	ws.pages[papersDB] = []*notion.Page{existingPaper()}
	s, _ := newTestSyncer(t, ws, testTemplateYAML)

	_, err := s.Add(context.Background(), "1407.5675", false)
	require.Error(t, err)
	assert.True(t, IsConflict(err))
	assert.Empty(t, ws.created)
	assert.Empty(t, ws.updated)

	var stepErr *StepError
	require.True(t, errors.As(err, &stepErr))
	assert.Equal(t, "1407.5675", stepErr.Identifier)
	assert.Equal(t, StepCreating, stepErr.Step)
}

func TestAdd_ConflictOnTruncatedTitle(t *testing.T) {
	long := strings.Repeat("entropy ", 300)
	ws := newFakeWorkspace(t)
	ws.pages[papersDB] = []*notion.Page{titledPage("p1", papersDB, notion.TruncateText(long))}
	s, eng := newTestSyncer(t, ws, testTemplateYAML)
	paper := testPaper()
	paper.Title = long
	eng.results["1407.5675"] = paper

	_, err := s.Add(context.Background(), "1407.5675", false)
	assert.True(t, IsConflict(err), "Add() error = %v, want conflict", err)
	assert.Empty(t, ws.created)
}

func TestAdd_WithUpdateDiffsExisting(t *testing.T) {
	ws := newFakeWorkspace(t)
	ws.pages[papersDB] = []*notion.Page{existingPaper()}
	s, _ := newTestSyncer(t, ws, testTemplateYAML)

	out, err := s.Add(context.Background(), "1407.5675", true)
	require.NoError(t, err)
	assert.Equal(t, ActionUpdated, out.Action)
	assert.Empty(t, ws.created)
	assert.Len(t, ws.updated, 1)
}

func TestUpdate_ReportsAndSendsOnlyChanges(t *testing.T) {
	ws := newFakeWorkspace(t)
	ws.pages[papersDB] = []*notion.Page{existingPaper()}
	s, _ := newTestSyncer(t, ws, testTemplateYAML)

	out, err := s.Update(context.Background(), "1407.5675")
	require.NoError(t, err)
	assert.Equal(t, ActionUpdated, out.Action)

	var report []string
	for _, c := range out.Changes {
		report = append(report, c.String())
	}
	assert.Equal(t, []string{"Venue: None -> JHEP", "Date: None -> 2014-07-21"}, report)

	require.Len(t, ws.updated, 1, "one update call per page")
	patch := ws.updated[0]
	assert.Equal(t, "p1", patch.ID)
	assert.Equal(t, []string{"Venue", "Date"}, patch.Names())
	assert.Equal(t, map[string]any{
		"Venue": map[string]any{"select": map[string]any{"name": "JHEP"}},
		"Date":  map[string]any{"date": map[string]any{"start": "2014-07-21"}},
	}, patch.Properties())
}

func TestUpdate_UnchangedColumnExcluded(t *testing.T) {
	ws := newFakeWorkspace(t)
	existing := existingPaper()
	existing.Set("Venue", notion.NewSelect("JHEP"))
	ws.pages[papersDB] = []*notion.Page{existing}
	s, _ := newTestSyncer(t, ws, testTemplateYAML)

	out, err := s.Update(context.Background(), "1407.5675")
	require.NoError(t, err)
	require.Len(t, out.Changes, 1)
	assert.Equal(t, "Date", out.Changes[0].Column)
	require.Len(t, ws.updated, 1)
	assert.Equal(t, []string{"Date"}, ws.updated[0].Names())
}

func TestUpdate_NoChangesNoCall(t *testing.T) {
	ws := newFakeWorkspace(t)
	existing := existingPaper()
	existing.Set("Venue", notion.NewSelect("JHEP"))
	existing.Set("Date", notion.NewDate("2014-07-21"))
	ws.pages[papersDB] = []*notion.Page{existing}
	s, _ := newTestSyncer(t, ws, testTemplateYAML)

	out, err := s.Update(context.Background(), "1407.5675")
	require.NoError(t, err)
	assert.Equal(t, ActionUnchanged, out.Action)
	assert.Empty(t, out.Changes)
	assert.Empty(t, ws.updated)
}

func TestUpdate_MissingPage(t *testing.T) {
	ws := newFakeWorkspace(t)
	s, _ := newTestSyncer(t, ws, testTemplateYAML)

	_, err := s.Update(context.Background(), "1407.5675")
	require.ErrorIs(t, err, ErrPageNotFound)
	assert.Empty(t, ws.created)

	var stepErr *StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, StepLocatingExistingPage, stepErr.Step)
}

func TestUpdate_WriteFailure(t *testing.T) {
	ws := newFakeWorkspace(t)
	ws.pages[papersDB] = []*notion.Page{existingPaper()}
	ws.updateErr = notion.ErrUnavailable
	s, _ := newTestSyncer(t, ws, testTemplateYAML)

	_, err := s.Update(context.Background(), "1407.5675")
	require.ErrorIs(t, err, notion.ErrUnavailable)
	var stepErr *StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, StepDiffingAndUpdating, stepErr.Step)
}

func TestSync_FetchFailure(t *testing.T) {
	ws := newFakeWorkspace(t)
	s, _ := newTestSyncer(t, ws, testTemplateYAML)

	_, err := s.Add(context.Background(), "0000.00000", false)
	require.ErrorIs(t, err, engine.ErrPaperNotFound)
	var stepErr *StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, StepFetchingEngineResult, stepErr.Step)
	assert.Zero(t, ws.retrieveCalls, "schema is not fetched after a failed lookup")
}

func TestSync_SchemaAndRelationsFetchedOnce(t *testing.T) {
	ws := newFakeWorkspace(t)
	s, eng := newTestSyncer(t, ws, testTemplateYAML)
	eng.results["1511.05190"] = &engine.Result{Title: "Another paper", Authors: []engine.Author{{Name: "Bob"}}}

	_, err := s.Add(context.Background(), "1407.5675", false)
	require.NoError(t, err)
	_, err = s.Add(context.Background(), "1511.05190", false)
	require.NoError(t, err)

	assert.Equal(t, 1, ws.retrieveCalls)
	assert.Equal(t, 1, ws.queryCalls[authorsDB])
	assert.Equal(t, 2, ws.queryCalls[papersDB], "existing pages are located per paper")
	require.Len(t, ws.created, 2)
	authors, _ := ws.created[1].Get("Authors")
	assert.Equal(t, notion.NewRelation("id2"), authors)
}

func TestSync_RelationsOnlyQueriedWhenTemplated(t *testing.T) {
	ws := newFakeWorkspace(t)
	s, _ := newTestSyncer(t, ws, `database_id: `+papersDB+`
properties:
  title: Title
  published: Venue
`)

	_, err := s.Add(context.Background(), "1407.5675", false)
	require.NoError(t, err)
	assert.Zero(t, ws.queryCalls[authorsDB])
}

func TestSync_SchemaMismatch(t *testing.T) {
	ws := newFakeWorkspace(t)
	s, _ := newTestSyncer(t, ws, `database_id: `+papersDB+`
properties:
  title: Title
  doi: DOI
`)

	_, err := s.Add(context.Background(), "1407.5675", false)
	require.ErrorIs(t, err, ErrSchema)
	var stepErr *StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, StepResolvingSchema, stepErr.Step)
	assert.Empty(t, ws.created)
}

func TestSync_SchemaUnavailable(t *testing.T) {
	ws := newFakeWorkspace(t)
	s, _ := newTestSyncer(t, ws, "database_id: ffffffffffffffffffffffffffffffff\nproperties:\n  title: Title\n")

	_, err := s.Add(context.Background(), "1407.5675", false)
	require.ErrorIs(t, err, notion.ErrNotFound)
}

func TestNew_EngineMismatch(t *testing.T) {
	tmpl, err := template.Parse("paper", []byte("engine: semantic\ndatabase_id: x\nproperties:\n  title: Title\n"))
	require.NoError(t, err)
	_, err = New(newFakeWorkspace(t), &fakeEngine{}, tmpl)
	assert.ErrorIs(t, err, ErrEngineMismatch)
}

func TestStepString(t *testing.T) {
	assert.Equal(t, "resolving relations", StepResolvingRelations.String())
	assert.Equal(t, "unknown", Step(99).String())
}
