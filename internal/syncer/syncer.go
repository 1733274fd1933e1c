// Package syncer maps engine results onto pages of a Notion database,
// creating new pages or updating existing ones with a minimal diff.
package syncer

import (
	"context"
	"fmt"

	"github.com/matsen/hpm/internal/engine"
	"github.com/matsen/hpm/internal/notion"
	"github.com/matsen/hpm/internal/template"
	"go.uber.org/zap"
)

// Workspace is the subset of the Notion API the syncer needs.
// *notion.Client implements it.
type Workspace interface {
	RetrieveDatabase(ctx context.Context, databaseID string) (*notion.Database, error)
	QueryDatabase(ctx context.Context, databaseID string) ([]*notion.Page, error)
	CreatePage(ctx context.Context, page *notion.Page) (*notion.Page, error)
	UpdatePage(ctx context.Context, page *notion.Page) (*notion.Page, error)
}

// Action is what a sync did to the target database.
type Action int

const (
	ActionCreated Action = iota
	ActionUpdated
	ActionUnchanged
)

func (a Action) String() string {
	switch a {
	case ActionCreated:
		return "created"
	case ActionUpdated:
		return "updated"
	default:
		return "unchanged"
	}
}

// Change is one column whose value an update replaced.
type Change struct {
	Column string
	Before notion.Value
	After  notion.Value
}

// String renders the change as "Column: before -> after".
func (c Change) String() string {
	return fmt.Sprintf("%s: %s -> %s", c.Column, notion.Display(c.Before), notion.Display(c.After))
}

// Outcome is the result of syncing one identifier.
type Outcome struct {
	Identifier string
	Title      string
	Action     Action
	Page       *notion.Page
	Changes    []Change
}

// Syncer runs the sync pipeline for one template. The database schema and
// relation lookup tables are fetched at most once per Syncer and reused for
// every identifier it processes. A Syncer is not safe for concurrent use.
type Syncer struct {
	workspace Workspace
	engine    engine.Engine
	template  *template.Template
	logger    *zap.Logger

	schema  *notion.Database
	lookups map[string]Lookup
}

// Option configures a Syncer.
type Option func(*Syncer)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(s *Syncer) {
		s.logger = l
	}
}

// New creates a Syncer writing through ws with results from eng.
func New(ws Workspace, eng engine.Engine, tmpl *template.Template, opts ...Option) (*Syncer, error) {
	if eng.Name() != tmpl.Engine {
		return nil, fmt.Errorf("%w: template %s is for %s, engine is %s",
			ErrEngineMismatch, tmpl.Name, tmpl.Engine, eng.Name())
	}
	s := &Syncer{
		workspace: ws,
		engine:    eng,
		template:  tmpl,
		logger:    zap.NewNop(),
		lookups:   make(map[string]Lookup),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// mode selects what happens once the existing page lookup is done.
type mode int

const (
	modeCreate mode = iota
	modeUpsert
	modeUpdate
)

// Add creates a page for the identifier. An existing page with the same
// title is a conflict unless update is set, in which case it is updated.
func (s *Syncer) Add(ctx context.Context, identifier string, update bool) (*Outcome, error) {
	m := modeCreate
	if update {
		m = modeUpsert
	}
	return s.sync(ctx, identifier, m, nil)
}

// Update refreshes the existing page for the identifier.
func (s *Syncer) Update(ctx context.Context, identifier string) (*Outcome, error) {
	return s.sync(ctx, identifier, modeUpdate, nil)
}

// pipeline carries one identifier through the steps.
type pipeline struct {
	identifier string
	step       Step
	log        *zap.Logger
}

func (p *pipeline) enter(step Step) {
	p.step = step
	p.log.Debug("sync step", zap.Stringer("step", step))
}

func (p *pipeline) fail(err error) error {
	p.log.Debug("sync failed", zap.Stringer("step", p.step), zap.Error(err))
	return &StepError{Identifier: p.identifier, Step: p.step, Err: err}
}

// sync runs the pipeline. A non-nil existing page skips the title lookup.
func (s *Syncer) sync(ctx context.Context, identifier string, m mode, existing *notion.Page) (*Outcome, error) {
	p := &pipeline{
		identifier: identifier,
		log:        s.logger.With(zap.String("identifier", identifier)),
	}

	p.enter(StepFetchingEngineResult)
	result, err := s.engine.Fetch(ctx, identifier)
	if err != nil {
		return nil, p.fail(err)
	}

	p.enter(StepResolvingSchema)
	schema, err := s.resolveSchema(ctx)
	if err != nil {
		return nil, p.fail(err)
	}

	p.enter(StepResolvingRelations)
	desired, err := s.desiredValues(ctx, schema, result)
	if err != nil {
		return nil, p.fail(err)
	}

	if existing == nil {
		p.enter(StepLocatingExistingPage)
		existing, err = s.locate(ctx, result)
		if err != nil {
			return nil, p.fail(err)
		}
	}

	out := &Outcome{Identifier: identifier, Title: result.Title}

	switch {
	case existing == nil && m == modeUpdate:
		return nil, p.fail(fmt.Errorf("%w: %q", ErrPageNotFound, result.Title))

	case existing == nil:
		p.enter(StepCreating)
		page := notion.NewPage(schema)
		for _, col := range desired.columns {
			page.Set(col, desired.values[col])
		}
		created, err := s.workspace.CreatePage(ctx, page)
		if err != nil {
			return nil, p.fail(err)
		}
		out.Action, out.Page = ActionCreated, created

	case m == modeCreate:
		p.enter(StepCreating)
		return nil, p.fail(fmt.Errorf("%w: %q", ErrConflict, result.Title))

	default:
		p.enter(StepDiffingAndUpdating)
		out.Changes = diff(existing, desired)
		out.Action, out.Page = ActionUnchanged, existing
		if len(out.Changes) > 0 {
			patch := notion.NewSparsePage(existing.ID)
			for _, c := range out.Changes {
				patch.Set(c.Column, c.After)
			}
			updated, err := s.workspace.UpdatePage(ctx, patch)
			if err != nil {
				return nil, p.fail(err)
			}
			out.Action, out.Page = ActionUpdated, updated
		}
	}

	p.enter(StepDone)
	p.log.Info("synced",
		zap.String("title", out.Title),
		zap.Stringer("action", out.Action),
		zap.Int("changes", len(out.Changes)))
	return out, nil
}

// resolveSchema retrieves the target schema once and checks that every
// templated column exists with a supported kind.
func (s *Syncer) resolveSchema(ctx context.Context) (*notion.Database, error) {
	if s.schema != nil {
		return s.schema, nil
	}

	db, err := s.workspace.RetrieveDatabase(ctx, s.template.DatabaseID)
	if err != nil {
		return nil, err
	}
	for _, m := range s.template.Mappings {
		if _, err := db.Property(m.Column); err != nil {
			return nil, fmt.Errorf("%w: column %q is missing or of an unsupported kind: %v", ErrSchema, m.Column, err)
		}
	}
	if db.ID == "" {
		db.ID = notion.NormalizeID(s.template.DatabaseID)
	}

	s.schema = db
	return db, nil
}

// lookup returns the title index of a related database, querying it on
// first use.
func (s *Syncer) lookup(ctx context.Context, databaseID string) (Lookup, error) {
	key := notion.NormalizeID(databaseID)
	if l, ok := s.lookups[key]; ok {
		return l, nil
	}
	pages, err := s.workspace.QueryDatabase(ctx, databaseID)
	if err != nil {
		return nil, fmt.Errorf("querying related database %s: %w", databaseID, err)
	}
	l := newLookup(pages)
	s.lookups[key] = l
	s.logger.Debug("built relation lookup", zap.String("database", key), zap.Int("pages", len(l)))
	return l, nil
}

// values is an ordered column to value mapping.
type values struct {
	columns []string
	values  map[string]notion.Value
}

// desiredValues converts every templated field of the result into its
// column value. Related databases are queried only for Relation columns.
func (s *Syncer) desiredValues(ctx context.Context, schema *notion.Database, result *engine.Result) (*values, error) {
	out := &values{values: make(map[string]notion.Value, len(s.template.Mappings))}
	for _, m := range s.template.Mappings {
		desc, err := schema.Property(m.Column)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrSchema, err)
		}

		var table Lookup
		if desc.Kind == notion.KindRelation {
			if table, err = s.lookup(ctx, desc.RelatedDatabaseID); err != nil {
				return nil, err
			}
		}

		v, err := convert(desc, m.Field.Value(result), table)
		if err != nil {
			return nil, err
		}
		out.columns = append(out.columns, m.Column)
		out.values[m.Column] = v
	}
	return out, nil
}

// locate finds the page whose title equals the result's title as stored,
// that is after truncation. The first match in query order wins.
func (s *Syncer) locate(ctx context.Context, result *engine.Result) (*notion.Page, error) {
	pages, err := s.workspace.QueryDatabase(ctx, s.template.DatabaseID)
	if err != nil {
		return nil, err
	}
	title := notion.TruncateText(result.Title)
	for _, p := range pages {
		if p.Title() == title {
			return p, nil
		}
	}
	return nil, nil
}

// diff compares every templated column of the existing page with its
// desired value. Columns absent from the page count as empty.
func diff(existing *notion.Page, desired *values) []Change {
	var changes []Change
	for _, col := range desired.columns {
		after := desired.values[col]
		before, err := existing.Get(col)
		if err != nil {
			before = notion.Empty(after.Kind())
		}
		if !notion.Equal(before, after) {
			changes = append(changes, Change{Column: col, Before: before, After: after})
		}
	}
	return changes
}
