package syncer

import (
	"context"
	"errors"
	"fmt"

	"github.com/matsen/hpm/internal/notion"
	"go.uber.org/zap"
)

// BatchReport summarizes an UpdateAll run.
type BatchReport struct {
	Outcomes []*Outcome
	Failures []*StepError
	// Skipped lists ids of pages with an empty identifier column.
	Skipped []string
}

// Count returns the number of outcomes with the given action.
func (r *BatchReport) Count(a Action) int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Action == a {
			n++
		}
	}
	return n
}

// Err joins the per-item failures, or returns nil when every item synced.
func (r *BatchReport) Err() error {
	if len(r.Failures) == 0 {
		return nil
	}
	errs := make([]error, len(r.Failures))
	for i, f := range r.Failures {
		errs[i] = f
	}
	return errors.Join(errs...)
}

// UpdateAll refreshes every page of the target database, reading each
// page's identifier from the templated identifier column. A failing page is
// logged and recorded and the batch moves on; only failing to list the
// pages aborts the run.
func (s *Syncer) UpdateAll(ctx context.Context) (*BatchReport, error) {
	column, ok := s.template.IdentifierColumn()
	if !ok {
		return nil, fmt.Errorf("%w: template %s does not map %q", ErrNoIdentifierColumn, s.template.Name, s.template.Identifier)
	}

	if _, err := s.resolveSchema(ctx); err != nil {
		return nil, &StepError{Identifier: "all", Step: StepResolvingSchema, Err: err}
	}
	pages, err := s.workspace.QueryDatabase(ctx, s.template.DatabaseID)
	if err != nil {
		return nil, &StepError{Identifier: "all", Step: StepLocatingExistingPage, Err: err}
	}

	report := &BatchReport{}
	for _, page := range pages {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		identifier := pageIdentifier(page, column)
		if identifier == "" {
			s.logger.Warn("page has no identifier, skipping",
				zap.String("page", page.ID), zap.String("column", column))
			report.Skipped = append(report.Skipped, page.ID)
			continue
		}

		out, err := s.sync(ctx, identifier, modeUpdate, page)
		if err != nil {
			var stepErr *StepError
			if !errors.As(err, &stepErr) {
				stepErr = &StepError{Identifier: identifier, Step: StepFailed, Err: err}
			}
			s.logger.Error("update failed",
				zap.String("identifier", identifier),
				zap.Stringer("step", stepErr.Step),
				zap.Error(stepErr.Err))
			report.Failures = append(report.Failures, stepErr)
			continue
		}
		report.Outcomes = append(report.Outcomes, out)
	}
	return report, nil
}

func pageIdentifier(page *notion.Page, column string) string {
	v, err := page.Get(column)
	if err != nil || v.IsEmpty() {
		return ""
	}
	return v.String()
}
