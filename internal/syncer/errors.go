package syncer

import (
	"errors"
	"fmt"
)

var (
	// ErrConflict indicates a create for a title that already has a page.
	ErrConflict = errors.New("page already exists")

	// ErrPageNotFound indicates an update for a paper with no page.
	ErrPageNotFound = errors.New("no page for paper")

	// ErrSchema indicates a template that does not fit the database schema.
	ErrSchema = errors.New("template does not match database schema")

	// ErrNoIdentifierColumn indicates a batch update whose template does not
	// map the identifier field to any column.
	ErrNoIdentifierColumn = fmt.Errorf("%w: identifier field is not mapped", ErrSchema)

	// ErrEngineMismatch indicates a template written for another engine.
	ErrEngineMismatch = errors.New("template engine does not match")
)

// StepError reports the identifier and pipeline step at which a sync failed.
type StepError struct {
	Identifier string
	Step       Step
	Err        error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Identifier, e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// IsConflict returns true if the error reports an existing page.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}
