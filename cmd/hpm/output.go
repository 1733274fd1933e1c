package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/matsen/hpm/internal/engine"
	"github.com/matsen/hpm/internal/notion"
	"github.com/matsen/hpm/internal/syncer"
)

// outputJSON writes a value as formatted JSON to stdout.
func outputJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputHuman writes a human-readable string to stdout.
func outputHuman(format string, args ...interface{}) {
	fmt.Printf(format, args...)
}

// exitWithError outputs an error in the appropriate format (human or JSON) and exits.
func exitWithError(code int, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if humanOutput {
		fmt.Fprintf(os.Stderr, "error: %s\n", msg)
	} else {
		outputJSON(ErrorResponse{Error: msg})
	}
	os.Exit(code)
}

// errorMessage renders err with a hint for the failures a user can act on.
func errorMessage(err error) string {
	switch {
	case notion.IsAuthError(err):
		return fmt.Sprintf("%v (check the integration token and that the database is shared with it)", err)
	case engine.IsNotFound(err):
		return fmt.Sprintf("%v (check the identifier and the template's engine)", err)
	case notion.IsNotFound(err):
		return fmt.Sprintf("%v (check the template's database_id and that the database is shared with the integration)", err)
	case errors.Is(err, syncer.ErrPageNotFound):
		return fmt.Sprintf("%v (run `hpm add` first)", err)
	case syncer.IsConflict(err):
		return fmt.Sprintf("%v (use --update to refresh it)", err)
	default:
		return err.Error()
	}
}

// ErrorResponse is a JSON error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// StatusResponse is a generic response for commands that return status.
type StatusResponse struct {
	Status string `json:"status"`
	Path   string `json:"path,omitempty"`
}

// SyncResponse is the response for add and update of a single paper.
type SyncResponse struct {
	Identifier string   `json:"identifier"`
	Title      string   `json:"title"`
	Action     string   `json:"action"`
	PageID     string   `json:"page_id,omitempty"`
	URL        string   `json:"url,omitempty"`
	Changes    []string `json:"changes,omitempty"`
}

// FailureResponse is one failed item of a batch update.
type FailureResponse struct {
	Identifier string `json:"identifier"`
	Step       string `json:"step"`
	Error      string `json:"error"`
}

// BatchResponse is the response for update all.
type BatchResponse struct {
	Updated   int               `json:"updated"`
	Unchanged int               `json:"unchanged"`
	Skipped   []string          `json:"skipped,omitempty"`
	Results   []SyncResponse    `json:"results"`
	Failures  []FailureResponse `json:"failures,omitempty"`
}

func newSyncResponse(out *syncer.Outcome) SyncResponse {
	resp := SyncResponse{
		Identifier: out.Identifier,
		Title:      out.Title,
		Action:     out.Action.String(),
	}
	if out.Page != nil {
		resp.PageID = out.Page.ID
		resp.URL = out.Page.URL
	}
	for _, c := range out.Changes {
		resp.Changes = append(resp.Changes, c.String())
	}
	return resp
}

// printOutcomeHuman prints one sync outcome in human-readable format.
func printOutcomeHuman(r SyncResponse) {
	switch r.Action {
	case "created":
		outputHuman("Created page for %s\n", r.Title)
		if r.URL != "" {
			outputHuman("  %s\n", r.URL)
		}
	case "updated":
		outputHuman("Updated %s\n", r.Title)
		for _, c := range r.Changes {
			outputHuman("  %s\n", c)
		}
	default:
		outputHuman("%s is up to date\n", r.Title)
	}
}
