package notion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func pageJSON(id, title string) string {
	return fmt.Sprintf(`{"object":"page","id":%q,"parent":{"database_id":"db1"},"url":"https://www.notion.so/%s",
		"properties":{"Title":{"id":"title","type":"title","title":[{"plain_text":%q}]}}}`, id, id, title)
}

func newTestClient(t *testing.T, handler http.HandlerFunc, opts ...ClientOption) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	opts = append([]ClientOption{WithBaseURL(srv.URL), WithRateLimit(1000)}, opts...)
	return NewClient("secret_test", opts...)
}

func TestClient_Headers(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer secret_test" {
			t.Errorf("Authorization = %q", got)
		}
		if got := r.Header.Get("Notion-Version"); got != APIVersion {
			t.Errorf("Notion-Version = %q", got)
		}
		if r.URL.Path != "/databases/db1" || r.Method != http.MethodGet {
			t.Errorf("request = %s %s", r.Method, r.URL.Path)
		}
		io.WriteString(w, testDatabaseJSON)
	})

	db, err := c.RetrieveDatabase(context.Background(), "db1")
	if err != nil {
		t.Fatalf("RetrieveDatabase() error = %v", err)
	}
	if db.Title != "Papers" {
		t.Errorf("Title = %q", db.Title)
	}
}

func TestClient_QueryDatabasePaginates(t *testing.T) {
	all := []string{
		pageJSON("00000000000000000000000000000001", "A"),
		pageJSON("00000000000000000000000000000002", "B"),
	}

	var bodies []map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/databases/db1/query" {
			t.Errorf("request = %s %s", r.Method, r.URL.Path)
		}
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		bodies = append(bodies, body)

		switch body["start_cursor"] {
		case nil:
			fmt.Fprintf(w, `{"results":[%s],"has_more":true,"next_cursor":"cursor-2"}`, all[0])
		case "cursor-2":
			fmt.Fprintf(w, `{"results":[%s],"has_more":false,"next_cursor":null}`, all[1])
		default:
			t.Errorf("unexpected cursor %v", body["start_cursor"])
		}
	}, WithPageSize(1))

	pages, err := c.QueryDatabase(context.Background(), "db1")
	if err != nil {
		t.Fatalf("QueryDatabase() error = %v", err)
	}

	if len(bodies) != 2 {
		t.Fatalf("made %d query calls, want 2", len(bodies))
	}
	if bodies[0]["page_size"] != float64(1) {
		t.Errorf("page_size = %v, want 1", bodies[0]["page_size"])
	}
	if bodies[1]["start_cursor"] != "cursor-2" {
		t.Errorf("second call cursor = %v", bodies[1]["start_cursor"])
	}
	if len(pages) != 2 || pages[0].Title() != "A" || pages[1].Title() != "B" {
		t.Errorf("pages = %v", pages)
	}
}

func TestClient_CreatePagePayload(t *testing.T) {
	var got map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/pages" {
			t.Errorf("request = %s %s", r.Method, r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&got)
		io.WriteString(w, pageJSON("00000000000000000000000000000009", "New"))
	})

	p := NewSparsePage("")
	p.ParentID = "db1"
	p.Set("Title", NewTitle("New"))
	p.Set("Venue", Select{})

	created, err := c.CreatePage(context.Background(), p)
	if err != nil {
		t.Fatalf("CreatePage() error = %v", err)
	}
	if created.ID != "00000000000000000000000000000009" {
		t.Errorf("created ID = %q", created.ID)
	}

	parent := got["parent"].(map[string]any)
	if parent["database_id"] != "db1" {
		t.Errorf("parent = %v", parent)
	}
	props := got["properties"].(map[string]any)
	if len(props) != 2 {
		t.Errorf("properties = %v", props)
	}
	if venue := props["Venue"].(map[string]any); venue["select"] != nil {
		t.Errorf("Venue = %v, want null select", venue)
	}
}

func TestClient_UpdateAndArchive(t *testing.T) {
	var calls []string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		calls = append(calls, r.Method+" "+r.URL.Path+" "+string(body))
		io.WriteString(w, pageJSON("00000000000000000000000000000003", "X"))
	})

	p := NewSparsePage("00000000000000000000000000000003")
	p.Set("Citations", NewNumber(7))
	if _, err := c.UpdatePage(context.Background(), p); err != nil {
		t.Fatal(err)
	}
	if _, err := c.ArchivePage(context.Background(), p.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := c.RestorePage(context.Background(), p.ID); err != nil {
		t.Fatal(err)
	}

	want := []string{
		`PATCH /pages/00000000000000000000000000000003 {"properties":{"Citations":{"number":7}}}`,
		`PATCH /pages/00000000000000000000000000000003 {"archived":true}`,
		`PATCH /pages/00000000000000000000000000000003 {"archived":false}`,
	}
	for i := range want {
		if i >= len(calls) || calls[i] != want[i] {
			t.Errorf("call %d = %q, want %q", i, calls, want[i])
		}
	}
}

func TestClient_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   error
	}{
		{"unauthorized", http.StatusUnauthorized, ErrAuth},
		{"forbidden", http.StatusForbidden, ErrAuth},
		{"not found", http.StatusNotFound, ErrNotFound},
		{"conflict", http.StatusConflict, ErrUnavailable},
		{"server error", http.StatusBadGateway, ErrUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				io.WriteString(w, `{"object":"error","status":0,"code":"some_code","message":"went wrong"}`)
			})

			_, err := c.RetrievePage(context.Background(), "p1")
			if !errors.Is(err, tt.want) {
				t.Fatalf("error = %v, want %v", err, tt.want)
			}
			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("error %T is not *APIError", err)
			}
			if apiErr.StatusCode != tt.status || apiErr.Code != "some_code" || !strings.Contains(apiErr.Body, "went wrong") {
				t.Errorf("APIError = %+v", apiErr)
			}
		})
	}
}

func TestClient_MissingToken(t *testing.T) {
	c := NewClient("")
	_, err := c.RetrieveDatabase(context.Background(), "db1")
	if !IsAuthError(err) {
		t.Errorf("error = %v, want auth error", err)
	}
}

func TestClient_SearchDatabases(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/search" {
			t.Errorf("request = %s %s", r.Method, r.URL.Path)
		}
		var body struct {
			Filter map[string]string `json:"filter"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		if body.Filter["value"] != "database" {
			t.Errorf("filter = %v", body.Filter)
		}
		fmt.Fprintf(w, `{"results":[%s],"has_more":false,"next_cursor":null}`, testDatabaseJSON)
	})

	dbs, err := c.SearchDatabases(context.Background())
	if err != nil {
		t.Fatalf("SearchDatabases() error = %v", err)
	}
	if len(dbs) != 1 || dbs[0].Title != "Papers" {
		t.Errorf("SearchDatabases() = %v", dbs)
	}
}
