// Package cache stores engine results in a local SQLite database so that a
// paper can be re-synced without contacting the engine again.
package cache

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/matsen/hpm/internal/engine"
	"github.com/matsen/hpm/internal/engine/inspire"
	"github.com/matsen/hpm/internal/engine/semantic"
	_ "modernc.org/sqlite"
)

// DBFile is the cache database file name inside the cache directory.
const DBFile = "engine.db"

// ErrMiss indicates no cached result for an identifier.
var ErrMiss = errors.New("no cached result")

// Store is a SQLite-backed engine result cache.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Entry is a cached result with the time it was fetched.
type Entry struct {
	Result    *engine.Result
	FetchedAt time.Time
}

// Open opens or creates the cache database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening cache: %w", err)
	}

	// SQLite doesn't support concurrent writes
	db.SetMaxOpenConns(1)

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating cache schema: %w", err)
	}

	return &Store{db: db, now: time.Now}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func createSchema(db *sql.DB) error {
	schema := `
		CREATE TABLE IF NOT EXISTS results (
			engine TEXT NOT NULL,
			identifier TEXT NOT NULL,
			title TEXT NOT NULL,
			result_json TEXT NOT NULL,
			fetched_at INTEGER NOT NULL,
			PRIMARY KEY (engine, identifier)
		);
	`
	_, err := db.Exec(schema)
	return err
}

// numericTypes is how each engine reads a bare record number.
var numericTypes = map[string]string{
	inspire.Name:  engine.IDLiterature,
	semantic.Name: engine.IDCorpus,
}

// Key returns the canonical cache key of an identifier for an engine, so
// that "arXiv:1407.5675" and "1407.5675" share an entry, as do "12345" and
// "literature:12345" for inspire.
func Key(engineName, identifier string) string {
	id := engine.ParseIdentifier(identifier)
	if id.Type == engine.IDUnknown && id.IsNumeric() {
		if typ, ok := numericTypes[engineName]; ok {
			id.Type = typ
		}
	}
	return id.String()
}

// Get returns the cached result for an identifier, or ErrMiss.
func (s *Store) Get(engineName, identifier string) (*Entry, error) {
	var (
		data      string
		fetchedAt int64
	)
	err := s.db.QueryRow(
		`SELECT result_json, fetched_at FROM results WHERE engine = ? AND identifier = ?`,
		engineName, Key(engineName, identifier),
	).Scan(&data, &fetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s %s", ErrMiss, engineName, identifier)
	}
	if err != nil {
		return nil, fmt.Errorf("reading cache: %w", err)
	}

	var r engine.Result
	if err := json.Unmarshal([]byte(data), &r); err != nil {
		return nil, fmt.Errorf("decoding cached result for %s: %w", identifier, err)
	}
	return &Entry{Result: &r, FetchedAt: time.Unix(fetchedAt, 0)}, nil
}

// Put stores a result, replacing any earlier entry for the identifier.
func (s *Store) Put(identifier string, r *engine.Result) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encoding result: %w", err)
	}
	_, err = s.db.Exec(`
		INSERT INTO results (engine, identifier, title, result_json, fetched_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (engine, identifier) DO UPDATE SET
			title = excluded.title,
			result_json = excluded.result_json,
			fetched_at = excluded.fetched_at`,
		r.Engine, Key(r.Engine, identifier), r.Title, string(data), s.now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("writing cache: %w", err)
	}
	return nil
}

// Delete removes the entry for an identifier. Deleting a missing entry is
// not an error.
func (s *Store) Delete(engineName, identifier string) error {
	if _, err := s.db.Exec(`DELETE FROM results WHERE engine = ? AND identifier = ?`, engineName, Key(engineName, identifier)); err != nil {
		return fmt.Errorf("deleting cache entry: %w", err)
	}
	return nil
}

// Count returns the number of cached results.
func (s *Store) Count() (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM results`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting cache entries: %w", err)
	}
	return n, nil
}
