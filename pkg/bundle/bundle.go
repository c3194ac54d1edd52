// Package bundle is the binary output sink: a local SQLite database used
// as a keyed blob store, where the key is an analysis name and the value
// is the analysis's structured output serialized with msgpack. It is the
// alternative to per-analysis file artifacts.
package bundle

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"
	_ "modernc.org/sqlite"
)

// Store is an open bundle file.
type Store struct {
	db *sql.DB
}

// Entry describes one stored analysis payload.
type Entry struct {
	Name      string
	Format    string
	Size      int
	CreatedAt time.Time
}

// Open creates or opens the bundle at path. The schema is created
// automatically on first use.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("bundle: open %s: %w", path, err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("bundle: migrate: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS bundle (
			analysis_name TEXT PRIMARY KEY,
			format TEXT NOT NULL,
			payload BLOB NOT NULL,
			created_at TEXT NOT NULL
		);
		CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);
	`)
	return err
}

// Put serializes v with msgpack and stores it under name, replacing any
// previous payload for the same analysis. format records the shape the
// payload had as a file artifact ("json", "txt", "dot"), for inspection
// tooling only.
func (s *Store) Put(name, format string, v any) error {
	payload, err := msgpack.Marshal(v)
	if err != nil {
		return fmt.Errorf("bundle: marshal %s: %w", name, err)
	}
	_, err = s.db.Exec(
		`INSERT OR REPLACE INTO bundle (analysis_name, format, payload, created_at) VALUES (?, ?, ?, ?)`,
		name, format, payload, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("bundle: put %s: %w", name, err)
	}
	return nil
}

// Get deserializes the payload stored under name into v and returns its
// recorded format. sql.ErrNoRows is returned unwrapped for a missing key.
func (s *Store) Get(name string, v any) (string, error) {
	var format string
	var payload []byte
	err := s.db.QueryRow(
		`SELECT format, payload FROM bundle WHERE analysis_name = ?`, name,
	).Scan(&format, &payload)
	if err != nil {
		return "", err
	}
	if err := msgpack.Unmarshal(payload, v); err != nil {
		return "", fmt.Errorf("bundle: unmarshal %s: %w", name, err)
	}
	return format, nil
}

// List returns every stored entry, ordered by analysis name.
func (s *Store) List() ([]Entry, error) {
	rows, err := s.db.Query(
		`SELECT analysis_name, format, length(payload), created_at FROM bundle ORDER BY analysis_name`,
	)
	if err != nil {
		return nil, fmt.Errorf("bundle: list: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var created string
		if err := rows.Scan(&e.Name, &e.Format, &e.Size, &created); err != nil {
			return nil, fmt.Errorf("bundle: scan: %w", err)
		}
		e.CreatedAt, _ = time.Parse(time.RFC3339, created)
		out = append(out, e)
	}
	return out, rows.Err()
}

// SetMeta records a metadata key (run id, tool version) alongside the
// payloads.
func (s *Store) SetMeta(key, value string) error {
	_, err := s.db.Exec(`INSERT OR REPLACE INTO meta (key, value) VALUES (?, ?)`, key, value)
	if err != nil {
		return fmt.Errorf("bundle: set meta %s: %w", key, err)
	}
	return nil
}

// Meta returns a recorded metadata value; sql.ErrNoRows if absent.
func (s *Store) Meta(key string) (string, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM meta WHERE key = ?`, key).Scan(&value)
	return value, err
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
