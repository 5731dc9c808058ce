// Package audit persists hook decisions to a local SQLite database.
//
// The store is strictly caller-side bookkeeping: the classifier never
// touches it, and a store failure never changes a verdict or an exit code.
package audit

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// ErrStoreClosed is returned when using a store after Close.
var ErrStoreClosed = errors.New("audit store is closed")

// Decision is one recorded hook decision.
type Decision struct {
	ID          string    `json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	Command     string    `json:"command"`
	BaseCommand string    `json:"base_command,omitempty"`
	Outcome     string    `json:"outcome"`
	Reason      string    `json:"reason,omitempty"`
	Suggestions []string  `json:"suggestions,omitempty"`
}

// Store is a SQLite-backed decision log.
type Store struct {
	db *sql.DB
}

// DefaultPath returns the default store location.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".shellguard", "decisions.db")
}

const schema = `
CREATE TABLE IF NOT EXISTS decisions (
	id           TEXT PRIMARY KEY,
	created_at   TEXT NOT NULL,
	command      TEXT NOT NULL,
	base_command TEXT,
	outcome      TEXT NOT NULL,
	reason       TEXT,
	suggestions  TEXT
);
CREATE INDEX IF NOT EXISTS idx_decisions_created_at ON decisions(created_at);
`

// Open opens (creating if necessary) the decision store at path.
func Open(path string) (*Store, error) {
	if path == "" {
		path = DefaultPath()
	}
	if path == "" {
		return nil, fmt.Errorf("no audit store path available")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return nil, fmt.Errorf("creating audit dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening audit store: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating audit store: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// Insert appends a decision. ID and CreatedAt are filled in when zero.
func (s *Store) Insert(d *Decision) error {
	if s.db == nil {
		return ErrStoreClosed
	}
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}

	var suggestions any
	if len(d.Suggestions) > 0 {
		data, err := json.Marshal(d.Suggestions)
		if err != nil {
			return fmt.Errorf("encoding suggestions: %w", err)
		}
		suggestions = string(data)
	}

	_, err := s.db.Exec(`
		INSERT INTO decisions (id, created_at, command, base_command, outcome, reason, suggestions)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, d.ID, d.CreatedAt.Format(time.RFC3339Nano), d.Command, d.BaseCommand, d.Outcome, d.Reason, suggestions)
	if err != nil {
		return fmt.Errorf("inserting decision: %w", err)
	}
	return nil
}

// Recent returns up to limit decisions, newest first.
func (s *Store) Recent(limit int) ([]Decision, error) {
	if s.db == nil {
		return nil, ErrStoreClosed
	}
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.Query(`
		SELECT id, created_at, command, base_command, outcome, reason, suggestions
		FROM decisions
		ORDER BY created_at DESC, id
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying decisions: %w", err)
	}
	defer rows.Close()

	var result []Decision
	for rows.Next() {
		var d Decision
		var createdAt string
		var baseCommand, reason, suggestions sql.NullString

		if err := rows.Scan(&d.ID, &createdAt, &d.Command, &baseCommand, &d.Outcome, &reason, &suggestions); err != nil {
			return nil, fmt.Errorf("scanning decision: %w", err)
		}

		if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
			d.CreatedAt = t
		}
		d.BaseCommand = baseCommand.String
		d.Reason = reason.String
		if suggestions.Valid && suggestions.String != "" {
			if err := json.Unmarshal([]byte(suggestions.String), &d.Suggestions); err != nil {
				return nil, fmt.Errorf("decoding suggestions for %s: %w", d.ID, err)
			}
		}
		result = append(result, d)
	}
	return result, rows.Err()
}

// Count returns the total number of recorded decisions.
func (s *Store) Count() (int, error) {
	if s.db == nil {
		return 0, ErrStoreClosed
	}
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM decisions`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting decisions: %w", err)
	}
	return n, nil
}
