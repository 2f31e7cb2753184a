// Package stats persists per-session usage statistics to a local SQLite
// database. Recording is best effort: the orchestrator logs failures and
// keeps going, so nothing here may block the dictation flow.
package stats

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"sotto/session"
)

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	started_at  INTEGER NOT NULL,
	duration_ms INTEGER NOT NULL,
	language    TEXT NOT NULL DEFAULT '',
	word_count  INTEGER NOT NULL DEFAULT 0,
	success     INTEGER NOT NULL,
	stop_trigger TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_sessions_started_at ON sessions(started_at);
`

// Store is a SQLite-backed session log. It implements
// session.StatisticsSink.
type Store struct {
	db *sql.DB
}

// DefaultPath returns the database location under the user config dir.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "sotto", "stats.db")
}

// Open opens (and if needed creates) the database at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating stats dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening stats db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying stats schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// RecordSession appends one completed (or failed) session.
func (s *Store) RecordSession(sum session.Summary) error {
	_, err := s.db.Exec(
		`INSERT INTO sessions (started_at, duration_ms, language, word_count, success, stop_trigger)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		sum.StartedAt.UnixMilli(),
		sum.Duration.Milliseconds(),
		sum.Language,
		sum.WordCount,
		boolToInt(sum.Success),
		string(sum.Trigger),
	)
	if err != nil {
		return fmt.Errorf("inserting session: %w", err)
	}
	return nil
}

// Totals aggregates the whole session log.
type Totals struct {
	Sessions  int
	Succeeded int
	Words     int
	Recorded  time.Duration
}

func (s *Store) Totals() (Totals, error) {
	row := s.db.QueryRow(
		`SELECT COUNT(*),
		        COALESCE(SUM(success), 0),
		        COALESCE(SUM(word_count), 0),
		        COALESCE(SUM(duration_ms), 0)
		 FROM sessions`)

	var t Totals
	var durMS int64
	if err := row.Scan(&t.Sessions, &t.Succeeded, &t.Words, &durMS); err != nil {
		return Totals{}, fmt.Errorf("scanning totals: %w", err)
	}
	t.Recorded = time.Duration(durMS) * time.Millisecond
	return t, nil
}

// Recent returns up to n summaries, newest first.
func (s *Store) Recent(n int) ([]session.Summary, error) {
	rows, err := s.db.Query(
		`SELECT started_at, duration_ms, language, word_count, success, stop_trigger
		 FROM sessions ORDER BY started_at DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("querying sessions: %w", err)
	}
	defer rows.Close()

	var out []session.Summary
	for rows.Next() {
		var sum session.Summary
		var startedMS, durMS int64
		var success int
		var trigger string
		if err := rows.Scan(&startedMS, &durMS, &sum.Language, &sum.WordCount, &success, &trigger); err != nil {
			return nil, fmt.Errorf("scanning session: %w", err)
		}
		sum.StartedAt = time.UnixMilli(startedMS)
		sum.Duration = time.Duration(durMS) * time.Millisecond
		sum.Success = success != 0
		sum.Trigger = session.Trigger(trigger)
		out = append(out, sum)
	}
	return out, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
