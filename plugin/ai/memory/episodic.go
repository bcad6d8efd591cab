package memory

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"

	_ "modernc.org/sqlite" // SQLite driver registration
)

// Episode is one recorded engine run outcome.
type Episode struct {
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Kind      string    `json:"kind"` // ingest/notes/chat
	UserInput string    `json:"user_input"`
	Outcome   string    `json:"outcome"` // success/failure
	Summary   string    `json:"summary"`
}

// EpisodicStore is a SQLite-backed log of engine run outcomes.
type EpisodicStore struct {
	db *sql.DB
}

const episodicSchema = `
CREATE TABLE IF NOT EXISTS episodic_memory (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	timestamp TIMESTAMP NOT NULL,
	kind TEXT NOT NULL,
	user_input TEXT NOT NULL DEFAULT '',
	outcome TEXT NOT NULL DEFAULT '',
	summary TEXT NOT NULL DEFAULT '',
	created_ts INTEGER NOT NULL
)`

// OpenEpisodicStore opens (and migrates) the episodic log at path.
// SQLite serializes writes, so the pool is limited to one connection.
func OpenEpisodicStore(path string) (*EpisodicStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Wrapf(err, "create directory %s", dir)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrapf(err, "open sqlite %s", path)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "enable WAL")
	}
	if _, err := db.Exec(episodicSchema); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "migrate episodic schema")
	}

	return &EpisodicStore{db: db}, nil
}

// Close releases the underlying database.
func (s *EpisodicStore) Close() error {
	return s.db.Close()
}

// Record inserts one episode.
func (s *EpisodicStore) Record(ctx context.Context, episode Episode) error {
	if episode.Timestamp.IsZero() {
		episode.Timestamp = time.Now()
	}

	stmt := `INSERT INTO episodic_memory (timestamp, kind, user_input, outcome, summary, created_ts)
		VALUES (?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, stmt,
		episode.Timestamp,
		episode.Kind,
		episode.UserInput,
		episode.Outcome,
		episode.Summary,
		time.Now().Unix(),
	)
	return errors.Wrap(err, "insert episodic memory")
}

// List returns the most recent episodes, optionally filtered by kind.
func (s *EpisodicStore) List(ctx context.Context, kind string, limit int) ([]Episode, error) {
	if limit <= 0 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}

	query := `SELECT id, timestamp, kind, user_input, outcome, summary
		FROM episodic_memory`
	args := []any{}
	if kind != "" {
		query += ` WHERE kind = ?`
		args = append(args, kind)
	}
	query += ` ORDER BY timestamp DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "list episodic memories")
	}
	defer rows.Close()

	var episodes []Episode
	for rows.Next() {
		var e Episode
		if err := rows.Scan(&e.ID, &e.Timestamp, &e.Kind, &e.UserInput, &e.Outcome, &e.Summary); err != nil {
			return nil, errors.Wrap(err, "scan episodic memory")
		}
		episodes = append(episodes, e)
	}
	return episodes, errors.Wrap(rows.Err(), "iterate episodic memories")
}
