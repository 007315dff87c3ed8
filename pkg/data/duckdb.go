package data

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/marcboeker/go-duckdb/v2"
)

var ErrNotFound = errors.New("not found")

var schema = []string{`
CREATE TABLE IF NOT EXISTS runs (
	id          VARCHAR PRIMARY KEY,
	started_at  TIMESTAMP NOT NULL,
	finished_at TIMESTAMP,
	from_status VARCHAR NOT NULL,
	to_status   VARCHAR NOT NULL,
	unfollow    BOOLEAN NOT NULL,
	dry_run     BOOLEAN NOT NULL,
	total       INTEGER NOT NULL DEFAULT 0,
	matched     INTEGER NOT NULL DEFAULT 0,
	updated     INTEGER NOT NULL DEFAULT 0,
	unfollowed  INTEGER NOT NULL DEFAULT 0,
	error       VARCHAR NOT NULL DEFAULT ''
)`, `
CREATE TABLE IF NOT EXISTS changes (
	run_id      VARCHAR NOT NULL,
	manga_id    VARCHAR NOT NULL,
	prev_status VARCHAR NOT NULL,
	next_status VARCHAR NOT NULL,
	unfollowed  BOOLEAN NOT NULL,
	applied_at  TIMESTAMP NOT NULL,
	error       VARCHAR NOT NULL DEFAULT ''
)`}

// InitDuckDB opens the journal at path, creating its directory and tables.
func InitDuckDB(path string) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create journal directory: %w", err)
		}
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("open journal %s: %w", path, err)
	}
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("create journal schema: %w", err)
		}
	}
	return db, nil
}

// Repository is the run journal. It records what bulk runs did and is never
// read back to decide what to change.
type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// OpenRepository opens the journal file at path.
func OpenRepository(path string) (*Repository, error) {
	db, err := InitDuckDB(path)
	if err != nil {
		return nil, err
	}
	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}

// StartRun inserts run, assigning an ID and start time when missing.
func (r *Repository) StartRun(run *Run) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}

	_, err := r.db.Exec(`
		INSERT INTO runs (id, started_at, from_status, to_status, unfollow, dry_run)
		VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, run.StartedAt, run.From, run.To, run.Unfollow, run.DryRun)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// FinishRun stores the counters and outcome of run.
func (r *Repository) FinishRun(run *Run) error {
	if run.FinishedAt.IsZero() {
		run.FinishedAt = time.Now().UTC()
	}

	res, err := r.db.Exec(`
		UPDATE runs
		SET finished_at = ?, total = ?, matched = ?, updated = ?, unfollowed = ?, error = ?
		WHERE id = ?`,
		run.FinishedAt, run.Total, run.Matched, run.Updated, run.Unfollowed, run.Error, run.ID)
	if err != nil {
		return fmt.Errorf("update run %s: %w", run.ID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("update run %s: %w", run.ID, ErrNotFound)
	}
	return nil
}

func (r *Repository) RecordChange(c *Change) error {
	if c.AppliedAt.IsZero() {
		c.AppliedAt = time.Now().UTC()
	}

	_, err := r.db.Exec(`
		INSERT INTO changes (run_id, manga_id, prev_status, next_status, unfollowed, applied_at, error)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.RunID, c.MangaID, c.Previous, c.Next, c.Unfollowed, c.AppliedAt, c.Error)
	if err != nil {
		return fmt.Errorf("insert change for %s: %w", c.MangaID, err)
	}
	return nil
}

const runColumns = `id, started_at, finished_at, from_status, to_status, unfollow, dry_run,
	total, matched, updated, unfollowed, error`

// ListRuns returns the most recent runs first. limit <= 0 returns all.
func (r *Repository) ListRuns(limit int) ([]*Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY started_at DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func (r *Repository) GetRun(id string) (*Run, error) {
	row := r.db.QueryRow(`SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	return run, err
}

// GetChanges returns the changes of one run in the order they were applied.
func (r *Repository) GetChanges(runID string) ([]*Change, error) {
	rows, err := r.db.Query(`
		SELECT run_id, manga_id, prev_status, next_status, unfollowed, applied_at, error
		FROM changes
		WHERE run_id = ?
		ORDER BY applied_at, manga_id`, runID)
	if err != nil {
		return nil, fmt.Errorf("query changes: %w", err)
	}
	defer rows.Close()

	var changes []*Change
	for rows.Next() {
		c := &Change{}
		if err := rows.Scan(&c.RunID, &c.MangaID, &c.Previous, &c.Next, &c.Unfollowed, &c.AppliedAt, &c.Error); err != nil {
			return nil, fmt.Errorf("scan change: %w", err)
		}
		changes = append(changes, c)
	}
	return changes, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (*Run, error) {
	run := &Run{}
	var finished sql.NullTime
	err := s.Scan(&run.ID, &run.StartedAt, &finished, &run.From, &run.To, &run.Unfollow, &run.DryRun,
		&run.Total, &run.Matched, &run.Updated, &run.Unfollowed, &run.Error)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan run: %w", err)
	}
	if finished.Valid {
		run.FinishedAt = finished.Time
	}
	return run, nil
}
