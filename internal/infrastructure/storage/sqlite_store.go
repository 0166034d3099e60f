package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite"

	"PageviewLabeler/internal/domain"
	"PageviewLabeler/internal/fileutil"
	"PageviewLabeler/internal/ports"
)

const (
	descriptionsTable = "descriptions"
	runsTable         = "runs"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS descriptions (
		qid TEXT PRIMARY KEY,
		description TEXT NOT NULL,
		missing INTEGER NOT NULL DEFAULT 0,
		fetched_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS runs (
		run_id TEXT PRIMARY KEY,
		model_version TEXT NOT NULL,
		fallback_label TEXT NOT NULL,
		output TEXT NOT NULL,
		output_sha256 TEXT NOT NULL,
		started_at TEXT NOT NULL,
		finished_at TEXT NOT NULL,
		counts TEXT NOT NULL
	)`,
}

// SQLiteStore keeps fetched descriptions and run history in a local SQLite file.
type SQLiteStore struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

var (
	_ ports.DescriptionCache = (*SQLiteStore)(nil)
	_ ports.RunRecorder      = (*SQLiteStore)(nil)
)

// OpenSQLite opens (creating if needed) the database at path.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	if err := fileutil.EnsureDir(filepath.Dir(path)); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// One connection serializes writers from the fetch pool.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.ExecContext(ctx, pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("init schema: %w", err)
		}
	}
	return &SQLiteStore{db: db, path: path, now: time.Now}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Get returns the stored fetch outcome for qid.
func (s *SQLiteStore) Get(ctx context.Context, qid string) (ports.CachedDescription, bool, error) {
	query, args, err := sq.Select("description", "missing").
		From(descriptionsTable).
		Where(sq.Eq{"qid": qid}).
		ToSql()
	if err != nil {
		return ports.CachedDescription{}, false, fmt.Errorf("build select: %w", err)
	}

	var (
		desc    string
		missing bool
	)
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&desc, &missing)
	if errors.Is(err, sql.ErrNoRows) {
		return ports.CachedDescription{}, false, nil
	}
	if err != nil {
		return ports.CachedDescription{}, false, fmt.Errorf("select description %s: %w", qid, err)
	}
	return ports.CachedDescription{QID: qid, Description: desc, Missing: missing}, true, nil
}

// Put upserts a fetch outcome.
func (s *SQLiteStore) Put(ctx context.Context, entry ports.CachedDescription) error {
	query, args, err := sq.Insert(descriptionsTable).
		Columns("qid", "description", "missing", "fetched_at").
		Values(entry.QID, entry.Description, entry.Missing, s.now().UTC().Format(time.RFC3339Nano)).
		Suffix("ON CONFLICT(qid) DO UPDATE SET description = excluded.description, missing = excluded.missing, fetched_at = excluded.fetched_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert description %s: %w", entry.QID, err)
	}
	return nil
}

// RecordRun stores the manifest of a finished run.
func (s *SQLiteStore) RecordRun(ctx context.Context, m domain.RunManifest) error {
	counts, err := json.Marshal(m.Counts)
	if err != nil {
		return fmt.Errorf("encode counts: %w", err)
	}
	query, args, err := sq.Insert(runsTable).
		Columns("run_id", "model_version", "fallback_label", "output", "output_sha256", "started_at", "finished_at", "counts").
		Values(
			m.RunID,
			m.ModelVersion,
			m.FallbackLabel,
			m.Output,
			m.OutputSHA256,
			m.StartedAt.UTC().Format(time.RFC3339Nano),
			m.FinishedAt.UTC().Format(time.RFC3339Nano),
			string(counts),
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert run %s: %w", m.RunID, err)
	}
	return nil
}

// RunSummary is one row of the run history.
type RunSummary struct {
	RunID        string
	ModelVersion string
	OutputSHA256 string
	FinishedAt   time.Time
	Counts       domain.ManifestCount
}

// RecentRuns lists up to limit runs, newest first.
func (s *SQLiteStore) RecentRuns(ctx context.Context, limit uint64) ([]RunSummary, error) {
	query, args, err := sq.Select("run_id", "model_version", "output_sha256", "finished_at", "counts").
		From(runsTable).
		OrderBy("finished_at DESC").
		Limit(limit).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var (
			summary  RunSummary
			finished string
			counts   string
		)
		if err := rows.Scan(&summary.RunID, &summary.ModelVersion, &summary.OutputSHA256, &finished, &counts); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if summary.FinishedAt, err = time.Parse(time.RFC3339Nano, finished); err != nil {
			return nil, fmt.Errorf("parse finished_at: %w", err)
		}
		if err := json.Unmarshal([]byte(counts), &summary.Counts); err != nil {
			return nil, fmt.Errorf("decode counts: %w", err)
		}
		out = append(out, summary)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return out, nil
}
