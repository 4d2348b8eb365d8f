package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/jonathan/jobscout/internal/pipeline/steps"
	"github.com/jonathan/jobscout/internal/types"
)

// sqliteSchemaVersion is stored in PRAGMA user_version once migrations ran.
const sqliteSchemaVersion = 1

// timeLayout has a fixed width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLite stores runs in a local SQLite file
type SQLite struct {
	db  *sql.DB
	now func() time.Time
}

// OpenSQLite opens (creating if needed) the database file at path and applies the schema
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	// modernc sqlite uses DSN like: file:foo.db?_pragma=busy_timeout(5000)
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// sqlite wants a single writer
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	s := &SQLite{db: db, now: time.Now}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLite) migrate(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var v int
	if err := tx.QueryRowContext(ctx, `PRAGMA user_version;`).Scan(&v); err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	if v >= sqliteSchemaVersion {
		return tx.Commit()
	}

	stmts, err := statements("migrations/sqlite.sql")
	if err != nil {
		return err
	}
	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`PRAGMA user_version = %d;`, sqliteSchemaVersion)); err != nil {
		return err
	}
	return tx.Commit()
}

// Close closes the database
func (s *SQLite) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLite) timestamp() string {
	return s.now().UTC().Format(timeLayout)
}

// CreateRun creates a new search run record and returns its ID
func (s *SQLite) CreateRun(ctx context.Context, q types.Query, strategy string) (uuid.UUID, error) {
	id := uuid.New()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO search_runs (id, role, location, experience_level, raw_query, strategy, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, 'running', ?)`,
		id.String(), q.Role, q.Location, string(q.ExperienceLevel), q.Raw, strategy, s.timestamp(),
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to create run: %w", err)
	}
	return id, nil
}

// CompleteRun records the final status and outcome of a run
func (s *SQLite) CompleteRun(ctx context.Context, runID uuid.UUID, status, outcome string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE search_runs SET status = ?, outcome = ?, completed_at = ? WHERE id = ?`,
		status, outcome, s.timestamp(), runID.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to complete run: %w", err)
	}
	return expectRow(res, "run "+runID.String())
}

// SaveArtifact stores a JSON artifact for a run, replacing an earlier one for the same step
func (s *SQLite) SaveArtifact(ctx context.Context, runID uuid.UUID, step string, content any) error {
	jsonBytes, err := marshalContent(content)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO run_artifacts (id, run_id, step, category, content, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (run_id, step) DO UPDATE SET category = excluded.category, content = excluded.content, created_at = excluded.created_at`,
		uuid.New().String(), runID.String(), step, steps.CategoryOf(step), string(jsonBytes), s.timestamp(),
	)
	if err != nil {
		return fmt.Errorf("failed to save artifact %s: %w", step, err)
	}
	return nil
}

const sqliteRunColumns = `id, role, location, experience_level, raw_query, strategy, status, outcome, created_at, completed_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanSQLiteRun(row scanner) (*Run, error) {
	var (
		run           Run
		id, createdAt string
		completedAt   sql.NullString
	)
	err := row.Scan(&id, &run.Role, &run.Location, &run.ExperienceLevel, &run.RawQuery,
		&run.Strategy, &run.Status, &run.Outcome, &createdAt, &completedAt)
	if err != nil {
		return nil, err
	}
	if run.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("invalid run id %q: %w", id, err)
	}
	if run.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
		return nil, fmt.Errorf("invalid created_at %q: %w", createdAt, err)
	}
	if completedAt.Valid {
		t, err := time.Parse(timeLayout, completedAt.String)
		if err != nil {
			return nil, fmt.Errorf("invalid completed_at %q: %w", completedAt.String, err)
		}
		run.CompletedAt = &t
	}
	return &run, nil
}

// GetRun retrieves a run by ID
func (s *SQLite) GetRun(ctx context.Context, runID uuid.UUID) (*Run, error) {
	run, err := scanSQLiteRun(s.db.QueryRowContext(ctx,
		`SELECT `+sqliteRunColumns+` FROM search_runs WHERE id = ?`, runID.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("run %s: %w", runID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// ListRuns retrieves recent runs, newest first
func (s *SQLite) ListRuns(ctx context.Context, filters RunFilters) ([]Run, error) {
	where, args := filters.where(func(int) string { return "?" })
	args = append(args, filters.limit(), max(filters.Offset, 0))
	query := `SELECT ` + sqliteRunColumns + ` FROM search_runs` + where +
		` ORDER BY created_at DESC, rowid DESC LIMIT ? OFFSET ?`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	runs := []Run{}
	for rows.Next() {
		run, err := scanSQLiteRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

func scanSQLiteArtifact(row scanner) (*Artifact, error) {
	var (
		a                         Artifact
		id, runID, createdAt, raw string
	)
	if err := row.Scan(&id, &runID, &a.Step, &a.Category, &raw, &createdAt); err != nil {
		return nil, err
	}
	var err error
	if a.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("invalid artifact id %q: %w", id, err)
	}
	if a.RunID, err = uuid.Parse(runID); err != nil {
		return nil, fmt.Errorf("invalid run id %q: %w", runID, err)
	}
	if a.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
		return nil, fmt.Errorf("invalid created_at %q: %w", createdAt, err)
	}
	a.Content = []byte(raw)
	return &a, nil
}

// ListArtifacts returns every artifact of a run in step order
func (s *SQLite) ListArtifacts(ctx context.Context, runID uuid.UUID) ([]Artifact, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, run_id, step, category, content, created_at FROM run_artifacts WHERE run_id = ?`, runID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to list artifacts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	artifacts := []Artifact{}
	for rows.Next() {
		a, err := scanSQLiteArtifact(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan artifact: %w", err)
		}
		artifacts = append(artifacts, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sortArtifacts(artifacts)
	return artifacts, nil
}

// GetArtifact retrieves the artifact of one step
func (s *SQLite) GetArtifact(ctx context.Context, runID uuid.UUID, step string) (*Artifact, error) {
	a, err := scanSQLiteArtifact(s.db.QueryRowContext(ctx,
		`SELECT id, run_id, step, category, content, created_at FROM run_artifacts WHERE run_id = ? AND step = ?`,
		runID.String(), step))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("artifact %s of run %s: %w", step, runID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get artifact %s: %w", step, err)
	}
	return a, nil
}

// HasArtifact reports whether a step artifact exists
func (s *SQLite) HasArtifact(ctx context.Context, runID uuid.UUID, step string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM run_artifacts WHERE run_id = ? AND step = ?`, runID.String(), step,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to check artifact %s: %w", step, err)
	}
	return n > 0, nil
}

// DeleteRun removes a run and its artifacts
func (s *SQLite) DeleteRun(ctx context.Context, runID uuid.UUID) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM run_artifacts WHERE run_id = ?`, runID.String()); err != nil {
		return fmt.Errorf("failed to delete artifacts: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM search_runs WHERE id = ?`, runID.String())
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	if err := expectRow(res, "run "+runID.String()); err != nil {
		return err
	}
	return tx.Commit()
}

func expectRow(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return nil
}
