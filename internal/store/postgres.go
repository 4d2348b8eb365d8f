package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jonathan/jobscout/internal/pipeline/steps"
	"github.com/jonathan/jobscout/internal/types"
)

// Postgres stores runs in PostgreSQL through a pgx connection pool
type Postgres struct {
	pool *pgxpool.Pool
}

// OpenPostgres establishes a connection pool and applies the schema
func OpenPostgres(ctx context.Context, databaseURL string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db := &Postgres{pool: pool}
	if err := db.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return db, nil
}

func (db *Postgres) migrate(ctx context.Context) error {
	stmts, err := statements("migrations/postgres.sql")
	if err != nil {
		return err
	}
	for _, stmt := range stmts {
		if _, err := db.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}

// Close closes the connection pool
func (db *Postgres) Close() error {
	if db.pool != nil {
		db.pool.Close()
	}
	return nil
}

// CreateRun creates a new search run record and returns its ID
func (db *Postgres) CreateRun(ctx context.Context, q types.Query, strategy string) (uuid.UUID, error) {
	id := uuid.New()
	_, err := db.pool.Exec(ctx,
		`INSERT INTO search_runs (id, role, location, experience_level, raw_query, strategy, status)
		 VALUES ($1, $2, $3, $4, $5, $6, 'running')`,
		id, q.Role, q.Location, string(q.ExperienceLevel), q.Raw, strategy,
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to create run: %w", err)
	}
	return id, nil
}

// CompleteRun records the final status and outcome of a run
func (db *Postgres) CompleteRun(ctx context.Context, runID uuid.UUID, status, outcome string) error {
	tag, err := db.pool.Exec(ctx,
		`UPDATE search_runs SET status = $1, outcome = $2, completed_at = NOW() WHERE id = $3`,
		status, outcome, runID,
	)
	if err != nil {
		return fmt.Errorf("failed to complete run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("run %s: %w", runID, ErrNotFound)
	}
	return nil
}

// SaveArtifact stores a JSON artifact for a run, replacing an earlier one for the same step
func (db *Postgres) SaveArtifact(ctx context.Context, runID uuid.UUID, step string, content any) error {
	jsonBytes, err := marshalContent(content)
	if err != nil {
		return err
	}

	_, err = db.pool.Exec(ctx,
		`INSERT INTO run_artifacts (id, run_id, step, category, content)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (run_id, step) DO UPDATE SET category = $4, content = $5, created_at = NOW()`,
		uuid.New(), runID, step, steps.CategoryOf(step), jsonBytes,
	)
	if err != nil {
		return fmt.Errorf("failed to save artifact %s: %w", step, err)
	}
	return nil
}

const pgRunColumns = `id, role, location, experience_level, raw_query, strategy, status, outcome, created_at, completed_at`

func scanPgRun(row pgx.Row) (*Run, error) {
	var run Run
	err := row.Scan(&run.ID, &run.Role, &run.Location, &run.ExperienceLevel, &run.RawQuery,
		&run.Strategy, &run.Status, &run.Outcome, &run.CreatedAt, &run.CompletedAt)
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// GetRun retrieves a run by ID
func (db *Postgres) GetRun(ctx context.Context, runID uuid.UUID) (*Run, error) {
	run, err := scanPgRun(db.pool.QueryRow(ctx,
		`SELECT `+pgRunColumns+` FROM search_runs WHERE id = $1`, runID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("run %s: %w", runID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// ListRuns retrieves recent runs, newest first
func (db *Postgres) ListRuns(ctx context.Context, filters RunFilters) ([]Run, error) {
	where, args := filters.where(func(n int) string { return fmt.Sprintf("$%d", n) })
	args = append(args, filters.limit(), max(filters.Offset, 0))
	query := fmt.Sprintf(`SELECT %s FROM search_runs%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		pgRunColumns, where, len(args)-1, len(args))

	rows, err := db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanPgRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// ListArtifacts returns every artifact of a run in step order
func (db *Postgres) ListArtifacts(ctx context.Context, runID uuid.UUID) ([]Artifact, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, run_id, step, category, content, created_at FROM run_artifacts WHERE run_id = $1`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list artifacts: %w", err)
	}
	defer rows.Close()

	artifacts := []Artifact{}
	for rows.Next() {
		var a Artifact
		var content []byte
		if err := rows.Scan(&a.ID, &a.RunID, &a.Step, &a.Category, &content, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan artifact: %w", err)
		}
		a.Content = content
		artifacts = append(artifacts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sortArtifacts(artifacts)
	return artifacts, nil
}

// GetArtifact retrieves the artifact of one step
func (db *Postgres) GetArtifact(ctx context.Context, runID uuid.UUID, step string) (*Artifact, error) {
	var a Artifact
	var content []byte
	err := db.pool.QueryRow(ctx,
		`SELECT id, run_id, step, category, content, created_at FROM run_artifacts WHERE run_id = $1 AND step = $2`,
		runID, step,
	).Scan(&a.ID, &a.RunID, &a.Step, &a.Category, &content, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("artifact %s of run %s: %w", step, runID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get artifact %s: %w", step, err)
	}
	a.Content = content
	return &a, nil
}

// HasArtifact reports whether a step artifact exists
func (db *Postgres) HasArtifact(ctx context.Context, runID uuid.UUID, step string) (bool, error) {
	var exists bool
	err := db.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM run_artifacts WHERE run_id = $1 AND step = $2)`, runID, step,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check artifact %s: %w", step, err)
	}
	return exists, nil
}

// DeleteRun removes a run and its artifacts
func (db *Postgres) DeleteRun(ctx context.Context, runID uuid.UUID) error {
	tag, err := db.pool.Exec(ctx, `DELETE FROM search_runs WHERE id = $1`, runID)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("run %s: %w", runID, ErrNotFound)
	}
	return nil
}
