package migration

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"actinvoting/internal/errors"
)

// Migrator defines the interface for database migration operations
type Migrator interface {
	Run(ctx context.Context, db *sqlx.DB) error
	Version() string
}

// step is one idempotent schema change.
type step struct {
	version int
	name    string
	stmts   []string
}

// MigrationRunner applies the result store schema. Applied versions are
// recorded in schema_migrations; statements work on sqlite and postgres.
type MigrationRunner struct {
	steps []step
}

// NewRunner creates a new migration runner
func NewRunner() *MigrationRunner {
	return &MigrationRunner{steps: []step{
		{1, "create batch_results table", []string{`
			CREATE TABLE IF NOT EXISTS batch_results (
				cache_key    TEXT PRIMARY KEY,
				run_id       TEXT NOT NULL,
				kind         TEXT NOT NULL,
				values_json  TEXT NOT NULL,
				stderrs_json TEXT NOT NULL,
				created_at   TEXT NOT NULL
			)`}},
		{2, "create batch_results indexes", []string{
			"CREATE INDEX IF NOT EXISTS idx_batch_results_kind ON batch_results(kind)",
			"CREATE INDEX IF NOT EXISTS idx_batch_results_created_at ON batch_results(created_at)",
		}},
	}}
}

// Version returns the latest schema version
func (r *MigrationRunner) Version() string {
	return fmt.Sprintf("%d", r.steps[len(r.steps)-1].version)
}

// Run executes the pending migrations in order
func (r *MigrationRunner) Run(ctx context.Context, db *sqlx.DB) error {
	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    INTEGER PRIMARY KEY,
			name       TEXT NOT NULL
		)`); err != nil {
		return errors.DatabaseError("failed to create schema_migrations table", err)
	}

	current, err := r.Current(ctx, db)
	if err != nil {
		return err
	}
	for _, s := range r.steps {
		if s.version <= current {
			continue
		}
		if err := r.apply(ctx, db, s); err != nil {
			return errors.Wrapf(err, "migration %d (%s) failed", s.version, s.name)
		}
	}
	return nil
}

// Current returns the highest applied version, 0 on a fresh database.
func (r *MigrationRunner) Current(ctx context.Context, db *sqlx.DB) (int, error) {
	var current int
	if err := db.GetContext(ctx, &current, `SELECT COALESCE(MAX(version), 0) FROM schema_migrations`); err != nil {
		return 0, errors.DatabaseError("failed to read schema version", err)
	}
	return current, nil
}

func (r *MigrationRunner) apply(ctx context.Context, db *sqlx.DB, s step) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.DatabaseError("failed to begin transaction", err)
	}
	defer tx.Rollback()

	for _, stmt := range s.stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return errors.DatabaseError(s.name, err)
		}
	}
	if _, err := tx.ExecContext(ctx, db.Rebind(`INSERT INTO schema_migrations (version, name) VALUES (?, ?)`), s.version, s.name); err != nil {
		return errors.DatabaseError("failed to record migration", err)
	}
	if err := tx.Commit(); err != nil {
		return errors.DatabaseError("failed to commit migration", err)
	}
	return nil
}
