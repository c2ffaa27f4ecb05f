// Package store persists batch series so that repeated runs load them
// instead of recomputing.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"actinvoting/domain/core"
	"actinvoting/internal/migration"
	"actinvoting/ports"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverNone     = "none"
)

// record is the row layout of batch_results.
type record struct {
	CacheKey    string `db:"cache_key"`
	RunID       string `db:"run_id"`
	Kind        string `db:"kind"`
	ValuesJSON  string `db:"values_json"`
	StdErrsJSON string `db:"stderrs_json"`
	CreatedAt   string `db:"created_at"`
}

// SQLStore implements ports.ResultStore on sqlite or postgres.
type SQLStore struct {
	db *sqlx.DB
}

var _ ports.ResultStore = (*SQLStore)(nil)

// Open connects to the database and applies the pending migrations. The dsn is a
// file path (or ":memory:") for sqlite and a connection string for postgres.
func Open(ctx context.Context, driver, dsn string) (*SQLStore, error) {
	if driver != DriverSQLite && driver != DriverPostgres {
		return nil, core.NewInvalidInputError("store driver", fmt.Sprintf("%q is not supported", driver))
	}
	db, err := sqlx.ConnectContext(ctx, driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", driver, err)
	}
	if driver == DriverSQLite {
		// a second connection would see a different in-memory database
		db.SetMaxOpenConns(1)
	}
	if err := migration.NewRunner().Run(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLStore{db: db}, nil
}

// OpenFromConfig returns a NopStore for the "none" driver.
func OpenFromConfig(ctx context.Context, driver, dsn string) (ports.ResultStore, error) {
	if driver == DriverNone || driver == "" {
		return NopStore{}, nil
	}
	return Open(ctx, driver, dsn)
}

func (s *SQLStore) Load(ctx context.Context, key string) (*ports.StoredResult, error) {
	var rec record
	err := s.db.GetContext(ctx, &rec, s.db.Rebind(`
		SELECT cache_key, run_id, kind, values_json, stderrs_json, created_at
		FROM batch_results
		WHERE cache_key = ?`), key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ports.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	res := &ports.StoredResult{
		RunID:    core.RunID(rec.RunID),
		CacheKey: rec.CacheKey,
		Kind:     ports.ResultKind(rec.Kind),
	}
	if err := json.Unmarshal([]byte(rec.ValuesJSON), &res.Values); err != nil {
		return nil, fmt.Errorf("decode values of %s: %w", key, err)
	}
	if err := json.Unmarshal([]byte(rec.StdErrsJSON), &res.StdErrs); err != nil {
		return nil, fmt.Errorf("decode standard errors of %s: %w", key, err)
	}
	if res.CreatedAt, err = time.Parse(time.RFC3339Nano, rec.CreatedAt); err != nil {
		return nil, fmt.Errorf("decode created_at of %s: %w", key, err)
	}
	return res, nil
}

func (s *SQLStore) Save(ctx context.Context, result *ports.StoredResult) error {
	values, err := json.Marshal(result.Values)
	if err != nil {
		return fmt.Errorf("encode values: %w", err)
	}
	stdErrs, err := json.Marshal(result.StdErrs)
	if err != nil {
		return fmt.Errorf("encode standard errors: %w", err)
	}
	createdAt := result.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	runID := result.RunID
	if runID == "" {
		runID = core.NewRunID()
	}
	_, err = s.db.NamedExecContext(ctx, `
		INSERT INTO batch_results (cache_key, run_id, kind, values_json, stderrs_json, created_at)
		VALUES (:cache_key, :run_id, :kind, :values_json, :stderrs_json, :created_at)
		ON CONFLICT (cache_key) DO UPDATE SET
			run_id = excluded.run_id,
			kind = excluded.kind,
			values_json = excluded.values_json,
			stderrs_json = excluded.stderrs_json,
			created_at = excluded.created_at
	`, record{
		CacheKey:    result.CacheKey,
		RunID:       runID.String(),
		Kind:        string(result.Kind),
		ValuesJSON:  string(values),
		StdErrsJSON: string(stdErrs),
		CreatedAt:   createdAt.UTC().Format(time.RFC3339Nano),
	})
	return err
}

// Keys lists the stored cache keys, most recent first.
func (s *SQLStore) Keys(ctx context.Context) ([]string, error) {
	var keys []string
	err := s.db.SelectContext(ctx, &keys, `SELECT cache_key FROM batch_results ORDER BY created_at DESC, cache_key`)
	return keys, err
}

func (s *SQLStore) Close() error { return s.db.Close() }

// NopStore never finds anything and discards saves.
type NopStore struct{}

func (NopStore) Load(context.Context, string) (*ports.StoredResult, error) {
	return nil, ports.ErrNotFound
}
func (NopStore) Save(context.Context, *ports.StoredResult) error { return nil }
func (NopStore) Close() error                                    { return nil }
