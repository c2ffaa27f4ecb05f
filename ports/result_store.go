package ports

import (
	"context"
	"errors"
	"time"

	"actinvoting/domain/core"
)

// ErrNotFound is returned by a ResultStore when no record matches the key
var ErrNotFound = errors.New("result not found")

// ResultKind tags what a stored series holds
type ResultKind string

const (
	KindEquivalent ResultKind = "equivalent"
	KindExact      ResultKind = "exact"
	KindMonteCarlo ResultKind = "montecarlo"
)

// StoredResult is one memoised batch series
type StoredResult struct {
	RunID     core.RunID
	CacheKey  string
	Kind      ResultKind
	Values    []float64
	StdErrs   []float64
	CreatedAt time.Time
}

// ResultStore memoises batch series by cache key
type ResultStore interface {
	// Load returns the most recent result stored under key, or ErrNotFound
	Load(ctx context.Context, key string) (*StoredResult, error)

	// Save stores a result; an existing record with the same key is replaced
	Save(ctx context.Context, result *StoredResult) error

	Close() error
}
