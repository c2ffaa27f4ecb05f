package ports

import (
	"context"
	"math/rand/v2"
)

// RNGPort provides seeded random number generation for reproducible sampling
type RNGPort interface {
	// SeededStream creates a deterministic random number generator for a named operation
	SeededStream(ctx context.Context, name string, seed uint64) (*rand.Rand, error)

	// Stream creates a deterministic RNG stream for one series point, so that a
	// Monte Carlo estimate for (run, series, n) is identical across runs and
	// independent of the order in which points are computed
	Stream(ctx context.Context, runKey, series string, n int, baseSeed uint64) (*rand.Rand, error)
}
