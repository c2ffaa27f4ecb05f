package batch

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"actinvoting/domain/culture"
	"actinvoting/internal"
	"actinvoting/internal/asymptotic"
	"actinvoting/internal/numeric"
	"actinvoting/ports"
)

type memoryStore struct {
	mu      sync.Mutex
	records map[string]*ports.StoredResult
	saves   int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{records: map[string]*ports.StoredResult{}}
}

func (m *memoryStore) Load(ctx context.Context, key string) (*ports.StoredResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[key]
	if !ok {
		return nil, ports.ErrNotFound
	}
	return r, nil
}

func (m *memoryStore) Save(ctx context.Context, r *ports.StoredResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[r.CacheKey] = r
	m.saves++
	return nil
}

func (m *memoryStore) Close() error { return nil }

// countingEstimator returns n / 1000 and counts its calls.
type countingEstimator struct {
	calls atomic.Int64
	fail  int
}

func (e *countingEstimator) Culture() culture.Culture { return culture.NewImpartial(3) }
func (e *countingEstimator) Candidate() int           { return 2 }
func (e *countingEstimator) Alpha() []*big.Rat        { return nil }
func (e *countingEstimator) Equivalent(n int) (float64, error) {
	e.calls.Add(1)
	if n == e.fail {
		return 0, errors.New("boom")
	}
	return float64(n) / 1000, nil
}

func newRunner(store ports.ResultStore, jobs int) *Runner {
	return &Runner{Store: store, Jobs: jobs, Logger: internal.NewNopLogger()}
}

func TestRunner_EquivalentsKeepOrderAndCache(t *testing.T) {
	store := newMemoryStore()
	est := &countingEstimator{}
	ns := []int{5, 1, 9, 3, 7, 11, 13}

	first, err := newRunner(store, 4).Equivalents(context.Background(), est, ns)
	require.NoError(t, err)
	assert.False(t, first.Cached)
	assert.Equal(t, []float64{0.005, 0.001, 0.009, 0.003, 0.007, 0.011, 0.013}, first.Values)
	assert.Nil(t, first.StdErrs)
	assert.Equal(t, 1, store.saves)
	calls := est.calls.Load()

	second, err := newRunner(store, 4).Equivalents(context.Background(), est, ns)
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Values, second.Values)
	assert.Equal(t, first.RunID, second.RunID)
	assert.Equal(t, calls, est.calls.Load(), "cache hit must not recompute")

	forced := newRunner(store, 2)
	forced.ForceRecompute = true
	third, err := forced.Equivalents(context.Background(), est, ns)
	require.NoError(t, err)
	assert.False(t, third.Cached)
	assert.Greater(t, est.calls.Load(), calls)
	assert.Equal(t, 2, store.saves)
}

func TestRunner_ErrorIsReported(t *testing.T) {
	store := newMemoryStore()
	est := &countingEstimator{fail: 9}
	_, err := newRunner(store, 2).Equivalents(context.Background(), est, []int{1, 9, 3})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "n=9")
	assert.Zero(t, store.saves)
}

func TestRunner_NoStore(t *testing.T) {
	s, err := newRunner(nil, 0).Equivalents(context.Background(), &countingEstimator{}, []int{2})
	require.NoError(t, err)
	assert.Equal(t, []float64{0.002}, s.Values)
}

func TestRunner_SessionSeries(t *testing.T) {
	s, err := asymptotic.NewSession[*big.Rat](numeric.Exact{}, culture.NewImpartial(3), 2, nil,
		asymptotic.WithLogger(internal.NewNopLogger()))
	require.NoError(t, err)
	r := newRunner(newMemoryStore(), 3)

	eq, err := r.Equivalents(context.Background(), s, []int{3, 5, 7})
	require.NoError(t, err)
	for _, v := range eq.Values {
		assert.InDelta(t, 0.3040867239846964, v, 1e-9)
	}

	exact, err := r.Exact(context.Background(), s, []int{3, 5})
	require.NoError(t, err)
	assert.InDelta(t, 17.0/54, exact.Values[0], 1e-15)
	assert.InDelta(t, 67.0/216, exact.Values[1], 1e-15)
	assert.Equal(t, ports.KindExact, exact.Kind)
	assert.NotEqual(t, eq.Key, exact.Key)
}

func TestRunner_MonteCarloDoesNotDependOnJobs(t *testing.T) {
	ic := culture.NewImpartial(3)
	ns := []int{3, 5, 7}
	one, err := newRunner(nil, 1).MonteCarlo(context.Background(), ic, 2, nil, ns, 500, 42)
	require.NoError(t, err)
	many, err := newRunner(nil, 3).MonteCarlo(context.Background(), ic, 2, nil, ns, 500, 42)
	require.NoError(t, err)
	assert.Equal(t, one.Values, many.Values)
	assert.Len(t, one.StdErrs, 3)
	for _, v := range one.Values {
		assert.InDelta(t, 0.31, v, 0.08)
	}
}

func TestKey(t *testing.T) {
	ic := culture.NewImpartial(3)
	key := Key(ic, 2, nil, []int{1, 2, 3}, ports.KindEquivalent, 0)
	assert.Equal(t, "Impartial_m=3_c=2_ns=[1,2,3]_equivalent", key)

	mc := Key(ic, 2, []*big.Rat{big.NewRat(1, 2), big.NewRat(2, 3), big.NewRat(1, 2)}, []int{1}, ports.KindMonteCarlo, 100)
	assert.Equal(t, "Impartial_m=3_c=2_alpha=1:2,2:3,1:2_ns=[1]_n_samples=100_montecarlo", mc)

	long := make([]int, 200)
	for i := range long {
		long[i] = 1000 + i
	}
	hashed := Key(ic, 0, nil, long, ports.KindEquivalent, 0)
	assert.Less(t, len(hashed), maxKeyLength)
	assert.True(t, strings.HasPrefix(hashed, "Impartial_m=3_c=0_hash(ns)="))
}
