// Package batch evaluates series of probabilities over lists of voter counts,
// in parallel, memoising each series in a result store.
package batch

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"actinvoting/domain/core"
	"actinvoting/domain/culture"
	"actinvoting/internal"
	"actinvoting/internal/montecarlo"
	"actinvoting/ports"
)

// maxKeyLength bounds cache keys; longer lists of voter counts are hashed.
const maxKeyLength = 255

// Estimator is the part of a session used by the equivalent series.
type Estimator interface {
	Culture() culture.Culture
	Candidate() int
	Alpha() []*big.Rat
	Equivalent(n int) (float64, error)
}

// ExactEstimator is the part of a session used by the exact series.
type ExactEstimator interface {
	Culture() culture.Culture
	Candidate() int
	Alpha() []*big.Rat
	ExactProbabilityFloat(n int) (float64, error)
}

// Series is one evaluated batch.
type Series struct {
	RunID   core.RunID
	Key     string
	Kind    ports.ResultKind
	Ns      []int
	Values  []float64
	StdErrs []float64 // Monte Carlo only
	Cached  bool
	Elapsed time.Duration
}

// Runner evaluates series with at most Jobs concurrent evaluations. A nil
// Store disables memoisation.
type Runner struct {
	Store          ports.ResultStore
	Jobs           int
	ForceRecompute bool
	RNG            ports.RNGPort
	Logger         *internal.Logger
}

func (r *Runner) log() *internal.Logger {
	if r.Logger == nil {
		return internal.DefaultLogger
	}
	return r.Logger
}

// Key builds the cache key of a series.
func Key(cul culture.Culture, c int, alpha []*big.Rat, ns []int, kind ports.ResultKind, samples int) string {
	var b strings.Builder
	b.WriteString(strings.NewReplacer(" ", "_", "/", "_").Replace(cul.String()))
	fmt.Fprintf(&b, "_c=%d", c)
	if alpha != nil {
		parts := make([]string, len(alpha))
		for i, a := range alpha {
			parts[i] = a.RatString()
		}
		b.WriteString("_alpha=" + strings.ReplaceAll(strings.Join(parts, ","), "/", ":"))
	}
	suffix := ""
	if kind == ports.KindMonteCarlo {
		suffix = "_n_samples=" + strconv.Itoa(samples)
	}
	suffix += "_" + string(kind)

	full := b.String() + "_ns=" + joinInts(ns) + suffix
	if len(full) < maxKeyLength {
		return full
	}
	return b.String() + "_hash(ns)=" + core.ComputeSeriesHash(ns).Short() + suffix
}

func joinInts(ns []int) string {
	parts := make([]string, len(ns))
	for i, n := range ns {
		parts[i] = strconv.Itoa(n)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

// Equivalents evaluates the asymptotic equivalent for every n. The session is
// warmed up on ns[0] before the parallel evaluation, after which Equivalent
// only reads cached state.
func (r *Runner) Equivalents(ctx context.Context, s Estimator, ns []int) (*Series, error) {
	key := Key(s.Culture(), s.Candidate(), s.Alpha(), ns, ports.KindEquivalent, 0)
	return r.run(ctx, key, ports.KindEquivalent, ns, func() error {
		if len(ns) == 0 {
			return nil
		}
		_, err := s.Equivalent(ns[0])
		return err
	}, func(ctx context.Context, i, n int) (float64, float64, error) {
		v, err := s.Equivalent(n)
		return v, 0, err
	})
}

// Exact evaluates the exact probability for every n. The warm-up with n = 0
// builds the characteristic polynomial once.
func (r *Runner) Exact(ctx context.Context, s ExactEstimator, ns []int) (*Series, error) {
	key := Key(s.Culture(), s.Candidate(), s.Alpha(), ns, ports.KindExact, 0)
	return r.run(ctx, key, ports.KindExact, ns, func() error {
		_, err := s.ExactProbabilityFloat(0)
		return err
	}, func(ctx context.Context, i, n int) (float64, float64, error) {
		v, err := s.ExactProbabilityFloat(n)
		return v, 0, err
	})
}

// MonteCarlo estimates the probability that c is an alpha-winner for every n
// with nSamples profiles each. Every n draws from its own stream, so results
// do not depend on Jobs.
func (r *Runner) MonteCarlo(ctx context.Context, cul culture.Culture, c int, alpha []*big.Rat, ns []int, nSamples int, seed uint64) (*Series, error) {
	key := Key(cul, c, alpha, ns, ports.KindMonteCarlo, nSamples)
	rngs := r.RNG
	if rngs == nil {
		rngs = montecarlo.Streams{}
	}
	return r.run(ctx, key, ports.KindMonteCarlo, ns, nil, func(ctx context.Context, i, n int) (float64, float64, error) {
		rng, err := rngs.Stream(ctx, key, string(ports.KindMonteCarlo), n, seed)
		if err != nil {
			return 0, 0, err
		}
		res, err := montecarlo.AlphaWinner(ctx, cul, c, alpha, n, nSamples, rng)
		return res.Probability, res.StdErr, err
	})
}

func (r *Runner) run(
	ctx context.Context,
	key string,
	kind ports.ResultKind,
	ns []int,
	warmUp func() error,
	eval func(ctx context.Context, i, n int) (float64, float64, error),
) (*Series, error) {
	log := r.log()
	if cached := r.load(ctx, key, len(ns)); cached != nil {
		log.Info("loading %s", key)
		return &Series{
			RunID:   cached.RunID,
			Key:     key,
			Kind:    kind,
			Ns:      append([]int(nil), ns...),
			Values:  cached.Values,
			StdErrs: cached.StdErrs,
			Cached:  true,
		}, nil
	}

	start := time.Now()
	if warmUp != nil {
		if err := warmUp(); err != nil {
			return nil, err
		}
	}
	values := make([]float64, len(ns))
	stdErrs := make([]float64, len(ns))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(max(r.Jobs, 1))
	for i, n := range ns {
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			v, se, err := eval(gCtx, i, n)
			if err != nil {
				return fmt.Errorf("n=%d: %w", n, err)
			}
			values[i], stdErrs[i] = v, se
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	elapsed := time.Since(start)
	log.Info("computed %s in %s", key, elapsed.Round(time.Millisecond))

	series := &Series{
		RunID:   core.NewRunID(),
		Key:     key,
		Kind:    kind,
		Ns:      append([]int(nil), ns...),
		Values:  values,
		Elapsed: elapsed,
	}
	if kind == ports.KindMonteCarlo {
		series.StdErrs = stdErrs
	}
	r.save(ctx, series)
	return series, nil
}

func (r *Runner) load(ctx context.Context, key string, length int) *ports.StoredResult {
	if r.Store == nil || r.ForceRecompute {
		return nil
	}
	res, err := r.Store.Load(ctx, key)
	switch {
	case errors.Is(err, ports.ErrNotFound):
		return nil
	case err != nil:
		r.log().Warn("cannot load %s: %v", key, err)
		return nil
	case len(res.Values) != length:
		r.log().Warn("ignoring %s: %d stored values for %d voter counts", key, len(res.Values), length)
		return nil
	}
	return res
}

func (r *Runner) save(ctx context.Context, s *Series) {
	if r.Store == nil {
		return
	}
	err := r.Store.Save(ctx, &ports.StoredResult{
		RunID:     s.RunID,
		CacheKey:  s.Key,
		Kind:      s.Kind,
		Values:    s.Values,
		StdErrs:   s.StdErrs,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		r.log().Warn("cannot save %s: %v", s.Key, err)
	}
}
