// Package montecarlo estimates probabilities by sampling, as an independent
// check of the asymptotic formulas.
package montecarlo

import (
	"context"
	"fmt"
	"math"
	"math/big"
	"math/rand/v2"

	"github.com/montanaflynn/stats"

	"actinvoting/domain/core"
	"actinvoting/domain/culture"
	"actinvoting/domain/profile"
)

// checkEvery is the number of draws between two context checks.
const checkEvery = 1024

// Result is a Monte Carlo estimate of a probability.
type Result struct {
	Probability float64
	// StdErr is the standard error of the mean of the indicator samples.
	StdErr  float64
	Samples int
}

// Probability draws from factory until nSamples draws satisfy conditionalOn
// (every draw if it is nil) and returns, for each test, the fraction of those
// draws that pass it. The same draws are used for every test.
func Probability[S any](ctx context.Context, factory func() S, nSamples int, tests []func(S) bool, conditionalOn func(S) bool) ([]Result, error) {
	if nSamples < 1 {
		return nil, core.NewInvalidInputError("samples", fmt.Sprintf("%d", nSamples))
	}
	if len(tests) == 0 {
		return nil, core.NewInvalidInputError("tests", "at least one test is required")
	}
	indicators := make([][]float64, len(tests))
	for i := range indicators {
		indicators[i] = make([]float64, 0, nSamples)
	}
	for draws := 0; len(indicators[0]) < nSamples; draws++ {
		if draws%checkEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		something := factory()
		if conditionalOn != nil && !conditionalOn(something) {
			continue
		}
		for i, test := range tests {
			v := 0.0
			if test(something) {
				v = 1
			}
			indicators[i] = append(indicators[i], v)
		}
	}

	results := make([]Result, len(tests))
	for i, data := range indicators {
		r, err := summarize(data)
		if err != nil {
			return nil, err
		}
		results[i] = r
	}
	return results, nil
}

func summarize(data []float64) (Result, error) {
	mean, err := stats.Mean(data)
	if err != nil {
		return Result{}, err
	}
	r := Result{Probability: mean, Samples: len(data)}
	if len(data) > 1 {
		sd, err := stats.StandardDeviationSample(data)
		if err != nil {
			return Result{}, err
		}
		r.StdErr = sd / math.Sqrt(float64(len(data)))
	}
	return r, nil
}

// AlphaWinner estimates the probability that c is an alpha-winner for n voters
// drawn from cul. A nil alpha means the Condorcet winner.
func AlphaWinner(ctx context.Context, cul culture.Culture, c int, alpha []*big.Rat, n, nSamples int, rng *rand.Rand) (Result, error) {
	m := cul.M()
	if c < 0 || c >= m {
		return Result{}, core.NewInvalidInputError("candidate", fmt.Sprintf("%d out of range for m=%d", c, m))
	}
	if n < 1 {
		return Result{}, core.NewInvalidInputError("n", fmt.Sprintf("%d voters", n))
	}
	if alpha == nil {
		alpha = make([]*big.Rat, m)
		for i := range alpha {
			alpha[i] = big.NewRat(1, 2)
		}
	}
	if len(alpha) != m {
		return Result{}, core.NewInvalidInputError("alpha", fmt.Sprintf("length %d, want %d", len(alpha), m))
	}
	results, err := Probability(ctx,
		func() *profile.Profile { return cul.RandomProfile(rng, n) },
		nSamples,
		[]func(*profile.Profile) bool{func(p *profile.Profile) bool { return p.IsAlphaWinner(c, alpha) }},
		nil,
	)
	if err != nil {
		return Result{}, err
	}
	return results[0], nil
}
