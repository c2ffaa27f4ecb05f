package asymptotic

import (
	"fmt"
	"math"
	"math/big"

	"actinvoting/domain/core"
	"actinvoting/domain/culture"
	"actinvoting/internal/numeric"
	"actinvoting/internal/quadrature"
)

// ImpartialSession is a Session for the Condorcet winner under the Impartial
// Culture, candidate m-1. By symmetry the saddle point is zeta = 1 and every
// adversary is critical, which gives a second term of the asymptotic
// expansion.
type ImpartialSession[T any] struct {
	*Session[T]
	errorTerm lazy[quadrature.Estimate]
}

// NewImpartialSession pins the exact saddle point; other options apply as for
// NewSession.
func NewImpartialSession[T any](ring numeric.Ring[T], m int, opts ...Option) (*ImpartialSession[T], error) {
	if m < 2 {
		return nil, core.NewInvalidInputError("m", fmt.Sprintf("need at least 2 candidates, got %d", m))
	}
	ones := make([]*big.Rat, m)
	for i := range ones {
		ones[i] = big.NewRat(1, 1)
	}
	opts = append(opts, WithExactSaddlePoint(ones))
	s, err := NewSession(ring, culture.NewImpartial(m), m-1, nil, opts...)
	if err != nil {
		return nil, err
	}
	s.class = lazy[Classification]{
		done: true,
		val: Classification{
			Subcritical:   []int{},
			Critical:      s.Adversaries(),
			Supercritical: []int{},
		},
	}
	return &ImpartialSession[T]{Session: s}, nil
}

// ErrorTermIntegral is the integral of (u_1 + ... + u_{m-1}) exp(-uᵀ M u / 2)
// over the positive orthant.
func (s *ImpartialSession[T]) ErrorTermIntegral() (quadrature.Estimate, error) {
	return s.errorTerm.get(func() (quadrature.Estimate, error) {
		return s.orthantIntegral(func(u []float64) float64 {
			total := 0.0
			for _, x := range u {
				total += x
			}
			return total
		})
	})
}

// Asymptotics adds the n^(-1/2) term to Equivalent:
//
//	a1 = -6 I1 / ((m + 1) sqrt((2π)^(m-1) det H_K))
//
// where I1 is ErrorTermIntegral. The term vanishes for odd n.
func (s *ImpartialSession[T]) Asymptotics(n int) (float64, error) {
	limit, err := s.Equivalent(n)
	if err != nil || n%2 == 1 {
		return limit, err
	}
	i1, err := s.ErrorTermIntegral()
	if err != nil {
		return 0, err
	}
	det, err := s.DetHessianOfKAtTau()
	if err != nil {
		return 0, err
	}
	a1 := -6 * i1.Value / (float64(s.m+1) * math.Sqrt(math.Pow(2*math.Pi, float64(s.m-1))*det))
	return limit + a1/math.Sqrt(float64(n)), nil
}
