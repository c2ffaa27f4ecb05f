// Package asymptotic estimates the probability that a candidate is an
// alpha-winner for n voters drawn from a culture, using a saddle-point
// analysis of the characteristic polynomial of the culture.
//
// Vectors returned by Tau and Zeta have length m with tau[c] = 0 and
// zeta[c] = 1. Every other vector and matrix is indexed by adversary
// coordinates: the candidates other than c, in increasing order.
package asymptotic

import (
	"fmt"
	"math"
	"math/big"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"

	"actinvoting/domain/core"
	"actinvoting/domain/culture"
	"actinvoting/internal"
	"actinvoting/internal/numeric"
	"actinvoting/internal/polynomial"
	"actinvoting/internal/quadrature"
)

// Classification partitions the adversaries of c by their saddle point
// coordinate: subcritical (tau_d < 0), critical (tau_d ≈ 0), supercritical.
type Classification struct {
	Subcritical   []int
	Critical      []int
	Supercritical []int
}

// lazy memoizes a value and its error.
type lazy[V any] struct {
	done bool
	val  V
	err  error
}

func (l *lazy[V]) get(f func() (V, error)) (V, error) {
	if !l.done {
		l.val, l.err = f()
		l.done = true
	}
	return l.val, l.err
}

// Session studies the probability that candidate c is an alpha-winner under
// a culture. Derived quantities are computed on first use and cached with
// their error; a Session is never mutated otherwise and must not be shared
// between goroutines.
type Session[T any] struct {
	ring        numeric.Ring[T]
	cul         culture.Culture
	m, c        int
	adversaries []int
	alpha, beta []*big.Rat
	betaShort   []float64
	opts        options
	log         *internal.Logger

	poly       lazy[*polynomial.Polynomial[T]]
	compiled   lazy[*polynomial.Compiled]
	tau        lazy[[]float64]
	class      lazy[Classification]
	hessP      lazy[*mat.SymDense]
	hessK      lazy[*mat.SymDense]
	hessKFromP lazy[*mat.SymDense]
	chol       lazy[*mat.Cholesky]
	inverse    lazy[*mat.SymDense]
	matrixM    lazy[*mat.SymDense]
	integral   lazy[quadrature.Estimate]
	exactHessK lazy[numeric.Matrix[T]]
}

// NewSession builds a session for candidate c. A nil alpha means 1/2 for
// every candidate, i.e. the Condorcet winner. alpha[c] is not used.
func NewSession[T any](ring numeric.Ring[T], cul culture.Culture, c int, alpha []*big.Rat, opts ...Option) (*Session[T], error) {
	m := cul.M()
	if m < 2 {
		return nil, core.NewInvalidInputError("culture", fmt.Sprintf("need at least 2 candidates, got %d", m))
	}
	if c < 0 || c >= m {
		return nil, core.NewInvalidInputError("candidate", fmt.Sprintf("%d out of range for m=%d", c, m))
	}
	if alpha == nil {
		alpha = make([]*big.Rat, m)
		for i := range alpha {
			alpha[i] = big.NewRat(1, 2)
		}
	}
	if len(alpha) != m {
		return nil, core.NewInvalidInputError("alpha", fmt.Sprintf("length %d, want %d", len(alpha), m))
	}

	s := &Session[T]{
		ring:        ring,
		cul:         cul,
		m:           m,
		c:           c,
		adversaries: culture.Adversaries(m, c),
		alpha:       make([]*big.Rat, m),
		beta:        make([]*big.Rat, m),
		opts:        defaultOptions(),
	}
	for _, opt := range opts {
		opt(&s.opts)
	}
	s.log = s.opts.logger
	if s.log == nil {
		s.log = internal.NewNopLogger()
	}

	one := big.NewRat(1, 1)
	for d := 0; d < m; d++ {
		if alpha[d] == nil {
			return nil, core.NewInvalidInputError("alpha", fmt.Sprintf("alpha[%d] is missing", d))
		}
		s.alpha[d] = new(big.Rat).Set(alpha[d])
		s.beta[d] = new(big.Rat).Sub(one, alpha[d])
		if d != c && (alpha[d].Sign() < 0 || alpha[d].Cmp(one) >= 0) {
			return nil, core.NewInvalidInputError("alpha", fmt.Sprintf("alpha[%d] = %s not in [0, 1)", d, alpha[d].RatString()))
		}
	}
	for _, d := range s.adversaries {
		b, _ := s.beta[d].Float64()
		s.betaShort = append(s.betaShort, b)
	}

	if err := s.checkOptions(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Session[T]) checkOptions() error {
	o := s.opts
	if o.tolerance < 0 {
		return core.NewInvalidInputError("critical tolerance", fmt.Sprintf("%g is negative", o.tolerance))
	}
	if o.tau != nil {
		if len(o.tau) != s.m {
			return core.NewInvalidInputError("tau", fmt.Sprintf("length %d, want %d", len(o.tau), s.m))
		}
		for _, t := range o.tau {
			if math.IsNaN(t) || math.IsInf(t, 0) {
				return core.NewInvalidInputError("tau", "non-finite coordinate")
			}
		}
	}
	if o.exactZeta != nil {
		if len(o.exactZeta) != s.m {
			return core.NewInvalidInputError("zeta", fmt.Sprintf("length %d, want %d", len(o.exactZeta), s.m))
		}
		for _, d := range s.adversaries {
			if o.exactZeta[d].Sign() <= 0 {
				return core.NewInvalidInputError("zeta", fmt.Sprintf("zeta[%d] = %s is not positive", d, o.exactZeta[d].RatString()))
			}
		}
	}
	return nil
}

func (s *Session[T]) Ring() numeric.Ring[T]    { return s.ring }
func (s *Session[T]) Culture() culture.Culture { return s.cul }
func (s *Session[T]) M() int                   { return s.m }
func (s *Session[T]) Candidate() int           { return s.c }
func (s *Session[T]) Adversaries() []int       { return append([]int(nil), s.adversaries...) }

// Alpha returns a copy of the threshold vector.
func (s *Session[T]) Alpha() []*big.Rat { return copyRats(s.alpha) }

// Beta returns 1 - alpha.
func (s *Session[T]) Beta() []*big.Rat { return copyRats(s.beta) }

func copyRats(v []*big.Rat) []*big.Rat {
	res := make([]*big.Rat, len(v))
	for i, x := range v {
		res[i] = new(big.Rat).Set(x)
	}
	return res
}

// CharacteristicPolynomial is P(x) = sum over subsets H of adversaries of
// ProbaHighLow(c, H, adversaries \ H) * prod_{d in H} x_d. The culture must
// give non-negative probabilities summing exactly to 1.
func (s *Session[T]) CharacteristicPolynomial() (*polynomial.Polynomial[T], error) {
	return s.poly.get(func() (*polynomial.Polynomial[T], error) {
		k := len(s.adversaries)
		coord := make(map[int]int, k)
		for i, d := range s.adversaries {
			coord[d] = i
		}
		p := polynomial.New(s.ring, k)
		total := new(big.Rat)
		var contractErr error
		culture.ForEachPartition(s.m, s.c, func(higher, lower []int) {
			proba := s.cul.ProbaHighLow(s.c, higher, lower)
			if proba.Sign() < 0 && contractErr == nil {
				contractErr = core.NewCultureContractError("%s: negative probability %s for higher=%v",
					s.cul, proba.RatString(), higher)
			}
			total.Add(total, proba)
			exps := make([]int, k)
			for _, d := range higher {
				exps[coord[d]] = 1
			}
			p.AddTerm(exps, s.ring.FromRat(proba))
		})
		if contractErr != nil {
			return nil, contractErr
		}
		if total.Cmp(big.NewRat(1, 1)) != 0 {
			return nil, core.NewCultureContractError("%s: P(1, ..., 1) = %s for candidate %d",
				s.cul, total.RatString(), s.c)
		}
		s.log.Debug("characteristic polynomial of %s for candidate %d: %d terms", s.cul, s.c, p.Len())
		return p, nil
	})
}

func (s *Session[T]) compiledPolynomial() (*polynomial.Compiled, error) {
	return s.compiled.get(func() (*polynomial.Compiled, error) {
		p, err := s.CharacteristicPolynomial()
		if err != nil {
			return nil, err
		}
		return p.Compile(), nil
	})
}

// Cumulant is K(t) = log P(exp(t)), t in adversary coordinates.
func (s *Session[T]) Cumulant(t []float64) (float64, error) {
	comp, err := s.compiledPolynomial()
	if err != nil {
		return 0, err
	}
	if err := s.checkShort(t); err != nil {
		return 0, err
	}
	return comp.LogExp(t), nil
}

// Psi is -K(t) + <beta, t>, t in adversary coordinates.
func (s *Session[T]) Psi(t []float64) (float64, error) {
	k, err := s.Cumulant(t)
	if err != nil {
		return 0, err
	}
	return -k + floats.Dot(s.betaShort, t), nil
}

// PsiGradient is beta - grad K(t), t in adversary coordinates.
func (s *Session[T]) PsiGradient(t []float64) ([]float64, error) {
	comp, err := s.compiledPolynomial()
	if err != nil {
		return nil, err
	}
	if err := s.checkShort(t); err != nil {
		return nil, err
	}
	return s.psiGradient(comp, t), nil
}

func (s *Session[T]) psiGradient(comp *polynomial.Compiled, t []float64) []float64 {
	grad := make([]float64, len(t))
	comp.LogExpGrad(grad, t)
	floats.SubTo(grad, s.betaShort, grad)
	return grad
}

func (s *Session[T]) checkShort(t []float64) error {
	if len(t) != len(s.adversaries) {
		return core.NewInvalidInputError("t", fmt.Sprintf("length %d, want %d", len(t), len(s.adversaries)))
	}
	return nil
}

// tauShort is the log saddle point in adversary coordinates.
func (s *Session[T]) tauShort() ([]float64, error) {
	return s.tau.get(func() ([]float64, error) {
		comp, err := s.compiledPolynomial()
		if err != nil {
			return nil, err
		}
		if !comp.NonNegative() {
			return nil, core.NewCultureContractError("%s: negative coefficient in the characteristic polynomial", s.cul)
		}
		var tau []float64
		switch {
		case s.opts.exactZeta != nil:
			for _, d := range s.adversaries {
				z, _ := s.opts.exactZeta[d].Float64()
				tau = append(tau, math.Log(z))
			}
		case s.opts.tau != nil:
			for _, d := range s.adversaries {
				tau = append(tau, s.opts.tau[d])
			}
		default:
			return s.searchSaddlePoint(comp)
		}
		grad := s.psiGradient(comp, tau)
		if norm := floats.Norm(grad, math.Inf(1)); !(norm <= StationarityTolerance) {
			return nil, fmt.Errorf("%w: |grad psi| = %g at tau = %v", core.ErrInvalidSaddlePoint, norm, tau)
		}
		return tau, nil
	})
}

// searchSaddlePoint maximizes psi with BFGS from the origin.
func (s *Session[T]) searchSaddlePoint(comp *polynomial.Compiled) ([]float64, error) {
	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			return comp.LogExp(x) - floats.Dot(s.betaShort, x)
		},
		Grad: func(grad, x []float64) {
			comp.LogExpGrad(grad, x)
			floats.Sub(grad, s.betaShort)
		},
	}
	settings := &optimize.Settings{
		GradientThreshold: 1e-10,
		MajorIterations:   1000,
		FuncEvaluations:   20000,
	}
	result, err := optimize.Minimize(problem, make([]float64, len(s.adversaries)), settings, &optimize.BFGS{})
	if result == nil {
		return nil, &NonConvergenceError{Status: "NotStarted", Cause: err}
	}

	tau := result.X
	grad := s.psiGradient(comp, tau)
	norm := floats.Norm(grad, math.Inf(1))
	psi := -comp.LogExp(tau) + floats.Dot(s.betaShort, tau)
	s.log.Debug("saddle point of %s for candidate %d: tau=%v, |grad psi|=%g, status %s after %d iterations (err: %v)",
		s.cul, s.c, tau, norm, result.Status, result.MajorIterations, err)
	// line searches stall once the gradient is at rounding level, so
	// convergence is judged on the residual gradient, not on err
	if !(norm <= StationarityTolerance) || math.IsNaN(psi) || math.IsInf(psi, 0) {
		return nil, &NonConvergenceError{
			LastIterate: append([]float64(nil), tau...),
			Objective:   psi,
			GradNorm:    norm,
			Status:      result.Status.String(),
			Cause:       err,
		}
	}
	return tau, nil
}

// Tau is the log saddle point, the maximizer of psi (length m, tau[c] = 0).
func (s *Session[T]) Tau() ([]float64, error) {
	tau, err := s.tauShort()
	if err != nil {
		return nil, err
	}
	return s.expand(tau, 0), nil
}

// Zeta is exp(Tau) (length m, zeta[c] = 1).
func (s *Session[T]) Zeta() ([]float64, error) {
	tau, err := s.tauShort()
	if err != nil {
		return nil, err
	}
	return s.expand(zetaOf(tau), 1), nil
}

func zetaOf(tau []float64) []float64 {
	zeta := make([]float64, len(tau))
	for i, t := range tau {
		zeta[i] = math.Exp(t)
	}
	return zeta
}

// expand inserts fill at position c.
func (s *Session[T]) expand(short []float64, fill float64) []float64 {
	full := make([]float64, 0, s.m)
	full = append(full, short[:s.c]...)
	full = append(full, fill)
	return append(full, short[s.c:]...)
}

// PAtZeta is P(zeta).
func (s *Session[T]) PAtZeta() (float64, error) {
	tau, err := s.tauShort()
	if err != nil {
		return 0, err
	}
	comp, _ := s.compiledPolynomial()
	return math.Exp(comp.LogExp(tau)), nil
}

// Classification sorts adversaries with the critical tolerance of the session.
func (s *Session[T]) Classification() (Classification, error) {
	return s.class.get(func() (Classification, error) {
		tau, err := s.tauShort()
		if err != nil {
			return Classification{}, err
		}
		cl := Classification{Subcritical: []int{}, Critical: []int{}, Supercritical: []int{}}
		for i, d := range s.adversaries {
			switch t := tau[i]; {
			case math.Abs(t) <= s.opts.tolerance:
				cl.Critical = append(cl.Critical, d)
			case t < 0:
				cl.Subcritical = append(cl.Subcritical, d)
			default:
				cl.Supercritical = append(cl.Supercritical, d)
			}
		}
		s.log.Debug("candidate %d: subcritical %v, critical %v, supercritical %v",
			s.c, cl.Subcritical, cl.Critical, cl.Supercritical)
		return cl, nil
	})
}

func (s *Session[T]) SubcriticalCandidates() ([]int, error) {
	cl, err := s.Classification()
	return cl.Subcritical, err
}

func (s *Session[T]) CriticalCandidates() ([]int, error) {
	cl, err := s.Classification()
	return cl.Critical, err
}

// coordinate returns the adversary coordinate of candidate d.
func (s *Session[T]) coordinate(d int) int {
	if d > s.c {
		return d - 1
	}
	return d
}

// ceilBetaN is ceil(beta[d] * n), computed exactly.
func (s *Session[T]) ceilBetaN(d, n int) int {
	x := new(big.Rat).Mul(s.beta[d], big.NewRat(int64(n), 1))
	q, r := new(big.Int).QuoRem(x.Num(), x.Denom(), new(big.Int))
	if r.Sign() > 0 {
		q.Add(q, big.NewInt(1))
	}
	return int(q.Int64())
}

// Equivalent is the leading asymptotic term of the probability that c is an
// alpha-winner for n voters:
//
//	P(zeta)^n * I / ( prod_{d subcritical} (1 - zeta_d) zeta_d^(ceil(beta_d n) - 1)
//	                  * sqrt((2π)^(m-1) n^(#subcritical) det H_K) )
//
// where I is GaussianIntegral, 1 without critical adversaries. It is computed
// in log space.
func (s *Session[T]) Equivalent(n int) (float64, error) {
	if n < 1 {
		return 0, core.NewInvalidInputError("n", fmt.Sprintf("%d voters", n))
	}
	cl, err := s.Classification()
	if err != nil {
		return 0, err
	}
	if len(cl.Supercritical) > 0 {
		return 0, core.NewUnsupportedCaseError(cl.Supercritical)
	}
	det, err := s.DetHessianOfKAtTau()
	if err != nil {
		return 0, err
	}
	integral, err := s.GaussianIntegral()
	if err != nil {
		return 0, err
	}
	tau, _ := s.tauShort()
	comp, _ := s.compiledPolynomial()

	logNum := float64(n)*comp.LogExp(tau) + math.Log(integral.Value)
	logDen := 0.5 * (float64(s.m-1)*math.Log(2*math.Pi) + float64(len(cl.Subcritical))*math.Log(float64(n)) + math.Log(det))
	for _, d := range cl.Subcritical {
		t := tau[s.coordinate(d)]
		logDen += math.Log(-math.Expm1(t)) + float64(s.ceilBetaN(d, n)-1)*t
	}
	return math.Exp(logNum - logDen), nil
}

// ExactProbability is the probability that c is an alpha-winner for n voters:
// the sum of the coefficients of the monomials of P^n whose exponent of each
// x_d is below beta_d n. Its cost grows quickly with n and m.
func (s *Session[T]) ExactProbability(n int) (T, error) {
	if n < 0 {
		return s.ring.Zero(), core.NewInvalidInputError("n", fmt.Sprintf("%d voters", n))
	}
	p, err := s.CharacteristicPolynomial()
	if err != nil {
		return s.ring.Zero(), err
	}
	caps := make([]int, len(s.adversaries))
	for i, d := range s.adversaries {
		caps[i] = s.ceilBetaN(d, n) - 1
	}
	return p.PowTruncated(n, caps).SumCoefficients(), nil
}

// ExactProbabilityFloat is ExactProbability converted to float64.
func (s *Session[T]) ExactProbabilityFloat(n int) (float64, error) {
	p, err := s.ExactProbability(n)
	if err != nil {
		return 0, err
	}
	return s.ring.Float64(p), nil
}
