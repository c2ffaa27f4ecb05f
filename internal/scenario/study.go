package scenario

import (
	"fmt"
	"math/big"

	"actinvoting/domain/core"
	"actinvoting/domain/culture"
	"actinvoting/internal/asymptotic"
	"actinvoting/internal/numeric"
	"actinvoting/internal/quadrature"
)

// Study is an asymptotic session whose ring has been chosen by the scenario.
type Study interface {
	Culture() culture.Culture
	Candidate() int
	Alpha() []*big.Rat
	RingName() string

	Tau() ([]float64, error)
	Zeta() ([]float64, error)
	Classification() (asymptotic.Classification, error)
	DetHessianOfKAtTau() (float64, error)
	GaussianIntegral() (quadrature.Estimate, error)
	Equivalent(n int) (float64, error)
	ExactProbabilityFloat(n int) (float64, error)
	// ExactProbabilityString formats the exact probability in the ring, e.g.
	// "17/54" for the exact ring.
	ExactProbabilityString(n int) (string, error)
	// Asymptotics is the two-term expansion, only available for the
	// Condorcet winner under the Impartial Culture.
	Asymptotics(n int) (float64, error)
}

type study[T any] struct {
	*asymptotic.Session[T]
	impartial *asymptotic.ImpartialSession[T]
}

func (s *study[T]) RingName() string { return s.Ring().Name() }

func (s *study[T]) ExactProbabilityString(n int) (string, error) {
	p, err := s.ExactProbability(n)
	if err != nil {
		return "", err
	}
	return s.Ring().Format(p), nil
}

func (s *study[T]) Asymptotics(n int) (float64, error) {
	if s.impartial == nil {
		return 0, core.NewInvalidInputError("asymptotics",
			"only available for the Condorcet winner (candidate m-1) under the Impartial Culture")
	}
	return s.impartial.Asymptotics(n)
}

// Open builds the culture and the session of the scenario. Options given by
// the caller come first, so the scenario's tau or zeta take precedence.
func (s *Scenario) Open(opts ...asymptotic.Option) (Study, error) {
	cul, err := s.BuildCulture()
	if err != nil {
		return nil, err
	}
	alpha, err := s.AlphaRats()
	if err != nil {
		return nil, err
	}
	zeta, err := s.ZetaRats()
	if err != nil {
		return nil, err
	}
	opts = append([]asymptotic.Option(nil), opts...)
	if s.Tau != nil {
		opts = append(opts, asymptotic.WithTau(s.Tau))
	}
	if zeta != nil {
		opts = append(opts, asymptotic.WithExactSaddlePoint(zeta))
	}

	impartial := cul.Kind() == culture.KindImpartial && s.Candidate == cul.M()-1 &&
		alpha == nil && s.Tau == nil && zeta == nil
	switch s.Ring {
	case RingExact:
		return open[*big.Rat](numeric.Exact{}, cul, s.Candidate, alpha, impartial, opts)
	case RingFloat, "":
		return open[float64](numeric.Float{}, cul, s.Candidate, alpha, impartial, opts)
	default:
		return nil, core.NewInvalidInputError("ring", fmt.Sprintf("%q", s.Ring))
	}
}

func open[T any](ring numeric.Ring[T], cul culture.Culture, c int, alpha []*big.Rat, impartial bool, opts []asymptotic.Option) (Study, error) {
	if impartial {
		is, err := asymptotic.NewImpartialSession(ring, cul.M(), opts...)
		if err != nil {
			return nil, err
		}
		return &study[T]{Session: is.Session, impartial: is}, nil
	}
	session, err := asymptotic.NewSession(ring, cul, c, alpha, opts...)
	if err != nil {
		return nil, err
	}
	return &study[T]{Session: session}, nil
}
