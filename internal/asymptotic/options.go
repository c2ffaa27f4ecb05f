package asymptotic

import (
	"math/big"

	"actinvoting/internal"
	"actinvoting/internal/quadrature"
)

// DefaultCriticalTolerance is the absolute tolerance under which a saddle
// point coordinate counts as zero, i.e. the adversary is critical.
const DefaultCriticalTolerance = 1e-8

// StationarityTolerance bounds the infinity norm of the gradient of psi at an
// accepted saddle point.
const StationarityTolerance = 1e-6

// Option configures a Session.
type Option func(*options)

type options struct {
	tau       []float64
	exactZeta []*big.Rat
	tolerance float64
	nodes     int
	logger    *internal.Logger
}

func defaultOptions() options {
	return options{
		tolerance: DefaultCriticalTolerance,
		nodes:     quadrature.DefaultNodes,
		logger:    internal.DefaultLogger,
	}
}

// WithTau supplies the log saddle point (length m, tau[c] ignored) and skips
// the numerical search.
func WithTau(tau []float64) Option {
	return func(o *options) { o.tau = append([]float64(nil), tau...) }
}

// WithExactSaddlePoint supplies zeta exactly (length m, zeta[c] ignored). It
// skips the search and enables the exact Hessian queries.
func WithExactSaddlePoint(zeta []*big.Rat) Option {
	return func(o *options) {
		o.exactZeta = make([]*big.Rat, len(zeta))
		for i, z := range zeta {
			o.exactZeta[i] = new(big.Rat).Set(z)
		}
	}
}

// WithCriticalTolerance overrides DefaultCriticalTolerance.
func WithCriticalTolerance(tol float64) Option {
	return func(o *options) { o.tolerance = tol }
}

// WithQuadratureNodes sets the Gauss-Legendre nodes per dimension of the
// orthant integrals.
func WithQuadratureNodes(n int) Option {
	return func(o *options) { o.nodes = n }
}

func WithLogger(l *internal.Logger) Option {
	return func(o *options) { o.logger = l }
}
