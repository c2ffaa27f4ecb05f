// Package quadrature integrates Gaussian kernels over the positive orthant.
package quadrature

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/integrate/quad"
	"gonum.org/v1/gonum/mat"
)

// DefaultNodes is the number of Gauss-Legendre nodes per dimension.
const DefaultNodes = 48

// Estimate is an integral value with an estimate of its absolute error.
type Estimate struct {
	Value    float64
	AbsError float64
}

// Integrator computes half-Gaussian integrals
//
//	I = ∫_{R+^k} w(u) exp(-uᵀ M u / 2) du
//
// with a tensor Gauss-Legendre rule after the change of variable
// u = x / (1 - x), x in (0, 1). The error estimate is the difference with
// the same rule at half the nodes.
type Integrator struct {
	Nodes int
}

// WeightFunc is an optional polynomial-growth weight; nil means w = 1.
type WeightFunc func(u []float64) float64

// HalfGaussian integrates over the orthant of dimension m.SymmetricDim().
// The zero-dimensional integral is w(∅), 1 when w is nil.
func (it Integrator) HalfGaussian(m mat.Symmetric, w WeightFunc) (Estimate, error) {
	n := it.Nodes
	if n == 0 {
		n = DefaultNodes
	}
	if n < 2 {
		return Estimate{}, fmt.Errorf("quadrature: need at least 2 nodes, got %d", n)
	}
	k := 0
	if m != nil {
		k = m.SymmetricDim()
	}
	if k == 0 {
		if w == nil {
			return Estimate{Value: 1}, nil
		}
		return Estimate{Value: w(nil)}, nil
	}
	for i := 0; i < k; i++ {
		if m.At(i, i) <= 0 {
			return Estimate{}, fmt.Errorf("quadrature: non-positive diagonal entry %g", m.At(i, i))
		}
	}

	fine := it.integrate(m, w, n)
	coarse := it.integrate(m, w, n/2)
	if math.IsNaN(fine) || math.IsInf(fine, 0) {
		return Estimate{}, fmt.Errorf("quadrature: non-finite integral")
	}
	return Estimate{Value: fine, AbsError: math.Abs(fine - coarse)}, nil
}

func (it Integrator) integrate(m mat.Symmetric, w WeightFunc, n int) float64 {
	k := m.SymmetricDim()
	if k == 1 {
		a := m.At(0, 0)
		f := func(u float64) float64 {
			v := math.Exp(-a * u * u / 2)
			if w != nil {
				v *= w([]float64{u})
			}
			return v
		}
		return quad.Fixed(f, 0, math.Inf(1), n, nil, 0)
	}

	xs := make([]float64, n)
	ws := make([]float64, n)
	quad.Legendre{}.FixedLocations(xs, ws, 0, 1)
	for i, x := range xs {
		v := 1 - x
		xs[i] = x / v
		ws[i] /= v * v
	}

	diag := make([]float64, k)
	for i := range diag {
		diag[i] = m.At(i, i)
	}
	u := make([]float64, k)
	var rec func(depth int, quadForm, weight float64) float64
	rec = func(depth int, quadForm, weight float64) float64 {
		if depth == k {
			v := weight * math.Exp(-quadForm/2)
			if w != nil {
				v *= w(u)
			}
			return v
		}
		cross := 0.0
		for a := 0; a < depth; a++ {
			cross += m.At(a, depth) * u[a]
		}
		total := 0.0
		for i, x := range xs {
			u[depth] = x
			q := quadForm + x*(2*cross+diag[depth]*x)
			total += rec(depth+1, q, weight*ws[i])
		}
		return total
	}
	return rec(0, 0, 1)
}

// OrthantProbability is P(X > 0) for X ~ N(0, Σ) with Σ = M⁻¹, recovered from
// the unweighted integral: I = sqrt((2π)^k det Σ) P(X > 0).
func OrthantProbability(integral float64, m mat.Symmetric) float64 {
	k := m.SymmetricDim()
	det := mat.Det(m)
	return integral * math.Sqrt(det/math.Pow(2*math.Pi, float64(k)))
}
