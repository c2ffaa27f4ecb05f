package polynomial

import (
	"math"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/mat"

	"actinvoting/internal/numeric"
)

// icPolynomial is the characteristic polynomial of candidate 2 under the
// Impartial Culture with three candidates.
func icPolynomial() *Polynomial[*big.Rat] {
	p := New[*big.Rat](numeric.Exact{}, 2)
	p.AddTerm([]int{0, 0}, big.NewRat(1, 3))
	p.AddTerm([]int{1, 0}, big.NewRat(1, 6))
	p.AddTerm([]int{0, 1}, big.NewRat(1, 6))
	p.AddTerm([]int{1, 1}, big.NewRat(1, 3))
	return p
}

func TestPolynomial_Basics(t *testing.T) {
	p := icPolynomial()
	assert.Equal(t, 4, p.Len())
	assert.Equal(t, "1/3 + 1/6*x1 + 1/6*x0 + 1/3*x0*x1", p.String())
	assert.Equal(t, "1", p.SumCoefficients().RatString())
	assert.Equal(t, "1/6", p.Coefficient([]int{1, 0}).RatString())
	assert.Equal(t, "0", p.Coefficient([]int{2, 0}).RatString())
	assert.True(t, p.IsMultilinear())

	x := []*big.Rat{big.NewRat(1, 2), big.NewRat(2, 1)}
	assert.Equal(t, "13/12", p.Eval(x).RatString())

	assert.Equal(t, "1/6 + 1/3*x1", p.Derivative(0).String())
	assert.Equal(t, "1/3", p.Derivative(0).Derivative(1).String())
	assert.Equal(t, "0", p.Derivative(0).Derivative(0).String())

	assert.Panics(t, func() { p.AddTerm([]int{1}, big.NewRat(1, 1)) })
	assert.Panics(t, func() { p.AddTerm([]int{-1, 0}, big.NewRat(1, 1)) })
}

func TestPolynomial_CancellationDropsTerms(t *testing.T) {
	r := numeric.Exact{}
	a := New[*big.Rat](r, 1)
	a.AddTerm([]int{0}, r.One())
	a.AddTerm([]int{1}, r.One())
	b := New[*big.Rat](r, 1)
	b.AddTerm([]int{0}, r.One())
	b.AddTerm([]int{1}, r.FromInt(-1))

	prod := a.Mul(b)
	assert.Equal(t, "1 + -1*x0^2", prod.String())
	assert.Equal(t, 2, prod.Len())
	assert.False(t, prod.IsMultilinear())
}

func TestPolynomial_PowTruncated(t *testing.T) {
	p := icPolynomial()
	tests := []struct {
		n    int
		caps []int
		want string
	}{
		{2, []int{0, 0}, "1/9"},
		{3, []int{1, 1}, "17/54"},
		{4, []int{1, 1}, "4/27"},
		{5, []int{2, 2}, "67/216"},
		{9, []int{4, 4}, "774323/2519424"},
	}
	for _, tt := range tests {
		got := p.PowTruncated(tt.n, tt.caps).SumCoefficients()
		assert.Equal(t, tt.want, got.RatString(), "n=%d", tt.n)
	}

	full := p.PowTruncated(3, nil)
	assert.Equal(t, "1", full.SumCoefficients().RatString())
	assert.Equal(t, "1/27", full.Coefficient([]int{3, 3}).RatString())

	// truncating the full power gives the same coefficients
	trunc := p.PowTruncated(3, []int{1, 2})
	for _, term := range trunc.Terms() {
		assert.Equal(t, full.Coefficient(term.Exponents).RatString(), term.Coef.RatString())
	}
	assert.Equal(t, 0, p.PowTruncated(3, []int{-1, 2}).Len())
}

func TestPolynomial_FloatRing(t *testing.T) {
	p := New[float64](numeric.Float{}, 2)
	for _, term := range icPolynomial().Terms() {
		f, _ := term.Coef.Float64()
		p.AddTerm(term.Exponents, f)
	}
	got := p.PowTruncated(3, []int{1, 1}).SumCoefficients()
	assert.InDelta(t, 17.0/54, got, 1e-14)
}

func TestCompiled_Derivatives(t *testing.T) {
	c := icPolynomial().Compile()
	require.True(t, c.NonNegative())
	x := []float64{0.5, 2}
	assert.InDelta(t, 13.0/12, c.Eval(x), 1e-15)

	grad := make([]float64, 2)
	c.Gradient(grad, x)
	assert.InDeltaSlice(t, []float64{5.0 / 6, 1.0 / 3}, grad, 1e-15)

	h := mat.NewSymDense(2, nil)
	c.Hessian(h, x)
	assert.True(t, mat.EqualApprox(h, mat.NewSymDense(2, []float64{0, 1.0 / 3, 1.0 / 3, 0}), 1e-15))

	// 2 x0^3 x1^2
	q := New[float64](numeric.Float{}, 2)
	q.AddTerm([]int{3, 2}, 2)
	cq := q.Compile()
	y := []float64{1.5, 0.5}
	cq.Gradient(grad, y)
	assert.InDeltaSlice(t, []float64{3.375, 6.75}, grad, 1e-12)
	cq.Hessian(h, y)
	assert.True(t, mat.EqualApprox(h, mat.NewSymDense(2, []float64{4.5, 13.5, 13.5, 13.5}), 1e-12))
}

func TestCompiled_LogExp(t *testing.T) {
	c := icPolynomial().Compile()
	for _, tt := range [][]float64{{0, 0}, {-0.7, 0.2}, {1.5, -2}} {
		x := []float64{math.Exp(tt[0]), math.Exp(tt[1])}
		assert.InDelta(t, math.Log(c.Eval(x)), c.LogExp(tt), 1e-14)

		grad := make([]float64, 2)
		c.LogExpGrad(grad, tt)
		want := fd.Gradient(nil, c.LogExp, tt, &fd.Settings{Formula: fd.Central})
		assert.InDeltaSlice(t, want, grad, 1e-7)

		var h, fh mat.SymDense
		h.ReuseAsSym(2)
		c.LogExpHessian(&h, tt)
		fd.Hessian(&fh, c.LogExp, tt, &fd.Settings{Formula: fd.Central, Step: 1e-4})
		assert.True(t, mat.EqualApprox(&h, &fh, 1e-4), "t=%v\n%v\n%v", tt, mat.Formatted(&h), mat.Formatted(&fh))
	}

	// at the origin, the gradient is the expected exponent vector
	grad := make([]float64, 2)
	c.LogExpGrad(grad, []float64{0, 0})
	assert.InDeltaSlice(t, []float64{0.5, 0.5}, grad, 1e-15)

	neg := New[float64](numeric.Float{}, 1)
	neg.AddTerm([]int{0}, -1)
	assert.False(t, neg.Compile().NonNegative())
}
