package quadrature

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distmv"
)

// precision returns M = Σ⁻¹.
func precision(t *testing.T, sigma *mat.SymDense) *mat.SymDense {
	t.Helper()
	var chol mat.Cholesky
	require.True(t, chol.Factorize(sigma))
	var m mat.SymDense
	require.NoError(t, chol.InverseTo(&m))
	return &m
}

func TestHalfGaussian_OneDimension(t *testing.T) {
	it := Integrator{}
	for _, a := range []float64{0.25, 1, 4} {
		got, err := it.HalfGaussian(mat.NewSymDense(1, []float64{a}), nil)
		require.NoError(t, err)
		assert.InDelta(t, math.Sqrt(math.Pi/(2*a)), got.Value, 1e-8, "a=%g", a)
	}

	got, err := it.HalfGaussian(mat.NewSymDense(1, []float64{2}), func(u []float64) float64 { return u[0] })
	require.NoError(t, err)
	assert.InDelta(t, 0.5, got.Value, 1e-9)
}

func TestHalfGaussian_TwoDimensions(t *testing.T) {
	tests := []struct {
		name  string
		sigma []float64
	}{
		{"impartial three candidates", []float64{0.25, 1.0 / 12, 1.0 / 12, 0.25}},
		{"negative correlation", []float64{1, -0.6, -0.6, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sigma := mat.NewSymDense(2, tt.sigma)
			m := precision(t, sigma)
			got, err := Integrator{}.HalfGaussian(m, nil)
			require.NoError(t, err)

			rho := tt.sigma[1] / math.Sqrt(tt.sigma[0]*tt.sigma[3])
			want := 0.25 + math.Asin(rho)/(2*math.Pi)
			assert.InDelta(t, want, OrthantProbability(got.Value, m), 1e-9)
			assert.Less(t, got.AbsError, 1e-6)
		})
	}
}

func TestHalfGaussian_ImpartialValues(t *testing.T) {
	m := mat.NewSymDense(2, []float64{4.5, -1.5, -1.5, 4.5})
	i0, err := Integrator{}.HalfGaussian(m, nil)
	require.NoError(t, err)
	assert.InDelta(t, 0.4503405725706953, i0.Value, 1e-9)

	i1, err := Integrator{}.HalfGaussian(m, func(u []float64) float64 { return u[0] + u[1] })
	require.NoError(t, err)
	assert.InDelta(t, 0.3938786335344903, i1.Value, 1e-8)
}

func TestHalfGaussian_ThreeDimensions(t *testing.T) {
	sigma := mat.NewSymDense(3, []float64{
		1, 0.3, -0.2,
		0.3, 1, 0.5,
		-0.2, 0.5, 1,
	})
	m := precision(t, sigma)
	got, err := Integrator{}.HalfGaussian(m, nil)
	require.NoError(t, err)
	closed := 1.0/8 + (math.Asin(0.3)+math.Asin(-0.2)+math.Asin(0.5))/(4*math.Pi)
	assert.InDelta(t, closed, OrthantProbability(got.Value, m), 1e-9)

	// Monte Carlo estimate of the same orthant probability
	normal, ok := distmv.NewNormal([]float64{0, 0, 0}, sigma, rand.New(rand.NewPCG(7, 11)))
	require.True(t, ok)
	const samples = 200000
	hits := 0
	x := make([]float64, 3)
	for i := 0; i < samples; i++ {
		normal.Rand(x)
		if x[0] > 0 && x[1] > 0 && x[2] > 0 {
			hits++
		}
	}
	assert.InDelta(t, closed, float64(hits)/samples, 0.005)
}

func TestHalfGaussian_EdgeCases(t *testing.T) {
	got, err := Integrator{}.HalfGaussian(nil, nil)
	require.NoError(t, err)
	assert.Equal(t, Estimate{Value: 1}, got)

	got, err = Integrator{}.HalfGaussian(&mat.SymDense{}, func([]float64) float64 { return 3 })
	require.NoError(t, err)
	assert.Equal(t, 3.0, got.Value)

	_, err = Integrator{Nodes: 1}.HalfGaussian(mat.NewSymDense(1, []float64{1}), nil)
	assert.Error(t, err)

	_, err = Integrator{}.HalfGaussian(mat.NewSymDense(1, []float64{-1}), nil)
	assert.Error(t, err)
}
