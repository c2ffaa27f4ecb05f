package reference

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"actinvoting/domain/culture"
	"actinvoting/internal"
	"actinvoting/internal/asymptotic"
	"actinvoting/internal/numeric"
)

func mallowsSession(t *testing.T, rho float64, c int) *asymptotic.Session[float64] {
	t.Helper()
	cul, err := culture.NewMallowsFloat(3, math.Exp(-rho))
	require.NoError(t, err)
	s, err := asymptotic.NewSession[float64](numeric.Float{}, cul, c, nil,
		asymptotic.WithLogger(internal.NewNopLogger()))
	require.NoError(t, err)
	return s
}

func TestMallowsThreeLast(t *testing.T) {
	assert.InEpsilon(t, 0.001990689277019347, MallowsThreeLast(41, 0.5), 1e-12)

	// ceil(n/2) is the same for n = 2k-1 and 2k
	odd, even := MallowsThreeLast(21, 0.5), MallowsThreeLast(22, 0.5)
	assert.Less(t, even, odd)

	s := mallowsSession(t, 0.5, 2)
	for _, n := range []int{11, 21, 41} {
		exact, err := s.ExactProbability(n)
		require.NoError(t, err)
		assert.Greater(t, MallowsThreeLast(n, 0.5), exact, "n=%d", n)
	}
}

func TestMallowsThreeFirst(t *testing.T) {
	s := mallowsSession(t, 0.5, 0)
	previous := math.Inf(1)
	for _, n := range []int{11, 21, 41, 81} {
		exact, err := s.ExactProbability(n)
		require.NoError(t, err)
		ratio := MallowsThreeFirst(n, 0.5) / (1 - exact)
		assert.Greater(t, ratio, 1.0, "n=%d", n)
		assert.Less(t, ratio, previous, "n=%d", n)
		previous = ratio
	}
	assert.InDelta(t, 1.1505, previous, 1e-3)
}
