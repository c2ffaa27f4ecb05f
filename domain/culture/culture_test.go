package culture

import (
	"math/big"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"actinvoting/domain/core"
	"actinvoting/domain/profile"
	"actinvoting/domain/ranking"
)

func rat(a, b int64) *big.Rat { return big.NewRat(a, b) }

func assertRat(t *testing.T, want, got *big.Rat) {
	t.Helper()
	assert.Zero(t, want.Cmp(got), "want %s, got %s", want.RatString(), got.RatString())
}

func newRNG() *rand.Rand { return rand.New(rand.NewPCG(42, 1)) }

func allCultures(t *testing.T) []Culture {
	t.Helper()
	mallows, err := NewMallows(4, rat(1, 2))
	require.NoError(t, err)
	dirac, err := NewMallows(3, new(big.Rat))
	require.NoError(t, err)
	pl, err := NewPlackettLuce([]*big.Rat{rat(1, 1), rat(2, 1), rat(3, 1), rat(1, 3)})
	require.NoError(t, err)
	base, err := profile.FromRankingWeights([]ranking.Ranking{{0, 1, 2}, {1, 0, 2}, {2, 1, 0}}, []float64{3, 2, 1})
	require.NoError(t, err)
	fp, err := NewFromProfile(base)
	require.NoError(t, err)
	perturbed, err := NewPerturbed(4, rat(1, 3))
	require.NoError(t, err)
	return []Culture{NewImpartial(4), mallows, dirac, pl, fp, perturbed}
}

func TestValidate_AllCultures(t *testing.T) {
	for _, cul := range allCultures(t) {
		t.Run(cul.String(), func(t *testing.T) {
			assert.NoError(t, Validate(cul))
		})
	}
}

// halfCulture claims probability 1/2 for every split.
type halfCulture struct{ *Impartial }

func (halfCulture) ProbaHighLow(c int, higher, lower []int) *big.Rat { return rat(1, 2) }

func TestValidate_BrokenCulture(t *testing.T) {
	err := Validate(halfCulture{NewImpartial(3)})
	require.Error(t, err)
	assert.True(t, core.IsCultureContract(err))

	err = ValidateCandidate(NewImpartial(3), 5)
	assert.True(t, core.IsInvalidInput(err))
}

func TestProbaHighLow_NonPartition(t *testing.T) {
	for _, cul := range allCultures(t) {
		m := cul.M()
		adv := Adversaries(m, 0)
		assert.Zero(t, cul.ProbaHighLow(0, adv[1:], nil).Sign(), "%s missing candidate", cul)
		assert.Zero(t, cul.ProbaHighLow(0, adv, []int{adv[0]}).Sign(), "%s overlap", cul)
	}
}

func TestProbaHighLow_ClosedFormsMatchEnumeration(t *testing.T) {
	ic := NewImpartial(4)
	perturbed, err := NewPerturbed(4, rat(2, 7))
	require.NoError(t, err)
	for _, cul := range []Culture{ic, perturbed} {
		for c := 0; c < 4; c++ {
			ForEachPartition(4, c, func(higher, lower []int) {
				want := ProbaHighLowByEnumeration(cul, c, higher, lower)
				got := cul.ProbaHighLow(c, higher, lower)
				assert.Zero(t, want.Cmp(got), "%s c=%d higher=%v lower=%v", cul, c, higher, lower)
			})
		}
	}
}

func TestImpartial(t *testing.T) {
	ic := NewImpartial(3)
	assertRat(t, rat(1, 6), ic.ProbaRanking(ranking.Ranking{2, 0, 1}))
	assertRat(t, rat(1, 6), ic.ProbaBorda(ranking.Borda{0, 1, 2}))
	assertRat(t, rat(1, 3), ic.ProbaHighLow(2, []int{0, 1}, nil))
	assertRat(t, rat(1, 6), ic.ProbaHighLow(1, []int{0}, []int{2}))
	assert.Equal(t, "Impartial_m=3", ic.String())
}

func TestMallows(t *testing.T) {
	mc, err := NewMallows(3, rat(1, 2))
	require.NoError(t, err)
	assertRat(t, rat(21, 8), mc.NormalizationConstant())
	assertRat(t, rat(8, 21), mc.ProbaRanking(ranking.Ranking{0, 1, 2}))
	assertRat(t, rat(1, 21), mc.ProbaRanking(ranking.Ranking{2, 1, 0}))
	assertRat(t, rat(4, 21), mc.ProbaBorda(ranking.Borda{1, 2, 0}))
	assert.InDeltaSlice(t, []float64{4.0 / 7, 2.0 / 7, 1.0 / 7}, mc.InsertionProbas(2), 1e-12)

	_, err = NewMallows(3, rat(-1, 2))
	assert.Error(t, err)
}

func TestMallows_DiracAtZero(t *testing.T) {
	mc, err := NewMallowsFloat(4, 0)
	require.NoError(t, err)
	assertRat(t, rat(1, 1), mc.ProbaRanking(ranking.Identity(4)))
	assert.Zero(t, mc.ProbaRanking(ranking.Ranking{1, 0, 2, 3}).Sign())

	rng := newRNG()
	for i := 0; i < 20; i++ {
		assert.Equal(t, ranking.Identity(4), mc.RandomRanking(rng))
	}
}

func TestPlackettLuce(t *testing.T) {
	pl, err := NewPlackettLuceFloat([]float64{1, 2, 3})
	require.NoError(t, err)
	assertRat(t, rat(1, 3), pl.ProbaRanking(ranking.Ranking{2, 1, 0}))
	assertRat(t, rat(1, 15), pl.ProbaRanking(ranking.Ranking{0, 1, 2}))
	assert.InDeltaSlice(t, []float64{1.0 / 6, 2.0 / 6, 3.0 / 6}, pl.ValuesNormalized(), 1e-12)
	assert.Equal(t, "PlackettLuce_values=[1,2,3]", pl.String())

	_, err = NewPlackettLuceFloat([]float64{1, 0})
	assert.Error(t, err)
}

func TestFromProfile(t *testing.T) {
	base, err := profile.FromRankingWeights([]ranking.Ranking{{0, 1, 2}, {1, 0, 2}}, []float64{3, 2})
	require.NoError(t, err)
	fp, err := NewFromProfile(base)
	require.NoError(t, err)
	assertRat(t, rat(3, 5), fp.ProbaRanking(ranking.Ranking{0, 1, 2}))
	assertRat(t, rat(2, 5), fp.ProbaBorda(ranking.Borda{1, 2, 0}))
	assert.Zero(t, fp.ProbaRanking(ranking.Ranking{2, 1, 0}).Sign())
	assertRat(t, rat(3, 5), fp.ProbaHighLow(0, nil, []int{1, 2}))
}

func TestPerturbed(t *testing.T) {
	pc, err := NewPerturbed(3, rat(1, 2))
	require.NoError(t, err)
	assertRat(t, rat(7, 12), pc.ProbaRanking(ranking.Identity(3)))
	assertRat(t, rat(1, 12), pc.ProbaRanking(ranking.Ranking{1, 0, 2}))
	assertRat(t, rat(2, 3), pc.ProbaHighLow(0, nil, []int{1, 2}))
	assertRat(t, rat(1, 6), pc.ProbaHighLow(1, nil, []int{0, 2}))

	_, err = NewPerturbed(3, rat(3, 2))
	assert.Error(t, err)

	dirac, err := NewPerturbed(3, rat(1, 1))
	require.NoError(t, err)
	rng := newRNG()
	for i := 0; i < 20; i++ {
		assert.Equal(t, ranking.Identity(3), dirac.RandomRanking(rng))
		assert.Equal(t, ranking.Borda{2, 1, 0}, dirac.RandomBorda(rng))
	}
}

// TestSampling_Frequencies compares empirical frequencies with exact probabilities.
func TestSampling_Frequencies(t *testing.T) {
	const samples = 20000
	mallows, err := NewMallows(3, rat(1, 2))
	require.NoError(t, err)
	pl, err := NewPlackettLuceFloat([]float64{1, 2, 3})
	require.NoError(t, err)

	for _, cul := range []Culture{NewImpartial(3), mallows, pl} {
		rng := newRNG()
		counts := make(map[string]int)
		for i := 0; i < samples; i++ {
			counts[cul.RandomRanking(rng).Key()]++
		}
		for _, r := range []ranking.Ranking{{0, 1, 2}, {2, 1, 0}, {1, 2, 0}} {
			want, _ := cul.ProbaRanking(r).Float64()
			got := float64(counts[r.Key()]) / samples
			assert.InDelta(t, want, got, 0.02, "%s ranking %v", cul, r)
		}
	}
}

func TestPlackettLuce_RandomRankingIsPermutation(t *testing.T) {
	for _, values := range [][]float64{{1, 2, 3}, {5, 1}, {1, 1, 1, 1, 1}} {
		pl, err := NewPlackettLuceFloat(values)
		require.NoError(t, err)
		rng := newRNG()
		for i := 0; i < 200; i++ {
			r := pl.RandomRanking(rng)
			require.Len(t, r, len(values))
			assert.True(t, ranking.IsPermutation(r), "%v", r)
		}
	}

	pl, err := NewPlackettLuceFloat([]float64{1, 2, 3})
	require.NoError(t, err)
	p := pl.RandomProfile(newRNG(), 30)
	assert.Equal(t, 30.0, p.N())
}

func TestRandomProfile(t *testing.T) {
	for _, cul := range allCultures(t) {
		p := cul.RandomProfile(newRNG(), 50)
		assert.Equal(t, 50.0, p.N(), cul.String())
		assert.Equal(t, cul.M(), p.M(), cul.String())
	}
}

func TestAverageProfile(t *testing.T) {
	avg := AverageProfile(NewImpartial(3))
	assert.InDelta(t, 1.0, avg.N(), 1e-12)
	wmm := avg.WeightedMajorityMatrix()
	for c := 0; c < 3; c++ {
		for d := 0; d < 3; d++ {
			if c != d {
				assert.InDelta(t, 0.5, wmm.At(c, d), 1e-12)
			}
		}
	}

	mallows, err := NewMallows(3, rat(1, 2))
	require.NoError(t, err)
	assert.Equal(t, 0, AverageProfile(mallows).CondorcetWinner())
}

func TestForEachPartition(t *testing.T) {
	var splits [][2][]int
	ForEachPartition(3, 1, func(higher, lower []int) {
		splits = append(splits, [2][]int{append([]int{}, higher...), append([]int{}, lower...)})
	})
	assert.Equal(t, [][2][]int{
		{{}, {0, 2}},
		{{0}, {2}},
		{{2}, {0}},
		{{0, 2}, {}},
	}, splits)
}
