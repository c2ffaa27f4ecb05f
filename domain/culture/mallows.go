package culture

import (
	"fmt"
	"math/big"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"

	"actinvoting/domain/profile"
	"actinvoting/domain/ranking"
)

// Mallows draws rankings with probability phi^d / Z, where d is the Kendall-tau
// distance to the pole [0, 1, ..., m-1]. phi = 1 is the Impartial Culture and
// phi = 0 is a Dirac on the pole.
//
// Sampling uses the repeated insertion model (Doignon, Pekec & Regenwetter, 2004).
type Mallows struct {
	m   int
	phi *big.Rat

	normalization *big.Rat
	// insertion[k][i]: probability to insert candidate k at index i of the
	// worst-to-best list built so far
	insertion [][]float64
}

// NewMallows returns a Mallows culture with an exact concentration parameter.
func NewMallows(m int, phi *big.Rat) (*Mallows, error) {
	if phi.Sign() < 0 {
		return nil, fmt.Errorf("mallows: phi must be non-negative, got %s", phi.RatString())
	}
	mc := &Mallows{m: m, phi: new(big.Rat).Set(phi)}

	powers := make([]*big.Rat, m)
	cumsum := make([]*big.Rat, m)
	acc := new(big.Rat)
	for k := 0; k < m; k++ {
		powers[k] = ratPow(phi, k)
		acc = new(big.Rat).Add(acc, powers[k])
		cumsum[k] = acc
	}

	mc.normalization = big.NewRat(1, 1)
	mc.insertion = make([][]float64, m)
	for k := 0; k < m; k++ {
		mc.normalization.Mul(mc.normalization, cumsum[k])
		probas := make([]float64, k+1)
		for i := 0; i <= k; i++ {
			probas[i], _ = new(big.Rat).Quo(powers[i], cumsum[k]).Float64()
		}
		mc.insertion[k] = probas
	}
	return mc, nil
}

// NewMallowsFloat converts phi exactly to a rational.
func NewMallowsFloat(m int, phi float64) (*Mallows, error) {
	return NewMallows(m, new(big.Rat).SetFloat64(phi))
}

func ratPow(x *big.Rat, k int) *big.Rat {
	res := big.NewRat(1, 1)
	for i := 0; i < k; i++ {
		res.Mul(res, x)
	}
	return res
}

func (mc *Mallows) Kind() Kind   { return KindMallows }
func (mc *Mallows) M() int       { return mc.m }
func (mc *Mallows) Phi() *big.Rat { return new(big.Rat).Set(mc.phi) }

// NormalizationConstant is Z = prod_k (1 + phi + ... + phi^k).
func (mc *Mallows) NormalizationConstant() *big.Rat { return new(big.Rat).Set(mc.normalization) }

// InsertionProbas exposes the repeated insertion probabilities of candidate k.
func (mc *Mallows) InsertionProbas(k int) []float64 {
	return append([]float64(nil), mc.insertion[k]...)
}

func (mc *Mallows) ProbaRanking(r ranking.Ranking) *big.Rat {
	p := ratPow(mc.phi, ranking.KendallTauIDRanking(r))
	return p.Quo(p, mc.normalization)
}

func (mc *Mallows) ProbaBorda(b ranking.Borda) *big.Rat {
	p := ratPow(mc.phi, ranking.KendallTauIDBorda(b))
	return p.Quo(p, mc.normalization)
}

func (mc *Mallows) ProbaHighLow(c int, higher, lower []int) *big.Rat {
	return ProbaHighLowByEnumeration(mc, c, higher, lower)
}

func (mc *Mallows) RandomRanking(rng *rand.Rand) ranking.Ranking {
	worstToBest := make([]int, 0, mc.m)
	for k := 0; k < mc.m; k++ {
		idx := int(distuv.NewCategorical(mc.insertion[k], rng).Rand())
		worstToBest = append(worstToBest, 0)
		copy(worstToBest[idx+1:], worstToBest[idx:])
		worstToBest[idx] = k
	}
	r := make(ranking.Ranking, mc.m)
	for i, cand := range worstToBest {
		r[mc.m-1-i] = cand
	}
	return r
}

func (mc *Mallows) RandomBorda(rng *rand.Rand) ranking.Borda {
	return ranking.BordaFromRanking(mc.RandomRanking(rng))
}

func (mc *Mallows) RandomProfile(rng *rand.Rand, n int) *profile.Profile {
	return RandomProfileFromRankings(mc, rng, n)
}

func (mc *Mallows) String() string {
	return fmt.Sprintf("Mallows_m=%d_phi=%s", mc.m, mc.phi.RatString())
}
