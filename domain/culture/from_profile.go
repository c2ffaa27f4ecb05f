package culture

import (
	"fmt"
	"math/big"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"

	"actinvoting/domain/profile"
	"actinvoting/domain/ranking"
)

// FromProfile is the empirical culture of a profile: each ranking is drawn
// with probability weight / N.
type FromProfile struct {
	base     *profile.Profile
	probas   map[string]*big.Rat
	rankings []ranking.Ranking
	weights  []float64
}

// NewFromProfile builds the empirical culture of base.
func NewFromProfile(base *profile.Profile) (*FromProfile, error) {
	total := new(big.Rat).SetFloat64(base.N())
	if total.Sign() <= 0 {
		return nil, fmt.Errorf("from-profile: profile has no voters")
	}
	fp := &FromProfile{
		base:     base,
		probas:   make(map[string]*big.Rat),
		rankings: base.UniqueRankings(),
	}
	for i, r := range fp.rankings {
		w := base.Weights()[i]
		fp.probas[r.Key()] = new(big.Rat).Quo(new(big.Rat).SetFloat64(w), total)
		fp.weights = append(fp.weights, w)
	}
	return fp, nil
}

func (fp *FromProfile) Kind() Kind { return KindFromProfile }
func (fp *FromProfile) M() int     { return fp.base.M() }

func (fp *FromProfile) ProbaRanking(r ranking.Ranking) *big.Rat {
	if p, ok := fp.probas[r.Key()]; ok {
		return new(big.Rat).Set(p)
	}
	return new(big.Rat)
}

func (fp *FromProfile) ProbaBorda(b ranking.Borda) *big.Rat {
	return fp.ProbaRanking(ranking.RankingFromBorda(b))
}

func (fp *FromProfile) ProbaHighLow(c int, higher, lower []int) *big.Rat {
	return ProbaHighLowByEnumeration(fp, c, higher, lower)
}

func (fp *FromProfile) RandomRanking(rng *rand.Rand) ranking.Ranking {
	idx := int(distuv.NewCategorical(fp.weights, rng).Rand())
	return append(ranking.Ranking(nil), fp.rankings[idx]...)
}

func (fp *FromProfile) RandomBorda(rng *rand.Rand) ranking.Borda {
	return ranking.BordaFromRanking(fp.RandomRanking(rng))
}

func (fp *FromProfile) RandomProfile(rng *rand.Rand, n int) *profile.Profile {
	return RandomProfileFromBordas(fp, rng, n)
}

func (fp *FromProfile) String() string {
	return fmt.Sprintf("FromProfile_m=%d_%d_rankings_n=%g", fp.M(), len(fp.rankings), fp.base.N())
}
