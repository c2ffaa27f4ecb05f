package culture

import (
	"fmt"
	"math/big"
	"math/rand/v2"
	"strings"

	"gonum.org/v1/gonum/stat/distuv"

	"actinvoting/domain/profile"
	"actinvoting/domain/ranking"
)

// PlackettLuce picks candidates from best to worst, each with probability
// proportional to its value among the remaining ones.
type PlackettLuce struct {
	values []*big.Rat
	floats []float64
}

// NewPlackettLuce returns a Plackett-Luce culture with positive values.
func NewPlackettLuce(values []*big.Rat) (*PlackettLuce, error) {
	if len(values) == 0 {
		return nil, fmt.Errorf("plackett-luce: values cannot be empty")
	}
	pl := &PlackettLuce{values: make([]*big.Rat, len(values)), floats: make([]float64, len(values))}
	for i, v := range values {
		if v.Sign() <= 0 {
			return nil, fmt.Errorf("plackett-luce: value %d must be positive, got %s", i, v.RatString())
		}
		pl.values[i] = new(big.Rat).Set(v)
		pl.floats[i], _ = v.Float64()
	}
	return pl, nil
}

// NewPlackettLuceFloat converts the values exactly to rationals.
func NewPlackettLuceFloat(values []float64) (*PlackettLuce, error) {
	rats := make([]*big.Rat, len(values))
	for i, v := range values {
		rats[i] = new(big.Rat).SetFloat64(v)
	}
	return NewPlackettLuce(rats)
}

func (pl *PlackettLuce) Kind() Kind { return KindPlackettLuce }
func (pl *PlackettLuce) M() int     { return len(pl.values) }

// ValuesNormalized returns the values scaled to sum to 1.
func (pl *PlackettLuce) ValuesNormalized() []float64 {
	total := 0.0
	for _, v := range pl.floats {
		total += v
	}
	res := make([]float64, len(pl.floats))
	for i, v := range pl.floats {
		res[i] = v / total
	}
	return res
}

// ProbaRanking multiplies, from worst to best, value / (sum of values placed so far).
func (pl *PlackettLuce) ProbaRanking(r ranking.Ranking) *big.Rat {
	p := big.NewRat(1, 1)
	cumulative := new(big.Rat)
	for i := len(r) - 1; i >= 0; i-- {
		v := pl.values[r[i]]
		cumulative.Add(cumulative, v)
		p.Mul(p, new(big.Rat).Quo(v, cumulative))
	}
	return p
}

func (pl *PlackettLuce) ProbaBorda(b ranking.Borda) *big.Rat {
	return pl.ProbaRanking(ranking.RankingFromBorda(b))
}

func (pl *PlackettLuce) ProbaHighLow(c int, higher, lower []int) *big.Rat {
	return ProbaHighLowByEnumeration(pl, c, higher, lower)
}

func (pl *PlackettLuce) RandomRanking(rng *rand.Rand) ranking.Ranking {
	weights := append([]float64(nil), pl.floats...)
	cat := distuv.NewCategorical(weights, rng)
	r := make(ranking.Ranking, len(weights))
	for i := range r {
		idx := int(cat.Rand())
		r[i] = idx
		// the categorical cannot hold an all-zero weight vector
		if i < len(r)-1 {
			cat.Reweight(idx, 0)
		}
	}
	return r
}

func (pl *PlackettLuce) RandomBorda(rng *rand.Rand) ranking.Borda {
	return ranking.BordaFromRanking(pl.RandomRanking(rng))
}

func (pl *PlackettLuce) RandomProfile(rng *rand.Rand, n int) *profile.Profile {
	return RandomProfileFromRankings(pl, rng, n)
}

func (pl *PlackettLuce) String() string {
	parts := make([]string, len(pl.values))
	for i, v := range pl.values {
		parts[i] = v.RatString()
	}
	return fmt.Sprintf("PlackettLuce_values=[%s]", strings.Join(parts, ","))
}
