package culture

import (
	"fmt"
	"math/big"
	"math/rand/v2"

	"actinvoting/domain/profile"
	"actinvoting/domain/ranking"
)

// Impartial is the uniform distribution over the m! rankings.
type Impartial struct {
	m     int
	proba *big.Rat
}

// NewImpartial returns the Impartial Culture on m candidates.
func NewImpartial(m int) *Impartial {
	return &Impartial{m: m, proba: new(big.Rat).Inv(factorial(m))}
}

func (ic *Impartial) Kind() Kind { return KindImpartial }
func (ic *Impartial) M() int     { return ic.m }

func (ic *Impartial) ProbaRanking(ranking.Ranking) *big.Rat { return new(big.Rat).Set(ic.proba) }
func (ic *Impartial) ProbaBorda(ranking.Borda) *big.Rat     { return new(big.Rat).Set(ic.proba) }

// ProbaHighLow is |higher|! |lower|! / m! for any partition.
func (ic *Impartial) ProbaHighLow(c int, higher, lower []int) *big.Rat {
	if !IsPartition(ic.m, c, higher, lower) {
		return new(big.Rat)
	}
	p := new(big.Rat).Mul(factorial(len(higher)), factorial(len(lower)))
	return p.Mul(p, ic.proba)
}

func (ic *Impartial) RandomRanking(rng *rand.Rand) ranking.Ranking {
	return randomPermutation(rng, ic.m)
}

func (ic *Impartial) RandomBorda(rng *rand.Rand) ranking.Borda {
	return ranking.Borda(rng.Perm(ic.m))
}

func (ic *Impartial) RandomProfile(rng *rand.Rand, n int) *profile.Profile {
	return RandomProfileFromBordas(ic, rng, n)
}

func (ic *Impartial) String() string { return fmt.Sprintf("Impartial_m=%d", ic.m) }
