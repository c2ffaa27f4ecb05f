package culture

import (
	"fmt"
	"math/big"
	"math/rand/v2"

	"actinvoting/domain/profile"
	"actinvoting/domain/ranking"
)

// Perturbed mixes a Dirac on the pole [0, 1, ..., m-1] (weight theta) with the
// Impartial Culture (weight 1 - theta). theta = 1 is a Dirac, theta = 0 is the
// Impartial Culture.
type Perturbed struct {
	m     int
	theta *big.Rat

	probaPole  *big.Rat
	probaOther *big.Rat
	thetaF     float64
}

// NewPerturbed returns a perturbed culture with theta in [0, 1].
func NewPerturbed(m int, theta *big.Rat) (*Perturbed, error) {
	if theta.Sign() < 0 || theta.Cmp(big.NewRat(1, 1)) > 0 {
		return nil, fmt.Errorf("perturbed: theta must be in [0, 1], got %s", theta.RatString())
	}
	other := new(big.Rat).Sub(big.NewRat(1, 1), theta)
	other.Quo(other, factorial(m))
	pc := &Perturbed{
		m:          m,
		theta:      new(big.Rat).Set(theta),
		probaOther: other,
		probaPole:  new(big.Rat).Add(theta, other),
	}
	pc.thetaF, _ = theta.Float64()
	return pc, nil
}

func (pc *Perturbed) Kind() Kind { return KindPerturbed }
func (pc *Perturbed) M() int     { return pc.m }

func (pc *Perturbed) pole() ranking.Ranking { return ranking.Identity(pc.m) }

func (pc *Perturbed) ProbaRanking(r ranking.Ranking) *big.Rat {
	if r.Equal(pc.pole()) {
		return new(big.Rat).Set(pc.probaPole)
	}
	return new(big.Rat).Set(pc.probaOther)
}

func (pc *Perturbed) ProbaBorda(b ranking.Borda) *big.Rat {
	return pc.ProbaRanking(ranking.RankingFromBorda(b))
}

// ProbaHighLow is |higher|! |lower|! (1 - theta) / m!, plus theta when the
// pole realizes the partition, i.e. higher = {0, ..., c-1}.
func (pc *Perturbed) ProbaHighLow(c int, higher, lower []int) *big.Rat {
	if !IsPartition(pc.m, c, higher, lower) {
		return new(big.Rat)
	}
	p := new(big.Rat).Mul(factorial(len(higher)), factorial(len(lower)))
	p.Mul(p, pc.probaOther)
	if len(higher) == c {
		for _, h := range higher {
			if h >= c {
				return p
			}
		}
		p.Add(p, pc.theta)
	}
	return p
}

func (pc *Perturbed) RandomRanking(rng *rand.Rand) ranking.Ranking {
	if rng.Float64() < pc.thetaF {
		return pc.pole()
	}
	return randomPermutation(rng, pc.m)
}

func (pc *Perturbed) RandomBorda(rng *rand.Rand) ranking.Borda {
	if rng.Float64() < pc.thetaF {
		return ranking.BordaFromRanking(pc.pole())
	}
	return ranking.Borda(rng.Perm(pc.m))
}

func (pc *Perturbed) RandomProfile(rng *rand.Rand, n int) *profile.Profile {
	return RandomProfileFromBordas(pc, rng, n)
}

func (pc *Perturbed) String() string {
	return fmt.Sprintf("Perturbed_m=%d_theta=%s", pc.m, pc.theta.RatString())
}
