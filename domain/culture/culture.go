// Package culture defines probabilistic models over rankings ("cultures").
//
// Every culture is a General Independent Culture: voters draw their rankings
// independently from the same distribution. Probabilities are exact rationals;
// cultures built from float parameters convert them exactly at construction.
package culture

import (
	"math/big"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/combin"

	"actinvoting/domain/profile"
	"actinvoting/domain/ranking"
)

// Kind tags a culture variant.
type Kind string

const (
	KindImpartial    Kind = "impartial"
	KindMallows      Kind = "mallows"
	KindPlackettLuce Kind = "plackett_luce"
	KindFromProfile  Kind = "from_profile"
	KindPerturbed    Kind = "perturbed"
)

// Culture is a probability distribution over the rankings of M candidates.
type Culture interface {
	Kind() Kind
	M() int

	// ProbaRanking is the probability to draw the ranking r.
	ProbaRanking(r ranking.Ranking) *big.Rat
	// ProbaBorda is the probability to draw the ranking whose Borda vector is b.
	ProbaBorda(b ranking.Borda) *big.Rat
	// ProbaHighLow is the probability that a random ranking places every
	// candidate of higher above c and every candidate of lower below c. It is
	// 0 unless higher, lower and {c} partition the candidates.
	ProbaHighLow(c int, higher, lower []int) *big.Rat

	RandomRanking(rng *rand.Rand) ranking.Ranking
	RandomBorda(rng *rand.Rand) ranking.Borda
	RandomProfile(rng *rand.Rand, n int) *profile.Profile

	// String describes the culture and its parameters; it is used in cache keys.
	String() string
}

// IsPartition reports whether higher, lower and {c} partition 0..m-1.
func IsPartition(m, c int, higher, lower []int) bool {
	if c < 0 || c >= m || len(higher)+len(lower) != m-1 {
		return false
	}
	seen := make([]bool, m)
	seen[c] = true
	for _, group := range [][]int{higher, lower} {
		for _, d := range group {
			if d < 0 || d >= m || seen[d] {
				return false
			}
			seen[d] = true
		}
	}
	return true
}

// ProbaHighLowByEnumeration sums ProbaRanking over every ranking of the form
// (permutation of higher, c, permutation of lower).
func ProbaHighLowByEnumeration(cul Culture, c int, higher, lower []int) *big.Rat {
	total := new(big.Rat)
	if !IsPartition(cul.M(), c, higher, lower) {
		return total
	}
	r := make(ranking.Ranking, 0, cul.M())
	for _, ph := range permutationsOf(higher) {
		for _, pl := range permutationsOf(lower) {
			r = r[:0]
			r = append(r, ph...)
			r = append(r, c)
			r = append(r, pl...)
			total.Add(total, cul.ProbaRanking(r))
		}
	}
	return total
}

// permutationsOf lists every ordering of items (a single empty ordering if items is empty).
func permutationsOf(items []int) [][]int {
	if len(items) == 0 {
		return [][]int{{}}
	}
	idx := combin.Permutations(len(items), len(items))
	res := make([][]int, len(idx))
	for i, p := range idx {
		res[i] = make([]int, len(p))
		for j, k := range p {
			res[i][j] = items[k]
		}
	}
	return res
}

// ForEachPartition calls fn for every split of the adversaries of c into
// (higher, lower), by increasing size of higher.
func ForEachPartition(m, c int, fn func(higher, lower []int)) {
	adversaries := Adversaries(m, c)
	k := len(adversaries)
	for size := 0; size <= k; size++ {
		for _, comb := range combin.Combinations(k, size) {
			inHigher := make([]bool, k)
			higher := make([]int, 0, size)
			for _, i := range comb {
				inHigher[i] = true
				higher = append(higher, adversaries[i])
			}
			lower := make([]int, 0, k-size)
			for i, d := range adversaries {
				if !inHigher[i] {
					lower = append(lower, d)
				}
			}
			fn(higher, lower)
		}
	}
}

// Adversaries lists the candidates other than c in increasing order.
func Adversaries(m, c int) []int {
	res := make([]int, 0, m-1)
	for d := 0; d < m; d++ {
		if d != c {
			res = append(res, d)
		}
	}
	return res
}

// RandomProfileFromRankings draws n independent rankings with RandomRanking.
func RandomProfileFromRankings(cul Culture, rng *rand.Rand, n int) *profile.Profile {
	counts := make(map[string]float64)
	for i := 0; i < n; i++ {
		counts[cul.RandomRanking(rng).Key()]++
	}
	return profile.FromCounts(cul.M(), counts)
}

// RandomProfileFromBordas draws n independent rankings with RandomBorda.
func RandomProfileFromBordas(cul Culture, rng *rand.Rand, n int) *profile.Profile {
	counts := make(map[string]float64)
	for i := 0; i < n; i++ {
		counts[ranking.RankingFromBorda(cul.RandomBorda(rng)).Key()]++
	}
	return profile.FromCounts(cul.M(), counts)
}

// AverageProfile weights every ranking by its probability in the culture.
func AverageProfile(cul Culture) *profile.Profile {
	m := cul.M()
	counts := make(map[string]float64)
	for _, perm := range combin.Permutations(m, m) {
		r := ranking.Ranking(perm)
		f, _ := cul.ProbaRanking(r).Float64()
		counts[r.Key()] = f
	}
	return profile.FromCounts(m, counts)
}

// factorial returns n! as a rational.
func factorial(n int) *big.Rat {
	return new(big.Rat).SetInt(new(big.Int).MulRange(1, int64(max(n, 1))))
}

// randomPermutation draws a uniform ranking.
func randomPermutation(rng *rand.Rand, m int) ranking.Ranking {
	return ranking.Ranking(rng.Perm(m))
}
