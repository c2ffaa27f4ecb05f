// Package profile aggregates rankings into a weighted voting profile and
// computes majority relations on it.
package profile

import (
	"fmt"
	"math/big"
	"sort"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"

	"actinvoting/domain/ranking"
)

// Profile maps each distinct ranking to a weight. Weights are usually voter
// counts, but an average profile uses probabilities instead.
type Profile struct {
	m       int
	weights map[string]float64

	// derived, filled on first access
	unique    []ranking.Ranking
	bordas    []ranking.Borda
	uniqueW   []float64
	wmm       *mat.Dense
	majority  *mat.Dense
	condorcet []bool
}

// FromRankingWeights builds a profile from ranking -> weight pairs.
func FromRankingWeights(rankings []ranking.Ranking, weights []float64) (*Profile, error) {
	if len(rankings) != len(weights) {
		return nil, fmt.Errorf("profile: %d rankings but %d weights", len(rankings), len(weights))
	}
	if len(rankings) == 0 {
		return nil, fmt.Errorf("profile: at least one ranking is required")
	}
	p := &Profile{m: len(rankings[0]), weights: make(map[string]float64, len(rankings))}
	for i, r := range rankings {
		if len(r) != p.m || !ranking.IsPermutation(r) {
			return nil, fmt.Errorf("profile: invalid ranking %v", []int(r))
		}
		p.weights[r.Key()] += weights[i]
	}
	return p, nil
}

// FromUniqueRankings is FromRankingWeights for rankings known to be distinct.
func FromUniqueRankings(rankings []ranking.Ranking, weights []float64) (*Profile, error) {
	seen := make(map[string]bool, len(rankings))
	for _, r := range rankings {
		if seen[r.Key()] {
			return nil, fmt.Errorf("profile: duplicate ranking %v", []int(r))
		}
		seen[r.Key()] = true
	}
	return FromRankingWeights(rankings, weights)
}

// FromBordaWeights builds a profile from Borda vector -> weight pairs.
func FromBordaWeights(bordas []ranking.Borda, weights []float64) (*Profile, error) {
	rankings := make([]ranking.Ranking, len(bordas))
	for i, b := range bordas {
		if !ranking.IsPermutation(b) {
			return nil, fmt.Errorf("profile: invalid borda vector %v", []int(b))
		}
		rankings[i] = ranking.RankingFromBorda(b)
	}
	return FromRankingWeights(rankings, weights)
}

// FromRankings builds a profile with one voter per listed ranking.
func FromRankings(rankings []ranking.Ranking) (*Profile, error) {
	return FromRankingWeights(rankings, ones(len(rankings)))
}

// FromBordas builds a profile with one voter per listed Borda vector.
func FromBordas(bordas []ranking.Borda) (*Profile, error) {
	return FromBordaWeights(bordas, ones(len(bordas)))
}

// FromCounts builds a profile from a map keyed by ranking.Key.
func FromCounts(m int, counts map[string]float64) *Profile {
	w := make(map[string]float64, len(counts))
	for k, v := range counts {
		w[k] = v
	}
	return &Profile{m: m, weights: w}
}

func ones(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 1
	}
	return w
}

// M is the number of candidates.
func (p *Profile) M() int { return p.m }

// N is the total weight (number of voters).
func (p *Profile) N() float64 {
	total := 0.0
	for _, w := range p.weights {
		total += w
	}
	return total
}

// Weight returns the weight of a ranking, 0 if absent.
func (p *Profile) Weight(r ranking.Ranking) float64 {
	return p.weights[r.Key()]
}

func (p *Profile) sortUnique() {
	if p.unique != nil {
		return
	}
	keys := make([]string, 0, len(p.weights))
	for k := range p.weights {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	p.unique = make([]ranking.Ranking, len(keys))
	p.bordas = make([]ranking.Borda, len(keys))
	p.uniqueW = make([]float64, len(keys))
	for i, k := range keys {
		p.unique[i] = ranking.Ranking(ranking.FromKey(k))
		p.bordas[i] = ranking.BordaFromRanking(p.unique[i])
		p.uniqueW[i] = p.weights[k]
	}
}

// UniqueRankings lists the distinct rankings in lexicographic order.
func (p *Profile) UniqueRankings() []ranking.Ranking {
	p.sortUnique()
	return p.unique
}

// UniqueBordas lists the distinct rankings in Borda format, same order as UniqueRankings.
func (p *Profile) UniqueBordas() []ranking.Borda {
	p.sortUnique()
	return p.bordas
}

// Weights are aligned with UniqueRankings.
func (p *Profile) Weights() []float64 {
	p.sortUnique()
	return p.uniqueW
}

// WeightedMajorityMatrix has coefficient (c, d) equal to the weight of voters
// preferring c to d. The diagonal is 0.
func (p *Profile) WeightedMajorityMatrix() *mat.Dense {
	if p.wmm != nil {
		return p.wmm
	}
	p.sortUnique()
	wmm := mat.NewDense(p.m, p.m, nil)
	for i, b := range p.bordas {
		w := p.uniqueW[i]
		for c := 0; c < p.m; c++ {
			for d := 0; d < p.m; d++ {
				if b[c] > b[d] {
					wmm.Set(c, d, wmm.At(c, d)+w)
				}
			}
		}
	}
	p.wmm = wmm
	return wmm
}

// MajorityMatrix has coefficient (c, d) equal to 1 if c beats d, 0.5 on a tie
// and 0 on a defeat. The diagonal is 0.
func (p *Profile) MajorityMatrix() *mat.Dense {
	if p.majority != nil {
		return p.majority
	}
	wmm := p.WeightedMajorityMatrix()
	mm := mat.NewDense(p.m, p.m, nil)
	for c := 0; c < p.m; c++ {
		for d := 0; d < p.m; d++ {
			if c == d {
				continue
			}
			switch {
			case wmm.At(c, d) > wmm.At(d, c):
				mm.Set(c, d, 1)
			case wmm.At(c, d) == wmm.At(d, c):
				mm.Set(c, d, 0.5)
			}
		}
	}
	p.majority = mm
	return mm
}

// IsCondorcetWinner flags, for each candidate, whether it beats every other one.
func (p *Profile) IsCondorcetWinner() []bool {
	if p.condorcet != nil {
		return p.condorcet
	}
	p.condorcet = p.columnTest(func(v float64) bool { return v == 0 })
	return p.condorcet
}

// IsWeakCondorcetWinner flags candidates that beat or tie every other one.
func (p *Profile) IsWeakCondorcetWinner() []bool {
	return p.columnTest(func(v float64) bool { return v <= 0.5 })
}

// columnTest checks a predicate on every coefficient of each column of the majority matrix.
func (p *Profile) columnTest(ok func(float64) bool) []bool {
	mm := p.MajorityMatrix()
	res := make([]bool, p.m)
	for c := 0; c < p.m; c++ {
		res[c] = true
		for d := 0; d < p.m; d++ {
			if !ok(mm.At(d, c)) {
				res[c] = false
				break
			}
		}
	}
	return res
}

// CondorcetWinners has 0 or 1 element.
func (p *Profile) CondorcetWinners() []int { return indices(p.IsCondorcetWinner()) }

// CondorcetWinner returns the Condorcet winner, or -1 if there is none.
func (p *Profile) CondorcetWinner() int {
	winners := p.CondorcetWinners()
	if len(winners) == 0 {
		return -1
	}
	return winners[0]
}

// ExistsCondorcetWinner reports whether a Condorcet winner exists.
func (p *Profile) ExistsCondorcetWinner() bool { return len(p.CondorcetWinners()) > 0 }

// WeakCondorcetWinners lists all weak Condorcet winners.
func (p *Profile) WeakCondorcetWinners() []int { return indices(p.IsWeakCondorcetWinner()) }

// ExistsCondorcetOrder reports whether the majority relation is transitive.
func (p *Profile) ExistsCondorcetOrder() bool {
	mm := p.MajorityMatrix()
	seen := make(map[float64]bool, p.m)
	for c := 0; c < p.m; c++ {
		seen[mat.Sum(mm.RowView(c))] = true
	}
	return len(seen) == p.m
}

// IsAlphaWinner reports whether c is an alpha-winner: for every adversary d,
// the weight of voters ranking d above c is strictly below (1 - alpha[d]) * N.
// alpha[c] is not used.
func (p *Profile) IsAlphaWinner(c int, alpha []*big.Rat) bool {
	wmm := p.WeightedMajorityMatrix()
	n := new(big.Rat).SetFloat64(p.N())
	one := big.NewRat(1, 1)
	for d := 0; d < p.m; d++ {
		if d == c {
			continue
		}
		threshold := new(big.Rat).Sub(one, alpha[d])
		threshold.Mul(threshold, n)
		if new(big.Rat).SetFloat64(wmm.At(d, c)).Cmp(threshold) >= 0 {
			return false
		}
	}
	return true
}

func indices(flags []bool) []int {
	res := []int{}
	for i, f := range flags {
		if f {
			res = append(res, i)
		}
	}
	return res
}

func (p *Profile) String() string {
	rankings := p.UniqueRankings()
	weights := p.Weights()
	lines := make([]string, len(rankings))
	for i, r := range rankings {
		lines[i] = r.String() + ": " + strconv.FormatFloat(weights[i], 'g', -1, 64)
	}
	return "Profile(" + strings.Join(lines, ",\n        ") + ")"
}
