package ranking

import (
	"fmt"
	"strings"
)

// Ranking lists candidates from most to least preferred.
// E.g. [0, 2, 1, 3] is the preference 0 > 2 > 1 > 3.
type Ranking []int

// Borda gives, for each candidate, the number of candidates ranked below it.
// E.g. [3, 1, 2, 0] is the preference 0 > 2 > 1 > 3.
type Borda []int

// Identity returns the ranking [0, 1, ..., m-1].
func Identity(m int) Ranking {
	r := make(Ranking, m)
	for i := range r {
		r[i] = i
	}
	return r
}

// BordaFromRanking converts a ranking to its Borda vector.
func BordaFromRanking(r Ranking) Borda {
	m := len(r)
	b := make(Borda, m)
	for position, candidate := range r {
		b[candidate] = m - 1 - position
	}
	return b
}

// RankingFromBorda converts a Borda vector to the ranking it encodes.
func RankingFromBorda(b Borda) Ranking {
	m := len(b)
	r := make(Ranking, m)
	for candidate, score := range b {
		r[m-1-score] = candidate
	}
	return r
}

// KendallTauIDRanking is the swap distance between r and the identity ranking.
func KendallTauIDRanking(r Ranking) int {
	distance := 0
	for i := 0; i < len(r); i++ {
		for j := i + 1; j < len(r); j++ {
			if r[i] > r[j] {
				distance++
			}
		}
	}
	return distance
}

// KendallTauIDBorda is the swap distance between b and the identity Borda vector [m-1, ..., 0].
func KendallTauIDBorda(b Borda) int {
	distance := 0
	for i := 0; i < len(b); i++ {
		for j := i + 1; j < len(b); j++ {
			if b[i] < b[j] {
				distance++
			}
		}
	}
	return distance
}

// IsPermutation reports whether v is a permutation of 0..len(v)-1.
func IsPermutation(v []int) bool {
	seen := make([]bool, len(v))
	for _, x := range v {
		if x < 0 || x >= len(v) || seen[x] {
			return false
		}
		seen[x] = true
	}
	return true
}

// Key returns a compact map key for the ranking.
func (r Ranking) Key() string { return key(r) }

// Key returns a compact map key for the Borda vector.
func (b Borda) Key() string { return key(b) }

// Equal reports whether both rankings are identical.
func (r Ranking) Equal(other Ranking) bool { return equal(r, other) }

// Equal reports whether both Borda vectors are identical.
func (b Borda) Equal(other Borda) bool { return equal(b, other) }

func (r Ranking) String() string { return tuple(r) }

func (b Borda) String() string { return tuple(b) }

// FromKey decodes a key produced by Ranking.Key or Borda.Key.
func FromKey(k string) []int {
	v := make([]int, len(k))
	for i := 0; i < len(k); i++ {
		v[i] = int(k[i])
	}
	return v
}

func key(v []int) string {
	buf := make([]byte, len(v))
	for i, x := range v {
		buf[i] = byte(x)
	}
	return string(buf)
}

func equal(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func tuple(v []int) string {
	parts := make([]string, len(v))
	for i, x := range v {
		parts[i] = fmt.Sprint(x)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}
