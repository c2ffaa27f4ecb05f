package culture

import (
	"fmt"
	"math/big"

	"actinvoting/domain/core"
)

// ValidateCandidate checks the ProbaHighLow contract of cul for candidate c:
// probabilities over every (higher, lower) split sum to exactly 1, and
// non-partitions have probability 0.
func ValidateCandidate(cul Culture, c int) error {
	m := cul.M()
	if c < 0 || c >= m {
		return core.NewInvalidInputError("candidate", fmt.Sprintf("%d out of range for m=%d", c, m))
	}
	total := new(big.Rat)
	var failure error
	ForEachPartition(m, c, func(higher, lower []int) {
		p := cul.ProbaHighLow(c, higher, lower)
		if p.Sign() < 0 && failure == nil {
			failure = core.NewCultureContractError("%s: negative probability %s for higher=%v lower=%v",
				cul, p.RatString(), higher, lower)
		}
		total.Add(total, p)
	})
	if failure != nil {
		return failure
	}
	if total.Cmp(big.NewRat(1, 1)) != 0 {
		return core.NewCultureContractError("%s: high/low probabilities of candidate %d sum to %s",
			cul, c, total.RatString())
	}
	if m > 1 {
		// c listed among its own adversaries
		adv := Adversaries(m, c)
		if p := cul.ProbaHighLow(c, append([]int{c}, adv[1:]...), nil); p.Sign() != 0 {
			return core.NewCultureContractError("%s: non-partition has probability %s", cul, p.RatString())
		}
	}
	return nil
}

// Validate runs ValidateCandidate on every candidate.
func Validate(cul Culture) error {
	for c := 0; c < cul.M(); c++ {
		if err := ValidateCandidate(cul, c); err != nil {
			return err
		}
	}
	return nil
}
