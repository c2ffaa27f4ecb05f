package montecarlo

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strconv"

	"actinvoting/domain/core"
	"actinvoting/ports"
)

// Streams derives reproducible PCG generators from a base seed and a name.
type Streams struct{}

var _ ports.RNGPort = Streams{}

// SeededStream returns a generator for the named operation.
func (Streams) SeededStream(ctx context.Context, name string, seed uint64) (*rand.Rand, error) {
	return rand.New(rand.NewPCG(seed, nameSeed(name))), nil
}

// Stream returns the generator of one point (runKey, series, n). Two calls
// with the same arguments produce the same sequence.
func (Streams) Stream(ctx context.Context, runKey, series string, n int, baseSeed uint64) (*rand.Rand, error) {
	if n < 0 {
		return nil, core.NewInvalidInputError("n", fmt.Sprintf("%d voters", n))
	}
	return rand.New(rand.NewPCG(baseSeed, nameSeed(runKey+"|"+series+"|"+strconv.Itoa(n)))), nil
}

// nameSeed is the first 64 bits of the SHA-256 of name.
func nameSeed(name string) uint64 {
	v, _ := strconv.ParseUint(core.NewHash([]byte(name)).Short(), 16, 64)
	return v
}
