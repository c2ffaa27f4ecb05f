// Package numeric abstracts the scalar type of a computation: float64 for
// fast approximate results, *big.Rat for exact rational results.
package numeric

import (
	"math"
	"math/big"
	"strconv"

	"gonum.org/v1/gonum/floats/scalar"
)

// Ring is the set of operations the polynomial and matrix code needs.
// Implementations never mutate their arguments.
type Ring[T any] interface {
	Name() string
	Zero() T
	One() T
	FromInt(i int64) T
	FromRat(r *big.Rat) T
	FromFloat(f float64) T

	Add(a, b T) T
	Sub(a, b T) T
	Mul(a, b T) T
	Quo(a, b T) T
	Neg(a T) T

	IsZero(a T) bool
	// Equal is exact for rationals and tolerance-based for floats.
	Equal(a, b T) bool
	Float64(a T) float64
	Format(a T) string
}

// DefaultFloatTolerance is used by Float.Equal when Tol is zero.
const DefaultFloatTolerance = 1e-12

// Float is the float64 ring.
type Float struct {
	// Tol is the absolute and relative tolerance of Equal.
	Tol float64
}

func (Float) Name() string               { return "float" }
func (Float) Zero() float64              { return 0 }
func (Float) One() float64               { return 1 }
func (Float) FromInt(i int64) float64    { return float64(i) }
func (Float) FromFloat(f float64) float64 { return f }

func (Float) FromRat(r *big.Rat) float64 {
	f, _ := r.Float64()
	return f
}

func (Float) Add(a, b float64) float64 { return a + b }
func (Float) Sub(a, b float64) float64 { return a - b }
func (Float) Mul(a, b float64) float64 { return a * b }
func (Float) Quo(a, b float64) float64 { return a / b }
func (Float) Neg(a float64) float64    { return -a }
func (Float) IsZero(a float64) bool    { return a == 0 }

func (f Float) Equal(a, b float64) bool {
	tol := f.Tol
	if tol == 0 {
		tol = DefaultFloatTolerance
	}
	return scalar.EqualWithinAbsOrRel(a, b, tol, tol)
}

func (Float) Float64(a float64) float64 { return a }
func (Float) Format(a float64) string   { return strconv.FormatFloat(a, 'g', -1, 64) }

// Exact is the ring of arbitrary precision rationals.
type Exact struct{}

func (Exact) Name() string            { return "exact" }
func (Exact) Zero() *big.Rat          { return new(big.Rat) }
func (Exact) One() *big.Rat           { return big.NewRat(1, 1) }
func (Exact) FromInt(i int64) *big.Rat { return big.NewRat(i, 1) }
func (Exact) FromRat(r *big.Rat) *big.Rat {
	return new(big.Rat).Set(r)
}

// FromFloat converts f exactly; it panics on infinities and NaN.
func (Exact) FromFloat(f float64) *big.Rat {
	if math.IsInf(f, 0) || math.IsNaN(f) {
		panic("numeric: non-finite float has no rational value")
	}
	return new(big.Rat).SetFloat64(f)
}

func (Exact) Add(a, b *big.Rat) *big.Rat { return new(big.Rat).Add(a, b) }
func (Exact) Sub(a, b *big.Rat) *big.Rat { return new(big.Rat).Sub(a, b) }
func (Exact) Mul(a, b *big.Rat) *big.Rat { return new(big.Rat).Mul(a, b) }
func (Exact) Quo(a, b *big.Rat) *big.Rat { return new(big.Rat).Quo(a, b) }
func (Exact) Neg(a *big.Rat) *big.Rat    { return new(big.Rat).Neg(a) }
func (Exact) IsZero(a *big.Rat) bool     { return a.Sign() == 0 }
func (Exact) Equal(a, b *big.Rat) bool   { return a.Cmp(b) == 0 }

func (Exact) Float64(a *big.Rat) float64 {
	f, _ := a.Float64()
	return f
}

func (Exact) Format(a *big.Rat) string { return a.RatString() }

// Pow computes x^k for k >= 0 by repeated squaring.
func Pow[T any](r Ring[T], x T, k int) T {
	res := r.One()
	for ; k > 0; k >>= 1 {
		if k&1 == 1 {
			res = r.Mul(res, x)
		}
		x = r.Mul(x, x)
	}
	return res
}

// Sum adds the values of xs.
func Sum[T any](r Ring[T], xs []T) T {
	total := r.Zero()
	for _, x := range xs {
		total = r.Add(total, x)
	}
	return total
}
