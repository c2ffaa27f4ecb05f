// Package polynomial implements sparse multivariate polynomials with
// non-negative integer exponents over a numeric.Ring.
package polynomial

import (
	"encoding/binary"
	"fmt"
	"sort"
	"strings"

	"actinvoting/internal/numeric"
)

// Term is a coefficient times x_0^Exponents[0] * ... * x_{n-1}^Exponents[n-1].
type Term[T any] struct {
	Exponents []int
	Coef      T
}

// Polynomial is a sparse polynomial in NVars variables. Zero coefficients are
// never stored.
type Polynomial[T any] struct {
	ring  numeric.Ring[T]
	nvars int
	terms map[string]Term[T]
}

// New returns the zero polynomial in nvars variables.
func New[T any](ring numeric.Ring[T], nvars int) *Polynomial[T] {
	return &Polynomial[T]{ring: ring, nvars: nvars, terms: make(map[string]Term[T])}
}

// Constant returns the constant polynomial c.
func Constant[T any](ring numeric.Ring[T], nvars int, c T) *Polynomial[T] {
	p := New(ring, nvars)
	p.AddTerm(make([]int, nvars), c)
	return p
}

func (p *Polynomial[T]) NVars() int            { return p.nvars }
func (p *Polynomial[T]) Ring() numeric.Ring[T] { return p.ring }
func (p *Polynomial[T]) Len() int              { return len(p.terms) }

func key(exps []int) string {
	buf := make([]byte, 4*len(exps))
	for i, e := range exps {
		binary.BigEndian.PutUint32(buf[4*i:], uint32(e))
	}
	return string(buf)
}

// AddTerm adds coef * x^exps to p.
func (p *Polynomial[T]) AddTerm(exps []int, coef T) {
	if len(exps) != p.nvars {
		panic(fmt.Sprintf("polynomial: %d exponents for %d variables", len(exps), p.nvars))
	}
	for _, e := range exps {
		if e < 0 {
			panic("polynomial: negative exponent")
		}
	}
	p.add(key(exps), exps, coef)
}

func (p *Polynomial[T]) add(k string, exps []int, coef T) {
	if t, ok := p.terms[k]; ok {
		coef = p.ring.Add(t.Coef, coef)
		if p.ring.IsZero(coef) {
			delete(p.terms, k)
			return
		}
		p.terms[k] = Term[T]{Exponents: t.Exponents, Coef: coef}
		return
	}
	if p.ring.IsZero(coef) {
		return
	}
	p.terms[k] = Term[T]{Exponents: append([]int(nil), exps...), Coef: coef}
}

// Coefficient returns the coefficient of x^exps.
func (p *Polynomial[T]) Coefficient(exps []int) T {
	if t, ok := p.terms[key(exps)]; ok {
		return t.Coef
	}
	return p.ring.Zero()
}

// Terms lists the terms ordered by exponent vector.
func (p *Polynomial[T]) Terms() []Term[T] {
	keys := make([]string, 0, len(p.terms))
	for k := range p.terms {
		keys = append(keys, k)
	}
	// big-endian fixed width keys sort like their exponent vectors
	sort.Strings(keys)
	res := make([]Term[T], len(keys))
	for i, k := range keys {
		res[i] = p.terms[k]
	}
	return res
}

// Mul returns p * q.
func (p *Polynomial[T]) Mul(q *Polynomial[T]) *Polynomial[T] {
	return p.MulTruncated(q, nil)
}

// MulTruncated returns p * q without the monomials whose exponent of some
// variable i exceeds caps[i]. A nil caps keeps everything.
func (p *Polynomial[T]) MulTruncated(q *Polynomial[T], caps []int) *Polynomial[T] {
	if p.nvars != q.nvars {
		panic("polynomial: variable count mismatch")
	}
	res := New(p.ring, p.nvars)
	exps := make([]int, p.nvars)
	for _, a := range p.terms {
	next:
		for _, b := range q.terms {
			for i := range exps {
				exps[i] = a.Exponents[i] + b.Exponents[i]
				if caps != nil && exps[i] > caps[i] {
					continue next
				}
			}
			res.add(key(exps), exps, p.ring.Mul(a.Coef, b.Coef))
		}
	}
	return res
}

// PowTruncated returns p^n truncated like MulTruncated. Truncating after each
// product gives the same retained coefficients as truncating p^n, because
// exponents never decrease under multiplication.
//
// p is multiplied in n times, which stays cheap as long as p has few terms.
func (p *Polynomial[T]) PowTruncated(n int, caps []int) *Polynomial[T] {
	res := Constant(p.ring, p.nvars, p.ring.One())
	if caps != nil {
		for _, c := range caps {
			if c < 0 {
				return New(p.ring, p.nvars)
			}
		}
	}
	for i := 0; i < n; i++ {
		res = res.MulTruncated(p, caps)
	}
	return res
}

// Derivative returns the partial derivative with respect to variable i.
func (p *Polynomial[T]) Derivative(i int) *Polynomial[T] {
	res := New(p.ring, p.nvars)
	exps := make([]int, p.nvars)
	for _, t := range p.terms {
		if t.Exponents[i] == 0 {
			continue
		}
		copy(exps, t.Exponents)
		exps[i]--
		res.add(key(exps), exps, p.ring.Mul(p.ring.FromInt(int64(t.Exponents[i])), t.Coef))
	}
	return res
}

// Eval evaluates p at x.
func (p *Polynomial[T]) Eval(x []T) T {
	if len(x) != p.nvars {
		panic(fmt.Sprintf("polynomial: evaluation at %d values for %d variables", len(x), p.nvars))
	}
	total := p.ring.Zero()
	for _, t := range p.Terms() {
		v := t.Coef
		for i, e := range t.Exponents {
			if e > 0 {
				v = p.ring.Mul(v, numeric.Pow(p.ring, x[i], e))
			}
		}
		total = p.ring.Add(total, v)
	}
	return total
}

// SumCoefficients is p(1, ..., 1).
func (p *Polynomial[T]) SumCoefficients() T {
	total := p.ring.Zero()
	for _, t := range p.Terms() {
		total = p.ring.Add(total, t.Coef)
	}
	return total
}

// IsMultilinear reports whether no exponent exceeds 1.
func (p *Polynomial[T]) IsMultilinear() bool {
	for _, t := range p.terms {
		for _, e := range t.Exponents {
			if e > 1 {
				return false
			}
		}
	}
	return true
}

func (p *Polynomial[T]) String() string {
	terms := p.Terms()
	if len(terms) == 0 {
		return "0"
	}
	parts := make([]string, len(terms))
	for i, t := range terms {
		factors := []string{p.ring.Format(t.Coef)}
		for v, e := range t.Exponents {
			switch {
			case e == 1:
				factors = append(factors, fmt.Sprintf("x%d", v))
			case e > 1:
				factors = append(factors, fmt.Sprintf("x%d^%d", v, e))
			}
		}
		parts[i] = strings.Join(factors, "*")
	}
	return strings.Join(parts, " + ")
}
