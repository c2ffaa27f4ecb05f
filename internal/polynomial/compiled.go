package polynomial

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Compiled is a float64 copy of a polynomial, built once for repeated
// evaluation by the optimizer.
type Compiled struct {
	nvars int
	exps  [][]int
	coefs []float64
	// logs[k] = log(coefs[k]); NaN for negative coefficients
	logs []float64
}

// Compile converts the coefficients of p to float64.
func (p *Polynomial[T]) Compile() *Compiled {
	terms := p.Terms()
	c := &Compiled{
		nvars: p.nvars,
		exps:  make([][]int, len(terms)),
		coefs: make([]float64, len(terms)),
		logs:  make([]float64, len(terms)),
	}
	for k, t := range terms {
		c.exps[k] = t.Exponents
		c.coefs[k] = p.ring.Float64(t.Coef)
		c.logs[k] = math.Log(c.coefs[k])
	}
	return c
}

func (c *Compiled) NVars() int { return c.nvars }

// NonNegative reports whether every coefficient is >= 0.
func (c *Compiled) NonNegative() bool {
	for _, v := range c.coefs {
		if v < 0 {
			return false
		}
	}
	return true
}

func (c *Compiled) monomial(k int, x []float64) float64 {
	v := c.coefs[k]
	for i, e := range c.exps[k] {
		if e > 0 {
			v *= math.Pow(x[i], float64(e))
		}
	}
	return v
}

// Eval evaluates the polynomial at x.
func (c *Compiled) Eval(x []float64) float64 {
	total := 0.0
	for k := range c.coefs {
		total += c.monomial(k, x)
	}
	return total
}

// Gradient stores the gradient at x in dst.
func (c *Compiled) Gradient(dst, x []float64) {
	for i := range dst {
		dst[i] = 0
	}
	for k := range c.coefs {
		for i, e := range c.exps[k] {
			if e == 0 {
				continue
			}
			v := c.coefs[k] * float64(e) * math.Pow(x[i], float64(e-1))
			for j, f := range c.exps[k] {
				if j != i && f > 0 {
					v *= math.Pow(x[j], float64(f))
				}
			}
			dst[i] += v
		}
	}
}

// Hessian stores the Hessian at x in dst, which must be NVars x NVars.
func (c *Compiled) Hessian(dst *mat.SymDense, x []float64) {
	n := c.nvars
	h := make([]float64, n*n)
	for k := range c.coefs {
		e := c.exps[k]
		for i := 0; i < n; i++ {
			if e[i] == 0 {
				continue
			}
			for j := i; j < n; j++ {
				var factor float64
				switch {
				case i == j && e[i] >= 2:
					factor = float64(e[i] * (e[i] - 1))
				case i != j && e[j] >= 1:
					factor = float64(e[i] * e[j])
				default:
					continue
				}
				v := c.coefs[k] * factor
				for l, f := range e {
					d := 0
					if l == i {
						d++
					}
					if l == j {
						d++
					}
					if f-d > 0 {
						v *= math.Pow(x[l], float64(f-d))
					}
				}
				h[i*n+j] += v
			}
		}
	}
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			dst.SetSym(i, j, h[i*n+j])
		}
	}
}

// logTerms fills dst[k] with log(coef_k) + <exps_k, t>.
func (c *Compiled) logTerms(dst, t []float64) {
	for k := range c.coefs {
		v := c.logs[k]
		for i, e := range c.exps[k] {
			v += float64(e) * t[i]
		}
		dst[k] = v
	}
}

// LogExp computes log P(exp(t)) with a log-sum-exp over the terms. It
// requires non-negative coefficients.
func (c *Compiled) LogExp(t []float64) float64 {
	if len(c.coefs) == 0 {
		return math.Inf(-1)
	}
	lt := make([]float64, len(c.coefs))
	c.logTerms(lt, t)
	return floats.LogSumExp(lt)
}

// LogExpGrad returns log P(exp(t)) and stores its gradient in grad. The
// gradient is the mean exponent vector under the weights coef_k exp(<exps_k, t>).
func (c *Compiled) LogExpGrad(grad, t []float64) float64 {
	value := c.LogExp(t)
	for i := range grad {
		grad[i] = 0
	}
	lt := make([]float64, len(c.coefs))
	c.logTerms(lt, t)
	for k, l := range lt {
		w := math.Exp(l - value)
		for i, e := range c.exps[k] {
			grad[i] += w * float64(e)
		}
	}
	return value
}

// LogExpHessian stores the Hessian of log P(exp(t)) in dst: the covariance
// of the exponent vector under the same weights as LogExpGrad.
func (c *Compiled) LogExpHessian(dst *mat.SymDense, t []float64) {
	n := c.nvars
	grad := make([]float64, n)
	value := c.LogExpGrad(grad, t)
	lt := make([]float64, len(c.coefs))
	c.logTerms(lt, t)
	h := make([]float64, n*n)
	for k, l := range lt {
		w := math.Exp(l - value)
		e := c.exps[k]
		for i := 0; i < n; i++ {
			for j := i; j < n; j++ {
				h[i*n+j] += w * float64(e[i]*e[j])
			}
		}
	}
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			dst.SetSym(i, j, h[i*n+j]-grad[i]*grad[j])
		}
	}
}
