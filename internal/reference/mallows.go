// Package reference holds closed-form asymptotic equivalents known for
// particular cultures, used to check the general saddle-point machinery.
package reference

import "math"

// MallowsThreeLast is the equivalent of the probability that candidate 2 is
// the Condorcet winner under the Mallows culture with pole [0, 1, 2] and
// phi = exp(-rho). Both adversaries are subcritical with
// zeta = (exp(-3 rho / 2), exp(-rho / 2)).
func MallowsThreeLast(n int, rho float64) float64 {
	e := math.Exp(-rho)
	zeta := [2]float64{math.Exp(-3 * rho / 2), math.Exp(-rho / 2)}
	gamma := 1 / ((1 + e) * (1 + e + e*e))
	pZeta := 2 * gamma * e * e * (1 + zeta[1] + e)
	det := 0.25 * zeta[1] * (1 + e) / math.Pow(1+zeta[1]+e, 2)

	half := math.Ceil(float64(n)/2) - 1
	product := (1 - zeta[0]) * math.Pow(zeta[0], half) * (1 - zeta[1]) * math.Pow(zeta[1], half)
	return math.Pow(pZeta, float64(n)) / (product * 2 * math.Pi * float64(n) * math.Sqrt(det))
}

// MallowsThreeFirst is the equivalent of the probability that candidate 0
// fails to be the Condorcet winner under the Mallows culture with pole
// [0, 1, 2] and phi = exp(-rho).
func MallowsThreeFirst(n int, rho float64) float64 {
	e := math.Exp(-rho)
	constant := math.Sqrt(2 / (math.Pi * float64(n)))
	numerator := math.Pow(2*e/(1+e), float64(n))
	denominator := (1 - e) * math.Exp(-rho*math.Floor(float64(n)/2))
	return constant * numerator / denominator
}
