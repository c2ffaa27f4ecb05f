package asymptotic

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"actinvoting/domain/core"
	"actinvoting/internal/numeric"
	"actinvoting/internal/quadrature"
)

// HessianOfPAtZeta is the Hessian of P at zeta. Its diagonal is zero since P
// is multilinear.
func (s *Session[T]) HessianOfPAtZeta() (*mat.SymDense, error) {
	return s.hessP.get(func() (*mat.SymDense, error) {
		tau, err := s.tauShort()
		if err != nil {
			return nil, err
		}
		comp, _ := s.compiledPolynomial()
		h := mat.NewSymDense(len(tau), nil)
		comp.Hessian(h, zetaOf(tau))
		return h, nil
	})
}

// HessianOfKAtTau differentiates K directly: the covariance of the exponent
// vectors of P under the weights coef * exp(<exps, tau>) / P(zeta).
func (s *Session[T]) HessianOfKAtTau() (*mat.SymDense, error) {
	return s.hessK.get(func() (*mat.SymDense, error) {
		tau, err := s.tauShort()
		if err != nil {
			return nil, err
		}
		comp, _ := s.compiledPolynomial()
		h := mat.NewSymDense(len(tau), nil)
		comp.LogExpHessian(h, tau)
		return h, nil
	})
}

// HessianOfKFromHessianOfP rebuilds the Hessian of K at tau from the Hessian
// of P at zeta:
//
//	H_K = Z H_P Z / P(zeta) + diag(beta) - beta betaᵀ,  Z = diag(zeta).
//
// The identity uses grad K(tau) = beta, so it only holds at the saddle point.
func (s *Session[T]) HessianOfKFromHessianOfP() (*mat.SymDense, error) {
	return s.hessKFromP.get(func() (*mat.SymDense, error) {
		hp, err := s.HessianOfPAtZeta()
		if err != nil {
			return nil, err
		}
		pz, err := s.PAtZeta()
		if err != nil {
			return nil, err
		}
		tau, _ := s.tauShort()
		zeta := zetaOf(tau)
		k := len(tau)
		h := mat.NewSymDense(k, nil)
		for i := 0; i < k; i++ {
			for j := i; j < k; j++ {
				v := zeta[i]*hp.At(i, j)*zeta[j]/pz - s.betaShort[i]*s.betaShort[j]
				if i == j {
					v += s.betaShort[i]
				}
				h.SetSym(i, j, v)
			}
		}
		return h, nil
	})
}

func (s *Session[T]) cholesky() (*mat.Cholesky, error) {
	return s.chol.get(func() (*mat.Cholesky, error) {
		h, err := s.HessianOfKAtTau()
		if err != nil {
			return nil, err
		}
		var chol mat.Cholesky
		if !chol.Factorize(h) {
			return nil, core.NewCultureContractError("%s: Hessian of K at tau is not positive definite (det = %g)",
				s.cul, mat.Det(h))
		}
		return &chol, nil
	})
}

// DetHessianOfKAtTau is det H_K. A non-positive definite Hessian is a culture
// contract violation.
func (s *Session[T]) DetHessianOfKAtTau() (float64, error) {
	chol, err := s.cholesky()
	if err != nil {
		return 0, err
	}
	return chol.Det(), nil
}

// InverseHessianOfKAtTau is H_K⁻¹.
func (s *Session[T]) InverseHessianOfKAtTau() (*mat.SymDense, error) {
	return s.inverse.get(func() (*mat.SymDense, error) {
		chol, err := s.cholesky()
		if err != nil {
			return nil, err
		}
		var inv mat.SymDense
		if err := chol.InverseTo(&inv); err != nil {
			return nil, core.NewCultureContractError("%s: cannot invert the Hessian of K: %v", s.cul, err)
		}
		return &inv, nil
	})
}

// MatrixM is H_K⁻¹ restricted to the critical adversaries, nil if there is
// none.
func (s *Session[T]) MatrixM() (*mat.SymDense, error) {
	return s.matrixM.get(func() (*mat.SymDense, error) {
		cl, err := s.Classification()
		if err != nil {
			return nil, err
		}
		if len(cl.Critical) == 0 {
			return nil, nil
		}
		inv, err := s.InverseHessianOfKAtTau()
		if err != nil {
			return nil, err
		}
		k := len(cl.Critical)
		m := mat.NewSymDense(k, nil)
		for i, di := range cl.Critical {
			for j := i; j < k; j++ {
				m.SetSym(i, j, inv.At(s.coordinate(di), s.coordinate(cl.Critical[j])))
			}
		}
		return m, nil
	})
}

// GaussianIntegral is the integral of exp(-uᵀ M u / 2) over the positive
// orthant of the critical coordinates, exactly {1, 0} without critical
// adversaries.
func (s *Session[T]) GaussianIntegral() (quadrature.Estimate, error) {
	return s.integral.get(func() (quadrature.Estimate, error) {
		return s.orthantIntegral(nil)
	})
}

func (s *Session[T]) orthantIntegral(w quadrature.WeightFunc) (quadrature.Estimate, error) {
	m, err := s.MatrixM()
	if err != nil {
		return quadrature.Estimate{}, err
	}
	if m == nil && w == nil {
		return quadrature.Estimate{Value: 1}, nil
	}
	var sym mat.Symmetric
	if m != nil {
		sym = m
	}
	est, err := quadrature.Integrator{Nodes: s.opts.nodes}.HalfGaussian(sym, w)
	if err != nil {
		return quadrature.Estimate{}, err
	}
	s.log.Debug("orthant integral over %d critical coordinates: %g ± %g", len(s.critical()), est.Value, est.AbsError)
	return est, nil
}

func (s *Session[T]) critical() []int {
	cl, _ := s.Classification()
	return cl.Critical
}

// exactZetaShort converts the exact saddle point to the ring. Without one,
// exact queries fail with core.ErrPrecisionMismatch.
func (s *Session[T]) exactZetaShort() ([]T, error) {
	if s.opts.exactZeta == nil {
		return nil, fmt.Errorf("%w: exact queries need WithExactSaddlePoint", core.ErrPrecisionMismatch)
	}
	zeta := make([]T, 0, len(s.adversaries))
	for _, d := range s.adversaries {
		zeta = append(zeta, s.ring.FromRat(s.opts.exactZeta[d]))
	}
	return zeta, nil
}

// ExactPAtZeta is P(zeta) in the ring of the session.
func (s *Session[T]) ExactPAtZeta() (T, error) {
	zeta, err := s.exactZetaShort()
	if err != nil {
		return s.ring.Zero(), err
	}
	p, err := s.CharacteristicPolynomial()
	if err != nil {
		return s.ring.Zero(), err
	}
	return p.Eval(zeta), nil
}

// ExactHessianOfKAtTau applies the chain rule to K = log P(exp(t)) at the
// exact saddle point, in the ring of the session:
//
//	H_ij = zeta_i zeta_j P_ij / P + δ_ij g_i - g_i g_j,  g_i = zeta_i P_i / P.
func (s *Session[T]) ExactHessianOfKAtTau() (numeric.Matrix[T], error) {
	return s.exactHessK.get(func() (numeric.Matrix[T], error) {
		zeta, err := s.exactZetaShort()
		if err != nil {
			return nil, err
		}
		p, err := s.CharacteristicPolynomial()
		if err != nil {
			return nil, err
		}
		r := s.ring
		k := len(zeta)
		pz := p.Eval(zeta)
		g := make([]T, k)
		for i := 0; i < k; i++ {
			g[i] = r.Quo(r.Mul(zeta[i], p.Derivative(i).Eval(zeta)), pz)
		}
		h := numeric.NewMatrix(r, k)
		for i := 0; i < k; i++ {
			di := p.Derivative(i)
			for j := i; j < k; j++ {
				v := r.Quo(r.Mul(r.Mul(zeta[i], zeta[j]), di.Derivative(j).Eval(zeta)), pz)
				if i == j {
					v = r.Add(v, g[i])
				}
				v = r.Sub(v, r.Mul(g[i], g[j]))
				h[i][j], h[j][i] = v, v
			}
		}
		return h, nil
	})
}

// ExactDetHessianOfKAtTau is the determinant of ExactHessianOfKAtTau.
func (s *Session[T]) ExactDetHessianOfKAtTau() (T, error) {
	h, err := s.ExactHessianOfKAtTau()
	if err != nil {
		return s.ring.Zero(), err
	}
	det := numeric.Det(s.ring, h)
	if !(s.ring.Float64(det) > 0) {
		return det, core.NewCultureContractError("%s: exact determinant %s is not positive", s.cul, s.ring.Format(det))
	}
	return det, nil
}
