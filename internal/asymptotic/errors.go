package asymptotic

import (
	"fmt"

	"actinvoting/domain/core"
)

// NonConvergenceError reports a saddle-point search that did not reach a
// stationary point. It matches core.ErrNonConvergence with errors.Is.
type NonConvergenceError struct {
	LastIterate []float64
	// Objective is psi at LastIterate.
	Objective float64
	// GradNorm is the infinity norm of the gradient of psi at LastIterate.
	GradNorm float64
	Status   string
	Cause    error
}

func (e *NonConvergenceError) Error() string {
	msg := fmt.Sprintf("%v: status %s, psi=%g, |grad psi|=%g at t=%v",
		core.ErrNonConvergence, e.Status, e.Objective, e.GradNorm, e.LastIterate)
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *NonConvergenceError) Unwrap() []error {
	if e.Cause == nil {
		return []error{core.ErrNonConvergence}
	}
	return []error{core.ErrNonConvergence, e.Cause}
}
