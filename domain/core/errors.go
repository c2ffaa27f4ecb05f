package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Limitations of the asymptotic formula
	ErrUnsupportedCase = errors.New("unsupported case: supercritical adversaries")

	// The culture does not behave like a probability distribution
	ErrCultureContract = errors.New("culture contract violation")

	// Numerical failures
	ErrNonConvergence     = errors.New("saddle-point search did not converge")
	ErrInvalidSaddlePoint = errors.New("supplied saddle point is not stationary")

	// Exact results requested from a numerically located saddle point
	ErrPrecisionMismatch = errors.New("precision mismatch")

	ErrInvalidInput = errors.New("invalid input")
)

// Error constructors with context
func NewUnsupportedCaseError(supercritical []int) error {
	return fmt.Errorf("%w: candidates %v", ErrUnsupportedCase, supercritical)
}

func NewCultureContractError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrCultureContract, fmt.Sprintf(format, args...))
}

func NewInvalidInputError(field string, reason string) error {
	return fmt.Errorf("%w: %s: %s", ErrInvalidInput, field, reason)
}

// Error checking helpers
func IsUnsupportedCase(err error) bool {
	return errors.Is(err, ErrUnsupportedCase)
}

func IsCultureContract(err error) bool {
	return errors.Is(err, ErrCultureContract)
}

func IsNumericalError(err error) bool {
	return errors.Is(err, ErrNonConvergence) ||
		errors.Is(err, ErrInvalidSaddlePoint)
}

func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}
