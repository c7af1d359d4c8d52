package series

import (
	"fmt"
	"math"
)

// SpacingTolerance bounds both the spread between the largest and
// smallest time step and the distance of the step/tick ratio from an
// integer.
const SpacingTolerance = 1e-10

// Validate checks the shape contract after a load: the time vector must
// have one entry per coefficient row, the coefficient matrix must carry
// at least numModes columns, and timestamps must not decrease.
func (s *Series) Validate(numModes int) error {
	rows, cols := s.Coeff.Dims()

	if rows == 0 {
		return fmt.Errorf("%w: coefficient matrix is empty", ErrShapeMismatch)
	}

	if len(s.Time) != rows {
		return fmt.Errorf(
			"%w: %d coefficient rows but %d timestamps",
			ErrShapeMismatch, rows, len(s.Time))
	}

	if cols < numModes {
		return fmt.Errorf(
			"%w: %d coefficient columns, need at least %d",
			ErrShapeMismatch, cols, numModes)
	}

	for i := 1; i < len(s.Time); i++ {
		if s.Time[i] < s.Time[i-1] {
			return fmt.Errorf(
				"%w: timestamp %d (%g s) precedes timestamp %d (%g s)",
				ErrSpacing, i, s.Time[i], i-1, s.Time[i-1])
		}
	}

	return nil
}

// Step returns the sampling period of the time vector in seconds. The
// vector must be equally spaced: the spread between the largest and
// smallest step must stay within tol (SpacingTolerance for tol <= 0).
// Series with fewer than two samples have no measurable step and are
// rejected.
func (s *Series) Step(tol float64) (float64, error) {
	if tol <= 0 {
		tol = SpacingTolerance
	}

	if len(s.Time) < 2 {
		return 0, fmt.Errorf(
			"%w: need at least 2 samples to measure the step, got %d",
			ErrSpacing, len(s.Time))
	}

	minStep := math.Inf(1)
	maxStep := math.Inf(-1)
	sum := 0.0

	for i := 1; i < len(s.Time); i++ {
		d := s.Time[i] - s.Time[i-1]
		minStep = math.Min(minStep, d)
		maxStep = math.Max(maxStep, d)
		sum += d
	}

	if maxStep-minStep > tol {
		return 0, fmt.Errorf(
			"%w: steps range from %g s to %g s",
			ErrSpacing, minStep, maxStep)
	}

	return sum / float64(len(s.Time)-1), nil
}
