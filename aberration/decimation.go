package aberration

import (
	"fmt"
	"math"
)

// ComputeDec derives the decimation factor between the coefficient
// series sampling period and the simulation loop tick: the number of
// consecutive loop iterations that share one coefficient row. Both
// durations are in seconds.
//
// The series must not be asked to update faster than it was sampled, so
// a tick longer than the step is rejected.
func ComputeDec(step, loopTickDuration float64) (int, error) {
	if step <= 0 || loopTickDuration <= 0 {
		return 0, fmt.Errorf(
			"%w: step (%g s) and tick (%g s) must be positive",
			ErrDecimation, step, loopTickDuration)
	}

	if loopTickDuration > step {
		return 0, fmt.Errorf(
			"%w: loop tick %g s is longer than the series step %g s",
			ErrDecimation, loopTickDuration, step)
	}

	dec := int(math.Round(step / loopTickDuration))
	if dec < 1 {
		return 0, fmt.Errorf(
			"%w: step %g s over tick %g s decimates below 1",
			ErrDecimation, step, loopTickDuration)
	}

	return dec, nil
}

// RowFor maps a loop iteration index to the coefficient series row that
// applies during it. The mapping is a step-hold: row floor(iter/dec) is
// reused for dec consecutive iterations before advancing, matching one
// phase-screen update per dec propagation steps.
//
// A row at or beyond seriesLength is an ErrIndexExhausted: the series
// must outlast the simulation, and the final row is never silently held.
func RowFor(iterationIndex, dec, seriesLength int) (int, error) {
	if iterationIndex < 0 {
		return 0, fmt.Errorf("%w: negative iteration index %d",
			ErrIndexExhausted, iterationIndex)
	}

	if dec < 1 {
		return 0, fmt.Errorf("%w: decimation factor %d is below 1",
			ErrDecimation, dec)
	}

	row := iterationIndex / dec
	if row >= seriesLength {
		return 0, fmt.Errorf(
			"%w: iteration %d needs row %d but the series has %d rows",
			ErrIndexExhausted, iterationIndex, row, seriesLength)
	}

	return row, nil
}
