package aberration

import (
	"log"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/wfslab/abersim/pupil"
	"github.com/wfslab/abersim/zernike"
)

// Compose computes the phase-screen delta for one coefficient row: the
// elementwise sum of coefficientRow[j-1] * mode j over all modes of the
// cube. The result is in the units of the coefficients (nanometers) over
// the cube's pupil grid. The sum is exactly linear; no scaling or offset
// is applied.
func Compose(cube *zernike.Cube, coefficientRow []float64) *mat.Dense {
	if len(coefficientRow) != cube.NumModes() {
		log.Panicf("%d coefficients for a %d-mode basis",
			len(coefficientRow), cube.NumModes())
	}

	size := cube.Size()
	delta := mat.NewDense(size, size, nil)
	dst := delta.RawMatrix().Data

	for j := 1; j <= cube.NumModes(); j++ {
		floats.AddScaled(dst, coefficientRow[j-1], cube.Mode(j).RawMatrix().Data)
	}

	return delta
}

// Apply contributes delta to the given screens according to the include
// path. The deltas are added in place; screens are never overwritten,
// since other aberration sources may already have written to them. Nil
// deltas are skipped, and PathNone applies nothing.
func Apply(
	scienceDelta, analyticDelta *mat.Dense,
	science, analytic *pupil.Screen,
	include IncludePath,
) {
	if include.Science() && scienceDelta != nil {
		science.Add(scienceDelta)
	}

	if include.Analytic() && analyticDelta != nil {
		analytic.Add(analyticDelta)
	}
}
