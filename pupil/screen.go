package pupil

import (
	"log"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// A Screen is a pupil-plane phase screen: a square grid of optical
// path-length perturbations in nanometers. Screens are owned by the host
// simulation. Aberration sources contribute to a screen additively; they
// never replace its content, since several sources may write to the same
// buffer.
type Screen struct {
	data *mat.Dense
}

// NewScreen creates a zeroed size x size phase screen.
func NewScreen(size int) *Screen {
	if size <= 0 {
		log.Panic("screen size must be positive")
	}

	return &Screen{data: mat.NewDense(size, size, nil)}
}

// Size returns the grid side length in pixels.
func (s *Screen) Size() int {
	r, _ := s.data.Dims()
	return r
}

// Add accumulates delta into the screen in place. The delta must have the
// same dimensions as the screen.
func (s *Screen) Add(delta *mat.Dense) {
	sr, sc := s.data.Dims()
	dr, dc := delta.Dims()

	if sr != dr || sc != dc {
		log.Panicf("screen is %dx%d, delta is %dx%d", sr, sc, dr, dc)
	}

	floats.Add(s.data.RawMatrix().Data, delta.RawMatrix().Data)
}

// At returns the accumulated perturbation at (row, col), in nanometers.
func (s *Screen) At(row, col int) float64 {
	return s.data.At(row, col)
}

// Data exposes the underlying matrix. The host propagation code reads it
// directly; callers must not resize it.
func (s *Screen) Data() *mat.Dense {
	return s.data
}

// Reset zeroes the screen.
func (s *Screen) Reset() {
	d := s.data.RawMatrix().Data
	for i := range d {
		d[i] = 0
	}
}
