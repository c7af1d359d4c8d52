package pupil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"
)

func TestCircularMask(t *testing.T) {
	m := Circular(8, 8, 0.5)

	assert.Equal(t, 8, m.Size())
	assert.Equal(t, 0.5, m.MetersPerPixel())

	// Center pixels are inside, corners outside.
	assert.True(t, m.Inside(3, 3))
	assert.True(t, m.Inside(4, 4))
	assert.False(t, m.Inside(0, 0))
	assert.False(t, m.Inside(7, 7))

	// A disk inscribed in the grid covers less than the full grid but
	// more than half of it.
	assert.Greater(t, m.Count(), 32)
	assert.Less(t, m.Count(), 64)
}

func TestCircularMaskIsSymmetric(t *testing.T) {
	m := Circular(16, 12, 1.0)

	for r := 0; r < 16; r++ {
		for c := 0; c < 16; c++ {
			assert.Equal(t, m.Inside(r, c), m.Inside(15-r, 15-c),
				"pixel (%d,%d)", r, c)
		}
	}
}

func TestMaskSet(t *testing.T) {
	m := NewMask(4, 1.0)
	assert.Equal(t, 0, m.Count())

	m.Set(1, 2, true)
	assert.True(t, m.Inside(1, 2))
	assert.Equal(t, 1, m.Count())

	m.Set(1, 2, false)
	assert.Equal(t, 0, m.Count())
}

func TestScreenAddAccumulates(t *testing.T) {
	s := NewScreen(2)

	d1 := mat.NewDense(2, 2, []float64{1, 2, 3, 4})
	d2 := mat.NewDense(2, 2, []float64{10, 20, 30, 40})

	s.Add(d1)
	s.Add(d2)

	assert.Equal(t, 11.0, s.At(0, 0))
	assert.Equal(t, 22.0, s.At(0, 1))
	assert.Equal(t, 33.0, s.At(1, 0))
	assert.Equal(t, 44.0, s.At(1, 1))
}

func TestScreenReset(t *testing.T) {
	s := NewScreen(2)
	s.Add(mat.NewDense(2, 2, []float64{1, 2, 3, 4}))

	s.Reset()

	for r := 0; r < 2; r++ {
		for c := 0; c < 2; c++ {
			assert.Equal(t, 0.0, s.At(r, c))
		}
	}
}

func TestScreenAddPanicsOnShapeMismatch(t *testing.T) {
	s := NewScreen(2)
	assert.Panics(t, func() { s.Add(mat.NewDense(3, 3, nil)) })
}
