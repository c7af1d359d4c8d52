// Package pupil defines pupil-plane geometry: the boolean mask of
// illuminated pixels and the phase-screen buffers that aberration sources
// write into.
package pupil

import "log"

// A Mask is the boolean footprint of illuminated pixels on a square
// simulation grid, together with the physical scale of the grid. Masks are
// owned by the host simulation and are never mutated by the aberration
// code.
type Mask struct {
	size           int
	metersPerPixel float64
	inside         []bool
}

// NewMask creates an all-dark mask on a size x size grid.
func NewMask(size int, metersPerPixel float64) *Mask {
	if size <= 0 {
		log.Panic("mask size must be positive")
	}

	if metersPerPixel <= 0 {
		log.Panic("meters per pixel must be positive")
	}

	return &Mask{
		size:           size,
		metersPerPixel: metersPerPixel,
		inside:         make([]bool, size*size),
	}
}

// Circular creates a mask illuminated on a centered disk of diameterPix
// pixels. The disk center sits at the grid center ((size-1)/2 in both
// axes), matching the convention of a symmetric linspace over the grid.
func Circular(size, diameterPix int, metersPerPixel float64) *Mask {
	m := NewMask(size, metersPerPixel)

	c := float64(size-1) / 2
	r := float64(diameterPix) / 2

	for row := 0; row < size; row++ {
		for col := 0; col < size; col++ {
			dy := float64(row) - c
			dx := float64(col) - c
			if dx*dx+dy*dy <= r*r {
				m.inside[row*size+col] = true
			}
		}
	}

	return m
}

// Size returns the grid side length in pixels.
func (m *Mask) Size() int {
	return m.size
}

// MetersPerPixel returns the physical scale of the grid.
func (m *Mask) MetersPerPixel() float64 {
	return m.metersPerPixel
}

// Inside reports whether the pixel at (row, col) is illuminated.
func (m *Mask) Inside(row, col int) bool {
	return m.inside[row*m.size+col]
}

// Set marks the pixel at (row, col) as illuminated or dark.
func (m *Mask) Set(row, col int, illuminated bool) {
	m.inside[row*m.size+col] = illuminated
}

// Count returns the number of illuminated pixels.
func (m *Mask) Count() int {
	n := 0
	for _, in := range m.inside {
		if in {
			n++
		}
	}

	return n
}
