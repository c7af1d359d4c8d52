// Package series models the pre-recorded time series of Zernike
// coefficients and the contract for loading it from a file.
package series

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Version identifies the on-disk container format of a coefficient file.
type Version string

// Supported container versions. They mirror the MAT-file level of the
// producing tooling.
const (
	V4  Version = "v4"
	V6  Version = "v6"
	V7  Version = "v7"
	V73 Version = "v7.3"
)

// ParseVersion validates a version string from the configuration surface.
func ParseVersion(s string) (Version, error) {
	switch Version(s) {
	case V4, V6, V7, V73:
		return Version(s), nil
	default:
		return "", fmt.Errorf("%w: unknown matrix version %q", ErrFileLoad, s)
	}
}

var (
	// ErrFileLoad is returned when the coefficient file cannot be read or
	// does not contain the named variables.
	ErrFileLoad = errors.New("series: cannot load coefficient file")

	// ErrShapeMismatch is returned when the loaded matrices violate the
	// shape contract: unequal row counts, or fewer coefficient columns
	// than requested modes.
	ErrShapeMismatch = errors.New("series: coefficient series shape mismatch")

	// ErrSpacing is returned when the time vector is not equally spaced
	// within tolerance, or decreases.
	ErrSpacing = errors.New("series: time series is not equally spaced")
)

// A Series holds the loaded coefficient time series. Coeff has one row
// per sample and one Noll-ordered column per mode, in nanometers. Time
// holds one non-decreasing timestamp in seconds per row. A Series is
// immutable once loaded.
type Series struct {
	Coeff *mat.Dense
	Time  []float64
}

// A Loader reads a coefficient series from a structured numeric
// container. coeffVar and timeVar name the two matrices inside the file.
// Implementations report unreadable files and missing variables by
// wrapping ErrFileLoad.
type Loader interface {
	Load(path, coeffVar, timeVar string, version Version) (*Series, error)
}

// Len returns the number of samples.
func (s *Series) Len() int {
	r, _ := s.Coeff.Dims()
	return r
}

// Row returns the first numModes coefficients of sample i, in nanometers.
// Columns beyond numModes are ignored by contract.
func (s *Series) Row(i, numModes int) []float64 {
	row := make([]float64, numModes)
	for j := 0; j < numModes; j++ {
		row[j] = s.Coeff.At(i, j)
	}

	return row
}
