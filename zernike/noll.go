// Package zernike evaluates orthonormal Zernike polynomials and builds
// mode bases on pupil masks.
package zernike

import "log"

// Noll maps the 1-based Noll index j to the radial order n and azimuthal
// frequency m of the corresponding Zernike polynomial. The sign of m
// encodes the trigonometric part: m > 0 is a cosine mode, m < 0 a sine
// mode, m == 0 rotationally symmetric.
//
// The ordering is Noll's convention: ascending n; within equal n,
// ascending |m|; even j takes the cosine term, odd j the sine term.
// j = 1 is piston, 2/3 tip and tilt, 4 defocus, and so on.
func Noll(j int) (n, m int) {
	if j < 1 {
		log.Panicf("Noll index must be >= 1, got %d", j)
	}

	n = 0
	for (n+1)*(n+2)/2 < j {
		n++
	}

	// 1-based position within the radial order. Orders with even n carry
	// |m| = 0, 2, 2, 4, 4, ...; odd n carries |m| = 1, 1, 3, 3, ...
	k := j - n*(n+1)/2

	var am int
	if n%2 == 0 {
		am = 2 * (k / 2)
	} else {
		am = 2*((k-1)/2) + 1
	}

	if am == 0 {
		return n, 0
	}

	if j%2 == 0 {
		return n, am
	}

	return n, -am
}
