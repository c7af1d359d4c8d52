package zernike

import "math"

// radialCoeffs returns the polynomial coefficients of the Zernike radial
// polynomial R_n^m, indexed by power of rho. m must be the absolute
// azimuthal frequency, with n >= m and n-m even.
func radialCoeffs(n, m int) []float64 {
	coeffs := make([]float64, n+1)

	for s := 0; s <= (n-m)/2; s++ {
		c := factorial(n-s) /
			(factorial(s) * factorial((n+m)/2-s) * factorial((n-m)/2-s))
		if s%2 == 1 {
			c = -c
		}
		coeffs[n-2*s] = c
	}

	return coeffs
}

func factorial(n int) float64 {
	f := 1.0
	for i := 2; i <= n; i++ {
		f *= float64(i)
	}

	return f
}

func evalPoly(coeffs []float64, rho float64) float64 {
	v := 0.0
	for i := len(coeffs) - 1; i >= 0; i-- {
		v = v*rho + coeffs[i]
	}

	return v
}

// Eval evaluates the orthonormal Zernike polynomial with Noll index j at
// the polar point (rho, theta), rho normalized to the unit disk. The
// normalization makes each mode unit-RMS over the full disk, so
// Eval(1, ...) is the constant 1 and Eval(2, rho, theta) is
// 2*rho*cos(theta).
func Eval(j int, rho, theta float64) float64 {
	n, m := Noll(j)
	am := m
	if am < 0 {
		am = -am
	}

	r := evalPoly(radialCoeffs(n, am), rho)

	norm := math.Sqrt(float64(n + 1))
	if m != 0 {
		norm *= math.Sqrt2
	}

	switch {
	case m > 0:
		return norm * r * math.Cos(float64(am)*theta)
	case m < 0:
		return norm * r * math.Sin(float64(am)*theta)
	default:
		return norm * r
	}
}
