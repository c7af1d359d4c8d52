package zernike

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/wfslab/abersim/pupil"
)

// Diameter sentinels understood by Build. A positive diameter selects the
// explicit-diameter regime.
const (
	// NativeDiameter evaluates the basis on the mask's native grid extent,
	// with no rescaling and no truncation.
	NativeDiameter = -2.0

	// TelescopeDiameter is resolved by the caller to the host telescope
	// diameter before Build is invoked. Build itself rejects it.
	TelescopeDiameter = -1.0
)

// ErrConfiguration is returned when the requested basis cannot be built:
// a non-positive mode count, an invalid diameter policy, or a policy that
// leaves no illuminated pixels.
var ErrConfiguration = errors.New("zernike: invalid basis configuration")

// A Cube is an immutable, ordered basis of Zernike modes evaluated on a
// pupil mask. Mode j (1-based, Noll order) is zero outside the mask and
// unit-RMS over the illuminated area, so a coefficient in nanometers
// scales physical wavefront error directly.
type Cube struct {
	mask  *pupil.Mask
	modes []*mat.Dense
}

// NumModes returns the number of modes in the cube.
func (c *Cube) NumModes() int {
	return len(c.modes)
}

// Size returns the grid side length in pixels.
func (c *Cube) Size() int {
	return c.mask.Size()
}

// Mask returns the pupil mask the cube was built on.
func (c *Cube) Mask() *pupil.Mask {
	return c.mask
}

// Mode returns the 2D array of mode j (1-based, Noll order). The returned
// matrix is shared; callers must not mutate it.
func (c *Cube) Mode(j int) *mat.Dense {
	return c.modes[j-1]
}

// DataDiskPixels converts a physical diameter to its size in pixels on a
// pupil grid of nativeDiameterPix pixels spanning pupDiam meters, rounded
// to the next even pixel count below.
func DataDiskPixels(nativeDiameterPix int, pupDiam, diam float64) int {
	scale := pupDiam / float64(nativeDiameterPix)
	return int(math.Ceil(math.Floor(diam/scale)/2) * 2)
}

// Build evaluates numModes Zernike modes over the illuminated pixels of
// mask and returns them as a Cube.
//
// The diameter policy selects the disk the polynomials are normalized to:
//
//   - pupDiam == NativeDiameter: the unit disk spans the mask's grid
//     extent; diamData is ignored and nothing is truncated.
//   - pupDiam > 0: the pupil of nativeDiameterPix pixels is pupDiam
//     meters wide, and the unit disk is the diamData-meter disk of the
//     recorded aberration data. pupDiam must be smaller than diamData,
//     and the data disk must cover the grid. Illuminated pixels outside
//     the pupDiam disk are forced to zero.
//
// The TelescopeDiameter sentinel must be resolved by the caller.
func Build(
	mask *pupil.Mask,
	nativeDiameterPix int,
	numModes int,
	diamData, pupDiam float64,
) (*Cube, error) {
	if numModes < 1 {
		return nil, fmt.Errorf("%w: numModes must be >= 1, got %d",
			ErrConfiguration, numModes)
	}

	size := mask.Size()

	// gridExtent is the side length, in pixels, of the conceptual square
	// grid whose inscribed disk is the unit disk. The mask grid sits
	// centered inside it.
	var gridExtent int

	// truncRadius is the pixel radius beyond which illuminated pixels are
	// zeroed. Zero means no truncation.
	var truncRadius float64

	switch {
	case pupDiam == NativeDiameter:
		gridExtent = size

	case pupDiam > 0:
		if pupDiam >= diamData {
			return nil, fmt.Errorf(
				"%w: pupil diameter %g m must be smaller than data diameter %g m",
				ErrConfiguration, pupDiam, diamData)
		}

		dataPix := DataDiskPixels(nativeDiameterPix, pupDiam, diamData)
		if dataPix < size {
			return nil, fmt.Errorf(
				"%w: aberration data disk (%d px) does not cover the %d px grid",
				ErrConfiguration, dataPix, size)
		}

		gridExtent = dataPix
		truncRadius = float64(nativeDiameterPix) / 2

	default:
		return nil, fmt.Errorf(
			"%w: pupil diameter must be positive or the native-diameter sentinel, got %g",
			ErrConfiguration, pupDiam)
	}

	if gridExtent < 2 {
		return nil, fmt.Errorf("%w: grid extent %d px is too small",
			ErrConfiguration, gridExtent)
	}

	offset := float64(gridExtent-size) / 2
	center := float64(size-1) / 2

	// keep marks the pixels that survive mask and truncation; every mode
	// is normalized over exactly this area.
	keep := make([]bool, size*size)
	nKeep := 0

	for row := 0; row < size; row++ {
		for col := 0; col < size; col++ {
			if !mask.Inside(row, col) {
				continue
			}

			if truncRadius > 0 {
				dx := float64(col) - center
				dy := float64(row) - center
				if math.Hypot(dx, dy) > truncRadius {
					continue
				}
			}

			keep[row*size+col] = true
			nKeep++
		}
	}

	if nKeep == 0 {
		return nil, fmt.Errorf("%w: no illuminated pixels after truncation",
			ErrConfiguration)
	}

	cube := &Cube{
		mask:  mask,
		modes: make([]*mat.Dense, numModes),
	}

	for j := 1; j <= numModes; j++ {
		mode := mat.NewDense(size, size, nil)

		for row := 0; row < size; row++ {
			for col := 0; col < size; col++ {
				if !keep[row*size+col] {
					continue
				}

				x := -1 + 2*(float64(col)+offset)/float64(gridExtent-1)
				y := -1 + 2*(float64(row)+offset)/float64(gridExtent-1)
				rho := math.Hypot(x, y)
				theta := math.Atan2(y, x)

				mode.Set(row, col, Eval(j, rho, theta))
			}
		}

		normalizeRMS(mode, keep, nKeep)
		cube.modes[j-1] = mode
	}

	return cube, nil
}

// normalizeRMS rescales mode to unit RMS over the kept pixels. A constant
// mode (piston) has RMS exactly 1 and is left bit-identical.
func normalizeRMS(mode *mat.Dense, keep []bool, nKeep int) {
	data := mode.RawMatrix().Data

	sum := 0.0
	for i, k := range keep {
		if k {
			sum += data[i] * data[i]
		}
	}

	rms := math.Sqrt(sum / float64(nKeep))
	if rms == 0 || rms == 1 {
		return
	}

	inv := 1 / rms
	for i, k := range keep {
		if k {
			data[i] *= inv
		}
	}
}
