package aberration

import (
	"fmt"
	"path/filepath"

	"github.com/wfslab/abersim/series"
)

// IncludePath selects which pupil paths receive the aberration.
type IncludePath int

// Include path values, matching the integer configuration surface.
const (
	PathNone IncludePath = iota
	PathScience
	PathAnalytic
	PathBoth
)

// Science reports whether the science (target) pupil receives the
// aberration.
func (p IncludePath) Science() bool {
	return p == PathScience || p == PathBoth
}

// Analytic reports whether the analytic (wavefront-sensing) pupil
// receives the aberration.
func (p IncludePath) Analytic() bool {
	return p == PathAnalytic || p == PathBoth
}

func (p IncludePath) String() string {
	switch p {
	case PathNone:
		return "not included"
	case PathScience:
		return "science (target) path"
	case PathAnalytic:
		return "analytic (WFS) path"
	case PathBoth:
		return "science (target) and analytic (WFS) path"
	default:
		return fmt.Sprintf("IncludePath(%d)", int(p))
	}
}

// Pupil diameter sentinels for Config.PupDiam.
const (
	// PupDiamNative evaluates the basis at the pupil grids' native
	// extent, with no rescaling or truncation.
	PupDiamNative = -2.0

	// PupDiamTelescope substitutes the host telescope diameter passed to
	// Init.
	PupDiamTelescope = -1.0
)

// Config describes one aberration source. It is a plain immutable value:
// all host-dependent quantities (telescope diameter, loop tick duration)
// are passed explicitly into Engine.Init rather than looked up from
// simulation globals.
type Config struct {
	// Enabled switches the whole source. A disabled engine ignores every
	// other field and never touches the pupil buffers.
	Enabled bool

	// NumModes is the number of Zernike modes, >= 1.
	NumModes int

	// Include selects the pupil paths the aberration is applied to.
	Include IncludePath

	// FileDir and FileName locate the coefficient file.
	FileDir  string
	FileName string

	// MatrixVersion is the container format of the coefficient file.
	MatrixVersion series.Version

	// CoeffVar and TimeVar name the coefficient matrix and time vector
	// inside the file.
	CoeffVar string
	TimeVar  string

	// DiamData is the aperture diameter, in meters, the coefficient data
	// was recorded over. Must be positive.
	DiamData float64

	// PupDiam is the pupil disk diameter in meters, or one of the
	// PupDiamNative / PupDiamTelescope sentinels.
	PupDiam float64

	// Step is the sampling period of the coefficient series in seconds.
	Step float64
}

// Path returns the full path of the coefficient file.
func (c Config) Path() string {
	return filepath.Join(c.FileDir, c.FileName)
}

// Validate checks the configuration of an enabled source. A disabled
// configuration is always valid.
func (c Config) Validate() error {
	if !c.Enabled {
		return nil
	}

	if c.NumModes < 1 {
		return fmt.Errorf("%w: numModes must be >= 1, got %d",
			ErrConfiguration, c.NumModes)
	}

	if c.Include < PathNone || c.Include > PathBoth {
		return fmt.Errorf("%w: include path must be 0-3, got %d",
			ErrConfiguration, int(c.Include))
	}

	if c.FileName == "" {
		return fmt.Errorf("%w: coefficient file name is required",
			ErrConfiguration)
	}

	if c.CoeffVar == "" || c.TimeVar == "" {
		return fmt.Errorf("%w: coefficient and time variable names are required",
			ErrConfiguration)
	}

	if _, err := series.ParseVersion(string(c.MatrixVersion)); err != nil {
		return fmt.Errorf("%w: matrix version %q is not one of v4, v6, v7, v7.3",
			ErrConfiguration, c.MatrixVersion)
	}

	if c.DiamData <= 0 {
		return fmt.Errorf("%w: diamData must be positive, got %g",
			ErrConfiguration, c.DiamData)
	}

	if c.PupDiam <= 0 &&
		c.PupDiam != PupDiamNative && c.PupDiam != PupDiamTelescope {
		return fmt.Errorf("%w: pupDiam must be positive, -1, or -2, got %g",
			ErrConfiguration, c.PupDiam)
	}

	if c.Step <= 0 {
		return fmt.Errorf("%w: step must be positive, got %g s",
			ErrConfiguration, c.Step)
	}

	return nil
}
