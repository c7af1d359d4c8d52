package aberration

import "errors"

// The error taxonomy of the aberration engine. All failures are detected
// synchronously and none are retried: an error from Init leaves the
// engine uninitialized, an error from Update is fatal to the run. Callers
// match with errors.Is.
var (
	// ErrConfiguration reports an invalid configuration: a bad mode
	// count, an unusable diameter policy, or a required field missing
	// while the aberration is enabled.
	ErrConfiguration = errors.New("aberration: invalid configuration")

	// ErrFileLoad reports that the coefficient file could not be read or
	// lacks the named variables.
	ErrFileLoad = errors.New("aberration: coefficient file load failed")

	// ErrShapeMismatch reports row/column count violations in the loaded
	// series.
	ErrShapeMismatch = errors.New("aberration: coefficient series shape mismatch")

	// ErrDecimation reports that the loop tick duration and the series
	// sampling period are incompatible: the aberration cannot be asked to
	// update faster than it was sampled.
	ErrDecimation = errors.New("aberration: loop tick incompatible with series step")

	// ErrIndexExhausted reports that the requested iteration maps past
	// the end of the coefficient series. The series must outlast the
	// simulation; holding the last row silently is deliberately rejected.
	ErrIndexExhausted = errors.New("aberration: coefficient series exhausted")
)
