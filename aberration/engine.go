// Package aberration injects a pre-recorded, time-varying Zernike
// aberration into the pupil phase screens of a host simulation loop.
package aberration

import (
	"errors"
	"fmt"
	"log"
	"math"
	"sync/atomic"

	"gonum.org/v1/gonum/mat"

	"github.com/wfslab/abersim/hooking"
	"github.com/wfslab/abersim/pupil"
	"github.com/wfslab/abersim/series"
	"github.com/wfslab/abersim/zernike"
)

// HookPosScreenApplied triggers after an Update has contributed to the
// pupil screens. The hook item is a TickDetail.
var HookPosScreenApplied = &hooking.HookPos{Name: "ScreenApplied"}

// TickDetail describes one applied tick for observers.
type TickDetail struct {
	Iteration   int
	Row         int
	ScienceRMS  float64
	AnalyticRMS float64
}

// A Target is one pupil path owned by the host: its mask, the pupil
// diameter in pixels on that grid, and the phase-screen buffer the
// aberration contributes to.
type Target struct {
	Mask        *pupil.Mask
	DiameterPix int
	Screen      *pupil.Screen
}

type state int

const (
	stateUninitialized state = iota
	stateReady
	stateDisabled
)

// Engine owns the one-time initialization of an aberration source and
// its per-tick application. The host calls Init exactly once, then
// Update once per loop tick with a strictly increasing iteration index
// starting at 0. The engine is single-threaded by contract; only the
// progress counters may be read concurrently.
type Engine struct {
	hooking.HookableBase

	loader   series.Loader
	science  Target
	analytic Target

	state state
	cfg   Config
	dec   int

	scienceCube  *zernike.Cube
	analyticCube *zernike.Cube
	data         *series.Series

	lastIteration atomic.Int64
	lastRow       atomic.Int64
}

// NewEngine creates an engine for the two host-owned pupil targets. The
// loader is only invoked during Init.
func NewEngine(science, analytic Target, loader series.Loader) *Engine {
	e := &Engine{
		loader:   loader,
		science:  science,
		analytic: analytic,
	}

	e.lastIteration.Store(-1)
	e.lastRow.Store(-1)

	return e
}

// Init builds the mode bases for both pupils, loads and validates the
// coefficient series, and derives the decimation factor. A disabled
// configuration moves the engine to its terminal disabled state, where
// Update is a no-op for the rest of the run.
//
// Any failure aborts initialization entirely: no partial state is
// retained and the engine stays uninitialized.
func (e *Engine) Init(
	cfg Config,
	telescopeDiameter float64,
	loopTickDuration float64,
) error {
	if e.state != stateUninitialized {
		log.Panic("aberration engine initialized twice")
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	if !cfg.Enabled {
		e.cfg = cfg
		e.state = stateDisabled
		return nil
	}

	pupDiam := cfg.PupDiam
	if pupDiam == PupDiamTelescope {
		if telescopeDiameter <= 0 {
			return fmt.Errorf(
				"%w: telescope diameter must be positive to resolve pupDiam=-1, got %g",
				ErrConfiguration, telescopeDiameter)
		}
		pupDiam = telescopeDiameter
	}

	scienceCube, err := zernike.Build(e.science.Mask, e.science.DiameterPix,
		cfg.NumModes, cfg.DiamData, pupDiam)
	if err != nil {
		return fmt.Errorf("%w: science pupil: %v", ErrConfiguration, err)
	}

	analyticCube, err := zernike.Build(e.analytic.Mask, e.analytic.DiameterPix,
		cfg.NumModes, cfg.DiamData, pupDiam)
	if err != nil {
		return fmt.Errorf("%w: analytic pupil: %v", ErrConfiguration, err)
	}

	data, err := e.loader.Load(
		cfg.Path(), cfg.CoeffVar, cfg.TimeVar, cfg.MatrixVersion)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrFileLoad, err)
	}

	if err := e.validateSeries(data, cfg); err != nil {
		return err
	}

	dec, err := ComputeDec(cfg.Step, loopTickDuration)
	if err != nil {
		return err
	}

	ratio := cfg.Step / loopTickDuration
	if math.Abs(ratio-math.Round(ratio)) > 1e-9 {
		return fmt.Errorf(
			"%w: step %g s is not an integer multiple of the loop tick %g s",
			ErrDecimation, cfg.Step, loopTickDuration)
	}

	e.cfg = cfg
	e.scienceCube = scienceCube
	e.analyticCube = analyticCube
	e.data = data
	e.dec = dec
	e.state = stateReady

	return nil
}

func (e *Engine) validateSeries(data *series.Series, cfg Config) error {
	if err := data.Validate(cfg.NumModes); err != nil {
		if errors.Is(err, series.ErrShapeMismatch) {
			return fmt.Errorf("%w: %v", ErrShapeMismatch, err)
		}
		return fmt.Errorf("%w: %v", ErrDecimation, err)
	}

	step, err := data.Step(series.SpacingTolerance)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDecimation, err)
	}

	if math.Abs(step-cfg.Step) > series.SpacingTolerance {
		return fmt.Errorf(
			"%w: configured step %g s does not match series step %g s",
			ErrDecimation, cfg.Step, step)
	}

	return nil
}

// Update applies the aberration sample for the given loop iteration to
// the included pupil screens. It is a no-op for a disabled engine. An
// exhausted series is fatal: the run must abort rather than silently
// degrade.
func (e *Engine) Update(iterationIndex int) error {
	switch e.state {
	case stateDisabled:
		return nil
	case stateUninitialized:
		log.Panic("aberration engine updated before Init")
	}

	row, err := RowFor(iterationIndex, e.dec, e.data.Len())
	if err != nil {
		return err
	}

	coeff := e.data.Row(row, e.cfg.NumModes)

	var scienceDelta, analyticDelta *mat.Dense
	if e.cfg.Include.Science() {
		scienceDelta = Compose(e.scienceCube, coeff)
	}
	if e.cfg.Include.Analytic() {
		analyticDelta = Compose(e.analyticCube, coeff)
	}

	Apply(scienceDelta, analyticDelta,
		e.science.Screen, e.analytic.Screen, e.cfg.Include)

	e.lastIteration.Store(int64(iterationIndex))
	e.lastRow.Store(int64(row))

	if e.NumHooks() > 0 {
		e.InvokeHook(hooking.HookCtx{
			Domain: e,
			Pos:    HookPosScreenApplied,
			Item: TickDetail{
				Iteration:   iterationIndex,
				Row:         row,
				ScienceRMS:  gridRMS(scienceDelta),
				AnalyticRMS: gridRMS(analyticDelta),
			},
		})
	}

	return nil
}

// Enabled reports whether the engine will apply anything this run.
func (e *Engine) Enabled() bool {
	return e.state == stateReady
}

// Dec returns the decimation factor. Zero before a successful Init.
func (e *Engine) Dec() int {
	return e.dec
}

// SeriesLen returns the number of loaded coefficient rows. Zero before a
// successful Init.
func (e *Engine) SeriesLen() int {
	if e.data == nil {
		return 0
	}

	return e.data.Len()
}

// Config returns the configuration the engine was initialized with.
func (e *Engine) Config() Config {
	return e.cfg
}

// Progress returns the last applied iteration and series row. Both are
// -1 before the first Update. Safe to call concurrently with Update.
func (e *Engine) Progress() (iteration, row int) {
	return int(e.lastIteration.Load()), int(e.lastRow.Load())
}

func gridRMS(m *mat.Dense) float64 {
	if m == nil {
		return 0
	}

	data := m.RawMatrix().Data
	sum := 0.0
	for _, v := range data {
		sum += v * v
	}

	return math.Sqrt(sum / float64(len(data)))
}
