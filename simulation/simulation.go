// Package simulation assembles an aberration engine with its recorder
// and monitor, and drives a finite host loop over it.
package simulation

import (
	"fmt"
	"os"

	"github.com/wfslab/abersim/aberration"
	"github.com/wfslab/abersim/monitoring"
	"github.com/wfslab/abersim/recording"
)

// A Simulation owns one finite, single-threaded run: the engine is
// initialized once and updated once per tick in iteration order. The
// first failing tick aborts the run.
type Simulation struct {
	id string

	engine   *aberration.Engine
	recorder recording.Recorder
	monitor  *monitoring.Monitor

	science  aberration.Target
	analytic aberration.Target
}

// ID returns the unique id of the run.
func (s *Simulation) ID() string {
	return s.id
}

// Engine returns the aberration engine of the run.
func (s *Simulation) Engine() *aberration.Engine {
	return s.engine
}

// Recorder returns the run recorder, or nil when recording is disabled.
func (s *Simulation) Recorder() recording.Recorder {
	return s.recorder
}

// Init initializes the engine and logs the source status the way an
// operator expects to see it before a run.
func (s *Simulation) Init(
	cfg aberration.Config,
	telescopeDiameter float64,
	loopTickDuration float64,
) error {
	if err := s.engine.Init(
		cfg, telescopeDiameter, loopTickDuration); err != nil {
		return err
	}

	s.logStatus(cfg)

	return nil
}

// Run drives the loop for the given number of iterations, calling the
// engine once per tick starting at iteration 0.
func (s *Simulation) Run(iterations int) error {
	if s.monitor != nil {
		s.monitor.RegisterEngine(s.engine, iterations)
		s.monitor.StartServer()
	}

	for i := 0; i < iterations; i++ {
		if err := s.engine.Update(i); err != nil {
			return fmt.Errorf("iteration %d: %w", i, err)
		}
	}

	return nil
}

// Terminate flushes and closes the run recorder.
func (s *Simulation) Terminate() {
	if s.recorder != nil {
		s.recorder.Close()
	}
}

func (s *Simulation) logStatus(cfg aberration.Config) {
	fmt.Fprintln(os.Stderr, "*-------------------------------")
	fmt.Fprintln(os.Stderr, "CUSTOM ZERNIKE ABERRATIONS")

	if !cfg.Enabled {
		fmt.Fprintln(os.Stderr, "status: disabled")
		fmt.Fprintln(os.Stderr, "*-------------------------------")
		return
	}

	fmt.Fprintln(os.Stderr, "status: enabled")
	fmt.Fprintf(os.Stderr, "source file: %s\n", cfg.Path())
	fmt.Fprintf(os.Stderr, "number of modes: %d\n", cfg.NumModes)
	fmt.Fprintf(os.Stderr, "inclusion: %s\n", cfg.Include)

	switch {
	case cfg.PupDiam > 0:
		fmt.Fprintf(os.Stderr, "pupil diameter: %g m\n", cfg.PupDiam)
	case cfg.PupDiam == aberration.PupDiamTelescope:
		fmt.Fprintln(os.Stderr, "pupil diameter: telescope diameter")
	default:
		fmt.Fprintln(os.Stderr, "pupil diameter: data fitted to simulation")
	}

	fmt.Fprintf(os.Stderr, "decimation: %d\n", s.engine.Dec())
	fmt.Fprintln(os.Stderr, "*-------------------------------")
}
