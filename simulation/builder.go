package simulation

import (
	"github.com/rs/xid"

	"github.com/wfslab/abersim/aberration"
	"github.com/wfslab/abersim/monitoring"
	"github.com/wfslab/abersim/recording"
	"github.com/wfslab/abersim/series"
	"github.com/wfslab/abersim/series/matfile"
)

// Builder can be used to build a simulation run.
type Builder struct {
	monitorOn      bool
	monitorPort    int
	recordOn       bool
	outputFileName string
	loader         series.Loader
}

// MakeBuilder creates a builder with monitoring and recording enabled
// and the MAT-file series loader.
func MakeBuilder() Builder {
	return Builder{
		monitorOn: true,
		recordOn:  true,
	}
}

// WithoutMonitoring disables the monitoring server.
func (b Builder) WithoutMonitoring() Builder {
	b.monitorOn = false
	return b
}

// WithMonitorPort sets the port number of the monitoring server.
func (b Builder) WithMonitorPort(port int) Builder {
	b.monitorPort = port
	return b
}

// WithoutRecording disables the per-tick sqlite recording.
func (b Builder) WithoutRecording() Builder {
	b.recordOn = false
	return b
}

// WithOutputFileName sets the recorder's output file name.
func (b Builder) WithOutputFileName(filename string) Builder {
	b.outputFileName = filename
	return b
}

// WithSeriesLoader replaces the default MAT-file loader.
func (b Builder) WithSeriesLoader(loader series.Loader) Builder {
	b.loader = loader
	return b
}

func (b Builder) parametersMustBeValid() {
	if !b.monitorOn && b.monitorPort != 0 {
		panic("monitor port cannot be set when monitoring is disabled")
	}

	if !b.recordOn && b.outputFileName != "" {
		panic("output file name cannot be set when recording is disabled")
	}
}

// Build assembles a simulation run over the two host pupil targets.
func (b Builder) Build(science, analytic aberration.Target) *Simulation {
	b.parametersMustBeValid()

	s := &Simulation{
		id:       xid.New().String(),
		science:  science,
		analytic: analytic,
	}

	loader := b.loader
	if loader == nil {
		loader = matfile.New()
	}

	s.engine = aberration.NewEngine(science, analytic, loader)

	if b.recordOn {
		outputPath := b.outputFileName
		if outputPath == "" {
			outputPath = "abersim_run_" + s.id
		}

		s.recorder = recording.New(outputPath)
		s.engine.AcceptHook(recording.NewTickLogger(s.recorder))
	}

	if b.monitorOn {
		s.monitor = monitoring.NewMonitor()
		if b.monitorPort > 0 {
			s.monitor.WithPortNumber(b.monitorPort)
		}
	}

	return s
}
