package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/wfslab/abersim/aberration"
	"github.com/wfslab/abersim/pupil"
	"github.com/wfslab/abersim/series"
	"github.com/wfslab/abersim/simulation"
)

var runFlags struct {
	iterations int
	tick       float64
	telDiam    float64

	scienceSize     int
	sciencePupilPix int
	analyticSize    int

	fileDir  string
	fileName string
	matVers  string
	coeffVar string
	timeVar  string
	numModes int
	include  int
	diamData float64
	pupDiam  float64
	step     float64

	output      string
	noRecord    bool
	noMonitor   bool
	monitorPort int
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a finite aberration-injection loop over circular pupils.",
	RunE:  runRun,
}

func init() {
	f := runCmd.Flags()

	f.IntVar(&runFlags.iterations, "iterations", 1000,
		"number of loop iterations")
	f.Float64Var(&runFlags.tick, "tick", 0.002,
		"loop tick duration in seconds")
	f.Float64Var(&runFlags.telDiam, "tel-diam", 8.0,
		"telescope diameter in meters")

	f.IntVar(&runFlags.scienceSize, "science-size", 128,
		"science pupil grid side length in pixels")
	f.IntVar(&runFlags.sciencePupilPix, "science-pupil-pix", 128,
		"science pupil diameter in pixels")
	f.IntVar(&runFlags.analyticSize, "analytic-size", 144,
		"analytic pupil grid side length in pixels")

	f.StringVar(&runFlags.fileDir, "file-dir",
		envOr("ABERSIM_FILE_DIR", "."),
		"directory of the coefficient file")
	f.StringVar(&runFlags.fileName, "file-name",
		envOr("ABERSIM_FILE_NAME", ""),
		"name of the coefficient file")
	f.StringVar(&runFlags.matVers, "mat-vers",
		envOr("ABERSIM_MAT_VERS", "v7"),
		"container version of the coefficient file (v4, v6, v7, v7.3)")
	f.StringVar(&runFlags.coeffVar, "var-name-coeff",
		envOr("ABERSIM_VAR_NAME_COEFF", "coeff"),
		"name of the coefficient matrix inside the file")
	f.StringVar(&runFlags.timeVar, "var-name-time",
		envOr("ABERSIM_VAR_NAME_TIME", "time"),
		"name of the time vector inside the file")
	f.IntVar(&runFlags.numModes, "num-zpol", 10,
		"number of Zernike modes")
	f.IntVar(&runFlags.include, "include-path", int(aberration.PathBoth),
		"pupil paths to include (0 none, 1 science, 2 analytic, 3 both)")
	f.Float64Var(&runFlags.diamData, "diam-data", 10.0,
		"aperture diameter the data was recorded over, in meters")
	f.Float64Var(&runFlags.pupDiam, "pup-diam", aberration.PupDiamNative,
		"pupil disk diameter in meters, -1 for the telescope diameter, "+
			"-2 for the native grid extent")
	f.Float64Var(&runFlags.step, "step", 0.004,
		"sampling period of the coefficient series in seconds")

	f.StringVar(&runFlags.output, "output", "",
		"output file name for the run recording")
	f.BoolVar(&runFlags.noRecord, "no-record", false,
		"disable per-tick sqlite recording")
	f.BoolVar(&runFlags.noMonitor, "no-monitor", false,
		"disable the monitoring server")
	f.IntVar(&runFlags.monitorPort, "monitor-port", 0,
		"port of the monitoring server (0 picks a random port)")

	rootCmd.AddCommand(runCmd)
}

func runRun(_ *cobra.Command, _ []string) error {
	metersPerPixel := runFlags.telDiam / float64(runFlags.sciencePupilPix)

	science := aberration.Target{
		Mask: pupil.Circular(
			runFlags.scienceSize, runFlags.sciencePupilPix, metersPerPixel),
		DiameterPix: runFlags.sciencePupilPix,
		Screen:      pupil.NewScreen(runFlags.scienceSize),
	}

	analytic := aberration.Target{
		Mask: pupil.Circular(
			runFlags.analyticSize, runFlags.sciencePupilPix, metersPerPixel),
		DiameterPix: runFlags.sciencePupilPix,
		Screen:      pupil.NewScreen(runFlags.analyticSize),
	}

	builder := simulation.MakeBuilder()
	if runFlags.noRecord {
		builder = builder.WithoutRecording()
	}
	if runFlags.noMonitor {
		builder = builder.WithoutMonitoring()
	}
	if runFlags.output != "" {
		builder = builder.WithOutputFileName(runFlags.output)
	}
	if runFlags.monitorPort > 0 {
		builder = builder.WithMonitorPort(runFlags.monitorPort)
	}

	s := builder.Build(science, analytic)
	defer s.Terminate()

	cfg := aberration.Config{
		Enabled:       true,
		NumModes:      runFlags.numModes,
		Include:       aberration.IncludePath(runFlags.include),
		FileDir:       runFlags.fileDir,
		FileName:      runFlags.fileName,
		MatrixVersion: series.Version(runFlags.matVers),
		CoeffVar:      runFlags.coeffVar,
		TimeVar:       runFlags.timeVar,
		DiamData:      runFlags.diamData,
		PupDiam:       runFlags.pupDiam,
		Step:          runFlags.step,
	}

	if err := s.Init(cfg, runFlags.telDiam, runFlags.tick); err != nil {
		return err
	}

	if err := s.Run(runFlags.iterations); err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "Run %s finished after %d iterations.\n",
		s.ID(), runFlags.iterations)

	return nil
}

func envOr(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}

	return fallback
}
