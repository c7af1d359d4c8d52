package aberration

import (
	"errors"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"
	"gonum.org/v1/gonum/mat"

	"github.com/wfslab/abersim/hooking"
	"github.com/wfslab/abersim/pupil"
	"github.com/wfslab/abersim/series"
)

func newTarget(size int) Target {
	return Target{
		Mask:        pupil.Circular(size, size, 0.1),
		DiameterPix: size,
		Screen:      pupil.NewScreen(size),
	}
}

// rampSeries produces rows whose first coefficient equals the row index,
// the remaining columns a small fixed pattern, sampled every step seconds.
func rampSeries(rows, cols int, step float64) *series.Series {
	coeff := mat.NewDense(rows, cols, nil)
	time := make([]float64, rows)

	for i := 0; i < rows; i++ {
		coeff.Set(i, 0, float64(i))
		for j := 1; j < cols; j++ {
			coeff.Set(i, j, 0.1*float64(j))
		}
		time[i] = float64(i) * step
	}

	return &series.Series{Coeff: coeff, Time: time}
}

func screenPeak(s *pupil.Screen, size int) float64 {
	peak := 0.0
	for r := 0; r < size; r++ {
		for c := 0; c < size; c++ {
			peak = math.Max(peak, math.Abs(s.At(r, c)))
		}
	}

	return peak
}

type captureHook struct {
	items []TickDetail
}

func (h *captureHook) Func(ctx hooking.HookCtx) {
	if ctx.Pos != HookPosScreenApplied {
		return
	}

	h.items = append(h.items, ctx.Item.(TickDetail))
}

var _ = Describe("Engine", func() {
	var (
		mockCtrl *gomock.Controller
		loader   *MockLoader
		science  Target
		analytic Target
		engine   *Engine
		cfg      Config
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		loader = NewMockLoader(mockCtrl)
		science = newTarget(32)
		analytic = newTarget(16)
		engine = NewEngine(science, analytic, loader)
		cfg = validConfig()
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	expectLoad := func(s *series.Series, err error) {
		loader.EXPECT().
			Load(cfg.Path(), cfg.CoeffVar, cfg.TimeVar, cfg.MatrixVersion).
			Return(s, err)
	}

	It("reports no progress before the first update", func() {
		iter, row := engine.Progress()
		Expect(iter).To(Equal(-1))
		Expect(row).To(Equal(-1))
	})

	It("panics when updated before Init", func() {
		Expect(func() { _ = engine.Update(0) }).To(Panic())
	})

	Context("when disabled", func() {
		BeforeEach(func() {
			cfg.Enabled = false
			Expect(engine.Init(cfg, 8.0, 0.002)).To(Succeed())
		})

		It("does not load anything and ignores updates", func() {
			Expect(engine.Enabled()).To(BeFalse())

			Expect(engine.Update(0)).To(Succeed())
			Expect(engine.Update(1)).To(Succeed())

			Expect(screenPeak(science.Screen, 32)).To(BeZero())
			Expect(screenPeak(analytic.Screen, 16)).To(BeZero())
		})

		It("panics when initialized a second time", func() {
			Expect(func() { _ = engine.Init(cfg, 8.0, 0.002) }).To(Panic())
		})
	})

	Context("when initialization fails", func() {
		It("rejects an unreadable file", func() {
			expectLoad(nil, errors.New("no such file"))

			err := engine.Init(cfg, 8.0, 0.002)
			Expect(err).To(MatchError(ErrFileLoad))
		})

		It("rejects a series with too few coefficient columns", func() {
			expectLoad(rampSeries(5, 2, cfg.Step), nil)

			err := engine.Init(cfg, 8.0, 0.002)
			Expect(err).To(MatchError(ErrShapeMismatch))
		})

		It("rejects a series whose step disagrees with the configuration", func() {
			expectLoad(rampSeries(5, 4, 0.008), nil)

			err := engine.Init(cfg, 8.0, 0.002)
			Expect(err).To(MatchError(ErrDecimation))
		})

		It("rejects a loop tick that does not divide the step", func() {
			expectLoad(rampSeries(5, 4, cfg.Step), nil)

			err := engine.Init(cfg, 8.0, 0.003)
			Expect(err).To(MatchError(ErrDecimation))
		})

		It("rejects the telescope sentinel without a telescope diameter", func() {
			cfg.PupDiam = PupDiamTelescope

			err := engine.Init(cfg, 0, 0.002)
			Expect(err).To(MatchError(ErrConfiguration))
		})

		It("leaves the engine uninitialized", func() {
			expectLoad(nil, errors.New("no such file"))

			Expect(engine.Init(cfg, 8.0, 0.002)).ToNot(Succeed())

			Expect(engine.Enabled()).To(BeFalse())
			Expect(engine.Dec()).To(BeZero())
			Expect(engine.SeriesLen()).To(BeZero())
			Expect(func() { _ = engine.Update(0) }).To(Panic())
		})
	})

	It("resolves the telescope sentinel to the provided diameter", func() {
		cfg.PupDiam = PupDiamTelescope
		expectLoad(rampSeries(5, 4, cfg.Step), nil)

		Expect(engine.Init(cfg, 8.0, 0.002)).To(Succeed())

		Expect(engine.Enabled()).To(BeTrue())
		Expect(engine.Dec()).To(Equal(2))
		Expect(engine.SeriesLen()).To(Equal(5))
	})

	Context("when initialized with both paths included", func() {
		BeforeEach(func() {
			expectLoad(rampSeries(5, 4, cfg.Step), nil)
			Expect(engine.Init(cfg, 8.0, 0.002)).To(Succeed())
		})

		It("holds each sample row for dec iterations", func() {
			wantRows := []int{0, 0, 1, 1, 2}

			for iter, want := range wantRows {
				Expect(engine.Update(iter)).To(Succeed())

				gotIter, gotRow := engine.Progress()
				Expect(gotIter).To(Equal(iter))
				Expect(gotRow).To(Equal(want))
			}
		})

		It("contributes to both screens", func() {
			Expect(engine.Update(2)).To(Succeed())

			Expect(screenPeak(science.Screen, 32)).To(BeNumerically(">", 0))
			Expect(screenPeak(analytic.Screen, 16)).To(BeNumerically(">", 0))
		})

		It("adds the exact weighted sum of the modes", func() {
			row := []float64{-22.3, -6.1, 20.9, 45.9}
			engine.data = &series.Series{
				Coeff: mat.NewDense(1, 4, row),
				Time:  []float64{0},
			}

			Expect(engine.Update(0)).To(Succeed())

			for r := 0; r < 32; r++ {
				for c := 0; c < 32; c++ {
					want := 0.0
					for j := 1; j <= 4; j++ {
						want += row[j-1] * engine.scienceCube.Mode(j).At(r, c)
					}
					Expect(science.Screen.At(r, c)).To(
						BeNumerically("~", want, 1e-9),
						"pixel (%d,%d)", r, c)
				}
			}
		})

		It("fails the run once the series is exhausted", func() {
			for iter := 0; iter < 10; iter++ {
				Expect(engine.Update(iter)).To(Succeed())
			}

			err := engine.Update(10)
			Expect(err).To(MatchError(ErrIndexExhausted))
		})

		It("notifies hooks with the applied tick detail", func() {
			hook := &captureHook{}
			engine.AcceptHook(hook)

			Expect(engine.Update(2)).To(Succeed())

			Expect(hook.items).To(HaveLen(1))
			Expect(hook.items[0].Iteration).To(Equal(2))
			Expect(hook.items[0].Row).To(Equal(1))
			Expect(hook.items[0].ScienceRMS).To(BeNumerically(">", 0))
			Expect(hook.items[0].AnalyticRMS).To(BeNumerically(">", 0))
		})
	})

	DescribeTable("include paths select the touched screens",
		func(include IncludePath, wantScience, wantAnalytic bool) {
			cfg.Include = include
			expectLoad(rampSeries(5, 4, cfg.Step), nil)
			Expect(engine.Init(cfg, 8.0, 0.002)).To(Succeed())

			Expect(engine.Update(2)).To(Succeed())

			Expect(screenPeak(science.Screen, 32) > 0).To(Equal(wantScience))
			Expect(screenPeak(analytic.Screen, 16) > 0).To(Equal(wantAnalytic))
		},
		Entry("none", PathNone, false, false),
		Entry("science only", PathScience, true, false),
		Entry("analytic only", PathAnalytic, false, true),
		Entry("both", PathBoth, true, true),
	)

	It("accumulates repeated contributions additively", func() {
		cfg.NumModes = 1
		coeff := mat.NewDense(2, 1, []float64{7.5, 7.5})
		expectLoad(&series.Series{Coeff: coeff, Time: []float64{0, cfg.Step}}, nil)
		Expect(engine.Init(cfg, 8.0, 0.002)).To(Succeed())

		// Piston is exactly 1 inside the mask, so two applications of the
		// same row leave exactly twice the coefficient there.
		Expect(engine.Update(0)).To(Succeed())
		Expect(engine.Update(1)).To(Succeed())

		for r := 0; r < 32; r++ {
			for c := 0; c < 32; c++ {
				if science.Mask.Inside(r, c) {
					Expect(science.Screen.At(r, c)).To(Equal(15.0))
				} else {
					Expect(science.Screen.At(r, c)).To(BeZero())
				}
			}
		}
	})
})
