package recording

import (
	"github.com/wfslab/abersim/aberration"
	"github.com/wfslab/abersim/hooking"
)

// TickTableName is the table tick records are written to.
const TickTableName = "aberration_ticks"

// TickRecord is the stored shape of one applied tick.
type TickRecord struct {
	Iteration   int
	Row         int
	ScienceRMS  float64
	AnalyticRMS float64
}

// A TickLogger is a hook that stores one record per applied aberration
// tick. Attach it to an engine with AcceptHook.
type TickLogger struct {
	recorder Recorder
}

// NewTickLogger creates a TickLogger writing to the given recorder and
// creates its table.
func NewTickLogger(recorder Recorder) *TickLogger {
	recorder.CreateTable(TickTableName, TickRecord{})

	return &TickLogger{recorder: recorder}
}

// Func records ScreenApplied hook invocations.
func (l *TickLogger) Func(ctx hooking.HookCtx) {
	if ctx.Pos != aberration.HookPosScreenApplied {
		return
	}

	detail := ctx.Item.(aberration.TickDetail)

	l.recorder.InsertData(TickTableName, TickRecord{
		Iteration:   detail.Iteration,
		Row:         detail.Row,
		ScienceRMS:  detail.ScienceRMS,
		AnalyticRMS: detail.AnalyticRMS,
	})
}
