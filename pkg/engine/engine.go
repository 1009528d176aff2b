// Package engine assembles the pipeline, configuration, and frame tracing
// into a renderer an embedder drives once per frame.
package engine

import (
	"time"

	"go.uber.org/zap"

	"github.com/loom-ui/loom/pkg/config"
	"github.com/loom-ui/loom/pkg/core"
	"github.com/loom-ui/loom/pkg/diagnostics"
	"github.com/loom-ui/loom/pkg/graphics"
)

// Frame is the result of one RenderFrame call.
type Frame struct {
	// Layer is the composited root layer, nil when the tree is empty.
	Layer graphics.Layer
	// Size is the laid-out root size.
	Size graphics.Size
	// Changed reports whether any phase produced new output. An embedder
	// can skip compositing when nothing changed.
	Changed bool
}

// Engine owns a pipeline and records per-frame timings.
type Engine struct {
	owner  *core.PipelineOwner
	tracer *diagnostics.Tracer
	log    *zap.Logger
}

// New creates an engine from configuration. A nil config uses defaults;
// a nil logger disables logging.
func New(cfg *config.Config, log *zap.Logger) *Engine {
	if cfg == nil {
		cfg = config.Default()
	}
	defaults := config.Default()
	loaded := *cfg
	if loaded.Engine.MaxElements == 0 {
		loaded.Engine.MaxElements = defaults.Engine.MaxElements
	}
	if loaded.Trace.Samples == 0 {
		loaded.Trace.Samples = defaults.Trace.Samples
	}
	if loaded.Trace.SlowFrameMs == 0 {
		loaded.Trace.SlowFrameMs = defaults.Trace.SlowFrameMs
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{
		owner:  core.NewOwner(loaded.Engine.MaxElements),
		tracer: diagnostics.NewTracer(loaded.Trace.Samples, loaded.SlowFrame(), log),
		log:    log,
	}
}

// Owner returns the pipeline owner for tree mutation and dirty marking.
func (e *Engine) Owner() *core.PipelineOwner { return e.owner }

// Tracer returns the frame tracer.
func (e *Engine) Tracer() *diagnostics.Tracer { return e.tracer }

// RenderFrame runs one frame: flush build, flush layout under the given
// constraints, flush paint. Phase timings are recorded in the tracer.
// Contract violations and paint cycles abort the frame with an error;
// per-element failures have already been substituted with indicator
// layers and do not surface here.
func (e *Engine) RenderFrame(constraints graphics.Constraints) (Frame, error) {
	frameStart := time.Now()

	built := e.owner.FlushBuild()
	buildDone := time.Now()

	size, laidOut, err := e.owner.FlushLayout(constraints)
	if err != nil {
		e.log.Error("layout aborted", zap.Error(err))
		return Frame{}, err
	}
	layoutDone := time.Now()

	layer, painted, err := e.owner.FlushPaint()
	if err != nil {
		e.log.Error("paint aborted", zap.Error(err))
		return Frame{}, err
	}
	paintDone := time.Now()

	frameDuration := paintDone.Sub(frameStart)
	e.tracer.Record(diagnostics.FrameSample{
		Timestamp: frameStart.UnixMilli(),
		FrameMs:   durationToMillis(frameDuration),
		Phases: diagnostics.PhaseTimings{
			BuildMs:  durationToMillis(buildDone.Sub(frameStart)),
			LayoutMs: durationToMillis(layoutDone.Sub(buildDone)),
			PaintMs:  durationToMillis(paintDone.Sub(layoutDone)),
		},
		Counts: diagnostics.FrameCounts{
			Elements: e.owner.Tree().Count(),
		},
	}, frameDuration)

	return Frame{
		Layer:   layer,
		Size:    size,
		Changed: built || laidOut || painted,
	}, nil
}

func durationToMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
