// Package diagnostics records per-frame timing samples for the pipeline.
package diagnostics

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	traceSamplesDefault   = 240
	defaultSlowFrameLimit = 16667 * time.Microsecond
)

// PhaseTimings captures time spent in each pipeline phase (ms).
type PhaseTimings struct {
	BuildMs  float64 `json:"buildMs"`
	LayoutMs float64 `json:"layoutMs"`
	PaintMs  float64 `json:"paintMs"`
}

// FrameCounts captures per-frame workload indicators.
type FrameCounts struct {
	Elements   int `json:"elements"`
	LaidOut    int `json:"laidOut"`
	Repainted  int `json:"repainted"`
	DirtyBuild int `json:"dirtyBuild"`
}

// FrameSample is a single frame trace sample.
type FrameSample struct {
	Timestamp int64        `json:"ts"`
	FrameMs   float64      `json:"frameMs"`
	Phases    PhaseTimings `json:"phases"`
	Counts    FrameCounts  `json:"counts"`
}

// Timeline is a chronological view of recent samples.
type Timeline struct {
	Samples       []FrameSample `json:"samples"`
	DroppedFrames int           `json:"droppedFrames"`
	ThresholdMs   float64       `json:"thresholdMs"`
}

// Tracer stores recent frame samples in a ring buffer and logs frames
// that exceed the slow frame threshold.
type Tracer struct {
	mu        sync.RWMutex
	samples   []FrameSample
	index     int
	count     int
	dropped   int
	threshold time.Duration
	log       *zap.Logger
}

// NewTracer creates a tracer holding the last capacity samples. Frames
// slower than threshold are counted as dropped and logged.
func NewTracer(capacity int, threshold time.Duration, log *zap.Logger) *Tracer {
	if capacity <= 0 {
		capacity = traceSamplesDefault
	}
	if threshold <= 0 {
		threshold = defaultSlowFrameLimit
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Tracer{
		samples:   make([]FrameSample, capacity),
		threshold: threshold,
		log:       log,
	}
}

// Capacity returns the ring buffer capacity.
func (t *Tracer) Capacity() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.samples)
}

// Threshold returns the slow frame threshold.
func (t *Tracer) Threshold() time.Duration {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.threshold
}

// Record stores a frame sample and logs it when the frame overran the
// threshold.
func (t *Tracer) Record(sample FrameSample, frameDuration time.Duration) {
	t.mu.Lock()
	t.samples[t.index] = sample
	t.index = (t.index + 1) % len(t.samples)
	if t.count < len(t.samples) {
		t.count++
	}
	slow := frameDuration > t.threshold
	if slow {
		t.dropped++
	}
	t.mu.Unlock()

	if slow {
		t.log.Warn("slow frame",
			zap.Float64("frame_ms", sample.FrameMs),
			zap.Float64("build_ms", sample.Phases.BuildMs),
			zap.Float64("layout_ms", sample.Phases.LayoutMs),
			zap.Float64("paint_ms", sample.Phases.PaintMs),
			zap.Int("elements", sample.Counts.Elements),
		)
	}
}

// Dropped returns the number of frames that overran the threshold.
func (t *Tracer) Dropped() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.dropped
}

// Snapshot returns a chronological copy of samples and stats.
func (t *Tracer) Snapshot() Timeline {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.count == 0 {
		return Timeline{ThresholdMs: durationToMillis(t.threshold)}
	}

	result := make([]FrameSample, t.count)
	if t.count < len(t.samples) {
		copy(result, t.samples[:t.count])
	} else {
		copy(result, t.samples[t.index:])
		copy(result[len(t.samples)-t.index:], t.samples[:t.index])
	}

	return Timeline{
		Samples:       result,
		DroppedFrames: t.dropped,
		ThresholdMs:   durationToMillis(t.threshold),
	}
}

func durationToMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
