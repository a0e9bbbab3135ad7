package smoothing

import (
	"math"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/teslashibe/go-gaze/pkg/gaze"
)

// Smoother is the smoothing pipeline. It is not safe for concurrent use;
// the owning session serialises calls.
type Smoother struct {
	alpha      float64
	ema        bool
	minSamples int
	windowSize int
	tolerance  float64

	window *Window

	// Exponential smoothing memory
	last    gaze.Point
	hasLast bool

	// Scratch buffers reused across ticks
	xs, ys, weights []float64
}

// New creates a smoother from the pipeline config.
func New(cfg gaze.Config) *Smoother {
	return &Smoother{
		alpha:      cfg.SmoothingAlpha,
		ema:        cfg.ExtraSmoothing,
		minSamples: cfg.MinSamples,
		windowSize: cfg.WindowSize,
		tolerance:  cfg.MovementTolerance,
		window:     NewWindow(cfg.SampleHorizon),
	}
}

// Smooth applies p' = prev + (raw - prev) * alpha and remembers the result.
// The first point after a reset passes through unchanged.
func (s *Smoother) Smooth(raw gaze.Point) gaze.Point {
	if !s.ema {
		return raw
	}
	if s.hasLast {
		raw = gaze.Point{
			X: s.last.X + (raw.X-s.last.X)*s.alpha,
			Y: s.last.Y + (raw.Y-s.last.Y)*s.alpha,
		}
	}
	s.last = raw
	s.hasLast = true
	return raw
}

// Push smooths p, buffers it at time now and returns the stabilized point.
// ok is false while fewer than MinSamples samples are buffered.
func (s *Smoother) Push(p gaze.Point, now time.Time) (sp gaze.StabilizedPoint, ok bool) {
	return s.Add(s.Smooth(p), now)
}

// Add buffers an already smoothed point. Callers that adjust the point
// between the two stages use Smooth then Add.
func (s *Smoother) Add(p gaze.Point, now time.Time) (sp gaze.StabilizedPoint, ok bool) {
	s.window.Add(gaze.Sample{Point: p, Time: now}, now)

	if s.window.Len() < s.minSamples {
		return gaze.StabilizedPoint{}, false
	}
	return s.stabilize(s.window.Last(s.windowSize)), true
}

// stabilize computes the linearly weighted mean (oldest weight 1, newest
// weight n) and the per-axis standard deviation about that mean.
func (s *Smoother) stabilize(samples []gaze.Sample) gaze.StabilizedPoint {
	s.xs = s.xs[:0]
	s.ys = s.ys[:0]
	s.weights = s.weights[:0]
	for i, smp := range samples {
		s.xs = append(s.xs, smp.X)
		s.ys = append(s.ys, smp.Y)
		s.weights = append(s.weights, float64(i+1))
	}

	meanX := stat.Mean(s.xs, s.weights)
	meanY := stat.Mean(s.ys, s.weights)

	return gaze.StabilizedPoint{
		X:           meanX,
		Y:           meanY,
		DispersionX: math.Sqrt(stat.MomentAbout(2, s.xs, meanX, nil)),
		DispersionY: math.Sqrt(stat.MomentAbout(2, s.ys, meanY, nil)),
	}
}

// IsStable applies the stability gate to sp.
func (s *Smoother) IsStable(sp gaze.StabilizedPoint) bool {
	return sp.Within(s.tolerance)
}

// Buffered returns the number of samples in the window.
func (s *Smoother) Buffered() int {
	return s.window.Len()
}

// Reset clears the sample window and the exponential smoothing memory.
func (s *Smoother) Reset() {
	s.window.Clear()
	s.hasLast = false
	s.last = gaze.Point{}
}
