// Package smoothing turns the raw gaze stream into a stabilized estimate:
// exponential smoothing, a time-bounded sample window, and a weighted
// moving average with a dispersion measure used as the stability gate.
package smoothing

import (
	"time"

	"github.com/teslashibe/go-gaze/pkg/gaze"
)

// Window holds the samples of the trailing horizon in arrival order.
type Window struct {
	horizon time.Duration
	samples []gaze.Sample
}

// NewWindow creates a window that keeps samples younger than horizon.
func NewWindow(horizon time.Duration) *Window {
	return &Window{horizon: horizon}
}

// Add appends s and drops every sample that is no longer younger than the
// horizon relative to now. Samples are assumed to arrive in order.
func (w *Window) Add(s gaze.Sample, now time.Time) {
	w.samples = append(w.samples, s)
	w.expire(now)
}

func (w *Window) expire(now time.Time) {
	keep := w.samples[:0]
	for _, s := range w.samples {
		if now.Sub(s.Time) < w.horizon {
			keep = append(keep, s)
		}
	}
	// Clear the tail so dropped samples don't linger in the backing array
	for i := len(keep); i < len(w.samples); i++ {
		w.samples[i] = gaze.Sample{}
	}
	w.samples = keep
}

// Len returns the number of buffered samples.
func (w *Window) Len() int {
	return len(w.samples)
}

// Last returns up to n of the most recent samples, oldest first.
func (w *Window) Last(n int) []gaze.Sample {
	if n > len(w.samples) {
		n = len(w.samples)
	}
	out := make([]gaze.Sample, n)
	copy(out, w.samples[len(w.samples)-n:])
	return out
}

// Clear drops every sample.
func (w *Window) Clear() {
	w.samples = nil
}
