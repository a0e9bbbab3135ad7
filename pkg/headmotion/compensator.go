// Package headmotion compensates gaze estimates for head movement. A
// reference nose-region position is captured once the face has been seen
// steadily; afterwards the displacement of the live anchor from that
// reference is amplified and subtracted from every gaze point.
package headmotion

import (
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/teslashibe/go-gaze/pkg/gaze"
)

type observation struct {
	p gaze.Point
	t time.Time
}

// Compensator owns the nose reference. It is not safe for concurrent use;
// the owning session serialises calls.
type Compensator struct {
	gain            float64
	horizon         time.Duration
	minObservations int

	history   []observation
	reference gaze.Point
	hasRef    bool
}

// New creates a compensator from the pipeline config.
func New(cfg gaze.Config) *Compensator {
	return &Compensator{
		gain:            cfg.HeadCompensationGain,
		horizon:         cfg.AnchorHorizon,
		minObservations: cfg.AnchorMinObservations,
	}
}

// Compensate adjusts raw for head displacement. When ok is false (no face
// this tick) raw is returned unchanged and the history is left alone.
// Before a reference exists compensation is the identity.
func (c *Compensator) Compensate(raw gaze.Point, anchor gaze.Point, ok bool, now time.Time) gaze.Point {
	if !ok || !anchor.Valid() {
		return raw
	}

	c.observe(anchor, now)

	if !c.hasRef {
		return raw
	}

	displacement := anchor.Sub(c.reference)
	return raw.Sub(displacement.Scale(c.gain))
}

// observe records the anchor, expires old observations and fixes the
// reference on the first tick with enough history.
func (c *Compensator) observe(anchor gaze.Point, now time.Time) {
	c.history = append(c.history, observation{p: anchor, t: now})

	keep := c.history[:0]
	for _, o := range c.history {
		if now.Sub(o.t) < c.horizon {
			keep = append(keep, o)
		}
	}
	c.history = keep

	if c.hasRef || len(c.history) < c.minObservations {
		return
	}

	xs := make([]float64, len(c.history))
	ys := make([]float64, len(c.history))
	for i, o := range c.history {
		xs[i] = o.p.X
		ys[i] = o.p.Y
	}
	c.reference = gaze.Point{X: stat.Mean(xs, nil), Y: stat.Mean(ys, nil)}
	c.hasRef = true
}

// Reference returns the established nose reference.
func (c *Compensator) Reference() (gaze.Point, bool) {
	return c.reference, c.hasRef
}

// Observations returns the number of anchor observations in the history.
func (c *Compensator) Observations() int {
	return len(c.history)
}

// Reset clears the reference and the history so the next steady run of
// observations establishes a new one. Used when the user repositions.
func (c *Compensator) Reset() {
	c.history = nil
	c.reference = gaze.Point{}
	c.hasRef = false
}
