// Package replay drives a gaze server's provider socket from a recorded
// trace or a synthetic fixation, standing in for the browser page.
package replay

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/teslashibe/go-gaze/pkg/gaze"
)

// Frame is one line of a JSONL trace. Exactly one of Point/Anchor (a
// prediction) or Pointer is meaningful per frame.
type Frame struct {
	OffsetMs int64       `json:"t_ms"`
	Point    *gaze.Point `json:"point,omitempty"`
	Anchor   *gaze.Point `json:"anchor,omitempty"`
	Pointer  *Pointer    `json:"pointer,omitempty"`
}

// Pointer is a recorded pointer event
type Pointer struct {
	Action gaze.SampleKind `json:"action"`
	X      float64         `json:"x"`
	Y      float64         `json:"y"`
}

// Offset returns the frame time relative to the start of the trace
func (f Frame) Offset() time.Duration {
	return time.Duration(f.OffsetMs) * time.Millisecond
}

// ReadTrace parses a JSONL trace. Blank lines are skipped; offsets must not
// go backwards.
func ReadTrace(r io.Reader) ([]Frame, error) {
	var frames []Frame
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		if len(sc.Bytes()) == 0 {
			continue
		}
		var f Frame
		if err := json.Unmarshal(sc.Bytes(), &f); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if n := len(frames); n > 0 && f.OffsetMs < frames[n-1].OffsetMs {
			return nil, fmt.Errorf("line %d: offset %dms before previous frame", line, f.OffsetMs)
		}
		frames = append(frames, f)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read trace: %w", err)
	}
	return frames, nil
}

// WriteTrace writes frames as JSONL
func WriteTrace(w io.Writer, frames []Frame) error {
	enc := json.NewEncoder(w)
	for _, f := range frames {
		if err := enc.Encode(f); err != nil {
			return err
		}
	}
	return nil
}

// Fixation describes a synthetic gaze fixation
type Fixation struct {
	Center   gaze.Point
	Jitter   float64       // Radius of the circular jitter (px)
	Duration time.Duration // Total length
	Interval time.Duration // Time between predictions
	Anchor   *gaze.Point   // Constant head anchor; nil sends none
}

// DefaultFixation is a 3 s, 30 Hz fixation with 20 px jitter
func DefaultFixation(center gaze.Point) Fixation {
	return Fixation{
		Center:   center,
		Jitter:   20,
		Duration: 3 * time.Second,
		Interval: 33 * time.Millisecond,
	}
}

// Frames renders the fixation. The jitter walks a circle in 37 degree steps
// so the samples spread evenly around the centre.
func (fx Fixation) Frames() []Frame {
	if fx.Interval <= 0 || fx.Duration <= 0 {
		return nil
	}
	n := int(fx.Duration/fx.Interval) + 1
	frames := make([]Frame, 0, n)
	for i := 0; i < n; i++ {
		angle := float64(i) * 37 * math.Pi / 180
		p := gaze.Point{
			X: fx.Center.X + fx.Jitter*math.Cos(angle),
			Y: fx.Center.Y + fx.Jitter*math.Sin(angle),
		}
		f := Frame{
			OffsetMs: (time.Duration(i) * fx.Interval).Milliseconds(),
			Point:    &p,
		}
		if fx.Anchor != nil {
			a := *fx.Anchor
			f.Anchor = &a
		}
		frames = append(frames, f)
	}
	return frames
}
