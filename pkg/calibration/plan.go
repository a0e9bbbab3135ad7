// Package calibration drives the point-by-point calibration sequence that
// trains the gaze provider.
package calibration

import "github.com/teslashibe/go-gaze/pkg/gaze"

// PointsPerCycle is the number of canonical positions visited per cycle.
const PointsPerCycle = 9

var fractions = [3]float64{0.1, 0.5, 0.9}

var names = [PointsPerCycle]string{
	"top-left", "top-center", "top-right",
	"middle-left", "center", "middle-right",
	"bottom-left", "bottom-center", "bottom-right",
}

// Point is one entry of a calibration plan.
type Point struct {
	Index    int        `json:"index"`
	Cycle    int        `json:"cycle"`
	Name     string     `json:"name"`
	Position gaze.Point `json:"position"`
}

// CanonicalPositions returns the nine positions at 10%, 50% and 90% of the
// screen in row-major order.
func CanonicalPositions(width, height float64) []Point {
	out := make([]Point, 0, PointsPerCycle)
	for row, fy := range fractions {
		for col, fx := range fractions {
			out = append(out, Point{
				Index:    len(out),
				Name:     names[row*3+col],
				Position: gaze.Point{X: fx * width, Y: fy * height},
			})
		}
	}
	return out
}

// NewPlan repeats the canonical positions for the given number of cycles.
// Cycle is zero-based; Index runs over the whole plan.
func NewPlan(width, height float64, cycles int) []Point {
	base := CanonicalPositions(width, height)
	plan := make([]Point, 0, len(base)*max(cycles, 0))
	for c := 0; c < cycles; c++ {
		for _, p := range base {
			p.Index = len(plan)
			p.Cycle = c
			plan = append(plan, p)
		}
	}
	return plan
}
