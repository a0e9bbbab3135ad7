// Package gaze defines the shared types of the gaze pipeline: points,
// rectangles, samples, events and the collaborator interfaces the pipeline
// stages depend on.
package gaze

import (
	"math"
	"time"
)

// Point is a position in screen pixels.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Valid reports whether both coordinates are finite.
func (p Point) Valid() bool {
	return !math.IsNaN(p.X) && !math.IsNaN(p.Y) && !math.IsInf(p.X, 0) && !math.IsInf(p.Y, 0)
}

// Sub returns p - q.
func (p Point) Sub(q Point) Point {
	return Point{X: p.X - q.X, Y: p.Y - q.Y}
}

// Scale returns p * k.
func (p Point) Scale(k float64) Point {
	return Point{X: p.X * k, Y: p.Y * k}
}

// Distance returns the euclidean distance between p and q.
func (p Point) Distance(q Point) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}

// Rect is an axis-aligned bounding rectangle in screen pixels.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"w"`
	Height float64 `json:"h"`
}

// RectAround returns a size×size square centred on c.
func RectAround(c Point, size float64) Rect {
	return Rect{X: c.X - size/2, Y: c.Y - size/2, Width: size, Height: size}
}

// Center returns the rectangle centre.
func (r Rect) Center() Point {
	return Point{X: r.X + r.Width/2, Y: r.Y + r.Height/2}
}

// Expand grows the rectangle by margin on every side.
func (r Rect) Expand(margin float64) Rect {
	return Rect{
		X:      r.X - margin,
		Y:      r.Y - margin,
		Width:  r.Width + 2*margin,
		Height: r.Height + 2*margin,
	}
}

// Contains reports whether p lies inside r, edges included.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.X <= r.X+r.Width &&
		p.Y >= r.Y && p.Y <= r.Y+r.Height
}

// Sample is a single timestamped gaze point. Samples are never mutated
// after creation.
type Sample struct {
	Point
	Time time.Time `json:"time"`
}

// StabilizedPoint is the weighted average of the recent sample window
// together with its per-axis dispersion (standard deviation).
type StabilizedPoint struct {
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	DispersionX float64 `json:"dispersion_x"`
	DispersionY float64 `json:"dispersion_y"`
}

// Point returns the averaged position.
func (s StabilizedPoint) Point() Point {
	return Point{X: s.X, Y: s.Y}
}

// Within reports whether both dispersions are strictly below tolerance.
func (s StabilizedPoint) Within(tolerance float64) bool {
	return s.DispersionX < tolerance && s.DispersionY < tolerance
}

// SampleKind tags a calibration sample recorded into the provider's trainer.
type SampleKind string

const (
	// SampleMove is a passive sample recorded while hovering a point.
	SampleMove SampleKind = "move"
	// SampleClick is a sample recorded by the confirming click.
	SampleClick SampleKind = "click"
)
