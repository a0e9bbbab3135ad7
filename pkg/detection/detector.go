// Package detection provides local face detection with gocv, used as a
// head anchor source when the provider does not report one.
package detection

import "github.com/teslashibe/go-gaze/pkg/gaze"

// YuNet landmark order.
const (
	RightEye = iota
	LeftEye
	NoseTip
	RightMouth
	LeftMouth

	NumLandmarks
)

// Detection represents a detected face
type Detection struct {
	X, Y       float64 // Top-left position (0-1 normalized)
	W, H       float64 // Width and height (0-1 normalized)
	Confidence float64 // Detection confidence (0-1)

	// Landmarks are normalized like the box, indexed by RightEye..LeftMouth
	Landmarks [NumLandmarks]gaze.Point
}

// Area returns the area of the bounding box
func (d Detection) Area() float64 {
	return d.W * d.H
}

// NoseAnchor returns the centroid of the nose tip and both eyes, scaled to a
// frame of width x height pixels. The triangle moves with the head but not
// with the eyes' gaze direction.
func (d Detection) NoseAnchor(width, height float64) gaze.Point {
	var sx, sy float64
	for _, i := range []int{RightEye, LeftEye, NoseTip} {
		sx += d.Landmarks[i].X
		sy += d.Landmarks[i].Y
	}
	return gaze.Point{X: sx / 3 * width, Y: sy / 3 * height}
}

// Config holds detector configuration
type Config struct {
	ModelPath        string  // Path to ONNX model
	ConfidenceThresh float64 // Minimum confidence (default 0.5)
	InputWidth       int     // Model input width
	InputHeight      int     // Model input height
}

// DefaultConfig returns production defaults for YuNet
func DefaultConfig() Config {
	return Config{
		ModelPath:        "models/face_detection_yunet.onnx",
		ConfidenceThresh: 0.5,
		InputWidth:       320,
		InputHeight:      320,
	}
}

// SelectBest picks the best face from multiple detections.
// Priority: confidence * 0.7 + relative area * 0.3, so the user sitting
// closest to the screen wins over a confident face in the background.
func SelectBest(dets []Detection) *Detection {
	if len(dets) == 0 {
		return nil
	}

	if len(dets) == 1 {
		return &dets[0]
	}

	maxArea := 0.0
	for _, d := range dets {
		if d.Area() > maxArea {
			maxArea = d.Area()
		}
	}

	bestScore := -1.0
	var best *Detection

	for i := range dets {
		score := dets[i].Confidence * 0.7
		if maxArea > 0 {
			score += (dets[i].Area() / maxArea) * 0.3
		}
		if score > bestScore {
			bestScore = score
			best = &dets[i]
		}
	}

	return best
}
