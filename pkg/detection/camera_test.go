package detection

import (
	"testing"
	"time"

	"github.com/teslashibe/go-gaze/pkg/gaze"
)

func face(conf float64, nose gaze.Point) Detection {
	d := Detection{X: 0.3, Y: 0.3, W: 0.4, H: 0.4, Confidence: conf}
	d.Landmarks[RightEye] = nose
	d.Landmarks[LeftEye] = nose
	d.Landmarks[NoseTip] = nose
	return d
}

func TestCameraAnchor_Observe(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	c := NewCameraAnchor(nil, CameraConfig{MaxAge: 300 * time.Millisecond})
	c.now = func() time.Time { return now }

	if _, ok := c.Anchor(); ok {
		t.Fatal("Expected no anchor before the first frame")
	}

	c.Observe([]Detection{face(0.9, gaze.Point{X: 0.5, Y: 0.25})}, 640, 480)
	p, ok := c.Anchor()
	if !ok || p != (gaze.Point{X: 320, Y: 120}) {
		t.Errorf("Anchor: got %+v ok=%v", p, ok)
	}

	now = now.Add(301 * time.Millisecond)
	if _, ok := c.Anchor(); ok {
		t.Error("Expected stale anchor to be reported missing")
	}

	c.Observe([]Detection{face(0.9, gaze.Point{X: 0.5, Y: 0.5})}, 640, 480)
	c.Observe(nil, 640, 480)
	if _, ok := c.Anchor(); ok {
		t.Error("Expected a frame without faces to clear the anchor")
	}

	if st := c.Stats(); st.Frames != 3 || st.Faces != 2 {
		t.Errorf("Stats: got %+v", st)
	}
}

func TestCameraAnchor_PicksBestFace(t *testing.T) {
	c := NewCameraAnchor(nil, DefaultCameraConfig())

	c.Observe([]Detection{
		face(0.55, gaze.Point{X: 0.1, Y: 0.1}),
		face(0.95, gaze.Point{X: 0.5, Y: 0.5}),
	}, 100, 100)

	p, ok := c.Anchor()
	if !ok || p != (gaze.Point{X: 50, Y: 50}) {
		t.Errorf("Anchor: got %+v ok=%v", p, ok)
	}
}

func TestNewCameraAnchor_Defaults(t *testing.T) {
	c := NewCameraAnchor(nil, CameraConfig{})
	def := DefaultCameraConfig()
	if c.cfg.Interval != def.Interval || c.cfg.MaxAge != def.MaxAge {
		t.Errorf("Expected defaults, got %+v", c.cfg)
	}
}
