package detection

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-gaze/internal/log"
	"github.com/teslashibe/go-gaze/pkg/gaze"
)

// FrameDetector detects faces in a decoded frame. *YuNetDetector
// implements it.
type FrameDetector interface {
	DetectMat(img gocv.Mat) ([]Detection, error)
}

// CameraConfig configures the webcam anchor loop
type CameraConfig struct {
	Device   int           // Video capture device id
	Interval time.Duration // Frame grab cadence
	MaxAge   time.Duration // Anchors older than this are reported missing
}

// DefaultCameraConfig returns a 10 fps loop on the default webcam
func DefaultCameraConfig() CameraConfig {
	return CameraConfig{
		Device:   0,
		Interval: 100 * time.Millisecond,
		MaxAge:   500 * time.Millisecond,
	}
}

// CameraStats holds anchor loop counters
type CameraStats struct {
	Frames uint64 `json:"frames"`
	Faces  uint64 `json:"faces"`
}

// CameraAnchor runs face detection on a local webcam and reports the nose
// anchor of the best face in frame pixels. It implements gaze.AnchorSource.
type CameraAnchor struct {
	cfg    CameraConfig
	det    FrameDetector
	now    func() time.Time
	logger *slog.Logger

	mu     sync.RWMutex
	anchor gaze.Point
	seen   time.Time
	found  bool
	stats  CameraStats
}

// NewCameraAnchor creates an anchor source fed by det
func NewCameraAnchor(det FrameDetector, cfg CameraConfig) *CameraAnchor {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultCameraConfig().Interval
	}
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = DefaultCameraConfig().MaxAge
	}
	return &CameraAnchor{
		cfg:    cfg,
		det:    det,
		now:    time.Now,
		logger: log.With("component", "camera-anchor"),
	}
}

// Anchor returns the latest nose anchor if a face was seen recently
func (c *CameraAnchor) Anchor() (gaze.Point, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.found || c.now().Sub(c.seen) > c.cfg.MaxAge {
		return gaze.Point{}, false
	}
	return c.anchor, true
}

// Observe updates the anchor from one frame's detections
func (c *CameraAnchor) Observe(dets []Detection, width, height float64) {
	best := SelectBest(dets)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats.Frames++
	if best == nil {
		c.found = false
		return
	}
	c.stats.Faces++
	c.anchor = best.NoseAnchor(width, height)
	c.seen = c.now()
	c.found = true
}

// Stats returns the loop counters
func (c *CameraAnchor) Stats() CameraStats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.stats
}

// Run grabs frames until ctx is cancelled
func (c *CameraAnchor) Run(ctx context.Context) error {
	capture, err := gocv.OpenVideoCapture(c.cfg.Device)
	if err != nil {
		return fmt.Errorf("open camera %d: %w", c.cfg.Device, err)
	}
	defer capture.Close()

	frame := gocv.NewMat()
	defer frame.Close()

	c.logger.Info("camera anchor started", "device", c.cfg.Device, "interval", c.cfg.Interval)

	ticker := time.NewTicker(c.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("camera anchor stopped")
			return nil
		case <-ticker.C:
		}

		if ok := capture.Read(&frame); !ok || frame.Empty() {
			c.logger.Debug("camera frame unavailable")
			continue
		}

		dets, err := c.det.DetectMat(frame)
		if err != nil {
			c.logger.Warn("face detection failed", "error", err)
			continue
		}
		c.Observe(dets, float64(frame.Cols()), float64(frame.Rows()))
	}
}
