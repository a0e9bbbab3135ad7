package detection

import (
	"errors"
	"fmt"
	"image"
	"log/slog"
	"os"
	"sync"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-gaze/internal/log"
	"github.com/teslashibe/go-gaze/pkg/gaze"
)

// ErrEmptyImage is returned for frames with no pixels.
var ErrEmptyImage = errors.New("empty image")

// YuNetDetector uses OpenCV's FaceDetectorYN for face detection
type YuNetDetector struct {
	detector gocv.FaceDetectorYN
	config   Config
	logger   *slog.Logger
	mu       sync.Mutex // Protects inference
}

// NewYuNet creates a new YuNet face detector using GoCV's built-in FaceDetectorYN
func NewYuNet(cfg Config) (*YuNetDetector, error) {
	if _, err := os.Stat(cfg.ModelPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("model file not found: %s", cfg.ModelPath)
	}

	// Input size is updated per frame
	detector := gocv.NewFaceDetectorYNWithParams(
		cfg.ModelPath,
		"",
		image.Pt(cfg.InputWidth, cfg.InputHeight),
		float32(cfg.ConfidenceThresh),
		0.3,  // NMS threshold
		5000, // Top K
		int(gocv.NetBackendDefault),
		int(gocv.NetTargetCPU),
	)

	return &YuNetDetector{
		detector: detector,
		config:   cfg,
		logger:   log.With("component", "yunet"),
	}, nil
}

// DetectMat finds faces in a decoded BGR frame
func (d *YuNetDetector) DetectMat(img gocv.Mat) ([]Detection, error) {
	if img.Empty() {
		return nil, ErrEmptyImage
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.detector.SetInputSize(image.Pt(img.Cols(), img.Rows()))

	faces := gocv.NewMat()
	defer faces.Close()

	d.detector.Detect(img, &faces)

	rows := make([][]float32, faces.Rows())
	for r := range rows {
		row := make([]float32, yunetColumns)
		for c := range row {
			row[c] = faces.GetFloatAt(r, c)
		}
		rows[r] = row
	}

	dets := parseYuNet(rows, float64(img.Cols()), float64(img.Rows()))
	if len(dets) > 0 {
		d.logger.Debug("faces detected", "count", len(dets))
	}
	return dets, nil
}

// Close releases the detector resources
func (d *YuNetDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.detector.Close()
	return nil
}

// YuNet output rows have 15 columns:
// 0-3 bounding box in pixels, 4-13 five landmark (x, y) pairs, 14 score.
const yunetColumns = 15

func parseYuNet(rows [][]float32, imgW, imgH float64) []Detection {
	var dets []Detection
	for _, row := range rows {
		if len(row) < yunetColumns || imgW <= 0 || imgH <= 0 {
			continue
		}
		d := Detection{
			X:          float64(row[0]) / imgW,
			Y:          float64(row[1]) / imgH,
			W:          float64(row[2]) / imgW,
			H:          float64(row[3]) / imgH,
			Confidence: float64(row[14]),
		}
		for i := 0; i < NumLandmarks; i++ {
			d.Landmarks[i] = gaze.Point{
				X: float64(row[4+2*i]) / imgW,
				Y: float64(row[5+2*i]) / imgH,
			}
		}
		dets = append(dets, d)
	}
	return dets
}
