package gaze

import (
	"fmt"
	"time"
)

// Config holds all tunable parameters of the gaze pipeline
type Config struct {
	// Dwell
	DwellTime time.Duration // Continuous stable gaze needed to activate a target
	HitMargin float64       // Target rectangles are padded by this many pixels

	// Stability gate
	MovementTolerance float64 // Max per-axis dispersion (px) for a stable gaze
	MinSamples        int     // Samples needed before a stabilized point is produced
	WindowSize        int     // Samples in the weighted moving average
	SampleHorizon     time.Duration

	// Exponential smoothing
	ExtraSmoothing bool    // Apply EMA before buffering
	SmoothingAlpha float64 // EMA factor (0-1], smaller = smoother and slower

	// Head motion
	HeadCompensationGain  float64       // Multiplies nose displacement
	AnchorHorizon         time.Duration // Anchor history kept for the reference
	AnchorMinObservations int           // Observations needed to fix the reference

	// Calibration
	CalibrationCycles  int           // Repeats of the 9 canonical points
	AutoSampleMax      int           // Hover samples per point
	AutoSampleInterval time.Duration // Hover sampling cadence
	ConfirmSampleCount int           // Extra samples recorded on confirm
	PointSize          float64       // Calibration point hit square (px)
	RequireCalibration bool          // Gate acquisition until calibration completes

	// Background tasks
	RecalibrationInterval time.Duration // Provider refresh cadence
	DiagnosticInterval    time.Duration // Detection status cadence
}

// DefaultConfig returns the recommended configuration
func DefaultConfig() Config {
	return Config{
		DwellTime: 2000 * time.Millisecond,
		HitMargin: 10,

		MovementTolerance: 50,
		MinSamples:        10,
		WindowSize:        15,
		SampleHorizon:     1500 * time.Millisecond,

		ExtraSmoothing: true,
		SmoothingAlpha: 0.3,

		HeadCompensationGain:  2.5,
		AnchorHorizon:         2 * time.Second,
		AnchorMinObservations: 10,

		CalibrationCycles:  3,
		AutoSampleMax:      5,
		AutoSampleInterval: 200 * time.Millisecond,
		ConfirmSampleCount: 3,
		PointSize:          52, // 40px dot + 6px border
		RequireCalibration: true,

		RecalibrationInterval: 1500 * time.Millisecond,
		DiagnosticInterval:    500 * time.Millisecond,
	}
}

// PreciseConfig trades latency for fewer false activations
func PreciseConfig() Config {
	cfg := DefaultConfig()
	cfg.DwellTime = 2500 * time.Millisecond
	cfg.MovementTolerance = 35
	cfg.WindowSize = 20
	cfg.SmoothingAlpha = 0.2
	return cfg
}

// ResponsiveConfig activates faster and tolerates more jitter
func ResponsiveConfig() Config {
	cfg := DefaultConfig()
	cfg.DwellTime = 1200 * time.Millisecond
	cfg.MovementTolerance = 65
	cfg.MinSamples = 6
	cfg.WindowSize = 10
	cfg.SmoothingAlpha = 0.45
	return cfg
}

// Validate checks that every parameter is usable.
func (c Config) Validate() error {
	switch {
	case c.DwellTime <= 0:
		return fmt.Errorf("%w: dwell time must be positive, got %v", ErrInvalidConfig, c.DwellTime)
	case c.MovementTolerance <= 0:
		return fmt.Errorf("%w: movement tolerance must be positive, got %v", ErrInvalidConfig, c.MovementTolerance)
	case c.MinSamples < 1:
		return fmt.Errorf("%w: min samples must be at least 1, got %d", ErrInvalidConfig, c.MinSamples)
	case c.WindowSize < 1:
		return fmt.Errorf("%w: window size must be at least 1, got %d", ErrInvalidConfig, c.WindowSize)
	case c.SampleHorizon <= 0:
		return fmt.Errorf("%w: sample horizon must be positive, got %v", ErrInvalidConfig, c.SampleHorizon)
	case c.SmoothingAlpha <= 0 || c.SmoothingAlpha > 1:
		return fmt.Errorf("%w: smoothing alpha must be in (0, 1], got %v", ErrInvalidConfig, c.SmoothingAlpha)
	case c.HeadCompensationGain <= 1:
		return fmt.Errorf("%w: head compensation gain must exceed 1, got %v", ErrInvalidConfig, c.HeadCompensationGain)
	case c.AnchorHorizon <= 0:
		return fmt.Errorf("%w: anchor horizon must be positive, got %v", ErrInvalidConfig, c.AnchorHorizon)
	case c.AnchorMinObservations < 1:
		return fmt.Errorf("%w: anchor observations must be at least 1, got %d", ErrInvalidConfig, c.AnchorMinObservations)
	case c.CalibrationCycles < 1:
		return fmt.Errorf("%w: calibration cycles must be at least 1, got %d", ErrInvalidConfig, c.CalibrationCycles)
	case c.AutoSampleMax < 0 || c.ConfirmSampleCount < 0:
		return fmt.Errorf("%w: sample counts must not be negative", ErrInvalidConfig)
	case c.AutoSampleInterval <= 0:
		return fmt.Errorf("%w: auto sample interval must be positive, got %v", ErrInvalidConfig, c.AutoSampleInterval)
	case c.PointSize <= 0:
		return fmt.Errorf("%w: point size must be positive, got %v", ErrInvalidConfig, c.PointSize)
	case c.RecalibrationInterval <= 0 || c.DiagnosticInterval <= 0:
		return fmt.Errorf("%w: task intervals must be positive", ErrInvalidConfig)
	}
	return nil
}
