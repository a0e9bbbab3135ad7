package gaze

import "time"

// EventKind identifies a pipeline event.
type EventKind string

const (
	EventDwellStart          EventKind = "dwell_start"
	EventDwellProgress       EventKind = "dwell_progress"
	EventDwellReset          EventKind = "dwell_reset"
	EventActivated           EventKind = "activated"
	EventCalibrationProgress EventKind = "calibration_progress"
	EventCalibrationSample   EventKind = "calibration_sample"
	EventCalibrationComplete EventKind = "calibration_complete"
	EventReferenceSet        EventKind = "reference_set"
	EventReferenceReset      EventKind = "reference_reset"
	EventStatus              EventKind = "status"
	EventSessionActive       EventKind = "session_active"
	EventSessionInactive     EventKind = "session_inactive"
)

// Event is emitted by the pipeline stages for the UI collaborator and any
// observers. Only the fields relevant to Kind are set.
type Event struct {
	Kind      EventKind `json:"kind"`
	Time      time.Time `json:"time"`
	SessionID string    `json:"session_id,omitempty"`

	// Dwell
	TargetID string        `json:"target_id,omitempty"`
	Progress float64       `json:"progress,omitempty"`
	Elapsed  time.Duration `json:"elapsed,omitempty"`

	// Position associated with the event: the stabilized point for dwell
	// events, the recorded screen position for calibration samples, the
	// reference for reference events.
	Point *Point `json:"point,omitempty"`

	Sample      SampleKind           `json:"sample,omitempty"`
	Calibration *CalibrationProgress `json:"calibration,omitempty"`
	Status      *Status              `json:"status,omitempty"`
	Error       string               `json:"error,omitempty"`
}

// PointState is the sub-state of a calibration point.
type PointState string

const (
	PointPending   PointState = "pending"
	PointSampling  PointState = "sampling"
	PointSampled   PointState = "sampled"
	PointConfirmed PointState = "confirmed"
)

// CalibrationProgress is what the UI needs to render the calibration
// sequence. CurrentIndex is zero-based and equals TotalPoints once complete.
type CalibrationProgress struct {
	CurrentIndex int        `json:"current_index"`
	TotalPoints  int        `json:"total_points"`
	CurrentCycle int        `json:"current_cycle"`
	TotalCycles  int        `json:"total_cycles"`
	Name         string     `json:"name,omitempty"`
	Position     Point      `json:"position"`
	State        PointState `json:"state,omitempty"`
	Samples      int        `json:"samples"`
	SampleMax    int        `json:"sample_max"`
	Complete     bool       `json:"complete"`
}

// Status is the periodic detection/diagnostic snapshot.
type Status struct {
	Active         bool             `json:"active"`
	Ready          bool             `json:"ready"`
	FaceDetected   bool             `json:"face_detected"`
	LastPrediction *Point           `json:"last_prediction,omitempty"`
	Stabilized     *StabilizedPoint `json:"stabilized,omitempty"`
	Stable         bool             `json:"stable"`
	Reference      *Point           `json:"reference,omitempty"`
	DwellTarget    string           `json:"dwell_target,omitempty"`
	DwellProgress  float64          `json:"dwell_progress"`
}
