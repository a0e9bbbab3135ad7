package gaze

import "errors"

var (
	// ErrProviderUnavailable is returned when tracking is enabled without a
	// usable gaze-data provider. It is the only failure surfaced to users.
	ErrProviderUnavailable = errors.New("gaze provider unavailable")

	// ErrInvalidConfig wraps configuration validation failures.
	ErrInvalidConfig = errors.New("invalid gaze config")

	// ErrNotActive is returned by operations that need an active session.
	ErrNotActive = errors.New("gaze session not active")
)
