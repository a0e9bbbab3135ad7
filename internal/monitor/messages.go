package monitor

import (
	"time"

	"github.com/teslashibe/go-gaze/pkg/gaze"
)

// EventMsg carries one pipeline event from the server.
type EventMsg gaze.Event

// ConnMsg reports the event stream connecting or dropping.
type ConnMsg struct {
	Connected bool
	Err       error
}

// TickMsg refreshes relative times in the view.
type TickMsg time.Time
