// Package protocol defines the WebSocket message types exchanged between the
// gaze provider page, the gaze server and event observers.
package protocol

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/teslashibe/go-gaze/pkg/gaze"
)

// MessageType identifies the type of WebSocket message
type MessageType string

const (
	// Provider → Server messages
	TypePrediction MessageType = "prediction" // Raw gaze estimate and facial anchor
	TypePointer    MessageType = "pointer"    // UI pointer input during calibration
	TypeTargets    MessageType = "targets"    // Selectable target rectangles
	TypeScreen     MessageType = "screen"     // Viewport size
	TypeStatus     MessageType = "status"     // Provider availability

	// Server → Provider messages
	TypeTrain    MessageType = "train"    // Record a calibration sample
	TypeRefresh  MessageType = "refresh"  // Re-apply provider-side filtering
	TypeActivate MessageType = "activate" // A remote target was selected

	// Observer ↔ Server messages
	TypeSubscribe MessageType = "subscribe" // Restrict the stream to some event kinds
	TypeEvent     MessageType = "event"     // Pipeline event

	// Bidirectional
	TypePing MessageType = "ping" // Health check
	TypePong MessageType = "pong" // Health check response
)

// Message is the base wrapper for all WebSocket messages
type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp int64           `json:"ts,omitempty"` // Unix milliseconds
	Data      json.RawMessage `json:"data,omitempty"`
}

// NewMessage creates a new message with the current timestamp
func NewMessage(msgType MessageType, data interface{}) (*Message, error) {
	var rawData json.RawMessage
	if data != nil {
		var err error
		rawData, err = json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal message data: %w", err)
		}
	}

	return &Message{
		Type:      msgType,
		Timestamp: time.Now().UnixMilli(),
		Data:      rawData,
	}, nil
}

// ParseData unmarshals the message data into the provided struct
func (m *Message) ParseData(v interface{}) error {
	if m.Data == nil {
		return nil
	}
	return json.Unmarshal(m.Data, v)
}

// Bytes returns the JSON-encoded message
func (m *Message) Bytes() ([]byte, error) {
	return json.Marshal(m)
}

// ParseMessage parses a JSON message from bytes
func ParseMessage(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}
	if msg.Type == "" {
		return nil, fmt.Errorf("failed to parse message: missing type")
	}
	return &msg, nil
}

// =============================================================================
// Provider → Server Message Types
// =============================================================================

// PredictionData carries one gaze estimate. Point is null when the provider
// had no estimate this frame; Anchor is null when no face was detected.
type PredictionData struct {
	Point  *gaze.Point `json:"point"`
	Anchor *gaze.Point `json:"anchor"`
}

// PointerData is a pointer event over the calibration overlay.
type PointerData struct {
	Action gaze.SampleKind `json:"action"` // "move" or "click"
	X      float64         `json:"x"`
	Y      float64         `json:"y"`
}

// TargetData describes one selectable UI element.
type TargetData struct {
	ID      string    `json:"id"`
	Rect    gaze.Rect `json:"rect"`
	Visible bool      `json:"visible"`
	Enabled bool      `json:"enabled"`
}

// TargetsData updates the target registry. With Replace set, targets not
// listed are removed.
type TargetsData struct {
	Targets []TargetData `json:"targets"`
	Replace bool         `json:"replace,omitempty"`
	Remove  []string     `json:"remove,omitempty"`
}

// ScreenData reports the viewport size.
type ScreenData struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// StatusData reports whether the provider model is loaded.
type StatusData struct {
	Ready bool `json:"ready"`
}

// =============================================================================
// Server → Provider Message Types
// =============================================================================

// TrainData asks the provider to record a calibration sample.
type TrainData struct {
	X    float64         `json:"x"`
	Y    float64         `json:"y"`
	Kind gaze.SampleKind `json:"kind"`
}

// ActivateData tells the page which target was selected.
type ActivateData struct {
	ID string `json:"id"`
}

// =============================================================================
// Observer Message Types
// =============================================================================

// SubscribeData selects the event kinds an observer receives. An empty list
// restores the full stream.
type SubscribeData struct {
	Kinds []gaze.EventKind `json:"kinds"`
}

// =============================================================================
// Bidirectional Message Types
// =============================================================================

// PingData contains ping information
type PingData struct {
	ID        string `json:"id"`
	Timestamp int64  `json:"ts"`
}

// PongData contains pong response
type PongData struct {
	ID        string `json:"id"`
	PingTS    int64  `json:"ping_ts"`
	PongTS    int64  `json:"pong_ts"`
	LatencyMs int64  `json:"latency_ms"`
}
