package protocol

import (
	"time"

	"github.com/teslashibe/go-gaze/pkg/gaze"
)

// =============================================================================
// Helper functions for creating messages
// =============================================================================

// NewPredictionMessage creates a prediction message
func NewPredictionMessage(point, anchor *gaze.Point) (*Message, error) {
	return NewMessage(TypePrediction, PredictionData{Point: point, Anchor: anchor})
}

// NewPointerMessage creates a pointer message
func NewPointerMessage(action gaze.SampleKind, x, y float64) (*Message, error) {
	return NewMessage(TypePointer, PointerData{Action: action, X: x, Y: y})
}

// NewTargetsMessage creates a targets message
func NewTargetsMessage(targets []TargetData, replace bool) (*Message, error) {
	return NewMessage(TypeTargets, TargetsData{Targets: targets, Replace: replace})
}

// NewScreenMessage creates a screen size message
func NewScreenMessage(width, height float64) (*Message, error) {
	return NewMessage(TypeScreen, ScreenData{Width: width, Height: height})
}

// NewTrainMessage creates a calibration sample request
func NewTrainMessage(x, y float64, kind gaze.SampleKind) (*Message, error) {
	return NewMessage(TypeTrain, TrainData{X: x, Y: y, Kind: kind})
}

// NewRefreshMessage creates a refresh request
func NewRefreshMessage() (*Message, error) {
	return NewMessage(TypeRefresh, nil)
}

// NewActivateMessage creates a target activation message
func NewActivateMessage(id string) (*Message, error) {
	return NewMessage(TypeActivate, ActivateData{ID: id})
}

// NewEventMessage wraps a pipeline event
func NewEventMessage(e gaze.Event) (*Message, error) {
	return NewMessage(TypeEvent, e)
}

// NewSubscribeMessage creates an observer subscription
func NewSubscribeMessage(kinds ...gaze.EventKind) (*Message, error) {
	return NewMessage(TypeSubscribe, SubscribeData{Kinds: kinds})
}

// NewPingMessage creates a ping message
func NewPingMessage(id string) (*Message, error) {
	return NewMessage(TypePing, PingData{
		ID:        id,
		Timestamp: time.Now().UnixMilli(),
	})
}

// NewPongMessage creates a pong response to a ping
func NewPongMessage(ping PingData) (*Message, error) {
	now := time.Now().UnixMilli()
	return NewMessage(TypePong, PongData{
		ID:        ping.ID,
		PingTS:    ping.Timestamp,
		PongTS:    now,
		LatencyMs: now - ping.Timestamp,
	})
}

// =============================================================================
// Helper functions for parsing messages
// =============================================================================

// GetPredictionData extracts prediction data from a message
func (m *Message) GetPredictionData() (*PredictionData, error) {
	var data PredictionData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetPointerData extracts pointer data from a message
func (m *Message) GetPointerData() (*PointerData, error) {
	var data PointerData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetTargetsData extracts the target list from a message
func (m *Message) GetTargetsData() (*TargetsData, error) {
	var data TargetsData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetScreenData extracts screen size from a message
func (m *Message) GetScreenData() (*ScreenData, error) {
	var data ScreenData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetStatusData extracts provider status from a message
func (m *Message) GetStatusData() (*StatusData, error) {
	var data StatusData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetTrainData extracts a calibration sample request from a message
func (m *Message) GetTrainData() (*TrainData, error) {
	var data TrainData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetActivateData extracts a target activation from a message
func (m *Message) GetActivateData() (*ActivateData, error) {
	var data ActivateData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetEvent extracts a pipeline event from a message
func (m *Message) GetEvent() (*gaze.Event, error) {
	var data gaze.Event
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetSubscribeData extracts subscription data from a message
func (m *Message) GetSubscribeData() (*SubscribeData, error) {
	var data SubscribeData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetPingData extracts ping data from a message
func (m *Message) GetPingData() (*PingData, error) {
	var data PingData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetPongData extracts pong data from a message
func (m *Message) GetPongData() (*PongData, error) {
	var data PongData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}
