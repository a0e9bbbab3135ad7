package protocol

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/teslashibe/go-gaze/pkg/gaze"
)

func TestNewMessage(t *testing.T) {
	tests := []struct {
		name    string
		msgType MessageType
		data    interface{}
		wantErr bool
	}{
		{
			name:    "prediction message",
			msgType: TypePrediction,
			data:    PredictionData{Point: &gaze.Point{X: 1, Y: 2}},
			wantErr: false,
		},
		{
			name:    "train message",
			msgType: TypeTrain,
			data:    TrainData{X: 100, Y: 50, Kind: gaze.SampleMove},
			wantErr: false,
		},
		{
			name:    "nil data",
			msgType: TypeRefresh,
			data:    nil,
			wantErr: false,
		},
		{
			name:    "unmarshalable data",
			msgType: TypeEvent,
			data:    make(chan int),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := NewMessage(tt.msgType, tt.data)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewMessage() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if tt.wantErr {
				return
			}
			if msg.Type != tt.msgType {
				t.Errorf("NewMessage() type = %v, want %v", msg.Type, tt.msgType)
			}
			if msg.Timestamp == 0 {
				t.Error("NewMessage() timestamp should be set")
			}
		})
	}
}

func TestPredictionMessage_NullFields(t *testing.T) {
	msg, err := ParseMessage([]byte(`{"type":"prediction","ts":1,"data":{"point":null,"anchor":null}}`))
	if err != nil {
		t.Fatalf("ParseMessage() error = %v", err)
	}

	data, err := msg.GetPredictionData()
	if err != nil {
		t.Fatalf("GetPredictionData() error = %v", err)
	}
	if data.Point != nil || data.Anchor != nil {
		t.Errorf("Expected null point and anchor, got %+v", data)
	}

	msg, _ = NewPredictionMessage(&gaze.Point{X: 640, Y: 360}, &gaze.Point{X: 320, Y: 240})
	bytes, _ := msg.Bytes()
	parsed, _ := ParseMessage(bytes)
	data, _ = parsed.GetPredictionData()
	if data.Point == nil || data.Point.X != 640 || data.Anchor == nil || data.Anchor.Y != 240 {
		t.Errorf("unexpected prediction: %+v", data)
	}
}

func TestTargetsMessage(t *testing.T) {
	raw := `{"type":"targets","data":{"targets":[{"id":"next","rect":{"x":10,"y":20,"w":100,"h":40},"visible":true,"enabled":false}],"replace":true}}`

	msg, err := ParseMessage([]byte(raw))
	if err != nil {
		t.Fatalf("ParseMessage() error = %v", err)
	}
	data, err := msg.GetTargetsData()
	if err != nil {
		t.Fatalf("GetTargetsData() error = %v", err)
	}

	if !data.Replace || len(data.Targets) != 1 {
		t.Fatalf("unexpected targets: %+v", data)
	}
	want := TargetData{ID: "next", Rect: gaze.Rect{X: 10, Y: 20, Width: 100, Height: 40}, Visible: true}
	if data.Targets[0] != want {
		t.Errorf("target = %+v, want %+v", data.Targets[0], want)
	}
}

func TestPointerMessage(t *testing.T) {
	msg, err := NewPointerMessage(gaze.SampleClick, 100, 50)
	if err != nil {
		t.Fatalf("NewPointerMessage() error = %v", err)
	}

	data, err := msg.GetPointerData()
	if err != nil {
		t.Fatalf("GetPointerData() error = %v", err)
	}
	if data.Action != gaze.SampleClick || data.X != 100 || data.Y != 50 {
		t.Errorf("unexpected pointer data: %+v", data)
	}
}

func TestEventMessage(t *testing.T) {
	e := gaze.Event{
		Kind:     gaze.EventActivated,
		Time:     time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		TargetID: "next",
		Progress: 1,
	}

	msg, err := NewEventMessage(e)
	if err != nil {
		t.Fatalf("NewEventMessage() error = %v", err)
	}
	got, err := msg.GetEvent()
	if err != nil {
		t.Fatalf("GetEvent() error = %v", err)
	}
	if got.Kind != e.Kind || got.TargetID != "next" || !got.Time.Equal(e.Time) {
		t.Errorf("event = %+v, want %+v", got, e)
	}
}

func TestSubscribeMessage(t *testing.T) {
	msg, err := NewSubscribeMessage(gaze.EventActivated, gaze.EventCalibrationProgress)
	if err != nil {
		t.Fatalf("NewSubscribeMessage() error = %v", err)
	}
	data, err := msg.Bytes()
	if err != nil {
		t.Fatalf("Bytes() error = %v", err)
	}

	parsed, err := ParseMessage(data)
	if err != nil {
		t.Fatalf("ParseMessage() error = %v", err)
	}
	if parsed.Type != TypeSubscribe {
		t.Errorf("Type = %v, want %v", parsed.Type, TypeSubscribe)
	}
	sub, err := parsed.GetSubscribeData()
	if err != nil {
		t.Fatalf("GetSubscribeData() error = %v", err)
	}
	if len(sub.Kinds) != 2 || sub.Kinds[0] != gaze.EventActivated || sub.Kinds[1] != gaze.EventCalibrationProgress {
		t.Errorf("Kinds = %v", sub.Kinds)
	}
}

func TestPingPongMessage(t *testing.T) {
	pingMsg, err := NewPingMessage("test-123")
	if err != nil {
		t.Fatalf("NewPingMessage() error = %v", err)
	}

	pingData, err := pingMsg.GetPingData()
	if err != nil {
		t.Fatalf("GetPingData() error = %v", err)
	}
	if pingData.ID != "test-123" {
		t.Errorf("ID = %v, want test-123", pingData.ID)
	}

	pongMsg, err := NewPongMessage(*pingData)
	if err != nil {
		t.Fatalf("NewPongMessage() error = %v", err)
	}
	if pongMsg.Type != TypePong {
		t.Errorf("Type = %v, want %v", pongMsg.Type, TypePong)
	}

	pongData, err := pongMsg.GetPongData()
	if err != nil {
		t.Fatalf("GetPongData() error = %v", err)
	}
	if pongData.ID != "test-123" {
		t.Errorf("ID = %v, want test-123", pongData.ID)
	}
	if pongData.LatencyMs < 0 {
		t.Errorf("LatencyMs = %v, should be >= 0", pongData.LatencyMs)
	}
}

func TestParseInvalidMessage(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{
			name:    "invalid json",
			input:   "not json",
			wantErr: true,
		},
		{
			name:    "missing type",
			input:   "{}",
			wantErr: true,
		},
		{
			name:    "valid message",
			input:   `{"type":"ping","ts":1234567890}`,
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseMessage([]byte(tt.input))
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseMessage() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestMessageJSON(t *testing.T) {
	msg, _ := NewTrainMessage(100, 50, gaze.SampleMove)
	bytes, _ := msg.Bytes()

	var parsed map[string]interface{}
	if err := json.Unmarshal(bytes, &parsed); err != nil {
		t.Fatalf("Failed to unmarshal as map: %v", err)
	}

	if parsed["type"] != "train" {
		t.Errorf("type = %v, want train", parsed["type"])
	}
	if _, ok := parsed["ts"]; !ok {
		t.Error("ts field should be present")
	}
	data, ok := parsed["data"].(map[string]interface{})
	if !ok {
		t.Fatal("data field should be an object")
	}
	if data["kind"] != "move" {
		t.Errorf("kind = %v, want move", data["kind"])
	}
}

func BenchmarkParseMessage(b *testing.B) {
	msg, _ := NewPredictionMessage(&gaze.Point{X: 640, Y: 360}, &gaze.Point{X: 320, Y: 240})
	bytes, _ := msg.Bytes()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		ParseMessage(bytes)
	}
}
