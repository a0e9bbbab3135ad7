package hub

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gorilla/websocket"

	"github.com/teslashibe/go-gaze/pkg/gaze"
	"github.com/teslashibe/go-gaze/pkg/protocol"
)

func startServer(t *testing.T, h *Hub) string {
	t.Helper()
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Get("/ws/events", h.Handler())

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	go app.Listener(ln)
	t.Cleanup(func() { app.Shutdown() })

	return "ws://" + ln.Addr().String() + "/ws/events"
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met before deadline")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestNew(t *testing.T) {
	h := New("events")
	if h.ClientCount() != 0 {
		t.Error("ClientCount should be 0 initially")
	}
	if h.IsRunning() {
		t.Error("hub should not run before Run")
	}
}

func TestBroadcastWithoutRunDrops(t *testing.T) {
	h := New("events")
	for i := 0; i < 300; i++ {
		h.Broadcast(Message{Data: []byte("{}")})
	}
	if h.Dropped() != 300-256 {
		t.Errorf("Dropped = %d, want %d", h.Dropped(), 300-256)
	}
}

func TestPublishReachesObserver(t *testing.T) {
	h := New("events")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.Run(ctx)

	url := startServer(t, h)
	time.Sleep(50 * time.Millisecond)

	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("WebSocket dial error: %v", err)
	}
	defer ws.Close()

	waitFor(t, func() bool { return h.ClientCount() == 1 })

	h.Publish(gaze.Event{Kind: gaze.EventDwellStart, TargetID: "next", Time: time.Now()})

	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := ws.ReadMessage()
	if err != nil {
		t.Fatalf("Read error: %v", err)
	}

	msg, err := protocol.ParseMessage(data)
	if err != nil {
		t.Fatalf("ParseMessage error: %v", err)
	}
	if msg.Type != protocol.TypeEvent {
		t.Errorf("Type = %s, want event", msg.Type)
	}
	e, err := msg.GetEvent()
	if err != nil {
		t.Fatalf("GetEvent error: %v", err)
	}
	if e.Kind != gaze.EventDwellStart || e.TargetID != "next" {
		t.Errorf("unexpected event: %+v", e)
	}

	ws.Close()
	waitFor(t, func() bool { return h.ClientCount() == 0 })
}

func TestRunStopsOnCancel(t *testing.T) {
	h := New("events")
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(done)
	}()
	waitFor(t, h.IsRunning)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
	if h.IsRunning() {
		t.Error("hub should report stopped")
	}
}

func TestSubscriptionFiltersKinds(t *testing.T) {
	h := New("events")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.Run(ctx)

	url := startServer(t, h)
	time.Sleep(50 * time.Millisecond)

	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("WebSocket dial error: %v", err)
	}
	defer ws.Close()

	sub, _ := protocol.NewSubscribeMessage(gaze.EventActivated)
	data, _ := sub.Bytes()
	if err := ws.WriteMessage(websocket.TextMessage, data); err != nil {
		t.Fatalf("write subscribe: %v", err)
	}

	waitFor(t, func() bool {
		h.mu.RLock()
		defer h.mu.RUnlock()
		for c := range h.clients {
			c.mu.Lock()
			ok := c.sub != nil
			c.mu.Unlock()
			return ok
		}
		return false
	})

	h.Publish(gaze.Event{Kind: gaze.EventDwellProgress, TargetID: "next", Progress: 0.5})
	h.Publish(gaze.Event{Kind: gaze.EventActivated, TargetID: "next"})

	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err = ws.ReadMessage()
	if err != nil {
		t.Fatalf("Read error: %v", err)
	}
	msg, _ := protocol.ParseMessage(data)
	e, err := msg.GetEvent()
	if err != nil {
		t.Fatalf("GetEvent error: %v", err)
	}
	if e.Kind != gaze.EventActivated {
		t.Errorf("Expected only activated events, got %s", e.Kind)
	}
}

func TestSubscription_Wants(t *testing.T) {
	all := newSubscription(nil)
	some := newSubscription([]gaze.EventKind{gaze.EventActivated})

	if !all.wants(Message{Kind: gaze.EventDwellProgress}) {
		t.Error("empty subscription should receive every kind")
	}
	if some.wants(Message{Kind: gaze.EventDwellProgress}) {
		t.Error("dwell_progress should be filtered")
	}
	if !some.wants(Message{Kind: gaze.EventActivated}) || !some.wants(Message{Data: []byte("{}")}) {
		t.Error("subscribed kinds and non-event frames should pass")
	}
}
