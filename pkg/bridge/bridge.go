// Package bridge connects the browser-side gaze provider to the pipeline
// over a WebSocket. The page streams predictions, pointer input and its
// selectable targets; the server answers with training samples, refresh
// requests and target activations.
package bridge

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"

	"github.com/teslashibe/go-gaze/internal/log"
	"github.com/teslashibe/go-gaze/pkg/dwell"
	"github.com/teslashibe/go-gaze/pkg/gaze"
	"github.com/teslashibe/go-gaze/pkg/protocol"
)

// Pipeline is what the bridge drives. *session.Session implements it.
type Pipeline interface {
	HandlePrediction(raw *gaze.Point)
	HandlePointer(action gaze.SampleKind, x, y float64)
	SetScreen(width, height float64)
	Targets() *dwell.Registry
	Revalidate()
}

// Connection is the provider page currently attached.
type Connection struct {
	ID        string
	Conn      *websocket.Conn
	Connected time.Time
	LastSeen  time.Time

	mu sync.Mutex
}

// Send writes a message to the page.
func (c *Connection) Send(msg *protocol.Message) error {
	data, err := msg.Bytes()
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Conn.WriteMessage(websocket.TextMessage, data)
}

// Bridge is the server side of the provider connection and implements
// gaze.Provider. Only one page is attached at a time; a new connection
// replaces the previous one.
type Bridge struct {
	logger *slog.Logger

	mu       sync.RWMutex
	pipeline Pipeline
	conn     *Connection
	ready    bool
	anchor   *gaze.Point
	owned    map[string]*dwell.StaticTarget
	seq      int

	// Stats
	messagesReceived atomic.Uint64
	messagesSent     atomic.Uint64
	predictions      atomic.Uint64
}

// New creates an unattached bridge.
func New() *Bridge {
	return &Bridge{
		logger: log.With("component", "bridge"),
		owned:  make(map[string]*dwell.StaticTarget),
	}
}

// Attach sets the pipeline fed by incoming messages.
func (b *Bridge) Attach(p Pipeline) {
	b.mu.Lock()
	b.pipeline = p
	b.mu.Unlock()
}

// RegisterRoutes registers the provider WebSocket endpoint on a Fiber app
func (b *Bridge) RegisterRoutes(app *fiber.App) {
	app.Use("/ws/provider", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			c.Locals("allowed", true)
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/provider", websocket.New(b.handleProvider))
}

// Available reports whether a page is attached and its model is loaded.
func (b *Bridge) Available() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.conn != nil && b.ready
}

// Connected reports whether a page is attached.
func (b *Bridge) Connected() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.conn != nil
}

// Anchor returns the facial anchor reported with the latest prediction.
func (b *Bridge) Anchor() (gaze.Point, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.anchor == nil {
		return gaze.Point{}, false
	}
	return *b.anchor, true
}

// Record asks the page to train the provider with a calibration sample.
func (b *Bridge) Record(x, y float64, kind gaze.SampleKind) error {
	msg, err := protocol.NewTrainMessage(x, y, kind)
	if err != nil {
		return err
	}
	return b.send(msg)
}

// Refresh asks the page to re-apply provider-side filtering.
func (b *Bridge) Refresh() error {
	msg, err := protocol.NewRefreshMessage()
	if err != nil {
		return err
	}
	return b.send(msg)
}

func (b *Bridge) send(msg *protocol.Message) error {
	b.mu.RLock()
	conn := b.conn
	b.mu.RUnlock()

	if conn == nil {
		return gaze.ErrProviderUnavailable
	}
	b.messagesSent.Add(1)
	if err := conn.Send(msg); err != nil {
		return fmt.Errorf("send %s: %w", msg.Type, err)
	}
	return nil
}

// handleProvider handles one page connection until it closes.
func (b *Bridge) handleProvider(c *websocket.Conn) {
	conn := &Connection{
		Conn:      c,
		Connected: time.Now(),
		LastSeen:  time.Now(),
	}

	b.mu.Lock()
	b.seq++
	conn.ID = fmt.Sprintf("provider-%d", b.seq)
	prev := b.conn
	b.conn = conn
	b.ready = false
	b.anchor = nil
	b.mu.Unlock()

	if prev != nil {
		b.logger.Info("provider replaced", "previous", prev.ID, "id", conn.ID)
		prev.Conn.Close()
	} else {
		b.logger.Info("provider connected", "id", conn.ID)
	}

	defer b.detach(conn)

	for {
		_, data, err := c.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				b.logger.Debug("provider read error", "id", conn.ID, "error", err)
			}
			return
		}

		conn.mu.Lock()
		conn.LastSeen = time.Now()
		conn.mu.Unlock()

		b.messagesReceived.Add(1)
		b.handleMessage(conn, data)
	}
}

// detach forgets conn and the targets it registered, unless a newer
// connection already replaced it.
func (b *Bridge) detach(conn *Connection) {
	b.mu.Lock()
	if b.conn != conn {
		b.mu.Unlock()
		return
	}
	b.conn = nil
	b.ready = false
	b.anchor = nil
	ids := make([]string, 0, len(b.owned))
	for id := range b.owned {
		ids = append(ids, id)
	}
	b.owned = make(map[string]*dwell.StaticTarget)
	p := b.pipeline
	b.mu.Unlock()

	b.logger.Info("provider disconnected", "id", conn.ID)
	if p == nil {
		return
	}
	for _, id := range ids {
		p.Targets().Remove(id)
	}
	p.Revalidate()
}

// handleMessage processes an incoming message from the page
func (b *Bridge) handleMessage(conn *Connection, data []byte) {
	msg, err := protocol.ParseMessage(data)
	if err != nil {
		b.logger.Debug("parse error", "id", conn.ID, "error", err)
		return
	}

	b.mu.RLock()
	p := b.pipeline
	b.mu.RUnlock()

	switch msg.Type {
	case protocol.TypePrediction:
		pred, err := msg.GetPredictionData()
		if err != nil {
			b.logger.Debug("bad prediction", "error", err)
			return
		}
		b.predictions.Add(1)
		b.mu.Lock()
		b.anchor = pred.Anchor
		b.ready = true
		b.mu.Unlock()
		if p != nil {
			p.HandlePrediction(pred.Point)
		}

	case protocol.TypePointer:
		ptr, err := msg.GetPointerData()
		if err != nil || p == nil {
			return
		}
		p.HandlePointer(ptr.Action, ptr.X, ptr.Y)

	case protocol.TypeTargets:
		targets, err := msg.GetTargetsData()
		if err != nil || p == nil {
			return
		}
		b.applyTargets(p, targets)

	case protocol.TypeScreen:
		screen, err := msg.GetScreenData()
		if err != nil || p == nil {
			return
		}
		p.SetScreen(screen.Width, screen.Height)

	case protocol.TypeStatus:
		st, err := msg.GetStatusData()
		if err != nil {
			return
		}
		b.mu.Lock()
		b.ready = st.Ready
		b.mu.Unlock()
		b.logger.Info("provider status", "ready", st.Ready)

	case protocol.TypePing:
		ping, err := msg.GetPingData()
		if err != nil {
			return
		}
		pong, err := protocol.NewPongMessage(*ping)
		if err != nil {
			return
		}
		b.messagesSent.Add(1)
		if err := conn.Send(pong); err != nil {
			b.logger.Debug("pong failed", "error", err)
		}
	}
}

// applyTargets upserts the page's targets into the registry. Remote
// targets activate by sending an activate message back to the page.
func (b *Bridge) applyTargets(p Pipeline, update *protocol.TargetsData) {
	reg := p.Targets()
	listed := make(map[string]bool, len(update.Targets))

	b.mu.Lock()
	for _, td := range update.Targets {
		listed[td.ID] = true
		t, ok := b.owned[td.ID]
		if !ok {
			id := td.ID
			t = dwell.NewStaticTarget(id, td.Rect, func() error { return b.activate(id) })
			b.owned[id] = t
		}
		t.SetRect(td.Rect)
		t.SetVisible(td.Visible)
		t.SetEnabled(td.Enabled)
		reg.Put(t)
	}

	var removed []string
	for id := range b.owned {
		if update.Replace && !listed[id] {
			removed = append(removed, id)
		}
	}
	for _, id := range update.Remove {
		if _, ok := b.owned[id]; ok && !listed[id] {
			removed = append(removed, id)
		}
	}
	for _, id := range removed {
		delete(b.owned, id)
		reg.Remove(id)
	}
	b.mu.Unlock()

	b.logger.Debug("targets updated", "count", len(update.Targets), "removed", len(removed))
	p.Revalidate()
}

func (b *Bridge) activate(id string) error {
	msg, err := protocol.NewActivateMessage(id)
	if err != nil {
		return err
	}
	return b.send(msg)
}

// Stats contains bridge statistics
type Stats struct {
	Connected        bool   `json:"connected"`
	Ready            bool   `json:"ready"`
	Targets          int    `json:"targets"`
	MessagesReceived uint64 `json:"messages_received"`
	MessagesSent     uint64 `json:"messages_sent"`
	Predictions      uint64 `json:"predictions"`
}

// GetStats returns bridge statistics
func (b *Bridge) GetStats() Stats {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return Stats{
		Connected:        b.conn != nil,
		Ready:            b.ready,
		Targets:          len(b.owned),
		MessagesReceived: b.messagesReceived.Load(),
		MessagesSent:     b.messagesSent.Load(),
		Predictions:      b.predictions.Load(),
	}
}
