package replay

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/teslashibe/go-gaze/internal/log"
	"github.com/teslashibe/go-gaze/pkg/protocol"
)

// Stats counts server messages received during a replay
type Stats struct {
	Sent      uint64 `json:"sent"`
	Train     uint64 `json:"train"`
	Refresh   uint64 `json:"refresh"`
	Activated uint64 `json:"activated"`
}

// Client is a provider-side connection to /ws/provider
type Client struct {
	ws     *websocket.Conn
	wsMu   sync.Mutex
	logger *slog.Logger
	done   chan struct{}

	onMessage func(*protocol.Message)

	sent      atomic.Uint64
	train     atomic.Uint64
	refresh   atomic.Uint64
	activated atomic.Uint64
}

// Dial connects to a provider socket URL such as
// ws://localhost:8080/ws/provider. onMessage, if set, is called from the
// read goroutine for every server message.
func Dial(ctx context.Context, url string, onMessage func(*protocol.Message)) (*Client, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	ws, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", url, err)
	}

	c := &Client{
		ws:        ws,
		logger:    log.With("component", "replay"),
		done:      make(chan struct{}),
		onMessage: onMessage,
	}
	go c.readLoop()
	return c, nil
}

func (c *Client) readLoop() {
	defer close(c.done)
	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.Warn("provider socket closed", "error", err)
			}
			return
		}

		msg, err := protocol.ParseMessage(data)
		if err != nil {
			c.logger.Debug("ignoring malformed message", "error", err)
			continue
		}

		switch msg.Type {
		case protocol.TypeTrain:
			c.train.Add(1)
		case protocol.TypeRefresh:
			c.refresh.Add(1)
		case protocol.TypeActivate:
			c.activated.Add(1)
			if a, err := msg.GetActivateData(); err == nil {
				c.logger.Info("target activated", "target", a.ID)
			}
		}
		if c.onMessage != nil {
			c.onMessage(msg)
		}
	}
}

// Send writes one message
func (c *Client) Send(msg *protocol.Message) error {
	data, err := msg.Bytes()
	if err != nil {
		return err
	}

	c.wsMu.Lock()
	defer c.wsMu.Unlock()
	c.ws.SetWriteDeadline(time.Now().Add(5 * time.Second))
	if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
		return err
	}
	c.sent.Add(1)
	return nil
}

// Announce sends the provider status, the screen size and the targets, as
// the page does on load.
func (c *Client) Announce(width, height float64, targets []protocol.TargetData) error {
	status, err := protocol.NewMessage(protocol.TypeStatus, protocol.StatusData{Ready: true})
	if err != nil {
		return err
	}
	screen, err := protocol.NewScreenMessage(width, height)
	if err != nil {
		return err
	}
	msgs := []*protocol.Message{status, screen}

	if len(targets) > 0 {
		tm, err := protocol.NewTargetsMessage(targets, true)
		if err != nil {
			return err
		}
		msgs = append(msgs, tm)
	}

	for _, m := range msgs {
		if err := c.Send(m); err != nil {
			return err
		}
	}
	return nil
}

// Play sends frames paced by their offsets divided by speed. A speed of
// zero or less sends as fast as possible.
func (c *Client) Play(ctx context.Context, frames []Frame, speed float64) error {
	start := time.Now()
	for i, f := range frames {
		if speed > 0 {
			due := start.Add(time.Duration(float64(f.Offset()) / speed))
			if wait := time.Until(due); wait > 0 {
				timer := time.NewTimer(wait)
				select {
				case <-ctx.Done():
					timer.Stop()
					return ctx.Err()
				case <-timer.C:
				}
			}
		} else if err := ctx.Err(); err != nil {
			return err
		}

		msg, err := frameMessage(f)
		if err != nil {
			return fmt.Errorf("frame %d: %w", i, err)
		}
		if err := c.Send(msg); err != nil {
			return fmt.Errorf("frame %d: %w", i, err)
		}
	}
	c.logger.Info("replay finished", "frames", len(frames), "elapsed", time.Since(start).Round(time.Millisecond))
	return nil
}

func frameMessage(f Frame) (*protocol.Message, error) {
	if f.Pointer != nil {
		return protocol.NewPointerMessage(f.Pointer.Action, f.Pointer.X, f.Pointer.Y)
	}
	return protocol.NewPredictionMessage(f.Point, f.Anchor)
}

// Stats returns message counters
func (c *Client) Stats() Stats {
	return Stats{
		Sent:      c.sent.Load(),
		Train:     c.train.Load(),
		Refresh:   c.refresh.Load(),
		Activated: c.activated.Load(),
	}
}

// Close sends a close frame and waits briefly for the server to hang up
func (c *Client) Close() error {
	c.wsMu.Lock()
	err := c.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	c.wsMu.Unlock()

	select {
	case <-c.done:
	case <-time.After(time.Second):
	}
	if cerr := c.ws.Close(); err == nil {
		err = cerr
	}
	return err
}
