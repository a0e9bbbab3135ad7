package hub

import (
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-gaze/pkg/protocol"
)

const (
	// writeWait is how long to wait for a write to complete
	writeWait = 10 * time.Second

	// pongWait is how long to wait for a pong response
	pongWait = 60 * time.Second

	// pingPeriod must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Observers only send subscriptions
	maxMessageSize = 4 * 1024

	// Per-observer queue; a full queue drops the observer
	sendBuffer = 256
)

// Client is one observer connection on /ws/events
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan Message

	mu  sync.Mutex
	sub subscription
}

// Handler returns the fiber handler for the observer endpoint. Requests
// that are not websocket upgrades get 426.
func (h *Hub) Handler() fiber.Handler {
	ws := websocket.New(func(c *websocket.Conn) {
		client := &Client{
			hub:  h,
			conn: c,
			send: make(chan Message, sendBuffer),
		}
		if !h.join(client) {
			c.Close()
			return
		}
		go client.writePump()
		client.readPump()
	})
	return func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		return ws(c)
	}
}

// join registers c with the running hub. It fails once Run has returned.
func (h *Hub) join(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (c *Client) wants(m Message) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sub.wants(m)
}

func (c *Client) subscribe(msg *protocol.Message) {
	data, err := msg.GetSubscribeData()
	if err != nil {
		c.hub.logger.Debug("invalid subscription", "error", err)
		return
	}
	c.mu.Lock()
	c.sub = newSubscription(data.Kinds)
	c.mu.Unlock()
	c.hub.logger.Debug("observer subscribed", "kinds", data.Kinds)
}

// readPump applies subscriptions and detects disconnection. It returns
// when the connection closes.
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		msg, err := protocol.ParseMessage(data)
		if err != nil {
			continue
		}
		if msg.Type == protocol.TypeSubscribe {
			c.subscribe(msg)
		}
	}
}

// writePump is the only writer on the connection. It exits when the hub
// closes the send channel or a write fails.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message.Data); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
