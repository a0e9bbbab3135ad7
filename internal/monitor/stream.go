package monitor

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gorilla/websocket"

	"github.com/teslashibe/go-gaze/internal/log"
	"github.com/teslashibe/go-gaze/pkg/gaze"
	"github.com/teslashibe/go-gaze/pkg/protocol"
)

// Reconnect backoff bounds
const (
	minBackoff = 500 * time.Millisecond
	maxBackoff = 10 * time.Second
)

// Stream reads /ws/events at url and forwards every event to send
// (typically (*tea.Program).Send), reconnecting until ctx is cancelled.
// A non-empty kinds list subscribes to those event kinds only.
func Stream(ctx context.Context, url string, kinds []gaze.EventKind, send func(tea.Msg)) {
	logger := log.With("component", "monitor")
	dialer := websocket.Dialer{HandshakeTimeout: 5 * time.Second}
	backoff := minBackoff

	for ctx.Err() == nil {
		ws, _, err := dialer.DialContext(ctx, url, nil)
		if err != nil {
			send(ConnMsg{Err: err})
			logger.Debug("event stream dial failed", "url", url, "error", err, "retry", backoff)
			if !sleep(ctx, backoff) {
				return
			}
			backoff = min(backoff*2, maxBackoff)
			continue
		}

		backoff = minBackoff
		send(ConnMsg{Connected: true})
		if len(kinds) > 0 {
			err = subscribe(ws, kinds)
		}
		if err == nil {
			err = readEvents(ctx, ws, send)
		}
		ws.Close()
		if ctx.Err() != nil {
			return
		}
		send(ConnMsg{Err: err})
		if !sleep(ctx, backoff) {
			return
		}
	}
}

func subscribe(ws *websocket.Conn, kinds []gaze.EventKind) error {
	msg, err := protocol.NewSubscribeMessage(kinds...)
	if err != nil {
		return err
	}
	data, err := msg.Bytes()
	if err != nil {
		return err
	}
	return ws.WriteMessage(websocket.TextMessage, data)
}

func readEvents(ctx context.Context, ws *websocket.Conn, send func(tea.Msg)) error {
	// Unblock ReadMessage when ctx ends
	stop := context.AfterFunc(ctx, func() { ws.Close() })
	defer stop()

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			return err
		}
		msg, err := protocol.ParseMessage(data)
		if err != nil || msg.Type != protocol.TypeEvent {
			continue
		}
		e, err := msg.GetEvent()
		if err != nil {
			continue
		}
		send(EventMsg(*e))
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
