package replay

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-gaze/pkg/gaze"
	"github.com/teslashibe/go-gaze/pkg/protocol"
)

func TestReadTrace(t *testing.T) {
	in := `{"t_ms":0,"point":{"x":10,"y":20},"anchor":{"x":1,"y":2}}

{"t_ms":33,"point":null}
{"t_ms":66,"pointer":{"action":"click","x":5,"y":6}}
`
	frames, err := ReadTrace(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, frames, 3)

	assert.Equal(t, &gaze.Point{X: 10, Y: 20}, frames[0].Point)
	assert.Equal(t, &gaze.Point{X: 1, Y: 2}, frames[0].Anchor)
	assert.Nil(t, frames[1].Point)
	assert.Equal(t, 66*time.Millisecond, frames[2].Offset())
	assert.Equal(t, gaze.SampleClick, frames[2].Pointer.Action)
}

func TestReadTrace_Errors(t *testing.T) {
	_, err := ReadTrace(strings.NewReader("{\"t_ms\":0}\nnope\n"))
	assert.ErrorContains(t, err, "line 2")

	_, err = ReadTrace(strings.NewReader("{\"t_ms\":50}\n{\"t_ms\":10}\n"))
	assert.ErrorContains(t, err, "before previous frame")
}

func TestWriteTrace_RoundTrip(t *testing.T) {
	frames := DefaultFixation(gaze.Point{X: 500, Y: 500}).Frames()[:3]

	var buf bytes.Buffer
	require.NoError(t, WriteTrace(&buf, frames))

	back, err := ReadTrace(&buf)
	require.NoError(t, err)
	assert.Equal(t, frames, back)
}

func TestFixation_Frames(t *testing.T) {
	anchor := gaze.Point{X: 320, Y: 240}
	fx := DefaultFixation(gaze.Point{X: 500, Y: 400})
	fx.Anchor = &anchor

	frames := fx.Frames()
	require.Len(t, frames, 91) // 0..2970ms at 33ms

	for i, f := range frames {
		require.NotNil(t, f.Point)
		assert.InDelta(t, 20, f.Point.Distance(fx.Center), 1e-9, "frame %d", i)
		assert.Equal(t, anchor, *f.Anchor)
	}
	assert.EqualValues(t, 2970, frames[90].OffsetMs)

	assert.Nil(t, Fixation{}.Frames())
}

// providerServer accepts one provider socket and records its messages.
type providerServer struct {
	*httptest.Server
	mu   sync.Mutex
	msgs []*protocol.Message
}

func newProviderServer(t *testing.T, onConnect func(*websocket.Conn)) *providerServer {
	t.Helper()
	ps := &providerServer{}
	upgrader := websocket.Upgrader{}
	ps.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer ws.Close()
		if onConnect != nil {
			onConnect(ws)
		}
		for {
			_, data, err := ws.ReadMessage()
			if err != nil {
				return
			}
			msg, err := protocol.ParseMessage(data)
			if err != nil {
				continue
			}
			ps.mu.Lock()
			ps.msgs = append(ps.msgs, msg)
			ps.mu.Unlock()
		}
	}))
	t.Cleanup(ps.Close)
	return ps
}

func (ps *providerServer) url() string {
	return "ws" + strings.TrimPrefix(ps.URL, "http")
}

func (ps *providerServer) types() []protocol.MessageType {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	out := make([]protocol.MessageType, len(ps.msgs))
	for i, m := range ps.msgs {
		out[i] = m.Type
	}
	return out
}

func TestClient_AnnounceAndPlay(t *testing.T) {
	ps := newProviderServer(t, nil)

	c, err := Dial(context.Background(), ps.url(), nil)
	require.NoError(t, err)

	targets := []protocol.TargetData{{ID: "next", Rect: gaze.Rect{X: 400, Y: 400, Width: 200, Height: 200}, Visible: true, Enabled: true}}
	require.NoError(t, c.Announce(1920, 1080, targets))

	frames := []Frame{
		{OffsetMs: 0, Point: &gaze.Point{X: 1, Y: 1}},
		{OffsetMs: 10, Pointer: &Pointer{Action: gaze.SampleMove, X: 2, Y: 2}},
	}
	require.NoError(t, c.Play(context.Background(), frames, 0))

	want := []protocol.MessageType{
		protocol.TypeStatus, protocol.TypeScreen, protocol.TypeTargets,
		protocol.TypePrediction, protocol.TypePointer,
	}
	require.Eventually(t, func() bool { return len(ps.types()) == len(want) }, time.Second, 5*time.Millisecond)
	assert.Equal(t, want, ps.types())
	assert.EqualValues(t, 5, c.Stats().Sent)

	require.NoError(t, c.Close())
}

func TestClient_CountsServerMessages(t *testing.T) {
	ps := newProviderServer(t, func(ws *websocket.Conn) {
		for _, build := range []func() (*protocol.Message, error){
			func() (*protocol.Message, error) { return protocol.NewTrainMessage(1, 2, gaze.SampleMove) },
			func() (*protocol.Message, error) { return protocol.NewTrainMessage(1, 2, gaze.SampleClick) },
			protocol.NewRefreshMessage,
			func() (*protocol.Message, error) { return protocol.NewActivateMessage("next") },
		} {
			msg, _ := build()
			data, _ := msg.Bytes()
			ws.WriteMessage(websocket.TextMessage, data)
		}
	})

	var mu sync.Mutex
	var activated []string
	c, err := Dial(context.Background(), ps.url(), func(m *protocol.Message) {
		if a, err := m.GetActivateData(); err == nil && m.Type == protocol.TypeActivate {
			mu.Lock()
			activated = append(activated, a.ID)
			mu.Unlock()
		}
	})
	require.NoError(t, err)
	defer c.Close()

	require.Eventually(t, func() bool { return c.Stats().Activated == 1 }, time.Second, 5*time.Millisecond)
	st := c.Stats()
	assert.EqualValues(t, 2, st.Train)
	assert.EqualValues(t, 1, st.Refresh)

	mu.Lock()
	assert.Equal(t, []string{"next"}, activated)
	mu.Unlock()
}

func TestClient_PlayHonoursContext(t *testing.T) {
	ps := newProviderServer(t, nil)
	c, err := Dial(context.Background(), ps.url(), nil)
	require.NoError(t, err)
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	frames := []Frame{{OffsetMs: 0}, {OffsetMs: 10_000}}
	err = c.Play(ctx, frames, 1)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.EqualValues(t, 1, c.Stats().Sent)
}
