package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rileyhilliard/zonedash/internal/relay"
	"github.com/rileyhilliard/zonedash/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// liveFixture serves f over a real listener; ticks are effectively disabled so
// frames only follow the initial refresh and explicit requests.
func liveFixture(t *testing.T) (*fixture, *httptest.Server) {
	t.Helper()
	f := newFixture(t, Config{Interval: time.Hour})
	ts := httptest.NewServer(f.srv.Handler())
	t.Cleanup(ts.Close)
	return f, ts
}

func dialLive(t *testing.T, ts *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	u := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws" + query
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

// next reads messages until one of type typ arrives.
func next(t *testing.T, conn *websocket.Conn, typ string) Outbound {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	for {
		var msg Outbound
		require.NoError(t, conn.ReadJSON(&msg))
		if msg.Type == typ {
			return msg
		}
	}
}

func TestLive_HelloAndFirstFrame(t *testing.T) {
	_, ts := liveFixture(t)
	conn := dialLive(t, ts, "")

	hello := next(t, conn, MsgHello)
	assert.NotEmpty(t, hello.Session)
	assert.Equal(t, []string{"node1", "node2"}, hello.Nodes)
	assert.Equal(t, "node2", hello.Node, "default node when none is given")

	frame := next(t, conn, MsgFrame)
	require.NotNil(t, frame.Frame)
	assert.Equal(t, "node2", frame.Frame.Node)
	assert.Equal(t, session.StateLive, frame.Frame.State)
	assert.Len(t, frame.Frame.Points, 1)
}

func TestLive_NonFiniteReadingStillFrames(t *testing.T) {
	f, ts := liveFixture(t)
	f.fetcher.mu.Lock()
	f.fetcher.snaps["node2"] = `{"temperature": "NaN", "humidity": "Infinity", "sound": 12, "ts": 1700000001000}`
	f.fetcher.mu.Unlock()

	conn := dialLive(t, ts, "?node=node2")
	frame := next(t, conn, MsgFrame)
	require.NotNil(t, frame.Frame)
	assert.Equal(t, session.StateLive, frame.Frame.State)
	require.NotNil(t, frame.Frame.Snapshot)
	assert.Nil(t, frame.Frame.Snapshot.Temperature)
	assert.Nil(t, frame.Frame.Snapshot.Humidity)
	require.NotNil(t, frame.Frame.Snapshot.Sound)
	assert.Equal(t, 12.0, *frame.Frame.Snapshot.Sound)

	require.NoError(t, conn.WriteJSON(Inbound{Type: MsgRefresh}))
	frame = next(t, conn, MsgFrame)
	assert.Len(t, frame.Frame.Points, 2, "connection survives the bad reading")
}

func TestLive_UnknownNode(t *testing.T) {
	_, ts := liveFixture(t)
	u := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws?node=attic"

	_, resp, err := websocket.DefaultDialer.Dial(u, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestLive_RefreshAndSelect(t *testing.T) {
	_, ts := liveFixture(t)
	conn := dialLive(t, ts, "?node=node2")
	next(t, conn, MsgFrame)

	require.NoError(t, conn.WriteJSON(Inbound{Type: MsgRefresh}))
	frame := next(t, conn, MsgFrame)
	assert.Len(t, frame.Frame.Points, 2, "refresh appends to the session series")

	require.NoError(t, conn.WriteJSON(Inbound{Type: MsgSelect, Node: "node1"}))
	frame = next(t, conn, MsgFrame)
	assert.Equal(t, "node1", frame.Frame.Node)
	assert.Equal(t, session.StateEmpty, frame.Frame.State)

	require.NoError(t, conn.WriteJSON(Inbound{Type: MsgSelect, Node: "attic"}))
	msg := next(t, conn, MsgError)
	assert.Contains(t, msg.Error, "unknown node attic")
}

func TestLive_Command(t *testing.T) {
	f, ts := liveFixture(t)
	conn := dialLive(t, ts, "?node=node1")
	next(t, conn, MsgFrame)

	require.NoError(t, conn.WriteJSON(Inbound{Type: MsgCommand, Payload: relay.NightMode(true)}))
	msg := next(t, conn, MsgOutcome)
	require.NotNil(t, msg.Outcome)
	assert.True(t, msg.Outcome.Success)
	assert.Equal(t, relay.CmdNightMode, msg.Command)
	assert.Equal(t, "node1", msg.Node, "commands target the selected node by default")

	require.NoError(t, conn.WriteJSON(Inbound{Type: MsgCommand, Node: "node2", Payload: relay.ForceSend()}))
	msg = next(t, conn, MsgOutcome)
	assert.Equal(t, "node2", msg.Node)

	f.dispatcher.mu.Lock()
	assert.Equal(t, []string{"node1", "node2"}, f.dispatcher.nodes)
	f.dispatcher.mu.Unlock()

	require.NoError(t, conn.WriteJSON(Inbound{Type: MsgCommand, Payload: relay.Payload{"enable": true}}))
	msg = next(t, conn, MsgError)
	assert.Contains(t, msg.Error, "cmd")

	require.NoError(t, conn.WriteJSON(Inbound{Type: "dance"}))
	msg = next(t, conn, MsgError)
	assert.Contains(t, msg.Error, "unknown message type")
}

func TestLive_SessionsAreIsolated(t *testing.T) {
	_, ts := liveFixture(t)

	a := dialLive(t, ts, "")
	next(t, a, MsgFrame)
	require.NoError(t, a.WriteJSON(Inbound{Type: MsgRefresh}))
	assert.Len(t, next(t, a, MsgFrame).Frame.Points, 2)

	b := dialLive(t, ts, "")
	first := next(t, b, MsgFrame)
	assert.Len(t, first.Frame.Points, 1, "a new session starts with an empty series")
}

func TestLive_SessionGauge(t *testing.T) {
	f, ts := liveFixture(t)
	conn := dialLive(t, ts, "")
	next(t, conn, MsgFrame)

	assert.Equal(t, 1.0, gaugeValue(t, f, "zonedash_active_sessions"))

	require.NoError(t, conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))
	conn.Close()

	assert.Eventually(t, func() bool {
		return gaugeValue(t, f, "zonedash_active_sessions") == 0
	}, 3*time.Second, 10*time.Millisecond)
}

func gaugeValue(t *testing.T, f *fixture, name string) float64 {
	t.Helper()
	families, err := f.reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() == name {
			return mf.GetMetric()[0].GetGauge().GetValue()
		}
	}
	return 0
}
