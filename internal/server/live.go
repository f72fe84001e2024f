package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rileyhilliard/zonedash/internal/relay"
	"github.com/rileyhilliard/zonedash/internal/session"
)

// Live message types.
const (
	MsgHello   = "hello"
	MsgFrame   = "frame"
	MsgOutcome = "outcome"
	MsgError   = "error"

	MsgSelect  = "select"
	MsgRefresh = "refresh"
	MsgCommand = "command"
)

const (
	writeWait  = 5 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	maxInbound = 4 << 10
	outboxSize = 16
)

// Outbound is a message pushed to a live client.
type Outbound struct {
	Type    string         `json:"type"`
	Session string         `json:"session,omitempty"`
	Nodes   []string       `json:"nodes,omitempty"`
	Node    string         `json:"node,omitempty"`
	Command string         `json:"command,omitempty"`
	Frame   *session.Frame `json:"frame,omitempty"`
	Outcome *relay.Outcome `json:"outcome,omitempty"`
	Error   string         `json:"error,omitempty"`
}

// Inbound is a message received from a live client.
type Inbound struct {
	Type    string        `json:"type"`
	Node    string        `json:"node,omitempty"`
	Payload relay.Payload `json:"payload,omitempty"`
}

// liveConn is one websocket client and the session it owns.
type liveConn struct {
	srv     *Server
	conn    *websocket.Conn
	session *session.Session
	poller  *session.Poller
	outbox  chan Outbound
	wg      sync.WaitGroup
}

func (s *Server) serveLive(w http.ResponseWriter, r *http.Request) {
	node := r.URL.Query().Get("node")
	if node == "" {
		node = s.cfg.DefaultNode
	}
	if !s.cfg.Nodes.Contains(node) {
		http.Error(w, "Node not found", http.StatusNotFound)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already replied to the client.
		s.log.Debug("websocket upgrade: %v", err)
		return
	}

	sess := session.New(s.fetcher, s.dispatcher, session.Options{
		HistoryPoints: s.cfg.HistoryPoints,
		Metrics:       s.metrics,
		Logger:        s.log,
	})
	lc := &liveConn{
		srv:     s,
		conn:    conn,
		session: sess,
		poller:  session.NewPoller(sess, node, s.cfg.Interval),
		outbox:  make(chan Outbound, outboxSize),
	}

	s.metrics.SessionOpened()
	s.log.Info("live session %s opened for %s (%s)", sess.ID(), node, r.RemoteAddr)
	lc.run(r.Context())
	s.metrics.SessionClosed()
	s.log.Info("live session %s closed", sess.ID())
}

// run serves the connection until the client goes away or ctx is canceled.
// The writer goroutine is the only one that writes to the socket.
func (lc *liveConn) run(parent context.Context) {
	ctx, cancel := context.WithCancel(parent)

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		lc.writeLoop(ctx)
		cancel()
	}()

	lc.send(ctx, Outbound{Type: MsgHello, Session: lc.session.ID(), Nodes: lc.srv.cfg.Nodes, Node: lc.poller.Node()})

	lc.wg.Add(1)
	go func() {
		defer lc.wg.Done()
		lc.poller.Run(ctx, func(f session.Frame) {
			frame := f
			lc.send(ctx, Outbound{Type: MsgFrame, Node: f.Node, Frame: &frame})
		})
	}()

	go func() {
		// Unblock ReadJSON when the server shuts down.
		<-ctx.Done()
		lc.conn.Close()
	}()

	lc.readLoop(ctx)
	cancel()
	lc.wg.Wait()
	<-writerDone
}

func (lc *liveConn) readLoop(ctx context.Context) {
	lc.conn.SetReadLimit(maxInbound)
	_ = lc.conn.SetReadDeadline(time.Now().Add(pongWait))
	lc.conn.SetPongHandler(func(string) error {
		return lc.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg Inbound
		if err := lc.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				lc.srv.log.Debug("live session %s: read: %v", lc.session.ID(), err)
			}
			return
		}
		lc.handle(ctx, msg)
	}
}

func (lc *liveConn) handle(ctx context.Context, msg Inbound) {
	switch msg.Type {
	case MsgSelect:
		if !lc.srv.cfg.Nodes.Contains(msg.Node) {
			lc.send(ctx, Outbound{Type: MsgError, Node: msg.Node, Error: "unknown node " + msg.Node})
			return
		}
		lc.poller.Select(msg.Node)
	case MsgRefresh:
		lc.poller.Trigger()
	case MsgCommand:
		lc.command(ctx, msg)
	default:
		lc.send(ctx, Outbound{Type: MsgError, Error: "unknown message type " + msg.Type})
	}
}

// command dispatches off the read loop so a slow relay never delays refreshes
// or further client messages.
func (lc *liveConn) command(ctx context.Context, msg Inbound) {
	node := msg.Node
	if node == "" {
		node = lc.poller.Node()
	}
	name := msg.Payload.Name()

	switch {
	case !lc.srv.cfg.Nodes.Contains(node):
		lc.send(ctx, Outbound{Type: MsgError, Node: node, Error: "unknown node " + node})
		return
	case name == "":
		lc.send(ctx, Outbound{Type: MsgError, Node: node, Error: `command payload needs a "cmd" field`})
		return
	case !lc.srv.limiter.Allow():
		lc.srv.metrics.Throttled()
		out := relay.Outcome{Success: false, Message: "too many commands"}
		lc.send(ctx, Outbound{Type: MsgOutcome, Node: node, Command: name, Outcome: &out})
		return
	}

	lc.wg.Add(1)
	go func() {
		defer lc.wg.Done()
		out := lc.session.Dispatch(ctx, node, msg.Payload)
		lc.send(ctx, Outbound{Type: MsgOutcome, Node: node, Command: name, Outcome: &out})
	}()
}

// send queues msg for the writer. It drops msg once the connection is closing.
func (lc *liveConn) send(ctx context.Context, msg Outbound) {
	select {
	case lc.outbox <- msg:
	case <-ctx.Done():
	}
}

func (lc *liveConn) writeLoop(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = lc.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
			return
		case msg := <-lc.outbox:
			_ = lc.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := lc.conn.WriteJSON(msg); err != nil {
				lc.srv.log.Debug("live session %s: write: %v", lc.session.ID(), err)
				return
			}
		case <-ticker.C:
			if err := lc.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}
