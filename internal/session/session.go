// Package session holds the state of one dashboard viewer.
//
// A Session owns its own history buffers and shares the process-wide store
// client and command dispatcher. Nothing mutable is shared between sessions,
// so concurrent viewers never interleave writes to the same series.
package session

import (
	"context"
	"time"

	"github.com/google/uuid"
	zderrors "github.com/rileyhilliard/zonedash/internal/errors"
	"github.com/rileyhilliard/zonedash/internal/history"
	"github.com/rileyhilliard/zonedash/internal/logger"
	"github.com/rileyhilliard/zonedash/internal/metrics"
	"github.com/rileyhilliard/zonedash/internal/relay"
	"github.com/rileyhilliard/zonedash/internal/store"
	"github.com/rileyhilliard/zonedash/internal/telemetry"
)

// State describes what the last refresh found.
type State string

const (
	// StateLive means the store returned a snapshot.
	StateLive State = "live"
	// StateEmpty means the node has never reported.
	StateEmpty State = "empty"
	// StateUnreachable means the fetch failed. Points still holds the stale series.
	StateUnreachable State = "unreachable"
)

// Frame is the result of one refresh: everything a view needs to render a node.
type Frame struct {
	Node      string              `json:"node"`
	State     State               `json:"state"`
	Snapshot  *telemetry.Snapshot `json:"snapshot,omitempty"`
	Error     string              `json:"error,omitempty"`
	Points    []history.Point     `json:"points"`
	FetchedAt time.Time           `json:"fetched_at"`
	Latency   time.Duration       `json:"-"`

	// Err is the fetch error behind StateUnreachable.
	Err error `json:"-"`
}

// Options tunes a Session.
type Options struct {
	HistoryPoints int
	Metrics       *metrics.Recorder
	Logger        logger.Logger
}

// Session is one viewer's state.
type Session struct {
	id         string
	history    *history.Aggregator
	fetcher    store.Fetcher
	dispatcher relay.Dispatcher
	metrics    *metrics.Recorder
	log        logger.Logger
}

// New creates a session with an empty history. dispatcher may be nil, in which
// case every command fails with a descriptive outcome.
func New(fetcher store.Fetcher, dispatcher relay.Dispatcher, opts Options) *Session {
	log := opts.Logger
	if log == nil {
		log = logger.Noop()
	}
	return &Session{
		id:         uuid.NewString(),
		history:    history.NewAggregator(opts.HistoryPoints),
		fetcher:    fetcher,
		dispatcher: dispatcher,
		metrics:    opts.Metrics,
		log:        log,
	}
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// History returns the session's aggregator for read access.
func (s *Session) History() *history.Aggregator {
	return s.history
}

// Refresh fetches the latest snapshot of node, appends it to the history and
// returns the resulting frame. It never fails: fetch errors become StateUnreachable.
func (s *Session) Refresh(ctx context.Context, node string) Frame {
	start := time.Now()
	snap, err := s.fetcher.Fetch(ctx, node)
	elapsed := time.Since(start)

	frame := Frame{Node: node, FetchedAt: time.Now(), Latency: elapsed}
	switch {
	case err != nil:
		frame.State = StateUnreachable
		frame.Err = err
		frame.Error = zderrors.Summary(err)
		frame.Points = s.history.Points(node)
		s.log.Debug("session %s: %s unreachable: %s", s.short(), node, frame.Error)
	case snap == nil:
		frame.State = StateEmpty
		frame.Points = s.history.Points(node)
	default:
		frame.State = StateLive
		frame.Snapshot = snap
		frame.Points = s.history.Append(node, snap)
	}

	if ctx.Err() == nil {
		s.metrics.ObserveFetch(node, string(frame.State), elapsed, len(frame.Points))
	}
	return frame
}

// Dispatch sends a command for node. It does not touch the history.
func (s *Session) Dispatch(ctx context.Context, node string, payload relay.Payload) relay.Outcome {
	if s.dispatcher == nil {
		return relay.Unconfigured
	}
	out := s.dispatcher.Send(ctx, node, payload)
	s.metrics.ObserveDispatch(node, payload.Name(), out.Success)
	s.log.Info("session %s: %s -> %s: %s", s.short(), payload.Name(), node, out.Message)
	return out
}

func (s *Session) short() string {
	if len(s.id) > 8 {
		return s.id[:8]
	}
	return s.id
}
