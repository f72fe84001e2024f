// Package server exposes the dashboard over HTTP: a JSON API for one-shot reads
// and commands, a websocket endpoint that streams a live session per client,
// and the Prometheus metrics endpoint.
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	zderrors "github.com/rileyhilliard/zonedash/internal/errors"
	"github.com/rileyhilliard/zonedash/internal/logger"
	"github.com/rileyhilliard/zonedash/internal/metrics"
	"github.com/rileyhilliard/zonedash/internal/relay"
	"github.com/rileyhilliard/zonedash/internal/session"
	"github.com/rileyhilliard/zonedash/internal/store"
	"github.com/rileyhilliard/zonedash/internal/telemetry"
	"golang.org/x/time/rate"
)

const (
	// ShutdownTimeout bounds how long Run waits for open requests on exit.
	ShutdownTimeout = 10 * time.Second

	// DefaultCommandRate and DefaultCommandBurst apply when Config leaves them zero.
	DefaultCommandRate  = 2.0
	DefaultCommandBurst = 4

	maxCommandBody = 4 << 10
)

// Config holds the server settings.
type Config struct {
	Listen        string
	Nodes         telemetry.Nodes
	DefaultNode   string
	Interval      time.Duration
	HistoryPoints int
	CommandRate   float64
	CommandBurst  int
}

// Server serves the API, live sessions and metrics.
type Server struct {
	cfg        Config
	fetcher    store.Fetcher
	dispatcher relay.Dispatcher
	metrics    *metrics.Recorder
	gatherer   prometheus.Gatherer
	limiter    *rate.Limiter
	router     *mux.Router
	upgrader   websocket.Upgrader
	log        logger.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithMetrics records activity to rec and serves gatherer on /metrics.
func WithMetrics(rec *metrics.Recorder, gatherer prometheus.Gatherer) Option {
	return func(s *Server) {
		s.metrics = rec
		s.gatherer = gatherer
	}
}

// WithLogger sets the server logger.
func WithLogger(log logger.Logger) Option {
	return func(s *Server) {
		s.log = log
	}
}

// New creates a server. dispatcher may be nil, in which case commands fail
// with a descriptive outcome.
func New(cfg Config, fetcher store.Fetcher, dispatcher relay.Dispatcher, opts ...Option) *Server {
	if cfg.CommandRate <= 0 {
		cfg.CommandRate = DefaultCommandRate
	}
	if cfg.CommandBurst <= 0 {
		cfg.CommandBurst = DefaultCommandBurst
	}
	if cfg.Interval <= 0 {
		cfg.Interval = session.DefaultInterval
	}
	cfg.DefaultNode = cfg.Nodes.Default(cfg.DefaultNode)

	s := &Server{
		cfg:        cfg,
		fetcher:    fetcher,
		dispatcher: dispatcher,
		limiter:    rate.NewLimiter(rate.Limit(cfg.CommandRate), cfg.CommandBurst),
		router:     mux.NewRouter(),
		log:        logger.Noop(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// No end-user auth; any origin may open a live session.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.gatherer == nil {
		s.gatherer = prometheus.NewRegistry()
	}
	s.setupRoutes()
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupRoutes() {
	s.router.Use(corsMiddleware)
	s.router.Use(s.loggingMiddleware)

	s.router.HandleFunc("/api/nodes", s.getNodes).Methods(http.MethodGet, http.MethodOptions)
	s.router.HandleFunc("/api/nodes/{node}/last", s.getLast).Methods(http.MethodGet, http.MethodOptions)
	s.router.HandleFunc("/api/nodes/{node}/commands", s.postCommand).Methods(http.MethodPost, http.MethodOptions)
	s.router.HandleFunc("/ws", s.serveLive).Methods(http.MethodGet)

	s.router.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	s.router.HandleFunc("/healthz", s.getHealth).Methods(http.MethodGet)
}

// Run listens on cfg.Listen until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Listen)
	if err != nil {
		return zderrors.WrapWithCode(err, zderrors.ErrServer,
			"Couldn't listen on "+s.cfg.Listen,
			"Pick a free address with --listen or server.listen")
	}
	return s.Serve(ctx, ln)
}

// Serve handles connections from ln until ctx is canceled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("listening on %s", ln.Addr())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return zderrors.WrapWithCode(err, zderrors.ErrServer, "Server stopped unexpectedly", "")
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()

	s.log.Info("shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return zderrors.WrapWithCode(err, zderrors.ErrServer, "Shutdown timed out", "")
	}
	return nil
}

type nodesResponse struct {
	Nodes   []string `json:"nodes"`
	Default string   `json:"default"`
}

type lastResponse struct {
	Node     string              `json:"node"`
	State    session.State       `json:"state"`
	Snapshot *telemetry.Snapshot `json:"snapshot,omitempty"`
	Error    string              `json:"error,omitempty"`
}

type healthResponse struct {
	Status  string `json:"status"`
	Breaker string `json:"breaker,omitempty"`
}

func (s *Server) getNodes(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, nodesResponse{Nodes: s.cfg.Nodes, Default: s.cfg.DefaultNode})
}

func (s *Server) getLast(w http.ResponseWriter, r *http.Request) {
	node := mux.Vars(r)["node"]
	if !s.cfg.Nodes.Contains(node) {
		http.Error(w, "Node not found", http.StatusNotFound)
		return
	}

	start := time.Now()
	snap, err := s.fetcher.Fetch(r.Context(), node)
	if r.Context().Err() != nil {
		return
	}
	resp := lastResponse{Node: node, Snapshot: snap}
	switch {
	case err != nil:
		resp.State = session.StateUnreachable
		resp.Error = zderrors.Summary(err)
	case snap == nil:
		resp.State = session.StateEmpty
	default:
		resp.State = session.StateLive
	}
	s.metrics.ObserveFetch(node, string(resp.State), time.Since(start), -1)

	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) postCommand(w http.ResponseWriter, r *http.Request) {
	node := mux.Vars(r)["node"]
	if !s.cfg.Nodes.Contains(node) {
		http.Error(w, "Node not found", http.StatusNotFound)
		return
	}

	var payload relay.Payload
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxCommandBody)).Decode(&payload); err != nil {
		http.Error(w, "Invalid command body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if payload.Name() == "" {
		http.Error(w, `Command body needs a "cmd" field`, http.StatusBadRequest)
		return
	}

	if !s.limiter.Allow() {
		s.metrics.Throttled()
		w.Header().Set("Retry-After", "1")
		http.Error(w, "Too many commands", http.StatusTooManyRequests)
		return
	}

	outcome := s.dispatch(r.Context(), node, payload)
	status := http.StatusOK
	if !outcome.Success {
		status = http.StatusBadGateway
	}
	s.writeJSON(w, status, outcome)
}

func (s *Server) getHealth(w http.ResponseWriter, _ *http.Request) {
	resp := healthResponse{Status: "ok"}
	if b, ok := s.fetcher.(interface{ BreakerState() string }); ok {
		resp.Breaker = b.BreakerState()
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// dispatch relays a command made through the API.
func (s *Server) dispatch(ctx context.Context, node string, payload relay.Payload) relay.Outcome {
	if s.dispatcher == nil {
		return relay.Unconfigured
	}
	out := s.dispatcher.Send(ctx, node, payload)
	s.metrics.ObserveDispatch(node, payload.Name(), out.Success)
	s.log.Info("api: %s -> %s: %s", payload.Name(), node, out.Message)
	return out
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		s.log.Warn("encoding response: %v", err)
		http.Error(w, "Cannot encode response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}
