package server

import (
	"context"
	"encoding/json"
	"math"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	zderrors "github.com/rileyhilliard/zonedash/internal/errors"
	"github.com/rileyhilliard/zonedash/internal/metrics"
	"github.com/rileyhilliard/zonedash/internal/relay"
	"github.com/rileyhilliard/zonedash/internal/session"
	"github.com/rileyhilliard/zonedash/internal/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubFetcher struct {
	mu    sync.Mutex
	snaps map[string]string
	err   error
}

func (f *stubFetcher) Fetch(_ context.Context, node string) (*telemetry.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	body, ok := f.snaps[node]
	if !ok {
		return nil, nil
	}
	return telemetry.Decode([]byte(body))
}

func (f *stubFetcher) BreakerState() string { return "closed" }

type stubDispatcher struct {
	mu       sync.Mutex
	outcome  relay.Outcome
	nodes    []string
	payloads []relay.Payload
}

func (d *stubDispatcher) Send(_ context.Context, node string, p relay.Payload) relay.Outcome {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nodes = append(d.nodes, node)
	d.payloads = append(d.payloads, p)
	return d.outcome
}

func (d *stubDispatcher) sent() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.payloads)
}

type fixture struct {
	srv        *Server
	reg        *prometheus.Registry
	fetcher    *stubFetcher
	dispatcher *stubDispatcher
}

func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()
	if cfg.Nodes == nil {
		cfg.Nodes = telemetry.Nodes{"node1", "node2"}
	}
	if cfg.DefaultNode == "" {
		cfg.DefaultNode = "node2"
	}
	if cfg.HistoryPoints == 0 {
		cfg.HistoryPoints = 10
	}

	reg := prometheus.NewRegistry()
	f := &fixture{
		reg: reg,
		fetcher: &stubFetcher{snaps: map[string]string{
			"node2": `{"temperature": 24.5, "humidity": 41, "fan_state": 1, "ts": 1700000001000}`,
		}},
		dispatcher: &stubDispatcher{outcome: relay.Outcome{Success: true, Message: "OK (200)"}},
	}
	f.srv = New(cfg, f.fetcher, f.dispatcher, WithMetrics(metrics.New(reg), reg))
	return f
}

func (f *fixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	f.srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestGetNodes(t *testing.T) {
	f := newFixture(t, Config{})
	rec := f.do(t, http.MethodGet, "/api/nodes", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	var resp nodesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, []string{"node1", "node2"}, resp.Nodes)
	assert.Equal(t, "node2", resp.Default)
}

func TestNew_UnknownDefaultFallsBackToFirstNode(t *testing.T) {
	f := newFixture(t, Config{DefaultNode: "attic"})
	assert.Equal(t, "node1", f.srv.cfg.DefaultNode)
	assert.Equal(t, session.DefaultInterval, f.srv.cfg.Interval)
}

func TestPreflight(t *testing.T) {
	f := newFixture(t, Config{})
	rec := f.do(t, http.MethodOptions, "/api/nodes/node2/commands", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "POST")
	assert.Equal(t, 0, f.dispatcher.sent())
}

func TestGetLast(t *testing.T) {
	tests := []struct {
		name      string
		node      string
		err       error
		wantCode  int
		wantState session.State
		wantError string
	}{
		{name: "live", node: "node2", wantCode: http.StatusOK, wantState: session.StateLive},
		{name: "never reported", node: "node1", wantCode: http.StatusOK, wantState: session.StateEmpty},
		{
			name:      "unreachable",
			node:      "node2",
			err:       zderrors.New(zderrors.ErrFetch, "Store unreachable", "Check store.url"),
			wantCode:  http.StatusOK,
			wantState: session.StateUnreachable,
			wantError: "Store unreachable",
		},
		{name: "unknown node", node: "attic", wantCode: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, Config{})
			f.fetcher.err = tt.err

			rec := f.do(t, http.MethodGet, "/api/nodes/"+tt.node+"/last", "")
			require.Equal(t, tt.wantCode, rec.Code)
			if tt.wantCode != http.StatusOK {
				return
			}

			var resp lastResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.node, resp.Node)
			assert.Equal(t, tt.wantState, resp.State)
			assert.Contains(t, resp.Error, tt.wantError)
			if tt.wantState == session.StateLive {
				require.NotNil(t, resp.Snapshot)
				require.NotNil(t, resp.Snapshot.Temperature)
				assert.Equal(t, 24.5, *resp.Snapshot.Temperature)
			} else {
				assert.Nil(t, resp.Snapshot)
			}
		})
	}
}

func TestGetLast_NonFiniteReading(t *testing.T) {
	f := newFixture(t, Config{})
	f.fetcher.snaps["node2"] = `{"temperature": "NaN", "luminosity": "-Inf", "humidity": 41}`

	rec := f.do(t, http.MethodGet, "/api/nodes/node2/last", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp lastResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, session.StateLive, resp.State)
	require.NotNil(t, resp.Snapshot)
	assert.Nil(t, resp.Snapshot.Temperature)
	assert.Nil(t, resp.Snapshot.Luminosity)
	assert.Equal(t, 41.0, *resp.Snapshot.Humidity)
}

func TestWriteJSON_EncodeFailure(t *testing.T) {
	f := newFixture(t, Config{})
	rec := httptest.NewRecorder()

	f.srv.writeJSON(rec, http.StatusOK, map[string]float64{"x": math.NaN()})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), `"x"`)
}

func TestGetLast_RecordsFetch(t *testing.T) {
	f := newFixture(t, Config{})
	f.do(t, http.MethodGet, "/api/nodes/node2/last", "")
	f.do(t, http.MethodGet, "/api/nodes/node2/last", "")

	n, err := testutil.GatherAndCount(f.reg, "zonedash_fetch_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n, "one live series for node2")

	hp, err := testutil.GatherAndCount(f.reg, "zonedash_history_points")
	require.NoError(t, err)
	assert.Zero(t, hp, "stateless reads hold no history")
}

func TestPostCommand(t *testing.T) {
	tests := []struct {
		name     string
		node     string
		body     string
		outcome  relay.Outcome
		wantCode int
		wantSent int
	}{
		{
			name:     "success",
			node:     "node2",
			body:     `{"cmd": "set_rgb", "r": 1, "g": 2, "b": 3}`,
			outcome:  relay.Outcome{Success: true, Message: "OK (200)"},
			wantCode: http.StatusOK,
			wantSent: 1,
		},
		{
			name:     "relay failure",
			node:     "node2",
			body:     `{"cmd": "force_send"}`,
			outcome:  relay.Outcome{Success: false, Message: "HTTP 500: boom"},
			wantCode: http.StatusBadGateway,
			wantSent: 1,
		},
		{name: "unknown node", node: "attic", body: `{"cmd": "force_send"}`, wantCode: http.StatusNotFound},
		{name: "bad json", node: "node2", body: `{"cmd":`, wantCode: http.StatusBadRequest},
		{name: "missing cmd", node: "node2", body: `{"enable": true}`, wantCode: http.StatusBadRequest},
		{name: "non-string cmd", node: "node2", body: `{"cmd": 7}`, wantCode: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, Config{})
			f.dispatcher.outcome = tt.outcome

			rec := f.do(t, http.MethodPost, "/api/nodes/"+tt.node+"/commands", tt.body)
			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, tt.wantSent, f.dispatcher.sent())

			if tt.wantSent > 0 {
				var out relay.Outcome
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
				assert.Equal(t, tt.outcome, out)
				assert.Equal(t, tt.node, f.dispatcher.nodes[0])
			}
		})
	}
}

func TestPostCommand_PassesPayloadThrough(t *testing.T) {
	f := newFixture(t, Config{})
	rec := f.do(t, http.MethodPost, "/api/nodes/node1/commands", `{"cmd": "fan_set_threshold", "threshold": 28, "hyst": 1.5}`)
	require.Equal(t, http.StatusOK, rec.Code)

	require.Len(t, f.dispatcher.payloads, 1)
	p := f.dispatcher.payloads[0]
	assert.Equal(t, relay.CmdFanSetThreshold, p.Name())
	assert.Equal(t, 28.0, p["threshold"])
	assert.Equal(t, 1.5, p["hyst"])
	assert.Equal(t, 1.0, gatheredValue(t, f.reg, "zonedash_dispatch_total"))
}

func TestPostCommand_Throttled(t *testing.T) {
	f := newFixture(t, Config{CommandRate: 0.001, CommandBurst: 2})

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		rec := f.do(t, http.MethodPost, "/api/nodes/node2/commands", `{"cmd": "force_send"}`)
		codes = append(codes, rec.Code)
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
	assert.Equal(t, 2, f.dispatcher.sent())
	assert.Equal(t, 1.0, gatheredValue(t, f.reg, "zonedash_commands_throttled_total"))
}

func TestPostCommand_NoDispatcher(t *testing.T) {
	reg := prometheus.NewRegistry()
	srv := New(Config{Nodes: telemetry.Nodes{"node1"}}, &stubFetcher{}, nil, WithMetrics(metrics.New(reg), reg))

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/nodes/node1/commands", strings.NewReader(`{"cmd": "force_send"}`)))

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), relay.Unconfigured.Message)
	n, err := testutil.GatherAndCount(reg, "zonedash_dispatch_total")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestHealthAndMetrics(t *testing.T) {
	f := newFixture(t, Config{})

	rec := f.do(t, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status": "ok", "breaker": "closed"}`, rec.Body.String())

	f.do(t, http.MethodGet, "/api/nodes/node2/last", "")
	rec = f.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `zonedash_fetch_total{node="node2",result="live"} 1`)
}

func TestServe_ShutsDownOnCancel(t *testing.T) {
	f := newFixture(t, Config{})
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.srv.Serve(ctx, ln) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(ShutdownTimeout):
		t.Fatal("server did not stop")
	}
}

func TestRun_ListenError(t *testing.T) {
	f := newFixture(t, Config{Listen: "256.0.0.1:bad"})
	err := f.srv.Run(context.Background())
	require.Error(t, err)
	assert.True(t, zderrors.IsCode(err, zderrors.ErrServer))
}

func gatheredValue(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() == name {
			return mf.GetMetric()[0].GetCounter().GetValue()
		}
	}
	t.Fatalf("metric %s not found", name)
	return 0
}
