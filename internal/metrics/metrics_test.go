package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := New(reg)

	r.ObserveFetch("node1", ResultLive, 20*time.Millisecond, 3)
	r.ObserveFetch("node1", ResultLive, 30*time.Millisecond, 4)
	r.ObserveFetch("node1", ResultUnreachable, time.Second, 4)
	r.ObserveDispatch("node2", "set_rgb", true)
	r.ObserveDispatch("node2", "set_rgb", false)
	r.ObserveDispatch("node2", "set_rgb", false)
	r.SessionOpened()
	r.SessionOpened()
	r.SessionClosed()
	r.Throttled()

	assert.Equal(t, 2.0, testutil.ToFloat64(r.fetches.WithLabelValues("node1", ResultLive)))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.fetches.WithLabelValues("node1", ResultUnreachable)))
	assert.Equal(t, 4.0, testutil.ToFloat64(r.historyPoints.WithLabelValues("node1")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.dispatches.WithLabelValues("node2", "set_rgb", "true")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.dispatches.WithLabelValues("node2", "set_rgb", "false")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.sessions))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.throttled))
	assert.Equal(t, 1, testutil.CollectAndCount(r.fetchLatency))
}

func TestRecorder_Nil(t *testing.T) {
	var r *Recorder
	assert.NotPanics(t, func() {
		r.ObserveFetch("node1", ResultEmpty, time.Millisecond, 0)
		r.ObserveDispatch("node1", "force_send", true)
		r.SessionOpened()
		r.SessionClosed()
		r.Throttled()
	})
}
