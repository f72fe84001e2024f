// Package history keeps the bounded, time-ordered series of snapshots that the
// dashboard charts. Each Aggregator belongs to a single viewing session and
// lives only as long as that session.
package history

import (
	"sync"
	"time"

	"github.com/rileyhilliard/zonedash/internal/telemetry"
)

// DefaultCapacity is the default number of points retained per node.
const DefaultCapacity = 120

// Aggregator manages one Series per node.
// It provides thread-safe access so a background refresh can append while a
// renderer reads.
type Aggregator struct {
	mu       sync.RWMutex
	capacity int
	nodes    map[string]*Series
	now      func() time.Time
}

// NewAggregator creates an aggregator whose series hold at most capacity points.
func NewAggregator(capacity int) *Aggregator {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Aggregator{
		capacity: capacity,
		nodes:    make(map[string]*Series),
		now:      time.Now,
	}
}

// SetClock replaces the wall clock used for snapshots without a usable timestamp.
func (a *Aggregator) SetClock(now func() time.Time) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.now = now
}

// Capacity returns the per-node point limit.
func (a *Aggregator) Capacity() int {
	return a.capacity
}

// Append records a fetched snapshot for node and returns the updated series.
//
// The point's time is the snapshot's own timestamp when it is usable, otherwise
// the wall-clock time of ingestion. A snapshot that carries the same device
// timestamp as an existing point replaces that point, so polling faster than a
// node publishes does not fill the chart with duplicates.
func (a *Aggregator) Append(node string, snap *telemetry.Snapshot) []Point {
	a.mu.Lock()
	defer a.mu.Unlock()

	series := a.getOrCreate(node)
	if snap == nil {
		return series.Points()
	}

	ts, fromDevice := snap.Time()
	if !fromDevice {
		ts = a.now()
	}

	series.Insert(Point{
		Time:        ts,
		Temperature: copyValue(snap.Temperature),
		Humidity:    copyValue(snap.Humidity),
		Luminosity:  copyValue(snap.Luminosity),
		Sound:       copyValue(snap.Sound),
		FanState:    copyValue(snap.FanState),
	}, fromDevice)

	return series.Points()
}

// Points returns a copy of the node's series, oldest first.
func (a *Aggregator) Points(node string) []Point {
	a.mu.RLock()
	defer a.mu.RUnlock()

	series, ok := a.nodes[node]
	if !ok {
		return nil
	}
	return series.Points()
}

// Values returns the last count present readings of a metric for node, oldest first.
// Points where the metric is absent are skipped.
func (a *Aggregator) Values(node string, m telemetry.Metric, count int) []float64 {
	a.mu.RLock()
	defer a.mu.RUnlock()

	series, ok := a.nodes[node]
	if !ok {
		return nil
	}
	return series.values(m, count)
}

// Count returns the number of points stored for node.
func (a *Aggregator) Count(node string) int {
	a.mu.RLock()
	defer a.mu.RUnlock()

	series, ok := a.nodes[node]
	if !ok {
		return 0
	}
	return series.Len()
}

// getOrCreate returns the series for node, creating it if needed.
// Must be called with a.mu held.
func (a *Aggregator) getOrCreate(node string) *Series {
	series, ok := a.nodes[node]
	if !ok {
		series = NewSeries(a.capacity)
		a.nodes[node] = series
	}
	return series
}

func copyValue(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
