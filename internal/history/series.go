package history

import (
	"sort"
	"time"

	"github.com/rileyhilliard/zonedash/internal/telemetry"
)

// Point is one row of a node's history: the resolved time plus every metric,
// any of which may be absent.
type Point struct {
	Time        time.Time `json:"time"`
	Temperature *float64  `json:"temperature"`
	Humidity    *float64  `json:"humidity"`
	Luminosity  *float64  `json:"luminosity"`
	Sound       *float64  `json:"sound"`
	FanState    *float64  `json:"fan_state"`
}

// Value returns the point's reading for a metric, or nil if absent.
func (p Point) Value(m telemetry.Metric) *float64 {
	switch m {
	case telemetry.Temperature:
		return p.Temperature
	case telemetry.Humidity:
		return p.Humidity
	case telemetry.Luminosity:
		return p.Luminosity
	case telemetry.Sound:
		return p.Sound
	case telemetry.FanState:
		return p.FanState
	default:
		return nil
	}
}

// Series is a time-ordered buffer of points with a hard capacity.
// Points are kept sorted ascending by Time; when full, the oldest by time are evicted.
// Series is not safe for concurrent use; Aggregator provides the locking.
type Series struct {
	points   []Point
	capacity int
}

// NewSeries creates an empty series holding at most capacity points.
func NewSeries(capacity int) *Series {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Series{
		points:   make([]Point, 0, capacity+1),
		capacity: capacity,
	}
}

// Insert places p at its sorted position and trims the series back to capacity.
// Points with a zero time are dropped. When replace is true and a point with the
// exact same time already exists, it is overwritten instead of duplicated.
func (s *Series) Insert(p Point, replace bool) {
	if p.Time.IsZero() {
		return
	}

	// New readings almost always land at the end, so the search is usually trivial.
	idx := sort.Search(len(s.points), func(i int) bool {
		return s.points[i].Time.After(p.Time)
	})

	if replace && idx > 0 && s.points[idx-1].Time.Equal(p.Time) {
		s.points[idx-1] = p
		return
	}

	s.points = append(s.points, Point{})
	copy(s.points[idx+1:], s.points[idx:])
	s.points[idx] = p

	if excess := len(s.points) - s.capacity; excess > 0 {
		n := copy(s.points, s.points[excess:])
		clear(s.points[n:])
		s.points = s.points[:n]
	}
}

// Len returns the number of stored points.
func (s *Series) Len() int {
	return len(s.points)
}

// Capacity returns the maximum number of points retained.
func (s *Series) Capacity() int {
	return s.capacity
}

// Points returns a deep copy of the stored points, oldest first.
func (s *Series) Points() []Point {
	out := make([]Point, len(s.points))
	for i, p := range s.points {
		out[i] = p.clone()
	}
	return out
}

func (p Point) clone() Point {
	return Point{
		Time:        p.Time,
		Temperature: copyValue(p.Temperature),
		Humidity:    copyValue(p.Humidity),
		Luminosity:  copyValue(p.Luminosity),
		Sound:       copyValue(p.Sound),
		FanState:    copyValue(p.FanState),
	}
}

// values returns up to count present readings for m, oldest first.
func (s *Series) values(m telemetry.Metric, count int) []float64 {
	if count <= 0 {
		return nil
	}
	var out []float64
	for _, p := range s.points {
		if v := p.Value(m); v != nil {
			out = append(out, *v)
		}
	}
	if len(out) > count {
		out = out[len(out)-count:]
	}
	return out
}
