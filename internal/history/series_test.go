package history

import (
	"testing"
	"time"

	"github.com/rileyhilliard/zonedash/internal/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeries_InsertDropsZeroTime(t *testing.T) {
	s := NewSeries(5)
	s.Insert(Point{Temperature: ptr(1)}, false)
	assert.Equal(t, 0, s.Len())
}

func TestSeries_EqualTimesWithoutReplaceKeepInsertionOrder(t *testing.T) {
	s := NewSeries(5)
	ts := time.Unix(100, 0)
	s.Insert(Point{Time: ts, Temperature: ptr(1)}, false)
	s.Insert(Point{Time: ts, Temperature: ptr(2)}, false)

	points := s.Points()
	require.Len(t, points, 2)
	assert.Equal(t, 1.0, *points[0].Temperature)
	assert.Equal(t, 2.0, *points[1].Temperature)
}

func TestSeries_InsertMiddle(t *testing.T) {
	s := NewSeries(5)
	s.Insert(Point{Time: time.Unix(10, 0)}, false)
	s.Insert(Point{Time: time.Unix(30, 0)}, false)
	s.Insert(Point{Time: time.Unix(20, 0)}, false)

	points := s.Points()
	require.Len(t, points, 3)
	assert.Equal(t, int64(10), points[0].Time.Unix())
	assert.Equal(t, int64(20), points[1].Time.Unix())
	assert.Equal(t, int64(30), points[2].Time.Unix())
}

func TestSeries_CapacityNeverExceeded(t *testing.T) {
	s := NewSeries(3)
	for i := 0; i < 10; i++ {
		s.Insert(Point{Time: time.Unix(int64(i), 0)}, false)
		assert.LessOrEqual(t, s.Len(), 3)
	}
	assert.Equal(t, 3, s.Capacity())
	assert.Equal(t, int64(7), s.Points()[0].Time.Unix())
}

func TestSeries_DefaultCapacity(t *testing.T) {
	assert.Empty(t, NewSeries(0).Points())
	assert.Equal(t, DefaultCapacity, NewSeries(0).Capacity())
}

func TestPoint_Value(t *testing.T) {
	p := Point{Temperature: ptr(1), Humidity: ptr(2), Luminosity: ptr(3), Sound: ptr(4), FanState: ptr(1)}
	assert.Equal(t, 1.0, *p.Value(telemetry.Temperature))
	assert.Equal(t, 2.0, *p.Value(telemetry.Humidity))
	assert.Equal(t, 3.0, *p.Value(telemetry.Luminosity))
	assert.Equal(t, 4.0, *p.Value(telemetry.Sound))
	assert.Equal(t, 1.0, *p.Value(telemetry.FanState))
	assert.Nil(t, p.Value(telemetry.Metric(99)))
}
