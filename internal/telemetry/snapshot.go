// Package telemetry defines the sensor data model shared by the fetcher,
// the history aggregator and the presentation layers.
package telemetry

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// maxEpochMillis is 9999-12-31T23:59:59.999Z; anything later is treated as garbage.
const maxEpochMillis = 253402300799999

// Metric identifies one of the measured values carried by a Snapshot.
type Metric int

const (
	Temperature Metric = iota
	Humidity
	Luminosity
	Sound
	FanState
)

// AllMetrics lists every metric in display order.
var AllMetrics = []Metric{Temperature, Humidity, Luminosity, Sound, FanState}

// Key returns the JSON field name used by the store.
func (m Metric) Key() string {
	switch m {
	case Temperature:
		return "temperature"
	case Humidity:
		return "humidity"
	case Luminosity:
		return "luminosity"
	case Sound:
		return "sound"
	case FanState:
		return "fan_state"
	default:
		return "unknown"
	}
}

// Label returns a short human-readable label with its unit.
func (m Metric) Label() string {
	switch m {
	case Temperature:
		return "Temp (°C)"
	case Humidity:
		return "Hum (%)"
	case Luminosity:
		return "Lum (ADC)"
	case Sound:
		return "Sound (ADC)"
	case FanState:
		return "Fan"
	default:
		return "?"
	}
}

// Snapshot is the latest known reading of one node. Every field is optional:
// a nil pointer means the store did not report it, which is distinct from zero.
type Snapshot struct {
	Temperature *float64 `json:"temperature,omitempty"`
	Humidity    *float64 `json:"humidity,omitempty"`
	Luminosity  *float64 `json:"luminosity,omitempty"`
	Sound       *float64 `json:"sound,omitempty"`
	FanState    *float64 `json:"fan_state,omitempty"`
	// TS is the device timestamp in milliseconds since the Unix epoch.
	TS *float64 `json:"ts,omitempty"`

	// Raw is the exact document returned by the store.
	Raw json.RawMessage `json:"-"`
}

// Decode parses a store document. A JSON null, an empty body or an empty object
// means no data has been written for the node yet and yields (nil, nil).
// Individual fields that are not numeric are treated as absent.
func Decode(data []byte) (*Snapshot, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return nil, fmt.Errorf("snapshot is not a JSON object: %w", err)
	}
	if len(fields) == 0 {
		return nil, nil
	}

	raw := make(json.RawMessage, len(trimmed))
	copy(raw, trimmed)

	return &Snapshot{
		Temperature: numberField(fields["temperature"]),
		Humidity:    numberField(fields["humidity"]),
		Luminosity:  numberField(fields["luminosity"]),
		Sound:       numberField(fields["sound"]),
		FanState:    numberField(fields["fan_state"]),
		TS:          numberField(fields["ts"]),
		Raw:         raw,
	}, nil
}

// numberField accepts JSON numbers, numeric strings and booleans.
// finite returns &f, or nil for NaN and infinities.
func finite(f float64) *float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

func numberField(raw json.RawMessage) *float64 {
	if len(raw) == 0 {
		return nil
	}

	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return finite(f)
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		parsed, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return nil
		}
		return finite(parsed)
	}

	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		v := 0.0
		if b {
			v = 1
		}
		return &v
	}

	return nil
}

// Value returns the reading for a metric, or nil if absent.
func (s *Snapshot) Value(m Metric) *float64 {
	if s == nil {
		return nil
	}
	switch m {
	case Temperature:
		return s.Temperature
	case Humidity:
		return s.Humidity
	case Luminosity:
		return s.Luminosity
	case Sound:
		return s.Sound
	case FanState:
		return s.FanState
	default:
		return nil
	}
}

// Time converts TS to a wall-clock time. The second result is false when the
// timestamp is absent or cannot represent a real instant (NaN, infinite,
// negative or past year 9999).
func (s *Snapshot) Time() (time.Time, bool) {
	if s == nil || s.TS == nil {
		return time.Time{}, false
	}
	return MillisToTime(*s.TS)
}

// MillisToTime converts epoch milliseconds to a time, rejecting unusable values.
func MillisToTime(ms float64) (time.Time, bool) {
	if math.IsNaN(ms) || math.IsInf(ms, 0) || ms < 0 || ms > maxEpochMillis {
		return time.Time{}, false
	}
	sec := math.Floor(ms / 1000)
	nsec := (ms - sec*1000) * float64(time.Millisecond)
	return time.Unix(int64(sec), int64(nsec)), true
}

// FanOn reports the fan state. known is false when the node did not report one.
func (s *Snapshot) FanOn() (on, known bool) {
	if s == nil || s.FanState == nil {
		return false, false
	}
	return *s.FanState != 0, true
}

// FormatValue renders a metric for display, using an em dash for absent values.
func FormatValue(m Metric, v *float64) string {
	if v == nil {
		return "—"
	}
	if m == FanState {
		switch *v {
		case 1:
			return "ON"
		case 0:
			return "OFF"
		default:
			return "—"
		}
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
