package app

import (
	"encoding/json"
	"errors"
	"math"
	"time"

	"github.com/roman-kulish/motor-ramp/internal/control"
	"github.com/roman-kulish/motor-ramp/internal/flight"
)

const (
	minAltitudeSpan = 0.5  // meters
	altitudePadding = 0.1  // share of the span added above and below
	throttleStep    = 5000 // throttle axis is rounded up to a multiple of this
)

var ErrEmptyTrace = errors.New("flight has no altitude samples nor setpoints")

// Point is a single value of a series
type Point struct {
	Timestamp time.Time
	Value     float64
}

// PhaseBand is a time range during which setpoints were sent in one phase
type PhaseBand struct {
	Phase      string
	Start, End time.Time
}

// AltitudeBounds is the altitude range mapped onto the plot height
type AltitudeBounds struct {
	Min, Max float64
}

// Span returns the height of the range in meters
func (b AltitudeBounds) Span() float64 {
	return b.Max - b.Min
}

type TraceData struct {
	Width, Height                int
	Flight                       *flight.Flight
	TimestampStart, TimestampEnd time.Time

	Altitude    []Point
	Throttle    []Point
	Phases      []PhaseBand
	Events      []flight.Event
	Target      *float64
	Bounds      AltitudeBounds
	ThrottleMax float64
}

// NewTraceData prepares trace for rendering into a width x height plot area
func NewTraceData(trace *flight.Trace, width, height int) (*TraceData, error) {
	t := &TraceData{
		Width:          width,
		Height:         height,
		Flight:         trace.Flight,
		TimestampStart: trace.Start(),
		TimestampEnd:   trace.End(),
		Events:         trace.Events,
		Bounds:         AltitudeBounds{Min: math.MaxFloat64, Max: -math.MaxFloat64},
	}

	for _, s := range trace.Telemetry {
		if s.Altitude == nil {
			continue
		}
		t.Altitude = append(t.Altitude, Point{Timestamp: s.Timestamp, Value: *s.Altitude})
		t.updateBounds(*s.Altitude)
	}

	var maxThrust float64
	for _, sp := range trace.Setpoints {
		t.Throttle = append(t.Throttle, Point{Timestamp: sp.Timestamp, Value: float64(sp.Thrust)})
		maxThrust = max(maxThrust, float64(sp.Thrust))

		if n := len(t.Phases); n > 0 && t.Phases[n-1].Phase == sp.Phase {
			t.Phases[n-1].End = sp.Timestamp
			continue
		}
		if n := len(t.Phases); n > 0 {
			t.Phases[n-1].End = sp.Timestamp
		}
		t.Phases = append(t.Phases, PhaseBand{Phase: sp.Phase, Start: sp.Timestamp, End: sp.Timestamp})
	}

	if len(t.Altitude) == 0 && len(t.Throttle) == 0 {
		return nil, ErrEmptyTrace
	}

	if len(t.Altitude) > 0 {
		if climb, ok := holdClimb(trace.Flight); ok {
			target := t.Altitude[0].Value + climb
			t.Target = &target
			t.updateBounds(target)
		}
	} else {
		t.Bounds = AltitudeBounds{Min: 0, Max: minAltitudeSpan}
	}

	t.padBounds()
	t.ThrottleMax = math.Max(throttleStep, math.Ceil(maxThrust*1.1/throttleStep)*throttleStep)

	if !t.TimestampEnd.After(t.TimestampStart) {
		t.TimestampEnd = t.TimestampStart.Add(time.Second)
	}
	return t, nil
}

func (t *TraceData) updateBounds(v float64) {
	t.Bounds.Min = min(t.Bounds.Min, v)
	t.Bounds.Max = max(t.Bounds.Max, v)
}

func (t *TraceData) padBounds() {
	span := t.Bounds.Span()
	if span < minAltitudeSpan {
		mid := t.Bounds.Min + span/2
		t.Bounds.Min, t.Bounds.Max = mid-minAltitudeSpan/2, mid+minAltitudeSpan/2
		span = minAltitudeSpan
	}
	t.Bounds.Min -= span * altitudePadding
	t.Bounds.Max += span * altitudePadding
}

// Duration returns the time covered by the plot
func (t *TraceData) Duration() time.Duration {
	return t.TimestampEnd.Sub(t.TimestampStart)
}

// X returns the plot column of ts
func (t *TraceData) X(ts time.Time) float64 {
	ratio := float64(ts.Sub(t.TimestampStart)) / float64(t.Duration())
	return ratio * float64(t.Width)
}

// AltitudeY returns the plot row of an altitude, 0 is the top row
func (t *TraceData) AltitudeY(altitude float64) float64 {
	ratio := (altitude - t.Bounds.Min) / t.Bounds.Span()
	return float64(t.Height) * (1 - ratio)
}

// ThrottleY returns the plot row of a thrust value
func (t *TraceData) ThrottleY(thrust float64) float64 {
	return float64(t.Height) * (1 - thrust/t.ThrottleMax)
}

// holdClimb reads the climb of the altitude hold law from the recorded
// session configuration
func holdClimb(f *flight.Flight) (float64, bool) {
	if f == nil || f.Mode != control.StrategyHold || f.Config == nil {
		return 0, false
	}

	var config struct {
		Control struct {
			Hold control.HoldConfig `json:"hold"`
		} `json:"control"`
	}
	if err := json.Unmarshal([]byte(*f.Config), &config); err != nil {
		return 0, false
	}
	return config.Control.Hold.Climb, true
}
