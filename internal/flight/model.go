package flight

import (
	"time"

	"github.com/roman-kulish/motor-ramp/internal/telemetry"
)

// Flight is a single recorded session with one device.
type Flight struct {
	ID        int64      `json:"ID"`                      // Unique identifier for the flight
	StartTime time.Time  `json:"startTime"`               // When the session began
	EndTime   *time.Time `json:"endTime,omitempty"`       // When the link was released, nil if the session never finished
	LinkURI   string     `json:"linkURI"`                 // Link identifier of the device, e.g. "sim://0"
	Mode      string     `json:"mode"`                    // Control strategy name, "hold" or "manual"
	Config    *string    `json:"config,string,omitempty"` // Optional session configuration in JSON format
}

// Duration returns how long the flight lasted, zero when unfinished
func (f *Flight) Duration() time.Duration {
	if f.EndTime == nil {
		return 0
	}
	return f.EndTime.Sub(f.StartTime)
}

// Setpoint is a setpoint accepted by the link, tagged with the transmission
// phase it was sent in.
type Setpoint struct {
	Timestamp time.Time `json:"timestamp"`
	Phase     string    `json:"phase"`
	Roll      float32   `json:"roll"`
	Pitch     float32   `json:"pitch"`
	YawRate   float32   `json:"yawRate"`
	Thrust    uint16    `json:"thrust"`
}

// Event kinds
const (
	EventLink      = "link"
	EventTelemetry = "telemetry"
	EventControl   = "control"
)

// Event is a notable occurrence during a flight
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Kind      string    `json:"kind"`
	Message   string    `json:"message"`
}

// Trace is everything recorded for one flight, each series ordered by time.
type Trace struct {
	Flight    *Flight                `json:"flight"`
	Telemetry []*telemetry.Telemetry `json:"telemetry,omitempty"`
	Setpoints []Setpoint             `json:"setpoints,omitempty"`
	Events    []Event                `json:"events,omitempty"`
}

// Start returns the timestamp of the earliest record, or the flight start
func (t *Trace) Start() time.Time {
	start := t.Flight.StartTime
	if len(t.Telemetry) > 0 && t.Telemetry[0].Timestamp.Before(start) {
		start = t.Telemetry[0].Timestamp
	}
	if len(t.Setpoints) > 0 && t.Setpoints[0].Timestamp.Before(start) {
		start = t.Setpoints[0].Timestamp
	}
	return start
}

// End returns the timestamp of the latest record, or the flight end
func (t *Trace) End() time.Time {
	end := t.Flight.StartTime
	if t.Flight.EndTime != nil {
		end = *t.Flight.EndTime
	}
	if n := len(t.Telemetry); n > 0 && t.Telemetry[n-1].Timestamp.After(end) {
		end = t.Telemetry[n-1].Timestamp
	}
	if n := len(t.Setpoints); n > 0 && t.Setpoints[n-1].Timestamp.After(end) {
		end = t.Setpoints[n-1].Timestamp
	}
	return end
}
