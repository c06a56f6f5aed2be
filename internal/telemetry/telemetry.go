package telemetry

import (
	"sync"
	"time"

	"github.com/roman-kulish/motor-ramp/internal/link"
)

// Log variables of the device TOC used by this package
const (
	VarBaroASL          = "baro.asl"
	VarBaroPressure     = "baro.pressure"
	VarBaroTemp         = "baro.temp"
	VarStabilizerRoll   = "stabilizer.roll"
	VarStabilizerPitch  = "stabilizer.pitch"
	VarStabilizerYaw    = "stabilizer.yaw"
	VarStabilizerThrust = "stabilizer.thrust"
	VarBatteryVoltage   = "pm.vbat"
)

const (
	DefaultLogConfigName = "Barometer"
	DefaultLogPeriod     = 100 * time.Millisecond
)

type Provider interface {
	Get() *Telemetry
}

// Telemetry is the telemetry data from the drone sensors
type Telemetry struct {
	Timestamp   time.Time `json:"timestamp"`             // Timestamp of telemetry measurement
	Altitude    *float64  `json:"altitude,omitempty"`    // Barometric altitude in meters ASL
	Pressure    *float64  `json:"pressure,omitempty"`    // Barometric pressure in hPa
	Temperature *float64  `json:"temperature,omitempty"` // Barometer temperature in °C
	Roll        *float64  `json:"roll,omitempty"`        // Roll angle in degrees
	Pitch       *float64  `json:"pitch,omitempty"`       // Pitch angle in degrees
	Yaw         *float64  `json:"yaw,omitempty"`         // Yaw angle in degrees
	Thrust      *float64  `json:"thrust,omitempty"`      // Motor thrust as reported by the stabilizer
	Battery     *float64  `json:"battery,omitempty"`     // Battery voltage in V
}

// DefaultLogConfig returns the barometer and attitude log configuration
func DefaultLogConfig() link.LogConfig {
	return link.LogConfig{
		Name:   DefaultLogConfigName,
		Period: DefaultLogPeriod,
		Variables: []link.LogVariable{
			{Name: VarBaroASL, Type: "float"},
			{Name: VarBaroPressure, Type: "float"},
			{Name: VarStabilizerPitch, Type: "float"},
			{Name: VarStabilizerYaw, Type: "float"},
			{Name: VarStabilizerRoll, Type: "float"},
			{Name: VarStabilizerThrust, Type: "float"},
		},
	}
}

// FromSample maps a log sample onto Telemetry, variables missing from the
// sample are left nil
func FromSample(s link.Sample) *Telemetry {
	t := Telemetry{Timestamp: s.Timestamp}

	fields := map[string]**float64{
		VarBaroASL:          &t.Altitude,
		VarBaroPressure:     &t.Pressure,
		VarBaroTemp:         &t.Temperature,
		VarStabilizerRoll:   &t.Roll,
		VarStabilizerPitch:  &t.Pitch,
		VarStabilizerYaw:    &t.Yaw,
		VarStabilizerThrust: &t.Thrust,
		VarBatteryVoltage:   &t.Battery,
	}
	for name, field := range fields {
		if v, ok := s.Values[name]; ok {
			*field = &v
		}
	}

	return &t
}

// Latest keeps the most recent telemetry record
type Latest struct {
	mu    sync.RWMutex
	last  *Telemetry
	count uint64
}

// Update replaces the latest record
func (l *Latest) Update(t *Telemetry) {
	l.mu.Lock()
	l.last = t
	l.count++
	l.mu.Unlock()
}

// Get returns the latest record, nil before the first update
func (l *Latest) Get() *Telemetry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.last
}

// Count returns the number of records seen
func (l *Latest) Count() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.count
}
