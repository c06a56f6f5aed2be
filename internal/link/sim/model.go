package sim

import (
	"math"
	"time"

	"github.com/roman-kulish/motor-ramp/internal/link"
)

const (
	gravity        = 9.81                   // m/s²
	drag           = 0.8                    // Linear vertical drag coefficient, 1/s
	attitudeLag    = 100 * time.Millisecond // Time constant of the attitude response
	commandTimeout = 500 * time.Millisecond // Setpoints older than this are dropped
	noiseFrequency = 1.3                    // Hz, barometer wobble
	seaLevelHPa    = 1013.25
)

// model is a crude vertical-axis quadcopter: thrust above the hover point
// climbs, below it sinks, and the ground stops the fall.
type model struct {
	base  float64 // Ground altitude ASL in meters
	hover float64 // Thrust that exactly balances gravity
	noise float64 // Amplitude of the barometer wobble in meters

	altitude float64
	velocity float64
	roll     float64
	pitch    float64
	yaw      float64

	command     link.Setpoint
	commandedAt time.Duration
	locked      bool
	elapsed     time.Duration
}

func newModel(base, hover, noise float64) *model {
	return &model{
		base:     base,
		hover:    hover,
		noise:    noise,
		altitude: base,
		locked:   true,
	}
}

// apply accepts a setpoint. Until an all-zero setpoint has been seen the
// thrust lock stays engaged and every command is ignored.
func (m *model) apply(sp link.Setpoint) {
	if m.locked {
		if !sp.IsZero() {
			return
		}
		m.locked = false
	}

	m.command = sp
	m.commandedAt = m.elapsed
}

// thrust returns the thrust currently driving the motors
func (m *model) thrust() uint16 {
	if m.locked || m.elapsed-m.commandedAt > commandTimeout {
		return 0
	}
	return m.command.Thrust
}

func (m *model) step(dt time.Duration) {
	secs := dt.Seconds()

	command := m.command
	if m.elapsed-m.commandedAt > commandTimeout {
		command = link.Setpoint{}
	}

	accel := -gravity
	if thrust := m.thrust(); thrust > 0 {
		accel = gravity * (float64(thrust)/m.hover - 1)
	}
	accel -= drag * m.velocity

	m.velocity += accel * secs
	m.altitude += m.velocity * secs
	if m.altitude <= m.base {
		m.altitude = m.base
		if m.velocity < 0 {
			m.velocity = 0
		}
	}

	k := math.Min(1, secs/attitudeLag.Seconds())
	m.roll += (float64(command.Roll) - m.roll) * k
	m.pitch += (float64(command.Pitch) - m.pitch) * k
	m.yaw = wrapDegrees(m.yaw + float64(command.YawRate)*secs)

	m.elapsed += dt
}

// read returns the value of a TOC variable
func (m *model) read(name string) float64 {
	switch name {
	case varBaroASL:
		return m.baroAltitude()
	case varBaroPressure:
		return pressureAt(m.baroAltitude())
	case varBaroTemp:
		return 22.0 - 0.0065*(m.altitude-m.base)
	case varStabilizerRoll:
		return m.roll
	case varStabilizerPitch:
		return m.pitch
	case varStabilizerYaw:
		return m.yaw
	case varStabilizerThrust:
		return float64(m.thrust())
	case varBatteryVoltage:
		return 4.1 - 0.4*float64(m.thrust())/math.MaxUint16
	}
	return 0
}

func (m *model) baroAltitude() float64 {
	return m.altitude + m.noise*math.Sin(2*math.Pi*noiseFrequency*m.elapsed.Seconds())
}

// pressureAt converts an altitude to pressure in hPa with the standard
// atmosphere barometric formula
func pressureAt(altitude float64) float64 {
	return seaLevelHPa * math.Pow(1-2.25577e-5*altitude, 5.25588)
}

func wrapDegrees(d float64) float64 {
	d = math.Mod(d+180, 360)
	if d < 0 {
		d += 360
	}
	return d - 180
}
