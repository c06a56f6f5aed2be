package control

import (
	"log/slog"

	"github.com/roman-kulish/motor-ramp/internal/telemetry"
)

// TrimConfig parameterises the manual trim law
type TrimConfig struct {
	ThrottleStep int `yaml:"throttleStep" json:"throttleStep"`
	TrimStep     int `yaml:"trimStep" json:"trimStep"`
}

// DefaultTrimConfig returns the manual trim defaults
func DefaultTrimConfig() TrimConfig {
	return TrimConfig{
		ThrottleStep: 1000,
		TrimStep:     5,
	}
}

// WithTrimLogger sets the logger of the manual trim law
func WithTrimLogger(logger *slog.Logger) func(*ManualTrim) {
	return func(m *ManualTrim) {
		m.logger = logger.With(slog.String("strategy", StrategyManual))
	}
}

// ManualTrim exposes imperative throttle, pitch and roll adjustments. It does
// not use telemetry for control, samples are only displayed.
type ManualTrim struct {
	state  *State
	config TrimConfig
	logger *slog.Logger
}

// NewManualTrim creates the manual law over state
func NewManualTrim(state *State, config TrimConfig, options ...func(*ManualTrim)) *ManualTrim {
	m := ManualTrim{
		state:  state,
		config: config,
		logger: discardLogger(),
	}

	for _, option := range options {
		option(&m)
	}

	return &m
}

func (m *ManualTrim) Name() string {
	return StrategyManual
}

func (m *ManualTrim) Observe(t *telemetry.Telemetry) {
	if t == nil {
		return
	}

	m.logger.Debug("telemetry",
		floatAttr("altitude", t.Altitude),
		floatAttr("pitch", t.Pitch),
		floatAttr("roll", t.Roll),
		floatAttr("thrust", t.Thrust))
}

func (m *ManualTrim) ThrottleUp() int {
	return m.state.AddThrottle(m.config.ThrottleStep)
}

func (m *ManualTrim) ThrottleDown() int {
	return m.state.AddThrottle(-m.config.ThrottleStep)
}

func (m *ManualTrim) PitchForward() int {
	return m.state.AddPitch(m.config.TrimStep)
}

func (m *ManualTrim) PitchBack() int {
	return m.state.AddPitch(-m.config.TrimStep)
}

func (m *ManualTrim) RollRight() int {
	return m.state.AddRoll(m.config.TrimStep)
}

func (m *ManualTrim) RollLeft() int {
	return m.state.AddRoll(-m.config.TrimStep)
}

func (m *ManualTrim) ResetPitchRoll() {
	m.state.ResetPitchRoll()
}

// Stop raises the stop flag of the shared state
func (m *ManualTrim) Stop() {
	m.state.Stop()
}
