package control

import (
	"log/slog"

	"github.com/roman-kulish/motor-ramp/internal/telemetry"
)

// HoldConfig parameterises the altitude hold law
type HoldConfig struct {
	Climb        float64 `yaml:"climb" json:"climb"`               // Meters above the first sample to hold
	BaseThrottle int     `yaml:"baseThrottle" json:"baseThrottle"` // Throttle set when the target is captured
	Step         int     `yaml:"step" json:"step"`                 // Throttle change per sample
}

// DefaultHoldConfig returns the hold law defaults
func DefaultHoldConfig() HoldConfig {
	return HoldConfig{
		Climb:        1.0,
		BaseThrottle: 20000,
		Step:         250,
	}
}

// WithHoldLogger sets the logger of the altitude hold law
func WithHoldLogger(logger *slog.Logger) func(*AltitudeHold) {
	return func(h *AltitudeHold) {
		h.logger = logger.With(slog.String("strategy", StrategyHold))
	}
}

// AltitudeHold is a bang-bang controller: below the target the throttle is
// stepped up, above it is stepped down, on target it is held. There is no
// deadband, integral or derivative term.
type AltitudeHold struct {
	state  *State
	config HoldConfig
	logger *slog.Logger
}

// NewAltitudeHold creates the hold law over state
func NewAltitudeHold(state *State, config HoldConfig, options ...func(*AltitudeHold)) *AltitudeHold {
	h := AltitudeHold{
		state:  state,
		config: config,
		logger: discardLogger(),
	}

	for _, option := range options {
		option(&h)
	}

	return &h
}

func (h *AltitudeHold) Name() string {
	return StrategyHold
}

// Observe captures the target altitude on the first sample, then steps the
// throttle towards it. Samples without altitude are ignored.
func (h *AltitudeHold) Observe(t *telemetry.Telemetry) {
	if t == nil || t.Altitude == nil {
		return
	}
	altitude := *t.Altitude

	target, ok := h.state.Target()
	if !ok {
		target = altitude + h.config.Climb
		if err := h.state.SetTarget(target); err == nil {
			throttle := h.state.SetThrottle(h.config.BaseThrottle)
			h.logger.Info("target altitude captured",
				slog.Float64("altitude", altitude),
				slog.Float64("target", target),
				slog.Int("throttle", throttle))
		} else {
			target, _ = h.state.Target()
		}
	}

	var throttle int
	switch {
	case altitude < target:
		throttle = h.state.AddThrottle(h.config.Step)
	case altitude > target:
		throttle = h.state.AddThrottle(-h.config.Step)
	default:
		throttle = h.state.Throttle()
	}

	h.logger.Debug("altitude sample",
		slog.Float64("altitude", altitude),
		slog.Float64("target", target),
		slog.Int("throttle", throttle))
}
