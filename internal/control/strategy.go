package control

import (
	"io"
	"log/slog"

	"github.com/roman-kulish/motor-ramp/internal/telemetry"
)

const (
	StrategyHold   = "hold"
	StrategyManual = "manual"
)

// Strategy is a control law fed with every telemetry sample
type Strategy interface {
	Name() string
	Observe(t *telemetry.Telemetry)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func floatAttr(key string, v *float64) slog.Attr {
	if v == nil {
		return slog.String(key, "n/a")
	}
	return slog.Float64(key, *v)
}
