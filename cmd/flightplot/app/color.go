package app

import (
	"image/color"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/roman-kulish/motor-ramp/internal/control"
)

var (
	white = colorful.Color{R: 1, G: 1, B: 1}

	altitudeColor = colorful.Hsv(212, 0.85, 0.80)
	throttleColor = colorful.Hsv(24, 0.90, 0.95)
	targetColor   = colorful.Hsv(130, 0.80, 0.60)
	gridColor     = color.Gray{Y: 0xe6}
	axisColor     = color.Black
)

// phaseHues maps transmission phases onto the hue of their background band.
// Streaming is left unshaded.
var phaseHues = map[string]float64{
	control.PhaseUnlocking.String(): 50,
	control.PhaseStopping.String():  0,
}

// phaseColor returns the background of a phase band, nil when the phase is
// not shaded
func phaseColor(phase string) color.Color {
	hue, ok := phaseHues[phase]
	if !ok {
		return nil
	}
	return colorful.Hsv(hue, 0.9, 0.9).BlendLab(white, 0.8).Clamped()
}

// legendColor returns a darker variant of a series color for its axis labels
func legendColor(c colorful.Color) color.Color {
	return c.BlendLab(colorful.Color{}, 0.2).Clamped()
}
