package app

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/golang/freetype"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
)

const (
	dpi            = 96.0
	spacing        = 1.4
	tickMarkSize   = 5
	pixelsPerLabel = 120.0
)

type annotatorConfig struct {
	DatetimeFormat string
	Location       *time.Location
	FontSize       float64
	Borders        BorderConfig
}

type annotator struct {
	context  *freetype.Context
	config   annotatorConfig
	fontFace font.Face
}

func newAnnotator(config annotatorConfig) (*annotator, error) {
	parsedFont, err := freetype.ParseFont(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("parsing font: %w", err)
	}

	ctx := freetype.NewContext()
	ctx.SetDPI(dpi)
	ctx.SetFont(parsedFont)
	ctx.SetFontSize(config.FontSize)
	ctx.SetHinting(font.HintingFull)
	ctx.SetSrc(image.Black)

	return &annotator{
		context: ctx,
		config:  config,
		fontFace: truetype.NewFace(parsedFont, &truetype.Options{
			Size:    config.FontSize,
			DPI:     dpi,
			Hinting: font.HintingFull,
		}),
	}, nil
}

func (a *annotator) Close() error {
	if a.fontFace != nil {
		return a.fontFace.Close()
	}
	return nil
}

func (a *annotator) annotate(img *image.RGBA, area image.Rectangle, data *TraceData) error {
	a.context.SetClip(img.Bounds())
	a.context.SetDst(img)

	ops := []struct {
		msg string
		fn  func(*image.RGBA, image.Rectangle, *TraceData) error
	}{
		{"drawing time scale", a.drawTimeScale},
		{"drawing altitude scale", a.drawAltitudeScale},
		{"drawing throttle scale", a.drawThrottleScale},
		{"drawing info bar", a.drawInfoBar},
	}
	for _, op := range ops {
		if err := op.fn(img, area, data); err != nil {
			return fmt.Errorf("%s: %w", op.msg, err)
		}
	}

	drawFrame(img, area)
	return nil
}

func (a *annotator) fontHeight() int {
	metrics := a.fontFace.Metrics()
	return (metrics.Ascent + metrics.Descent).Round()
}

func (a *annotator) drawString(s string, x, y int, c color.Color) error {
	a.context.SetSrc(image.NewUniform(c))
	_, err := a.context.DrawString(s, freetype.Pt(x, y))
	return err
}

func (a *annotator) drawTimeScale(img *image.RGBA, area image.Rectangle, data *TraceData) error {
	step := calculateNiceTimeStep(data.Duration(), area.Dx())
	textY := area.Max.Y + tickMarkSize + a.fontHeight()

	for elapsed := time.Duration(0); elapsed <= data.Duration(); elapsed += step {
		x := area.Min.X + int(data.X(data.TimestampStart.Add(elapsed)))

		for y := area.Min.Y; y < area.Max.Y; y++ {
			img.Set(x, y, gridColor)
		}
		for y := area.Max.Y; y < area.Max.Y+tickMarkSize; y++ {
			img.Set(x, y, axisColor)
		}

		label := formatElapsed(elapsed)
		width := font.MeasureString(a.fontFace, label).Round()
		if err := a.drawString(label, x-width/2, textY, axisColor); err != nil {
			return fmt.Errorf("drawing time label: %w", err)
		}
	}
	return nil
}

func (a *annotator) drawAltitudeScale(img *image.RGBA, area image.Rectangle, data *TraceData) error {
	step := calculateNiceStep(data.Bounds.Span(), area.Dy())
	halfFont := a.fontHeight() / 2
	labelColor := legendColor(altitudeColor)

	for v := math.Ceil(data.Bounds.Min/step) * step; v <= data.Bounds.Max; v += step {
		y := area.Min.Y + int(data.AltitudeY(v))

		for x := area.Min.X; x < area.Max.X; x++ {
			img.Set(x, y, gridColor)
		}
		for x := area.Min.X - tickMarkSize; x < area.Min.X; x++ {
			img.Set(x, y, axisColor)
		}

		label := fmt.Sprintf("%.2f m", v)
		width := font.MeasureString(a.fontFace, label).Round()
		if err := a.drawString(label, area.Min.X-tickMarkSize-3-width, y+halfFont-2, labelColor); err != nil {
			return fmt.Errorf("drawing altitude label: %w", err)
		}
	}
	return nil
}

func (a *annotator) drawThrottleScale(img *image.RGBA, area image.Rectangle, data *TraceData) error {
	if len(data.Throttle) == 0 {
		return nil
	}

	step := calculateNiceStep(data.ThrottleMax, area.Dy())
	halfFont := a.fontHeight() / 2
	labelColor := legendColor(throttleColor)

	for v := 0.0; v <= data.ThrottleMax; v += step {
		y := area.Min.Y + int(data.ThrottleY(v))

		for x := area.Max.X; x < area.Max.X+tickMarkSize; x++ {
			img.Set(x, y, axisColor)
		}

		label := humanize.Comma(int64(v))
		if err := a.drawString(label, area.Max.X+tickMarkSize+3, y+halfFont-2, labelColor); err != nil {
			return fmt.Errorf("drawing throttle label: %w", err)
		}
	}
	return nil
}

func (a *annotator) drawInfoBar(img *image.RGBA, area image.Rectangle, data *TraceData) error {
	f := data.Flight
	start := data.TimestampStart.In(a.config.Location)

	lines := []string{
		fmt.Sprintf("Flight #%d (%s) on %s; Start: %s (%s); Duration: %s",
			f.ID, f.Mode, f.LinkURI,
			start.Format(a.config.DatetimeFormat), humanize.Time(start),
			data.Duration().Round(time.Millisecond)),
		fmt.Sprintf("%s altitude samples; %s setpoints; %s events",
			humanize.Comma(int64(len(data.Altitude))),
			humanize.Comma(int64(len(data.Throttle))),
			humanize.Comma(int64(len(data.Events)))),
	}
	if data.Target != nil {
		lines[1] += fmt.Sprintf("; Target: %.2f m", *data.Target)
	}

	lineHeight := int(math.Ceil(float64(a.fontHeight()) * spacing))
	y := img.Bounds().Max.Y - lineHeight*len(lines) + a.fontHeight()/2
	for _, line := range lines {
		if err := a.drawString(line, area.Min.X, y, axisColor); err != nil {
			return fmt.Errorf("drawing info text: %w", err)
		}
		y += lineHeight
	}
	return nil
}

func drawFrame(img *image.RGBA, area image.Rectangle) {
	for x := area.Min.X; x <= area.Max.X; x++ {
		img.Set(x, area.Min.Y, axisColor)
		img.Set(x, area.Max.Y, axisColor)
	}
	for y := area.Min.Y; y <= area.Max.Y; y++ {
		img.Set(area.Min.X, y, axisColor)
		img.Set(area.Max.X, y, axisColor)
	}
}

// Helper functions

// calculateNiceStep returns a 1, 2 or 5 multiple of a power of ten that
// splits span into labels about pixelsPerLabel apart
func calculateNiceStep(span float64, pixels int) float64 {
	if span <= 0 {
		return 1
	}

	desiredSteps := math.Max(1, float64(pixels)/pixelsPerLabel)
	roughStep := span / desiredSteps
	magnitude := math.Pow(10, math.Floor(math.Log10(roughStep)))

	for _, m := range []float64{1, 2, 5} {
		if m*magnitude >= roughStep {
			return m * magnitude
		}
	}
	return 10 * magnitude
}

func calculateNiceTimeStep(duration time.Duration, pixels int) time.Duration {
	roughStep := duration / time.Duration(math.Max(1, float64(pixels)/pixelsPerLabel))

	// Nice time intervals
	niceIntervals := []time.Duration{
		100 * time.Millisecond,
		250 * time.Millisecond,
		500 * time.Millisecond,
		time.Second,
		2 * time.Second,
		5 * time.Second,
		10 * time.Second,
		15 * time.Second,
		30 * time.Second,
		time.Minute,
		2 * time.Minute,
		5 * time.Minute,
		10 * time.Minute,
	}

	for _, interval := range niceIntervals {
		if roughStep <= interval {
			return interval
		}
	}
	return max(30*time.Minute, roughStep.Round(time.Minute))
}

func formatElapsed(d time.Duration) string {
	if d < time.Second && d > 0 {
		return fmt.Sprintf("+%dms", d.Milliseconds())
	}
	return "+" + d.Truncate(100*time.Millisecond).String()
}
