package app

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
	"time"

	"golang.org/x/image/vector"
)

const (
	fontSize  = 11.0
	lineWidth = 2.0
	dashSize  = 8.0

	// Default border sizes in pixels
	defaultTopBorder    = 30
	defaultLeftBorder   = 90
	defaultBottomBorder = 70
	defaultRightBorder  = 90

	defaultDatetimeFormat = time.DateTime
)

// BorderConfig defines the sizes of white space around the plot
type BorderConfig struct {
	Top    int // Padding
	Left   int // Space for altitude scale
	Bottom int // Space for time scale and information bar
	Right  int // Space for throttle scale
}

// RenderConfig holds all configuration options for trace visualization
type RenderConfig struct {
	DatetimeFormat string         // Format string for date/time display
	Location       *time.Location // Timezone for time display
	FontSize       float64        // Font size in points
	LineWidth      float64        // Series stroke width in pixels

	BorderConfig BorderConfig
}

// TraceRenderer draws the altitude and throttle series of a flight
type TraceRenderer struct {
	config RenderConfig
}

// NewTraceRenderer creates a new trace renderer with the given configuration
func NewTraceRenderer(config RenderConfig) *TraceRenderer {
	if config.DatetimeFormat == "" {
		config.DatetimeFormat = defaultDatetimeFormat
	}
	if config.Location == nil {
		config.Location = time.Local
	}
	if config.FontSize == 0 {
		config.FontSize = fontSize
	}
	if config.LineWidth == 0 {
		config.LineWidth = lineWidth
	}
	if config.BorderConfig.Top == 0 {
		config.BorderConfig.Top = defaultTopBorder
	}
	if config.BorderConfig.Left == 0 {
		config.BorderConfig.Left = defaultLeftBorder
	}
	if config.BorderConfig.Bottom == 0 {
		config.BorderConfig.Bottom = defaultBottomBorder
	}
	if config.BorderConfig.Right == 0 {
		config.BorderConfig.Right = defaultRightBorder
	}

	return &TraceRenderer{config: config}
}

// Render creates an image of the trace with annotations
func (r *TraceRenderer) Render(data *TraceData) (*image.RGBA, error) {
	b := r.config.BorderConfig
	img := image.NewRGBA(image.Rect(0, 0, data.Width+b.Left+b.Right, data.Height+b.Top+b.Bottom))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)

	area := image.Rect(b.Left, b.Top, b.Left+data.Width, b.Top+data.Height)

	r.drawPhases(img, area, data)

	ann, err := newAnnotator(annotatorConfig{
		DatetimeFormat: r.config.DatetimeFormat,
		Location:       r.config.Location,
		FontSize:       r.config.FontSize,
		Borders:        b,
	})
	if err != nil {
		return nil, fmt.Errorf("creating annotator: %w", err)
	}
	defer ann.Close()

	// grid and scales go below the series
	if err = ann.annotate(img, area, data); err != nil {
		return nil, fmt.Errorf("drawing annotations: %w", err)
	}

	if data.Target != nil {
		y := float64(area.Min.Y) + data.AltitudeY(*data.Target)
		r.strokeDashed(img, float64(area.Min.X), y, float64(area.Max.X), y, targetColor)
	}

	r.strokeSeries(img, area, data.Throttle, data, data.ThrottleY, true, throttleColor)
	r.strokeSeries(img, area, data.Altitude, data, data.AltitudeY, false, altitudeColor)

	return img, nil
}

func (r *TraceRenderer) drawPhases(img *image.RGBA, area image.Rectangle, data *TraceData) {
	for _, band := range data.Phases {
		c := phaseColor(band.Phase)
		if c == nil {
			continue
		}

		x0 := area.Min.X + int(math.Floor(data.X(band.Start)))
		x1 := area.Min.X + int(math.Ceil(data.X(band.End)))
		if x1 == x0 {
			x1++
		}
		rect := image.Rect(x0, area.Min.Y, x1, area.Max.Y).Intersect(area)
		draw.Draw(img, rect, image.NewUniform(c), image.Point{}, draw.Src)
	}
}

// strokeSeries draws points as a polyline. With steps set, each value is
// held until the next point, as setpoints are.
func (r *TraceRenderer) strokeSeries(img *image.RGBA, area image.Rectangle, points []Point, data *TraceData, toY func(float64) float64, steps bool, c color.Color) {
	if len(points) == 0 {
		return
	}

	z := vector.NewRasterizer(img.Bounds().Dx(), img.Bounds().Dy())
	ox, oy := float64(area.Min.X), float64(area.Min.Y)

	px, py := ox+data.X(points[0].Timestamp), oy+toY(points[0].Value)
	if len(points) == 1 {
		r.segment(z, px-1, py, px+1, py)
	}
	for _, p := range points[1:] {
		x, y := ox+data.X(p.Timestamp), oy+toY(p.Value)
		if steps {
			r.segment(z, px, py, x, py)
			r.segment(z, x, py, x, y)
		} else {
			r.segment(z, px, py, x, y)
		}
		px, py = x, y
	}

	z.Draw(img, img.Bounds(), image.NewUniform(c), image.Point{})
}

func (r *TraceRenderer) strokeDashed(img *image.RGBA, x0, y0, x1, y1 float64, c color.Color) {
	z := vector.NewRasterizer(img.Bounds().Dx(), img.Bounds().Dy())

	length := math.Hypot(x1-x0, y1-y0)
	dx, dy := (x1-x0)/length, (y1-y0)/length
	for d := 0.0; d < length; d += 2 * dashSize {
		end := math.Min(d+dashSize, length)
		r.segment(z, x0+dx*d, y0+dy*d, x0+dx*end, y0+dy*end)
	}

	z.Draw(img, img.Bounds(), image.NewUniform(c), image.Point{})
}

// segment adds a line of the configured width to z as a closed quad
func (r *TraceRenderer) segment(z *vector.Rasterizer, x0, y0, x1, y1 float64) {
	length := math.Hypot(x1-x0, y1-y0)
	if length == 0 {
		return
	}

	// normal scaled to half the line width
	w := r.config.LineWidth / 2
	nx, ny := -(y1-y0)/length*w, (x1-x0)/length*w

	z.MoveTo(float32(x0+nx), float32(y0+ny))
	z.LineTo(float32(x1+nx), float32(y1+ny))
	z.LineTo(float32(x1-nx), float32(y1-ny))
	z.LineTo(float32(x0-nx), float32(y0-ny))
	z.ClosePath()
}
