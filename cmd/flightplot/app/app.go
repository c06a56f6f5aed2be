package app

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/roman-kulish/motor-ramp/internal/storage"
)

func Run(ctx context.Context, config *Config, logger *slog.Logger) (err error) {
	if _, err = os.Stat(config.DBPath); err != nil && os.IsNotExist(err) {
		return fmt.Errorf("database file '%s' does not exist: %w", config.DBPath, err)
	}

	store := storage.NewSqliteStore(config.DBPath)
	defer closeWithError(store, &err)

	logger.Info("reading flight", slog.Int64("flight", config.FlightID))

	trace, err := store.ReadTrace(ctx, config.FlightID)
	if errors.Is(err, storage.ErrFlightNotFound) {
		return fmt.Errorf("flight %d: %w", config.FlightID, err)
	}
	if err != nil {
		return fmt.Errorf("reading flight %d: %w", config.FlightID, err)
	}

	data, err := NewTraceData(trace, config.Width, config.Height)
	if err != nil {
		return fmt.Errorf("flight %d: %w", config.FlightID, err)
	}

	stats := []any{
		slog.String("start", data.TimestampStart.In(config.TimeZone).Format(time.DateTime)),
		slog.String("duration", data.Duration().Round(time.Millisecond).String()),
		slog.String("samples", humanize.Comma(int64(len(data.Altitude)))),
		slog.String("setpoints", humanize.Comma(int64(len(data.Throttle)))),
		slog.String("minAltitude", fmt.Sprintf("%0.2fm", data.Bounds.Min)),
		slog.String("maxAltitude", fmt.Sprintf("%0.2fm", data.Bounds.Max)),
	}
	if data.Target != nil {
		stats = append(stats, slog.String("target", fmt.Sprintf("%0.2fm", *data.Target)))
	}
	logger.Info("finished reading flight", slog.Group("stats", stats...))

	renderer := NewTraceRenderer(RenderConfig{
		Location: config.TimeZone,
	})

	logger.Info("rendering flight",
		slog.Group("image",
			slog.String("destination", config.OutputFile),
			slog.String("format", string(config.Format)),
			slog.Int("width", data.Width),
			slog.Int("height", data.Height),
		))

	img, err := renderer.Render(data)
	if err != nil {
		return fmt.Errorf("rendering flight: %w", err)
	}

	out, err := os.Create(config.OutputFile)
	if err != nil {
		return err
	}
	defer closeWithError(out, &err)

	return encode(out, img, config.Format)
}

func encode(w io.Writer, img image.Image, format ImageFormat) error {
	switch format {
	case ImagePNG:
		return png.Encode(w, img)
	case ImageJPEG:
		return jpeg.Encode(w, img, &jpeg.Options{
			Quality: 98,
		})
	default:
		return fmt.Errorf("invalid image format: %s", format)
	}
}

func closeWithError(cl io.Closer, err *error) {
	if cErr := cl.Close(); cErr != nil && *err == nil {
		*err = cErr
	}
}
