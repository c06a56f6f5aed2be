package app

import (
	"context"
	"errors"
	"image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/roman-kulish/motor-ramp/internal/control"
	"github.com/roman-kulish/motor-ramp/internal/storage"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// recordFlight stores holdTrace into a new database and returns its path and
// the flight ID
func recordFlight(t *testing.T) (string, int64) {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "flights.sqlite")
	store := storage.NewSqliteStore(dbPath)
	ctx := context.Background()

	trace := holdTrace()
	id, err := store.CreateFlight(ctx, trace.Flight.LinkURI, control.StrategyHold, *trace.Flight.Config)
	if err != nil {
		t.Fatalf("Failed to create flight: %v", err)
	}
	if err = store.StoreTelemetry(ctx, id, trace.Telemetry); err != nil {
		t.Fatalf("Failed to store telemetry: %v", err)
	}
	if err = store.StoreSetpoints(ctx, id, trace.Setpoints); err != nil {
		t.Fatalf("Failed to store setpoints: %v", err)
	}
	if err = store.FinishFlight(ctx, id); err != nil {
		t.Fatalf("Failed to finish flight: %v", err)
	}
	if err = store.Close(); err != nil {
		t.Fatalf("Failed to close store: %v", err)
	}
	return dbPath, id
}

func TestRun(t *testing.T) {
	dbPath, id := recordFlight(t)

	config := NewConfig()
	config.DBPath = dbPath
	config.FlightID = id
	config.Width, config.Height = 400, 200
	config.OutputFile = filepath.Join(t.TempDir(), "flight.png")

	if err := Run(context.Background(), config, discard()); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	f, err := os.Open(config.OutputFile)
	if err != nil {
		t.Fatalf("Failed to open output: %v", err)
	}
	defer f.Close()

	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("Failed to decode output: %v", err)
	}
	if size := img.Bounds().Size(); size.X != 400+defaultLeftBorder+defaultRightBorder || size.Y != 200+defaultTopBorder+defaultBottomBorder {
		t.Errorf("Unexpected image size %v", size)
	}
}

func TestRun_UnknownFlight(t *testing.T) {
	dbPath, id := recordFlight(t)

	config := NewConfig()
	config.DBPath = dbPath
	config.FlightID = id + 1
	config.OutputFile = filepath.Join(t.TempDir(), "flight.png")

	err := Run(context.Background(), config, discard())
	if !errors.Is(err, storage.ErrFlightNotFound) {
		t.Fatalf("Expected ErrFlightNotFound, got %v", err)
	}
	if _, err = os.Stat(config.OutputFile); !os.IsNotExist(err) {
		t.Errorf("Expected no output file")
	}
}

func TestRun_MissingDatabase(t *testing.T) {
	config := NewConfig()
	config.DBPath = filepath.Join(t.TempDir(), "missing.sqlite")
	config.FlightID = 1
	config.OutputFile = filepath.Join(t.TempDir(), "flight.png")
	config.TimeZone = time.UTC

	if err := Run(context.Background(), config, discard()); err == nil {
		t.Fatal("Expected error for a missing database")
	}
}
