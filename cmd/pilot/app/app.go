package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/roman-kulish/motor-ramp/internal/link"
	"github.com/roman-kulish/motor-ramp/internal/link/sim"
	"github.com/roman-kulish/motor-ramp/internal/storage"
)

const (
	storageDir = "data"
	dbFile     = "flights.sqlite"
)

// Run scans for devices and flies the first one found
func Run(ctx context.Context, config *Config, logger *slog.Logger) error {
	return fly(ctx, createRadio(config, logger), config, logger)
}

// Scan prints the link URIs of the reachable devices
func Scan(ctx context.Context, config *Config, logger *slog.Logger, w io.Writer) error {
	uris, err := createRadio(config, logger).Scan(ctx)
	if err != nil {
		return fmt.Errorf("scanning interfaces: %w", err)
	}
	if len(uris) == 0 {
		logger.Warn("no Crazyflies found")
		return nil
	}

	for _, uri := range uris {
		if _, err = fmt.Fprintln(w, uri); err != nil {
			return err
		}
	}
	return nil
}

// ListFlights prints the recorded flights
func ListFlights(ctx context.Context, config *Config, w io.Writer) (err error) {
	dbPath, err := storagePath(&config.Storage)
	if err != nil {
		return err
	}
	if _, err = os.Stat(dbPath); err != nil {
		return fmt.Errorf("no flights recorded in '%s': %w", dbPath, err)
	}

	store := storage.NewSqliteStore(dbPath)
	defer closeWithError(store, &err)

	flights, err := store.Flights(ctx)
	if err != nil {
		return fmt.Errorf("listing flights: %w", err)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTARTED\tDURATION\tMODE\tLINK")
	for _, f := range flights {
		duration := "unfinished"
		if f.EndTime != nil {
			duration = f.Duration().Round(time.Millisecond).String()
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", f.ID, humanize.Time(f.StartTime), duration, f.Mode, f.LinkURI)
	}
	return tw.Flush()
}

func fly(ctx context.Context, radio link.Radio, config *Config, logger *slog.Logger) error {
	logger.Info("Scanning interfaces for Crazyflies...")

	uris, err := radio.Scan(ctx)
	if err != nil {
		return fmt.Errorf("scanning interfaces: %w", err)
	}

	logger.Info("Crazyflies found:")
	for _, uri := range uris {
		logger.Info(uri)
	}

	if len(uris) == 0 {
		logger.Warn("no Crazyflies found, cannot run")
		return nil
	}

	client, err := radio.Open(uris[0])
	if err != nil {
		return fmt.Errorf("opening %s: %w", uris[0], err)
	}

	var options []func(*Pilot)
	var store *storage.SqliteStore
	var recorder *storage.Recorder

	if config.Storage.Enabled {
		if store, err = createStorage(&config.Storage); err != nil {
			return fmt.Errorf("failed to create storage: %w", err)
		}
		defer store.Close()

		var flightID int64
		if flightID, err = store.CreateFlight(ctx, client.URI(), config.Control.Mode, config); err != nil {
			return fmt.Errorf("creating flight: %w", err)
		}

		recorder = storage.NewRecorder(store, flightID,
			storage.WithRecorderLogger(logger),
			storage.WithMaxBatchSize(config.Storage.MaxBatchSize),
			storage.WithFlushInterval(time.Duration(config.Storage.FlushInterval)))
		options = append(options, WithRecorder(recorder))
	}

	pilot := NewPilot(client, config, logger, options...)

	started := time.Now()
	runErr := pilot.Run(ctx)

	if recorder != nil {
		if err = recorder.Close(); err != nil {
			logger.Error(fmt.Sprintf("recording flight: %s", err.Error()))
		}
		// the session context may already be cancelled
		if err = store.FinishFlight(context.Background(), recorder.FlightID()); err != nil {
			logger.Error(fmt.Sprintf("finishing flight: %s", err.Error()))
		}
	}

	summary := []any{
		slog.String("duration", time.Since(started).Round(time.Millisecond).String()),
		slog.String("setpoints", humanize.Comma(int64(pilot.Transmitter().Sent()))),
		slog.String("dropped", humanize.Comma(int64(pilot.Transmitter().Dropped()))),
		slog.String("samples", humanize.Comma(int64(pilot.latest.Count()))),
	}
	if target, ok := pilot.State().Target(); ok {
		summary = append(summary, slog.Float64("target", target))
	}
	if recorder != nil {
		summary = append(summary, slog.Int64("flight", recorder.FlightID()))
	}
	logger.Info("session finished", summary...)

	return runErr
}

func createRadio(config *Config, logger *slog.Logger) link.Radio {
	c := config.Link.Sim

	return sim.NewRadio(c.Devices,
		sim.WithLogger(logger),
		sim.WithHoverThrust(c.HoverThrust),
		sim.WithBaseAltitude(c.BaseAltitude),
		sim.WithNoise(c.Noise),
		sim.WithConnectDelay(time.Duration(c.ConnectDelay)))
}

func storagePath(config *StorageConfig) (string, error) {
	dir := config.DataDirectory
	if dir == "" {
		dir = storageDir
	}
	if !filepath.IsAbs(dir) {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("failed to get current working directory: %w", err)
		}
		dir = filepath.Join(wd, dir)
	}

	return filepath.Join(dir, dbFile), nil
}

func createStorage(config *StorageConfig) (*storage.SqliteStore, error) {
	dbPath, err := storagePath(config)
	if err != nil {
		return nil, err
	}

	dir := filepath.Dir(dbPath)
	stat, err := os.Stat(dir)
	switch {
	case errors.Is(err, os.ErrNotExist):
		if err = os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating storage directory '%s': %w", dir, err)
		}
	case err != nil:
		return nil, fmt.Errorf("checking storage directory '%s': %w", dir, err)
	case !stat.IsDir():
		return nil, fmt.Errorf("invalid storage directory '%s'", dir)
	}

	return storage.NewSqliteStore(dbPath), nil
}

func closeWithError(cl interface{ Close() error }, err *error) {
	if cErr := cl.Close(); cErr != nil && *err == nil {
		*err = cErr
	}
}
