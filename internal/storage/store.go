package storage

import (
	"context"
	"errors"

	_ "github.com/mattn/go-sqlite3"

	"github.com/roman-kulish/motor-ramp/internal/flight"
	"github.com/roman-kulish/motor-ramp/internal/telemetry"
)

// ErrFlightNotFound is returned when no flight exists with the requested ID
var ErrFlightNotFound = errors.New("flight not found")

// Store provides an interface for the flight recorder storage.
// It handles flights, telemetry, transmitted setpoints and events in a
// thread-safe manner. Batched writes are atomic.
type Store interface {
	// CreateFlight starts a new flight record and returns its unique identifier.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeouts
	//   - linkURI: Link identifier of the device (e.g., "sim://0")
	//   - mode: Control strategy name
	//   - config: Optional session configuration. Can be string, []byte, or JSON-serializable object
	CreateFlight(ctx context.Context, linkURI, mode string, config any) (flightID int64, err error)

	// FinishFlight stamps the end time of a flight.
	FinishFlight(ctx context.Context, flightID int64) error

	// Flight retrieves a flight by its ID, ErrFlightNotFound if it does not exist.
	Flight(ctx context.Context, id int64) (*flight.Flight, error)

	// Flights returns all recorded flights ordered by start time.
	Flights(ctx context.Context) ([]*flight.Flight, error)

	// StoreTelemetry saves telemetry records of a flight in a single transaction.
	StoreTelemetry(ctx context.Context, flightID int64, records []*telemetry.Telemetry) error

	// StoreSetpoints saves transmitted setpoints of a flight in a single transaction.
	StoreSetpoints(ctx context.Context, flightID int64, setpoints []flight.Setpoint) error

	// StoreEvent saves a single flight event.
	StoreEvent(ctx context.Context, flightID int64, event flight.Event) error

	// ReadTrace loads everything recorded for a flight, each series ordered by time.
	ReadTrace(ctx context.Context, flightID int64) (*flight.Trace, error)

	// Close releases all database connections and resources.
	// It is safe to call Close multiple times.
	Close() error
}
