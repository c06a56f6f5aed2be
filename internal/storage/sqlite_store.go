package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/roman-kulish/motor-ramp/internal/flight"
	"github.com/roman-kulish/motor-ramp/internal/telemetry"
)

// maxRowsPerStatement keeps multi-row inserts below the SQLite bound
// parameter limit
const maxRowsPerStatement = 500

// SqliteStore handles database operations
type SqliteStore struct {
	dbPath string

	writeDB     *sql.DB
	writeDBOnce sync.Once
	writeDBErr  error

	readDB     *sql.DB
	readDBOnce sync.Once
	readDBErr  error

	closeOnce sync.Once
	closeErr  error
}

// NewSqliteStore creates a store backed by the SQLite database at dbPath.
// Connections are opened lazily; the schema is created on the first write.
func NewSqliteStore(dbPath string) *SqliteStore {
	return &SqliteStore{dbPath: dbPath}
}

func runSQLCommand(db *sql.DB, sql string) error {
	_, err := db.Exec(sql)
	return err
}

func (s *SqliteStore) getWriteDB() (*sql.DB, error) {
	s.writeDBOnce.Do(func() {
		db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?%s", s.dbPath, "_journal_mode=WAL&_synchronous=NORMAL"))
		if err != nil {
			s.writeDBErr = fmt.Errorf("opening write connection: %w", err)
			return
		}
		db.SetMaxOpenConns(1)

		if err = runSQLCommand(db, initSchemaSQL); err != nil {
			_ = db.Close()
			s.writeDBErr = fmt.Errorf("initializing schema: %w", err)
			return
		}

		s.writeDB = db
	})

	return s.writeDB, s.writeDBErr
}

func (s *SqliteStore) getReadDB() (*sql.DB, error) {
	s.readDBOnce.Do(func() {
		db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?%s", s.dbPath, "mode=ro"))
		if err != nil {
			s.readDBErr = fmt.Errorf("opening read connection: %w", err)
			return
		}
		s.readDB = db
	})

	return s.readDB, s.readDBErr
}

func (s *SqliteStore) CreateFlight(ctx context.Context, linkURI, mode string, config any) (flightID int64, err error) {
	configData, err := toConfigData(config)
	if err != nil {
		return
	}

	db, err := s.getWriteDB()
	if err != nil {
		err = fmt.Errorf("getting write connection: %w", err)
		return
	}

	stmt, err := db.PrepareContext(ctx, insertFlightSQL)
	if err != nil {
		err = fmt.Errorf("preparing statement: %w", err)
		return
	}
	defer closeWithError(stmt, &err)

	result, err := stmt.ExecContext(ctx, time.Now().UTC(), linkURI, mode, configData)
	if err != nil {
		err = fmt.Errorf("inserting flight: %w", err)
		return
	}

	flightID, err = result.LastInsertId()
	if err != nil {
		err = fmt.Errorf("getting flight ID: %w", err)
	}
	return
}

func (s *SqliteStore) FinishFlight(ctx context.Context, flightID int64) error {
	db, err := s.getWriteDB()
	if err != nil {
		return fmt.Errorf("getting write connection: %w", err)
	}

	result, err := db.ExecContext(ctx, finishFlightSQL, time.Now().UTC(), flightID)
	if err != nil {
		return fmt.Errorf("finishing flight: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("finishing flight %d: %w", flightID, ErrFlightNotFound)
	}
	return nil
}

func (s *SqliteStore) Flight(ctx context.Context, id int64) (f *flight.Flight, err error) {
	db, err := s.getReadDB()
	if err != nil {
		err = fmt.Errorf("getting read connection: %w", err)
		return
	}

	stmt, err := db.PrepareContext(ctx, selectFlightSQL)
	if err != nil {
		err = fmt.Errorf("preparing statement: %w", err)
		return
	}
	defer closeWithError(stmt, &err)

	var data flightData
	err = stmt.QueryRowContext(ctx, id).Scan(&data.ID, &data.StartTime, &data.EndTime, &data.LinkURI, &data.Mode, &data.Config)
	if errors.Is(err, sql.ErrNoRows) {
		err = fmt.Errorf("flight %d: %w", id, ErrFlightNotFound)
		return
	}
	if err != nil {
		err = fmt.Errorf("scanning flight: %w", err)
		return
	}

	return fromFlightData(&data), nil
}

func (s *SqliteStore) Flights(ctx context.Context) (flights []*flight.Flight, err error) {
	db, err := s.getReadDB()
	if err != nil {
		err = fmt.Errorf("getting read connection: %w", err)
		return
	}

	rows, err := db.QueryContext(ctx, selectFlightsSQL)
	if err != nil {
		err = fmt.Errorf("querying flights: %w", err)
		return
	}
	defer closeWithError(rows, &err)

	for rows.Next() {
		var data flightData
		if err = rows.Scan(&data.ID, &data.StartTime, &data.EndTime, &data.LinkURI, &data.Mode, &data.Config); err != nil {
			err = fmt.Errorf("scanning flight: %w", err)
			return
		}
		flights = append(flights, fromFlightData(&data))
	}
	if err = rows.Err(); err != nil {
		err = fmt.Errorf("iterating flights: %w", err)
	}
	return
}

func (s *SqliteStore) StoreTelemetry(ctx context.Context, flightID int64, records []*telemetry.Telemetry) error {
	return s.batchInsert(ctx, insertTelemetrySQL, "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?)", len(records), func(i int) []any {
		data := toTelemetryData(flightID, records[i])
		return []any{
			data.FlightID,
			data.Timestamp,
			data.Altitude,
			data.Pressure,
			data.Temperature,
			data.Roll,
			data.Pitch,
			data.Yaw,
			data.Thrust,
			data.Battery,
		}
	})
}

func (s *SqliteStore) StoreSetpoints(ctx context.Context, flightID int64, setpoints []flight.Setpoint) error {
	return s.batchInsert(ctx, insertSetpointSQL, "(?, ?, ?, ?, ?, ?, ?)", len(setpoints), func(i int) []any {
		data := toSetpointData(flightID, setpoints[i])
		return []any{
			data.FlightID,
			data.Timestamp,
			data.Phase,
			data.Roll,
			data.Pitch,
			data.YawRate,
			data.Thrust,
		}
	})
}

// batchInsert writes n rows with multi-row INSERT statements in a single
// transaction. row returns the values of the i-th row.
func (s *SqliteStore) batchInsert(ctx context.Context, insertSQL, placeholder string, n int, row func(i int) []any) (err error) {
	if n == 0 {
		return nil
	}

	db, err := s.getWriteDB()
	if err != nil {
		return fmt.Errorf("getting write connection: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer rollbackWithError(tx, &err)

	indexes := make([]int, n)
	for i := range indexes {
		indexes[i] = i
	}

	for chunk := range slices.Chunk(indexes, maxRowsPerStatement) {
		var sb strings.Builder
		var values []any

		sb.WriteString(insertSQL)
		for j, i := range chunk {
			if j > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(placeholder)
			values = append(values, row(i)...)
		}

		if _, err = tx.ExecContext(ctx, sb.String(), values...); err != nil {
			return fmt.Errorf("batch inserting: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	return nil
}

func (s *SqliteStore) StoreEvent(ctx context.Context, flightID int64, event flight.Event) error {
	db, err := s.getWriteDB()
	if err != nil {
		return fmt.Errorf("getting write connection: %w", err)
	}

	if _, err = db.ExecContext(ctx, insertEventSQL, flightID, event.Timestamp.UTC(), event.Kind, event.Message); err != nil {
		return fmt.Errorf("inserting event: %w", err)
	}
	return nil
}

func (s *SqliteStore) ReadTrace(ctx context.Context, flightID int64) (*flight.Trace, error) {
	f, err := s.Flight(ctx, flightID)
	if err != nil {
		return nil, err
	}

	db, err := s.getReadDB()
	if err != nil {
		return nil, fmt.Errorf("getting read connection: %w", err)
	}

	trace := flight.Trace{Flight: f}

	steps := []struct {
		msg string
		fn  func(context.Context, *sql.DB, *flight.Trace) error
	}{
		{msg: "reading telemetry", fn: readTelemetry},
		{msg: "reading setpoints", fn: readSetpoints},
		{msg: "reading events", fn: readEvents},
	}
	for _, step := range steps {
		if err = step.fn(ctx, db, &trace); err != nil {
			return nil, fmt.Errorf("%s: %w", step.msg, err)
		}
	}

	return &trace, nil
}

func readTelemetry(ctx context.Context, db *sql.DB, trace *flight.Trace) (err error) {
	rows, err := db.QueryContext(ctx, selectTelemetrySQL, trace.Flight.ID)
	if err != nil {
		return fmt.Errorf("querying telemetry: %w", err)
	}
	defer closeWithError(rows, &err)

	for rows.Next() {
		var data telemetryData
		if err = rows.Scan(
			&data.Timestamp,
			&data.Altitude,
			&data.Pressure,
			&data.Temperature,
			&data.Roll,
			&data.Pitch,
			&data.Yaw,
			&data.Thrust,
			&data.Battery,
		); err != nil {
			return fmt.Errorf("scanning telemetry: %w", err)
		}
		trace.Telemetry = append(trace.Telemetry, fromTelemetryData(&data))
	}
	return rows.Err()
}

func readSetpoints(ctx context.Context, db *sql.DB, trace *flight.Trace) (err error) {
	rows, err := db.QueryContext(ctx, selectSetpointsSQL, trace.Flight.ID)
	if err != nil {
		return fmt.Errorf("querying setpoints: %w", err)
	}
	defer closeWithError(rows, &err)

	for rows.Next() {
		var data setpointData
		if err = rows.Scan(&data.Timestamp, &data.Phase, &data.Roll, &data.Pitch, &data.YawRate, &data.Thrust); err != nil {
			return fmt.Errorf("scanning setpoint: %w", err)
		}
		trace.Setpoints = append(trace.Setpoints, flight.Setpoint{
			Timestamp: data.Timestamp,
			Phase:     data.Phase,
			Roll:      float32(data.Roll),
			Pitch:     float32(data.Pitch),
			YawRate:   float32(data.YawRate),
			Thrust:    uint16(data.Thrust),
		})
	}
	return rows.Err()
}

func readEvents(ctx context.Context, db *sql.DB, trace *flight.Trace) (err error) {
	rows, err := db.QueryContext(ctx, selectEventsSQL, trace.Flight.ID)
	if err != nil {
		return fmt.Errorf("querying events: %w", err)
	}
	defer closeWithError(rows, &err)

	for rows.Next() {
		var event flight.Event
		if err = rows.Scan(&event.Timestamp, &event.Kind, &event.Message); err != nil {
			return fmt.Errorf("scanning event: %w", err)
		}
		trace.Events = append(trace.Events, event)
	}
	return rows.Err()
}

func (s *SqliteStore) Close() error {
	s.closeOnce.Do(func() {
		var writeErr, readErr error

		if s.writeDB != nil {
			_ = runSQLCommand(s.writeDB, initIndexesSQL)

			writeErr = s.writeDB.Close()
			s.writeDB = nil
		}

		if s.readDB != nil {
			readErr = s.readDB.Close()
			s.readDB = nil
		}

		switch {
		case writeErr != nil && readErr != nil:
			s.closeErr = errors.Join(writeErr, readErr)
		case writeErr != nil:
			s.closeErr = writeErr
		case readErr != nil:
			s.closeErr = readErr
		}
	})

	return s.closeErr
}

var _ Store = (*SqliteStore)(nil)
