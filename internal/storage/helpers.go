package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/roman-kulish/motor-ramp/internal/flight"
	"github.com/roman-kulish/motor-ramp/internal/telemetry"
)

func closeWithError(cl interface{ Close() error }, err *error) {
	if cErr := cl.Close(); cErr != nil && *err == nil {
		*err = cErr
	}
}

func rollbackWithError(rb interface{ Rollback() error }, err *error) {
	if cErr := rb.Rollback(); cErr != nil && !errors.Is(cErr, sql.ErrTxDone) && *err == nil {
		*err = cErr
	}
}

func toConfigData(config any) (sql.NullString, error) {
	var configData sql.NullString

	switch c := config.(type) {
	case nil:
	case string:
		configData.Valid = true
		configData.String = c

	case []byte:
		configData.Valid = true
		configData.String = string(c)

	default:
		p, err := json.Marshal(c)
		if err != nil {
			return configData, fmt.Errorf("marshaling config: %w", err)
		}

		configData.Valid = true
		configData.String = string(p)
	}

	return configData, nil
}

func toTelemetryData(flightID int64, t *telemetry.Telemetry) *telemetryData {
	return &telemetryData{
		FlightID:    flightID,
		Timestamp:   t.Timestamp.UTC(),
		Altitude:    toNullFloat64(t.Altitude),
		Pressure:    toNullFloat64(t.Pressure),
		Temperature: toNullFloat64(t.Temperature),
		Roll:        toNullFloat64(t.Roll),
		Pitch:       toNullFloat64(t.Pitch),
		Yaw:         toNullFloat64(t.Yaw),
		Thrust:      toNullFloat64(t.Thrust),
		Battery:     toNullFloat64(t.Battery),
	}
}

func fromTelemetryData(d *telemetryData) *telemetry.Telemetry {
	return &telemetry.Telemetry{
		Timestamp:   d.Timestamp,
		Altitude:    fromNullFloat64(d.Altitude),
		Pressure:    fromNullFloat64(d.Pressure),
		Temperature: fromNullFloat64(d.Temperature),
		Roll:        fromNullFloat64(d.Roll),
		Pitch:       fromNullFloat64(d.Pitch),
		Yaw:         fromNullFloat64(d.Yaw),
		Thrust:      fromNullFloat64(d.Thrust),
		Battery:     fromNullFloat64(d.Battery),
	}
}

func toSetpointData(flightID int64, sp flight.Setpoint) *setpointData {
	return &setpointData{
		FlightID:  flightID,
		Timestamp: sp.Timestamp.UTC(),
		Phase:     sp.Phase,
		Roll:      float64(sp.Roll),
		Pitch:     float64(sp.Pitch),
		YawRate:   float64(sp.YawRate),
		Thrust:    int64(sp.Thrust),
	}
}

func fromFlightData(d *flightData) *flight.Flight {
	f := flight.Flight{
		ID:        d.ID,
		StartTime: d.StartTime,
		LinkURI:   d.LinkURI,
		Mode:      d.Mode,
	}
	if d.EndTime.Valid {
		f.EndTime = &d.EndTime.Time
	}
	if d.Config.Valid {
		f.Config = &d.Config.String
	}
	return &f
}

func toNullFloat64(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func fromNullFloat64(f sql.NullFloat64) *float64 {
	if !f.Valid {
		return nil
	}
	v := f.Float64
	return &v
}
