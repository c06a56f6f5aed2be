package storage

import (
	"database/sql"
	"time"
)

type flightData struct {
	ID        int64
	StartTime time.Time
	EndTime   sql.NullTime
	LinkURI   string
	Mode      string
	Config    sql.NullString
}

type telemetryData struct {
	FlightID    int64
	Timestamp   time.Time
	Altitude    sql.NullFloat64
	Pressure    sql.NullFloat64
	Temperature sql.NullFloat64
	Roll        sql.NullFloat64
	Pitch       sql.NullFloat64
	Yaw         sql.NullFloat64
	Thrust      sql.NullFloat64
	Battery     sql.NullFloat64
}

type setpointData struct {
	FlightID  int64
	Timestamp time.Time
	Phase     string
	Roll      float64
	Pitch     float64
	YawRate   float64
	Thrust    int64
}
