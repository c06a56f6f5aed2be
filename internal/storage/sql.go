package storage

import (
	_ "embed"
)

const (
	insertFlightSQL = `
INSERT INTO flights (
                     start_time,
                     link_uri,
                     mode,
                     config)
VALUES (?, ?, ?, ?)`

	finishFlightSQL = `
UPDATE flights
SET end_time = ?
WHERE id = ?`

	selectFlightSQL = `
SELECT
    id,
    start_time,
    end_time,
    link_uri,
    mode,
    config
FROM flights
WHERE
    id = ?`

	selectFlightsSQL = `
SELECT
    id,
    start_time,
    end_time,
    link_uri,
    mode,
    config
FROM flights
ORDER BY start_time`

	insertTelemetrySQL = `
INSERT INTO telemetry (flight_id,
                       timestamp,
                       altitude,
                       pressure,
                       temperature,
                       roll,
                       pitch,
                       yaw,
                       thrust,
                       battery)
VALUES `

	insertSetpointSQL = `
INSERT INTO setpoints (flight_id,
                       timestamp,
                       phase,
                       roll,
                       pitch,
                       yaw_rate,
                       thrust)
VALUES `

	insertEventSQL = `
INSERT INTO events (flight_id,
                    timestamp,
                    kind,
                    message)
VALUES (?, ?, ?, ?)`

	selectTelemetrySQL = `
SELECT
    timestamp,
    altitude,
    pressure,
    temperature,
    roll,
    pitch,
    yaw,
    thrust,
    battery
FROM telemetry
WHERE
    flight_id = ?
ORDER BY timestamp`

	selectSetpointsSQL = `
SELECT
    timestamp,
    phase,
    roll,
    pitch,
    yaw_rate,
    thrust
FROM setpoints
WHERE
    flight_id = ?
ORDER BY timestamp`

	selectEventsSQL = `
SELECT
    timestamp,
    kind,
    message
FROM events
WHERE
    flight_id = ?
ORDER BY timestamp`
)

var (
	//go:embed schema.sql
	initSchemaSQL string

	//go:embed indexes.sql
	initIndexesSQL string
)
