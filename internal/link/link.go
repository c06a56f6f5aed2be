package link

import (
	"context"
	"time"
)

const (
	// EventConnected is published once the link is up and the TOCs are available
	EventConnected = "connected"

	// EventDisconnected is published when the link is closed, in all cases
	EventDisconnected = "disconnected"

	// EventConnectionFailed is published when the initial connection fails
	EventConnectionFailed = "connection-failed"

	// EventConnectionLost is published when an established link goes away
	EventConnectionLost = "connection-lost"
)

// LinkEvent is the payload of every connection notification
type LinkEvent struct {
	URI     string // Link identifier, e.g. "sim://0"
	Message string // Diagnostic message, empty for connected/disconnected
}

// Setpoint is a single attitude and thrust command
type Setpoint struct {
	Roll    float32 // Roll angle in degrees
	Pitch   float32 // Pitch angle in degrees
	YawRate float32 // Yaw rate in degrees per second
	Thrust  uint16  // Raw motor thrust, 0-65535
}

// IsZero reports whether the setpoint is the all-zero command, used both to
// release the post-connect thrust lock and to command a safe stop.
func (s Setpoint) IsZero() bool {
	return s == Setpoint{}
}

// Sample is one telemetry record delivered by a running log block
type Sample struct {
	Timestamp time.Time          // Time the sample was taken on the device
	Config    string             // Name of the log configuration
	Values    map[string]float64 // Variable name to value
}

// Commander sends motor commands to the device
type Commander interface {
	// SendSetpoint sends a single setpoint; delivery is not acknowledged.
	SendSetpoint(sp Setpoint) error

	// SetClientXMode enables or disables X-mode conversion of roll and pitch.
	SetClientXMode(enabled bool)
}

// LogHandler receives data and errors from a log block
type LogHandler struct {
	OnData  func(s Sample)
	OnError func(config string, err error)
}

// LogBlock is a registered telemetry subscription
type LogBlock interface {
	Start() error
	Stop() error
}

// Client is a connection to a single device.
//
// Connection notifications are delivered through On with the Event* names and
// a LinkEvent payload. Handlers run on goroutines owned by the client.
type Client interface {
	URI() string
	On(name string, f func(data interface{})) error

	// OpenLink starts connecting and returns immediately; the outcome is
	// published as EventConnected or EventConnectionFailed.
	OpenLink() error

	// CloseLink releases the link and publishes EventDisconnected.
	CloseLink() error

	Commander() Commander

	// AddLogConfig registers a log configuration. Variables are checked against
	// the device TOC, so this is only possible once connected.
	AddLogConfig(cfg LogConfig, h LogHandler) (LogBlock, error)
}

// Radio discovers devices and opens clients to them
type Radio interface {
	Scan(ctx context.Context) ([]string, error)
	Open(uri string) (Client, error)
}
