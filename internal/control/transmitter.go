package control

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/roman-kulish/motor-ramp/internal/link"
)

const (
	DefaultPeriod     = 100 * time.Millisecond
	DefaultWaitPoll   = time.Second
	DefaultFlushDelay = 100 * time.Millisecond
)

// Phase is the state of the setpoint transmission loop
type Phase int32

const (
	PhaseWaitingForFirstSample Phase = iota
	PhaseUnlocking
	PhaseStreaming
	PhaseStopping
	PhaseClosed
)

func (p Phase) String() string {
	switch p {
	case PhaseWaitingForFirstSample:
		return "waiting"
	case PhaseUnlocking:
		return "unlocking"
	case PhaseStreaming:
		return "streaming"
	case PhaseStopping:
		return "stopping"
	case PhaseClosed:
		return "closed"
	default:
		return fmt.Sprintf("unknown(%d)", int32(p))
	}
}

// Trim is a constant offset added to every streamed roll and pitch
type Trim struct {
	Pitch float32 `yaml:"pitch" json:"pitch"`
	Roll  float32 `yaml:"roll" json:"roll"`
}

// DefaultTrim compensates for the airframe drift
func DefaultTrim() Trim {
	return Trim{Pitch: 5, Roll: 13}
}

// Link is the part of link.Client the transmitter needs
type Link interface {
	Commander() link.Commander
	CloseLink() error
}

// WithLogger sets the logger of the transmitter
func WithLogger(logger *slog.Logger) func(*Transmitter) {
	return func(t *Transmitter) {
		t.logger = logger.With(slog.String("component", "transmitter"))
	}
}

// WithTrim sets the roll and pitch trim
func WithTrim(trim Trim) func(*Transmitter) {
	return func(t *Transmitter) {
		t.trim = trim
	}
}

// WithPeriod sets the streaming period
func WithPeriod(d time.Duration) func(*Transmitter) {
	return func(t *Transmitter) {
		t.period = d
	}
}

// WithWaitPoll sets how often the throttle is checked while waiting
func WithWaitPoll(d time.Duration) func(*Transmitter) {
	return func(t *Transmitter) {
		t.waitPoll = d
	}
}

// WithFlushDelay sets the pause between the final setpoint and closing the link
func WithFlushDelay(d time.Duration) func(*Transmitter) {
	return func(t *Transmitter) {
		t.flushDelay = d
	}
}

// WithObserver registers a function called with every setpoint handed to the link
func WithObserver(f func(Phase, link.Setpoint)) func(*Transmitter) {
	return func(t *Transmitter) {
		t.observer = f
	}
}

// Transmitter streams setpoints derived from the shared state.
//
// It waits until the throttle is non-zero, sends one all-zero setpoint to
// release the thrust lock, streams the current setpoint every period until
// the stop flag is raised, then sends one final all-zero setpoint and closes
// the link. Failed sends are logged and not retried.
type Transmitter struct {
	link  Link
	state *State

	trim       Trim
	period     time.Duration
	waitPoll   time.Duration
	flushDelay time.Duration
	observer   func(Phase, link.Setpoint)
	logger     *slog.Logger

	phase   atomic.Int32
	sent    atomic.Uint64
	dropped atomic.Uint64
}

// NewTransmitter creates a transmitter with the default cadence and trim
func NewTransmitter(l Link, state *State, options ...func(*Transmitter)) *Transmitter {
	t := Transmitter{
		link:       l,
		state:      state,
		trim:       DefaultTrim(),
		period:     DefaultPeriod,
		waitPoll:   DefaultWaitPoll,
		flushDelay: DefaultFlushDelay,
		logger:     discardLogger(),
	}

	for _, option := range options {
		option(&t)
	}

	return &t
}

// Phase returns the current phase
func (t *Transmitter) Phase() Phase {
	return Phase(t.phase.Load())
}

// Sent returns the number of setpoints accepted by the link
func (t *Transmitter) Sent() uint64 {
	return t.sent.Load()
}

// Dropped returns the number of setpoints the link refused
func (t *Transmitter) Dropped() uint64 {
	return t.dropped.Load()
}

// Run drives the loop to completion. Cancelling ctx raises the stop flag and
// goes through the same shutdown path.
func (t *Transmitter) Run(ctx context.Context) error {
	t.setPhase(PhaseWaitingForFirstSample)
	t.waitForThrottle(ctx)

	t.setPhase(PhaseUnlocking)
	t.send(link.Setpoint{})
	t.logger.Info("unlocked thrust protection")

	t.setPhase(PhaseStreaming)
	t.stream(ctx)

	t.setPhase(PhaseStopping)
	t.send(link.Setpoint{})

	// the link does not flush its queue on close
	time.Sleep(t.flushDelay)

	err := t.link.CloseLink()
	t.setPhase(PhaseClosed)

	t.logger.Info("setpoint stream closed",
		slog.Uint64("sent", t.sent.Load()),
		slog.Uint64("dropped", t.dropped.Load()))

	if err != nil {
		return fmt.Errorf("closing link: %w", err)
	}
	return nil
}

func (t *Transmitter) waitForThrottle(ctx context.Context) {
	for t.state.Throttle() == 0 && !t.state.Stopped() {
		t.logger.Info("waiting for telemetry")

		select {
		case <-ctx.Done():
			t.state.Stop()
		case <-t.state.Done():
		case <-time.After(t.waitPoll):
		}
	}
}

func (t *Transmitter) stream(ctx context.Context) {
	ticker := time.NewTicker(t.period)
	defer ticker.Stop()

	for !t.state.Stopped() {
		t.send(t.setpoint())

		select {
		case <-ctx.Done():
			t.state.Stop()
		case <-t.state.Done():
		case <-ticker.C:
		}
	}
}

func (t *Transmitter) setpoint() link.Setpoint {
	s := t.state.Snapshot()

	return link.Setpoint{
		Roll:    float32(s.Roll) + t.trim.Roll,
		Pitch:   float32(s.Pitch) + t.trim.Pitch,
		YawRate: 0,
		Thrust:  uint16(s.Throttle),
	}
}

func (t *Transmitter) send(sp link.Setpoint) {
	if err := t.link.Commander().SendSetpoint(sp); err != nil {
		t.dropped.Add(1)
		t.logger.Warn(fmt.Sprintf("sending setpoint: %s", err.Error()), slog.String("phase", t.Phase().String()))
		return
	}

	t.sent.Add(1)
	if t.observer != nil {
		t.observer(t.Phase(), sp)
	}
}

func (t *Transmitter) setPhase(p Phase) {
	t.phase.Store(int32(p))
	t.logger.Debug("phase changed", slog.String("phase", p.String()))
}
