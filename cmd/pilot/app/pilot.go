package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/roman-kulish/motor-ramp/internal/control"
	"github.com/roman-kulish/motor-ramp/internal/flight"
	"github.com/roman-kulish/motor-ramp/internal/input"
	"github.com/roman-kulish/motor-ramp/internal/link"
	"github.com/roman-kulish/motor-ramp/internal/storage"
	"github.com/roman-kulish/motor-ramp/internal/telemetry"
)

// ErrConnectionFailed is returned when the link could not be established
var ErrConnectionFailed = errors.New("connection failed")

// inputRunner polls an input device until it is told to stop
type inputRunner interface {
	Run(ctx context.Context) error
}

// WithRecorder sets the flight recorder for telemetry, setpoints and events
func WithRecorder(recorder *storage.Recorder) func(*Pilot) {
	return func(p *Pilot) {
		p.recorder = recorder
	}
}

// Pilot runs one session against a connected device: it wires the link
// notifications, the telemetry subscription, the control strategy and the
// setpoint transmitter together.
type Pilot struct {
	client link.Client
	config *Config
	logger *slog.Logger

	state       *control.State
	strategy    control.Strategy
	manual      *control.ManualTrim
	transmitter *control.Transmitter
	latest      telemetry.Latest
	recorder    *storage.Recorder

	newInput func(trim *control.ManualTrim) inputRunner

	connected chan struct{}
	failed    chan string
	notify    sync.Once
}

// NewPilot creates a pilot for client configured by config
func NewPilot(client link.Client, config *Config, logger *slog.Logger, options ...func(*Pilot)) *Pilot {
	p := Pilot{
		client:    client,
		config:    config,
		logger:    logger,
		state:     control.NewState(config.Control.Limits()),
		connected: make(chan struct{}),
		failed:    make(chan string, 1),
	}

	for _, option := range options {
		option(&p)
	}

	switch config.Control.Mode {
	case control.StrategyManual:
		p.manual = control.NewManualTrim(p.state, config.Control.Manual.TrimConfig, control.WithTrimLogger(logger))
		p.strategy = p.manual
	default:
		p.strategy = control.NewAltitudeHold(p.state, config.Control.Hold, control.WithHoldLogger(logger))
	}

	p.newInput = func(trim *control.ManualTrim) inputRunner {
		return input.NewHandler(trim,
			input.WithLogger(logger),
			input.WithPeriod(time.Duration(config.Control.Manual.KeyPeriod)),
			input.WithReleaseAfter(time.Duration(config.Control.Manual.ReleaseAfter)))
	}

	p.transmitter = control.NewTransmitter(client, p.state,
		control.WithLogger(logger),
		control.WithTrim(config.Control.Trim),
		control.WithPeriod(time.Duration(config.Control.SetpointPeriod)),
		control.WithWaitPoll(time.Duration(config.Control.WaitPoll)),
		control.WithFlushDelay(time.Duration(config.Control.FlushDelay)),
		control.WithObserver(p.recordSetpoint))

	return &p
}

// State returns the shared control state
func (p *Pilot) State() *control.State {
	return p.state
}

// Transmitter returns the setpoint transmitter
func (p *Pilot) Transmitter() *control.Transmitter {
	return p.transmitter
}

// Telemetry returns the most recent telemetry
func (p *Pilot) Telemetry() telemetry.Provider {
	return &p.latest
}

// Run connects, flies until the session is stopped and releases the link.
// Cancelling ctx stops the session through the regular shutdown path.
func (p *Pilot) Run(ctx context.Context) error {
	if err := p.subscribe(); err != nil {
		return err
	}

	p.logger.Info(fmt.Sprintf("Connecting to %s", p.client.URI()))
	if err := p.client.OpenLink(); err != nil {
		return fmt.Errorf("opening link %s: %w", p.client.URI(), err)
	}

	select {
	case <-p.connected:
	case msg := <-p.failed:
		p.state.Stop()
		_ = p.client.CloseLink()
		return fmt.Errorf("%w: %s", ErrConnectionFailed, msg)
	case <-ctx.Done():
		p.state.Stop()
		return p.client.CloseLink()
	}

	p.client.Commander().SetClientXMode(true)

	var wg sync.WaitGroup
	errs := make(chan error, 2)

	wg.Add(1)
	go func() {
		defer wg.Done()
		errs <- p.transmitter.Run(ctx)
	}()

	p.startTelemetry()

	if p.manual != nil {
		inputCtx, cancel := context.WithCancel(ctx)
		defer cancel()

		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := p.newInput(p.manual).Run(inputCtx); err != nil {
				p.logger.Error(err.Error())
				p.state.Stop()
			}
		}()

		go func() {
			<-p.state.Done()
			cancel()
		}()
	}

	wg.Wait()
	close(errs)

	var runErrs []error
	for err := range errs {
		runErrs = append(runErrs, err)
	}
	return errors.Join(runErrs...)
}

func (p *Pilot) subscribe() error {
	handlers := map[string]func(link.LinkEvent){
		link.EventConnected:        p.onConnected,
		link.EventDisconnected:     p.onDisconnected,
		link.EventConnectionFailed: p.onConnectionFailed,
		link.EventConnectionLost:   p.onConnectionLost,
	}

	for name, h := range handlers {
		if err := p.client.On(name, func(data interface{}) {
			if ev, ok := data.(link.LinkEvent); ok {
				h(ev)
			}
		}); err != nil {
			return fmt.Errorf("subscribing to %s: %w", name, err)
		}
	}
	return nil
}

func (p *Pilot) onConnected(ev link.LinkEvent) {
	p.logger.Info(fmt.Sprintf("Connected to %s", ev.URI))
	p.recordEvent(flight.EventLink, "connected")
	p.notify.Do(func() { close(p.connected) })
}

func (p *Pilot) onDisconnected(ev link.LinkEvent) {
	p.logger.Info(fmt.Sprintf("Disconnected from %s", ev.URI))
	p.recordEvent(flight.EventLink, "disconnected")
}

func (p *Pilot) onConnectionFailed(ev link.LinkEvent) {
	p.logger.Error(fmt.Sprintf("Connection to %s failed: %s", ev.URI, ev.Message))
	p.recordEvent(flight.EventLink, "connection failed: "+ev.Message)
	p.state.Stop()

	select {
	case p.failed <- ev.Message:
	default:
	}
}

func (p *Pilot) onConnectionLost(ev link.LinkEvent) {
	p.logger.Error(fmt.Sprintf("Connection to %s lost: %s", ev.URI, ev.Message))
	p.recordEvent(flight.EventLink, "connection lost: "+ev.Message)
	p.state.Stop()
}

// startTelemetry registers and starts the log configuration. Failures are
// reported and leave the session running without telemetry.
func (p *Pilot) startTelemetry() {
	cfg := p.config.Telemetry.LogConfig()

	block, err := p.client.AddLogConfig(cfg, link.LogHandler{
		OnData:  p.onSample,
		OnError: p.onLogError,
	})

	var unknown *link.UnknownVariableError
	switch {
	case errors.As(err, &unknown):
		p.logger.Error(fmt.Sprintf("Could not start log configuration, %s not found in TOC", unknown.Name))
		p.recordEvent(flight.EventTelemetry, err.Error())
		return
	case errors.Is(err, link.ErrInvalidLogConfig):
		p.logger.Error(fmt.Sprintf("Could not add %s log config, bad configuration.", cfg.Name))
		p.recordEvent(flight.EventTelemetry, err.Error())
		return
	case err != nil:
		p.logger.Error(fmt.Sprintf("adding log config %s: %s", cfg.Name, err.Error()))
		p.recordEvent(flight.EventTelemetry, err.Error())
		return
	}

	if err = block.Start(); err != nil {
		p.logger.Error(fmt.Sprintf("starting log config %s: %s", cfg.Name, err.Error()))
		p.recordEvent(flight.EventTelemetry, err.Error())
	}
}

func (p *Pilot) onSample(s link.Sample) {
	t := telemetry.FromSample(s)

	p.latest.Update(t)
	p.strategy.Observe(t)

	if p.recorder != nil {
		p.recorder.RecordTelemetry(t)
	}
}

func (p *Pilot) onLogError(config string, err error) {
	p.logger.Error(fmt.Sprintf("Error when logging %s: %s", config, err.Error()))
	p.recordEvent(flight.EventTelemetry, err.Error())
	p.state.Stop()
}

func (p *Pilot) recordSetpoint(phase control.Phase, sp link.Setpoint) {
	if p.recorder == nil {
		return
	}
	p.recorder.RecordSetpoint(flight.Setpoint{
		Timestamp: time.Now(),
		Phase:     phase.String(),
		Roll:      sp.Roll,
		Pitch:     sp.Pitch,
		YawRate:   sp.YawRate,
		Thrust:    sp.Thrust,
	})
}

func (p *Pilot) recordEvent(kind, message string) {
	if p.recorder != nil {
		p.recorder.RecordEvent(kind, message)
	}
}
