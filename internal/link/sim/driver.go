package sim

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"gobot.io/x/gobot"

	"github.com/roman-kulish/motor-ramp/internal/link"
)

const (
	// DefaultHoverThrust is the thrust at which the simulated device hovers
	DefaultHoverThrust = 30000

	// DefaultBaseAltitude is the ground altitude ASL in meters
	DefaultBaseAltitude = 10.0

	// DefaultConnectDelay emulates the TOC download after the link comes up
	DefaultConnectDelay = 50 * time.Millisecond

	physicsPeriod = 10 * time.Millisecond
)

// WithLogger sets the logger for the driver
func WithLogger(logger *slog.Logger) func(d *Driver) {
	return func(d *Driver) {
		d.logger = logger.With(slog.String("device", "sim"))
	}
}

// WithHoverThrust sets the thrust that balances gravity
func WithHoverThrust(thrust uint16) func(d *Driver) {
	return func(d *Driver) {
		d.hoverThrust = float64(thrust)
	}
}

// WithBaseAltitude sets the altitude of the ground in meters ASL
func WithBaseAltitude(altitude float64) func(d *Driver) {
	return func(d *Driver) {
		d.baseAltitude = altitude
	}
}

// WithNoise sets the amplitude of the barometer wobble in meters
func WithNoise(amplitude float64) func(d *Driver) {
	return func(d *Driver) {
		d.noise = amplitude
	}
}

// WithConnectDelay sets how long OpenLink takes to report the outcome
func WithConnectDelay(delay time.Duration) func(d *Driver) {
	return func(d *Driver) {
		d.connectDelay = delay
	}
}

// WithConnectionFailure makes every OpenLink fail with the given message
func WithConnectionFailure(msg string) func(d *Driver) {
	return func(d *Driver) {
		d.failure = msg
	}
}

// Driver is a simulated quadcopter reachable through a link URI. It satisfies
// both link.Client and gobot.Driver.
type Driver struct {
	gobot.Eventer

	name   string
	uri    string
	logger *slog.Logger

	hoverThrust  float64
	baseAltitude float64
	noise        float64
	connectDelay time.Duration
	failure      string

	mu        sync.Mutex
	model     *model
	blocks    []*logBlock
	setpoints []link.Setpoint
	xmode     bool
	opened    bool

	connected atomic.Bool
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

// NewDriver creates a simulated device with a discard logger
func NewDriver(uri string, options ...func(d *Driver)) *Driver {
	d := Driver{
		Eventer:      gobot.NewEventer(),
		name:         gobot.DefaultName("Crazyflie"),
		uri:          uri,
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		hoverThrust:  DefaultHoverThrust,
		baseAltitude: DefaultBaseAltitude,
		connectDelay: DefaultConnectDelay,
	}

	for _, option := range options {
		option(&d)
	}

	d.AddEvent(link.EventConnected)
	d.AddEvent(link.EventDisconnected)
	d.AddEvent(link.EventConnectionFailed)
	d.AddEvent(link.EventConnectionLost)

	return &d
}

// Name returns the gobot name of the driver
func (d *Driver) Name() string {
	return d.name
}

// SetName sets the gobot name of the driver
func (d *Driver) SetName(name string) {
	d.name = name
}

// Connection is nil, the simulated device has no adaptor
func (d *Driver) Connection() gobot.Connection {
	return nil
}

// Start opens the link, for gobot.Robot
func (d *Driver) Start() error {
	return d.OpenLink()
}

// Halt closes the link, for gobot.Robot
func (d *Driver) Halt() error {
	return d.CloseLink()
}

func (d *Driver) URI() string {
	return d.uri
}

func (d *Driver) Commander() link.Commander {
	return d
}

func (d *Driver) OpenLink() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.opened {
		return fmt.Errorf("link %s is already open", d.uri)
	}
	d.opened = true
	d.model = newModel(d.baseAltitude, d.hoverThrust, d.noise)
	d.setpoints = nil

	var ctx context.Context
	ctx, d.cancel = context.WithCancel(context.Background())

	d.wg.Add(1)
	go d.run(ctx)

	return nil
}

func (d *Driver) run(ctx context.Context) {
	defer d.wg.Done()

	select {
	case <-ctx.Done():
		return
	case <-time.After(d.connectDelay):
	}

	if d.failure != "" {
		d.logger.Debug("refusing connection", slog.String("uri", d.uri))
		d.Publish(link.EventConnectionFailed, link.LinkEvent{URI: d.uri, Message: d.failure})
		return
	}

	d.connected.Store(true)
	d.logger.Debug("link up", slog.String("uri", d.uri))
	d.Publish(link.EventConnected, link.LinkEvent{URI: d.uri})

	ticker := time.NewTicker(physicsPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.mu.Lock()
			d.model.step(physicsPeriod)
			d.mu.Unlock()
		}
	}
}

func (d *Driver) CloseLink() error {
	if !d.shutdown() {
		return nil
	}

	d.Publish(link.EventDisconnected, link.LinkEvent{URI: d.uri})
	return nil
}

// LoseLink simulates the device going out of range: running log blocks
// report an error, then connection-lost and disconnected are published.
func (d *Driver) LoseLink(msg string) {
	if !d.connected.Load() {
		return
	}

	d.mu.Lock()
	blocks := slices.Clone(d.blocks)
	d.mu.Unlock()

	for _, b := range blocks {
		b.fail(errors.New(msg))
	}

	if !d.shutdown() {
		return
	}

	d.Publish(link.EventConnectionLost, link.LinkEvent{URI: d.uri, Message: msg})
	d.Publish(link.EventDisconnected, link.LinkEvent{URI: d.uri})
}

// shutdown stops the physics and all log blocks, it returns false when the
// link was not open
func (d *Driver) shutdown() bool {
	d.mu.Lock()
	if !d.opened {
		d.mu.Unlock()
		return false
	}
	d.opened = false
	blocks := d.blocks
	d.blocks = nil
	d.mu.Unlock()

	for _, b := range blocks {
		_ = b.Stop()
	}

	d.cancel()
	d.wg.Wait()
	d.connected.Store(false)

	return true
}

func (d *Driver) SendSetpoint(sp link.Setpoint) error {
	if !d.connected.Load() {
		return link.ErrNotConnected
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.setpoints = append(d.setpoints, sp)
	d.model.apply(sp)
	return nil
}

func (d *Driver) SetClientXMode(enabled bool) {
	d.mu.Lock()
	d.xmode = enabled
	d.mu.Unlock()
}

func (d *Driver) AddLogConfig(cfg link.LogConfig, h link.LogHandler) (link.LogBlock, error) {
	if !d.connected.Load() {
		return nil, link.ErrNotConnected
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	for _, v := range cfg.Variables {
		if _, ok := toc[v.Name]; !ok {
			return nil, &link.UnknownVariableError{Name: v.Name}
		}
	}

	b := &logBlock{driver: d, config: cfg, handler: h}

	d.mu.Lock()
	d.blocks = append(d.blocks, b)
	d.mu.Unlock()

	return b, nil
}

// snapshot reads the given variables atomically
func (d *Driver) snapshot(vars []link.LogVariable) map[string]float64 {
	d.mu.Lock()
	defer d.mu.Unlock()

	values := make(map[string]float64, len(vars))
	for _, v := range vars {
		values[v.Name] = d.model.read(v.Name)
	}
	return values
}

// Connected reports whether the link is up
func (d *Driver) Connected() bool {
	return d.connected.Load()
}

// Setpoints returns every setpoint received since the link was opened
func (d *Driver) Setpoints() []link.Setpoint {
	d.mu.Lock()
	defer d.mu.Unlock()

	return slices.Clone(d.setpoints)
}

// XMode reports whether client X-mode is enabled
func (d *Driver) XMode() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.xmode
}

// Altitude returns the true altitude of the simulated device
func (d *Driver) Altitude() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.model == nil {
		return d.baseAltitude
	}
	return d.model.altitude
}
