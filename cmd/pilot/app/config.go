package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roman-kulish/motor-ramp/internal/control"
	"github.com/roman-kulish/motor-ramp/internal/input"
	"github.com/roman-kulish/motor-ramp/internal/link"
	"github.com/roman-kulish/motor-ramp/internal/link/sim"
	"github.com/roman-kulish/motor-ramp/internal/storage"
	"github.com/roman-kulish/motor-ramp/internal/telemetry"
)

// Config represents the main application configuration
type Config struct {
	Settings  Settings        `yaml:"settings" json:"-"`
	Link      LinkConfig      `yaml:"link" json:"link"`
	Telemetry TelemetryConfig `yaml:"telemetry" json:"telemetry"`
	Control   ControlConfig   `yaml:"control" json:"control"`
	Storage   StorageConfig   `yaml:"storage" json:"-"`
}

// Settings represents global application settings
type Settings struct {
	LogLevel slog.Level `yaml:"logLevel"`
}

// LinkConfig selects and configures the link backend
type LinkConfig struct {
	Sim SimConfig `yaml:"sim" json:"sim"`
}

// SimConfig configures the simulated devices
type SimConfig struct {
	Devices      int      `yaml:"devices" json:"devices"`
	HoverThrust  uint16   `yaml:"hoverThrust" json:"hoverThrust"`
	BaseAltitude float64  `yaml:"baseAltitude" json:"baseAltitude"`
	Noise        float64  `yaml:"noise" json:"noise"`
	ConnectDelay Duration `yaml:"connectDelay" json:"connectDelay"`
}

// TelemetryConfig is the log configuration registered on connect
type TelemetryConfig struct {
	Name      string             `yaml:"name" json:"name"`
	Period    Duration           `yaml:"period" json:"period"`
	Variables []link.LogVariable `yaml:"variables" json:"variables"`
}

// LogConfig converts the configuration to a link log configuration
func (c *TelemetryConfig) LogConfig() link.LogConfig {
	return link.LogConfig{
		Name:      c.Name,
		Period:    time.Duration(c.Period),
		Variables: c.Variables,
	}
}

// ControlConfig represents the control loop settings
type ControlConfig struct {
	Mode           string             `yaml:"mode" json:"mode"`
	Trim           control.Trim       `yaml:"trim" json:"trim"`
	SetpointPeriod Duration           `yaml:"setpointPeriod" json:"setpointPeriod"`
	WaitPoll       Duration           `yaml:"waitPoll" json:"waitPoll"`
	FlushDelay     Duration           `yaml:"flushDelay" json:"flushDelay"`
	MaxThrottle    int                `yaml:"maxThrottle" json:"maxThrottle"` // 0 selects the mode default
	MaxTrim        int                `yaml:"maxTrim" json:"maxTrim"`
	Hold           control.HoldConfig `yaml:"hold" json:"hold"`
	Manual         ManualConfig       `yaml:"manual" json:"manual"`
}

// Limits returns the state limits for the configured mode
func (c *ControlConfig) Limits() control.Limits {
	limits := control.Limits{MaxThrottle: c.MaxThrottle, MaxTrim: c.MaxTrim}
	if limits.MaxThrottle == 0 {
		limits.MaxThrottle = control.HoldMaxThrottle
		if c.Mode == control.StrategyManual {
			limits.MaxThrottle = control.ManualMaxThrottle
		}
	}
	return limits
}

// ManualConfig represents the keyboard trim settings
type ManualConfig struct {
	control.TrimConfig `yaml:",inline"`

	KeyPeriod    Duration `yaml:"keyPeriod" json:"keyPeriod"`
	ReleaseAfter Duration `yaml:"releaseAfter" json:"releaseAfter"`
}

// StorageConfig represents flight recorder settings
type StorageConfig struct {
	Enabled       bool     `yaml:"enabled"`
	DataDirectory string   `yaml:"dataDirectory"`
	MaxBatchSize  int      `yaml:"maxBatchSize"`
	FlushInterval Duration `yaml:"flushInterval"`
}

// DefaultConfig returns the configuration used when no file is given
func DefaultConfig() *Config {
	logConfig := telemetry.DefaultLogConfig()

	return &Config{
		Settings: Settings{LogLevel: slog.LevelInfo},
		Link: LinkConfig{
			Sim: SimConfig{
				Devices:      1,
				HoverThrust:  sim.DefaultHoverThrust,
				BaseAltitude: sim.DefaultBaseAltitude,
				Noise:        0.02,
				ConnectDelay: Duration(sim.DefaultConnectDelay),
			},
		},
		Telemetry: TelemetryConfig{
			Name:      logConfig.Name,
			Period:    Duration(logConfig.Period),
			Variables: logConfig.Variables,
		},
		Control: ControlConfig{
			Mode:           control.StrategyHold,
			Trim:           control.DefaultTrim(),
			SetpointPeriod: Duration(control.DefaultPeriod),
			WaitPoll:       Duration(control.DefaultWaitPoll),
			FlushDelay:     Duration(control.DefaultFlushDelay),
			MaxTrim:        control.DefaultMaxTrim,
			Hold:           control.DefaultHoldConfig(),
			Manual: ManualConfig{
				TrimConfig:   control.DefaultTrimConfig(),
				KeyPeriod:    Duration(input.DefaultPeriod),
				ReleaseAfter: Duration(input.DefaultReleaseAfter),
			},
		},
		Storage: StorageConfig{
			Enabled:       true,
			DataDirectory: storageDir,
			MaxBatchSize:  storage.DefaultMaxBatchSize,
			FlushInterval: Duration(storage.DefaultFlushInterval),
		},
	}
}

// LoadConfig reads the YAML file at path over the defaults. An empty path
// returns the defaults.
func LoadConfig(path string) (*Config, error) {
	config := DefaultConfig()
	if path == "" {
		return config, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading configuration: %w", err)
	}
	if err = yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}
	if err = config.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return config, nil
}

// Validate checks the configuration. The telemetry log configuration is
// checked by the device when it is registered.
func (c *Config) Validate() error {
	var errs []error

	if c.Link.Sim.Devices < 0 {
		errs = append(errs, errors.New("link.sim.devices must not be negative"))
	}
	if c.Link.Sim.HoverThrust == 0 {
		errs = append(errs, errors.New("link.sim.hoverThrust is required"))
	}
	if c.Link.Sim.ConnectDelay < 0 {
		errs = append(errs, errors.New("link.sim.connectDelay must not be negative"))
	}

	switch c.Control.Mode {
	case control.StrategyHold, control.StrategyManual:
	default:
		errs = append(errs, fmt.Errorf("control.mode must be '%s' or '%s', '%s' given", control.StrategyHold, control.StrategyManual, c.Control.Mode))
	}

	durations := map[string]Duration{
		"control.setpointPeriod":      c.Control.SetpointPeriod,
		"control.waitPoll":            c.Control.WaitPoll,
		"control.manual.keyPeriod":    c.Control.Manual.KeyPeriod,
		"control.manual.releaseAfter": c.Control.Manual.ReleaseAfter,
		"storage.flushInterval":       c.Storage.FlushInterval,
	}
	for name, d := range durations {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, %s given", name, d))
		}
	}
	if c.Control.FlushDelay < 0 {
		errs = append(errs, errors.New("control.flushDelay must not be negative"))
	}

	limits := c.Control.Limits()
	if limits.MaxThrottle < 0 || limits.MaxThrottle > 0xFFFF {
		errs = append(errs, fmt.Errorf("control.maxThrottle out of range: %d", limits.MaxThrottle))
	}
	if limits.MaxTrim < 0 {
		errs = append(errs, errors.New("control.maxTrim must not be negative"))
	}
	if c.Control.Hold.Step <= 0 {
		errs = append(errs, errors.New("control.hold.step must be positive"))
	}
	if c.Control.Hold.BaseThrottle < 0 || c.Control.Hold.BaseThrottle > limits.MaxThrottle {
		errs = append(errs, fmt.Errorf("control.hold.baseThrottle must be within [0, %d]", limits.MaxThrottle))
	}
	if c.Control.Manual.ThrottleStep <= 0 || c.Control.Manual.TrimStep <= 0 {
		errs = append(errs, errors.New("control.manual steps must be positive"))
	}

	if c.Storage.MaxBatchSize < 0 {
		errs = append(errs, errors.New("storage.maxBatchSize must not be negative"))
	}

	return errors.Join(errs...)
}

// Duration is a time.Duration read from strings such as "100ms"
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	duration, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("app.Duration: failed to parse: %s", err)
	}

	*d = Duration(duration)
	return nil
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return d.String(), nil
}

func (d *Duration) UnmarshalJSON(bytes []byte) error {
	var v string
	if err := json.Unmarshal(bytes, &v); err != nil {
		return err
	}

	duration, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("app.Duration: failed to parse: %s", err)
	}

	*d = Duration(duration)
	return nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d Duration) String() string {
	return time.Duration(d).String()
}
