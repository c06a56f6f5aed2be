package app

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/roman-kulish/motor-ramp/internal/control"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "pilot.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	config, err := LoadConfig("")
	if err != nil {
		t.Fatalf("Failed to load defaults: %v", err)
	}
	if err = config.Validate(); err != nil {
		t.Fatalf("Expected defaults to be valid: %v", err)
	}

	if config.Control.Mode != control.StrategyHold {
		t.Errorf("Expected hold mode by default, got %s", config.Control.Mode)
	}
	if time.Duration(config.Control.SetpointPeriod) != 100*time.Millisecond {
		t.Errorf("Expected 100ms setpoint period, got %s", config.Control.SetpointPeriod)
	}
	if config.Control.Trim != (control.Trim{Pitch: 5, Roll: 13}) {
		t.Errorf("Unexpected default trim %+v", config.Control.Trim)
	}
	if limits := config.Control.Limits(); limits.MaxThrottle != control.HoldMaxThrottle || limits.MaxTrim != 60 {
		t.Errorf("Unexpected hold limits %+v", limits)
	}

	logConfig := config.Telemetry.LogConfig()
	if logConfig.Name != "Barometer" || len(logConfig.Variables) != 6 {
		t.Errorf("Unexpected log config %+v", logConfig)
	}
}

func TestLoadConfig_File(t *testing.T) {
	path := writeConfig(t, `
settings:
  logLevel: debug
link:
  sim:
    devices: 2
    hoverThrust: 32000
control:
  mode: manual
  setpointPeriod: 50ms
  hold:
    climb: 2.5
  manual:
    throttleStep: 500
    releaseAfter: 300ms
storage:
  enabled: false
`)

	config, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if config.Settings.LogLevel != slog.LevelDebug {
		t.Errorf("Expected debug log level, got %s", config.Settings.LogLevel)
	}
	if config.Link.Sim.Devices != 2 || config.Link.Sim.HoverThrust != 32000 {
		t.Errorf("Unexpected sim config %+v", config.Link.Sim)
	}
	if config.Control.Mode != control.StrategyManual {
		t.Errorf("Expected manual mode, got %s", config.Control.Mode)
	}
	if time.Duration(config.Control.SetpointPeriod) != 50*time.Millisecond {
		t.Errorf("Expected 50ms period, got %s", config.Control.SetpointPeriod)
	}
	if config.Control.Hold.Climb != 2.5 || config.Control.Hold.Step != 250 {
		t.Errorf("Expected climb override with default step, got %+v", config.Control.Hold)
	}
	if config.Control.Manual.ThrottleStep != 500 || config.Control.Manual.TrimStep != 5 {
		t.Errorf("Unexpected manual config %+v", config.Control.Manual)
	}
	if time.Duration(config.Control.Manual.ReleaseAfter) != 300*time.Millisecond {
		t.Errorf("Expected 300ms release, got %s", config.Control.Manual.ReleaseAfter)
	}
	if limits := config.Control.Limits(); limits.MaxThrottle != control.ManualMaxThrottle {
		t.Errorf("Expected manual throttle limit, got %d", limits.MaxThrottle)
	}
	if config.Storage.Enabled {
		t.Errorf("Expected storage disabled")
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := map[string]string{
		"unknown mode":   "control:\n  mode: auto\n",
		"bad duration":   "control:\n  waitPoll: soon\n",
		"zero period":    "control:\n  setpointPeriod: 0s\n",
		"negative step":  "control:\n  hold:\n    step: -1\n",
		"base over max":  "control:\n  maxThrottle: 10000\n",
		"no hover value": "link:\n  sim:\n    hoverThrust: 0\n",
		"zero flush":     "storage:\n  flushInterval: 0s\n",
	}

	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := LoadConfig(writeConfig(t, content)); err == nil {
				t.Errorf("Expected error")
			}
		})
	}

	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Errorf("Expected error for a missing file")
	}
}

func TestDuration_JSON(t *testing.T) {
	d := Duration(1500 * time.Millisecond)

	p, err := d.MarshalJSON()
	if err != nil {
		t.Fatalf("Failed to marshal: %v", err)
	}
	if !strings.Contains(string(p), "1.5s") {
		t.Errorf("Unexpected JSON %s", p)
	}

	var back Duration
	if err = back.UnmarshalJSON(p); err != nil || back != d {
		t.Errorf("Expected %s, got %s (%v)", d, back, err)
	}
}
