package telemetry

import (
	"testing"
	"time"

	"github.com/roman-kulish/motor-ramp/internal/link"
)

func TestFromSample(t *testing.T) {
	ts := time.Now()
	tm := FromSample(link.Sample{
		Timestamp: ts,
		Config:    DefaultLogConfigName,
		Values: map[string]float64{
			VarBaroASL:          10.5,
			VarStabilizerRoll:   -1.5,
			VarStabilizerThrust: 20000,
			"unrelated.var":     1,
		},
	})

	if !tm.Timestamp.Equal(ts) {
		t.Errorf("Expected timestamp %s, got %s", ts, tm.Timestamp)
	}
	if tm.Altitude == nil || *tm.Altitude != 10.5 {
		t.Errorf("Expected altitude 10.5, got %v", tm.Altitude)
	}
	if tm.Roll == nil || *tm.Roll != -1.5 {
		t.Errorf("Expected roll -1.5, got %v", tm.Roll)
	}
	if tm.Thrust == nil || *tm.Thrust != 20000 {
		t.Errorf("Expected thrust 20000, got %v", tm.Thrust)
	}
	if tm.Pressure != nil || tm.Pitch != nil || tm.Yaw != nil || tm.Battery != nil {
		t.Errorf("Expected missing variables to be nil: %+v", tm)
	}
}

func TestDefaultLogConfig(t *testing.T) {
	cfg := DefaultLogConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default log config is invalid: %v", err)
	}
	if cfg.Name != "Barometer" || cfg.Period != 100*time.Millisecond {
		t.Errorf("Unexpected default config %s / %s", cfg.Name, cfg.Period)
	}
	if cfg.Variables[0].Name != VarBaroASL {
		t.Errorf("Expected %s first, got %s", VarBaroASL, cfg.Variables[0].Name)
	}
}

func TestLatest(t *testing.T) {
	var l Latest
	if l.Get() != nil || l.Count() != 0 {
		t.Fatalf("Expected empty provider")
	}

	first, second := &Telemetry{}, &Telemetry{}
	l.Update(first)
	l.Update(second)

	if l.Get() != second {
		t.Errorf("Expected the latest record")
	}
	if l.Count() != 2 {
		t.Errorf("Expected count 2, got %d", l.Count())
	}
}
