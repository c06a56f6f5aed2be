package link

import (
	"errors"
	"testing"
	"time"
)

func TestLogConfig_Validate(t *testing.T) {
	floats := func(n int) []LogVariable {
		vars := make([]LogVariable, n)
		for i := range vars {
			vars[i] = LogVariable{Name: "baro.asl", Type: "float"}
		}
		return vars
	}

	tests := []struct {
		name    string
		config  LogConfig
		wantErr bool
	}{
		{"valid", LogConfig{Name: "Barometer", Period: 100 * time.Millisecond, Variables: floats(6)}, false},
		{"zero period", LogConfig{Name: "Barometer", Variables: floats(1)}, true},
		{"period not multiple of 10ms", LogConfig{Name: "Barometer", Period: 15 * time.Millisecond, Variables: floats(1)}, true},
		{"period too long", LogConfig{Name: "Barometer", Period: 3 * time.Second, Variables: floats(1)}, true},
		{"longest period", LogConfig{Name: "Barometer", Period: MaxLogPeriod, Variables: floats(1)}, false},
		{"no variables", LogConfig{Name: "Barometer", Period: 100 * time.Millisecond}, true},
		{"payload too large", LogConfig{Name: "Barometer", Period: 100 * time.Millisecond, Variables: floats(7)}, true},
		{"unknown type", LogConfig{Name: "Barometer", Period: 100 * time.Millisecond, Variables: []LogVariable{{Name: "baro.asl", Type: "double"}}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidLogConfig) {
					t.Errorf("expected ErrInvalidLogConfig, got %v", err)
				}
				return
			}
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestUnknownVariableError(t *testing.T) {
	var err error = &UnknownVariableError{Name: "baro.foo"}

	if !errors.Is(err, ErrUnknownVariable) {
		t.Fatalf("expected error to match ErrUnknownVariable")
	}
	if err.Error() != "baro.foo: variable not found in TOC" {
		t.Errorf("unexpected message: %s", err.Error())
	}
}

func TestSetpoint_IsZero(t *testing.T) {
	if !(Setpoint{}).IsZero() {
		t.Errorf("empty setpoint should be zero")
	}
	if (Setpoint{Thrust: 1}).IsZero() {
		t.Errorf("setpoint with thrust should not be zero")
	}
	if (Setpoint{Roll: 13}).IsZero() {
		t.Errorf("setpoint with roll should not be zero")
	}
}
