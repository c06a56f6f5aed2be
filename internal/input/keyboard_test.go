package input

import (
	"context"
	"errors"
	"testing"
	"time"

	"gobot.io/x/gobot/platforms/keyboard"

	"github.com/roman-kulish/motor-ramp/internal/control"
)

type fakeKeys struct {
	handler func(data interface{})
	started chan struct{}
	halted  bool
	fail    error
}

func (f *fakeKeys) On(name string, h func(data interface{})) error {
	if name != keyboard.Key {
		return errors.New("unexpected event " + name)
	}
	f.handler = h
	return nil
}

func (f *fakeKeys) Start() error {
	if f.fail != nil {
		return f.fail
	}
	close(f.started)
	return nil
}

func (f *fakeKeys) Halt() error {
	f.halted = true
	return nil
}

func newTrim() (*control.State, *control.ManualTrim) {
	s := control.NewState(control.Limits{MaxThrottle: control.ManualMaxThrottle, MaxTrim: control.DefaultMaxTrim})
	return s, control.NewManualTrim(s, control.DefaultTrimConfig())
}

func TestHandler_HeldKeyRepeats(t *testing.T) {
	s, trim := newTrim()
	h := NewHandler(trim)

	now := time.Now()
	h.press(keyboard.ArrowUp, now)

	for i := 1; i <= 3; i++ {
		h.tick(now.Add(time.Duration(i) * DefaultPeriod))
	}
	if s.Throttle() != 3000 {
		t.Errorf("Expected throttle 3000 after three ticks, got %d", s.Throttle())
	}

	h.press(keyboard.W, now.Add(200*time.Millisecond))
	h.tick(now.Add(250 * time.Millisecond))
	h.tick(now.Add(300 * time.Millisecond))

	snap := s.Snapshot()
	if snap.Throttle != 3000 || snap.Pitch != 10 {
		t.Errorf("Expected throttle 3000 and pitch 10, got %d/%d", snap.Throttle, snap.Pitch)
	}
}

func TestHandler_ReleaseResetsPitchRoll(t *testing.T) {
	s, trim := newTrim()
	h := NewHandler(trim)

	now := time.Now()
	h.press(keyboard.D, now)
	h.tick(now.Add(DefaultPeriod))
	h.tick(now.Add(2 * DefaultPeriod))

	if roll := s.Snapshot().Roll; roll != 10 {
		t.Fatalf("Expected roll 10, got %d", roll)
	}

	h.tick(now.Add(DefaultReleaseAfter + DefaultPeriod))
	if snap := s.Snapshot(); snap.Roll != 0 || snap.Pitch != 0 {
		t.Errorf("Expected pitch and roll reset on release, got %d/%d", snap.Pitch, snap.Roll)
	}

	h.tick(now.Add(DefaultReleaseAfter + 2*DefaultPeriod))
	if roll := s.Snapshot().Roll; roll != 0 {
		t.Errorf("Expected no action after release, got roll %d", roll)
	}
}

func TestHandler_UnmappedKeyKeepsAction(t *testing.T) {
	s, trim := newTrim()
	h := NewHandler(trim)

	now := time.Now()
	h.press(keyboard.A, now)
	if h.press(keyboard.Spacebar, now.Add(10*time.Millisecond)) {
		t.Fatalf("Spacebar must not stop")
	}
	h.tick(now.Add(DefaultPeriod))

	if roll := s.Snapshot().Roll; roll != -5 {
		t.Errorf("Expected roll -5, got %d", roll)
	}
}

func TestHandler_EscapeStops(t *testing.T) {
	s, trim := newTrim()
	keys := &fakeKeys{started: make(chan struct{})}

	h := NewHandler(trim, WithPeriod(time.Millisecond))
	h.keys = keys

	done := make(chan error, 1)
	go func() { done <- h.Run(context.Background()) }()

	select {
	case <-keys.started:
	case <-time.After(2 * time.Second):
		t.Fatal("keyboard was not started")
	}

	keys.handler(keyboard.KeyEvent{Key: keyboard.ArrowUp})
	keys.handler(keyboard.KeyEvent{Key: keyboard.Escape})

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run returned error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("handler did not return after escape")
	}

	if !s.Stopped() {
		t.Errorf("Expected escape to stop the session")
	}
	if !keys.halted {
		t.Errorf("Expected keyboard to be halted")
	}
}

func TestHandler_StartFailure(t *testing.T) {
	_, trim := newTrim()
	h := NewHandler(trim)
	h.keys = &fakeKeys{fail: errors.New("not a terminal")}

	if err := h.Run(context.Background()); err == nil {
		t.Errorf("Expected error when the keyboard cannot start")
	}
}
