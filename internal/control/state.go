package control

import (
	"errors"
	"sync"
)

const (
	// ManualMaxThrottle caps the throttle of the manual trim law
	ManualMaxThrottle = 50000

	// HoldMaxThrottle caps the throttle of the altitude hold law
	HoldMaxThrottle = 35000

	// DefaultMaxTrim bounds pitch and roll trims to [-DefaultMaxTrim, DefaultMaxTrim]
	DefaultMaxTrim = 60
)

// ErrTargetAlreadySet is returned when the target altitude is set a second time
var ErrTargetAlreadySet = errors.New("target altitude already set")

// Limits bounds the values of a State
type Limits struct {
	MaxThrottle int `yaml:"maxThrottle" json:"maxThrottle"`
	MaxTrim     int `yaml:"maxTrim" json:"maxTrim"`
}

// Snapshot is a consistent copy of a State
type Snapshot struct {
	Throttle  int
	Pitch     int
	Roll      int
	Target    float64
	TargetSet bool
	Stopped   bool
}

// State is the record shared by the telemetry callback, the input handler and
// the setpoint transmitter. Every mutation clamps to the configured limits.
type State struct {
	limits Limits

	mu        sync.Mutex
	throttle  int
	pitch     int
	roll      int
	target    float64
	targetSet bool

	stopOnce sync.Once
	done     chan struct{}
}

// NewState creates a zeroed state
func NewState(limits Limits) *State {
	return &State{
		limits: limits,
		done:   make(chan struct{}),
	}
}

func (s *State) Limits() Limits {
	return s.limits
}

func (s *State) Throttle() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.throttle
}

// SetThrottle sets the throttle and returns the clamped value
func (s *State) SetThrottle(v int) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.throttle = clamp(v, 0, s.limits.MaxThrottle)
	return s.throttle
}

// AddThrottle adjusts the throttle by delta and returns the clamped value
func (s *State) AddThrottle(delta int) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.throttle = clamp(s.throttle+delta, 0, s.limits.MaxThrottle)
	return s.throttle
}

// AddPitch adjusts the pitch trim by delta and returns the clamped value
func (s *State) AddPitch(delta int) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pitch = clamp(s.pitch+delta, -s.limits.MaxTrim, s.limits.MaxTrim)
	return s.pitch
}

// AddRoll adjusts the roll trim by delta and returns the clamped value
func (s *State) AddRoll(delta int) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.roll = clamp(s.roll+delta, -s.limits.MaxTrim, s.limits.MaxTrim)
	return s.roll
}

func (s *State) ResetPitchRoll() {
	s.mu.Lock()
	s.pitch, s.roll = 0, 0
	s.mu.Unlock()
}

// SetTarget records the target altitude; it can only be done once
func (s *State) SetTarget(altitude float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.targetSet {
		return ErrTargetAlreadySet
	}
	s.target, s.targetSet = altitude, true
	return nil
}

// Target returns the target altitude and whether it has been set
func (s *State) Target() (float64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.target, s.targetSet
}

// Stop raises the stop flag. It is safe to call more than once.
func (s *State) Stop() {
	s.stopOnce.Do(func() {
		close(s.done)
	})
}

// Done is closed once the stop flag is raised
func (s *State) Done() <-chan struct{} {
	return s.done
}

func (s *State) Stopped() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

func (s *State) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Snapshot{
		Throttle:  s.throttle,
		Pitch:     s.pitch,
		Roll:      s.roll,
		Target:    s.target,
		TargetSet: s.targetSet,
		Stopped:   s.Stopped(),
	}
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
