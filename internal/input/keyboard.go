package input

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"gobot.io/x/gobot/platforms/keyboard"
)

const (
	// DefaultPeriod is how often the held action is applied
	DefaultPeriod = 50 * time.Millisecond

	// DefaultReleaseAfter is how long a key counts as held without a repeat.
	// Terminals report key presses and auto-repeat but never a release.
	DefaultReleaseAfter = 250 * time.Millisecond
)

// Trim is the set of manual adjustments a key can trigger
type Trim interface {
	ThrottleUp() int
	ThrottleDown() int
	PitchForward() int
	PitchBack() int
	RollRight() int
	RollLeft() int
	ResetPitchRoll()
	Stop()
}

// keySource publishes keyboard.Key events, it is satisfied by *keyboard.Driver
type keySource interface {
	On(name string, f func(data interface{})) error
	Start() error
	Halt() error
}

type action int

const (
	actionNone action = iota
	actionUp
	actionDown
	actionForward
	actionBack
	actionLeft
	actionRight
)

var actionNames = map[action]string{
	actionNone:    "none",
	actionUp:      "throttle up",
	actionDown:    "throttle down",
	actionForward: "forward",
	actionBack:    "back",
	actionLeft:    "left",
	actionRight:   "right",
}

var keyActions = map[int]action{
	keyboard.ArrowUp:   actionUp,
	keyboard.ArrowDown: actionDown,
	keyboard.W:         actionForward,
	keyboard.S:         actionBack,
	keyboard.A:         actionLeft,
	keyboard.D:         actionRight,
}

// WithLogger sets the logger of the handler
func WithLogger(logger *slog.Logger) func(h *Handler) {
	return func(h *Handler) {
		h.logger = logger.With(slog.String("component", "keyboard"))
	}
}

// WithPeriod sets how often the held action is applied
func WithPeriod(d time.Duration) func(h *Handler) {
	return func(h *Handler) {
		h.period = d
	}
}

// WithReleaseAfter sets the emulated key release timeout
func WithReleaseAfter(d time.Duration) func(h *Handler) {
	return func(h *Handler) {
		h.releaseAfter = d
	}
}

// Handler maps terminal key presses to trim adjustments. The last pressed key
// selects the action, which is applied every period while it is held.
// Releasing the key clears the action and resets pitch and roll.
type Handler struct {
	keys   keySource
	trim   Trim
	logger *slog.Logger

	period       time.Duration
	releaseAfter time.Duration

	mu        sync.Mutex
	current   action
	lastPress time.Time

	escape   chan struct{}
	stopOnce sync.Once
}

// NewHandler creates a handler reading the process terminal
func NewHandler(trim Trim, options ...func(h *Handler)) *Handler {
	h := Handler{
		keys:         keyboard.NewDriver(),
		trim:         trim,
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		period:       DefaultPeriod,
		releaseAfter: DefaultReleaseAfter,
		escape:       make(chan struct{}),
	}

	for _, option := range options {
		option(&h)
	}

	return &h
}

// Run polls the keyboard until Esc is pressed or ctx is cancelled. Esc stops
// the trim, cancellation leaves it to the caller.
func (h *Handler) Run(ctx context.Context) error {
	if err := h.keys.On(keyboard.Key, h.onKey); err != nil {
		return fmt.Errorf("subscribing to keyboard: %w", err)
	}
	if err := h.keys.Start(); err != nil {
		return fmt.Errorf("starting keyboard: %w", err)
	}
	defer func() {
		if err := h.keys.Halt(); err != nil {
			h.logger.Warn(fmt.Sprintf("halting keyboard: %s", err.Error()))
		}
	}()

	h.logger.Info("keyboard control ready, arrows throttle, w/s/a/d pitch and roll, esc stops")

	ticker := time.NewTicker(h.period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-h.escape:
			return nil
		case now := <-ticker.C:
			h.tick(now)
		}
	}
}

func (h *Handler) onKey(data interface{}) {
	ev, ok := data.(keyboard.KeyEvent)
	if !ok {
		return
	}
	h.press(ev.Key, time.Now())
}

// press records a key press and reports whether it was Esc
func (h *Handler) press(key int, now time.Time) bool {
	if key == keyboard.Escape {
		h.logger.Info("escape pressed, stopping")
		h.trim.Stop()
		h.stopOnce.Do(func() { close(h.escape) })
		return true
	}

	a, ok := keyActions[key]
	if !ok {
		h.logger.Debug("unmapped key", slog.Int("key", key))
		return false
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.current != a {
		h.logger.Debug("action", slog.String("action", actionNames[a]))
	}
	h.current = a
	h.lastPress = now
	return false
}

// tick applies the held action, releasing it first when the key has not
// repeated in time
func (h *Handler) tick(now time.Time) {
	h.mu.Lock()
	current := h.current
	if current != actionNone && now.Sub(h.lastPress) > h.releaseAfter {
		h.current = actionNone
		h.mu.Unlock()

		h.logger.Debug("action released", slog.String("action", actionNames[current]))
		h.trim.ResetPitchRoll()
		return
	}
	h.mu.Unlock()

	switch current {
	case actionUp:
		h.logger.Debug("throttle", slog.Int("value", h.trim.ThrottleUp()))
	case actionDown:
		h.logger.Debug("throttle", slog.Int("value", h.trim.ThrottleDown()))
	case actionForward:
		h.logger.Debug("pitch", slog.Int("value", h.trim.PitchForward()))
	case actionBack:
		h.logger.Debug("pitch", slog.Int("value", h.trim.PitchBack()))
	case actionLeft:
		h.logger.Debug("roll", slog.Int("value", h.trim.RollLeft()))
	case actionRight:
		h.logger.Debug("roll", slog.Int("value", h.trim.RollRight()))
	}
}
