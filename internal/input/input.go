// Package input turns raw button edges into volume commands.
//
// Each edge starts a debounce session that is advanced one step per timer
// tick. A session that survives the debounce threshold fires one command,
// then fires again every repeat interval while the button stays held. Only
// one session runs at a time; the other button waits until the first is
// released. Nothing in this package blocks, so a tick source can be a
// hardware timer, a time.Ticker, or a test loop.
package input

import (
	"context"
	"log/slog"
	"time"
)

// Direction is the sign of a volume step.
type Direction int

const (
	Down Direction = -1
	Up   Direction = 1
)

func (d Direction) String() string {
	if d == Up {
		return "up"
	}
	return "down"
}

// Button identifies one of the two volume buttons.
type Button int

const (
	ButtonUp Button = iota
	ButtonDown
	numButtons
)

func (b Button) String() string {
	switch b {
	case ButtonUp:
		return "up"
	case ButtonDown:
		return "down"
	default:
		return "unknown"
	}
}

// Direction returns the command a button issues.
func (b Button) Direction() Direction {
	if b == ButtonUp {
		return Up
	}
	return Down
}

// Switch reports whether a button is currently held.
type Switch interface {
	Pressed() bool
}

// Phase is the state of the debounce machine.
type Phase int

const (
	Idle Phase = iota
	Debouncing
	Repeating
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Debouncing:
		return "debouncing"
	case Repeating:
		return "repeating"
	default:
		return "unknown"
	}
}

// Timing holds the debounce thresholds in ticks and the tick period.
type Timing struct {
	DebounceTicks int
	RepeatTicks   int
	TickPeriod    time.Duration
}

// DefaultTiming is 50 ms debounce and 250 ms repeat at a 250 µs tick.
func DefaultTiming() Timing {
	return Timing{
		DebounceTicks: 200,
		RepeatTicks:   1000,
		TickPeriod:    250 * time.Microsecond,
	}
}

// session is the debounce state of the button currently being serviced.
type session struct {
	button Button
	phase  Phase
	ticks  int
}

// Controller is the debounce and auto-repeat state machine.
// It is not safe for concurrent use; Run owns it on a single goroutine.
type Controller struct {
	switches [numButtons]Switch
	timing   Timing
	action   func(Direction)

	pending [numButtons]bool
	active  *session
}

// New creates a controller. action runs once per debounced press and once per
// repeat interval, on the goroutine calling Tick.
func New(up, down Switch, timing Timing, action func(Direction)) *Controller {
	if timing.DebounceTicks <= 0 {
		timing.DebounceTicks = DefaultTiming().DebounceTicks
	}
	if timing.RepeatTicks <= 0 {
		timing.RepeatTicks = DefaultTiming().RepeatTicks
	}
	if timing.TickPeriod <= 0 {
		timing.TickPeriod = DefaultTiming().TickPeriod
	}
	return &Controller{
		switches: [numButtons]Switch{up, down},
		timing:   timing,
		action:   action,
	}
}

// Edge latches an edge on b. If no session is active one starts for the
// highest-priority pending button.
func (c *Controller) Edge(b Button) {
	if b < 0 || b >= numButtons {
		return
	}
	c.pending[b] = true
	if c.active == nil {
		c.next()
	}
}

// Tick advances the active session by one tick.
func (c *Controller) Tick() {
	s := c.active
	if s == nil {
		return
	}

	if !c.switches[s.button].Pressed() {
		if s.phase == Debouncing {
			slog.Debug("input: bounce discarded", "button", s.button, "ticks", s.ticks)
		}
		c.finish()
		return
	}

	s.ticks++
	switch s.phase {
	case Debouncing:
		if s.ticks >= c.timing.DebounceTicks {
			s.phase = Repeating
			s.ticks = 0
			c.fire(s.button)
		}
	case Repeating:
		if s.ticks >= c.timing.RepeatTicks {
			s.ticks = 0
			c.fire(s.button)
		}
	}
}

// Phase reports the phase of the active session, or Idle.
func (c *Controller) Phase() Phase {
	if c.active == nil {
		return Idle
	}
	return c.active.phase
}

// Busy reports whether a session is active and needs ticks.
func (c *Controller) Busy() bool {
	return c.active != nil
}

// Timing returns the effective timing.
func (c *Controller) Timing() Timing {
	return c.timing
}

// Run feeds edges into the controller and ticks it at the configured period
// while a session is active. The ticker is stopped while idle. Run returns
// when ctx is cancelled.
func (c *Controller) Run(ctx context.Context, edges <-chan Button) error {
	ticker := time.NewTicker(c.timing.TickPeriod)
	ticker.Stop()
	defer ticker.Stop()

	var tick <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case b, ok := <-edges:
			if !ok {
				edges = nil
				continue
			}
			c.Edge(b)
		case <-tick:
			c.Tick()
		}

		switch {
		case c.Busy() && tick == nil:
			ticker.Reset(c.timing.TickPeriod)
			tick = ticker.C
		case !c.Busy() && tick != nil:
			ticker.Stop()
			tick = nil
		}
	}
}

func (c *Controller) fire(b Button) {
	slog.Debug("input: command", "button", b, "direction", b.Direction())
	if c.action != nil {
		c.action(b.Direction())
	}
}

// finish ends the active session. Edges latched on its button while it was
// held are dropped along with it.
func (c *Controller) finish() {
	c.pending[c.active.button] = false
	c.active = nil
	c.next()
}

func (c *Controller) next() {
	for b := ButtonUp; b < numButtons; b++ {
		if c.pending[b] {
			c.active = &session{button: b, phase: Debouncing}
			return
		}
	}
}
