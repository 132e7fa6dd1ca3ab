//go:build !tinygo

package hardware

import (
	"context"
	"fmt"
	"strings"
	"time"

	"periph.io/x/conn/v3/gpio"

	"github.com/micro-nova/ampvol-go/internal/models"
)

// edgePoll bounds each WaitForEdge so watchers notice cancellation.
const edgePoll = 100 * time.Millisecond

// ParsePull maps "up", "down" or "float" to a periph pull setting.
func ParsePull(s string) (gpio.Pull, error) {
	switch strings.ToLower(s) {
	case "up":
		return gpio.PullUp, nil
	case "down":
		return gpio.PullDown, nil
	case "float", "none", "":
		return gpio.Float, nil
	default:
		return gpio.PullNoChange, fmt.Errorf("gpio: invalid pull %q", s)
	}
}

// Button is a momentary switch on a GPIO input.
type Button struct {
	pin       gpio.PinIn
	activeLow bool
}

// NewButton configures pin as an input. With edges set the pin reports the
// press edge (falling when active low); without it no edge detection is armed.
func NewButton(pin gpio.PinIn, pull gpio.Pull, activeLow, edges bool) (*Button, error) {
	edge := gpio.NoEdge
	if edges {
		edge = gpio.RisingEdge
		if activeLow {
			edge = gpio.FallingEdge
		}
	}
	if err := pin.In(pull, edge); err != nil {
		return nil, fmt.Errorf("gpio: configure %s: %w", pin, err)
	}
	return &Button{pin: pin, activeLow: activeLow}, nil
}

// Pressed reports the current switch level.
func (b *Button) Pressed() bool {
	if b.activeLow {
		return b.pin.Read() == gpio.Low
	}
	return b.pin.Read() == gpio.High
}

func (b *Button) String() string { return b.pin.String() }

// Watch calls fn for every press edge until ctx is cancelled.
func (b *Button) Watch(ctx context.Context, fn func()) {
	for {
		if ctx.Err() != nil {
			return
		}
		if b.pin.WaitForEdge(edgePoll) {
			fn()
		}
	}
}

// ReadMode samples the mode-select pin once. High selects potentiometer mode.
func ReadMode(pin gpio.PinIn, pull gpio.Pull) (models.Mode, error) {
	if err := pin.In(pull, gpio.NoEdge); err != nil {
		return models.ModeButton, fmt.Errorf("gpio: configure %s: %w", pin, err)
	}
	if pin.Read() == gpio.High {
		return models.ModePotentiometer, nil
	}
	return models.ModeButton, nil
}
