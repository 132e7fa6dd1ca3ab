// Package controller owns the device context and runs whichever volume path
// the startup mode selected: button commands or the potentiometer poll loop.
package controller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/micro-nova/ampvol-go/internal/adc"
	"github.com/micro-nova/ampvol-go/internal/events"
	"github.com/micro-nova/ampvol-go/internal/input"
	"github.com/micro-nova/ampvol-go/internal/models"
	"github.com/micro-nova/ampvol-go/internal/volume"
)

// DefaultPollInterval is the delay between potentiometer samples.
const DefaultPollInterval = 100 * time.Millisecond

// Amplifier commits device state to the amplifier.
type Amplifier interface {
	PowerOn(dev *models.Device) error
	SetVolume(dev *models.Device) error
}

// Sampler reads one 10-bit analog sample.
type Sampler interface {
	Sample(ctx context.Context, channel int) (uint16, error)
}

// Options wires a Controller.
type Options struct {
	Mode models.Mode
	Amp  Amplifier

	// Potentiometer mode.
	Sampler      Sampler
	Channel      int
	PollInterval time.Duration

	// Button mode.
	Up, Down input.Switch
	Timing   input.Timing

	// Events receives a snapshot after every commit. Optional.
	Events *events.Bus
}

// Controller holds the single Device and is its only writer.
//
// Exactly one goroutine mutates the device: the button runner in button mode
// or the poll loop in potentiometer mode. Mode is fixed at construction. The
// mutex only guards the published snapshot for status readers.
type Controller struct {
	dev     models.Device
	amp     Amplifier
	sampler Sampler
	channel int
	poll    time.Duration
	buttons *input.Controller
	bus     *events.Bus

	mu   sync.RWMutex
	snap models.Snapshot
}

// New creates a controller for opts.Mode.
func New(opts Options) (*Controller, error) {
	if opts.Amp == nil {
		return nil, errors.New("controller: amplifier is required")
	}
	c := &Controller{
		dev:     models.Device{Mode: opts.Mode},
		amp:     opts.Amp,
		sampler: opts.Sampler,
		channel: opts.Channel,
		poll:    opts.PollInterval,
		bus:     opts.Events,
	}
	if c.poll <= 0 {
		c.poll = DefaultPollInterval
	}

	switch opts.Mode {
	case models.ModePotentiometer:
		if opts.Sampler == nil {
			return nil, errors.New("controller: potentiometer mode needs a sampler")
		}
	case models.ModeButton:
		if opts.Up == nil || opts.Down == nil {
			return nil, errors.New("controller: button mode needs both switches")
		}
		c.buttons = input.New(opts.Up, opts.Down, opts.Timing, c.Step)
	default:
		return nil, fmt.Errorf("controller: unknown mode %v", opts.Mode)
	}

	c.snap = c.dev.Snapshot()
	return c, nil
}

// Mode returns the mode fixed at construction.
func (c *Controller) Mode() models.Mode {
	return c.dev.Mode
}

// State returns the last committed snapshot. Safe from any goroutine.
func (c *Controller) State() models.Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snap
}

// Start powers the amplifier on and commits the initial level: the default
// in button mode, a fresh sample in potentiometer mode.
func (c *Controller) Start(ctx context.Context) error {
	if err := c.amp.PowerOn(&c.dev); err != nil {
		slog.Warn("controller: power on failed", "err", err)
	}

	level := volume.Default
	if c.dev.Mode == models.ModePotentiometer {
		s, err := c.sampler.Sample(ctx, c.channel)
		if err != nil {
			return fmt.Errorf("controller: initial sample: %w", err)
		}
		level = adc.Quantize(s)
	}

	c.dev.Volume = volume.At(level)
	c.commit()
	slog.Info("controller: started", "mode", c.dev.Mode, "level", c.dev.Volume.Level(), "power", c.dev.Power)
	return nil
}

// Step applies one button command. It is the action of the button runner and
// does nothing in potentiometer mode.
func (c *Controller) Step(dir input.Direction) {
	if c.dev.Mode != models.ModeButton {
		slog.Warn("controller: button command ignored", "mode", c.dev.Mode, "direction", dir)
		return
	}
	if dir == input.Up {
		c.dev.Volume = c.dev.Volume.Up()
	} else {
		c.dev.Volume = c.dev.Volume.Down()
	}
	c.commit()
}

// CheckADC samples the potentiometer once and commits the quantized level if
// it differs from the current one. It reports whether a commit happened.
func (c *Controller) CheckADC(ctx context.Context) (bool, error) {
	s, err := c.sampler.Sample(ctx, c.channel)
	if err != nil {
		return false, fmt.Errorf("controller: sample: %w", err)
	}
	level := adc.Quantize(s)
	if level == c.dev.Volume.Level() {
		return false, nil
	}
	c.dev.Volume = volume.At(level)
	c.commit()
	return true, nil
}

// Run drives the mode's volume path until ctx is cancelled. In button mode
// edges feeds the debounce machine; in potentiometer mode it is ignored and
// the potentiometer is polled instead.
func (c *Controller) Run(ctx context.Context, edges <-chan input.Button) error {
	if c.dev.Mode == models.ModeButton {
		err := c.buttons.Run(ctx, edges)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	}

	timer := time.NewTimer(0)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-timer.C:
		}
		if _, err := c.CheckADC(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			slog.Warn("controller: potentiometer read failed", "err", err)
		}
		timer.Reset(c.poll)
	}
}

// commit pushes the device to the amplifier and publishes the result.
func (c *Controller) commit() {
	if err := c.amp.SetVolume(&c.dev); err != nil {
		slog.Warn("controller: amplifier write failed", "level", c.dev.Volume.Level(), "err", err)
	}
	snap := c.dev.Snapshot()

	c.mu.Lock()
	c.snap = snap
	c.mu.Unlock()

	if c.bus != nil {
		c.bus.Publish(snap)
	}
	slog.Debug("controller: volume", "level", snap.Level, "speaker", snap.Speaker,
		"headphone", snap.Headphone, "power", snap.Power)
}
