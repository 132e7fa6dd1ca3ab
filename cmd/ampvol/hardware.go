package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/micro-nova/ampvol-go/internal/adc"
	"github.com/micro-nova/ampvol-go/internal/amp"
	"github.com/micro-nova/ampvol-go/internal/config"
	"github.com/micro-nova/ampvol-go/internal/controller"
	"github.com/micro-nova/ampvol-go/internal/events"
	"github.com/micro-nova/ampvol-go/internal/hardware"
	"github.com/micro-nova/ampvol-go/internal/input"
	"github.com/micro-nova/ampvol-go/internal/models"
)

// mockPotSample is the mock potentiometer reading; it quantizes to the
// button-mode default so both mock modes start at the same level.
const mockPotSample = 22 << 5

// devices is everything opened at startup.
type devices struct {
	bus     hardware.Bus
	busDesc string
	mode    models.Mode

	up, down       input.Switch
	upBtn, downBtn *hardware.Button
	conv           adc.Converter
	closers        []io.Closer
}

// openHardware opens the amplifier bus, decides the mode and opens only the
// inputs that mode uses.
func openHardware(cfg *config.Config) (*devices, error) {
	d := &devices{}
	mock := cfg.Bus.Driver == config.DriverMock

	if err := d.openBus(cfg.Bus); err != nil {
		return nil, err
	}

	forced, err := cfg.ForcedMode()
	if err != nil {
		d.Close()
		return nil, err
	}
	switch {
	case forced != nil:
		d.mode = *forced
	case mock:
		d.mode = models.ModeButton
	default:
		if d.mode, err = readModePin(cfg.Pins); err != nil {
			d.Close()
			return nil, err
		}
	}

	switch {
	case mock && d.mode == models.ModeButton:
		d.up, d.down = &hardware.MockSwitch{}, &hardware.MockSwitch{}
	case mock:
		d.conv = hardware.NewMockADC(mockPotSample)
	case d.mode == models.ModeButton:
		err = d.openButtons(cfg.Pins)
	default:
		err = d.openADC(cfg.ADC)
	}
	if err != nil {
		d.Close()
		return nil, err
	}
	return d, nil
}

func (d *devices) openBus(cfg config.BusConfig) error {
	switch cfg.Driver {
	case config.DriverMock:
		d.bus, d.busDesc = hardware.NewMockBus(), "mock"
	case config.DriverIoctl:
		tx, err := openIoctl(cfg.Device, cfg.OpsPerSec)
		if err != nil {
			return err
		}
		d.bus, d.busDesc = hardware.NewTxBus(tx), "ioctl "+cfg.Device
		d.closers = append(d.closers, tx)
	case config.DriverPeriph:
		b, err := hardware.OpenPeriphI2C(cfg.Device, cfg.ClockHz)
		if err != nil {
			return err
		}
		d.bus, d.busDesc = hardware.NewTxBus(b), "periph "+b.String()
		d.closers = append(d.closers, b)
	case config.DriverBusPirate:
		bp, closer, err := hardware.OpenBusPirate(cfg.Port, cfg.ClockHz)
		if err != nil {
			return err
		}
		d.bus, d.busDesc = bp, "buspirate "+cfg.Port
		d.closers = append(d.closers, closer)
	default:
		return fmt.Errorf("unknown bus driver %q", cfg.Driver)
	}
	return nil
}

func readModePin(cfg config.PinsConfig) (models.Mode, error) {
	pull, err := hardware.ParsePull(cfg.ModePull)
	if err != nil {
		return models.ModeButton, err
	}
	pin, err := hardware.OpenPin(cfg.Mode)
	if err != nil {
		return models.ModeButton, err
	}
	return hardware.ReadMode(pin, pull)
}

func (d *devices) openButtons(cfg config.PinsConfig) error {
	pull, err := hardware.ParsePull(cfg.Pull)
	if err != nil {
		return err
	}
	open := func(name string) (*hardware.Button, error) {
		pin, err := hardware.OpenPin(name)
		if err != nil {
			return nil, err
		}
		return hardware.NewButton(pin, pull, cfg.ActiveLow, true)
	}
	if d.upBtn, err = open(cfg.Up); err != nil {
		return err
	}
	if d.downBtn, err = open(cfg.Down); err != nil {
		return err
	}
	d.up, d.down = d.upBtn, d.downBtn
	return nil
}

func (d *devices) openADC(cfg config.ADCConfig) error {
	conn, port, err := hardware.OpenSPI(cfg.SPIPort, cfg.ClockHz)
	if err != nil {
		return err
	}
	d.conv = hardware.NewMCP3008(conn)
	d.closers = append(d.closers, port)
	return nil
}

// options wires the opened devices into a controller.
func (d *devices) options(cfg *config.Config, bus *events.Bus) controller.Options {
	opts := controller.Options{
		Mode:         d.mode,
		Amp:          amp.NewWithAddr(d.bus, cfg.Amp.Address),
		Channel:      cfg.ADC.Channel,
		PollInterval: cfg.Timing.PollInterval,
		Up:           d.up,
		Down:         d.down,
		Timing:       cfg.InputTiming(),
		Events:       bus,
	}
	if d.conv != nil {
		opts.Sampler = adc.NewSampler(d.conv,
			adc.WithSettle(cfg.Timing.Settle),
			adc.WithTimeout(cfg.Timing.ConversionTimeout),
		)
	}
	return opts
}

// watchButtons arms edge detection on both buttons and forwards press edges.
// It returns nil when there are no physical buttons.
func (d *devices) watchButtons(ctx context.Context) <-chan input.Button {
	if d.upBtn == nil || d.downBtn == nil {
		return nil
	}
	edges := make(chan input.Button, 4)
	watch := func(btn *hardware.Button, id input.Button) {
		btn.Watch(ctx, func() {
			select {
			case edges <- id:
			default:
				// The runner already has an edge queued for this press.
			}
		})
	}
	go watch(d.upBtn, input.ButtonUp)
	go watch(d.downBtn, input.ButtonDown)
	slog.Debug("gpio: watching buttons", "up", d.upBtn, "down", d.downBtn)
	return edges
}

func (d *devices) Close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i].Close(); err != nil {
			slog.Warn("close failed", "err", err)
		}
	}
	d.closers = nil
}
