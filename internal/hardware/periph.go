//go:build !tinygo

package hardware

import (
	"fmt"
	"log/slog"
	"sync"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
)

var (
	hostOnce sync.Once
	hostErr  error
)

// InitHost loads the periph host drivers once. It must run before any pin or
// bus is opened by name.
func InitHost() error {
	hostOnce.Do(func() {
		state, err := host.Init()
		if err != nil {
			hostErr = fmt.Errorf("periph: host init failed: %w", err)
			return
		}
		slog.Debug("periph: host drivers loaded", "loaded", len(state.Loaded), "failed", len(state.Failed))
	})
	return hostErr
}

// OpenPin looks up a GPIO by name, e.g. "GPIO17".
func OpenPin(name string) (gpio.PinIO, error) {
	if err := InitHost(); err != nil {
		return nil, err
	}
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("gpio: failed to open %s", name)
	}
	return p, nil
}

// OpenPeriphI2C opens an I2C bus through periph's registry ("" = first bus)
// and sets its clock.
func OpenPeriphI2C(name string, clockHz int) (i2c.BusCloser, error) {
	if err := InitHost(); err != nil {
		return nil, err
	}
	b, err := i2creg.Open(name)
	if err != nil {
		return nil, fmt.Errorf("i2c: open %q: %w", name, err)
	}
	if err := b.SetSpeed(physic.Frequency(clockHz) * physic.Hertz); err != nil {
		// Many adapters fix the clock in firmware; keep going at their rate.
		slog.Warn("i2c: could not set bus speed", "bus", b.String(), "hz", clockHz, "err", err)
	}
	return b, nil
}

// OpenSPI opens an SPI port ("" = first port) in mode 0 with 8-bit words.
func OpenSPI(name string, clockHz int) (spi.Conn, spi.PortCloser, error) {
	if err := InitHost(); err != nil {
		return nil, nil, err
	}
	p, err := spireg.Open(name)
	if err != nil {
		return nil, nil, fmt.Errorf("spi: open %q: %w", name, err)
	}
	c, err := p.Connect(physic.Frequency(clockHz)*physic.Hertz, spi.Mode0, 8)
	if err != nil {
		p.Close()
		return nil, nil, fmt.Errorf("spi: connect %q: %w", name, err)
	}
	return c, p, nil
}
