//go:build !tinygo

package hardware

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"go.bug.st/serial"
)

// Bus Pirate binary-mode commands.
const (
	bpReset      = 0x00 // BBIO: enter/stay in raw bitbang mode
	bpModeI2C    = 0x02 // BBIO: switch to raw I2C mode
	bpStart      = 0x02
	bpStop       = 0x03
	bpRead       = 0x04
	bpACK        = 0x06
	bpNACK       = 0x07
	bpPeriph     = 0x40 // 0100wxyz: w=power, x=pull-ups, y=AUX, z=CS
	bpSpeed      = 0x60 // 011000xx: 00=5kHz, 01=50kHz, 10=100kHz, 11=400kHz
	bpBulkWrite  = 0x10 // 0001xxxx: write 1-16 bytes
	bpOK         = 0x01
	bpPeriphPow  = 0x08
	bpPeriphPull = 0x04

	bpBaudRate    = 115200
	bpReadTimeout = 500 * time.Millisecond
)

// ErrTimeout is returned when the bridge does not answer in time.
var ErrTimeout = errors.New("buspirate: read timeout")

// BusPirate is a Bus backed by a Bus Pirate in binary I2C mode.
// Each primitive maps to one bridge command, so it is a native byte-level bus.
type BusPirate struct {
	mu   sync.Mutex
	port io.ReadWriter
}

// OpenBusPirate opens the serial device, enters binary I2C mode, powers the
// bridge's supply and pull-ups and sets the clock to the closest supported rate.
func OpenBusPirate(name string, clockHz int) (*BusPirate, io.Closer, error) {
	port, err := serial.Open(name, &serial.Mode{
		BaudRate: bpBaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("buspirate: open %s: %w", name, err)
	}
	if err := port.SetReadTimeout(bpReadTimeout); err != nil {
		port.Close()
		return nil, nil, fmt.Errorf("buspirate: set timeout: %w", err)
	}
	_ = port.ResetInputBuffer()

	bp := NewBusPirate(port)
	if err := bp.Init(clockHz); err != nil {
		port.Close()
		return nil, nil, err
	}
	slog.Info("buspirate: I2C mode ready", "port", name, "clock_hz", clockHz)
	return bp, port, nil
}

// NewBusPirate wraps an already-open port. Call Init before use.
func NewBusPirate(port io.ReadWriter) *BusPirate {
	return &BusPirate{port: port}
}

// Init enters BBIO, then I2C mode, and configures peripherals and speed.
func (b *BusPirate) Init(clockHz int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	entered := false
	for i := 0; i < 20; i++ {
		if _, err := b.port.Write([]byte{bpReset}); err != nil {
			return fmt.Errorf("buspirate: write: %w", err)
		}
		resp, err := b.readN(5)
		if err == nil && bytes.Equal(resp, []byte("BBIO1")) {
			entered = true
			break
		}
	}
	if !entered {
		return errors.New("buspirate: no BBIO1 response")
	}

	if _, err := b.port.Write([]byte{bpModeI2C}); err != nil {
		return fmt.Errorf("buspirate: write: %w", err)
	}
	resp, err := b.readN(4)
	if err != nil {
		return err
	}
	if !bytes.Equal(resp, []byte("I2C1")) {
		return fmt.Errorf("buspirate: unexpected mode reply %q", resp)
	}

	if err := b.cmdLocked(bpPeriph | bpPeriphPow | bpPeriphPull); err != nil {
		return err
	}
	return b.cmdLocked(bpSpeed | speedBits(clockHz))
}

// speedBits picks the fastest bridge rate not above clockHz.
func speedBits(clockHz int) byte {
	switch {
	case clockHz >= 400000:
		return 0x03
	case clockHz >= 100000:
		return 0x02
	case clockHz >= 50000:
		return 0x01
	default:
		return 0x00
	}
}

func (b *BusPirate) Start() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cmdLocked(bpStart)
}

// RepeatedStart is a start while the bus is held; the bridge issues the same command.
func (b *BusPirate) RepeatedStart() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cmdLocked(bpStart)
}

func (b *BusPirate) Stop() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cmdLocked(bpStop)
}

func (b *BusPirate) WriteByte(v byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.cmdLocked(bpBulkWrite); err != nil { // one byte
		return err
	}
	if _, err := b.port.Write([]byte{v}); err != nil {
		return fmt.Errorf("buspirate: write: %w", err)
	}
	resp, err := b.readN(1)
	if err != nil {
		return err
	}
	if resp[0] != 0x00 {
		return fmt.Errorf("buspirate: byte 0x%02x: %w", v, ErrNACK)
	}
	return nil
}

func (b *BusPirate) ReadByte(ack bool) (byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, err := b.port.Write([]byte{bpRead}); err != nil {
		return 0, fmt.Errorf("buspirate: write: %w", err)
	}
	resp, err := b.readN(1)
	if err != nil {
		return 0, err
	}
	reply := byte(bpNACK)
	if ack {
		reply = bpACK
	}
	if err := b.cmdLocked(reply); err != nil {
		return 0, err
	}
	return resp[0], nil
}

// cmdLocked sends a one-byte command and expects the 0x01 success reply.
func (b *BusPirate) cmdLocked(c byte) error {
	if _, err := b.port.Write([]byte{c}); err != nil {
		return fmt.Errorf("buspirate: write: %w", err)
	}
	resp, err := b.readN(1)
	if err != nil {
		return err
	}
	if resp[0] != bpOK {
		return fmt.Errorf("buspirate: command 0x%02x failed: reply 0x%02x", c, resp[0])
	}
	return nil
}

// readN reads exactly n bytes. A zero-length read is how the serial port
// reports its timeout, so it ends the read instead of retrying forever.
func (b *BusPirate) readN(n int) ([]byte, error) {
	buf := make([]byte, n)
	got := 0
	for got < n {
		m, err := b.port.Read(buf[got:])
		if err != nil {
			return nil, fmt.Errorf("buspirate: read: %w", err)
		}
		if m == 0 {
			return nil, ErrTimeout
		}
		got += m
	}
	return buf, nil
}
