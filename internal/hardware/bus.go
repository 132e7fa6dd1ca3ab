// Package hardware provides the hardware abstraction layer for ampvol.
// It defines the byte-level I2C master contract used by the amplifier driver,
// the transports that implement it, and the GPIO and ADC peripherals.
package hardware

import "errors"

// Bus is a master-only I2C transaction interface at byte granularity.
// A write transaction is Start, address byte, payload bytes, Stop.
type Bus interface {
	// Start issues a start condition.
	Start() error

	// RepeatedStart issues a start condition without releasing the bus.
	RepeatedStart() error

	// Stop issues a stop condition and releases the bus.
	Stop() error

	// WriteByte clocks out one byte and waits for the acknowledge.
	WriteByte(b byte) error

	// ReadByte clocks in one byte and answers with ACK (true) or NACK (false).
	ReadByte(ack bool) (byte, error)
}

// Transactor performs one complete I2C message exchange: write w, then read
// len(r) bytes with a repeated start. periph's i2c.Bus, LinuxI2C and TinyGo's
// drivers.I2C all satisfy it.
type Transactor interface {
	Tx(addr uint16, w, r []byte) error
}

var (
	// ErrNACK is returned when the addressed device did not acknowledge a byte.
	ErrNACK = errors.New("i2c: NACK received")

	// ErrNoStart is returned for byte operations outside a Start/Stop pair.
	ErrNoStart = errors.New("i2c: no transaction in progress")
)

// AddrByte returns the first byte of a transaction for a 7-bit address.
func AddrByte(addr uint16, read bool) byte {
	b := byte(addr<<1) &^ 1
	if read {
		b |= 1
	}
	return b
}

// HardwareError is returned when a hardware operation fails.
type HardwareError struct {
	msg string
}

func (e HardwareError) Error() string { return e.msg }

// ErrHardware creates a new hardware error.
func ErrHardware(msg string) error { return HardwareError{msg: msg} }
