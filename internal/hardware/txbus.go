package hardware

import "fmt"

// TxBus adapts a message-level Transactor to the byte-level Bus contract.
//
// Bytes written between Start and Stop are buffered; the first one is decoded as
// the address byte. The buffered write is issued as a single Tx at Stop, so an
// acknowledge failure surfaces from Stop rather than from WriteByte.
// A RepeatedStart followed by a read address turns the pending write into the
// write half of a combined write/read. Each ReadByte is its own one-byte read.
type TxBus struct {
	tx Transactor

	active   bool
	haveAddr bool
	addr     uint16
	read     bool
	prefix   []byte // write bytes carried across a repeated start
	buf      []byte
}

// NewTxBus wraps tx.
func NewTxBus(tx Transactor) *TxBus {
	return &TxBus{tx: tx}
}

func (b *TxBus) Start() error {
	b.reset()
	b.active = true
	return nil
}

func (b *TxBus) RepeatedStart() error {
	if !b.active {
		return ErrNoStart
	}
	if b.haveAddr && !b.read {
		b.prefix = append(b.prefix, b.buf...)
	}
	b.haveAddr = false
	b.buf = b.buf[:0]
	return nil
}

func (b *TxBus) WriteByte(v byte) error {
	if !b.active {
		return ErrNoStart
	}
	if !b.haveAddr {
		b.addr = uint16(v >> 1)
		b.read = v&1 != 0
		b.haveAddr = true
		return nil
	}
	if b.read {
		return fmt.Errorf("i2c: write of 0x%02x during read from 0x%02x", v, b.addr)
	}
	b.buf = append(b.buf, v)
	return nil
}

func (b *TxBus) ReadByte(ack bool) (byte, error) {
	if !b.active || !b.haveAddr {
		return 0, ErrNoStart
	}
	if !b.read {
		return 0, fmt.Errorf("i2c: read during write to 0x%02x", b.addr)
	}
	var r [1]byte
	err := b.tx.Tx(b.addr, b.prefix, r[:])
	b.prefix = nil
	if err != nil {
		return 0, fmt.Errorf("i2c: read 0x%02x: %w", b.addr, err)
	}
	return r[0], nil
}

func (b *TxBus) Stop() error {
	defer b.reset()
	if !b.active {
		return ErrNoStart
	}
	if !b.haveAddr || b.read {
		return nil
	}
	w := append(b.prefix, b.buf...)
	if err := b.tx.Tx(b.addr, w, nil); err != nil {
		return fmt.Errorf("i2c: write 0x%02x % x: %w", b.addr, w, err)
	}
	return nil
}

func (b *TxBus) reset() {
	b.active = false
	b.haveAddr = false
	b.read = false
	b.prefix = nil
	b.buf = b.buf[:0]
}
