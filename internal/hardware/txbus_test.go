package hardware_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/micro-nova/ampvol-go/internal/hardware"
)

// recordingTx is a Transactor that remembers every call.
type recordingTx struct {
	calls []txCall
	read  []byte
	err   error
}

type txCall struct {
	addr uint16
	w    []byte
	rLen int
}

func (r *recordingTx) Tx(addr uint16, w, rd []byte) error {
	r.calls = append(r.calls, txCall{addr: addr, w: append([]byte(nil), w...), rLen: len(rd)})
	copy(rd, r.read)
	return r.err
}

func TestAddrByte(t *testing.T) {
	tests := []struct {
		addr uint16
		read bool
		want byte
	}{
		{0x7C, false, 0xF8},
		{0x7C, true, 0xF9},
		{0x08, false, 0x10},
	}
	for _, tc := range tests {
		if got := hardware.AddrByte(tc.addr, tc.read); got != tc.want {
			t.Errorf("AddrByte(0x%02x, %v) = 0x%02x, want 0x%02x", tc.addr, tc.read, got, tc.want)
		}
	}
}

func TestTxBus_WriteTransaction(t *testing.T) {
	rec := &recordingTx{}
	bus := hardware.NewTxBus(rec)

	if err := bus.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	for _, b := range []byte{0xF8, 0x96} {
		if err := bus.WriteByte(b); err != nil {
			t.Fatalf("WriteByte(0x%02x): %v", b, err)
		}
	}
	if len(rec.calls) != 0 {
		t.Fatalf("Tx issued before Stop: %+v", rec.calls)
	}
	if err := bus.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	if len(rec.calls) != 1 {
		t.Fatalf("Tx calls = %d, want 1", len(rec.calls))
	}
	c := rec.calls[0]
	if c.addr != 0x7C || !bytes.Equal(c.w, []byte{0x96}) || c.rLen != 0 {
		t.Errorf("Tx = addr 0x%02x w % x r %d, want addr 0x7c w 96 r 0", c.addr, c.w, c.rLen)
	}
}

func TestTxBus_CombinedWriteRead(t *testing.T) {
	rec := &recordingTx{read: []byte{0x5A}}
	bus := hardware.NewTxBus(rec)

	_ = bus.Start()
	_ = bus.WriteByte(hardware.AddrByte(0x50, false))
	_ = bus.WriteByte(0x10)
	if err := bus.RepeatedStart(); err != nil {
		t.Fatalf("RepeatedStart: %v", err)
	}
	_ = bus.WriteByte(hardware.AddrByte(0x50, true))
	got, err := bus.ReadByte(false)
	if err != nil {
		t.Fatalf("ReadByte: %v", err)
	}
	if err := bus.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	if got != 0x5A {
		t.Errorf("ReadByte = 0x%02x, want 0x5a", got)
	}
	if len(rec.calls) != 1 {
		t.Fatalf("Tx calls = %d, want 1 (stop after read must not write)", len(rec.calls))
	}
	if c := rec.calls[0]; c.addr != 0x50 || !bytes.Equal(c.w, []byte{0x10}) || c.rLen != 1 {
		t.Errorf("Tx = addr 0x%02x w % x r %d, want 0x50 w 10 r 1", c.addr, c.w, c.rLen)
	}
}

func TestTxBus_NoStart(t *testing.T) {
	bus := hardware.NewTxBus(&recordingTx{})
	if err := bus.WriteByte(0xF8); !errors.Is(err, hardware.ErrNoStart) {
		t.Errorf("WriteByte without Start err = %v, want ErrNoStart", err)
	}
	if err := bus.Stop(); !errors.Is(err, hardware.ErrNoStart) {
		t.Errorf("Stop without Start err = %v, want ErrNoStart", err)
	}
	if _, err := bus.ReadByte(true); !errors.Is(err, hardware.ErrNoStart) {
		t.Errorf("ReadByte without Start err = %v, want ErrNoStart", err)
	}
}

func TestTxBus_ErrorSurfacesAtStop(t *testing.T) {
	rec := &recordingTx{err: hardware.ErrNACK}
	bus := hardware.NewTxBus(rec)

	_ = bus.Start()
	if err := bus.WriteByte(0xF8); err != nil {
		t.Fatalf("WriteByte: %v", err)
	}
	_ = bus.WriteByte(0x03)
	err := bus.Stop()
	if !errors.Is(err, hardware.ErrNACK) {
		t.Errorf("Stop err = %v, want ErrNACK", err)
	}

	// The bus is usable again after a failed transaction.
	rec.err = nil
	_ = bus.Start()
	_ = bus.WriteByte(0xF8)
	_ = bus.WriteByte(0x02)
	if err := bus.Stop(); err != nil {
		t.Errorf("Stop after recovery: %v", err)
	}
	if len(rec.calls) != 2 {
		t.Errorf("Tx calls = %d, want 2", len(rec.calls))
	}
}

func TestTxBus_WriteDuringRead(t *testing.T) {
	bus := hardware.NewTxBus(&recordingTx{})
	_ = bus.Start()
	_ = bus.WriteByte(hardware.AddrByte(0x7C, true))
	if err := bus.WriteByte(0x00); err == nil {
		t.Error("WriteByte after read address should fail")
	}
}
