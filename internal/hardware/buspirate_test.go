package hardware_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/micro-nova/ampvol-go/internal/hardware"
)

// fakePirate emulates the binary-mode side of a Bus Pirate.
type fakePirate struct {
	zerosNeeded int // 0x00 bytes swallowed before BBIO1 is answered
	mode        string
	bulkLeft    int
	nack        bool
	readVal     byte
	speed       byte
	periph      byte
	sent        []byte // every byte the host wrote in I2C mode
	data        []byte // bytes written via bulk write
	out         bytes.Buffer
}

func (f *fakePirate) Write(p []byte) (int, error) {
	for _, b := range p {
		f.handle(b)
	}
	return len(p), nil
}

// Read returns 0, nil when nothing is queued, like a serial port timing out.
func (f *fakePirate) Read(p []byte) (int, error) {
	if f.out.Len() == 0 {
		return 0, nil
	}
	return f.out.Read(p)
}

func (f *fakePirate) handle(b byte) {
	switch f.mode {
	case "":
		if b == 0x00 {
			if f.zerosNeeded > 0 {
				f.zerosNeeded--
				return
			}
			f.mode = "bbio"
			f.out.WriteString("BBIO1")
		}
	case "bbio":
		switch b {
		case 0x00:
			f.out.WriteString("BBIO1")
		case 0x02:
			f.mode = "i2c"
			f.out.WriteString("I2C1")
		}
	case "i2c":
		f.sent = append(f.sent, b)
		if f.bulkLeft > 0 {
			f.bulkLeft--
			f.data = append(f.data, b)
			if f.nack {
				f.out.WriteByte(0x01)
			} else {
				f.out.WriteByte(0x00)
			}
			return
		}
		switch {
		case b == 0x04:
			f.out.WriteByte(f.readVal)
		case b&0xF0 == 0x10:
			f.bulkLeft = int(b&0x0F) + 1
			f.out.WriteByte(0x01)
		case b&0xF0 == 0x40:
			f.periph = b
			f.out.WriteByte(0x01)
		case b&0xFC == 0x60:
			f.speed = b
			f.out.WriteByte(0x01)
		default: // start, stop, ack, nack
			f.out.WriteByte(0x01)
		}
	}
}

func newPirate(t *testing.T) (*hardware.BusPirate, *fakePirate) {
	t.Helper()
	f := &fakePirate{zerosNeeded: 3}
	bp := hardware.NewBusPirate(f)
	if err := bp.Init(100000); err != nil {
		t.Fatalf("Init: %v", err)
	}
	f.sent = nil
	return bp, f
}

func TestBusPirate_Init(t *testing.T) {
	f := &fakePirate{zerosNeeded: 5}
	bp := hardware.NewBusPirate(f)
	if err := bp.Init(100000); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if f.mode != "i2c" {
		t.Errorf("mode = %q, want i2c", f.mode)
	}
	if f.speed != 0x62 {
		t.Errorf("speed command = 0x%02x, want 0x62 (100kHz)", f.speed)
	}
	if f.periph != 0x4C {
		t.Errorf("peripheral command = 0x%02x, want 0x4c (power+pull-ups)", f.periph)
	}
}

func TestBusPirate_InitNoResponse(t *testing.T) {
	f := &fakePirate{zerosNeeded: 100}
	bp := hardware.NewBusPirate(f)
	if err := bp.Init(100000); err == nil {
		t.Fatal("Init = nil, want error when bridge never answers")
	}
}

func TestBusPirate_WriteTransaction(t *testing.T) {
	bp, f := newPirate(t)

	if err := bp.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := bp.WriteByte(0xF8); err != nil {
		t.Fatalf("WriteByte addr: %v", err)
	}
	if err := bp.WriteByte(0x96); err != nil {
		t.Fatalf("WriteByte data: %v", err)
	}
	if err := bp.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	want := []byte{0x02, 0x10, 0xF8, 0x10, 0x96, 0x03}
	if !bytes.Equal(f.sent, want) {
		t.Errorf("bridge commands = % x, want % x", f.sent, want)
	}
	if !bytes.Equal(f.data, []byte{0xF8, 0x96}) {
		t.Errorf("bus bytes = % x, want f8 96", f.data)
	}
}

func TestBusPirate_NACK(t *testing.T) {
	bp, f := newPirate(t)
	f.nack = true

	_ = bp.Start()
	err := bp.WriteByte(0xF8)
	if !errors.Is(err, hardware.ErrNACK) {
		t.Errorf("WriteByte err = %v, want ErrNACK", err)
	}
}

func TestBusPirate_ReadByte(t *testing.T) {
	bp, f := newPirate(t)
	f.readVal = 0xA5

	_ = bp.Start()
	_ = bp.WriteByte(0xF9)
	got, err := bp.ReadByte(false)
	if err != nil {
		t.Fatalf("ReadByte: %v", err)
	}
	if got != 0xA5 {
		t.Errorf("ReadByte = 0x%02x, want 0xa5", got)
	}
	// Last command before Stop must be the NACK.
	if last := f.sent[len(f.sent)-1]; last != 0x07 {
		t.Errorf("last command = 0x%02x, want 0x07 (NACK)", last)
	}
}

func TestBusPirate_Timeout(t *testing.T) {
	bp := hardware.NewBusPirate(silentPort{})
	if err := bp.Start(); !errors.Is(err, hardware.ErrTimeout) {
		t.Errorf("Start on silent port err = %v, want ErrTimeout", err)
	}
}

// silentPort accepts writes and never answers.
type silentPort struct{}

func (silentPort) Write(p []byte) (int, error) { return len(p), nil }
func (silentPort) Read(p []byte) (int, error)  { return 0, nil }
