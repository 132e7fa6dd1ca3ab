package hardware_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/micro-nova/ampvol-go/internal/hardware"
)

func TestMockBus_RecordsFrames(t *testing.T) {
	m := hardware.NewMockBus()

	for _, payload := range []byte{0x80 | 22, 0x40 | 12} {
		_ = m.Start()
		_ = m.WriteByte(0xF8)
		_ = m.WriteByte(payload)
		_ = m.Stop()
	}

	frames := m.Frames()
	if len(frames) != 2 {
		t.Fatalf("frames = %d, want 2", len(frames))
	}
	if frames[0].Addr != 0x7C || !bytes.Equal(frames[0].Data, []byte{0x96}) {
		t.Errorf("frame 0 = %+v, want addr 0x7c data 96", frames[0])
	}
	if !bytes.Equal(frames[1].Data, []byte{0x4C}) {
		t.Errorf("frame 1 data = % x, want 4c", frames[1].Data)
	}

	m.Reset()
	if n := len(m.Frames()); n != 0 {
		t.Errorf("frames after Reset = %d, want 0", n)
	}
}

func TestMockBus_FailWrite(t *testing.T) {
	m := hardware.NewMockBus()
	m.SetFailWrite(true)

	_ = m.Start()
	err := m.WriteByte(0xF8)
	var hwErr hardware.HardwareError
	if !errors.As(err, &hwErr) {
		t.Errorf("WriteByte err = %v, want HardwareError", err)
	}
	_ = m.Stop()
	if n := len(m.Frames()); n != 0 {
		t.Errorf("failed write recorded %d frames, want 0", n)
	}
}

func TestMockBus_FramesAreCopies(t *testing.T) {
	m := hardware.NewMockBus()
	_ = m.Start()
	_ = m.WriteByte(0xF8)
	_ = m.WriteByte(0x03)
	_ = m.Stop()

	frames := m.Frames()
	frames[0].Data[0] = 0xFF
	if got := m.Frames()[0].Data[0]; got != 0x03 {
		t.Errorf("recorded data changed through copy: 0x%02x", got)
	}
}

func TestMockADC_Sequence(t *testing.T) {
	a := hardware.NewMockADC(100)
	a.Push(10, 20)

	want := []uint16{10, 20, 20}
	for i, w := range want {
		if err := a.Start(); err != nil {
			t.Fatalf("Start: %v", err)
		}
		done, err := a.Done()
		if err != nil || !done {
			t.Fatalf("Done = %v, %v; want true, nil", done, err)
		}
		got, err := a.Result()
		if err != nil {
			t.Fatalf("Result: %v", err)
		}
		if got != w {
			t.Errorf("conversion %d = %d, want %d", i, got, w)
		}
	}
}

func TestMockADC_Busy(t *testing.T) {
	a := hardware.NewMockADC(512)
	a.SetBusy(2)
	_ = a.Start()
	for i := 0; i < 2; i++ {
		if done, _ := a.Done(); done {
			t.Fatalf("poll %d: Done = true, want false", i)
		}
	}
	if done, _ := a.Done(); !done {
		t.Error("Done = false after busy polls, want true")
	}
}

func TestMockSwitch(t *testing.T) {
	var s hardware.MockSwitch
	if s.Pressed() {
		t.Error("zero MockSwitch should be released")
	}
	s.Set(true)
	if !s.Pressed() {
		t.Error("Pressed() = false after Set(true)")
	}
}
