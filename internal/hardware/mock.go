package hardware

import (
	"sync"
)

// Frame is one completed write transaction seen by MockBus.
type Frame struct {
	Addr uint16 // 7-bit address
	Data []byte // payload after the address byte
}

// MockBus is a thread-safe in-memory Bus for tests and development.
// It records every completed write transaction.
type MockBus struct {
	mu        sync.Mutex
	frames    []Frame
	cur       *Frame
	haveAddr  bool
	failWrite bool
	failRead  bool
	readVal   byte
}

// NewMockBus creates an empty mock bus.
func NewMockBus() *MockBus {
	return &MockBus{}
}

// SetFailWrite configures the mock to NACK every written byte.
func (m *MockBus) SetFailWrite(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failWrite = fail
}

// SetFailRead configures the mock to fail all read operations.
func (m *MockBus) SetFailRead(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failRead = fail
}

// SetReadValue sets the byte returned by ReadByte.
func (m *MockBus) SetReadValue(v byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readVal = v
}

func (m *MockBus) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cur = &Frame{}
	m.haveAddr = false
	return nil
}

func (m *MockBus) RepeatedStart() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cur == nil {
		return ErrNoStart
	}
	m.commitLocked()
	m.cur = &Frame{}
	m.haveAddr = false
	return nil
}

func (m *MockBus) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cur == nil {
		return ErrNoStart
	}
	m.commitLocked()
	m.cur = nil
	return nil
}

func (m *MockBus) WriteByte(b byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cur == nil {
		return ErrNoStart
	}
	if m.failWrite {
		return ErrHardware("mock: write failure configured")
	}
	if !m.haveAddr {
		m.cur.Addr = uint16(b >> 1)
		m.haveAddr = true
		return nil
	}
	m.cur.Data = append(m.cur.Data, b)
	return nil
}

func (m *MockBus) ReadByte(ack bool) (byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cur == nil {
		return 0, ErrNoStart
	}
	if m.failRead {
		return 0, ErrHardware("mock: read failure configured")
	}
	return m.readVal, nil
}

// Frames returns a copy of all completed write transactions.
func (m *MockBus) Frames() []Frame {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Frame, len(m.frames))
	for i, f := range m.frames {
		out[i] = Frame{Addr: f.Addr, Data: append([]byte(nil), f.Data...)}
	}
	return out
}

// Reset forgets all recorded frames.
func (m *MockBus) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.frames = nil
}

// commitLocked records the current frame if it carried any payload.
func (m *MockBus) commitLocked() {
	if m.haveAddr && len(m.cur.Data) > 0 {
		m.frames = append(m.frames, *m.cur)
	}
}

// MockADC is an in-memory analog converter. Samples queued with Push are
// returned in order; once the queue is empty the last value repeats.
type MockADC struct {
	mu       sync.Mutex
	queue    []uint16
	last     uint16
	selected int
	busy     int // Done polls to answer false before each conversion completes
	pending  int
	started  bool
	failRead bool
}

// NewMockADC creates a converter that reads value until told otherwise.
func NewMockADC(value uint16) *MockADC {
	return &MockADC{last: value, selected: -1}
}

// Push queues samples for the following conversions.
func (m *MockADC) Push(samples ...uint16) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append(m.queue, samples...)
}

// SetBusy makes each conversion report not-done for n polls.
func (m *MockADC) SetBusy(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.busy = n
}

// SetFailRead configures the mock to fail Result.
func (m *MockADC) SetFailRead(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failRead = fail
}

// Selected returns the last channel passed to Select, or -1.
func (m *MockADC) Selected() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.selected
}

func (m *MockADC) Select(channel int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.selected = channel
	return nil
}

func (m *MockADC) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.queue) > 0 {
		m.last = m.queue[0]
		m.queue = m.queue[1:]
	}
	m.pending = m.busy
	m.started = true
	return nil
}

func (m *MockADC) Done() (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.started {
		return false, ErrHardware("mock: conversion not started")
	}
	if m.pending > 0 {
		m.pending--
		return false, nil
	}
	return true, nil
}

func (m *MockADC) Result() (uint16, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failRead {
		return 0, ErrHardware("mock: read failure configured")
	}
	m.started = false
	return m.last, nil
}

// MockSwitch is a button whose level is set by hand.
type MockSwitch struct {
	mu      sync.Mutex
	pressed bool
}

// Set holds (true) or releases (false) the switch.
func (s *MockSwitch) Set(pressed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pressed = pressed
}

func (s *MockSwitch) Pressed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pressed
}
