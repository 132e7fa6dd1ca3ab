// Package models defines the device context shared by the volume paths and the
// read-only views published to status clients.
package models

import (
	"fmt"
	"strings"

	"github.com/micro-nova/ampvol-go/internal/volume"
)

// Mode selects the single input path used for the lifetime of the process.
type Mode int

const (
	ModeButton        Mode = iota // two momentary buttons, edge driven
	ModePotentiometer             // analog potentiometer, polled
)

func (m Mode) String() string {
	switch m {
	case ModeButton:
		return "button"
	case ModePotentiometer:
		return "potentiometer"
	default:
		return "unknown"
	}
}

// MarshalText renders the mode by name so snapshots read well as JSON.
func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// ParseMode parses "button" or "potentiometer" (also "pot").
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "button", "buttons":
		return ModeButton, nil
	case "potentiometer", "pot":
		return ModePotentiometer, nil
	default:
		return 0, fmt.Errorf("invalid mode %q (must be button or potentiometer)", s)
	}
}

// PowerState is the last power command sent to the amplifier.
type PowerState int

const (
	PowerOff PowerState = iota
	PowerOn
)

func (p PowerState) String() string {
	if p == PowerOn {
		return "on"
	}
	return "off"
}

func (p PowerState) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// Device is the whole mutable state of the controller. There is exactly one per
// process and it is passed by pointer to every operation that touches it.
//
// Device carries no lock. Only one goroutine writes it: the button runner in
// button mode or the poll loop in potentiometer mode. Mode must not change after
// startup; allowing it would put two writers on Volume and Power.
type Device struct {
	Volume volume.State
	Power  PowerState
	Mode   Mode
}

// Snapshot is an immutable copy of Device for status readers.
type Snapshot struct {
	Level     int        `json:"level"`
	Speaker   int        `json:"speaker"`
	Headphone int        `json:"headphone"`
	Power     PowerState `json:"power"`
	Mode      Mode       `json:"mode"`
}

// Snapshot copies the current device state.
func (d *Device) Snapshot() Snapshot {
	return Snapshot{
		Level:     d.Volume.Level(),
		Speaker:   d.Volume.Speaker(),
		Headphone: d.Volume.Headphone(),
		Power:     d.Power,
		Mode:      d.Mode,
	}
}
