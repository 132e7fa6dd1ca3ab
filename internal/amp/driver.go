package amp

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/micro-nova/ampvol-go/internal/hardware"
	"github.com/micro-nova/ampvol-go/internal/models"
)

// Bus is the part of hardware.Bus the amplifier uses; it only ever writes.
type Bus interface {
	Start() error
	Stop() error
	WriteByte(b byte) error
}

var _ Bus = (hardware.Bus)(nil)

// Driver commits volume and power changes to the amplifier.
type Driver struct {
	bus  Bus
	addr uint16
}

// New creates a driver for the amplifier at Addr.
func New(bus Bus) *Driver {
	return &Driver{bus: bus, addr: Addr}
}

// NewWithAddr creates a driver for a strapped alternate address.
func NewWithAddr(bus Bus, addr uint16) *Driver {
	return &Driver{bus: bus, addr: addr}
}

// Write sends one register write: START, address|W, selector|value, STOP.
// Stop is issued whenever Start succeeded so a failed byte never leaves the
// bus held.
func (d *Driver) Write(reg Register, data byte) error {
	if err := d.bus.Start(); err != nil {
		return fmt.Errorf("amp: %s start: %w", RegisterName(reg), err)
	}
	err := d.bus.WriteByte(hardware.AddrByte(d.addr, false))
	if err == nil {
		err = d.bus.WriteByte(Frame(reg, data))
	}
	if stopErr := d.bus.Stop(); err == nil {
		err = stopErr
	}
	if err != nil {
		return fmt.Errorf("amp: write %s=0x%02x: %w", RegisterName(reg), data&dataMask, err)
	}
	slog.Debug("amp: write", "reg", RegisterName(reg), "value", data&dataMask)
	return nil
}

// PowerOn sends the power-on control word and marks the device on.
// This is the first write after reset.
func (d *Driver) PowerOn(dev *models.Device) error {
	err := d.Write(RegControl, CtrlPowerOn)
	dev.Power = models.PowerOn
	return err
}

// SetVolume writes the speaker and headphone levels from dev.Volume, then
// toggles power when the level crosses zero. Power always follows the level
// writes.
//
// dev.Power records the last command sent, so it changes even when the bus
// write fails. Bus errors are joined and returned for logging; nothing is
// retried.
func (d *Driver) SetVolume(dev *models.Device) error {
	v := dev.Volume
	errs := []error{
		d.Write(RegSpeaker, byte(v.Speaker())),
		d.Write(RegHeadphone, byte(v.Headphone())),
	}

	if dev.Power == models.PowerOn && v.Level() == 0 {
		errs = append(errs, d.Write(RegControl, CtrlPowerOff))
		dev.Power = models.PowerOff
		slog.Info("amp: powered off", "level", v.Level())
	}
	if dev.Power == models.PowerOff && v.Level() != 0 {
		errs = append(errs, d.Write(RegControl, CtrlPowerOn))
		dev.Power = models.PowerOn
		slog.Info("amp: powered on", "level", v.Level())
	}
	return errors.Join(errs...)
}
