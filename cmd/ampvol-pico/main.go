//go:build tinygo && rp2040

// Command ampvol-pico is the RP2040 firmware build of the volume controller.
// It drives the same controller as the Linux daemon, with machine peripherals
// standing in for periph.io.
package main

import (
	"context"
	"log/slog"
	"machine"
	"sync/atomic"
	"time"

	"tinygo.org/x/drivers"

	"github.com/micro-nova/ampvol-go/internal/adc"
	"github.com/micro-nova/ampvol-go/internal/amp"
	"github.com/micro-nova/ampvol-go/internal/controller"
	"github.com/micro-nova/ampvol-go/internal/hardware"
	"github.com/micro-nova/ampvol-go/internal/input"
	"github.com/micro-nova/ampvol-go/internal/models"
)

// Board wiring.
const (
	pinUp   = machine.GP2
	pinDown = machine.GP3
	pinMode = machine.GP22
	pinSDA  = machine.GP4
	pinSCL  = machine.GP5

	// potChannel is the wiper input: ADC2 on GP28.
	potChannel = 2

	i2cFrequency = 100 * machine.KHz

	// edgePoll is how often latched interrupt flags are handed to the runner.
	edgePoll = time.Millisecond
)

// Set from the pin interrupts, drained by forwardEdges.
var upFlag, downFlag atomic.Bool

func main() {
	ctx := context.Background()

	if err := machine.I2C0.Configure(machine.I2CConfig{
		Frequency: i2cFrequency,
		SDA:       pinSDA,
		SCL:       pinSCL,
	}); err != nil {
		fatal("i2c configure failed", err)
	}
	var i2c drivers.I2C = machine.I2C0
	ampDriver := amp.New(hardware.NewTxBus(i2c))

	// The mode pin is read once; High selects the potentiometer.
	pinMode.Configure(machine.PinConfig{Mode: machine.PinInputPulldown})
	mode := models.ModeButton
	if pinMode.Get() {
		mode = models.ModePotentiometer
	}

	opts := controller.Options{
		Mode:    mode,
		Amp:     ampDriver,
		Channel: potChannel,
		Timing:  input.DefaultTiming(),
	}
	if mode == models.ModeButton {
		opts.Up, opts.Down = configureButton(pinUp, &upFlag), configureButton(pinDown, &downFlag)
	} else {
		machine.InitADC()
		opts.Sampler = adc.NewSampler(&picoADC{})
	}

	ctrl, err := controller.New(opts)
	if err != nil {
		fatal("controller init failed", err)
	}
	if err := ctrl.Start(ctx); err != nil {
		fatal("controller start failed", err)
	}

	var edges chan input.Button
	if mode == models.ModeButton {
		edges = make(chan input.Button, 2)
		go forwardEdges(edges)
	}
	_ = ctrl.Run(ctx, edges)
}

// button is an active-low switch with a pull-up.
type button machine.Pin

func (b button) Pressed() bool { return !machine.Pin(b).Get() }

func configureButton(pin machine.Pin, flag *atomic.Bool) button {
	pin.Configure(machine.PinConfig{Mode: machine.PinInputPullup})
	if err := pin.SetInterrupt(machine.PinFalling, func(machine.Pin) { flag.Store(true) }); err != nil {
		fatal("pin interrupt failed", err)
	}
	return button(pin)
}

// forwardEdges moves latched interrupt flags onto the runner's channel.
// Interrupt handlers cannot block, so they only set the flags.
func forwardEdges(edges chan<- input.Button) {
	for {
		if upFlag.Swap(false) {
			edges <- input.ButtonUp
		}
		if downFlag.Swap(false) {
			edges <- input.ButtonDown
		}
		time.Sleep(edgePoll)
	}
}

// picoADC adapts the RP2040 converter. machine.ADC.Get converts
// synchronously and scales to 16 bits.
type picoADC struct {
	pin    machine.Pin
	result uint16
}

var adcPins = [...]machine.Pin{machine.ADC0, machine.ADC1, machine.ADC2, machine.ADC3}

func (a *picoADC) Select(channel int) error {
	if channel < 0 || channel >= len(adcPins) {
		return hardware.ErrHardware("rp2040: no such ADC channel")
	}
	a.pin = adcPins[channel]
	return machine.ADC{Pin: a.pin}.Configure(machine.ADCConfig{})
}

func (a *picoADC) Start() error {
	a.result = machine.ADC{Pin: a.pin}.Get()
	return nil
}

func (a *picoADC) Done() (bool, error) { return true, nil }

func (a *picoADC) Result() (uint16, error) {
	return a.result >> 6, nil
}

func fatal(msg string, err error) {
	slog.Error(msg, "err", err)
	for {
		time.Sleep(time.Second)
	}
}
