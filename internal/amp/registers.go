// Package amp drives an LM49270 amplifier over I2C: volume register writes
// and the power on/off hysteresis around level zero.
package amp

// Addr is the amplifier's 7-bit I2C address.
const Addr uint16 = 0x7C

// Register is the 3-bit selector carried in the upper bits of every data byte.
type Register = byte

const (
	RegControl   Register = 0x00
	RegHeadphone Register = 0x40
	RegSpeaker   Register = 0x80
)

// Control register payloads.
const (
	CtrlPowerOff byte = 0x02 // charge pump on, 3D off, device shut down
	CtrlPowerOn  byte = 0x03 // charge pump on, 3D off, device powered
)

// dataMask covers the 5-bit value field below the selector.
const dataMask = 0x1F

// Frame packs a selector and 5-bit value into the single data byte.
func Frame(reg Register, data byte) byte {
	return reg | data&dataMask
}

// RegisterName is used in log lines.
func RegisterName(reg Register) string {
	switch reg {
	case RegControl:
		return "control"
	case RegHeadphone:
		return "headphone"
	case RegSpeaker:
		return "speaker"
	default:
		return "unknown"
	}
}
