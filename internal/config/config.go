// Package config loads the ampvol YAML configuration.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/micro-nova/ampvol-go/internal/adc"
	"github.com/micro-nova/ampvol-go/internal/amp"
	"github.com/micro-nova/ampvol-go/internal/controller"
	"github.com/micro-nova/ampvol-go/internal/input"
	"github.com/micro-nova/ampvol-go/internal/models"
)

// Bus drivers.
const (
	DriverIoctl     = "ioctl"     // raw /dev/i2c-N via I2C_RDWR
	DriverPeriph    = "periph"    // periph.io i2creg
	DriverBusPirate = "buspirate" // Bus Pirate over a serial port
	DriverMock      = "mock"
)

// Mode values. ModeAuto reads the mode pin.
const (
	ModeAuto          = "auto"
	ModeButton        = "button"
	ModePotentiometer = "potentiometer"
)

// Config is the whole configuration file.
type Config struct {
	Bus      BusConfig      `yaml:"bus"`
	Amp      AmpConfig      `yaml:"amp"`
	Pins     PinsConfig     `yaml:"pins"`
	ADC      ADCConfig      `yaml:"adc"`
	Mode     string         `yaml:"mode"`
	Timing   TimingConfig   `yaml:"timing"`
	HTTP     HTTPConfig     `yaml:"http"`
	Zeroconf ZeroconfConfig `yaml:"zeroconf"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type BusConfig struct {
	Driver string `yaml:"driver"`

	// Device is the I2C device path for ioctl (/dev/i2c-1) or the periph bus
	// name ("1", "I2C1"). Empty picks the first bus for periph.
	Device string `yaml:"device"`

	// Port is the serial port of a Bus Pirate.
	Port string `yaml:"port"`

	ClockHz   int `yaml:"clock_hz"`
	OpsPerSec int `yaml:"ops_per_sec"`
}

type AmpConfig struct {
	Address uint16 `yaml:"address"`
}

// PinsConfig names GPIO lines as periph gpioreg understands them.
type PinsConfig struct {
	Up        string `yaml:"up"`
	Down      string `yaml:"down"`
	Mode      string `yaml:"mode"`
	Pull      string `yaml:"pull"`
	ModePull  string `yaml:"mode_pull"`
	ActiveLow bool   `yaml:"active_low"`
}

type ADCConfig struct {
	SPIPort string `yaml:"spi_port"`
	Channel int    `yaml:"channel"`
	ClockHz int    `yaml:"clock_hz"`
}

type TimingConfig struct {
	DebounceTicks     int           `yaml:"debounce_ticks"`
	RepeatTicks       int           `yaml:"repeat_ticks"`
	Tick              time.Duration `yaml:"tick"`
	PollInterval      time.Duration `yaml:"poll_interval"`
	Settle            time.Duration `yaml:"settle"`
	ConversionTimeout time.Duration `yaml:"conversion_timeout"`
}

type HTTPConfig struct {
	Addr string `yaml:"addr"` // empty disables the status API
}

type ZeroconfConfig struct {
	Enabled bool   `yaml:"enabled"`
	Name    string `yaml:"name"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	tm := input.DefaultTiming()
	return Config{
		Bus: BusConfig{
			Driver:    DriverIoctl,
			Device:    "/dev/i2c-1",
			ClockHz:   100_000,
			OpsPerSec: 500,
		},
		Amp: AmpConfig{Address: amp.Addr},
		Pins: PinsConfig{
			Up:        "GPIO17",
			Down:      "GPIO27",
			Mode:      "GPIO22",
			Pull:      "up",
			ModePull:  "down",
			ActiveLow: true,
		},
		ADC: ADCConfig{
			SPIPort: "",
			Channel: adc.Channel,
			ClockHz: 1_000_000,
		},
		Mode: ModeAuto,
		Timing: TimingConfig{
			DebounceTicks: tm.DebounceTicks,
			RepeatTicks:   tm.RepeatTicks,
			Tick:          tm.TickPeriod,
			PollInterval:  controller.DefaultPollInterval,
			Settle:        adc.SettleDelay,
		},
		HTTP:     HTTPConfig{Addr: ":8080"},
		Zeroconf: ZeroconfConfig{Enabled: true, Name: "ampvol"},
		Logging:  LoggingConfig{Level: "info"},
	}
}

// Parse decodes a YAML document over the defaults. Unknown fields and trailing
// documents are rejected.
func Parse(data []byte) (Config, error) {
	cfg := Default()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	// An empty or comment-only file leaves the defaults in place.
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("config: decode yaml: %w", err)
	}
	// Only whitespace and comments may follow the document.
	var extra yaml.Node
	if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
		return Config{}, errors.New("config: decode yaml: unexpected trailing document")
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks field ranges and enumerations.
func (c Config) Validate() error {
	var errs []error

	switch c.Bus.Driver {
	case DriverIoctl, DriverPeriph, DriverMock:
	case DriverBusPirate:
		if c.Bus.Port == "" {
			errs = append(errs, errors.New("bus.port is required for the buspirate driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("bus.driver %q (must be ioctl, periph, buspirate or mock)", c.Bus.Driver))
	}
	if c.Bus.Driver == DriverIoctl && c.Bus.Device == "" {
		errs = append(errs, errors.New("bus.device is required for the ioctl driver"))
	}
	if c.Bus.ClockHz <= 0 {
		errs = append(errs, fmt.Errorf("bus.clock_hz %d must be positive", c.Bus.ClockHz))
	}
	if c.Bus.OpsPerSec < 0 {
		errs = append(errs, fmt.Errorf("bus.ops_per_sec %d must not be negative", c.Bus.OpsPerSec))
	}
	if c.Amp.Address == 0 || c.Amp.Address > 0x7F {
		errs = append(errs, fmt.Errorf("amp.address 0x%x is not a 7-bit address", c.Amp.Address))
	}
	if c.ADC.Channel < 0 || c.ADC.Channel > 7 {
		errs = append(errs, fmt.Errorf("adc.channel %d out of range 0-7", c.ADC.Channel))
	}

	if _, err := c.ForcedMode(); err != nil {
		errs = append(errs, err)
	}
	if c.Timing.DebounceTicks <= 0 || c.Timing.RepeatTicks <= 0 {
		errs = append(errs, errors.New("timing.debounce_ticks and timing.repeat_ticks must be positive"))
	}
	if c.Timing.Tick <= 0 || c.Timing.PollInterval <= 0 {
		errs = append(errs, errors.New("timing.tick and timing.poll_interval must be positive"))
	}
	if c.Timing.Settle < 0 || c.Timing.ConversionTimeout < 0 {
		errs = append(errs, errors.New("timing.settle and timing.conversion_timeout must not be negative"))
	}
	if _, err := ParseLevel(c.Logging.Level); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: invalid: %w", errors.Join(errs...))
	}
	return nil
}

// ForcedMode returns the configured mode, or nil when the mode pin decides.
func (c Config) ForcedMode() (*models.Mode, error) {
	if c.Mode == "" || strings.EqualFold(c.Mode, ModeAuto) {
		return nil, nil
	}
	m, err := models.ParseMode(c.Mode)
	if err != nil {
		return nil, fmt.Errorf("mode: %w", err)
	}
	return &m, nil
}

// InputTiming converts the timing section for the debounce machine.
func (c Config) InputTiming() input.Timing {
	return input.Timing{
		DebounceTicks: c.Timing.DebounceTicks,
		RepeatTicks:   c.Timing.RepeatTicks,
		TickPeriod:    c.Timing.Tick,
	}
}

// ParseLevel maps a level name to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("logging.level %q (must be debug, info, warn or error)", s)
	}
}

// Marshal renders cfg as YAML.
func Marshal(cfg Config) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return nil, fmt.Errorf("config: encode yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// RestartRequired lists the sections that differ between old and next and
// only take effect at startup. The logging level is applied live.
func RestartRequired(old, next Config) []string {
	var out []string
	if old.Bus != next.Bus {
		out = append(out, "bus")
	}
	if old.Amp != next.Amp {
		out = append(out, "amp")
	}
	if old.Pins != next.Pins {
		out = append(out, "pins")
	}
	if old.ADC != next.ADC {
		out = append(out, "adc")
	}
	if !strings.EqualFold(old.Mode, next.Mode) {
		out = append(out, "mode")
	}
	if old.Timing != next.Timing {
		out = append(out, "timing")
	}
	if old.HTTP != next.HTTP {
		out = append(out, "http")
	}
	if old.Zeroconf != next.Zeroconf {
		out = append(out, "zeroconf")
	}
	return out
}
