package config_test

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/micro-nova/ampvol-go/internal/config"
	"github.com/micro-nova/ampvol-go/internal/models"
)

func TestDefault_IsValid(t *testing.T) {
	def := config.Default()
	if err := def.Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v", err)
	}
	if def.Amp.Address != 0x7C {
		t.Errorf("Amp.Address = 0x%x, want 0x7c", def.Amp.Address)
	}
	if def.Bus.ClockHz != 100_000 {
		t.Errorf("Bus.ClockHz = %d, want 100000", def.Bus.ClockHz)
	}
	if def.ADC.Channel != 7 {
		t.Errorf("ADC.Channel = %d, want 7", def.ADC.Channel)
	}
	if def.Timing.PollInterval != 100*time.Millisecond || def.Timing.Settle != 5*time.Millisecond {
		t.Errorf("Timing = %+v, want 100ms poll and 5ms settle", def.Timing)
	}
}

func TestParse(t *testing.T) {
	doc := `
bus:
  driver: buspirate
  port: /dev/ttyUSB0
mode: pot
timing:
  tick: 500us
  conversion_timeout: 20ms
logging:
  level: debug
`
	cfg, err := config.Parse([]byte(doc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Bus.Driver != config.DriverBusPirate || cfg.Bus.Port != "/dev/ttyUSB0" {
		t.Errorf("Bus = %+v", cfg.Bus)
	}
	// Unset fields keep their defaults.
	if cfg.Bus.ClockHz != 100_000 || cfg.Timing.DebounceTicks != 200 {
		t.Errorf("defaults lost: clock %d debounce %d", cfg.Bus.ClockHz, cfg.Timing.DebounceTicks)
	}
	if cfg.Timing.Tick != 500*time.Microsecond || cfg.Timing.ConversionTimeout != 20*time.Millisecond {
		t.Errorf("Timing = %+v", cfg.Timing)
	}
	mode, err := cfg.ForcedMode()
	if err != nil || mode == nil || *mode != models.ModePotentiometer {
		t.Errorf("ForcedMode() = %v, %v, want potentiometer", mode, err)
	}
	if got := cfg.InputTiming().TickPeriod; got != 500*time.Microsecond {
		t.Errorf("InputTiming().TickPeriod = %v, want 500µs", got)
	}
}

func TestParse_EmptyFileUsesDefaults(t *testing.T) {
	for _, doc := range []string{"", "# nothing configured yet\n"} {
		cfg, err := config.Parse([]byte(doc))
		if err != nil {
			t.Fatalf("Parse(%q): %v", doc, err)
		}
		if !reflect.DeepEqual(cfg, config.Default()) {
			t.Errorf("Parse(%q) = %+v, want defaults", doc, cfg)
		}
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"unknown field", "bus:\n  drvier: mock\n", "drvier"},
		{"trailing document", "mode: button\n---\nmode: pot\n", "trailing"},
		{"bad driver", "bus:\n  driver: spi\n", "bus.driver"},
		{"buspirate without port", "bus:\n  driver: buspirate\n", "bus.port"},
		{"bad address", "amp:\n  address: 200\n", "amp.address"},
		{"bad channel", "adc:\n  channel: 8\n", "adc.channel"},
		{"bad mode", "mode: knob\n", "mode"},
		{"bad level", "logging:\n  level: loud\n", "logging.level"},
		{"zero tick", "timing:\n  tick: 0s\n", "timing.tick"},
		{"bad duration", "timing:\n  tick: fast\n", "decode"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.Parse([]byte(tt.doc))
			if err == nil {
				t.Fatal("Parse() should fail")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Parse() err = %v, want mention of %q", err, tt.want)
			}
		})
	}
}

func TestForcedMode(t *testing.T) {
	tests := []struct {
		mode string
		want *models.Mode
	}{
		{"", nil},
		{"auto", nil},
		{"AUTO", nil},
	}
	for _, tt := range tests {
		cfg := config.Default()
		cfg.Mode = tt.mode
		got, err := cfg.ForcedMode()
		if err != nil || got != tt.want {
			t.Errorf("ForcedMode(%q) = %v, %v, want nil", tt.mode, got, err)
		}
	}

	cfg := config.Default()
	cfg.Mode = "button"
	got, err := cfg.ForcedMode()
	if err != nil || got == nil || *got != models.ModeButton {
		t.Errorf("ForcedMode(button) = %v, %v", got, err)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
	}
	for _, tt := range tests {
		got, err := config.ParseLevel(tt.in)
		if err != nil || got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, %v, want %v", tt.in, got, err, tt.want)
		}
	}
}

func TestRestartRequired(t *testing.T) {
	old := config.Default()
	next := old
	next.Logging.Level = "debug"
	if got := config.RestartRequired(old, next); len(got) != 0 {
		t.Errorf("RestartRequired(level change) = %v, want none", got)
	}

	next.Bus.Driver = config.DriverMock
	next.Timing.Tick = time.Millisecond
	want := []string{"bus", "timing"}
	if got := config.RestartRequired(old, next); !reflect.DeepEqual(got, want) {
		t.Errorf("RestartRequired() = %v, want %v", got, want)
	}
}

// --- YAMLStore tests ---

func TestYAMLStore_LoadMissingFile_ReturnsDefault(t *testing.T) {
	store := config.NewYAMLStore(filepath.Join(t.TempDir(), "config.yaml"))

	cfg, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error = %v, want nil", err)
	}
	if !reflect.DeepEqual(*cfg, config.Default()) {
		t.Errorf("Load() = %+v, want defaults", *cfg)
	}
}

func TestYAMLStore_LoadInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("bus: [unterminated"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := config.NewYAMLStore(path).Load(); err == nil {
		t.Error("Load() should fail on a malformed file")
	}
}

func TestYAMLStore_SaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")
	store := config.NewYAMLStore(path)

	cfg := config.Default()
	cfg.Bus.Driver = config.DriverPeriph
	cfg.Bus.Device = "I2C1"
	cfg.Timing.ConversionTimeout = 50 * time.Millisecond
	cfg.Zeroconf.Name = "Kitchen amp"

	if err := store.Save(&cfg); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Errorf("temp file left behind: %v", err)
	}

	got, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !reflect.DeepEqual(*got, cfg) {
		t.Errorf("Load() = %+v, want %+v", *got, cfg)
	}
}

func TestYAMLStore_SaveRejectsInvalid(t *testing.T) {
	store := config.NewYAMLStore(filepath.Join(t.TempDir(), "config.yaml"))
	cfg := config.Default()
	cfg.Bus.Driver = "carrier-pigeon"
	if err := store.Save(&cfg); err == nil {
		t.Error("Save() should reject an invalid config")
	}
}

func TestYAMLStore_Watch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("logging:\n  level: info\n"), 0644); err != nil {
		t.Fatal(err)
	}
	store := config.NewYAMLStore(path)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	got := make(chan *config.Config, 4)
	if err := store.Watch(ctx, func(c *config.Config) { got <- c }); err != nil {
		t.Fatalf("Watch: %v", err)
	}

	if err := os.WriteFile(path, []byte("logging:\n  level: debug\n"), 0644); err != nil {
		t.Fatal(err)
	}

	deadline := time.After(2 * time.Second)
	for {
		select {
		case c := <-got:
			if c.Logging.Level == "debug" {
				return
			}
		case <-deadline:
			t.Fatal("no reload observed")
		}
	}
}

// --- MemStore tests ---

func TestMemStore(t *testing.T) {
	store := config.NewMemStore()
	if store.Path() != ":memory:" {
		t.Errorf("Path() = %q", store.Path())
	}

	cfg, _ := store.Load()
	cfg.HTTP.Addr = ":9000"
	if err := store.Save(cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}
	cfg.HTTP.Addr = "changed after save"

	got, _ := store.Load()
	if got.HTTP.Addr != ":9000" {
		t.Errorf("HTTP.Addr = %q, want :9000", got.HTTP.Addr)
	}
}
