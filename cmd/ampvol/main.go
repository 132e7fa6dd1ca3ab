// Command ampvol is the amplifier volume daemon. It reads the mode pin once,
// then follows either the volume buttons or the potentiometer and commits
// every change to the LM49270 over I2C.
// Run with --mock to use simulated hardware (no I2C device required).
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/micro-nova/ampvol-go/internal/api"
	"github.com/micro-nova/ampvol-go/internal/config"
	"github.com/micro-nova/ampvol-go/internal/controller"
	"github.com/micro-nova/ampvol-go/internal/events"
	"github.com/micro-nova/ampvol-go/internal/zeroconf"
)

var version = "dev"

func main() {
	var (
		cfgPath   = flag.String("config", config.DefaultPath, "config file path")
		mock      = flag.Bool("mock", false, "use mock hardware (no I2C, GPIO or SPI required)")
		addr      = flag.String("addr", "", "HTTP listen address (overrides http.addr)")
		debug     = flag.Bool("debug", false, "enable debug logging")
		writeConf = flag.Bool("write-config", false, "write the effective config to --config and exit")
	)
	flag.Parse()

	// Configure logging. The level is held in a LevelVar so config reloads can
	// change it.
	var level slog.LevelVar
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: &level})))

	store := config.NewYAMLStore(*cfgPath)
	cfg, err := store.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}
	if *mock {
		cfg.Bus.Driver = config.DriverMock
	}
	if *addr != "" {
		cfg.HTTP.Addr = *addr
	}
	applyLevel(&level, cfg, *debug)

	if *writeConf {
		if err := store.Save(cfg); err != nil {
			slog.Error("config write failed", "path", store.Path(), "err", err)
			os.Exit(1)
		}
		slog.Info("config written", "path", store.Path())
		return
	}

	// Graceful shutdown context
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	hw, err := openHardware(cfg)
	if err != nil {
		slog.Error("hardware initialization failed", "err", err)
		os.Exit(1)
	}
	defer hw.Close()
	slog.Info("hardware ready", "bus", hw.busDesc, "mode", hw.mode)

	bus := events.NewBus()
	ctrl, err := controller.New(hw.options(cfg, bus))
	if err != nil {
		slog.Error("controller initialization failed", "err", err)
		os.Exit(1)
	}
	if err := ctrl.Start(ctx); err != nil {
		slog.Error("controller start failed", "err", err)
		os.Exit(1)
	}

	// Button edges only flow in button mode; in potentiometer mode the pins
	// are never armed.
	edges := hw.watchButtons(ctx)

	startConfigWatch(ctx, store, cfg, &level, *debug)

	var srv *http.Server
	if cfg.HTTP.Addr != "" {
		srv = startHTTP(ctx, cfg, ctrl, bus, hw.busDesc)
	}

	slog.Info("ampvol running", "version", version, "mode", ctrl.Mode(), "mock", *mock, "config", store.Path())
	if err := ctrl.Run(ctx, edges); err != nil {
		slog.Error("controller stopped", "err", err)
	}

	slog.Info("shutting down...")
	if srv != nil {
		shutCtx, shutCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutCancel()
		if err := srv.Shutdown(shutCtx); err != nil {
			slog.Warn("server shutdown error", "err", err)
		}
	}
	slog.Info("shutdown complete")
}

func applyLevel(level *slog.LevelVar, cfg *config.Config, debug bool) {
	if debug {
		level.Set(slog.LevelDebug)
		return
	}
	l, err := config.ParseLevel(cfg.Logging.Level)
	if err != nil {
		slog.Warn("invalid log level, using info", "err", err)
	}
	level.Set(l)
}

// startConfigWatch applies the log level live and warns about anything else
// that changed, since the rest is only read at startup.
func startConfigWatch(ctx context.Context, store *config.YAMLStore, cur *config.Config, level *slog.LevelVar, debug bool) {
	last := *cur
	err := store.Watch(ctx, func(next *config.Config) {
		applyLevel(level, next, debug)
		if changed := config.RestartRequired(last, *next); len(changed) > 0 {
			slog.Warn("config changed; restart to apply", "sections", changed)
		}
		last = *next
	})
	if err != nil {
		slog.Warn("config watch disabled", "err", err)
	}
}

func startHTTP(ctx context.Context, cfg *config.Config, ctrl *controller.Controller, bus *events.Bus, busDesc string) *http.Server {
	router := api.NewRouter(ctrl, bus, api.Info{
		Version: version,
		Bus:     busDesc,
		Started: time.Now(),
	})
	srv := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // 0 = no timeout (needed for SSE)
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.Info("status API listening", "addr", cfg.HTTP.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "err", err)
		}
	}()

	if cfg.Zeroconf.Enabled {
		port, err := listenPort(cfg.HTTP.Addr)
		if err != nil {
			slog.Warn("zeroconf disabled", "err", err)
			return srv
		}
		name := cfg.Zeroconf.Name
		if name == "" {
			name, _ = os.Hostname()
		}
		zc := zeroconf.New(name, port, version, ctrl.Mode())
		go func() {
			if err := zc.Start(ctx); err != nil {
				slog.Warn("zeroconf failed", "err", err)
			}
		}()
	}
	return srv
}

func listenPort(addr string) (int, error) {
	_, p, err := net.SplitHostPort(addr)
	if err != nil {
		return 0, err
	}
	if p == "" {
		return 80, nil
	}
	return strconv.Atoi(p)
}
