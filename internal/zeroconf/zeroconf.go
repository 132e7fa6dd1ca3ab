// Package zeroconf advertises the status API over mDNS/DNS-SD so dashboards
// can find the amplifier controller on the LAN.
package zeroconf

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/grandcat/zeroconf"

	"github.com/micro-nova/ampvol-go/internal/models"
)

const (
	serviceType = "_http._tcp"
	domain      = "local."
)

// Service manages mDNS service registration.
type Service struct {
	name string // instance name, e.g. "ampvol"
	port int
	txt  []string
}

// New creates a Service that will advertise the status API on port.
func New(name string, port int, version string, mode models.Mode) *Service {
	return &Service{
		name: name,
		port: port,
		txt:  TXT(version, mode),
	}
}

// TXT builds the DNS-SD TXT records. The mode is fixed for the process
// lifetime so the records never need updating.
func TXT(version string, mode models.Mode) []string {
	return []string{
		"version=" + version,
		"model=LM49270",
		"mode=" + mode.String(),
		"path=/api",
	}
}

// Start registers the mDNS service and blocks until ctx is cancelled, at which
// point it shuts down the server cleanly.
func (s *Service) Start(ctx context.Context) error {
	if s.port <= 0 || s.port > 65535 {
		return fmt.Errorf("zeroconf: invalid port %d", s.port)
	}

	server, err := zeroconf.Register(
		s.name,      // instance name
		serviceType, // service type
		domain,      // domain
		s.port,      // port
		s.txt,       // TXT records
		nil,         // ifaces, nil means all interfaces
	)
	if err != nil {
		return fmt.Errorf("zeroconf register: %w", err)
	}
	slog.Info("zeroconf: registered mDNS service",
		"name", s.name,
		"port", s.port,
		"txt", s.txt,
	)

	<-ctx.Done()

	server.Shutdown()
	slog.Info("zeroconf: mDNS service unregistered")
	return nil
}
