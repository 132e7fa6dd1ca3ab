// Package api serves a read-only HTTP view of the volume controller.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/micro-nova/ampvol-go/internal/models"
)

// Handlers holds dependencies for all HTTP handlers.
type Handlers struct {
	ctrl   Controller
	events EventBus
	info   Info
}

// Controller is the read side of the controller. The API never writes volume.
type Controller interface {
	State() models.Snapshot
}

// EventBus is the interface for subscribing to snapshot updates.
type EventBus interface {
	Subscribe(id string) <-chan models.Snapshot
	Unsubscribe(id string)
}

// Info describes the running daemon.
type Info struct {
	Version string
	Bus     string // bus driver and device, e.g. "ioctl /dev/i2c-1"
	Started time.Time
}

type infoResponse struct {
	Version   string      `json:"version"`
	Bus       string      `json:"bus"`
	Mode      models.Mode `json:"mode"`
	UptimeSec int64       `json:"uptime_sec"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
