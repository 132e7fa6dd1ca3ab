package api

import (
	"net/http"
	"time"
)

func (h *Handlers) getState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.ctrl.State())
}

func (h *Handlers) getInfo(w http.ResponseWriter, r *http.Request) {
	var uptime int64
	if !h.info.Started.IsZero() {
		uptime = int64(time.Since(h.info.Started) / time.Second)
	}
	writeJSON(w, http.StatusOK, infoResponse{
		Version:   h.info.Version,
		Bus:       h.info.Bus,
		Mode:      h.ctrl.State().Mode,
		UptimeSec: uptime,
	})
}

func (h *Handlers) healthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}

func (h *Handlers) methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, "the status API is read-only")
}
