package handlers

import (
	"net/http"
	"runtime"
	"time"

	"media-manager/internal/startup"
)

const (
	statusHealthy  = "healthy"
	statusDegraded = "degraded"
)

var startTime = time.Now()

// HealthResponse is the payload of the health endpoint.
type HealthResponse struct {
	Status       string `json:"status"`
	Ready        bool   `json:"ready"`
	Version      string `json:"version"`
	Uptime       string `json:"uptime"`
	Database     bool   `json:"database"`
	Storage      bool   `json:"storage"`
	GoVersion    string `json:"goVersion"`
	NumCPU       int    `json:"numCpu"`
	NumGoroutine int    `json:"numGoroutine"`
}

// Health handles GET /healthz with component-level detail.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	dbOK := h.db.Ping(r.Context()) == nil
	storageOK := true
	if h.store != nil {
		storageOK = h.store.Ping(r.Context()) == nil
	}

	response := HealthResponse{
		Ready:        dbOK,
		Version:      startup.Version,
		Uptime:       time.Since(startTime).Round(time.Second).String(),
		Database:     dbOK,
		Storage:      storageOK,
		GoVersion:    runtime.Version(),
		NumCPU:       runtime.NumCPU(),
		NumGoroutine: runtime.NumGoroutine(),
	}

	statusCode := http.StatusOK
	if dbOK && storageOK {
		response.Status = statusHealthy
	} else {
		response.Status = statusDegraded
		if !dbOK {
			statusCode = http.StatusServiceUnavailable
		}
	}

	writeJSON(w, statusCode, response)
}

// Livez handles GET /livez: process liveness only.
func (h *Handlers) Livez(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Readyz handles GET /readyz: the service is ready once the database
// answers.
func (h *Handlers) Readyz(w http.ResponseWriter, r *http.Request) {
	if err := h.db.Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// Version handles GET /api/version.
func (h *Handlers) Version(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, startup.GetBuildInfo())
}
