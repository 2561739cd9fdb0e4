package handlers

import (
	"net/http"
	"runtime"
	"time"

	"playlist-relinker/internal/filesystem"
	"playlist-relinker/internal/startup"
)

const (
	statusHealthy  = "healthy"
	statusDegraded = "degraded"
)

// HealthResponse contains the health check response
type HealthResponse struct {
	Status  string `json:"status"`
	Ready   bool   `json:"ready"`
	Version string `json:"version"`
	Uptime  string `json:"uptime"`
	ScanDir string `json:"scanDir"`
	Ledger  bool   `json:"ledger"`

	// System info
	GoVersion    string `json:"goVersion"`
	NumCPU       int    `json:"numCpu"`
	NumGoroutine int    `json:"numGoroutine"`

	// Ledger summary
	SuccessfulSaves int `json:"successfulSaves,omitempty"`
	FailedSaves     int `json:"failedSaves,omitempty"`
	Runs            int `json:"runs,omitempty"`
}

// ready reports whether the configured scan directory is reachable.
func (h *Handlers) ready() bool {
	info, err := filesystem.StatWithRetry(h.scanDir, filesystem.DefaultRetryConfig())
	return err == nil && info.IsDir()
}

// HealthCheck returns the health status of the service. The service is
// degraded, but still answers, when the scan directory is unreachable.
func (h *Handlers) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	ready := h.ready()
	response := HealthResponse{
		Status:       statusHealthy,
		Ready:        ready,
		Version:      startup.Version,
		Uptime:       time.Since(h.started).Round(time.Second).String(),
		ScanDir:      h.scanDir,
		Ledger:       h.db != nil,
		GoVersion:    runtime.Version(),
		NumCPU:       runtime.NumCPU(),
		NumGoroutine: runtime.NumGoroutine(),
	}
	if !ready {
		response.Status = statusDegraded
	}

	if h.db != nil {
		stats := h.db.GetStats()
		response.SuccessfulSaves = stats.SuccessfulSaves
		response.FailedSaves = stats.FailedSaves
		response.Runs = stats.Runs
	}

	writeJSONStatusCode(w, response, http.StatusOK)
}

// LivenessCheck is a simple liveness probe (always returns 200 if server is running)
func (h *Handlers) LivenessCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	// For HEAD requests, only send headers (no body)
	if r.Method != http.MethodHead {
		writeJSON(w, map[string]string{
			"status": "alive",
		})
	}
}

// ReadinessCheck returns 200 only when the scan directory can be read
func (h *Handlers) ReadinessCheck(w http.ResponseWriter, _ *http.Request) {
	if h.ready() {
		writeJSONStatusCode(w, map[string]string{"status": "ready"}, http.StatusOK)
		return
	}
	writeJSONStatusCode(w, map[string]string{"status": "not_ready"}, http.StatusServiceUnavailable)
}
