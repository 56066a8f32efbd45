package api

import (
	"net/http"
	"runtime"
	"time"

	"clipforge/internal/startup"
)

const (
	statusHealthy   = "healthy"
	statusRendering = "rendering"
)

// HealthResponse contains the health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Version   string `json:"version"`
	Uptime    string `json:"uptime"`
	Rendering bool   `json:"rendering"`
	NVENC     bool   `json:"nvenc"`

	GoVersion    string `json:"goVersion"`
	NumCPU       int    `json:"numCpu"`
	NumGoroutine int    `json:"numGoroutine"`
}

// HealthCheck reports overall service health plus render activity.
func (s *Server) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	rendering := s.current != nil && !s.current.session.State().Terminal()
	s.mu.Unlock()

	response := HealthResponse{
		Status:       statusHealthy,
		Version:      startup.Version,
		Uptime:       time.Since(s.started).Round(time.Second).String(),
		Rendering:    rendering,
		NVENC:        s.cfg.NVENCAvailable,
		GoVersion:    runtime.Version(),
		NumCPU:       runtime.NumCPU(),
		NumGoroutine: runtime.NumGoroutine(),
	}
	if rendering {
		response.Status = statusRendering
	}
	writeJSON(w, response)
}

// Livez is the liveness probe: the process is serving requests.
func (s *Server) Livez(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

// Readyz is the readiness probe: the job store answers queries.
func (s *Server) Readyz(w http.ResponseWriter, r *http.Request) {
	if _, err := s.store.List(r.Context(), 1); err != nil {
		writeJSONError(w, "job store unavailable", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, map[string]string{"status": "ready"})
}

// GetVersion returns the application version and build information
func (s *Server) GetVersion(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Cache-Control", "no-cache")
	writeJSON(w, startup.GetBuildInfo())
}
