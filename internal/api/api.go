// Package api exposes the render engine over HTTP: submitting a render,
// watching its progress, cancelling it, and browsing the job history.
package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"clipforge/internal/history"
	"clipforge/internal/logging"
	"clipforge/internal/poster"
	"clipforge/internal/render"
	"clipforge/internal/startup"
)

// Server holds the handlers' shared dependencies. One render runs at a
// time; submitting while one is active returns 409.
type Server struct {
	cfg     *startup.Config
	store   *history.Store
	posters *poster.Generator
	started time.Time

	mu      sync.Mutex
	current *job
}

// job tracks one render from submission to its terminal state.
type job struct {
	id      int64
	dest    string
	session *render.Session

	mu       sync.Mutex
	progress int
	status   string
	playhead float64
	logs     []string
	result   *render.Result
}

const maxJobLogLines = 200

func (j *job) snapshot() jobStatus {
	j.mu.Lock()
	defer j.mu.Unlock()
	s := jobStatus{
		ID:       j.id,
		Dest:     j.dest,
		State:    j.session.State().String(),
		Progress: j.progress,
		Status:   j.status,
		Playhead: j.playhead,
		Logs:     append([]string(nil), j.logs...),
	}
	if j.result != nil {
		r := *j.result
		s.Result = &r
	}
	return s
}

type jobStatus struct {
	ID       int64          `json:"id"`
	Dest     string         `json:"dest"`
	State    string         `json:"state"`
	Progress int            `json:"progress"`
	Status   string         `json:"status"`
	Playhead float64        `json:"playhead"`
	Logs     []string       `json:"logs,omitempty"`
	Result   *render.Result `json:"result,omitempty"`
}

// NewServer builds the API server.
func NewServer(cfg *startup.Config, store *history.Store) *Server {
	return &Server{
		cfg:     cfg,
		store:   store,
		posters: poster.NewGenerator(cfg.FFmpegPath, 0),
		started: time.Now(),
	}
}

// RegisterRoutes attaches all API routes to the router.
func (s *Server) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/render", s.StartRender).Methods(http.MethodPost)
	r.HandleFunc("/api/render/status", s.RenderStatus).Methods(http.MethodGet)
	r.HandleFunc("/api/render/cancel", s.CancelRender).Methods(http.MethodPost)
	r.HandleFunc("/api/projects", s.ListProjects).Methods(http.MethodGet)
	r.HandleFunc("/api/projects/{name}", s.GetProject).Methods(http.MethodGet)
	r.HandleFunc("/api/projects/{name}", s.SaveProject).Methods(http.MethodPut)
	r.HandleFunc("/api/projects/{name}", s.DeleteProject).Methods(http.MethodDelete)
	r.HandleFunc("/api/jobs", s.ListJobs).Methods(http.MethodGet)
	r.HandleFunc("/api/jobs/{id:[0-9]+}", s.GetJob).Methods(http.MethodGet)
	r.HandleFunc("/api/jobs/{id:[0-9]+}/poster", s.GetPoster).Methods(http.MethodGet)
	r.HandleFunc("/api/version", s.GetVersion).Methods(http.MethodGet)
	r.HandleFunc("/health", s.HealthCheck).Methods(http.MethodGet)
	r.HandleFunc("/healthz", s.HealthCheck).Methods(http.MethodGet)
	r.HandleFunc("/livez", s.Livez).Methods(http.MethodGet)
	r.HandleFunc("/readyz", s.Readyz).Methods(http.MethodGet)
}

// writeJSON encodes v as JSON. Encoding errors are logged since there is
// nothing left to send the client at that point.
func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Error("failed to encode JSON response: %v", err)
	}
}

// writeJSONError writes an error response as JSON with the given status code.
func writeJSONError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(map[string]string{"error": message}); err != nil {
		logging.Error("failed to encode JSON error: %v", err)
	}
}
