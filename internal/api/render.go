package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"clipforge/internal/history"
	"clipforge/internal/logging"
	"clipforge/internal/plan"
	"clipforge/internal/render"
	"clipforge/internal/timeline"
)

// renderRequest is the POST /api/render body. Settings are optional; absent
// fields fall back to the server's configured defaults.
type renderRequest struct {
	Output   string           `json:"output"`
	Clips    []timeline.Clip  `json:"clips"`
	Settings *render.Settings `json:"settings,omitempty"`
}

// StartRender validates the request, spins up a render session on its own
// goroutine, and returns 202 with the job ID.
func (s *Server) StartRender(w http.ResponseWriter, r *http.Request) {
	var req renderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
		return
	}

	dest, err := s.resolveDest(req.Output)
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if len(req.Clips) == 0 {
		writeJSONError(w, "timeline has no clips", http.StatusBadRequest)
		return
	}
	for i := range req.Clips {
		if !req.Clips[i].Valid() {
			writeJSONError(w, fmt.Sprintf("clip %d has an invalid trim window", i), http.StatusBadRequest)
			return
		}
	}

	settings := s.cfg.DefaultSettings
	if req.Settings != nil {
		settings = *req.Settings
	}
	if err := settings.Validate(); err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	tl := &timeline.Timeline{Clips: req.Clips}

	s.mu.Lock()
	if s.current != nil && !s.current.session.State().Terminal() {
		s.mu.Unlock()
		writeJSONError(w, "a render is already running", http.StatusConflict)
		return
	}

	j := &job{dest: dest, status: "queued"}
	notifier := &render.Callbacks{
		OnLog: func(msg string) {
			j.mu.Lock()
			j.logs = append(j.logs, msg)
			if len(j.logs) > maxJobLogLines {
				j.logs = j.logs[len(j.logs)-maxJobLogLines:]
			}
			j.mu.Unlock()
		},
		OnProgress: func(p int) { j.mu.Lock(); j.progress = p; j.mu.Unlock() },
		OnStatus:   func(msg string) { j.mu.Lock(); j.status = msg; j.mu.Unlock() },
		OnPlayhead: func(sec float64) { j.mu.Lock(); j.playhead = sec; j.mu.Unlock() },
	}

	j.session = render.NewSession(tl, settings, dest, render.Options{
		FFmpegPath:         s.cfg.FFmpegPath,
		NVENCAvailable:     s.cfg.NVENCAvailable,
		Notifier:           notifier,
		PreferredFreeBytes: s.cfg.ScratchPreferredBytes,
		MinimumFreeBytes:   s.cfg.ScratchMinimumBytes,
	})

	frames := plannedFrames(tl, settings.FPS)
	id, err := s.store.Insert(r.Context(), &history.Job{
		Dest:      dest,
		State:     render.StatePlanning.String(),
		Clips:     len(req.Clips),
		Frames:    frames,
		StartedAt: time.Now().UTC(),
	})
	if err != nil {
		s.mu.Unlock()
		logging.Error("Recording render job: %v", err)
		writeJSONError(w, "failed to record job", http.StatusInternalServerError)
		return
	}
	j.id = id
	s.current = j
	s.mu.Unlock()

	go s.runJob(j)

	w.WriteHeader(http.StatusAccepted)
	writeJSON(w, map[string]interface{}{"id": id, "dest": dest, "frames": frames})
}

// runJob drives a session to completion and records the outcome.
func (s *Server) runJob(j *job) {
	res := j.session.Render(context.Background())

	j.mu.Lock()
	j.result = &res
	if res.OK {
		j.progress = 100
	}
	j.mu.Unlock()

	finished := time.Now().UTC()
	state := j.session.State().String()
	if err := s.store.Update(context.Background(), j.id, state, res.Message, j.snapshotProgress(), &finished); err != nil {
		logging.Error("Updating render job %d: %v", j.id, err)
	}

	if res.OK {
		s.writePoster(j)
	}
}

func (j *job) snapshotProgress() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.progress
}

// writePoster extracts a poster still from the finished export. Best
// effort; a failure only costs the listing its preview image.
func (s *Server) writePoster(j *job) {
	posterPath := filepath.Join(s.cfg.PosterDir, fmt.Sprintf("%d.jpg", j.id))
	if err := s.posters.Generate(j.dest, posterPath, 1); err != nil {
		logging.Warn("Poster generation for job %d: %v", j.id, err)
	}
}

// resolveDest turns the requested output name into a path inside the export
// directory, refusing traversal outside it.
func (s *Server) resolveDest(output string) (string, error) {
	if output == "" {
		return "", fmt.Errorf("output name is required")
	}
	name := filepath.Base(filepath.Clean(output))
	if name == "." || name == ".." || name == "/" {
		return "", fmt.Errorf("invalid output name %q", output)
	}
	if !strings.ContainsRune(name, '.') {
		name += ".mp4"
	}
	return filepath.Join(s.cfg.ExportDir, name), nil
}

// plannedFrames pre-computes the total frame count for the job record.
func plannedFrames(tl *timeline.Timeline, fps float64) int64 {
	p, err := plan.Build(tl, fps)
	if err != nil {
		return 0
	}
	return p.TotalFrames
}

// RenderStatus reports the current (or most recent) render.
func (s *Server) RenderStatus(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	j := s.current
	s.mu.Unlock()

	if j == nil {
		writeJSON(w, map[string]interface{}{"active": false})
		return
	}

	snap := j.snapshot()
	writeJSON(w, map[string]interface{}{
		"active": !j.session.State().Terminal(),
		"job":    snap,
	})
}

// CancelRender requests cancellation of the running render.
func (s *Server) CancelRender(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	j := s.current
	s.mu.Unlock()

	if j == nil || j.session.State().Terminal() {
		writeJSONError(w, "no render is running", http.StatusConflict)
		return
	}

	j.session.Cancel()
	writeJSON(w, map[string]string{"status": "cancelling"})
}

// ListJobs returns recent render jobs, newest first.
func (s *Server) ListJobs(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 && v <= 500 {
			limit = v
		}
	}

	jobs, err := s.store.List(r.Context(), limit)
	if err != nil {
		logging.Error("Listing jobs: %v", err)
		writeJSONError(w, "failed to list jobs", http.StatusInternalServerError)
		return
	}
	if jobs == nil {
		jobs = []*history.Job{}
	}
	writeJSON(w, jobs)
}

// GetJob returns one recorded job.
func (s *Server) GetJob(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeJSONError(w, "invalid job id", http.StatusBadRequest)
		return
	}

	j, err := s.store.Get(r.Context(), id)
	if err != nil {
		writeJSONError(w, "job not found", http.StatusNotFound)
		return
	}
	writeJSON(w, j)
}

// GetPoster serves the poster still for a finished job.
func (s *Server) GetPoster(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeJSONError(w, "invalid job id", http.StatusBadRequest)
		return
	}

	path := filepath.Join(s.cfg.PosterDir, fmt.Sprintf("%d.jpg", id))
	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "max-age=3600")
	http.ServeFile(w, r, path)
}
