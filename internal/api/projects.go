package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"clipforge/internal/logging"
	"clipforge/internal/project"
)

// projectInfo is one entry in the project listing.
type projectInfo struct {
	Name     string    `json:"name"`
	Modified time.Time `json:"modified"`
	Size     int64     `json:"size"`
}

// ListProjects returns the saved projects, most recently modified first.
func (s *Server) ListProjects(w http.ResponseWriter, _ *http.Request) {
	entries, err := os.ReadDir(s.cfg.ProjectDir)
	if err != nil {
		logging.Error("Failed to read project directory: %v", err)
		writeJSONError(w, "failed to list projects", http.StatusInternalServerError)
		return
	}

	projects := []projectInfo{}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		projects = append(projects, projectInfo{
			Name:     strings.TrimSuffix(e.Name(), ".json"),
			Modified: info.ModTime(),
			Size:     info.Size(),
		})
	}
	sort.Slice(projects, func(i, j int) bool {
		return projects[i].Modified.After(projects[j].Modified)
	})

	writeJSON(w, projects)
}

// GetProject loads one saved project document.
func (s *Server) GetProject(w http.ResponseWriter, r *http.Request) {
	path, err := s.resolveProject(mux.Vars(r)["name"])
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	p, err := project.Load(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			writeJSONError(w, "project not found", http.StatusNotFound)
			return
		}
		writeJSONError(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	writeJSON(w, p)
}

// SaveProject persists the request body as a project document after
// validating its clips.
func (s *Server) SaveProject(w http.ResponseWriter, r *http.Request) {
	path, err := s.resolveProject(mux.Vars(r)["name"])
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	var p project.Project
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeJSONError(w, fmt.Sprintf("invalid project document: %v", err), http.StatusBadRequest)
		return
	}
	for i := range p.Clips {
		if !p.Clips[i].Valid() {
			writeJSONError(w, fmt.Sprintf("clip %d has an invalid trim window", i), http.StatusBadRequest)
			return
		}
	}

	if err := project.Save(path, &p); err != nil {
		logging.Error("Failed to save project %s: %v", filepath.Base(path), err)
		writeJSONError(w, "failed to save project", http.StatusInternalServerError)
		return
	}

	logging.Info("Saved project %s (%d clips)", filepath.Base(path), len(p.Clips))
	w.WriteHeader(http.StatusNoContent)
}

// DeleteProject removes a saved project.
func (s *Server) DeleteProject(w http.ResponseWriter, r *http.Request) {
	path, err := s.resolveProject(mux.Vars(r)["name"])
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			writeJSONError(w, "project not found", http.StatusNotFound)
			return
		}
		logging.Error("Failed to delete project %s: %v", filepath.Base(path), err)
		writeJSONError(w, "failed to delete project", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// resolveProject maps a project name to its path inside the project
// directory, refusing anything that would escape it.
func (s *Server) resolveProject(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("project name is required")
	}
	base := filepath.Base(filepath.Clean(name))
	if base == "." || base == ".." || base == "/" || base != name {
		return "", fmt.Errorf("invalid project name %q", name)
	}
	return filepath.Join(s.cfg.ProjectDir, base+".json"), nil
}
