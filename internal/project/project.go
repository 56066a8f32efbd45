// Package project persists editor projects: the timeline's clips plus the
// render settings, as a single versioned JSON document.
package project

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"clipforge/internal/render"
	"clipforge/internal/timeline"
)

// CurrentVersion is the project format version written by this build.
// Loading rejects documents with a newer version; older versions load as-is
// with absent fields taking zero values.
const CurrentVersion = 1

// Project is the on-disk document.
type Project struct {
	Version  int             `json:"version"`
	Clips    []timeline.Clip `json:"clips"`
	Settings render.Settings `json:"settings"`
}

// New returns an empty project at the current version with default render
// settings.
func New() *Project {
	return &Project{
		Version:  CurrentVersion,
		Settings: render.DefaultSettings(),
	}
}

// Timeline materializes the project's clips as a timeline.
func (p *Project) Timeline() *timeline.Timeline {
	return &timeline.Timeline{Clips: p.Clips}
}

// Save writes the project to path atomically: the document lands in a
// sibling temp file and is renamed into place, so a crash mid-write never
// truncates an existing project.
func Save(path string, p *Project) error {
	doc := *p
	doc.Version = CurrentVersion

	data, err := json.MarshalIndent(&doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding project: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing project: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replacing project %s: %w", filepath.Base(path), err)
	}
	return nil
}

// Load reads and validates a project document.
func Load(path string) (*Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading project: %w", err)
	}

	var p Project
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parsing project %s: %w", filepath.Base(path), err)
	}
	if p.Version > CurrentVersion {
		return nil, fmt.Errorf("project %s is version %d, this build reads up to %d",
			filepath.Base(path), p.Version, CurrentVersion)
	}
	for i := range p.Clips {
		if !p.Clips[i].Valid() {
			return nil, fmt.Errorf("project %s: clip %d has an invalid trim window", filepath.Base(path), i)
		}
	}
	return &p, nil
}
