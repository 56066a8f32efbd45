// Package probe wraps ffprobe behind a single JSON call and exposes the
// stream properties the render engine cares about.
package probe

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"

	"clipforge/internal/metrics"
)

// Result is the parsed output of one ffprobe call against a source file.
type Result struct {
	Path     string
	Duration float64

	// Primary video stream (zero values when the file has no video).
	HasVideo   bool
	VideoCodec string
	Width      int
	Height     int

	// First audio stream (zero values when the file has no audio).
	HasAudio   bool
	AudioCodec string
	SampleRate int
	Channels   int
}

// binary is the ffprobe executable, overridable via SetBinary before any
// probes run.
var binary = "ffprobe"

// SetBinary points the package at a specific ffprobe executable.
func SetBinary(path string) {
	if path != "" {
		binary = path
	}
}

// Probe runs ffprobe against path and returns the parsed result.
func Probe(ctx context.Context, path string) (*Result, error) {
	cmd := exec.CommandContext(ctx, binary,
		"-v", "error",
		"-print_format", "json",
		"-show_format", "-show_streams",
		path,
	)

	out, err := cmd.Output()
	if err != nil {
		metrics.ProbesTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("ffprobe %q: %w", path, err)
	}

	metrics.ProbesTotal.WithLabelValues("ok").Inc()
	return ParseJSON(path, out)
}

// ParseJSON converts raw ffprobe JSON output into a Result. Exported for
// testing without a real ffprobe binary.
func ParseJSON(path string, data []byte) (*Result, error) {
	var raw ffprobeOutput
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse ffprobe JSON for %q: %w", path, err)
	}

	r := &Result{
		Path:     path,
		Duration: parseFloat(raw.Format.Duration),
	}

	for i := range raw.Streams {
		s := &raw.Streams[i]
		switch s.CodecType {
		case "video":
			// Skip cover art; the first real video stream wins.
			if s.Disposition["attached_pic"] == 1 || r.HasVideo {
				continue
			}
			r.HasVideo = true
			r.VideoCodec = s.CodecName
			r.Width = s.Width
			r.Height = s.Height
		case "audio":
			if r.HasAudio {
				continue
			}
			r.HasAudio = true
			r.AudioCodec = s.CodecName
			r.SampleRate = parseInt(s.SampleRate)
			r.Channels = s.Channels
		}
	}

	return r, nil
}

// --- ffprobe JSON wire types ---

type ffprobeOutput struct {
	Format  ffprobeFormat   `json:"format"`
	Streams []ffprobeStream `json:"streams"`
}

type ffprobeFormat struct {
	Duration string `json:"duration"`
}

type ffprobeStream struct {
	CodecName   string         `json:"codec_name"`
	CodecType   string         `json:"codec_type"`
	Width       int            `json:"width"`
	Height      int            `json:"height"`
	SampleRate  string         `json:"sample_rate"`
	Channels    int            `json:"channels"`
	Disposition map[string]int `json:"disposition"`
}

func parseFloat(s string) float64 {
	v, _ := strconv.ParseFloat(s, 64)
	return v
}

func parseInt(s string) int {
	v, _ := strconv.Atoi(s)
	return v
}
