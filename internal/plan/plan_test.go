package plan

import (
	"math"
	"testing"

	"clipforge/internal/timeline"
)

func TestBuildEmptyTimeline(t *testing.T) {
	p, err := Build(&timeline.Timeline{}, 30)
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	if p.TotalFrames != 0 {
		t.Errorf("TotalFrames = %d, want 0", p.TotalFrames)
	}
	if len(p.Segments) != 0 {
		t.Errorf("len(Segments) = %d, want 0", len(p.Segments))
	}
	if err := p.Validate(); err != nil {
		t.Errorf("Validate() error: %v", err)
	}
}

func TestBuildInvalidFPS(t *testing.T) {
	if _, err := Build(&timeline.Timeline{}, 0); err == nil {
		t.Error("Build() with fps=0 succeeded, want error")
	}
}

// Adjacent clips: B starts exactly where A ends, so no blank segment appears.
func TestBuildAdjacentClips(t *testing.T) {
	tl := &timeline.Timeline{Clips: []timeline.Clip{
		{Source: "a.mp4", Track: 0, Start: 0, In: 2, Out: 7},
		{Source: "b.mp4", Track: 0, Start: 5, In: 0, Out: 3},
	}}

	p, err := Build(tl, 30)
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	if p.TotalFrames != 240 {
		t.Fatalf("TotalFrames = %d, want 240", p.TotalFrames)
	}
	if err := p.Validate(); err != nil {
		t.Fatalf("Validate() error: %v", err)
	}
	if len(p.Segments) != 2 {
		t.Fatalf("len(Segments) = %d, want 2: %+v", len(p.Segments), p.Segments)
	}

	a, b := p.Segments[0], p.Segments[1]
	if a.Type != SegmentClip || a.StartFrame != 0 || a.Frames != 150 || a.Clip.Source != "a.mp4" {
		t.Errorf("segment 0 = %+v, want clip a.mp4 frames [0,150)", a)
	}
	if b.Type != SegmentClip || b.StartFrame != 150 || b.Frames != 90 || b.Clip.Source != "b.mp4" {
		t.Errorf("segment 1 = %+v, want clip b.mp4 frames [150,240)", b)
	}
}

// A one-second hole between clips becomes a blank segment.
func TestBuildGapProducesBlank(t *testing.T) {
	tl := &timeline.Timeline{Clips: []timeline.Clip{
		{Source: "a.mp4", Track: 0, Start: 0, In: 2, Out: 7},
		{Source: "b.mp4", Track: 0, Start: 6, In: 0, Out: 3},
	}}

	p, err := Build(tl, 30)
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	if p.TotalFrames != 270 {
		t.Fatalf("TotalFrames = %d, want 270", p.TotalFrames)
	}
	if err := p.Validate(); err != nil {
		t.Fatalf("Validate() error: %v", err)
	}
	if len(p.Segments) != 3 {
		t.Fatalf("len(Segments) = %d, want 3: %+v", len(p.Segments), p.Segments)
	}

	blank := p.Segments[1]
	if blank.Type != SegmentBlank || blank.StartFrame != 150 || blank.Frames != 30 {
		t.Errorf("segment 1 = %+v, want blank frames [150,180)", blank)
	}
	if p.Segments[2].StartFrame != 180 || p.Segments[2].Frames != 90 {
		t.Errorf("segment 2 = %+v, want frames [180,270)", p.Segments[2])
	}
}

// An overlapping clip on a higher track splits the lower clip around it.
func TestBuildHigherTrackOccludes(t *testing.T) {
	tl := &timeline.Timeline{Clips: []timeline.Clip{
		{Source: "base.mp4", Track: 0, Start: 0, In: 0, Out: 10},
		{Source: "front.mp4", Track: 1, Start: 4, In: 0, Out: 2},
	}}

	p, err := Build(tl, 30)
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	if err := p.Validate(); err != nil {
		t.Fatalf("Validate() error: %v", err)
	}
	if len(p.Segments) != 3 {
		t.Fatalf("len(Segments) = %d, want 3: %+v", len(p.Segments), p.Segments)
	}

	sources := []string{"base.mp4", "front.mp4", "base.mp4"}
	for i, want := range sources {
		if p.Segments[i].Clip == nil || p.Segments[i].Clip.Source != want {
			t.Errorf("segment %d clip = %v, want %s", i, p.Segments[i].Clip, want)
		}
	}
	if p.Segments[1].StartFrame != 120 || p.Segments[1].Frames != 60 {
		t.Errorf("occluding segment = %+v, want frames [120,180)", p.Segments[1])
	}
}

// Leading silence before the first clip must also be tiled.
func TestBuildLeadingBlank(t *testing.T) {
	tl := &timeline.Timeline{Clips: []timeline.Clip{
		{Source: "a.mp4", Track: 0, Start: 2, In: 0, Out: 3},
	}}

	p, err := Build(tl, 25)
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	if p.TotalFrames != 125 {
		t.Fatalf("TotalFrames = %d, want 125", p.TotalFrames)
	}
	if err := p.Validate(); err != nil {
		t.Fatalf("Validate() error: %v", err)
	}
	if p.Segments[0].Type != SegmentBlank || p.Segments[0].Frames != 50 {
		t.Errorf("segment 0 = %+v, want 50 blank frames", p.Segments[0])
	}
}

func TestSourceSeek(t *testing.T) {
	clip := timeline.Clip{Source: "a.mp4", Track: 0, Start: 10, In: 3, Out: 13}
	seg := Segment{
		Type:       SegmentClip,
		Clip:       &clip,
		StartFrame: 360, // 12s at 30fps: 2s into the clip
		Frames:     30,
		StartTime:  12,
	}

	if got := seg.SourceSeek(); math.Abs(got-5) > 1e-9 {
		t.Errorf("SourceSeek() = %v, want 5", got)
	}
}

// Fractional clip edges snap to whole frames without gaps or overlaps.
func TestBuildFractionalEdges(t *testing.T) {
	tl := &timeline.Timeline{Clips: []timeline.Clip{
		{Source: "a.mp4", Track: 0, Start: 0, In: 0, Out: 3.337},
		{Source: "b.mp4", Track: 0, Start: 3.337, In: 1.1, Out: 4.25},
	}}

	p, err := Build(tl, 29.97)
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	if err := p.Validate(); err != nil {
		t.Fatalf("Validate() error: %v", err)
	}

	var sum int64
	for _, s := range p.Segments {
		sum += s.Frames
	}
	if sum != p.TotalFrames {
		t.Errorf("segment frames sum to %d, want %d", sum, p.TotalFrames)
	}
}

func TestClipFrames(t *testing.T) {
	tl := &timeline.Timeline{Clips: []timeline.Clip{
		{Source: "a.mp4", Track: 0, Start: 1, In: 0, Out: 2},
	}}

	p, err := Build(tl, 30)
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	if got := p.ClipFrames(); got != 60 {
		t.Errorf("ClipFrames() = %d, want 60", got)
	}
}
