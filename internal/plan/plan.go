package plan

import (
	"fmt"
	"math"
	"sort"

	"clipforge/internal/timeline"
)

// SegmentType distinguishes clip playback from synthesized black video.
type SegmentType int

const (
	// SegmentBlank produces solid-black frames and silence.
	SegmentBlank SegmentType = iota
	// SegmentClip decodes a trimmed range of a source clip.
	SegmentClip
)

func (s SegmentType) String() string {
	if s == SegmentClip {
		return "clip"
	}
	return "blank"
}

// Segment is a contiguous frame range belonging to exactly one clip, or to
// none. Segments produced by Build tile [0, TotalFrames) with no gaps or
// overlaps, ordered by StartFrame.
type Segment struct {
	Type       SegmentType
	Clip       *timeline.Clip // nil for blank segments
	StartFrame int64
	Frames     int64
	StartTime  float64 // timeline time of the first frame, StartFrame/fps
}

// EndFrame returns the first frame past the segment.
func (s *Segment) EndFrame() int64 {
	return s.StartFrame + s.Frames
}

// SourceSeek returns the seek time inside the segment's source file: the
// clip's in-point advanced by how far into the clip the segment begins.
// Only meaningful for clip segments.
func (s *Segment) SourceSeek() float64 {
	return s.Clip.In + (s.StartTime - s.Clip.Start)
}

// Plan is the gapless segment sequence for one render.
type Plan struct {
	Segments    []Segment
	TotalFrames int64
	FPS         float64
}

// boundaryEps absorbs floating-point noise when clip edges land exactly on
// frame boundaries.
const boundaryEps = 1e-9

// Build converts a timeline into an ordered segment list covering
// [0, total_frames) at the given frame rate. The active clip at any instant
// is resolved by timeline.ActiveClipAt (higher track occludes); runs of
// frames with the same active clip merge into one segment. An empty timeline
// yields an empty plan.
//
// Segment edges are derived from the sorted set of clip start/end boundaries
// rather than a per-frame scan, so planning is O(n log n) in the clip count.
func Build(tl *timeline.Timeline, fps float64) (*Plan, error) {
	if fps <= 0 {
		return nil, fmt.Errorf("invalid frame rate %v", fps)
	}

	p := &Plan{FPS: fps}
	if tl.Empty() {
		return p, nil
	}

	duration := tl.Duration()
	p.TotalFrames = int64(math.Floor(duration*fps + boundaryEps))
	if p.TotalFrames == 0 {
		return p, nil
	}

	// Frame numbers at which the active clip can change: the first frame at
	// or after each clip edge, clamped to the plan range.
	boundarySet := map[int64]struct{}{0: {}, p.TotalFrames: {}}
	for i := range tl.Clips {
		c := &tl.Clips[i]
		for _, t := range []float64{c.Start, c.End()} {
			f := int64(math.Ceil(t*fps - boundaryEps))
			if f < 0 {
				f = 0
			}
			if f > p.TotalFrames {
				f = p.TotalFrames
			}
			boundarySet[f] = struct{}{}
		}
	}

	boundaries := make([]int64, 0, len(boundarySet))
	for f := range boundarySet {
		boundaries = append(boundaries, f)
	}
	sort.Slice(boundaries, func(i, j int) bool { return boundaries[i] < boundaries[j] })

	for i := 0; i < len(boundaries)-1; i++ {
		start, end := boundaries[i], boundaries[i+1]
		if end == start {
			continue
		}

		// Sample just past the first frame instant of the interval; the
		// active clip is constant between adjacent boundaries.
		active := tl.ActiveClipAt((float64(start) + boundaryEps) / fps)

		if n := len(p.Segments); n > 0 && p.Segments[n-1].Clip == active {
			p.Segments[n-1].Frames += end - start
			continue
		}

		seg := Segment{
			Type:       SegmentBlank,
			StartFrame: start,
			Frames:     end - start,
			StartTime:  float64(start) / fps,
		}
		if active != nil {
			seg.Type = SegmentClip
			seg.Clip = active
		}
		p.Segments = append(p.Segments, seg)
	}

	return p, nil
}

// Validate checks the tiling invariant: segments cover [0, TotalFrames)
// exactly, in order, with no gaps or overlaps.
func (p *Plan) Validate() error {
	var next int64
	for i := range p.Segments {
		s := &p.Segments[i]
		if s.StartFrame != next {
			return fmt.Errorf("segment %d starts at frame %d, want %d", i, s.StartFrame, next)
		}
		if s.Frames <= 0 {
			return fmt.Errorf("segment %d has non-positive frame count %d", i, s.Frames)
		}
		if s.Type == SegmentClip && s.Clip == nil {
			return fmt.Errorf("segment %d is a clip segment without a clip", i)
		}
		next = s.EndFrame()
	}
	if next != p.TotalFrames {
		return fmt.Errorf("segments cover %d frames, want %d", next, p.TotalFrames)
	}
	return nil
}

// ClipFrames returns the number of frames carried by clip segments. The
// remainder of the plan is blank.
func (p *Plan) ClipFrames() int64 {
	var n int64
	for i := range p.Segments {
		if p.Segments[i].Type == SegmentClip {
			n += p.Segments[i].Frames
		}
	}
	return n
}
