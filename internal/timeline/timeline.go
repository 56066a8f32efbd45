package timeline

// Clip is a trimmed reference to a source media file placed on the timeline.
// All times are in seconds. The trim window [In, Out) selects the portion of
// the source that plays, starting at Start on the timeline.
type Clip struct {
	Source   string  `json:"source"`
	Track    int     `json:"track"`
	Start    float64 `json:"start_time"`
	In       float64 `json:"in_point"`
	Out      float64 `json:"out_point"`
	Duration float64 `json:"duration"` // natural duration of the source file
}

// TrimmedDuration returns the playable length of the clip (Out - In).
func (c *Clip) TrimmedDuration() float64 {
	return c.Out - c.In
}

// End returns the timeline time at which the clip stops playing.
func (c *Clip) End() float64 {
	return c.Start + c.TrimmedDuration()
}

// Valid reports whether the clip's trim window is well-formed.
func (c *Clip) Valid() bool {
	return c.Out > c.In && c.Source != ""
}

// Timeline is an unordered collection of clips across tracks. It is built by
// the external editor and read-only to the render engine.
type Timeline struct {
	Clips []Clip
}

// Duration returns the overall timeline length: the latest clip end time, or
// 0 for an empty timeline.
func (t *Timeline) Duration() float64 {
	var d float64
	for i := range t.Clips {
		if end := t.Clips[i].End(); end > d {
			d = end
		}
	}
	return d
}

// Empty reports whether the timeline holds no clips.
func (t *Timeline) Empty() bool {
	return len(t.Clips) == 0
}

// ActiveClipAt returns the clip that is visible at timeline time at, or nil
// when no clip covers it. A clip covers [Start, End). When clips overlap, the
// higher track occludes; within a track the clip with the later start wins.
func (t *Timeline) ActiveClipAt(at float64) *Clip {
	var active *Clip
	for i := range t.Clips {
		c := &t.Clips[i]
		if at < c.Start || at >= c.End() {
			continue
		}
		if active == nil || c.Track > active.Track ||
			(c.Track == active.Track && c.Start > active.Start) {
			active = c
		}
	}
	return active
}
