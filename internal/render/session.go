package render

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"runtime/debug"
	"sync/atomic"
	"time"

	"clipforge/internal/logging"
	"clipforge/internal/metrics"
	"clipforge/internal/plan"
	"clipforge/internal/probe"
	"clipforge/internal/timeline"
)

// State is the render state machine position. Transitions are linear:
// Idle -> Planning -> VideoEncoding -> AudioEncoding -> Muxing, ending in
// exactly one of Done, Failed, or Cancelled.
type State int32

const (
	StateIdle State = iota
	StatePlanning
	StateVideoEncoding
	StateAudioEncoding
	StateMuxing
	StateDone
	StateFailed
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePlanning:
		return "planning"
	case StateVideoEncoding:
		return "video_encoding"
	case StateAudioEncoding:
		return "audio_encoding"
	case StateMuxing:
		return "muxing"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	case StateCancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("unknown(%d)", int32(s))
	}
}

// Terminal reports whether the state is an end state.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed || s == StateCancelled
}

// Result is the structured outcome of a render. Message carries the failure
// reason verbatim on failure; on success it is a completion note.
type Result struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

// Options configures a Session beyond the timeline and settings.
type Options struct {
	// FFmpegPath overrides the ffmpeg binary, defaulting to "ffmpeg" on
	// PATH.
	FFmpegPath string
	// NVENCAvailable reports whether the hardware encoder probe succeeded.
	// When false, NVENC codecs are downgraded to their software
	// equivalents instead of failing the render.
	NVENCAvailable bool
	// Notifier receives progress events; nil means no reporting.
	Notifier Notifier
	// PreferredFreeBytes and MinimumFreeBytes override the scratch
	// thresholds when non-zero.
	PreferredFreeBytes uint64
	MinimumFreeBytes   uint64
}

// Session renders one timeline to one destination file. A Session is
// single-use: Render may be called once; Cancel and State are safe from any
// goroutine at any time.
type Session struct {
	timeline *timeline.Timeline
	settings Settings
	dest     string
	notifier Notifier

	ffmpeg    string
	nvenc     bool
	preferred uint64
	minimum   uint64

	// injectable for tests
	free      freeSpaceFunc
	probeFile func(ctx context.Context, path string) (*probe.Result, error)

	state     atomic.Int32
	cancelled atomic.Bool
}

// NewSession builds a render session. Settings are validated at Render time.
func NewSession(tl *timeline.Timeline, settings Settings, dest string, opts Options) *Session {
	s := &Session{
		timeline:  tl,
		settings:  settings,
		dest:      dest,
		notifier:  opts.Notifier,
		ffmpeg:    opts.FFmpegPath,
		nvenc:     opts.NVENCAvailable,
		preferred: opts.PreferredFreeBytes,
		minimum:   opts.MinimumFreeBytes,
		free:      diskFree,
		probeFile: probe.Probe,
	}
	if s.ffmpeg == "" {
		s.ffmpeg = "ffmpeg"
	}
	if s.notifier == nil {
		s.notifier = &Callbacks{}
	}
	if s.preferred == 0 {
		s.preferred = DefaultPreferredFreeBytes
	}
	if s.minimum == 0 {
		s.minimum = DefaultMinimumFreeBytes
	}
	return s
}

// State returns the current state machine position.
func (s *Session) State() State {
	return State(s.state.Load())
}

// Cancel requests cancellation. The render notices within one frame (or one
// audio buffer) and tears down its subprocesses; the eventual Result carries
// the message "Cancelled".
func (s *Session) Cancel() {
	if s.cancelled.CompareAndSwap(false, true) {
		logging.Info("Render cancellation requested")
	}
}

// Render runs the full pipeline to completion. It never panics: internal
// panics are recovered into a failed Result. Intermediates are cleaned up on
// every path.
func (s *Session) Render(ctx context.Context) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			logging.Error("Render panic: %v\n%s", r, debug.Stack())
			s.state.Store(int32(StateFailed))
			metrics.RendersTotal.WithLabelValues("failed").Inc()
			res = Result{OK: false, Message: fmt.Sprintf("Internal error: %v", r)}
		}
	}()

	metrics.RendersActive.Inc()
	defer metrics.RendersActive.Dec()

	err := s.run(ctx)
	switch {
	case err == nil:
		s.state.Store(int32(StateDone))
		metrics.RendersTotal.WithLabelValues("done").Inc()
		s.notifier.Progress(100)
		s.notifier.Status("Render complete")
		return Result{OK: true, Message: "Render complete"}
	case errors.Is(err, ErrCancelled):
		s.state.Store(int32(StateCancelled))
		metrics.RendersTotal.WithLabelValues("cancelled").Inc()
		logging.Info("Render cancelled")
		return Result{OK: false, Message: "Cancelled"}
	default:
		s.state.Store(int32(StateFailed))
		metrics.RendersTotal.WithLabelValues("failed").Inc()
		logging.Error("Render failed: %v", err)
		s.notifier.Log(fmt.Sprintf("Render failed: %v", err))
		return Result{OK: false, Message: err.Error()}
	}
}

func (s *Session) run(ctx context.Context) error {
	cancelled := func() bool {
		return s.cancelled.Load() || ctx.Err() != nil
	}

	if s.timeline.Empty() {
		return ErrEmptyTimeline
	}
	if err := s.settings.Validate(); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}
	if cancelled() {
		return ErrCancelled
	}

	s.state.Store(int32(StatePlanning))
	s.notifier.Status("Planning")
	s.notifier.Log(fmt.Sprintf("Starting render of %d clip(s) to %s", len(s.timeline.Clips), s.dest))

	// Scratch space is verified first: a render that cannot hold its
	// intermediates must fail before any subprocess spawns, probes
	// included.
	sc, err := newScratch(s.dest, s.settings.AudioCodec, s.preferred, s.minimum, s.free)
	if err != nil {
		return err
	}
	defer sc.cleanup()

	w, h, err := s.resolveGeometry(ctx)
	if err != nil {
		return err
	}

	p, err := plan.Build(s.timeline, s.settings.FPS)
	if err != nil {
		return fmt.Errorf("planning: %w", err)
	}
	if err := p.Validate(); err != nil {
		return fmt.Errorf("planning: %w", err)
	}
	if p.TotalFrames == 0 {
		return fmt.Errorf("%w: timeline renders to zero frames", ErrEmptyTimeline)
	}
	s.notifier.Log(fmt.Sprintf("Plan: %d frames in %d segment(s) at %s fps, %dx%d",
		p.TotalFrames, len(p.Segments), ffNum(p.FPS), w, h))

	codec := s.settings.VideoCodec
	if s.settings.HardwareEncode() && !s.nvenc {
		codec = s.settings.SoftwareFallbackCodec()
		logging.Warn("NVENC unavailable, falling back to %s", codec)
		s.notifier.Log(fmt.Sprintf("Hardware encoder unavailable, using %s", codec))
	}

	s.state.Store(int32(StateVideoEncoding))
	s.notifier.Log("Phase 1: video")
	start := time.Now()
	if err := s.videoPass(p, codec, w, h, sc.video, cancelled); err != nil {
		return err
	}
	metrics.RenderDuration.WithLabelValues("video").Observe(time.Since(start).Seconds())

	s.state.Store(int32(StateAudioEncoding))
	s.notifier.Progress(80)
	s.notifier.Status("Rendering audio")
	s.notifier.Log("Phase 2: audio")
	start = time.Now()
	if err := audioPass(s.ffmpeg, &s.settings, p, sc.audio, cancelled); err != nil {
		return err
	}
	metrics.RenderDuration.WithLabelValues("audio").Observe(time.Since(start).Seconds())

	s.state.Store(int32(StateMuxing))
	s.notifier.Progress(95)
	s.notifier.Status("Finalizing")
	s.notifier.Log("Phase 3: merge")
	start = time.Now()
	if err := mux(s.ffmpeg, sc.video, sc.audio, s.dest, cancelled); err != nil {
		return err
	}
	metrics.RenderDuration.WithLabelValues("mux").Observe(time.Since(start).Seconds())

	return nil
}

// resolveGeometry returns the output dimensions. Explicit settings win;
// otherwise the earliest clip is probed and its native size used, with a
// 1920x1080 fallback when the probe fails. Dimensions are forced even for
// yuv420p chroma subsampling.
func (s *Session) resolveGeometry(ctx context.Context) (int, int, error) {
	w, h := s.settings.Width, s.settings.Height
	if w == 0 || h == 0 {
		first := &s.timeline.Clips[0]
		for i := range s.timeline.Clips {
			if s.timeline.Clips[i].Start < first.Start {
				first = &s.timeline.Clips[i]
			}
		}
		info, err := s.probeFile(ctx, first.Source)
		if err != nil || !info.HasVideo {
			logging.Warn("Cannot probe %s for output size, using 1920x1080: %v", first.Source, err)
			w, h = 1920, 1080
		} else {
			w, h = info.Width, info.Height
		}
	}
	w &^= 1
	h &^= 1
	if w <= 0 || h <= 0 {
		return 0, 0, fmt.Errorf("unusable output resolution %dx%d", w, h)
	}
	return w, h, nil
}

// videoPass streams every planned frame into one encoder process. Blank
// segments synthesize black in-process; clip segments copy decoder output.
// A decoder delivering fewer frames than planned is padded with black and
// logged, keeping the output frame count exact.
func (s *Session) videoPass(p *plan.Plan, codec string, w, h int, out string, cancelled func() bool) error {
	enc, err := startSink(s.ffmpeg, encodeArgs(&s.settings, codec, w, h, out), out)
	if err != nil {
		return err
	}

	blank := blankFrame(w, h)
	buf := make([]byte, frameBytes(w, h))
	var written int64

	for i := range p.Segments {
		seg := &p.Segments[i]
		if cancelled() {
			enc.Kill()
			return ErrCancelled
		}

		switch seg.Type {
		case plan.SegmentBlank:
			logging.Debug("Blank segment: %d frames at frame %d", seg.Frames, seg.StartFrame)
			for f := int64(0); f < seg.Frames; f++ {
				if cancelled() {
					enc.Kill()
					return ErrCancelled
				}
				if err := enc.WriteFrame(blank); err != nil {
					enc.Kill()
					return err
				}
				metrics.FramesEncodedTotal.Inc()
				metrics.BlankFramesTotal.Inc()
				written++
				s.frameTick(written, p)
			}

		case plan.SegmentClip:
			s.notifier.Log(fmt.Sprintf("Encoding %s (%d frames)",
				filepath.Base(seg.Clip.Source), seg.Frames))

			got, err := s.copySegment(enc, seg, buf, w, h, &written, p, cancelled)
			if err != nil {
				enc.Kill()
				return err
			}
			if got < seg.Frames {
				short := seg.Frames - got
				metrics.FrameUnderrunsTotal.Inc()
				logging.Warn("Decoder underrun on %s: %d of %d frames, padding with black",
					seg.Clip.Source, got, seg.Frames)
				s.notifier.Log(fmt.Sprintf("Warning: %s delivered %d short frame(s), padded",
					filepath.Base(seg.Clip.Source), short))
				for f := int64(0); f < short; f++ {
					if cancelled() {
						enc.Kill()
						return ErrCancelled
					}
					if err := enc.WriteFrame(blank); err != nil {
						enc.Kill()
						return err
					}
					metrics.FramesEncodedTotal.Inc()
					metrics.PaddedFramesTotal.Inc()
					written++
					s.frameTick(written, p)
				}
			}
		}
	}

	return enc.Finalize()
}

// copySegment streams one clip segment's decoded frames into the encoder,
// returning the frame count actually delivered. Decoder-side read failures
// end the segment early (the caller pads); only encoder-side failures are
// returned.
func (s *Session) copySegment(enc *sink, seg *plan.Segment, buf []byte, w, h int, written *int64, p *plan.Plan, cancelled func() bool) (int64, error) {
	dec, err := startDecoder(s.ffmpeg, &s.settings, seg, w, h)
	if err != nil {
		return 0, err
	}
	defer dec.Close()

	var got int64
	for got < seg.Frames {
		if cancelled() {
			return got, ErrCancelled
		}
		if err := dec.ReadFrame(buf); err != nil {
			if !errors.Is(err, io.EOF) {
				logging.Warn("Decode error on %s after %d frame(s): %v", seg.Clip.Source, got, err)
			}
			return got, nil
		}
		if err := enc.WriteFrame(buf); err != nil {
			return got, err
		}
		got++
		*written++
		metrics.FramesEncodedTotal.Inc()
		s.frameTick(*written, p)
	}
	return got, nil
}

// frameTick emits progress at a 30-frame cadence: status line, playhead, and
// the video pass's share of overall progress (0-80).
func (s *Session) frameTick(written int64, p *plan.Plan) {
	if written%30 != 0 && written != p.TotalFrames {
		return
	}
	s.notifier.Status(fmt.Sprintf("Rendering frame %d / %d", written, p.TotalFrames))
	s.notifier.Playhead(float64(written) / p.FPS)
	s.notifier.Progress(int(written * 80 / p.TotalFrames))
}
