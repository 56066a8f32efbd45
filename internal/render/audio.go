package render

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os/exec"
	"strconv"

	"github.com/kballard/go-shellquote"

	"clipforge/internal/logging"
	"clipforge/internal/plan"
)

// The audio pass streams raw interleaved s16le PCM into a single encoder,
// mirroring the video pass: blank segments synthesize silence in-process,
// clip segments decode the source's audio track. Clips without audio simply
// decode to nothing and the pad logic fills the gap with silence, so the
// intermediate always covers the full timeline.

const audioSampleBytes = 2 // s16le

// audioEncodeArgs builds the single long-lived audio encoder: raw PCM on
// stdin, the configured codec on disk.
func audioEncodeArgs(s *Settings, out string) []string {
	args := []string{
		"-hide_banner", "-loglevel", "error", "-y",
		"-f", "s16le",
		"-ar", strconv.Itoa(s.SampleRate),
		"-ac", strconv.Itoa(s.Channels),
		"-i", "-",
		"-c:a", s.AudioCodec,
	}
	if s.AudioCodec == "aac" {
		args = append(args, "-b:a", "320k")
	}
	return append(args, out)
}

// audioDecodeArgs builds the per-segment decoder: the clip's audio resampled
// to the target rate and layout, raw PCM on stdout.
func audioDecodeArgs(s *Settings, seg *plan.Segment) []string {
	return []string{
		"-hide_banner", "-loglevel", "error",
		"-ss", ffNum(seg.SourceSeek()),
		"-t", ffNum(segmentSeconds(seg, s.FPS)),
		"-i", seg.Clip.Source,
		"-vn",
		"-f", "s16le",
		"-ar", strconv.Itoa(s.SampleRate),
		"-ac", strconv.Itoa(s.Channels),
		"-",
	}
}

// segmentSeconds returns the segment's duration on the timeline.
func segmentSeconds(seg *plan.Segment, fps float64) float64 {
	return float64(seg.Frames) / fps
}

// audioPass renders the full-timeline audio intermediate. cancelled is
// polled between chunks so a cancel lands within one buffer.
func audioPass(ffmpeg string, s *Settings, p *plan.Plan, out string, cancelled func() bool) error {
	enc, err := startSink(ffmpeg, audioEncodeArgs(s, out), out)
	if err != nil {
		return err
	}

	frameStride := audioSampleBytes * s.Channels
	silence := make([]byte, frameStride*s.SampleRate) // one second

	// Cumulative sample accounting keeps segment boundaries drift-free:
	// each segment is padded or truncated to land exactly on the sample
	// count its end frame implies.
	var written int64
	for i := range p.Segments {
		seg := &p.Segments[i]
		target := int64(math.Round(float64(seg.EndFrame())/p.FPS*float64(s.SampleRate))) * int64(frameStride)

		if seg.Type == plan.SegmentClip {
			n, err := copyClipAudio(ffmpeg, s, seg, enc, target-written, cancelled)
			if err != nil {
				enc.Kill()
				return err
			}
			written += n
			// A truncated decode can end mid-sample; realign so the
			// rest of the stream keeps its channel interleaving.
			if rem := written % int64(frameStride); rem != 0 {
				pad := make([]byte, int64(frameStride)-rem)
				if err := enc.WriteFrame(pad); err != nil {
					enc.Kill()
					return err
				}
				written += int64(len(pad))
			}
		}

		// Silence for blank segments, and for whatever a clip's audio
		// track came up short of.
		for written < target {
			if cancelled() {
				enc.Kill()
				return ErrCancelled
			}
			chunk := target - written
			if chunk > int64(len(silence)) {
				chunk = int64(len(silence))
			}
			if err := enc.WriteFrame(silence[:chunk]); err != nil {
				enc.Kill()
				return err
			}
			written += chunk
		}
	}

	return enc.Finalize()
}

// copyClipAudio decodes one clip segment's audio and streams at most limit
// bytes into the encoder. Returns the bytes written.
func copyClipAudio(ffmpeg string, s *Settings, seg *plan.Segment, enc *sink, limit int64, cancelled func() bool) (int64, error) {
	args := audioDecodeArgs(s, seg)
	logging.Debug("Audio decoder: %s %s", ffmpeg, shellquote.Join(args...))

	cmd := exec.Command(ffmpeg, args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return 0, fmt.Errorf("audio decoder stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("%w: audio decoder for %s: %v", ErrProcessStart, seg.Clip.Source, err)
	}
	defer func() {
		if cmd.Process != nil {
			_ = cmd.Process.Kill()
		}
		_ = cmd.Wait()
	}()

	buf := make([]byte, 64<<10)
	var written int64
	for written < limit {
		if cancelled() {
			return written, ErrCancelled
		}
		want := int64(len(buf))
		if remain := limit - written; remain < want {
			want = remain
		}
		n, err := stdout.Read(buf[:want])
		if n > 0 {
			if werr := enc.WriteFrame(buf[:n]); werr != nil {
				return written, werr
			}
			written += int64(n)
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return written, fmt.Errorf("%w: reading decoded audio: %v", ErrStream, err)
		}
	}
	return written, nil
}
