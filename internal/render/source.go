package render

import (
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"

	"github.com/kballard/go-shellquote"

	"clipforge/internal/logging"
	"clipforge/internal/plan"
)

// frameBytes returns the size of one yuv420p frame: a full-resolution luma
// plane plus two quarter-resolution chroma planes.
func frameBytes(w, h int) int {
	return w*h + w*h/2
}

// blankFrame allocates a solid-black yuv420p frame: luma at broadcast black
// (16), chroma centered (128).
func blankFrame(w, h int) []byte {
	buf := make([]byte, frameBytes(w, h))
	luma := w * h
	for i := 0; i < luma; i++ {
		buf[i] = 16
	}
	for i := luma; i < len(buf); i++ {
		buf[i] = 128
	}
	return buf
}

// ffNum formats a float for an ffmpeg argument without trailing noise.
func ffNum(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// decodeArgs builds the ffmpeg invocation that decodes a trimmed clip range
// to rawvideo frames on stdout, scaled and resampled to the target geometry.
// With hardware decode the scale runs on the GPU before frames are
// downloaded for the raw pipe.
func decodeArgs(s *Settings, seg *plan.Segment, w, h int) []string {
	args := []string{"-hide_banner", "-loglevel", "error"}
	if s.HardwareDecode {
		args = append(args, "-hwaccel", "cuda", "-hwaccel_output_format", "cuda")
	}
	args = append(args,
		"-ss", ffNum(seg.SourceSeek()),
		"-i", seg.Clip.Source,
		"-vframes", strconv.FormatInt(seg.Frames, 10),
	)

	var vf string
	if s.HardwareDecode {
		vf = fmt.Sprintf("scale_cuda=%d:%d,hwdownload,format=nv12,fps=%s,format=yuv420p",
			w, h, ffNum(s.FPS))
	} else {
		vf = fmt.Sprintf("scale=%d:%d:flags=%s,fps=%s,format=yuv420p",
			w, h, s.scaleFlags(), ffNum(s.FPS))
	}
	args = append(args, "-vf", vf, "-f", "rawvideo", "-pix_fmt", "yuv420p", "-")
	return args
}

// decoder wraps one short-lived ffmpeg decode process for a clip segment.
type decoder struct {
	cmd *exec.Cmd
	out io.ReadCloser
}

// startDecoder spawns the decode process for a clip segment. The caller must
// Close the decoder on every path.
func startDecoder(ffmpeg string, s *Settings, seg *plan.Segment, w, h int) (*decoder, error) {
	args := decodeArgs(s, seg, w, h)
	logging.Debug("Decoder: %s %s", ffmpeg, shellquote.Join(args...))

	cmd := exec.Command(ffmpeg, args...)
	out, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("decoder stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: decoder for %s: %v", ErrProcessStart, seg.Clip.Source, err)
	}
	return &decoder{cmd: cmd, out: out}, nil
}

// ReadFrame fills buf with the next complete frame. It returns io.EOF when
// the decoder has no more frames; a partial trailing frame is treated as EOF
// since the stream ended mid-frame.
func (d *decoder) ReadFrame(buf []byte) error {
	_, err := io.ReadFull(d.out, buf)
	if err == nil {
		return nil
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return io.EOF
	}
	return fmt.Errorf("%w: reading decoded frame: %v", ErrStream, err)
}

// Close kills the decode process if still running and reaps it. Decoder exit
// status is ignored; underruns are handled by the frame accounting upstream.
func (d *decoder) Close() {
	if d.cmd.Process != nil {
		_ = d.cmd.Process.Kill()
	}
	_ = d.cmd.Wait()
}
