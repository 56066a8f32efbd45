package render

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"sync"
	"time"

	"github.com/kballard/go-shellquote"

	"clipforge/internal/logging"
)

const (
	// frameWriteTimeout bounds a single frame write into the encoder's
	// stdin. A healthy encoder drains the pipe far faster than this; a hung
	// one must not wedge the render goroutine forever.
	frameWriteTimeout = 30 * time.Second

	// finalizeTimeout bounds the encoder flush after stdin closes.
	finalizeTimeout = 45 * time.Second

	// killReapTimeout bounds the wait for a killed encoder to exit. The
	// daemon is long-lived; an unreaped process is a zombie forever.
	killReapTimeout = 5 * time.Second

	// minOutputBytes is the smallest plausible intermediate file. Anything
	// under this after a "successful" pass means the encoder produced
	// garbage.
	minOutputBytes = 1000
)

// encodeArgs builds the ffmpeg invocation for the long-lived video encoder:
// rawvideo frames on stdin, codec-compressed stream in a QuickTime wrapper
// on disk. codec is the resolved encoder, already downgraded to a software
// codec when NVENC is unavailable.
func encodeArgs(s *Settings, codec string, w, h int, out string) []string {
	args := []string{
		"-hide_banner", "-loglevel", "error", "-y",
		"-f", "rawvideo", "-pix_fmt", "yuv420p",
		"-s", fmt.Sprintf("%dx%d", w, h),
		"-r", ffNum(s.FPS),
		"-i", "-",
		"-c:v", codec,
	}

	if isNVENC(codec) {
		args = append(args, "-preset", "p7")
		if s.RateControl == RateQuality {
			args = append(args, "-rc", "vbr", "-cq", strconv.Itoa(s.Quality), "-b:v", "0")
		} else {
			args = append(args, "-rc", "cbr", "-b:v", fmt.Sprintf("%dk", s.BitrateMbps*1000))
		}
	} else {
		args = append(args, "-preset", "fast", "-threads", strconv.Itoa(s.EncodeThreads()))
		if s.RateControl == RateQuality {
			args = append(args, "-crf", strconv.Itoa(s.Quality))
		} else {
			args = append(args, "-b:v", fmt.Sprintf("%dk", s.BitrateMbps*1000))
		}
	}

	return append(args, out)
}

func isNVENC(codec string) bool {
	return codec == "hevc_nvenc" || codec == "h264_nvenc"
}

// sink owns the single long-lived encoder process a video pass streams into.
type sink struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stderr *bytes.Buffer
	out    string

	// flush bounds the Finalize wait; shortened in tests.
	flush time.Duration

	killOnce sync.Once
}

// startSink spawns an encoder process reading from a stdin pipe and writing
// the file named by out. The caller must call Finalize or Kill on every
// path.
func startSink(ffmpeg string, args []string, out string) (*sink, error) {
	logging.Info("Encoder: %s %s", ffmpeg, shellquote.Join(args...))

	cmd := exec.Command(ffmpeg, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("encoder stdin pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: encoder: %v", ErrProcessStart, err)
	}
	return &sink{cmd: cmd, stdin: stdin, stderr: &stderr, out: out, flush: finalizeTimeout}, nil
}

// WriteFrame pushes one raw frame into the encoder with a bounded wait. A
// broken pipe or timeout here is fatal to the render: the encoder is gone or
// wedged, and every subsequent frame would be lost.
func (k *sink) WriteFrame(frame []byte) error {
	done := make(chan error, 1)
	go func() {
		_, err := k.stdin.Write(frame)
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("%w: encoder pipe: %v (%s)", ErrStream, err, k.tail())
		}
		return nil
	case <-time.After(frameWriteTimeout):
		k.Kill()
		return fmt.Errorf("%w: encoder accepted no data for %s", ErrTimeout, frameWriteTimeout)
	}
}

// Finalize closes the encoder's stdin, waits out the flush with a bounded
// timeout, and sanity-checks the resulting file. A flush that overruns the
// timeout forces termination; the pass still succeeds if the artifact on
// disk passes the sanity check.
func (k *sink) Finalize() error {
	if err := k.stdin.Close(); err != nil {
		logging.Warn("Closing encoder stdin: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- k.cmd.Wait() }()

	timedOut := false
	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("%w: encoder exit: %v (%s)", ErrStream, err, k.tail())
		}
	case <-time.After(k.flush):
		timedOut = true
		logging.Warn("Encoder did not flush within %s, forcing termination", k.flush)
		if k.cmd.Process != nil {
			_ = k.cmd.Process.Kill()
		}
		<-done
	}

	info, err := os.Stat(k.out)
	switch {
	case err != nil && timedOut:
		return fmt.Errorf("%w: encoder did not flush within %s and left no output", ErrTimeout, k.flush)
	case err != nil:
		return fmt.Errorf("%w: %s: %v", ErrCorruptOutput, k.out, err)
	case info.Size() < minOutputBytes && timedOut:
		return fmt.Errorf("%w: encoder did not flush within %s, %s is only %d bytes",
			ErrTimeout, k.flush, k.out, info.Size())
	case info.Size() < minOutputBytes:
		return fmt.Errorf("%w: %s is only %d bytes", ErrCorruptOutput, k.out, info.Size())
	}
	if timedOut {
		logging.Warn("Encoder was terminated after the flush timeout but %s passed the size check", k.out)
	}
	return nil
}

// Kill tears the encoder down without flushing: stdin is closed, the
// process killed, and its exit reaped under a short timeout so no zombie
// accumulates in the daemon. Used on cancellation and fatal errors;
// idempotent.
func (k *sink) Kill() {
	k.killOnce.Do(func() {
		_ = k.stdin.Close()
		if k.cmd.Process != nil {
			_ = k.cmd.Process.Kill()
		}
		done := make(chan struct{})
		go func() {
			_ = k.cmd.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(killReapTimeout):
			logging.Warn("Encoder did not exit within %s of being killed", killReapTimeout)
		}
	})
}

// tail returns the trailing stderr output for error messages.
func (k *sink) tail() string {
	const max = 512
	b := k.stderr.Bytes()
	if len(b) > max {
		b = b[len(b)-max:]
	}
	if len(b) == 0 {
		return "no encoder output"
	}
	return string(bytes.TrimSpace(b))
}
