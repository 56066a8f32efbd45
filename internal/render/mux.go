package render

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/kballard/go-shellquote"

	"clipforge/internal/logging"
)

// muxTimeout bounds the final merge. Stream copy is I/O bound; a mux that
// runs this long has hung.
const muxTimeout = 10 * time.Minute

// muxArgs builds the final merge: intermediates merged into the destination
// container, trimmed to the shorter of the two, with the moov atom relocated
// for progressive playback. Video is always stream-copied; audio is copied
// unless the container refuses the intermediate codec (MP4 will not carry a
// raw PCM track), in which case it is re-encoded to AAC.
func muxArgs(video, audio, out string) []string {
	args := []string{
		"-hide_banner", "-loglevel", "error", "-y",
		"-i", video,
		"-i", audio,
		"-c:v", "copy",
	}
	if pcmIntermediate(audio) && mp4Container(out) {
		args = append(args, "-c:a", "aac", "-b:a", "320k")
	} else {
		args = append(args, "-c:a", "copy")
	}
	return append(args,
		"-shortest",
		"-movflags", "+faststart",
		out,
	)
}

func pcmIntermediate(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".wav")
}

func mp4Container(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp4", ".m4v":
		return true
	}
	return false
}

// mux merges the video and audio intermediates into out. cancelled is
// polled while the muxer runs so a cancel kills it promptly.
func mux(ffmpeg, video, audio, out string, cancelled func() bool) error {
	args := muxArgs(video, audio, out)
	logging.Info("Muxer: %s %s", ffmpeg, shellquote.Join(args...))

	cmd := exec.Command(ffmpeg, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("%w: muxer: %v", ErrProcessStart, err)
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()
	deadline := time.After(muxTimeout)

	for {
		select {
		case err := <-done:
			if err != nil {
				removePartial(out)
				return fmt.Errorf("%w: muxer exit: %v (%s)", ErrStream, err,
					bytes.TrimSpace(stderr.Bytes()))
			}
			info, err := os.Stat(out)
			if err != nil {
				return fmt.Errorf("%w: %s: %v", ErrCorruptOutput, out, err)
			}
			if info.Size() < minOutputBytes {
				removePartial(out)
				return fmt.Errorf("%w: %s is only %d bytes", ErrCorruptOutput, out, info.Size())
			}
			return nil
		case <-ticker.C:
			if cancelled() {
				_ = cmd.Process.Kill()
				<-done
				removePartial(out)
				return ErrCancelled
			}
		case <-deadline:
			_ = cmd.Process.Kill()
			<-done
			removePartial(out)
			return fmt.Errorf("%w: muxer exceeded %s", ErrTimeout, muxTimeout)
		}
	}
}

// removePartial deletes the half-written destination a failed or aborted
// mux leaves behind.
func removePartial(out string) {
	if err := os.Remove(out); err != nil && !os.IsNotExist(err) {
		logging.Warn("Failed to remove partial output %s: %v", out, err)
	}
}
