package render

import (
	"fmt"
	"os"
	"path/filepath"

	"clipforge/internal/logging"
	"clipforge/internal/metrics"
)

// Free-space thresholds for intermediate placement. The destination volume
// is preferred when it has comfortable headroom (same-volume final copy is
// cheap); below the hard minimum even the temp fallback is refused and the
// render fails before any subprocess spawns.
const (
	DefaultPreferredFreeBytes uint64 = 15 << 30 // 15 GiB
	DefaultMinimumFreeBytes   uint64 = 10 << 30 // 10 GiB
)

// freeSpaceFunc reports the free bytes available to the process on the
// volume holding path. Injectable for tests.
type freeSpaceFunc func(path string) (uint64, error)

// scratch holds the working paths for one render's intermediates.
type scratch struct {
	dir   string
	video string
	audio string
}

// chooseScratchDir picks the directory for intermediates: the destination
// directory when it reports at least preferred bytes free, otherwise the
// platform temp area. Returns ErrInsufficientSpace when the fallback is
// below minimum.
func chooseScratchDir(destDir string, preferred, minimum uint64, free freeSpaceFunc) (string, error) {
	if destFree, err := free(destDir); err != nil {
		logging.Warn("Cannot stat free space on %s: %v", destDir, err)
	} else {
		metrics.ScratchFreeBytes.WithLabelValues("destination").Set(float64(destFree))
		if destFree >= preferred {
			return destDir, nil
		}
		logging.Info("Destination volume has %d MiB free (< %d MiB), using temp scratch",
			destFree>>20, preferred>>20)
	}

	tmp := os.TempDir()
	tmpFree, err := free(tmp)
	if err != nil {
		return "", fmt.Errorf("stat free space on %s: %w", tmp, err)
	}
	metrics.ScratchFreeBytes.WithLabelValues("temp").Set(float64(tmpFree))
	if tmpFree < minimum {
		return "", fmt.Errorf("%w: %d MiB free in %s, need %d MiB",
			ErrInsufficientSpace, tmpFree>>20, tmp, minimum>>20)
	}
	return tmp, nil
}

// newScratch resolves the intermediate file paths for a render to dest.
// Intermediate video is always QuickTime (the encoder's elementary stream
// wrapper); intermediate audio extension follows the audio codec.
func newScratch(dest string, audioCodec string, preferred, minimum uint64, free freeSpaceFunc) (*scratch, error) {
	dir, err := chooseScratchDir(filepath.Dir(dest), preferred, minimum, free)
	if err != nil {
		return nil, err
	}

	base := filepath.Base(dest)
	audioExt := ".wav"
	if audioCodec == "aac" {
		audioExt = ".m4a"
	}
	return &scratch{
		dir:   dir,
		video: filepath.Join(dir, base+".temp.mov"),
		audio: filepath.Join(dir, base+".temp"+audioExt),
	}, nil
}

// cleanup removes any intermediates that still exist. Safe to call on every
// exit path.
func (s *scratch) cleanup() {
	for _, p := range []string{s.video, s.audio} {
		if p == "" {
			continue
		}
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			logging.Warn("Failed to remove intermediate %s: %v", p, err)
		}
	}
}
