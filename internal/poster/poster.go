// Package poster extracts a representative still from a rendered export and
// downsizes it to a JPEG poster, so job listings can show what was produced
// without touching the full video.
package poster

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"os"
	"os/exec"
	"strconv"

	"github.com/disintegration/imaging"

	"clipforge/internal/logging"

	_ "image/png" // decoder for the ffmpeg image2pipe output
)

// DefaultWidth bounds the poster's longer dimension.
const DefaultWidth = 640

// Generator extracts posters with a configurable ffmpeg binary.
type Generator struct {
	ffmpeg string
	width  int
}

// NewGenerator builds a poster generator. Empty ffmpeg means "ffmpeg" on
// PATH; width <= 0 uses DefaultWidth.
func NewGenerator(ffmpeg string, width int) *Generator {
	if ffmpeg == "" {
		ffmpeg = "ffmpeg"
	}
	if width <= 0 {
		width = DefaultWidth
	}
	return &Generator{ffmpeg: ffmpeg, width: width}
}

// Generate extracts a frame from videoPath at the given offset, fits it
// within the configured width, and writes it as JPEG to posterPath.
func (g *Generator) Generate(videoPath, posterPath string, offsetSeconds float64) error {
	frame, err := g.extractFrame(videoPath, offsetSeconds)
	if err != nil {
		return err
	}

	thumb := imaging.Fit(frame, g.width, g.width, imaging.Lanczos)

	f, err := os.Create(posterPath)
	if err != nil {
		return fmt.Errorf("creating poster: %w", err)
	}
	defer f.Close()

	if err := jpeg.Encode(f, thumb, &jpeg.Options{Quality: 85}); err != nil {
		return fmt.Errorf("encoding poster: %w", err)
	}
	logging.Debug("Poster written: %s (%dx%d source)", posterPath,
		frame.Bounds().Dx(), frame.Bounds().Dy())
	return nil
}

// extractFrame decodes one frame via ffmpeg's image2pipe output.
func (g *Generator) extractFrame(videoPath string, offsetSeconds float64) (image.Image, error) {
	if offsetSeconds < 0 {
		offsetSeconds = 0
	}
	cmd := exec.Command(g.ffmpeg,
		"-hide_banner", "-loglevel", "error",
		"-ss", strconv.FormatFloat(offsetSeconds, 'f', -1, 64),
		"-i", videoPath,
		"-vframes", "1",
		"-f", "image2pipe",
		"-vcodec", "png",
		"-",
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffmpeg frame extraction failed: %v, stderr: %s",
			err, stderr.String())
	}
	if stdout.Len() == 0 {
		return nil, fmt.Errorf("ffmpeg produced no frame for %s", videoPath)
	}

	img, _, err := image.Decode(&stdout)
	if err != nil {
		return nil, fmt.Errorf("decoding extracted frame: %w", err)
	}
	return img, nil
}
