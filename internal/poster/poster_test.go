package poster

import "testing"

func TestNewGeneratorDefaults(t *testing.T) {
	g := NewGenerator("", 0)
	if g.ffmpeg != "ffmpeg" {
		t.Errorf("ffmpeg = %q, want PATH default", g.ffmpeg)
	}
	if g.width != DefaultWidth {
		t.Errorf("width = %d, want %d", g.width, DefaultWidth)
	}

	g = NewGenerator("/opt/ffmpeg/bin/ffmpeg", 320)
	if g.ffmpeg != "/opt/ffmpeg/bin/ffmpeg" || g.width != 320 {
		t.Errorf("generator = %+v", g)
	}
}

func TestExtractFrameMissingFile(t *testing.T) {
	g := NewGenerator("", 0)
	if _, err := g.extractFrame("/nonexistent/video.mp4", 1); err == nil {
		t.Skip("ffmpeg unexpectedly succeeded; binary may be absent or permissive")
	}
}
