package render

import (
	"strings"
	"testing"

	"clipforge/internal/plan"
	"clipforge/internal/timeline"
)

func TestBlankFrame(t *testing.T) {
	w, h := 64, 32
	frame := blankFrame(w, h)

	if got, want := len(frame), frameBytes(w, h); got != want {
		t.Fatalf("blankFrame length = %d, want %d", got, want)
	}
	if got, want := len(frame), w*h*3/2; got != want {
		t.Fatalf("frameBytes = %d, want %d", got, want)
	}
	for i := 0; i < w*h; i++ {
		if frame[i] != 16 {
			t.Fatalf("luma byte %d = %d, want 16", i, frame[i])
		}
	}
	for i := w * h; i < len(frame); i++ {
		if frame[i] != 128 {
			t.Fatalf("chroma byte %d = %d, want 128", i, frame[i])
		}
	}
}

func TestEncodeArgs(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Settings)
		codec   string
		want    []string
		notWant []string
	}{
		{
			name:  "nvenc bitrate mode",
			codec: "hevc_nvenc",
			want:  []string{"-c:v hevc_nvenc", "-preset p7", "-rc cbr", "-b:v 20000k"},
		},
		{
			name: "nvenc quality mode",
			mutate: func(s *Settings) {
				s.RateControl = RateQuality
				s.Quality = 23
			},
			codec: "hevc_nvenc",
			want:  []string{"-rc vbr", "-cq 23", "-b:v 0"},
		},
		{
			name: "software quality mode",
			mutate: func(s *Settings) {
				s.RateControl = RateQuality
				s.Quality = 18
				s.Threads = 4
			},
			codec:   "libx264",
			want:    []string{"-c:v libx264", "-preset fast", "-crf 18", "-threads 4"},
			notWant: []string{"-rc", "-cq"},
		},
		{
			name:    "software bitrate mode",
			codec:   "libx265",
			want:    []string{"-c:v libx265", "-b:v 20000k"},
			notWant: []string{"-preset p7"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := DefaultSettings()
			if tt.mutate != nil {
				tt.mutate(&s)
			}
			got := strings.Join(encodeArgs(&s, tt.codec, 1920, 1080, "/tmp/out.temp.mov"), " ")

			for _, w := range tt.want {
				if !strings.Contains(got, w) {
					t.Errorf("args missing %q:\n%s", w, got)
				}
			}
			for _, w := range tt.notWant {
				if strings.Contains(got, w) {
					t.Errorf("args should not contain %q:\n%s", w, got)
				}
			}
			if !strings.Contains(got, "-s 1920x1080") {
				t.Errorf("args missing frame size:\n%s", got)
			}
			if !strings.Contains(got, "-f rawvideo -pix_fmt yuv420p") {
				t.Errorf("args missing rawvideo input:\n%s", got)
			}
		})
	}
}

func TestDecodeArgs(t *testing.T) {
	clip := timeline.Clip{Source: "/media/a.mp4", Start: 10, In: 2, Out: 7}
	seg := plan.Segment{
		Type:       plan.SegmentClip,
		Clip:       &clip,
		StartFrame: 600,
		Frames:     150,
		StartTime:  10,
	}

	t.Run("hardware", func(t *testing.T) {
		s := DefaultSettings()
		s.HardwareDecode = true
		got := strings.Join(decodeArgs(&s, &seg, 1280, 720), " ")

		for _, w := range []string{
			"-hwaccel cuda",
			"-hwaccel_output_format cuda",
			"scale_cuda=1280:720,hwdownload,format=nv12,fps=60,format=yuv420p",
			"-ss 2",
			"-vframes 150",
		} {
			if !strings.Contains(got, w) {
				t.Errorf("args missing %q:\n%s", w, got)
			}
		}
	})

	t.Run("software", func(t *testing.T) {
		s := DefaultSettings()
		s.HardwareDecode = false
		s.ScaleFilter = ScaleLanczos
		got := strings.Join(decodeArgs(&s, &seg, 1280, 720), " ")

		if !strings.Contains(got, "scale=1280:720:flags=lanczos,fps=60,format=yuv420p") {
			t.Errorf("args missing software scale chain:\n%s", got)
		}
		if strings.Contains(got, "hwaccel") {
			t.Errorf("software decode must not reference hwaccel:\n%s", got)
		}
	})

	t.Run("mid-clip seek", func(t *testing.T) {
		// Segment starting 3s into the clip seeks to In + 3.
		mid := seg
		mid.StartTime = 13
		s := DefaultSettings()
		got := strings.Join(decodeArgs(&s, &mid, 1280, 720), " ")
		if !strings.Contains(got, "-ss 5") {
			t.Errorf("args missing advanced seek:\n%s", got)
		}
	})
}

func TestAudioEncodeArgs(t *testing.T) {
	s := DefaultSettings()
	got := strings.Join(audioEncodeArgs(&s, "/tmp/out.temp.wav"), " ")
	for _, w := range []string{"-f s16le", "-ar 48000", "-ac 2", "-c:a pcm_s16le"} {
		if !strings.Contains(got, w) {
			t.Errorf("args missing %q:\n%s", w, got)
		}
	}
	if strings.Contains(got, "-b:a") {
		t.Errorf("pcm output should not carry an audio bitrate:\n%s", got)
	}

	s.AudioCodec = "aac"
	got = strings.Join(audioEncodeArgs(&s, "/tmp/out.temp.m4a"), " ")
	if !strings.Contains(got, "-c:a aac -b:a 320k") {
		t.Errorf("aac args missing bitrate:\n%s", got)
	}
}

func TestMuxArgs(t *testing.T) {
	tests := []struct {
		name  string
		audio string
		out   string
		wants []string
	}{
		{
			// MP4 cannot carry a raw PCM track, so the WAV intermediate
			// is re-encoded on the way in.
			name:  "pcm into mp4 re-encodes audio",
			audio: "/t/a.temp.wav",
			out:   "/out/final.mp4",
			wants: []string{"-c:v copy", "-c:a aac", "-b:a 320k"},
		},
		{
			name:  "pcm into mov stream-copies",
			audio: "/t/a.temp.wav",
			out:   "/out/final.mov",
			wants: []string{"-c:v copy", "-c:a copy"},
		},
		{
			name:  "aac into mp4 stream-copies",
			audio: "/t/a.temp.m4a",
			out:   "/out/final.mp4",
			wants: []string{"-c:v copy", "-c:a copy"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := strings.Join(muxArgs("/t/v.temp.mov", tt.audio, tt.out), " ")
			for _, w := range append(tt.wants,
				"-i /t/v.temp.mov",
				"-i "+tt.audio,
				"-shortest",
				"-movflags +faststart",
			) {
				if !strings.Contains(got, w) {
					t.Errorf("args missing %q:\n%s", w, got)
				}
			}
			if !strings.HasSuffix(got, tt.out) {
				t.Errorf("destination must be the last argument:\n%s", got)
			}
		})
	}
}

func TestFFNum(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{60, "60"},
		{29.97, "29.97"},
		{2.5, "2.5"},
	}
	for _, tt := range tests {
		if got := ffNum(tt.in); got != tt.want {
			t.Errorf("ffNum(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
