package render

import "testing"

func TestSettingsValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Settings)
		wantErr bool
	}{
		{name: "defaults", mutate: func(s *Settings) {}},
		{name: "explicit resolution", mutate: func(s *Settings) { s.Width, s.Height = 3840, 2160 }},
		{name: "quality mode", mutate: func(s *Settings) { s.RateControl = RateQuality; s.Quality = 0 }},
		{name: "zero fps", mutate: func(s *Settings) { s.FPS = 0 }, wantErr: true},
		{name: "absurd fps", mutate: func(s *Settings) { s.FPS = 1000 }, wantErr: true},
		{name: "unknown video codec", mutate: func(s *Settings) { s.VideoCodec = "mpeg2video" }, wantErr: true},
		{name: "unknown audio codec", mutate: func(s *Settings) { s.AudioCodec = "opus" }, wantErr: true},
		{name: "unknown scale filter", mutate: func(s *Settings) { s.ScaleFilter = "nearest" }, wantErr: true},
		{name: "zero bitrate", mutate: func(s *Settings) { s.BitrateMbps = 0 }, wantErr: true},
		{name: "quality out of range", mutate: func(s *Settings) { s.RateControl = RateQuality; s.Quality = 52 }, wantErr: true},
		{name: "unknown rate control", mutate: func(s *Settings) { s.RateControl = "vbr" }, wantErr: true},
		{name: "half resolution", mutate: func(s *Settings) { s.Width = 1920 }, wantErr: true},
		{name: "negative resolution", mutate: func(s *Settings) { s.Width, s.Height = -1, -1 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := DefaultSettings()
			tt.mutate(&s)
			err := s.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSoftwareFallbackCodec(t *testing.T) {
	tests := []struct {
		codec string
		want  string
	}{
		{"hevc_nvenc", "libx265"},
		{"h264_nvenc", "libx264"},
		{"libx265", "libx265"},
		{"libx264", "libx264"},
	}
	for _, tt := range tests {
		s := Settings{VideoCodec: tt.codec}
		if got := s.SoftwareFallbackCodec(); got != tt.want {
			t.Errorf("SoftwareFallbackCodec(%s) = %s, want %s", tt.codec, got, tt.want)
		}
	}
}

func TestHardwareEncode(t *testing.T) {
	for codec, want := range map[string]bool{
		"hevc_nvenc": true,
		"h264_nvenc": true,
		"libx265":    false,
		"libx264":    false,
	} {
		s := Settings{VideoCodec: codec}
		if got := s.HardwareEncode(); got != want {
			t.Errorf("HardwareEncode(%s) = %v, want %v", codec, got, want)
		}
	}
}
