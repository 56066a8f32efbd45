package render

import (
	"fmt"
	"strings"

	"clipforge/internal/workers"
)

// RateControl selects how encoder quality is specified.
type RateControl string

const (
	// RateBitrate targets a constant bitrate in Mbps.
	RateBitrate RateControl = "bitrate"
	// RateQuality targets a constant quality index (CQ on NVENC, CRF on
	// software encoders). Lower is better.
	RateQuality RateControl = "quality"
)

// ScaleFilter names the software scaling algorithm passed to the decoder's
// scale filter.
type ScaleFilter string

const (
	ScaleBilinear ScaleFilter = "bilinear"
	ScaleBicubic  ScaleFilter = "bicubic"
	ScaleLanczos  ScaleFilter = "lanczos"
	ScaleSpline   ScaleFilter = "spline"
)

// Settings holds everything the engine needs to know about the target
// output. Zero Width/Height means "match the first source clip".
type Settings struct {
	FPS    float64 `json:"fps"`
	Width  int     `json:"width"`
	Height int     `json:"height"`

	VideoCodec  string      `json:"video_codec"` // hevc_nvenc, h264_nvenc, libx265, libx264
	RateControl RateControl `json:"rate_control"`
	BitrateMbps int         `json:"bitrate_mbps"` // bitrate mode
	Quality     int         `json:"quality"`      // quality mode (CQ/CRF)

	AudioCodec string `json:"audio_codec"` // pcm_s16le, pcm_s24le, aac
	SampleRate int    `json:"sample_rate"`
	Channels   int    `json:"channels"`

	HardwareDecode bool        `json:"hardware_decode"`
	ScaleFilter    ScaleFilter `json:"scale_filter"`
	Threads        int         `json:"threads"` // software encode threads, 0 = auto
}

// DefaultSettings mirrors the defaults the editor ships with.
func DefaultSettings() Settings {
	return Settings{
		FPS:            60,
		VideoCodec:     "hevc_nvenc",
		RateControl:    RateBitrate,
		BitrateMbps:    20,
		Quality:        18,
		AudioCodec:     "pcm_s16le",
		SampleRate:     48000,
		Channels:       2,
		HardwareDecode: true,
		ScaleFilter:    ScaleBicubic,
	}
}

var validVideoCodecs = map[string]bool{
	"hevc_nvenc": true,
	"h264_nvenc": true,
	"libx265":    true,
	"libx264":    true,
}

var validAudioCodecs = map[string]bool{
	"pcm_s16le": true,
	"pcm_s24le": true,
	"aac":       true,
}

var validScaleFilters = map[ScaleFilter]bool{
	ScaleBilinear: true,
	ScaleBicubic:  true,
	ScaleLanczos:  true,
	ScaleSpline:   true,
}

// Validate rejects settings the engine cannot honor. It normalizes nothing;
// the caller decides defaults.
func (s *Settings) Validate() error {
	if s.FPS <= 0 || s.FPS > 240 {
		return fmt.Errorf("invalid fps %v", s.FPS)
	}
	if !validVideoCodecs[s.VideoCodec] {
		return fmt.Errorf("unsupported video codec %q", s.VideoCodec)
	}
	if !validAudioCodecs[s.AudioCodec] {
		return fmt.Errorf("unsupported audio codec %q", s.AudioCodec)
	}
	if s.ScaleFilter != "" && !validScaleFilters[s.ScaleFilter] {
		return fmt.Errorf("unsupported scale filter %q", s.ScaleFilter)
	}
	switch s.RateControl {
	case RateBitrate:
		if s.BitrateMbps < 1 || s.BitrateMbps > 500 {
			return fmt.Errorf("bitrate %d Mbps out of range", s.BitrateMbps)
		}
	case RateQuality:
		if s.Quality < 0 || s.Quality > 51 {
			return fmt.Errorf("quality %d out of range", s.Quality)
		}
	default:
		return fmt.Errorf("unknown rate control %q", s.RateControl)
	}
	if (s.Width == 0) != (s.Height == 0) {
		return fmt.Errorf("resolution %dx%d: set both dimensions or neither", s.Width, s.Height)
	}
	if s.Width < 0 || s.Height < 0 {
		return fmt.Errorf("negative resolution %dx%d", s.Width, s.Height)
	}
	return nil
}

// HardwareEncode reports whether the configured video codec runs on the GPU.
func (s *Settings) HardwareEncode() bool {
	return strings.Contains(s.VideoCodec, "nvenc")
}

// SoftwareFallbackCodec maps a hardware codec to its software equivalent.
// Software codecs map to themselves.
func (s *Settings) SoftwareFallbackCodec() string {
	switch s.VideoCodec {
	case "hevc_nvenc":
		return "libx265"
	case "h264_nvenc":
		return "libx264"
	default:
		return s.VideoCodec
	}
}

// EncodeThreads resolves the software-encode thread count, sizing to the
// available CPUs when unset.
func (s *Settings) EncodeThreads() int {
	if s.Threads > 0 {
		return s.Threads
	}
	return workers.ForCPU(0)
}

// scaleFlags returns the ffmpeg scale filter flags value, defaulting to
// bicubic when unset.
func (s *Settings) scaleFlags() string {
	if s.ScaleFilter == "" {
		return string(ScaleBicubic)
	}
	return string(s.ScaleFilter)
}
