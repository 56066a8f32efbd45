package probe

import "testing"

const sampleJSON = `{
	"streams": [
		{
			"codec_name": "mjpeg",
			"codec_type": "video",
			"width": 600,
			"height": 600,
			"disposition": {"attached_pic": 1}
		},
		{
			"codec_name": "h264",
			"codec_type": "video",
			"width": 1920,
			"height": 1080,
			"disposition": {"attached_pic": 0}
		},
		{
			"codec_name": "aac",
			"codec_type": "audio",
			"sample_rate": "48000",
			"channels": 2
		}
	],
	"format": {"duration": "62.517000"}
}`

func TestParseJSON(t *testing.T) {
	r, err := ParseJSON("in.mp4", []byte(sampleJSON))
	if err != nil {
		t.Fatalf("ParseJSON() error: %v", err)
	}

	if r.Duration != 62.517 {
		t.Errorf("Duration = %v, want 62.517", r.Duration)
	}
	if !r.HasVideo || r.VideoCodec != "h264" {
		t.Errorf("video = %v/%s, want h264 (cover art skipped)", r.HasVideo, r.VideoCodec)
	}
	if r.Width != 1920 || r.Height != 1080 {
		t.Errorf("dimensions = %dx%d, want 1920x1080", r.Width, r.Height)
	}
	if !r.HasAudio || r.AudioCodec != "aac" || r.SampleRate != 48000 || r.Channels != 2 {
		t.Errorf("audio = %+v, want aac 48000Hz stereo", r)
	}
}

func TestParseJSONNoStreams(t *testing.T) {
	r, err := ParseJSON("x.bin", []byte(`{"format":{"duration":"1.0"},"streams":[]}`))
	if err != nil {
		t.Fatalf("ParseJSON() error: %v", err)
	}
	if r.HasVideo || r.HasAudio {
		t.Errorf("ParseJSON() = %+v, want no streams", r)
	}
}

func TestParseJSONMalformed(t *testing.T) {
	if _, err := ParseJSON("x.mp4", []byte(`{"streams":`)); err == nil {
		t.Error("ParseJSON() with truncated JSON succeeded, want error")
	}
}
