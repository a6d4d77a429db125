package export

import (
	"strings"
	"testing"
)

func TestQualityMapping(t *testing.T) {
	tests := []struct {
		q      Quality
		preset string
		crf    int
	}{
		{QualityDraft, "ultrafast", 28},
		{QualityStandard, "medium", 23},
		{QualityHigh, "slow", 18},
		{Quality("unknown"), "medium", 23},
	}

	for _, tt := range tests {
		if got := tt.q.Preset(); got != tt.preset {
			t.Errorf("%s.Preset() = %q, want %q", tt.q, got, tt.preset)
		}
		if got := tt.q.CRF(); got != tt.crf {
			t.Errorf("%s.CRF() = %d, want %d", tt.q, got, tt.crf)
		}
	}
}

func TestSettingsDefaults(t *testing.T) {
	s := Settings{}.withDefaults()

	if s.Quality != QualityStandard {
		t.Errorf("Quality = %q, want standard", s.Quality)
	}
	if s.FPS != 30 {
		t.Errorf("FPS = %v, want 30", s.FPS)
	}
	if s.AudioBitrate == "" || s.Format != "mp4" {
		t.Errorf("defaults incomplete: %+v", s)
	}
}

func TestEncodeArgsKeyframeInterval(t *testing.T) {
	s := Settings{FPS: 30}.withDefaults()
	args := strings.Join(s.encodeArgs(), " ")

	if !strings.Contains(args, "-g 60") {
		t.Errorf("keyframe interval should be 2x fps:\n%s", args)
	}
	if !strings.Contains(args, "-sc_threshold 0") {
		t.Errorf("scene-cut keyframes break concat alignment:\n%s", args)
	}
	if !strings.Contains(args, "-pix_fmt yuv420p") {
		t.Errorf("pixel format must be uniform:\n%s", args)
	}
	if !strings.Contains(args, "-r 30") {
		t.Errorf("constant frame rate missing:\n%s", args)
	}
}

func TestEncodeArgsBitrateOverridesCRF(t *testing.T) {
	s := Settings{VideoBitrate: "8M"}.withDefaults()
	args := strings.Join(s.encodeArgs(), " ")

	if !strings.Contains(args, "-b:v 8M") {
		t.Errorf("explicit bitrate missing:\n%s", args)
	}
	if strings.Contains(args, "-crf") {
		t.Errorf("bitrate and CRF are mutually exclusive:\n%s", args)
	}
}

func TestEvenDim(t *testing.T) {
	tests := []struct{ in, want int }{
		{1920, 1920},
		{1921, 1920},
		{0, 2},
		{1, 2},
		{-4, 2},
	}

	for _, tt := range tests {
		if got := evenDim(tt.in); got != tt.want {
			t.Errorf("evenDim(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
