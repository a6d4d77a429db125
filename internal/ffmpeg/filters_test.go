package ffmpeg

import "testing"

func TestFilterBuilderScalePad(t *testing.T) {
	got := NewFilterBuilder().ScalePad(1920, 1080).FPS(30).Build()
	want := "scale=1920:1080:force_original_aspect_ratio=decrease," +
		"pad=1920:1080:(ow-iw)/2:(oh-ih)/2,fps=30"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestFilterBuilderSkipsInvalidDimensions(t *testing.T) {
	if got := NewFilterBuilder().ScalePad(0, 1080).Scale(-1, -1).FPS(0).Build(); got != "" {
		t.Errorf("got %q, want empty chain", got)
	}
}

func TestFilterBuilderVolume(t *testing.T) {
	if got := NewFilterBuilder().Volume(0.5).Build(); got != "volume=0.500" {
		t.Errorf("got %q", got)
	}
}

func TestGraphChains(t *testing.T) {
	g := NewGraph().
		Chain("[1:v]scale=%d:%d[ovr]", 480, 270).
		Chain("[0:v][ovr]overlay=%d:%d[vout]", 720, 405)
	want := "[1:v]scale=480:270[ovr];[0:v][ovr]overlay=720:405[vout]"
	if got := g.String(); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
