package project

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/keagan/clipstitch/internal/export"
	"github.com/keagan/clipstitch/internal/ffmpeg"
)

// stubProber returns canned metadata keyed by path.
type stubProber struct {
	infos map[string]*ffmpeg.MediaInfo
}

func (s *stubProber) Probe(_ context.Context, path string) (*ffmpeg.MediaInfo, error) {
	if info, ok := s.infos[path]; ok {
		return info, nil
	}
	return &ffmpeg.MediaInfo{Path: path, Duration: 60 * time.Second, Width: 1920, Height: 1080, FPS: 30}, nil
}

func writeProject(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "project.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

const sampleProject = `
output: final.mp4
settings:
  width: 1920
  height: 1080
  quality: high
  fps: 30
sources:
  - id: screen
    path: /media/screen.mkv
  - id: webcam
    path: /media/webcam.mp4
tracks:
  - id: main
    clips:
      - id: intro
        source: screen
        start: 0
        end: 10
      - source: screen
        start: 10
        trim_start: 30
        trim_end: 45
  - id: cam
    volume: 0.8
    overlay:
      center_x: 0.85
      center_y: 0.85
      scale: 0.25
    clips:
      - source: webcam
        start: 2
        end: 8
`

func TestLoadAndBuild(t *testing.T) {
	path := writeProject(t, sampleProject)

	f, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if f.Output != "final.mp4" {
		t.Errorf("output = %q", f.Output)
	}

	tl, sources, settings, err := f.BuildWithProber(context.Background(), &stubProber{})
	if err != nil {
		t.Fatal(err)
	}

	if len(sources) != 2 {
		t.Fatalf("got %d sources, want 2", len(sources))
	}
	if sources[0].Duration != 60*time.Second {
		t.Errorf("probe metadata not applied: duration = %s", sources[0].Duration)
	}

	if len(tl.Tracks) != 2 {
		t.Fatalf("got %d tracks, want 2", len(tl.Tracks))
	}
	base := tl.Tracks[0]
	if base.Volume != 1 {
		t.Errorf("base volume = %v, want default 1", base.Volume)
	}
	if len(base.Clips) != 2 {
		t.Fatalf("base track has %d clips, want 2", len(base.Clips))
	}

	// Unset clip id is generated from the track.
	if got := base.Clips[1].ID; got != "main-clip-1" {
		t.Errorf("generated clip id = %q", got)
	}
	// Unset end derives from the trim window.
	second := base.Clips[1]
	if second.End != 25*time.Second {
		t.Errorf("derived end = %s, want 25s (start 10 + trim window 15)", second.End)
	}
	// Unset trim_end defaults to the full source.
	first := base.Clips[0]
	if first.TrimEnd != 60*time.Second {
		t.Errorf("default trim end = %s, want source duration", first.TrimEnd)
	}

	cam := tl.Tracks[1]
	if cam.Volume != 0.8 {
		t.Errorf("cam volume = %v", cam.Volume)
	}
	if cam.Overlay == nil || cam.Overlay.Scale != 0.25 {
		t.Errorf("overlay spec not carried: %+v", cam.Overlay)
	}

	if tl.Duration != 25*time.Second {
		t.Errorf("composition duration = %s, want 25s", tl.Duration)
	}

	if settings.Quality != export.QualityHigh || settings.Width != 1920 {
		t.Errorf("settings = %+v", settings)
	}
}

func TestLoadRejectsEmptySections(t *testing.T) {
	cases := []struct {
		name    string
		content string
		wantErr string
	}{
		{"no sources", "tracks:\n  - id: main\n", "no sources"},
		{"no tracks", "sources:\n  - id: a\n    path: /a.mp4\n", "no tracks"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeProject(t, tc.content)
			_, err := Load(path)
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("err = %v, want %q", err, tc.wantErr)
			}
		})
	}
}

func TestBuildRejectsUnknownSource(t *testing.T) {
	path := writeProject(t, `
sources:
  - id: screen
    path: /media/screen.mkv
tracks:
  - id: main
    clips:
      - source: ghost
        start: 0
        end: 5
`)
	f, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	_, _, _, err = f.BuildWithProber(context.Background(), &stubProber{})
	if err == nil || !strings.Contains(err.Error(), `unknown source "ghost"`) {
		t.Errorf("err = %v, want unknown source failure", err)
	}
}

func TestBuildRejectsDuplicateSourceID(t *testing.T) {
	path := writeProject(t, `
sources:
  - id: screen
    path: /media/a.mkv
  - id: screen
    path: /media/b.mkv
tracks:
  - id: main
    clips:
      - source: screen
        start: 0
        end: 5
`)
	f, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	_, _, _, err = f.BuildWithProber(context.Background(), &stubProber{})
	if err == nil || !strings.Contains(err.Error(), "duplicate source id") {
		t.Errorf("err = %v, want duplicate id failure", err)
	}
}
