// Package project reads YAML project files describing a timeline and its
// export settings, and resolves them into the engine's model.
package project

import (
	"context"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/keagan/clipstitch/internal/export"
	"github.com/keagan/clipstitch/internal/ffmpeg"
	"github.com/keagan/clipstitch/internal/timeline"
)

// Prober fills in source metadata the project file does not carry.
type Prober interface {
	Probe(ctx context.Context, path string) (*ffmpeg.MediaInfo, error)
}

// File is the parsed project document. Times are fractional seconds.
type File struct {
	Output   string       `yaml:"output"`
	Settings SettingsSpec `yaml:"settings"`
	Sources  []SourceSpec `yaml:"sources"`
	Tracks   []TrackSpec  `yaml:"tracks"`
}

// SettingsSpec mirrors export.Settings in YAML form.
type SettingsSpec struct {
	Width        int     `yaml:"width"`
	Height       int     `yaml:"height"`
	Quality      string  `yaml:"quality"`
	FPS          float64 `yaml:"fps"`
	VideoBitrate string  `yaml:"video_bitrate"`
	AudioBitrate string  `yaml:"audio_bitrate"`
	Format       string  `yaml:"format"`
}

// SourceSpec names one media file used by the timeline.
type SourceSpec struct {
	ID   string `yaml:"id"`
	Path string `yaml:"path"`
}

// TrackSpec is one track; the first listed track is the base track.
type TrackSpec struct {
	ID      string       `yaml:"id"`
	Muted   bool         `yaml:"muted"`
	Volume  *float64     `yaml:"volume"`
	Overlay *OverlaySpec `yaml:"overlay"`
	Clips   []ClipSpec   `yaml:"clips"`
}

// OverlaySpec positions an overlay track on the canvas.
type OverlaySpec struct {
	CenterX float64 `yaml:"center_x"`
	CenterY float64 `yaml:"center_y"`
	Scale   float64 `yaml:"scale"`
}

// ClipSpec places a window of a source on the timeline. TrimEnd of zero
// means the full source; End of zero means Start plus the trim window.
type ClipSpec struct {
	ID        string  `yaml:"id"`
	Source    string  `yaml:"source"`
	Start     float64 `yaml:"start"`
	End       float64 `yaml:"end"`
	TrimStart float64 `yaml:"trim_start"`
	TrimEnd   float64 `yaml:"trim_end"`
}

// Load parses a project file.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read project file: %w", err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse project file: %w", err)
	}

	if len(f.Sources) == 0 {
		return nil, fmt.Errorf("project has no sources")
	}
	if len(f.Tracks) == 0 {
		return nil, fmt.Errorf("project has no tracks")
	}

	return &f, nil
}

// Build probes every source and resolves the document into the timeline
// model plus export settings.
func (f *File) Build(ctx context.Context) (timeline.Timeline, []timeline.VideoClip, export.Settings, error) {
	return f.build(ctx, nil)
}

// BuildWithProber is Build with source metadata supplied by the prober.
func (f *File) BuildWithProber(ctx context.Context, prober Prober) (timeline.Timeline, []timeline.VideoClip, export.Settings, error) {
	return f.build(ctx, prober)
}

func (f *File) build(ctx context.Context, prober Prober) (timeline.Timeline, []timeline.VideoClip, export.Settings, error) {
	var tl timeline.Timeline

	sources := make([]timeline.VideoClip, 0, len(f.Sources))
	byID := make(map[string]timeline.VideoClip, len(f.Sources))
	for _, s := range f.Sources {
		if s.ID == "" || s.Path == "" {
			return tl, nil, export.Settings{}, fmt.Errorf("source needs both id and path")
		}
		clip := timeline.VideoClip{ID: s.ID, Path: s.Path}
		if prober != nil {
			info, err := prober.Probe(ctx, s.Path)
			if err != nil {
				return tl, nil, export.Settings{}, fmt.Errorf("failed to probe source %q: %w", s.ID, err)
			}
			clip.Duration = info.Duration
			clip.Width = info.Width
			clip.Height = info.Height
			clip.FPS = info.FPS
		}
		if _, dup := byID[s.ID]; dup {
			return tl, nil, export.Settings{}, fmt.Errorf("duplicate source id %q", s.ID)
		}
		byID[s.ID] = clip
		sources = append(sources, clip)
	}

	tl.Tracks = make([]timeline.Track, 0, len(f.Tracks))
	for ti, ts := range f.Tracks {
		track := timeline.Track{
			ID:     ts.ID,
			Muted:  ts.Muted,
			Volume: 1,
		}
		if track.ID == "" {
			track.ID = fmt.Sprintf("track-%d", ti)
		}
		if ts.Volume != nil {
			track.Volume = *ts.Volume
		}
		if ts.Overlay != nil {
			track.Overlay = &timeline.OverlayPosition{
				CenterX: ts.Overlay.CenterX,
				CenterY: ts.Overlay.CenterY,
				Scale:   ts.Overlay.Scale,
			}
		}

		for ci, cs := range ts.Clips {
			src, ok := byID[cs.Source]
			if !ok {
				return tl, nil, export.Settings{}, fmt.Errorf("clip %q references unknown source %q", cs.ID, cs.Source)
			}

			clip := timeline.Clip{
				ID:             cs.ID,
				SourceID:       cs.Source,
				Start:          secondsToDuration(cs.Start),
				TrimStart:      secondsToDuration(cs.TrimStart),
				TrimEnd:        secondsToDuration(cs.TrimEnd),
				SourceDuration: src.Duration,
			}
			if clip.ID == "" {
				clip.ID = fmt.Sprintf("%s-clip-%d", track.ID, ci)
			}
			if clip.TrimEnd == 0 {
				clip.TrimEnd = src.Duration
			}
			if cs.End > 0 {
				clip.End = secondsToDuration(cs.End)
			} else {
				clip.End = clip.Start + (clip.TrimEnd - clip.TrimStart)
			}
			track.Clips = append(track.Clips, clip)
		}

		tl.Tracks = append(tl.Tracks, track)
	}

	tl.Duration = tl.CompositionDuration()

	settings := export.Settings{
		Width:        f.Settings.Width,
		Height:       f.Settings.Height,
		Quality:      export.Quality(f.Settings.Quality),
		FPS:          f.Settings.FPS,
		VideoBitrate: f.Settings.VideoBitrate,
		AudioBitrate: f.Settings.AudioBitrate,
		Format:       f.Settings.Format,
	}

	return tl, sources, settings, nil
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
