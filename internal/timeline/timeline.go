// Package timeline holds the editing timeline model consumed by the export
// engine: source clips, tracks, placed clips, and the segment plan derived
// from them. Values are passed into an export call and never mutated by it.
package timeline

import "time"

// VideoClip is an imported source media reference, owned by the media
// library. Immutable once imported.
type VideoClip struct {
	ID       string
	Path     string
	Duration time.Duration
	Width    int
	Height   int
	FPS      float64
}

// Timeline is the full clip arrangement for one export call.
// Track index 0 is the base track; all others are overlay tracks.
type Timeline struct {
	Duration time.Duration
	Tracks   []Track
}

// Track is an ordered list of non-overlapping clips. Overlay holds placement
// for overlay tracks and is ignored on the base track.
type Track struct {
	ID      string
	Muted   bool
	Volume  float64
	Overlay *OverlayPosition
	Clips   []Clip
}

// OverlayPosition places an overlay track's video on the canvas.
// CenterX/CenterY are fractions of canvas width/height, Scale is the
// fraction of canvas width the overlay occupies. Height follows from the
// overlay source's aspect ratio.
type OverlayPosition struct {
	CenterX float64
	CenterY float64
	Scale   float64
}

// Clip is one placed clip: timeline interval [Start, End) playing the
// source window [TrimStart, TrimEnd). SourceDuration is the un-trimmed
// source length, kept to tell whether the clip has been trimmed.
type Clip struct {
	ID             string
	SourceID       string
	Start          time.Duration
	End            time.Duration
	TrimStart      time.Duration
	TrimEnd        time.Duration
	SourceDuration time.Duration
}

// PlacedDuration returns the clip's length on the timeline.
func (c Clip) PlacedDuration() time.Duration {
	return c.End - c.Start
}

// Trimmed reports whether the clip plays less than its full source.
func (c Clip) Trimmed() bool {
	return c.TrimEnd-c.TrimStart != c.SourceDuration
}

// EffectiveVolume is the track volume with the mute flag applied.
func (t Track) EffectiveVolume() float64 {
	if t.Muted {
		return 0
	}
	return t.Volume
}

// CompositionDuration is the export length: the max end time across
// base-track clips. Overlay clips never extend it.
func (tl Timeline) CompositionDuration() time.Duration {
	if len(tl.Tracks) == 0 {
		return 0
	}
	var max time.Duration
	for _, c := range tl.Tracks[0].Clips {
		if c.End > max {
			max = c.End
		}
	}
	return max
}

// ClipCount returns the total number of placed clips across all tracks.
func (tl Timeline) ClipCount() int {
	n := 0
	for _, t := range tl.Tracks {
		n += len(t.Clips)
	}
	return n
}

// Library resolves source IDs referenced by timeline clips.
type Library struct {
	clips map[string]VideoClip
}

// NewLibrary indexes the resolved source clip set by ID.
func NewLibrary(clips []VideoClip) *Library {
	m := make(map[string]VideoClip, len(clips))
	for _, c := range clips {
		m[c.ID] = c
	}
	return &Library{clips: m}
}

// Get retrieves a source clip by ID.
func (l *Library) Get(id string) (VideoClip, bool) {
	c, ok := l.clips[id]
	return c, ok
}
