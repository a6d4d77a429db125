package timeline

import (
	"sort"
	"time"
)

// Segment is a maximal interval [Start, End) during which the set of active
// clips per track is constant. Clips is indexed by track; a nil entry means
// the track shows nothing during the segment. Segments exist only for the
// duration of one export call.
type Segment struct {
	Start time.Duration
	End   time.Duration
	Clips []*Clip
}

// Duration returns the segment length.
func (s Segment) Duration() time.Duration {
	return s.End - s.Start
}

// ActiveCount returns how many tracks have a clip in this segment.
func (s Segment) ActiveCount() int {
	n := 0
	for _, c := range s.Clips {
		if c != nil {
			n++
		}
	}
	return n
}

// SoleClip returns the single active clip and its track index when exactly
// one track is active.
func (s Segment) SoleClip() (int, *Clip, bool) {
	if s.ActiveCount() != 1 {
		return 0, nil, false
	}
	for i, c := range s.Clips {
		if c != nil {
			return i, c, true
		}
	}
	return 0, nil, false
}

// Plan slices the timeline into an ordered, gap-free, non-overlapping
// segment sequence covering [0, CompositionDuration). Overlay clips are
// logically capped at the composition duration; overlay clips starting at
// or past it contribute nothing. Identical input yields an identical,
// order-stable plan.
func Plan(tl Timeline) []Segment {
	total := tl.CompositionDuration()
	if total == 0 {
		return nil
	}

	seen := map[time.Duration]struct{}{0: {}, total: {}}
	for i, track := range tl.Tracks {
		for _, clip := range track.Clips {
			start, end := clipWindow(clip, i, total)
			if start >= end {
				continue
			}
			seen[start] = struct{}{}
			seen[end] = struct{}{}
		}
	}

	bounds := make([]time.Duration, 0, len(seen))
	for b := range seen {
		if b >= 0 && b <= total {
			bounds = append(bounds, b)
		}
	}
	sort.Slice(bounds, func(i, j int) bool { return bounds[i] < bounds[j] })

	segments := make([]Segment, 0, len(bounds)-1)
	for bi := 0; bi < len(bounds)-1; bi++ {
		seg := Segment{
			Start: bounds[bi],
			End:   bounds[bi+1],
			Clips: make([]*Clip, len(tl.Tracks)),
		}
		for ti := range tl.Tracks {
			seg.Clips[ti] = activeClip(tl.Tracks[ti], ti, seg.Start, seg.End, total)
		}
		segments = append(segments, seg)
	}

	return segments
}

// clipWindow returns the clip's effective timeline interval: overlay-track
// clips are capped at the composition duration.
func clipWindow(c Clip, trackIndex int, total time.Duration) (time.Duration, time.Duration) {
	end := c.End
	if trackIndex > 0 && end > total {
		end = total
	}
	return c.Start, end
}

// activeClip finds the at most one clip on the track overlapping
// [segStart, segEnd). Linear scan is fine at editing-timeline clip counts.
func activeClip(track Track, trackIndex int, segStart, segEnd, total time.Duration) *Clip {
	for ci := range track.Clips {
		start, end := clipWindow(track.Clips[ci], trackIndex, total)
		if start < segEnd && end > segStart {
			return &track.Clips[ci]
		}
	}
	return nil
}
