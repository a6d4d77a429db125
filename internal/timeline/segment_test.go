package timeline

import (
	"reflect"
	"testing"
	"time"
)

func sec(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

func baseClip(id string, start, end float64) Clip {
	return Clip{
		ID:             id,
		SourceID:       "src-" + id,
		Start:          sec(start),
		End:            sec(end),
		TrimStart:      0,
		TrimEnd:        sec(end - start),
		SourceDuration: sec(end - start),
	}
}

func TestPlanPartitionsComposition(t *testing.T) {
	tl := Timeline{
		Tracks: []Track{
			{ID: "base", Volume: 1, Clips: []Clip{
				baseClip("a", 0, 4),
				baseClip("b", 4, 10),
			}},
			{ID: "cam", Volume: 1, Clips: []Clip{
				baseClip("c", 2, 6),
			}},
		},
	}

	segs := Plan(tl)
	if len(segs) == 0 {
		t.Fatal("expected segments")
	}

	if segs[0].Start != 0 {
		t.Errorf("first segment starts at %s, want 0", segs[0].Start)
	}
	if got, want := segs[len(segs)-1].End, sec(10); got != want {
		t.Errorf("last segment ends at %s, want %s", got, want)
	}

	for i := 1; i < len(segs); i++ {
		if segs[i].Start != segs[i-1].End {
			t.Errorf("segment %d starts at %s but previous ends at %s", i, segs[i].Start, segs[i-1].End)
		}
	}

	for i, s := range segs {
		if s.Start >= s.End {
			t.Errorf("segment %d has non-positive duration [%s, %s)", i, s.Start, s.End)
		}
	}

	// Boundaries come from clip edges: 0, 2, 4, 6, 10.
	if len(segs) != 4 {
		t.Fatalf("got %d segments, want 4", len(segs))
	}
}

func TestPlanActiveClips(t *testing.T) {
	tl := Timeline{
		Tracks: []Track{
			{ID: "base", Volume: 1, Clips: []Clip{baseClip("a", 0, 10)}},
			{ID: "cam", Volume: 1, Clips: []Clip{baseClip("c", 2, 4)}},
		},
	}

	segs := Plan(tl)
	if len(segs) != 3 {
		t.Fatalf("got %d segments, want 3", len(segs))
	}

	for i, seg := range segs {
		if seg.Clips[0] == nil || seg.Clips[0].ID != "a" {
			t.Errorf("segment %d missing base clip", i)
		}
	}

	if segs[0].Clips[1] != nil {
		t.Error("overlay active before its start time")
	}
	if segs[1].Clips[1] == nil || segs[1].Clips[1].ID != "c" {
		t.Error("overlay not active during [2,4)")
	}
	if segs[2].Clips[1] != nil {
		t.Error("overlay active after its end time")
	}
}

func TestPlanGapBeforeFirstClip(t *testing.T) {
	tl := Timeline{
		Tracks: []Track{
			{ID: "base", Volume: 1, Clips: []Clip{baseClip("a", 5, 10)}},
		},
	}

	segs := Plan(tl)
	if len(segs) != 2 {
		t.Fatalf("got %d segments, want 2", len(segs))
	}

	if segs[0].Start != 0 || segs[0].End != sec(5) {
		t.Errorf("gap segment is [%s, %s), want [0s, 5s)", segs[0].Start, segs[0].End)
	}
	if segs[0].ActiveCount() != 0 {
		t.Error("gap segment should have no active clips")
	}
	if segs[1].ActiveCount() != 1 {
		t.Error("clip segment should have one active clip")
	}
}

func TestPlanOverlayCappedAtCompositionDuration(t *testing.T) {
	tl := Timeline{
		Tracks: []Track{
			{ID: "base", Volume: 1, Clips: []Clip{baseClip("a", 0, 5)}},
			{ID: "cam", Volume: 1, Clips: []Clip{baseClip("c", 3, 12)}},
		},
	}

	segs := Plan(tl)
	if got, want := segs[len(segs)-1].End, sec(5); got != want {
		t.Fatalf("composition runs to %s, want %s", got, want)
	}

	last := segs[len(segs)-1]
	if last.Clips[1] == nil {
		t.Error("truncated overlay should still be active up to the composition end")
	}
}

func TestPlanOverlayBeyondCompositionIgnored(t *testing.T) {
	tl := Timeline{
		Tracks: []Track{
			{ID: "base", Volume: 1, Clips: []Clip{baseClip("a", 0, 5)}},
			{ID: "cam", Volume: 1, Clips: []Clip{baseClip("c", 7, 9)}},
		},
	}

	segs := Plan(tl)
	if len(segs) != 1 {
		t.Fatalf("got %d segments, want 1", len(segs))
	}
	if segs[0].Clips[1] != nil {
		t.Error("overlay starting past the composition end must not be active")
	}
}

func TestPlanDeterministic(t *testing.T) {
	tl := Timeline{
		Tracks: []Track{
			{ID: "base", Volume: 1, Clips: []Clip{baseClip("a", 0, 4), baseClip("b", 6, 9)}},
			{ID: "cam", Volume: 1, Clips: []Clip{baseClip("c", 1, 7)}},
			{ID: "cam2", Volume: 1, Clips: []Clip{baseClip("d", 2, 3)}},
		},
	}

	first := Plan(tl)
	second := Plan(tl)
	if !reflect.DeepEqual(first, second) {
		t.Error("plans for identical input differ")
	}
}

func TestPlanEmptyBaseTrack(t *testing.T) {
	tl := Timeline{
		Tracks: []Track{
			{ID: "base", Volume: 1},
			{ID: "cam", Volume: 1, Clips: []Clip{baseClip("c", 0, 5)}},
		},
	}

	if segs := Plan(tl); segs != nil {
		t.Errorf("expected no plan without base clips, got %d segments", len(segs))
	}
}

func TestSegmentSoleClip(t *testing.T) {
	clip := baseClip("a", 0, 2)
	seg := Segment{Start: 0, End: sec(2), Clips: []*Clip{&clip, nil}}

	ti, got, ok := seg.SoleClip()
	if !ok || ti != 0 || got.ID != "a" {
		t.Errorf("SoleClip = (%d, %v, %v), want (0, a, true)", ti, got, ok)
	}

	other := baseClip("b", 0, 2)
	seg.Clips[1] = &other
	if _, _, ok := seg.SoleClip(); ok {
		t.Error("SoleClip should report false with two active tracks")
	}
}

func TestCompositionDurationIgnoresOverlays(t *testing.T) {
	tl := Timeline{
		Tracks: []Track{
			{ID: "base", Volume: 1, Clips: []Clip{baseClip("a", 0, 6)}},
			{ID: "cam", Volume: 1, Clips: []Clip{baseClip("c", 0, 20)}},
		},
	}

	if got, want := tl.CompositionDuration(), sec(6); got != want {
		t.Errorf("CompositionDuration = %s, want %s", got, want)
	}
}

func TestTrackEffectiveVolume(t *testing.T) {
	track := Track{Volume: 0.7}
	if got := track.EffectiveVolume(); got != 0.7 {
		t.Errorf("EffectiveVolume = %v, want 0.7", got)
	}

	track.Muted = true
	if got := track.EffectiveVolume(); got != 0 {
		t.Errorf("muted EffectiveVolume = %v, want 0", got)
	}
}
