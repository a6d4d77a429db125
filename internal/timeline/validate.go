package timeline

import (
	"fmt"

	"github.com/keagan/clipstitch/pkg/util"
)

// ValidationError describes a timeline inconsistency found before any
// subprocess or temp file is created. It always identifies the violating
// track and clip when one exists.
type ValidationError struct {
	TrackID string
	ClipID  string
	Reason  string
}

func (e *ValidationError) Error() string {
	switch {
	case e.ClipID != "":
		return fmt.Sprintf("invalid timeline: clip %q on track %q: %s", e.ClipID, e.TrackID, e.Reason)
	case e.TrackID != "":
		return fmt.Sprintf("invalid timeline: track %q: %s", e.TrackID, e.Reason)
	default:
		return fmt.Sprintf("invalid timeline: %s", e.Reason)
	}
}

// Validate checks the timeline against the resolved source set. It fails
// fast on the first violation.
func Validate(tl Timeline, lib *Library) error {
	if len(tl.Tracks) == 0 {
		return &ValidationError{Reason: "no video tracks"}
	}

	if tl.ClipCount() == 0 {
		return &ValidationError{Reason: "no clips on any track"}
	}

	for _, track := range tl.Tracks {
		for _, clip := range track.Clips {
			src, ok := lib.Get(clip.SourceID)
			if !ok {
				return &ValidationError{
					TrackID: track.ID,
					ClipID:  clip.ID,
					Reason:  fmt.Sprintf("references unknown source %q", clip.SourceID),
				}
			}

			if !util.Readable(src.Path) {
				return &ValidationError{
					TrackID: track.ID,
					ClipID:  clip.ID,
					Reason:  fmt.Sprintf("source file %q is missing or unreadable", src.Path),
				}
			}

			if clip.TrimStart < 0 {
				return &ValidationError{
					TrackID: track.ID,
					ClipID:  clip.ID,
					Reason:  "trim start is negative",
				}
			}

			if clip.TrimEnd <= clip.TrimStart {
				return &ValidationError{
					TrackID: track.ID,
					ClipID:  clip.ID,
					Reason:  "trim end is not after trim start",
				}
			}

			if clip.TrimEnd > src.Duration {
				return &ValidationError{
					TrackID: track.ID,
					ClipID:  clip.ID,
					Reason: fmt.Sprintf("trim end %s exceeds source duration %s",
						clip.TrimEnd, src.Duration),
				}
			}
		}
	}

	return nil
}
