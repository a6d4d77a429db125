package export

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/keagan/clipstitch/internal/ffmpeg"
	"github.com/keagan/clipstitch/internal/timeline"
	"github.com/keagan/clipstitch/pkg/util"
)

// segmentRenderer renders one segment at a time into the export's temp
// directory. Every output it produces shares the same codec, resolution,
// frame rate, and pixel format so the assembler can stream-copy them.
type segmentRenderer struct {
	eng      engine
	logger   zerolog.Logger
	settings Settings
	canvasW  int
	canvasH  int
	tempDir  string
	library  *timeline.Library
	probes   *probeCache
}

// render picks the strategy for the segment and writes exactly one
// intermediate file, returning its path.
func (r *segmentRenderer) render(ctx context.Context, tl timeline.Timeline, seg timeline.Segment, index int, onProgress ffmpeg.ProgressFunc) (string, error) {
	out := filepath.Join(r.tempDir, fmt.Sprintf("segment_%04d.%s", index, r.settings.Format))

	var err error
	switch {
	case seg.ActiveCount() == 0:
		r.logger.Debug().Int("segment", index).Msg("rendering gap fill")
		err = r.renderGap(ctx, seg.Duration(), out, onProgress)
	case seg.ActiveCount() == 1:
		ti, clip, _ := seg.SoleClip()
		r.logger.Debug().Int("segment", index).Str("clip", clip.ID).Msg("rendering single clip")
		err = r.renderSlice(ctx, tl.Tracks[ti], clip, seg.Start, seg.End, r.canvasW, r.canvasH, out, onProgress)
	default:
		r.logger.Debug().Int("segment", index).Int("tracks", seg.ActiveCount()).Msg("rendering composite")
		err = r.renderComposite(ctx, tl, seg, index, out, onProgress)
	}
	if err != nil {
		return "", fmt.Errorf("segment %d [%s, %s): %w", index, seg.Start, seg.End, err)
	}
	return out, nil
}

// renderGap synthesizes a solid-color video with silent audio covering a
// segment no clip is active in.
func (r *segmentRenderer) renderGap(ctx context.Context, dur time.Duration, output string, onProgress ffmpeg.ProgressFunc) error {
	secs := util.FormatSeconds(dur)

	args := []string{
		"-f", "lavfi", "-t", secs,
		"-i", fmt.Sprintf("color=c=black:s=%dx%d:r=%g", r.canvasW, r.canvasH, r.settings.FPS),
		"-f", "lavfi", "-t", secs,
		"-i", fmt.Sprintf("anullsrc=r=%d:cl=%s", ffmpeg.DefaultAudioRate, ffmpeg.DefaultAudioLayout),
	}
	args = append(args, r.settings.encodeArgs()...)
	args = append(args, output)

	return r.eng.Run(ctx, ffmpeg.RunOptions{
		Args:            args,
		ProgressHandler: onProgress,
		LogHandler: func(line string) {
			r.logger.Debug().Str("ffmpeg", line).Msg("gap fill")
		},
	})
}

// renderSlice extracts the portion of a clip's source covering
// [segStart, segEnd), mapped through the clip's trim window, and encodes
// it letterboxed at targetW x targetH. Sources without an audio stream get
// synthesized silence so the intermediate always carries both streams.
func (r *segmentRenderer) renderSlice(ctx context.Context, track timeline.Track, clip *timeline.Clip, segStart, segEnd time.Duration, targetW, targetH int, output string, onProgress ffmpeg.ProgressFunc) error {
	src, ok := r.library.Get(clip.SourceID)
	if !ok {
		return fmt.Errorf("unknown source %q", clip.SourceID)
	}

	info, err := r.probes.get(ctx, src.Path)
	if err != nil {
		return err
	}

	srcStart := clip.TrimStart + (segStart - clip.Start)
	dur := segEnd - segStart
	secs := util.FormatSeconds(dur)

	args := []string{
		"-ss", util.FormatDuration(srcStart),
		"-t", util.FormatDuration(dur),
		"-i", src.Path,
	}

	vf := ffmpeg.NewFilterBuilder().
		ScalePad(targetW, targetH).
		FPS(r.settings.FPS).
		Build()

	if info.HasAudio {
		args = append(args,
			"-vf", vf,
			"-af", ffmpeg.NewFilterBuilder().Volume(track.EffectiveVolume()).Build(),
		)
	} else {
		args = append(args,
			"-f", "lavfi", "-t", secs,
			"-i", fmt.Sprintf("anullsrc=r=%d:cl=%s", ffmpeg.DefaultAudioRate, ffmpeg.DefaultAudioLayout),
			"-vf", vf,
			"-map", "0:v", "-map", "1:a",
		)
	}

	args = append(args, r.settings.encodeArgs()...)
	args = append(args, "-t", secs, output)

	return r.eng.Run(ctx, ffmpeg.RunOptions{
		Args:            args,
		ProgressHandler: onProgress,
		LogHandler: func(line string) {
			r.logger.Debug().Str("ffmpeg", line).Msg("clip slice")
		},
	})
}

// renderComposite renders the base layer, then folds each overlay track
// onto it in track index order. The output of compositing overlay k is the
// base input for overlay k+1.
func (r *segmentRenderer) renderComposite(ctx context.Context, tl timeline.Timeline, seg timeline.Segment, index int, output string, onProgress ffmpeg.ProgressFunc) error {
	base := filepath.Join(r.tempDir, fmt.Sprintf("segment_%04d_base.%s", index, r.settings.Format))

	baseHasAudio := false
	if clip := seg.Clips[0]; clip != nil {
		src, _ := r.library.Get(clip.SourceID)
		info, err := r.probes.get(ctx, src.Path)
		if err != nil {
			return err
		}
		baseHasAudio = info.HasAudio
		if err := r.renderSlice(ctx, tl.Tracks[0], clip, seg.Start, seg.End, r.canvasW, r.canvasH, base, onProgress); err != nil {
			return fmt.Errorf("base layer: %w", err)
		}
	} else {
		if err := r.renderGap(ctx, seg.Duration(), base, onProgress); err != nil {
			return fmt.Errorf("base layer: %w", err)
		}
	}

	// Count remaining overlays so the last one writes the segment file.
	remaining := 0
	for ti := 1; ti < len(seg.Clips); ti++ {
		if seg.Clips[ti] != nil {
			remaining++
		}
	}

	current := base
	currentHasAudio := baseHasAudio

	for ti := 1; ti < len(seg.Clips); ti++ {
		clip := seg.Clips[ti]
		if clip == nil {
			continue
		}
		track := tl.Tracks[ti]

		src, ok := r.library.Get(clip.SourceID)
		if !ok {
			return fmt.Errorf("unknown source %q", clip.SourceID)
		}
		info, err := r.probes.get(ctx, src.Path)
		if err != nil {
			return err
		}

		// The overlay intermediate keeps its own aspect ratio; scaling to
		// canvas size here would bake in letterbox bars.
		ovlW, ovlH := evenDim(info.Width), evenDim(info.Height)
		overlayFile := filepath.Join(r.tempDir, fmt.Sprintf("segment_%04d_ovl%d_src.%s", index, ti, r.settings.Format))
		if err := r.renderSlice(ctx, track, clip, seg.Start, seg.End, ovlW, ovlH, overlayFile, onProgress); err != nil {
			return fmt.Errorf("overlay track %d: %w", ti, err)
		}

		remaining--
		stepOut := output
		if remaining > 0 {
			stepOut = filepath.Join(r.tempDir, fmt.Sprintf("segment_%04d_ovl%d.%s", index, ti, r.settings.Format))
		}

		mode := classifyAudio(currentHasAudio, info.HasAudio)
		spec := compositeSpec{
			Base:     current,
			Overlay:  overlayFile,
			Output:   stepOut,
			Geometry: resolveGeometry(r.canvasW, r.canvasH, track.Overlay, info.Width, info.Height),
			Mode:     mode,
			// Track volumes are baked into the slice intermediates, so the
			// mix itself runs at unity gain.
			BaseVolume:    1,
			OverlayVolume: 1,
			Duration:      seg.Duration(),
			Encode:        r.settings.encodeArgs(),
		}

		att, err := r.runComposite(ctx, spec, ti, onProgress)
		if err != nil {
			return err
		}

		// The consumed step inputs only add to peak disk usage from here.
		util.CleanupFiles(current, overlayFile)

		current = stepOut
		currentHasAudio = att != attemptVideoOnly && (currentHasAudio || info.HasAudio)
	}

	return nil
}

// runComposite walks the attempt chain for one composite step. Only a
// subprocess-level exit failure escalates to the next attempt; spawn
// failures and cancellation abort immediately.
func (r *segmentRenderer) runComposite(ctx context.Context, spec compositeSpec, trackIndex int, onProgress ffmpeg.ProgressFunc) (compositeAttempt, error) {
	var lastErr error
	for _, att := range compositeAttempts {
		args := buildCompositeArgs(spec, att)

		err := r.eng.Run(ctx, ffmpeg.RunOptions{
			Args:            args,
			ProgressHandler: onProgress,
			LogHandler: func(line string) {
				r.logger.Debug().Str("ffmpeg", line).Msg("composite")
			},
		})
		if err == nil {
			if att != attemptPrimary {
				r.logger.Warn().
					Int("track", trackIndex).
					Stringer("audio_mode", spec.Mode).
					Stringer("attempt", att).
					Msg("composite succeeded on fallback attempt")
			}
			return att, nil
		}

		var exitErr *ffmpeg.ExitError
		if !errors.As(err, &exitErr) {
			return att, err
		}

		r.logger.Warn().
			Err(err).
			Int("track", trackIndex).
			Stringer("attempt", att).
			Msg("composite attempt failed")
		lastErr = err
	}
	return attemptVideoOnly, fmt.Errorf("all composite attempts failed: %w", lastErr)
}
