// Package export is the composition engine: it validates a timeline, plans
// segments, renders each one with ffmpeg, and assembles the final output.
// One export call owns a private temp directory and runs at most one
// encoder subprocess at a time; on every exit path the temp files are gone
// and a failed export leaves nothing at the destination.
package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/keagan/clipstitch/internal/ffmpeg"
	"github.com/keagan/clipstitch/internal/timeline"
	"github.com/keagan/clipstitch/pkg/util"
)

// engine is the slice of the ffmpeg executor the exporter needs; tests
// substitute a recording fake.
type engine interface {
	Probe(ctx context.Context, path string) (*ffmpeg.MediaInfo, error)
	Run(ctx context.Context, opts ffmpeg.RunOptions) error
	Concat(ctx context.Context, opts ffmpeg.ConcatOptions) error
}

// State is the export state machine position. Failed is terminal and
// reachable from every non-Done state.
type State int

const (
	StateIdle State = iota
	StateValidating
	StatePlanning
	StateRendering
	StateAssembling
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateValidating:
		return "validating"
	case StatePlanning:
		return "planning"
	case StateRendering:
		return "rendering"
	case StateAssembling:
		return "assembling"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "idle"
	}
}

// Progress bands per state; the fine-grained subprocess contribution is
// interpolated inside the rendering band.
const (
	progressPlanning   = 3.0
	progressRenderLow  = 5.0
	progressRenderHigh = 95.0
)

// ProgressFunc receives monotonically non-decreasing percentages.
type ProgressFunc func(percent float64, message string)

// Job is one export request. The timeline and source set are read, never
// mutated.
type Job struct {
	Timeline   timeline.Timeline
	Sources    []timeline.VideoClip
	Settings   Settings
	OutputPath string
	OnProgress ProgressFunc
}

// Export is the handle for one in-flight export. Cancel terminates the
// current encoder subprocess and unwinds cleanup; Wait blocks until the
// export reaches Done or Failed.
type Export struct {
	ID string

	mu       sync.Mutex
	state    State
	err      error
	progress float64

	onProgress ProgressFunc
	cancel     context.CancelFunc
	done       chan struct{}
}

// State returns the current state machine position.
func (x *Export) State() State {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.state
}

// Err returns the terminal error, nil while running or on success.
func (x *Export) Err() error {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.err
}

// Cancel requests termination. Safe to call multiple times.
func (x *Export) Cancel() {
	x.cancel()
}

// Wait blocks until the export finishes and returns its terminal error.
func (x *Export) Wait() error {
	<-x.done
	return x.Err()
}

func (x *Export) setState(s State) {
	x.mu.Lock()
	x.state = s
	x.mu.Unlock()
}

func (x *Export) fail(err error) {
	x.mu.Lock()
	x.state = StateFailed
	x.err = err
	x.mu.Unlock()
}

// report clamps the percentage so observers never see it move backwards,
// even when a fallback attempt restarts a subprocess mid-segment.
func (x *Export) report(percent float64, message string) {
	x.mu.Lock()
	if percent < x.progress {
		percent = x.progress
	}
	x.progress = percent
	fn := x.onProgress
	x.mu.Unlock()

	if fn != nil {
		fn(percent, message)
	}
}

// Exporter runs export jobs. Safe for concurrent use; each job owns its
// own temp directory and subprocess, so exports never share state.
type Exporter struct {
	logger   zerolog.Logger
	eng      engine
	tempBase string
}

// New creates an exporter backed by a real ffmpeg executor. tempBase is
// the parent for per-export scratch directories; empty means the OS temp
// dir.
func New(logger zerolog.Logger, exec *ffmpeg.Executor, tempBase string) *Exporter {
	return newExporter(logger, exec, tempBase)
}

func newExporter(logger zerolog.Logger, eng engine, tempBase string) *Exporter {
	if tempBase == "" {
		tempBase = os.TempDir()
	}
	return &Exporter{
		logger:   logger.With().Str("component", "export").Logger(),
		eng:      eng,
		tempBase: tempBase,
	}
}

// Start begins an export and returns its handle. Completion is signalled
// through the handle, not by blocking the caller.
func (e *Exporter) Start(ctx context.Context, job Job) (*Export, error) {
	if job.OutputPath == "" {
		return nil, fmt.Errorf("output path is required")
	}

	ctx, cancel := context.WithCancel(ctx)
	x := &Export{
		ID:         uuid.NewString(),
		state:      StateIdle,
		onProgress: job.OnProgress,
		cancel:     cancel,
		done:       make(chan struct{}),
	}

	logger := e.logger.With().Str("export_id", x.ID).Logger()

	go func() {
		defer close(x.done)
		defer cancel()

		if err := e.run(ctx, logger, job, x); err != nil {
			logger.Error().Err(err).Msg("export failed")
			x.fail(err)
			return
		}
		x.setState(StateDone)
		x.report(100, "export complete")
		logger.Info().Str("output", job.OutputPath).Msg("export complete")
	}()

	return x, nil
}

// Export is the blocking convenience wrapper around Start.
func (e *Exporter) Export(ctx context.Context, job Job) error {
	x, err := e.Start(ctx, job)
	if err != nil {
		return err
	}
	return x.Wait()
}

// run drives the state machine. Cleanup is unconditional: the temp
// directory is removed on every exit path, and on failure anything written
// to the destination is removed too.
func (e *Exporter) run(ctx context.Context, logger zerolog.Logger, job Job, x *Export) (err error) {
	x.setState(StateValidating)
	x.report(0, "validating timeline")

	lib := timeline.NewLibrary(job.Sources)
	if err := timeline.Validate(job.Timeline, lib); err != nil {
		return err
	}
	if job.Timeline.CompositionDuration() == 0 {
		return &timeline.ValidationError{Reason: "base track has no clips"}
	}

	settings := job.Settings.withDefaults()

	probes := newProbeCache(e.eng)
	canvasW, canvasH, err := e.resolveCanvas(ctx, job.Timeline, lib, settings, probes)
	if err != nil {
		return err
	}

	tempDir := filepath.Join(e.tempBase, "clipstitch-"+x.ID)
	if err := util.EnsureDir(tempDir); err != nil {
		return fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tempDir)

	destTouched := false
	defer func() {
		if err != nil && destTouched {
			os.Remove(job.OutputPath)
		}
	}()

	renderer := &segmentRenderer{
		eng:      e.eng,
		logger:   logger,
		settings: settings,
		canvasW:  canvasW,
		canvasH:  canvasH,
		tempDir:  tempDir,
		library:  lib,
		probes:   probes,
	}

	// Fast paths: a lone base track laid out contiguously from zero needs
	// no cross-track composition and no segment planning.
	if clips, ok := baseOnlyContiguous(job.Timeline); ok {
		if len(clips) == 1 {
			logger.Info().Msg("fast path: single clip, direct render")
			x.setState(StateRendering)
			x.report(progressRenderLow, "rendering")
			destTouched = true
			clip := &clips[0]
			return renderer.renderSlice(ctx, job.Timeline.Tracks[0], clip, clip.Start, clip.End,
				canvasW, canvasH, job.OutputPath,
				e.fineProgress(x, 0, 1, clip.PlacedDuration(), "rendering"))
		}

		logger.Info().Int("clips", len(clips)).Msg("fast path: per-clip render and concatenate")
		x.setState(StateRendering)
		files := make([]string, 0, len(clips))
		for i := range clips {
			clip := &clips[i]
			msg := fmt.Sprintf("rendering clip %d/%d", i+1, len(clips))
			x.report(renderPercent(i, len(clips), 0), msg)
			out := filepath.Join(tempDir, fmt.Sprintf("segment_%04d.%s", i, settings.Format))
			if err := renderer.renderSlice(ctx, job.Timeline.Tracks[0], clip, clip.Start, clip.End,
				canvasW, canvasH, out,
				e.fineProgress(x, i, len(clips), clip.PlacedDuration(), msg)); err != nil {
				return err
			}
			files = append(files, out)
		}
		return e.assemble(ctx, x, files, tempDir, job.OutputPath, &destTouched)
	}

	x.setState(StatePlanning)
	x.report(progressPlanning, "planning segments")
	segments := timeline.Plan(job.Timeline)
	logger.Info().
		Int("segments", len(segments)).
		Dur("duration", job.Timeline.CompositionDuration()).
		Msg("segment plan ready")

	x.setState(StateRendering)
	files := make([]string, 0, len(segments))
	for i, seg := range segments {
		msg := fmt.Sprintf("rendering segment %d/%d", i+1, len(segments))
		x.report(renderPercent(i, len(segments), 0), msg)
		path, err := renderer.render(ctx, job.Timeline, seg, i,
			e.fineProgress(x, i, len(segments), seg.Duration(), msg))
		if err != nil {
			return err
		}
		files = append(files, path)
	}

	return e.assemble(ctx, x, files, tempDir, job.OutputPath, &destTouched)
}

// assemble concatenates the ordered intermediates into the destination
// with a lossless stream copy.
func (e *Exporter) assemble(ctx context.Context, x *Export, files []string, tempDir, output string, destTouched *bool) error {
	x.setState(StateAssembling)
	x.report(progressRenderHigh, "assembling output")

	*destTouched = true
	err := e.eng.Concat(ctx, ffmpeg.ConcatOptions{
		Inputs:      files,
		Output:      output,
		ManifestDir: tempDir,
	})
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &AssemblyError{Err: err}
	}
	return nil
}

// resolveCanvas returns the even-sized target resolution, probing the
// first base-track clip when the settings say "use source".
func (e *Exporter) resolveCanvas(ctx context.Context, tl timeline.Timeline, lib *timeline.Library, settings Settings, probes *probeCache) (int, int, error) {
	if settings.Width > 0 && settings.Height > 0 {
		return evenDim(settings.Width), evenDim(settings.Height), nil
	}

	first := tl.Tracks[0].Clips[0]
	src, _ := lib.Get(first.SourceID)
	info, err := probes.get(ctx, src.Path)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to probe %s for target resolution: %w", src.Path, err)
	}
	return evenDim(info.Width), evenDim(info.Height), nil
}

// fineProgress maps one subprocess's self-reported encode time onto the
// rendering band slice owned by segment idx.
func (e *Exporter) fineProgress(x *Export, idx, total int, expected time.Duration, msg string) ffmpeg.ProgressFunc {
	return func(p *ffmpeg.Progress) {
		frac := 0.0
		if expected > 0 && p.Time != "" {
			if elapsed, err := util.ParseTimestamp(p.Time); err == nil {
				frac = float64(elapsed) / float64(expected)
				if frac > 1 {
					frac = 1
				}
			}
		}
		x.report(renderPercent(idx, total, frac), msg)
	}
}

// renderPercent combines the coarse per-segment and fine in-segment
// contributions into the rendering band.
func renderPercent(idx, total int, frac float64) float64 {
	if total == 0 {
		return progressRenderLow
	}
	done := (float64(idx) + frac) / float64(total)
	return progressRenderLow + (progressRenderHigh-progressRenderLow)*done
}

// baseOnlyContiguous reports whether only the base track carries clips and
// they tile [0, duration) without gaps, which enables the fast paths.
func baseOnlyContiguous(tl timeline.Timeline) ([]timeline.Clip, bool) {
	for i, t := range tl.Tracks {
		if i > 0 && len(t.Clips) > 0 {
			return nil, false
		}
	}
	clips := tl.Tracks[0].Clips
	if len(clips) == 0 {
		return nil, false
	}

	var cursor time.Duration
	for _, c := range clips {
		if c.Start != cursor {
			return nil, false
		}
		cursor = c.End
	}
	return clips, true
}

// probeCache memoizes probe results for one export so each source file is
// inspected once.
type probeCache struct {
	eng   engine
	mu    sync.Mutex
	infos map[string]*ffmpeg.MediaInfo
}

func newProbeCache(eng engine) *probeCache {
	return &probeCache{eng: eng, infos: make(map[string]*ffmpeg.MediaInfo)}
}

func (p *probeCache) get(ctx context.Context, path string) (*ffmpeg.MediaInfo, error) {
	p.mu.Lock()
	info, ok := p.infos[path]
	p.mu.Unlock()
	if ok {
		return info, nil
	}

	info, err := p.eng.Probe(ctx, path)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	p.infos[path] = info
	p.mu.Unlock()
	return info, nil
}
