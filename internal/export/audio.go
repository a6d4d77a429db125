package export

import (
	"fmt"
	"math"
	"time"

	"github.com/keagan/clipstitch/internal/ffmpeg"
	"github.com/keagan/clipstitch/internal/timeline"
	"github.com/keagan/clipstitch/pkg/util"
)

// AudioMode classifies a composite step by probed audio-stream presence on
// its two inputs. The mode picks the primary mixing strategy; which input
// is a webcam or a screen capture is irrelevant.
type AudioMode int

const (
	AudioSilent AudioMode = iota
	AudioBaseOnly
	AudioOverlayOnly
	AudioBoth
)

func (m AudioMode) String() string {
	switch m {
	case AudioBaseOnly:
		return "base-only"
	case AudioOverlayOnly:
		return "overlay-only"
	case AudioBoth:
		return "both"
	default:
		return "silent"
	}
}

// classifyAudio picks the mode from probed audio presence.
func classifyAudio(baseHasAudio, overlayHasAudio bool) AudioMode {
	switch {
	case baseHasAudio && overlayHasAudio:
		return AudioBoth
	case baseHasAudio:
		return AudioBaseOnly
	case overlayHasAudio:
		return AudioOverlayOnly
	default:
		return AudioSilent
	}
}

// compositeAttempt is the escalating retry strategy for one composite
// invocation: the mode's primary mix, then an explicit silence-source mix,
// then video with synthesized silence. The last attempt cannot fail for
// audio reasons; if it still fails the export aborts.
type compositeAttempt int

const (
	attemptPrimary compositeAttempt = iota
	attemptSilenceMix
	attemptVideoOnly
)

func (a compositeAttempt) String() string {
	switch a {
	case attemptSilenceMix:
		return "silence-mix"
	case attemptVideoOnly:
		return "video-only"
	default:
		return "primary"
	}
}

var compositeAttempts = [...]compositeAttempt{attemptPrimary, attemptSilenceMix, attemptVideoOnly}

// overlayGeometry is the resolved overlay rectangle on the canvas.
type overlayGeometry struct {
	Width  int
	Height int
	X      int
	Y      int
}

// defaultOverlayPosition places an unconfigured overlay as a quarter-width
// picture-in-picture in the lower right.
var defaultOverlayPosition = timeline.OverlayPosition{CenterX: 0.85, CenterY: 0.85, Scale: 0.25}

// resolveGeometry turns the fractional overlay position into pixel
// coordinates: width is a fraction of canvas width, height follows the
// overlay source's aspect ratio, and the rectangle is clamped so it never
// exits the canvas.
func resolveGeometry(canvasW, canvasH int, pos *timeline.OverlayPosition, srcW, srcH int) overlayGeometry {
	if pos == nil {
		pos = &defaultOverlayPosition
	}

	w := evenDim(int(math.Round(float64(canvasW) * pos.Scale)))
	if w > canvasW {
		w = evenDim(canvasW)
	}
	h := evenDim(int(math.Round(float64(w) * float64(srcH) / float64(srcW))))
	if h > canvasH {
		h = evenDim(canvasH)
	}

	x := int(math.Round(pos.CenterX*float64(canvasW))) - w/2
	y := int(math.Round(pos.CenterY*float64(canvasH))) - h/2
	x = clampInt(x, 0, canvasW-w)
	y = clampInt(y, 0, canvasH-h)

	return overlayGeometry{Width: w, Height: h, X: x, Y: y}
}

func clampInt(v, lo, hi int) int {
	if hi < lo {
		hi = lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// compositeSpec describes one composite step: draw the overlay file over
// the base file and produce a single intermediate with both video and
// audio, whatever the inputs carry.
type compositeSpec struct {
	Base          string
	Overlay       string
	Output        string
	Geometry      overlayGeometry
	Mode          AudioMode
	BaseVolume    float64
	OverlayVolume float64
	Duration      time.Duration
	Encode        []string
}

// needsSilenceInput reports whether the invocation references a lavfi
// silence source as input 2.
func needsSilenceInput(mode AudioMode, att compositeAttempt) bool {
	if att != attemptPrimary {
		return true
	}
	return mode == AudioSilent
}

// buildCompositeArgs assembles the full ffmpeg invocation for one
// composite attempt. Input 0 is the base, input 1 the overlay, and input 2
// (when present) a bounded silence source.
func buildCompositeArgs(spec compositeSpec, att compositeAttempt) []string {
	secs := util.FormatSeconds(spec.Duration)

	args := []string{"-i", spec.Base, "-i", spec.Overlay}
	if needsSilenceInput(spec.Mode, att) {
		args = append(args,
			"-f", "lavfi", "-t", secs,
			"-i", fmt.Sprintf("anullsrc=r=%d:cl=%s", ffmpeg.DefaultAudioRate, ffmpeg.DefaultAudioLayout),
		)
	}

	g := ffmpeg.NewGraph().
		Chain("[1:v]scale=%d:%d[ovr]", spec.Geometry.Width, spec.Geometry.Height).
		Chain("[0:v][ovr]overlay=%d:%d[vout]", spec.Geometry.X, spec.Geometry.Y)

	switch att {
	case attemptPrimary:
		appendPrimaryAudio(g, spec)
	case attemptSilenceMix:
		appendSilenceMixAudio(g, spec)
	case attemptVideoOnly:
		g.Chain("[2:a]anull[aout]")
	}

	args = append(args,
		"-filter_complex", g.String(),
		"-map", "[vout]",
		"-map", "[aout]",
	)
	args = append(args, spec.Encode...)
	args = append(args, "-t", secs, spec.Output)
	return args
}

// appendPrimaryAudio adds the mode's first-choice audio chain.
func appendPrimaryAudio(g *ffmpeg.Graph, spec compositeSpec) {
	switch spec.Mode {
	case AudioBoth:
		g.Chain("[0:a]volume=%.3f[ab]", spec.BaseVolume).
			Chain("[1:a]volume=%.3f[ao]", spec.OverlayVolume).
			Chain("[ab][ao]amix=inputs=2:duration=longest[aout]")
	case AudioBaseOnly:
		g.Chain("[0:a]volume=%.3f[aout]", spec.BaseVolume)
	case AudioOverlayOnly:
		g.Chain("[1:a]volume=%.3f[aout]", spec.OverlayVolume)
	default:
		g.Chain("[2:a]anull[aout]")
	}
}

// appendSilenceMixAudio mixes whatever real audio exists together with an
// explicit silence source, which tolerates inputs whose audio stream is
// shorter than advertised or missing samples.
func appendSilenceMixAudio(g *ffmpeg.Graph, spec compositeSpec) {
	pads := ""
	inputs := 1 // the silence source always participates
	if spec.Mode == AudioBoth || spec.Mode == AudioBaseOnly {
		g.Chain("[0:a]volume=%.3f[ab]", spec.BaseVolume)
		pads += "[ab]"
		inputs++
	}
	if spec.Mode == AudioBoth || spec.Mode == AudioOverlayOnly {
		g.Chain("[1:a]volume=%.3f[ao]", spec.OverlayVolume)
		pads += "[ao]"
		inputs++
	}
	g.Chain("%s[2:a]amix=inputs=%d:duration=longest[aout]", pads, inputs)
}
