package export

import (
	"fmt"

	"github.com/keagan/clipstitch/internal/ffmpeg"
)

// Quality selects the encoder speed/quality tradeoff.
type Quality string

const (
	QualityDraft    Quality = "draft"
	QualityStandard Quality = "standard"
	QualityHigh     Quality = "high"
)

// Preset maps the tier to an x264 preset.
func (q Quality) Preset() string {
	switch q {
	case QualityDraft:
		return "ultrafast"
	case QualityHigh:
		return "slow"
	default:
		return "medium"
	}
}

// CRF maps the tier to an x264 constant rate factor.
func (q Quality) CRF() int {
	switch q {
	case QualityDraft:
		return 28
	case QualityHigh:
		return 18
	default:
		return 23
	}
}

// Settings carries the caller-selected output parameters. Width/Height of
// zero means "use source resolution" (the first base-track clip's probed
// dimensions).
type Settings struct {
	Width        int
	Height       int
	Quality      Quality
	FPS          float64
	VideoBitrate string // e.g. "8M"; empty uses the tier's CRF
	AudioBitrate string
	Format       string
}

func (s Settings) withDefaults() Settings {
	if s.Quality == "" {
		s.Quality = QualityStandard
	}
	if s.FPS <= 0 {
		s.FPS = 30
	}
	if s.AudioBitrate == "" {
		s.AudioBitrate = ffmpeg.DefaultAudioBitrate
	}
	if s.Format == "" {
		s.Format = "mp4"
	}
	return s
}

// encodeArgs returns the output encoding arguments shared by every
// intermediate: uniform codec, pixel format, constant frame rate, and a
// periodic keyframe interval (2x fps) so stream-copy concatenation stays
// frame-accurate.
func (s Settings) encodeArgs() []string {
	args := []string{
		"-c:v", ffmpeg.DefaultVideoCodec,
		"-preset", s.Quality.Preset(),
	}
	if s.VideoBitrate != "" {
		args = append(args, "-b:v", s.VideoBitrate)
	} else {
		args = append(args, "-crf", fmt.Sprintf("%d", s.Quality.CRF()))
	}
	args = append(args,
		"-r", fmt.Sprintf("%g", s.FPS),
		"-g", fmt.Sprintf("%d", int(2*s.FPS)),
		"-sc_threshold", "0",
		"-pix_fmt", ffmpeg.DefaultPixelFormat,
		"-c:a", ffmpeg.DefaultAudioCodec,
		"-b:a", s.AudioBitrate,
		"-ar", fmt.Sprintf("%d", ffmpeg.DefaultAudioRate),
		"-ac", "2",
	)
	return args
}

// evenDim rounds down to an even dimension; yuv420 requires even sizes.
func evenDim(n int) int {
	if n < 2 {
		return 2
	}
	return n &^ 1
}
