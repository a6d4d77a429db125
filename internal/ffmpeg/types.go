package ffmpeg

import "time"

// MediaInfo contains probed metadata about a media file
type MediaInfo struct {
	Path         string
	Duration     time.Duration
	Width        int
	Height       int
	FPS          float64
	Bitrate      int64
	VideoCodec   string
	HasAudio     bool
	AudioCodec   string
	AudioBitrate int64
}

// Progress represents ffmpeg progress data parsed from stderr
type Progress struct {
	Frame   int
	FPS     float64
	Bitrate string
	Time    string
	Speed   string
}

// ProgressFunc is a callback for progress updates during ffmpeg operations.
// Called periodically while the operation executes.
type ProgressFunc func(*Progress)

// RunOptions configures ffmpeg execution
type RunOptions struct {
	Args            []string
	ProgressHandler ProgressFunc
	LogHandler      func(line string)
}

// Encoding settings shared by every intermediate so that stream-copy
// concatenation stays frame-accurate.
const (
	DefaultVideoCodec   = "libx264"
	DefaultAudioCodec   = "aac"
	DefaultPixelFormat  = "yuv420p"
	DefaultAudioRate    = 48000
	DefaultAudioLayout  = "stereo"
	DefaultAudioBitrate = "128k"
)
