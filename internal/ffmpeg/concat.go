package ffmpeg

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"context"
)

// ConcatOptions defines stream-copy concatenation parameters. ManifestDir
// is where the concat list file is written; pass the export's temp dir so
// the manifest is covered by the same cleanup as the intermediates.
type ConcatOptions struct {
	Inputs       []string
	Output       string
	ManifestDir  string
	ProgressFunc ProgressFunc
}

// Concat joins the inputs into one file with a lossless stream copy.
// Inputs must share codec, resolution, frame rate, and pixel format.
// Fails before spawning anything if a listed input is missing.
func (e *Executor) Concat(ctx context.Context, opts ConcatOptions) error {
	if len(opts.Inputs) == 0 {
		return fmt.Errorf("no input files provided")
	}
	if opts.Output == "" {
		return fmt.Errorf("output path is required")
	}

	for _, input := range opts.Inputs {
		if _, err := os.Stat(input); err != nil {
			return fmt.Errorf("concat input missing: %s: %w", input, err)
		}
	}

	e.logger.Info().
		Int("inputs", len(opts.Inputs)).
		Str("output", opts.Output).
		Msg("concatenating videos")

	manifest, err := e.writeManifest(opts.ManifestDir, opts.Inputs)
	if err != nil {
		return fmt.Errorf("failed to create concat manifest: %w", err)
	}
	defer os.Remove(manifest)

	args := []string{
		"-f", "concat",
		"-safe", "0",
		"-i", manifest,
		"-c", "copy",
		opts.Output,
	}

	runOpts := RunOptions{
		Args:            args,
		ProgressHandler: opts.ProgressFunc,
		LogHandler: func(line string) {
			e.logger.Debug().Str("ffmpeg", line).Msg("concatenating")
		},
	}

	return e.Run(ctx, runOpts)
}

// writeManifest generates the ordered file list for ffmpeg's concat demuxer
func (e *Executor) writeManifest(dir string, inputs []string) (string, error) {
	tmpFile, err := os.CreateTemp(dir, "concat-*.txt")
	if err != nil {
		return "", err
	}
	defer tmpFile.Close()

	for _, input := range inputs {
		absPath, err := filepath.Abs(input)
		if err != nil {
			return "", err
		}
		// concat demuxer paths are single-quoted; escape embedded quotes
		escaped := strings.ReplaceAll(absPath, "'", `'\''`)
		if _, err := fmt.Fprintf(tmpFile, "file '%s'\n", escaped); err != nil {
			return "", err
		}
	}

	return tmpFile.Name(), nil
}
