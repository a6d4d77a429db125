package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/keagan/clipstitch/internal/config"
	"github.com/keagan/clipstitch/internal/export"
	"github.com/keagan/clipstitch/internal/ffmpeg"
	"github.com/keagan/clipstitch/internal/logging"
	"github.com/keagan/clipstitch/internal/project"
)

var (
	cfgFile string
	verbose bool
)

func main() {
	ctx := context.Background()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "clipstitch",
	Short: "clipstitch - timeline export engine",
	Long:  "Renders a multi-track editing timeline into a single media file via ffmpeg.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logging.Init(verbose)

		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}

		cmd.SetContext(config.WithConfig(cmd.Context(), cfg))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	exportCmd.Flags().StringVarP(&outputFlag, "output", "o", "", "output file (overrides the project file)")

	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(probeCmd)
}

var outputFlag string

var exportCmd = &cobra.Command{
	Use:   "export [project file]",
	Short: "Export a project's timeline to a media file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg := config.FromContext(ctx)

		exec, err := newExecutor(cfg)
		if err != nil {
			return err
		}

		proj, err := project.Load(args[0])
		if err != nil {
			return err
		}

		tl, sources, settings, err := proj.BuildWithProber(ctx, exec)
		if err != nil {
			return err
		}

		output := proj.Output
		if outputFlag != "" {
			output = outputFlag
		}
		if output == "" {
			return fmt.Errorf("no output path: set output in the project file or pass --output")
		}

		applyDefaults(&settings, cfg)

		logger := logging.WithComponent("cli")
		exporter := export.New(log.Logger, exec, cfg.TempDir)

		job := export.Job{
			Timeline:   tl,
			Sources:    sources,
			Settings:   settings,
			OutputPath: output,
			OnProgress: func(percent float64, message string) {
				logger.Info().
					Str("progress", fmt.Sprintf("%5.1f%%", percent)).
					Msg(message)
			},
		}

		if err := exporter.Export(ctx, job); err != nil {
			return err
		}

		logger.Info().Str("output", output).Msg("export finished")
		return nil
	},
}

var probeCmd = &cobra.Command{
	Use:   "probe [media file]",
	Short: "Print media metadata",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())

		exec, err := newExecutor(cfg)
		if err != nil {
			return err
		}

		info, err := exec.Probe(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		cliLogger := logging.WithComponent("cli")
		cliLogger.Info().
			Str("path", info.Path).
			Dur("duration", info.Duration).
			Int("width", info.Width).
			Int("height", info.Height).
			Float64("fps", info.FPS).
			Str("video_codec", info.VideoCodec).
			Bool("has_audio", info.HasAudio).
			Str("audio_codec", info.AudioCodec).
			Msg("probe result")
		return nil
	},
}

func newExecutor(cfg *config.Config) (*ffmpeg.Executor, error) {
	return ffmpeg.New(log.Logger, ffmpeg.Config{
		BinaryPath: cfg.FFmpeg.BinaryPath,
		ProbePath:  cfg.FFmpeg.ProbePath,
		Threads:    cfg.FFmpeg.Threads,
	})
}

// applyDefaults backfills settings the project file left unset from the
// application config.
func applyDefaults(s *export.Settings, cfg *config.Config) {
	if s.Quality == "" {
		s.Quality = export.Quality(cfg.Export.Quality)
	}
	if s.FPS <= 0 {
		s.FPS = cfg.Export.FPS
	}
	if s.Width == 0 && s.Height == 0 {
		s.Width = cfg.Export.Width
		s.Height = cfg.Export.Height
	}
	if s.VideoBitrate == "" {
		s.VideoBitrate = cfg.Export.VideoBitrate
	}
	if s.AudioBitrate == "" {
		s.AudioBitrate = cfg.Export.AudioBitrate
	}
	if s.Format == "" {
		s.Format = cfg.Export.Format
	}
}
