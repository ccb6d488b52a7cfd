package commands

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/lorikeet-ml/lorikeet/pkg/audio"
	"github.com/lorikeet-ml/lorikeet/pkg/vad"
)

var (
	segThreshold  float64
	segMinSilence time.Duration
	segMinSpeech  time.Duration
)

var segmentsCmd = &cobra.Command{
	Use:   "segments FILE",
	Short: "Detect speech segments in a WAV file",
	Long: `Detect speech segments using energy-based voice-activity detection.

The detector scores 36 ms frames by smoothed RMS energy and applies
hysteresis: a segment ends only after the configured silence hangover,
and segments shorter than the minimum speech duration are dropped.

Examples:
  lorikeet segments recording.wav
  lorikeet segments --threshold 0.6 --min-silence 500ms recording.wav`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		samples, rate, err := audio.ReadWAVFile(args[0])
		if err != nil {
			return err
		}
		if rate != cfg.Features.SampleRate {
			slog.Debug("resampling input", "from", rate, "to", cfg.Features.SampleRate)
			if samples, err = audio.Resample(samples, rate, cfg.Features.SampleRate); err != nil {
				return err
			}
		}

		opts := vad.Options{
			Threshold:  cfg.VAD.Threshold,
			MinSilence: time.Duration(cfg.VAD.MinSilenceMs) * time.Millisecond,
			MinSpeech:  time.Duration(cfg.VAD.MinSpeechMs) * time.Millisecond,
		}
		if cmd.Flags().Changed("threshold") {
			opts.Threshold = segThreshold
		}
		if cmd.Flags().Changed("min-silence") {
			opts.MinSilence = segMinSilence
		}
		if cmd.Flags().Changed("min-speech") {
			opts.MinSpeech = segMinSpeech
		}

		seg, err := vad.NewSegmenter(&vad.EnergyModel{},
			vad.WithFrameSize(cfg.VAD.FrameSize),
			vad.WithSampleRate(cfg.Features.SampleRate),
		)
		if err != nil {
			return err
		}
		segments, err := seg.DetectSpeechSegments(samples, opts)
		if err != nil {
			return err
		}

		total := float64(len(samples)) / float64(cfg.Features.SampleRate)
		fmt.Printf("%s: %.3fs audio, %d speech segment(s)\n", args[0], total, len(segments))
		for i, s := range segments {
			fmt.Printf("  %3d  %8.3fs - %8.3fs  (%.3fs)\n", i+1, s.Start, s.End, s.Duration())
		}
		return nil
	},
}

func init() {
	segmentsCmd.Flags().Float64Var(&segThreshold, "threshold", 0, "speech probability threshold (default from config)")
	segmentsCmd.Flags().DurationVar(&segMinSilence, "min-silence", 0, "silence hangover before a segment ends (default from config)")
	segmentsCmd.Flags().DurationVar(&segMinSpeech, "min-speech", 0, "minimum segment duration to keep (default from config)")
}
