package commands

import (
	"fmt"
	"math"

	"github.com/spf13/cobra"

	"github.com/lorikeet-ml/lorikeet/pkg/audio"
	"github.com/lorikeet-ml/lorikeet/pkg/mel"
)

var featuresCmd = &cobra.Command{
	Use:   "features FILE",
	Short: "Compute mel-spectrogram statistics for a WAV file",
	Long: `Compute the log-mel spectrogram the acoustic encoder consumes and
print its shape and value statistics. Useful for checking that audio
preprocessing matches model training expectations.`,
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

		extractor, err := mel.New(
			mel.WithSampleRate(cfg.Features.SampleRate),
			mel.WithFFTSize(cfg.Features.FFTSize),
			mel.WithHopLength(cfg.Features.HopLength),
			mel.WithMelBins(cfg.Features.MelBins),
		)
		if err != nil {
			return err
		}
		spec, err := extractor.Compute(samples, rate)
		if err != nil {
			return err
		}

		minVal := math.Inf(1)
		maxVal := math.Inf(-1)
		var sum float64
		for _, v := range spec.Data {
			f := float64(v)
			minVal = math.Min(minVal, f)
			maxVal = math.Max(maxVal, f)
			sum += f
		}
		mean := 0.0
		if len(spec.Data) > 0 {
			mean = sum / float64(len(spec.Data))
		}

		fmt.Printf("%s: %.3fs audio at %d Hz\n", args[0], float64(len(samples))/float64(rate), rate)
		fmt.Printf("  frames: %d\n", spec.Frames)
		fmt.Printf("  bins:   %d\n", spec.Bins)
		fmt.Printf("  min:    %.4f\n", minVal)
		fmt.Printf("  max:    %.4f\n", maxVal)
		fmt.Printf("  mean:   %.4f\n", mean)
		return nil
	},
}
