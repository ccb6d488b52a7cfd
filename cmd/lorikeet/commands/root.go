// Package commands implements the lorikeet CLI.
package commands

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/lorikeet-ml/lorikeet/internal/config"
)

var (
	cfgFile  string
	logLevel string
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "lorikeet",
	Short: "Speech segmentation and feature toolkit",
	Long: `lorikeet inspects speech audio with the same pipeline stages the
transcription engine uses: energy-based voice-activity detection, mel
spectrogram extraction, and word/character error rate scoring.

Configuration is optional; without --config the built-in defaults
(16 kHz, Parakeet-TDT v3 framing) apply.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to the YAML configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level override (debug, info, warn, error)")

	rootCmd.AddCommand(segmentsCmd)
	rootCmd.AddCommand(featuresCmd)
	rootCmd.AddCommand(evalCmd)
}

// loadConfig resolves the effective configuration and installs the default
// logger. Without --config the built-in defaults apply.
func loadConfig() (*config.Config, error) {
	cfg := config.Default()
	if cfgFile != "" {
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return nil, err
		}
	}
	if logLevel != "" {
		cfg.LogLevel = config.LogLevel(logLevel)
		if err := config.Validate(cfg); err != nil {
			return nil, err
		}
	}
	slog.SetDefault(newLogger(cfg.LogLevel))
	return cfg, nil
}

func newLogger(level config.LogLevel) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level.Level()}))
}
