package config

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads the YAML configuration file at path and returns a validated
// [Config]. Values absent from the file keep their defaults. It is a
// convenience wrapper around [LoadFromReader].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r over the defaults and validates
// the result. Useful in tests where configs are constructed from string
// literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.LogLevel != "" && !cfg.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("log_level %q is invalid; valid values: debug, info, warn, error", cfg.LogLevel))
	}

	if cfg.Features.SampleRate <= 0 {
		errs = append(errs, fmt.Errorf("features.sample_rate must be positive, got %d", cfg.Features.SampleRate))
	}
	if cfg.Features.FFTSize <= 0 {
		errs = append(errs, fmt.Errorf("features.fft_size must be positive, got %d", cfg.Features.FFTSize))
	}
	if cfg.Features.HopLength <= 0 {
		errs = append(errs, fmt.Errorf("features.hop_length must be positive, got %d", cfg.Features.HopLength))
	}
	if cfg.Features.HopLength > cfg.Features.FFTSize && cfg.Features.FFTSize > 0 {
		errs = append(errs, fmt.Errorf("features.hop_length %d exceeds fft_size %d; analysis windows would skip samples",
			cfg.Features.HopLength, cfg.Features.FFTSize))
	}
	if cfg.Features.MelBins <= 0 {
		errs = append(errs, fmt.Errorf("features.mel_bins must be positive, got %d", cfg.Features.MelBins))
	}

	if cfg.VAD.Threshold < 0 || cfg.VAD.Threshold > 1 {
		errs = append(errs, fmt.Errorf("vad.threshold must be in [0, 1], got %g", cfg.VAD.Threshold))
	}
	if cfg.VAD.MinSilenceMs < 0 {
		errs = append(errs, fmt.Errorf("vad.min_silence_ms must not be negative, got %d", cfg.VAD.MinSilenceMs))
	}
	if cfg.VAD.MinSpeechMs < 0 {
		errs = append(errs, fmt.Errorf("vad.min_speech_ms must not be negative, got %d", cfg.VAD.MinSpeechMs))
	}
	if cfg.VAD.FrameSize <= 0 {
		errs = append(errs, fmt.Errorf("vad.frame_size must be positive, got %d", cfg.VAD.FrameSize))
	}

	if cfg.Decoder.BlankID < 0 {
		errs = append(errs, fmt.Errorf("decoder.blank_id must not be negative, got %d", cfg.Decoder.BlankID))
	}
	if cfg.Decoder.MaxSymbolsPerFrame <= 0 {
		errs = append(errs, fmt.Errorf("decoder.max_symbols_per_frame must be positive, got %d", cfg.Decoder.MaxSymbolsPerFrame))
	}
	if len(cfg.Decoder.Durations) == 0 {
		errs = append(errs, errors.New("decoder.durations must not be empty"))
	}
	for i, d := range cfg.Decoder.Durations {
		if d < 0 {
			errs = append(errs, fmt.Errorf("decoder.durations[%d] must not be negative, got %d", i, d))
		}
	}

	if cfg.Engine.ChunkThresholdSec < 0 {
		errs = append(errs, fmt.Errorf("engine.chunk_threshold_sec must not be negative, got %g", cfg.Engine.ChunkThresholdSec))
	}

	return errors.Join(errs...)
}
