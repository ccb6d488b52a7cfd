// Package config provides the configuration schema and loader for the
// lorikeet transcription engine.
package config

import "log/slog"

// LogLevel controls log verbosity.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Level converts l to the corresponding slog.Level. Unrecognised values map
// to slog.LevelInfo.
func (l LogLevel) Level() slog.Level {
	switch l {
	case LogDebug:
		return slog.LevelDebug
	case LogWarn:
		return slog.LevelWarn
	case LogError:
		return slog.LevelError
	}
	return slog.LevelInfo
}

// Config is the root configuration structure, typically loaded from a YAML
// file using [Load] or [LoadFromReader].
type Config struct {
	// LogLevel controls verbosity. Default "info".
	LogLevel LogLevel `yaml:"log_level"`

	Features FeaturesConfig `yaml:"features"`
	VAD      VADConfig      `yaml:"vad"`
	Decoder  DecoderConfig  `yaml:"decoder"`
	Engine   EngineConfig   `yaml:"engine"`
}

// FeaturesConfig holds mel-spectrogram extraction parameters. The defaults
// match Parakeet-TDT v3 preprocessing.
type FeaturesConfig struct {
	// SampleRate is the model input rate in Hz; audio at other rates is
	// resampled. Default 16000.
	SampleRate int `yaml:"sample_rate"`

	// FFTSize is the analysis window length in samples. Default 512.
	FFTSize int `yaml:"fft_size"`

	// HopLength is the frame advance in samples. Default 160 (10 ms).
	HopLength int `yaml:"hop_length"`

	// MelBins is the number of mel filterbank bins per frame. Default 128.
	MelBins int `yaml:"mel_bins"`
}

// VADConfig holds voice-activity segmentation parameters.
type VADConfig struct {
	// Threshold is the speech probability cut-off. Default 0.5.
	Threshold float64 `yaml:"threshold"`

	// MinSilenceMs is the shortest silence that splits segments. Default 300.
	MinSilenceMs int `yaml:"min_silence_ms"`

	// MinSpeechMs is the shortest segment kept. Default 250.
	MinSpeechMs int `yaml:"min_speech_ms"`

	// FrameSize is the model input frame length in samples. Default 576.
	FrameSize int `yaml:"frame_size"`
}

// DecoderConfig holds transducer decoding parameters.
type DecoderConfig struct {
	// BlankID is the reserved blank token id. Default 8192.
	BlankID int `yaml:"blank_id"`

	// MaxSymbolsPerFrame caps token emissions without time advancing.
	// Default 10.
	MaxSymbolsPerFrame int `yaml:"max_symbols_per_frame"`

	// Durations is the TDT duration-class table, indexed by duration-logit
	// position. Default [0, 1, 2, 3, 4]. Ignored by models without a
	// duration head.
	Durations []int `yaml:"durations"`
}

// EngineConfig holds orchestration parameters.
type EngineConfig struct {
	// ChunkThresholdSec is the recording length in seconds above which VAD
	// chunking kicks in; shorter audio is decoded as a single segment.
	// Default 10.
	ChunkThresholdSec float64 `yaml:"chunk_threshold_sec"`

	// SkipFailedSegments makes the engine log and drop a segment whose
	// decode fails instead of aborting the whole transcription.
	// Default false.
	SkipFailedSegments bool `yaml:"skip_failed_segments"`
}

// Default returns a Config populated with every default value.
func Default() *Config {
	return &Config{
		LogLevel: LogInfo,
		Features: FeaturesConfig{
			SampleRate: 16000,
			FFTSize:    512,
			HopLength:  160,
			MelBins:    128,
		},
		VAD: VADConfig{
			Threshold:    0.5,
			MinSilenceMs: 300,
			MinSpeechMs:  250,
			FrameSize:    576,
		},
		Decoder: DecoderConfig{
			BlankID:            8192,
			MaxSymbolsPerFrame: 10,
			Durations:          []int{0, 1, 2, 3, 4},
		},
		Engine: EngineConfig{
			ChunkThresholdSec: 10,
		},
	}
}
