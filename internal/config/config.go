// SPDX-License-Identifier: MIT

// Package config loads the application configuration from YAML, applies
// ENV_* overrides and validates the result. It also persists the live
// tunables to a small key=value file between runs.
package config

import (
	"time"

	"tonewatch/internal/analysis"
	"tonewatch/internal/detector"
)

// Defaults and hard limits.
const (
	DefaultLogLevel        = "info"
	DefaultDeviceID        = MinDeviceID
	DefaultSampleRate      = 44100
	DefaultFramesPerBuffer = 2048
	DefaultInputChannels   = 1
	DefaultFFTWindow       = "Hann"

	DefaultMaxTracks            = 4
	DefaultSuppressionBins      = 3
	DefaultPurityThreshold      = 0.2
	DefaultFrequencyToleranceHz = 30.0
	DefaultAveragingAlpha       = 0.3

	DefaultInitialDotMs     = 60.0
	DefaultDotEstimateAlpha = 0.1
	DefaultSymbolBufferSize = 256

	DefaultTunablesFile = "tonewatch.params"
	DefaultBitDepth     = 16

	DefaultPublishInterval = 50 * time.Millisecond
	DefaultWebSocketAddr   = "127.0.0.1:8090"
	DefaultUDPTarget       = "127.0.0.1:9090"
	DefaultRefreshInterval = 50 * time.Millisecond

	MinDeviceID      = -1 // system default input
	MinSampleRate    = 8000
	MaxSampleRate    = 192000
	MinFrameSize     = 64
	MaxFrameSize     = 16384
	MaxInputChannels = 32
)

// Config is the full application configuration. Fields tagged yaml:"-" are
// only set from the command line.
type Config struct {
	LogLevel  string          `yaml:"log_level"`
	Audio     AudioConfig     `yaml:"audio"`
	Detector  DetectorConfig  `yaml:"detector"`
	Morse     MorseConfig     `yaml:"morse"`
	Tunables  TunablesConfig  `yaml:"tunables"`
	Recording RecordingConfig `yaml:"recording"`
	Transport TransportConfig `yaml:"transport"`
	UI        UIConfig        `yaml:"ui"`

	Command    string `yaml:"-"` // "", "list" or "decode"
	InputFile  string `yaml:"-"` // WAV file for decode
	Headless   bool   `yaml:"-"`
	PickDevice bool   `yaml:"-"` // choose the input device interactively
	Verbose    bool   `yaml:"-"`
}

// AudioConfig selects the capture device and the analysis frame.
type AudioConfig struct {
	InputDevice     int     `yaml:"input_device"`      // PortAudio device index, -1 for default
	SampleRate      float64 `yaml:"sample_rate"`       // Hz
	FramesPerBuffer int     `yaml:"frames_per_buffer"` // analysis frame size, power of two
	InputChannels   int     `yaml:"input_channels"`    // only the first channel is analysed
	LowLatency      bool    `yaml:"low_latency"`
	FFTWindow       string  `yaml:"fft_window"`
}

// DetectorConfig holds the structural detection constants.
type DetectorConfig struct {
	MaxTracks            int     `yaml:"max_tracks"`
	MaxPeaks             int     `yaml:"max_peaks"` // 0 follows max_tracks
	SuppressionBins      int     `yaml:"suppression_bins"`
	PurityThreshold      float64 `yaml:"purity_threshold"` // fraction of total power
	FrequencyToleranceHz float64 `yaml:"frequency_tolerance_hz"`
	AveragingAlpha       float64 `yaml:"averaging_alpha"`
}

// MorseConfig holds the decoder constants.
type MorseConfig struct {
	InitialDotMs     float64 `yaml:"initial_dot_ms"`
	DotEstimateAlpha float64 `yaml:"dot_estimate_alpha"`
	SymbolBufferSize int     `yaml:"symbol_buffer_size"`
}

// TunablesConfig gives the startup values of the live parameters. A
// tunables file, when present, overrides them.
type TunablesConfig struct {
	File             string  `yaml:"file"`
	GainDB           float64 `yaml:"gain_db"`
	BandpassLowHz    float64 `yaml:"bandpass_low_hz"`
	BandpassHighHz   float64 `yaml:"bandpass_high_hz"`
	PersistenceMs    int     `yaml:"persistence_ms"`
	SquelchEnabled   bool    `yaml:"squelch_enabled"`
	SquelchThreshold float64 `yaml:"squelch_threshold"`
	AveragingEnabled bool    `yaml:"averaging_enabled"`
}

// RecordingConfig controls capture to WAV.
type RecordingConfig struct {
	Enabled    bool   `yaml:"enabled"`
	OutputDir  string `yaml:"output_dir"`
	OutputFile string `yaml:"output_file"` // generated from the start time when empty
	BitDepth   int    `yaml:"bit_depth"`
}

// TransportConfig controls snapshot publishing.
type TransportConfig struct {
	PublishInterval  time.Duration `yaml:"publish_interval"`
	WebSocketEnabled bool          `yaml:"websocket_enabled"`
	WebSocketAddr    string        `yaml:"websocket_addr"`
	UDPEnabled       bool          `yaml:"udp_enabled"`
	UDPTargetAddress string        `yaml:"udp_target_address"`
	LogSnapshots     bool          `yaml:"log_snapshots"`
}

// UIConfig controls the terminal monitor.
type UIConfig struct {
	RefreshInterval time.Duration `yaml:"refresh_interval"`
	LogFile         string        `yaml:"log_file"` // log destination while the monitor owns the screen
}

// NewConfig returns a Config populated with defaults.
func NewConfig() *Config {
	return &Config{
		LogLevel: DefaultLogLevel,
		Audio: AudioConfig{
			InputDevice:     DefaultDeviceID,
			SampleRate:      DefaultSampleRate,
			FramesPerBuffer: DefaultFramesPerBuffer,
			InputChannels:   DefaultInputChannels,
			FFTWindow:       DefaultFFTWindow,
		},
		Detector: DetectorConfig{
			MaxTracks:            DefaultMaxTracks,
			SuppressionBins:      DefaultSuppressionBins,
			PurityThreshold:      DefaultPurityThreshold,
			FrequencyToleranceHz: DefaultFrequencyToleranceHz,
			AveragingAlpha:       DefaultAveragingAlpha,
		},
		Morse: MorseConfig{
			InitialDotMs:     DefaultInitialDotMs,
			DotEstimateAlpha: DefaultDotEstimateAlpha,
			SymbolBufferSize: DefaultSymbolBufferSize,
		},
		Tunables: TunablesConfig{
			File:             DefaultTunablesFile,
			BandpassLowHz:    detector.DefaultLowHz,
			BandpassHighHz:   detector.DefaultHighHz,
			PersistenceMs:    detector.DefaultPersistMs,
			SquelchThreshold: detector.DefaultSquelch,
		},
		Recording: RecordingConfig{
			OutputDir: "./recordings",
			BitDepth:  DefaultBitDepth,
		},
		Transport: TransportConfig{
			PublishInterval:  DefaultPublishInterval,
			WebSocketAddr:    DefaultWebSocketAddr,
			UDPTargetAddress: DefaultUDPTarget,
		},
		UI: UIConfig{
			RefreshInterval: DefaultRefreshInterval,
			LogFile:         "tonewatch.log",
		},
	}
}

// DetectorOptions converts the structural settings for detector.New.
// Call Validate first; an unknown window name falls back to Hann here.
func (c *Config) DetectorOptions() detector.Options {
	window, _ := analysis.ParseWindowFunc(c.Audio.FFTWindow)
	return detector.Options{
		FrameSize:            c.Audio.FramesPerBuffer,
		SampleRate:           c.Audio.SampleRate,
		Window:               window,
		AveragingAlpha:       c.Detector.AveragingAlpha,
		MaxTracks:            c.Detector.MaxTracks,
		MaxPeaks:             c.Detector.MaxPeaks,
		SuppressionBins:      c.Detector.SuppressionBins,
		PurityThreshold:      c.Detector.PurityThreshold,
		FrequencyToleranceHz: c.Detector.FrequencyToleranceHz,
		InitialDotMs:         c.Morse.InitialDotMs,
		DotEstimateAlpha:     c.Morse.DotEstimateAlpha,
		SymbolBufferSize:     c.Morse.SymbolBufferSize,
	}
}

// Params returns the configured startup tunables.
func (c *Config) Params() detector.Params {
	t := c.Tunables
	return detector.Params{
		GainDB:           t.GainDB,
		BandpassLowHz:    t.BandpassLowHz,
		BandpassHighHz:   t.BandpassHighHz,
		Persistence:      time.Duration(t.PersistenceMs) * time.Millisecond,
		SquelchEnabled:   t.SquelchEnabled,
		SquelchThreshold: t.SquelchThreshold,
		AveragingEnabled: t.AveragingEnabled,
	}
}
