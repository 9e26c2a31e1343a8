// SPDX-License-Identifier: MIT
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"tonewatch/internal/analysis"
	"tonewatch/internal/log"
	"tonewatch/pkg/bitint"

	"gopkg.in/yaml.v3"
)

// Validation errors. Validate wraps them with the offending value.
var (
	ErrFrameSizeNotPowerOfTwo = errors.New("audio.frames_per_buffer must be a power of two")
	ErrFrameSizeRange         = errors.New("audio.frames_per_buffer out of range")
	ErrInvalidSampleRate      = errors.New("audio.sample_rate out of range")
	ErrInvalidChannels        = errors.New("audio.input_channels out of range")
	ErrInvalidDevice          = errors.New("audio.input_device must be -1 or a device index")
	ErrUnknownWindow          = errors.New("audio.fft_window is not a known window")
	ErrInvalidMaxTracks       = errors.New("detector.max_tracks must be positive")
	ErrInvalidPurity          = errors.New("detector.purity_threshold must be in [0, 1)")
	ErrInvalidTolerance       = errors.New("detector.frequency_tolerance_hz must be positive")
	ErrInvalidAlpha           = errors.New("smoothing alpha must be in (0, 1]")
	ErrInvalidDot             = errors.New("morse.initial_dot_ms must be positive")
	ErrInvalidBuffer          = errors.New("morse.symbol_buffer_size must be positive")
	ErrInvalidBitDepth        = errors.New("recording.bit_depth must be 16 or 24")
	ErrInvalidInterval        = errors.New("interval must be positive")
	ErrInvalidAddress         = errors.New("address must be host:port")
)

// configCandidates are searched in order when no path is given.
var configCandidates = []string{
	"tonewatch.yaml",
	"config.yaml",
}

// LoadConfig reads the YAML file at path on top of the defaults. With an
// empty path the candidate locations are searched and, if none exists, the
// defaults are used. ENV_* overrides are applied last, then the result is
// validated.
func LoadConfig(path string) (*Config, error) {
	cfg := NewConfig()

	if path == "" {
		for _, candidate := range configCandidates {
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				break
			}
		}
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks every section and returns all problems joined.
func (c *Config) Validate() error {
	var errs []error

	a := c.Audio
	if n := a.FramesPerBuffer; !bitint.IsPowerOfTwo(n) {
		errs = append(errs, fmt.Errorf("%w: got %d, try %d", ErrFrameSizeNotPowerOfTwo, n, bitint.NextPowerOfTwo(n)))
	} else if n < MinFrameSize || n > MaxFrameSize {
		errs = append(errs, fmt.Errorf("%w: got %d, want %d..%d", ErrFrameSizeRange, n, MinFrameSize, MaxFrameSize))
	}
	if a.SampleRate < MinSampleRate || a.SampleRate > MaxSampleRate {
		errs = append(errs, fmt.Errorf("%w: got %.0f, want %d..%d", ErrInvalidSampleRate, a.SampleRate, MinSampleRate, MaxSampleRate))
	}
	if a.InputChannels < 1 || a.InputChannels > MaxInputChannels {
		errs = append(errs, fmt.Errorf("%w: got %d", ErrInvalidChannels, a.InputChannels))
	}
	if a.InputDevice < MinDeviceID {
		errs = append(errs, fmt.Errorf("%w: got %d", ErrInvalidDevice, a.InputDevice))
	}
	if _, err := analysis.ParseWindowFunc(a.FFTWindow); err != nil {
		errs = append(errs, fmt.Errorf("%w: %q", ErrUnknownWindow, a.FFTWindow))
	}

	d := c.Detector
	if d.MaxTracks <= 0 {
		errs = append(errs, fmt.Errorf("%w: got %d", ErrInvalidMaxTracks, d.MaxTracks))
	}
	if d.PurityThreshold < 0 || d.PurityThreshold >= 1 {
		errs = append(errs, fmt.Errorf("%w: got %f", ErrInvalidPurity, d.PurityThreshold))
	}
	if !(d.FrequencyToleranceHz > 0) {
		errs = append(errs, fmt.Errorf("%w: got %f", ErrInvalidTolerance, d.FrequencyToleranceHz))
	}
	if !(d.AveragingAlpha > 0 && d.AveragingAlpha <= 1) {
		errs = append(errs, fmt.Errorf("detector.averaging_alpha: %w, got %f", ErrInvalidAlpha, d.AveragingAlpha))
	}

	m := c.Morse
	if !(m.InitialDotMs > 0) {
		errs = append(errs, fmt.Errorf("%w: got %f", ErrInvalidDot, m.InitialDotMs))
	}
	if !(m.DotEstimateAlpha > 0 && m.DotEstimateAlpha <= 1) {
		errs = append(errs, fmt.Errorf("morse.dot_estimate_alpha: %w, got %f", ErrInvalidAlpha, m.DotEstimateAlpha))
	}
	if m.SymbolBufferSize <= 0 {
		errs = append(errs, fmt.Errorf("%w: got %d", ErrInvalidBuffer, m.SymbolBufferSize))
	}

	if c.Recording.Enabled && c.Recording.BitDepth != 16 && c.Recording.BitDepth != 24 {
		errs = append(errs, fmt.Errorf("%w: got %d", ErrInvalidBitDepth, c.Recording.BitDepth))
	}

	t := c.Transport
	if (t.WebSocketEnabled || t.UDPEnabled || t.LogSnapshots) && t.PublishInterval <= 0 {
		errs = append(errs, fmt.Errorf("transport.publish_interval: %w, got %v", ErrInvalidInterval, t.PublishInterval))
	}
	if t.WebSocketEnabled {
		if _, _, err := net.SplitHostPort(t.WebSocketAddr); err != nil {
			errs = append(errs, fmt.Errorf("transport.websocket_addr: %w, got %q", ErrInvalidAddress, t.WebSocketAddr))
		}
	}
	if t.UDPEnabled {
		if _, _, err := net.SplitHostPort(t.UDPTargetAddress); err != nil {
			errs = append(errs, fmt.Errorf("transport.udp_target_address: %w, got %q", ErrInvalidAddress, t.UDPTargetAddress))
		}
	}

	if c.UI.RefreshInterval <= 0 {
		errs = append(errs, fmt.Errorf("ui.refresh_interval: %w, got %v", ErrInvalidInterval, c.UI.RefreshInterval))
	}

	return errors.Join(errs...)
}

// applyEnvOverrides lets ENV_* variables override file values. Values that
// fail to parse are ignored with a warning.
func (c *Config) applyEnvOverrides() {
	if val, ok := os.LookupEnv("ENV_LOG_LEVEL"); ok {
		c.LogLevel = val
		log.Infof("Config: log_level from env: %s", val)
	}
	if val, ok := os.LookupEnv("ENV_INPUT_DEVICE"); ok {
		if n, err := strconv.Atoi(val); err == nil {
			c.Audio.InputDevice = n
			log.Infof("Config: audio.input_device from env: %d", n)
		} else {
			log.Warnf("Config: ignoring ENV_INPUT_DEVICE=%q: %v", val, err)
		}
	}
	if val, ok := os.LookupEnv("ENV_SAMPLE_RATE"); ok {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			c.Audio.SampleRate = f
			log.Infof("Config: audio.sample_rate from env: %.0f", f)
		} else {
			log.Warnf("Config: ignoring ENV_SAMPLE_RATE=%q: %v", val, err)
		}
	}
	if val, ok := os.LookupEnv("ENV_TUNABLES_FILE"); ok {
		c.Tunables.File = val
		log.Infof("Config: tunables.file from env: %s", val)
	}

	// Transport overrides.
	envBool("ENV_WS_ENABLED", "transport.websocket_enabled", &c.Transport.WebSocketEnabled)
	if val, ok := os.LookupEnv("ENV_WS_ADDR"); ok {
		c.Transport.WebSocketAddr = val
		log.Infof("Config: transport.websocket_addr from env: %s", val)
	}
	envBool("ENV_UDP_ENABLED", "transport.udp_enabled", &c.Transport.UDPEnabled)
	if val, ok := os.LookupEnv("ENV_UDP_TARGET_ADDRESS"); ok {
		c.Transport.UDPTargetAddress = val
		log.Infof("Config: transport.udp_target_address from env: %s", val)
	}
	if val, ok := os.LookupEnv("ENV_PUBLISH_INTERVAL"); ok {
		if dur, err := time.ParseDuration(val); err == nil {
			c.Transport.PublishInterval = dur
			log.Infof("Config: transport.publish_interval from env: %s", dur)
		} else {
			log.Warnf("Config: ignoring ENV_PUBLISH_INTERVAL=%q: %v", val, err)
		}
	}
}

func envBool(name, key string, dst *bool) {
	val, ok := os.LookupEnv(name)
	if !ok {
		return
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		log.Warnf("Config: ignoring %s=%q: %v", name, val, err)
		return
	}
	*dst = b
	log.Infof("Config: %s from env: %v", key, b)
}
