// SPDX-License-Identifier: MIT
package analysis

import (
	"errors"
	"fmt"
	"math"

	"tonewatch/pkg/bitint"

	"gonum.org/v1/gonum/dsp/fourier"
)

var (
	// ErrFrameSize is returned when the frame size is not a positive power of two.
	ErrFrameSize = errors.New("frame size must be a power of two")
	// ErrSampleRate is returned for non-positive sample rates.
	ErrSampleRate = errors.New("sample rate must be positive")
	// ErrAveragingAlpha is returned when the smoothing factor is outside (0, 1].
	ErrAveragingAlpha = errors.New("averaging alpha must be in (0, 1]")
)

// Settings are the per-frame tunables the analyzer reads. They are copied
// by value each frame; the analyzer never validates them, so inverted band
// edges or extreme gains only produce an empty or saturated spectrum.
type Settings struct {
	GainDB           float64
	BandpassLowHz    float64
	BandpassHighHz   float64
	AveragingEnabled bool
	SquelchEnabled   bool
	SquelchThreshold float64
}

// Spectrum is the result of analysing one frame. Power and Visual alias the
// analyzer's internal buffers and are overwritten by the next Analyze call.
type Spectrum struct {
	Power  []float64 // per-bin power after masking, averaging and squelch
	Visual []float64 // Power normalized to [0, 1], for display only
	Total  float64   // sum of Power
}

// Pre-allocated buffers for one analysis pass.
type spectralWorkspace struct {
	input   []float64    // windowed, gain-scaled frame
	coeffs  []complex128 // N/2+1 FFT coefficients
	average []float64    // per-bin moving average, persists across frames
	power   []float64    // output power spectrum
	visual  []float64    // output normalized spectrum
}

// SpectralAnalyzer turns fixed-size frames into a power spectrum plus a
// normalized visualization spectrum. It is not safe for concurrent use;
// the detector serializes calls under its frame lock.
type SpectralAnalyzer struct {
	fft        *fourier.FFT
	window     *Window
	frameSize  int
	sampleRate float64
	resolution float64
	alpha      float64
	maxPower   float64
	workspace  spectralWorkspace
}

// NewSpectralAnalyzer builds an analyzer for frameSize-sample frames at
// sampleRate Hz. alpha is the per-bin exponential averaging factor.
func NewSpectralAnalyzer(frameSize int, sampleRate float64, kind WindowFunc, alpha float64) (*SpectralAnalyzer, error) {
	if !bitint.IsPowerOfTwo(frameSize) || frameSize < 4 {
		return nil, fmt.Errorf("%w, got %d", ErrFrameSize, frameSize)
	}
	if sampleRate <= 0 || math.IsNaN(sampleRate) {
		return nil, fmt.Errorf("%w, got %f", ErrSampleRate, sampleRate)
	}
	if !(alpha > 0 && alpha <= 1) {
		return nil, fmt.Errorf("%w, got %f", ErrAveragingAlpha, alpha)
	}

	bins := frameSize / 2
	// A full-scale sine through a Hann window peaks at N/4 in magnitude.
	quarter := float64(frameSize) / 4

	return &SpectralAnalyzer{
		fft:        fourier.NewFFT(frameSize),
		window:     NewWindow(kind, frameSize),
		frameSize:  frameSize,
		sampleRate: sampleRate,
		resolution: sampleRate / float64(frameSize),
		alpha:      alpha,
		maxPower:   quarter * quarter,
		workspace: spectralWorkspace{
			input:   make([]float64, frameSize),
			coeffs:  make([]complex128, frameSize/2+1),
			average: make([]float64, bins),
			power:   make([]float64, bins),
			visual:  make([]float64, bins),
		},
	}, nil
}

// Analyze runs gain, window, FFT, band-pass, averaging, normalization and
// squelch over one frame. Frames shorter than the configured size are
// zero-padded, longer ones truncated. No allocation happens here.
func (a *SpectralAnalyzer) Analyze(frame []float32, s Settings) Spectrum {
	ws := &a.workspace
	gain := math.Pow(10, s.GainDB/20)

	a.window.Apply(ws.input, frame, gain)
	a.fft.Coefficients(ws.coeffs, ws.input)

	var total float64
	for i := range ws.power {
		c := ws.coeffs[i]
		p := real(c)*real(c) + imag(c)*imag(c)

		freq := float64(i) * a.resolution
		if freq < s.BandpassLowHz || freq > s.BandpassHighHz {
			p = 0
		}

		if s.AveragingEnabled {
			ws.average[i] = a.alpha*p + (1-a.alpha)*ws.average[i]
			p = ws.average[i]
		} else {
			ws.average[i] = p
		}

		v := p / a.maxPower
		if v > 1 {
			v = 1
		} else if !(v >= 0) {
			v = 0
		}
		if s.SquelchEnabled && v < s.SquelchThreshold {
			v = 0
			p = 0
		}

		ws.power[i] = p
		ws.visual[i] = v
		total += p
	}

	return Spectrum{Power: ws.power, Visual: ws.visual, Total: total}
}

// Reset clears the moving average.
func (a *SpectralAnalyzer) Reset() {
	for i := range a.workspace.average {
		a.workspace.average[i] = 0
	}
}

// BinFrequency returns the centre frequency (Hz) of bin i.
func (a *SpectralAnalyzer) BinFrequency(i int) float64 {
	return float64(i) * a.resolution
}

// Resolution returns the bin spacing in Hz.
func (a *SpectralAnalyzer) Resolution() float64 { return a.resolution }

// FrameSize returns the configured frame length.
func (a *SpectralAnalyzer) FrameSize() int { return a.frameSize }

// Bins returns the number of meaningful bins (FrameSize/2).
func (a *SpectralAnalyzer) Bins() int { return len(a.workspace.power) }

// SampleRate returns the configured sample rate.
func (a *SpectralAnalyzer) SampleRate() float64 { return a.sampleRate }

// MaxPower returns the normalization reference used for the visual spectrum.
func (a *SpectralAnalyzer) MaxPower() float64 { return a.maxPower }

// Window returns the precomputed window.
func (a *SpectralAnalyzer) Window() *Window { return a.window }
