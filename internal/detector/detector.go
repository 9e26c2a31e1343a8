// SPDX-License-Identifier: MIT

// Package detector wires the per-frame pipeline: spectral analysis, peak
// picking, tone tracking and Morse decoding. A Detector is fed from the
// real-time audio callback and read by UI and transport goroutines through
// snapshot copies; one mutex guards the shared state for the length of a
// frame update or a snapshot copy.
package detector

import (
	"fmt"
	"sync"
	"time"

	"tonewatch/internal/analysis"
	"tonewatch/internal/log"
	"tonewatch/internal/morse"
	"tonewatch/internal/tracker"
	"tonewatch/pkg/bitint"
)

// Options are the structural constants fixed at construction.
type Options struct {
	FrameSize            int
	SampleRate           float64
	Window               analysis.WindowFunc
	AveragingAlpha       float64
	MaxTracks            int
	MaxPeaks             int // 0 means MaxTracks
	SuppressionBins      int
	PurityThreshold      float64
	FrequencyToleranceHz float64
	InitialDotMs         float64
	DotEstimateAlpha     float64
	SymbolBufferSize     int
}

// DefaultOptions returns the stock configuration for 44.1 kHz input.
func DefaultOptions() Options {
	return Options{
		FrameSize:            2048,
		SampleRate:           44100,
		Window:               analysis.Hann,
		AveragingAlpha:       0.3,
		MaxTracks:            4,
		SuppressionBins:      3,
		PurityThreshold:      0.2,
		FrequencyToleranceHz: 30,
		InitialDotMs:         60,
		DotEstimateAlpha:     0.1,
		SymbolBufferSize:     256,
	}
}

// Snapshot is a consistent copy of the detector state. Reusing one
// Snapshot with SnapshotInto avoids allocating once its slices have grown.
type Snapshot struct {
	Tracks         []tracker.Track
	Visual         []float64
	Symbols        []byte
	Text           []byte
	EstimatedDotMs float64
	WPM            float64
	Params         Params
	Frames         uint64
	ResolutionHz   float64
}

// Detector is safe for one frame producer and any number of snapshot readers.
type Detector struct {
	tunables *Tunables
	maxPeaks int
	step     time.Duration

	mu       sync.Mutex
	analyzer *analysis.SpectralAnalyzer
	peaks    *analysis.PeakDetector
	tracks   *tracker.Manager
	decoder  *morse.Decoder
	visual   []float64
	frames   uint64
}

// New builds a detector. The tunables are shared with whoever adjusts them;
// nil gets DefaultParams.
func New(opts Options, tunables *Tunables) (*Detector, error) {
	analyzer, err := analysis.NewSpectralAnalyzer(opts.FrameSize, opts.SampleRate, opts.Window, opts.AveragingAlpha)
	if err != nil {
		return nil, fmt.Errorf("spectral analyzer: %w", err)
	}
	tracks, err := tracker.NewManager(tracker.Config{
		MaxTracks:            opts.MaxTracks,
		PurityThreshold:      opts.PurityThreshold,
		FrequencyToleranceHz: opts.FrequencyToleranceHz,
		ResolutionHz:         analyzer.Resolution(),
	})
	if err != nil {
		return nil, fmt.Errorf("track manager: %w", err)
	}
	decoder, err := morse.NewDecoder(morse.Config{
		InitialDotMs:     opts.InitialDotMs,
		Alpha:            opts.DotEstimateAlpha,
		SymbolBufferSize: opts.SymbolBufferSize,
	})
	if err != nil {
		return nil, fmt.Errorf("morse decoder: %w", err)
	}

	maxPeaks := opts.MaxPeaks
	if maxPeaks <= 0 {
		maxPeaks = opts.MaxTracks
	}
	if tunables == nil {
		tunables = NewTunables(DefaultParams(), opts.SampleRate)
	}

	log.Infof("Detector: %d-point %s window at %.0f Hz (%.2f Hz/bin), %d tracks",
		opts.FrameSize, opts.Window, opts.SampleRate, analyzer.Resolution(), opts.MaxTracks)

	return &Detector{
		tunables: tunables,
		maxPeaks: maxPeaks,
		step:     time.Duration(bitint.FrameDurationNanos(opts.FrameSize, opts.SampleRate)),
		analyzer: analyzer,
		peaks:    analysis.NewPeakDetector(opts.SuppressionBins, maxPeaks),
		tracks:   tracks,
		decoder:  decoder,
		visual:   make([]float64, analyzer.Bins()),
	}, nil
}

// ProcessFrame runs the full pipeline for one frame captured at now. It is
// called from the audio callback and does not allocate after the first
// frame unless debug logging is on.
func (d *Detector) ProcessFrame(frame []float32, now time.Time) {
	p := d.tunables.Load()

	d.mu.Lock()
	defer d.mu.Unlock()

	sp := d.analyzer.Analyze(frame, analysis.Settings{
		GainDB:           p.GainDB,
		BandpassLowHz:    p.BandpassLowHz,
		BandpassHighHz:   p.BandpassHighHz,
		AveragingEnabled: p.AveragingEnabled,
		SquelchEnabled:   p.SquelchEnabled,
		SquelchThreshold: p.SquelchThreshold,
	})
	copy(d.visual, sp.Visual)

	peaks := d.peaks.FindPeaks(sp.Power, d.maxPeaks)
	transitions := d.tracks.Update(peaks, sp.Power, sp.Total, tracker.Gate{
		BandpassLowHz:  p.BandpassLowHz,
		BandpassHighHz: p.BandpassHighHz,
		Persistence:    p.Persistence,
	}, now)

	for _, tr := range transitions {
		switch tr.Kind {
		case tracker.Activated:
			d.decoder.ToneStarted(tr.Track.FirstSeenAt)
			if log.GetLevel() <= log.LevelDebug {
				log.Debugf("Tracker: slot %d active at %.1f Hz (purity %.0f%%)",
					tr.Slot, tr.Track.FrequencyHz, tr.Track.PurityPercent)
			}
		case tracker.Deactivated:
			// The last matching frame still carried the tone.
			end := tr.Track.LastSeenAt.Add(d.step)
			sym := d.decoder.ToneEnded(tr.ToneDuration, tr.Track.FirstSeenAt, end)
			if log.GetLevel() <= log.LevelDebug {
				log.Debugf("Tracker: slot %d ended at %.1f Hz after %v (%s, dot %.1f ms)",
					tr.Slot, tr.Track.FrequencyHz, tr.ToneDuration, sym, d.decoder.EstimatedDotMs())
			}
		}
	}
	if d.tracks.Count(tracker.Empty) == d.tracks.Capacity() {
		d.decoder.Idle(now)
	}
	d.frames++
}

// SnapshotInto copies the current state into s, reusing its slices.
func (d *Detector) SnapshotInto(s *Snapshot) {
	s.Params = d.tunables.Load()
	s.ResolutionHz = d.analyzer.Resolution()

	d.mu.Lock()
	defer d.mu.Unlock()

	s.Tracks = append(s.Tracks[:0], d.tracks.Tracks()...)
	s.Visual = append(s.Visual[:0], d.visual...)
	s.Symbols = append(s.Symbols[:0], d.decoder.Symbols()...)
	s.Text = append(s.Text[:0], d.decoder.Text()...)
	s.EstimatedDotMs = d.decoder.EstimatedDotMs()
	s.WPM = d.decoder.WPM()
	s.Frames = d.frames
}

// Settled reports whether no tone is tracked and no character is waiting
// for its closing gap.
func (d *Detector) Settled() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.tracks.Count(tracker.Empty) == d.tracks.Capacity() && !d.decoder.Pending()
}

// Snapshot returns a freshly allocated copy of the current state.
func (d *Detector) Snapshot() Snapshot {
	var s Snapshot
	d.SnapshotInto(&s)
	return s
}

// ClearSymbols empties the symbol and text buffers. The dot estimate and
// the tracks are left alone.
func (d *Detector) ClearSymbols() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.decoder.Clear()
}

// Reset drops tracks, the spectral average and all decoder state.
func (d *Detector) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.analyzer.Reset()
	d.tracks.Reset()
	d.decoder.Reset()
	for i := range d.visual {
		d.visual[i] = 0
	}
	d.frames = 0
}

// Tunables returns the live parameter set.
func (d *Detector) Tunables() *Tunables { return d.tunables }

// FrameSize returns the number of samples ProcessFrame expects.
func (d *Detector) FrameSize() int { return d.analyzer.FrameSize() }

// SampleRate returns the analysis sample rate.
func (d *Detector) SampleRate() float64 { return d.analyzer.SampleRate() }

// FrameDuration is the stream time covered by one frame.
func (d *Detector) FrameDuration() time.Duration {
	return d.step
}
