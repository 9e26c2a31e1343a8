// SPDX-License-Identifier: MIT
package detector

import (
	"math"
	"sync/atomic"
	"time"
)

// Tunable ranges. Setters clamp into these instead of failing.
const (
	MinGainDB        = -40.0
	MaxGainDB        = 40.0
	MinPersistence   = 10 * time.Millisecond
	MaxPersistence   = 2000 * time.Millisecond
	MinSquelchLevel  = 0.0
	MaxSquelchLevel  = 1.0
	DefaultLowHz     = 300.0
	DefaultHighHz    = 3000.0
	DefaultSquelch   = 0.01
	DefaultPersistMs = 100
)

// Params is a plain copy of the tunable parameters.
type Params struct {
	GainDB           float64
	BandpassLowHz    float64
	BandpassHighHz   float64
	Persistence      time.Duration
	SquelchEnabled   bool
	SquelchThreshold float64
	AveragingEnabled bool
}

// DefaultParams returns the startup tunables.
func DefaultParams() Params {
	return Params{
		BandpassLowHz:    DefaultLowHz,
		BandpassHighHz:   DefaultHighHz,
		Persistence:      DefaultPersistMs * time.Millisecond,
		SquelchThreshold: DefaultSquelch,
	}
}

// atomicFloat stores a float64 as its IEEE bits.
type atomicFloat struct{ bits atomic.Uint64 }

func (f *atomicFloat) Load() float64   { return math.Float64frombits(f.bits.Load()) }
func (f *atomicFloat) Store(v float64) { f.bits.Store(math.Float64bits(v)) }

// Tunables holds the live parameters. The UI or config side writes through
// the clamping setters; the audio callback reads with Load and never
// blocks. A reader may observe a mix of old and new fields for one frame.
type Tunables struct {
	nyquist float64

	gainDB      atomicFloat
	lowHz       atomicFloat
	highHz      atomicFloat
	persistence atomic.Int64
	squelch     atomic.Bool
	threshold   atomicFloat
	averaging   atomic.Bool
}

// NewTunables clamps p into range for a stream at sampleRate Hz.
func NewTunables(p Params, sampleRate float64) *Tunables {
	t := &Tunables{nyquist: sampleRate / 2}
	t.Store(p)
	return t
}

// Load returns a copy of the current values.
func (t *Tunables) Load() Params {
	return Params{
		GainDB:           t.gainDB.Load(),
		BandpassLowHz:    t.lowHz.Load(),
		BandpassHighHz:   t.highHz.Load(),
		Persistence:      time.Duration(t.persistence.Load()),
		SquelchEnabled:   t.squelch.Load(),
		SquelchThreshold: t.threshold.Load(),
		AveragingEnabled: t.averaging.Load(),
	}
}

// Store replaces every value, clamping each one.
func (t *Tunables) Store(p Params) {
	t.SetGainDB(p.GainDB)
	t.SetBandpassLow(p.BandpassLowHz)
	t.SetBandpassHigh(p.BandpassHighHz)
	t.SetPersistence(p.Persistence)
	t.SetSquelch(p.SquelchEnabled)
	t.SetSquelchThreshold(p.SquelchThreshold)
	t.SetAveraging(p.AveragingEnabled)
}

// Nyquist returns the upper band-pass limit.
func (t *Tunables) Nyquist() float64 { return t.nyquist }

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}

// SetGainDB sets the input gain and returns the stored value.
func (t *Tunables) SetGainDB(db float64) float64 {
	db = clamp(db, MinGainDB, MaxGainDB)
	t.gainDB.Store(db)
	return db
}

// SetBandpassLow sets the lower band edge. The edges are not ordered
// against each other; an inverted band simply passes nothing.
func (t *Tunables) SetBandpassLow(hz float64) float64 {
	hz = clamp(hz, 0, t.nyquist)
	t.lowHz.Store(hz)
	return hz
}

// SetBandpassHigh sets the upper band edge.
func (t *Tunables) SetBandpassHigh(hz float64) float64 {
	hz = clamp(hz, 0, t.nyquist)
	t.highHz.Store(hz)
	return hz
}

// SetPersistence sets the debounce time.
func (t *Tunables) SetPersistence(d time.Duration) time.Duration {
	d = max(MinPersistence, min(MaxPersistence, d))
	t.persistence.Store(int64(d))
	return d
}

func (t *Tunables) SetSquelch(on bool) { t.squelch.Store(on) }

// SetSquelchThreshold sets the visual level below which bins are zeroed.
func (t *Tunables) SetSquelchThreshold(v float64) float64 {
	v = clamp(v, MinSquelchLevel, MaxSquelchLevel)
	t.threshold.Store(v)
	return v
}

func (t *Tunables) SetAveraging(on bool) { t.averaging.Store(on) }

// The Adjust and Toggle helpers assume a single writer.

func (t *Tunables) AdjustGainDB(delta float64) float64 {
	return t.SetGainDB(t.gainDB.Load() + delta)
}

func (t *Tunables) AdjustBandpassLow(delta float64) float64 {
	return t.SetBandpassLow(t.lowHz.Load() + delta)
}

func (t *Tunables) AdjustBandpassHigh(delta float64) float64 {
	return t.SetBandpassHigh(t.highHz.Load() + delta)
}

func (t *Tunables) AdjustPersistence(delta time.Duration) time.Duration {
	return t.SetPersistence(time.Duration(t.persistence.Load()) + delta)
}

func (t *Tunables) AdjustSquelchThreshold(delta float64) float64 {
	return t.SetSquelchThreshold(t.threshold.Load() + delta)
}

func (t *Tunables) ToggleSquelch() bool {
	on := !t.squelch.Load()
	t.squelch.Store(on)
	return on
}

func (t *Tunables) ToggleAveraging() bool {
	on := !t.averaging.Load()
	t.averaging.Store(on)
	return on
}
