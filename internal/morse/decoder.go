// SPDX-License-Identifier: MIT

// Package morse turns tone durations into Morse symbols. The unit (dot)
// duration is estimated online with exponential smoothing, so the decoder
// follows changes in keying speed. Symbols are also grouped into characters
// using the silence between tones and translated with the ITU table.
package morse

import (
	"errors"
	"fmt"
	"time"
)

// Symbol is one keyed element.
type Symbol byte

const (
	NoSymbol Symbol = 0
	Dot      Symbol = '.'
	Dash     Symbol = '-'
)

func (s Symbol) String() string {
	switch s {
	case Dot:
		return "dot"
	case Dash:
		return "dash"
	default:
		return "none"
	}
}

// ITU timing ratios, in dot units.
const (
	dashRatio     = 3.0
	dotDashCutoff = 2.0
	charGapRatio  = 3.0
	wordGapRatio  = 7.0
	parisMs       = 1200.0 // 60000 ms / 50 dots in "PARIS "
)

var (
	ErrInitialDot   = errors.New("initial dot duration must be positive")
	ErrAlpha        = errors.New("dot estimate alpha must be in (0, 1]")
	ErrSymbolBuffer = errors.New("symbol buffer size must be positive")
)

// Config holds the decoder constants.
type Config struct {
	InitialDotMs     float64
	Alpha            float64
	SymbolBufferSize int
	TextBufferSize   int // defaults to SymbolBufferSize
}

// Decoder is not safe for concurrent use.
type Decoder struct {
	cfg     Config
	dotMs   float64
	symbols []byte
	text    []byte

	// unitMs is the dot length measured on audible tone spans, the same
	// basis as the silence between tones. 0 until the first tone.
	unitMs float64

	group     int // position in tree, 0 when no character is open
	lastEnd   time.Time
	wordSpace bool // a word space was already written for the current gap
}

// NewDecoder validates cfg and preallocates the buffers.
func NewDecoder(cfg Config) (*Decoder, error) {
	if !(cfg.InitialDotMs > 0) {
		return nil, fmt.Errorf("%w, got %f", ErrInitialDot, cfg.InitialDotMs)
	}
	if !(cfg.Alpha > 0 && cfg.Alpha <= 1) {
		return nil, fmt.Errorf("%w, got %f", ErrAlpha, cfg.Alpha)
	}
	if cfg.SymbolBufferSize <= 0 {
		return nil, fmt.Errorf("%w, got %d", ErrSymbolBuffer, cfg.SymbolBufferSize)
	}
	if cfg.TextBufferSize <= 0 {
		cfg.TextBufferSize = cfg.SymbolBufferSize
	}
	return &Decoder{
		cfg:     cfg,
		dotMs:   cfg.InitialDotMs,
		symbols: make([]byte, 0, cfg.SymbolBufferSize),
		text:    make([]byte, 0, cfg.TextBufferSize),
	}, nil
}

// ToneEnded classifies a finished tone by duration, updates the dot
// estimate and appends the symbol. start and end bound the audible tone:
// its length feeds the gap unit, and end anchors the following silence.
// When the symbol buffer is full the symbol is dropped but the estimates
// still adapt.
func (d *Decoder) ToneEnded(duration time.Duration, start, end time.Time) Symbol {
	ms := float64(duration) / float64(time.Millisecond)

	sym := Dot
	obs := ms
	if ms >= dotDashCutoff*d.dotMs {
		sym = Dash
		obs = ms / dashRatio
	}
	d.dotMs = (1-d.cfg.Alpha)*d.dotMs + d.cfg.Alpha*obs

	if span := float64(end.Sub(start)) / float64(time.Millisecond); span > 0 {
		if sym == Dash {
			span /= dashRatio
		}
		if d.unitMs == 0 {
			d.unitMs = span
		} else {
			d.unitMs = (1-d.cfg.Alpha)*d.unitMs + d.cfg.Alpha*span
		}
	}

	if len(d.symbols) < cap(d.symbols) {
		d.symbols = append(d.symbols, byte(sym))
	}

	if d.group == 0 {
		d.group = 1
	}
	d.group = d.group * 2
	if sym == Dash {
		d.group++
	}
	if d.group >= len(tree) {
		// Longer than any table entry; keep it open so it renders as Unknown.
		d.group = len(tree)
	}

	if end.After(d.lastEnd) {
		d.lastEnd = end
	}
	d.wordSpace = false
	return sym
}

// ToneStarted is called when a new tone is confirmed. firstSeen is when it
// was first heard; the silence since the previous tone decides whether the
// open character is closed and whether a word space follows.
func (d *Decoder) ToneStarted(firstSeen time.Time) {
	d.gap(firstSeen)
}

// Idle closes the open character once the silence since the last tone
// reaches a character gap. Call it once per frame while no tone is being
// tracked; a tone still debouncing has already ended the silence.
func (d *Decoder) Idle(now time.Time) {
	if d.group == 0 || d.lastEnd.IsZero() {
		return
	}
	if float64(now.Sub(d.lastEnd))/float64(time.Millisecond) >= charGapRatio*d.GapUnitMs() {
		d.closeGroup()
	}
}

func (d *Decoder) gap(at time.Time) {
	if d.lastEnd.IsZero() {
		return
	}
	ms := float64(at.Sub(d.lastEnd)) / float64(time.Millisecond)
	unit := d.GapUnitMs()
	if ms < charGapRatio*unit {
		return
	}
	d.closeGroup()
	if ms >= wordGapRatio*unit && !d.wordSpace && len(d.text) > 0 && d.text[len(d.text)-1] != ' ' {
		d.writeText(' ')
		d.wordSpace = true
	}
}

func (d *Decoder) closeGroup() {
	if d.group == 0 {
		return
	}
	c := byte(Unknown)
	if d.group < len(tree) && tree[d.group] != 0 {
		c = tree[d.group]
	}
	d.writeText(c)
	d.group = 0
}

func (d *Decoder) writeText(c byte) {
	if len(d.text) < cap(d.text) {
		d.text = append(d.text, c)
	}
}

// Symbols returns the symbol buffer. It aliases internal state.
func (d *Decoder) Symbols() []byte { return d.symbols }

// Text returns the decoded characters. It aliases internal state.
func (d *Decoder) Text() []byte { return d.text }

// EstimatedDotMs returns the current unit estimate.
func (d *Decoder) EstimatedDotMs() float64 { return d.dotMs }

// GapUnitMs is the unit that character and word gaps are measured in. It
// falls back to the dot estimate before any tone has ended.
func (d *Decoder) GapUnitMs() float64 {
	if d.unitMs > 0 {
		return d.unitMs
	}
	return d.dotMs
}

// Pending reports whether a character is open, waiting for its closing gap.
func (d *Decoder) Pending() bool { return d.group != 0 }

// WPM converts the dot estimate to PARIS words per minute.
func (d *Decoder) WPM() float64 {
	if !(d.dotMs > 0) {
		return 0
	}
	return parisMs / d.dotMs
}

// Clear empties the symbol and text buffers and drops the open character.
// The dot estimate is kept.
func (d *Decoder) Clear() {
	d.symbols = d.symbols[:0]
	d.text = d.text[:0]
	d.group = 0
	d.lastEnd = time.Time{}
	d.wordSpace = false
}

// Reset clears the buffers and restores the initial dot estimate.
func (d *Decoder) Reset() {
	d.Clear()
	d.dotMs = d.cfg.InitialDotMs
	d.unitMs = 0
}
