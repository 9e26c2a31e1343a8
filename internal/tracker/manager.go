// SPDX-License-Identifier: MIT
package tracker

import (
	"errors"
	"fmt"
	"math"
	"time"

	"tonewatch/internal/analysis"
)

var (
	// ErrCapacity is returned when MaxTracks is not positive.
	ErrCapacity = errors.New("track capacity must be positive")
	// ErrResolution is returned when the bin resolution is not positive.
	ErrResolution = errors.New("bin resolution must be positive")
	// ErrTolerance is returned when the frequency tolerance is negative.
	ErrTolerance = errors.New("frequency tolerance must not be negative")
)

const (
	// frequencySmoothing weights the previous estimate in the running
	// frequency average of a matched track.
	frequencySmoothing = 0.9
	// purityHalfWidth is the number of bins on each side of a peak that
	// count towards its purity.
	purityHalfWidth = 1
)

// Config fixes the manager's structural constants.
type Config struct {
	MaxTracks            int     // slot arena size
	PurityThreshold      float64 // fraction of total power a peak must exceed
	FrequencyToleranceHz float64 // matching radius around a track
	ResolutionHz         float64 // Hz per spectrum bin
}

// Gate holds the per-frame tunables the manager reads.
type Gate struct {
	BandpassLowHz  float64
	BandpassHighHz float64
	Persistence    time.Duration
}

// Manager owns the fixed-capacity track table. It is not safe for
// concurrent use; callers serialize Update with reads of the table.
type Manager struct {
	cfg         Config
	tracks      []Track
	matched     []bool
	transitions []Transition
}

// NewManager allocates a manager and its slot arena.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.MaxTracks <= 0 {
		return nil, fmt.Errorf("%w, got %d", ErrCapacity, cfg.MaxTracks)
	}
	if !(cfg.ResolutionHz > 0) {
		return nil, fmt.Errorf("%w, got %f", ErrResolution, cfg.ResolutionHz)
	}
	if cfg.FrequencyToleranceHz < 0 {
		return nil, fmt.Errorf("%w, got %f", ErrTolerance, cfg.FrequencyToleranceHz)
	}
	return &Manager{
		cfg:         cfg,
		tracks:      make([]Track, cfg.MaxTracks),
		matched:     make([]bool, cfg.MaxTracks),
		transitions: make([]Transition, 0, 2*cfg.MaxTracks),
	}, nil
}

// Purity returns the share of total power held by bin and its immediate
// neighbours. It is 0 when total is not positive.
func Purity(power []float64, bin int, total float64) float64 {
	if !(total > 0) || bin < 0 || bin >= len(power) {
		return 0
	}
	lo := max(bin-purityHalfWidth, 0)
	hi := min(bin+purityHalfWidth, len(power)-1)
	var sum float64
	for i := lo; i <= hi; i++ {
		sum += power[i]
	}
	return sum / total
}

// Update folds one frame of peaks into the table and returns the
// transitions it caused. The returned slice is reused by the next call.
//
// A peak qualifies when its purity exceeds the threshold and its frequency
// lies inside the band. Qualifying peaks refresh the nearest track within
// tolerance or open a Pending track in a free slot; with no free slot the
// peak is dropped. Each track absorbs at most one peak per frame.
func (m *Manager) Update(peaks []analysis.Peak, power []float64, totalPower float64, g Gate, now time.Time) []Transition {
	m.transitions = m.transitions[:0]
	for i := range m.matched {
		m.matched[i] = false
	}

	if totalPower > 0 {
		for _, pk := range peaks {
			m.matchPeak(pk, power, totalPower, g, now)
		}
	}

	m.retireCollisions(now)

	for i := range m.tracks {
		tr := &m.tracks[i]
		switch tr.State {
		case Pending:
			if m.matched[i] && now.Sub(tr.FirstSeenAt) >= g.Persistence {
				tr.State = Active
				tr.ToneStartedAt = now
				m.transitions = append(m.transitions, Transition{Slot: i, Kind: Activated, Track: *tr})
			} else if !m.matched[i] && now.Sub(tr.LastSeenAt) >= g.Persistence {
				*tr = Track{}
			}
		case Active:
			if !m.matched[i] && now.Sub(tr.LastSeenAt) >= g.Persistence {
				m.deactivate(i)
			}
		}
	}

	return m.transitions
}

func (m *Manager) matchPeak(pk analysis.Peak, power []float64, total float64, g Gate, now time.Time) {
	freq := float64(pk.Bin) * m.cfg.ResolutionHz
	if freq < g.BandpassLowHz || freq > g.BandpassHighHz {
		return
	}
	purity := Purity(power, pk.Bin, total)
	if !(purity > m.cfg.PurityThreshold) {
		return
	}

	if slot := m.nearest(freq); slot >= 0 {
		if m.matched[slot] {
			// Already refreshed by a stronger peak this frame.
			return
		}
		tr := &m.tracks[slot]
		tr.FrequencyHz = frequencySmoothing*tr.FrequencyHz + (1-frequencySmoothing)*freq
		tr.PurityPercent = purity * 100
		tr.LastSeenAt = now
		m.matched[slot] = true
		return
	}

	for i := range m.tracks {
		if m.tracks[i].State == Empty {
			m.tracks[i] = Track{
				FrequencyHz:   freq,
				PurityPercent: purity * 100,
				State:         Pending,
				FirstSeenAt:   now,
				LastSeenAt:    now,
			}
			m.matched[i] = true
			return
		}
	}
}

// nearest returns the non-Empty slot closest to freq within tolerance, or -1.
func (m *Manager) nearest(freq float64) int {
	best := -1
	bestDist := math.Inf(1)
	for i := range m.tracks {
		if m.tracks[i].State == Empty {
			continue
		}
		d := math.Abs(m.tracks[i].FrequencyHz - freq)
		if d <= m.cfg.FrequencyToleranceHz && d < bestDist {
			best = i
			bestDist = d
		}
	}
	return best
}

// retireCollisions keeps non-Empty tracks more than one tolerance apart.
// Smoothing can walk two tracks towards each other; the younger one is
// retired (with a Deactivated transition if it was Active).
func (m *Manager) retireCollisions(now time.Time) {
	for i := range m.tracks {
		if m.tracks[i].State == Empty {
			continue
		}
		for j := i + 1; j < len(m.tracks); j++ {
			if m.tracks[j].State == Empty || m.tracks[i].State == Empty {
				continue
			}
			if math.Abs(m.tracks[i].FrequencyHz-m.tracks[j].FrequencyHz) > m.cfg.FrequencyToleranceHz {
				continue
			}
			younger := j
			if m.tracks[i].FirstSeenAt.After(m.tracks[j].FirstSeenAt) {
				younger = i
			}
			older := i + j - younger
			if m.matched[younger] {
				m.tracks[older].LastSeenAt = now
				m.matched[older] = true
			}
			if m.tracks[younger].State == Active {
				m.deactivate(younger)
			} else {
				m.tracks[younger] = Track{}
			}
			m.matched[younger] = false
		}
	}
}

func (m *Manager) deactivate(slot int) {
	tr := m.tracks[slot]
	m.transitions = append(m.transitions, Transition{
		Slot:         slot,
		Kind:         Deactivated,
		Track:        tr,
		ToneDuration: tr.LastSeenAt.Sub(tr.ToneStartedAt),
	})
	m.tracks[slot] = Track{}
}

// Tracks returns the slot arena. The slice aliases internal state and must
// only be read under the same serialization as Update.
func (m *Manager) Tracks() []Track { return m.tracks }

// CopyTracks copies the slot arena into dst and returns the count copied.
func (m *Manager) CopyTracks(dst []Track) int {
	return copy(dst, m.tracks)
}

// Capacity returns the number of slots.
func (m *Manager) Capacity() int { return len(m.tracks) }

// Count returns how many slots are in state s.
func (m *Manager) Count(s State) int {
	n := 0
	for i := range m.tracks {
		if m.tracks[i].State == s {
			n++
		}
	}
	return n
}

// Reset empties every slot without emitting transitions.
func (m *Manager) Reset() {
	for i := range m.tracks {
		m.tracks[i] = Track{}
	}
}
