// SPDX-License-Identifier: MIT
package tracker

import (
	"errors"
	"math"
	"testing"
	"time"

	"tonewatch/internal/analysis"
)

const testResolution = 10.0 // Hz per bin

var (
	epoch    = time.Unix(1_700_000_000, 0)
	wideGate = Gate{BandpassLowHz: 0, BandpassHighHz: 20000, Persistence: 100 * time.Millisecond}
)

func at(ms int) time.Time { return epoch.Add(time.Duration(ms) * time.Millisecond) }

func newTestManager(t testing.TB, cfg Config) *Manager {
	t.Helper()
	if cfg.MaxTracks == 0 {
		cfg.MaxTracks = 4
	}
	if cfg.ResolutionHz == 0 {
		cfg.ResolutionHz = testResolution
	}
	if cfg.FrequencyToleranceHz == 0 {
		cfg.FrequencyToleranceHz = 30
	}
	if cfg.PurityThreshold == 0 {
		cfg.PurityThreshold = 0.2
	}
	m, err := NewManager(cfg)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	return m
}

// tones builds a spectrum with unit power in each bin.
func tones(size int, bins ...int) ([]float64, []analysis.Peak, float64) {
	power := make([]float64, size)
	peaks := make([]analysis.Peak, 0, len(bins))
	for _, b := range bins {
		power[b] = 1
		peaks = append(peaks, analysis.Peak{Bin: b, Power: 1})
	}
	return power, peaks, float64(len(bins))
}

type step struct {
	ms   int
	bins []int
}

// keyed returns one step every frameMs from 0 to endMs, with bins present
// while ms < onMs.
func keyed(frameMs, onMs, endMs int, bins ...int) []step {
	var steps []step
	for ms := 0; ms <= endMs; ms += frameMs {
		s := step{ms: ms}
		if ms < onMs {
			s.bins = bins
		}
		steps = append(steps, s)
	}
	return steps
}

func run(m *Manager, g Gate, steps []step) []Transition {
	var all []Transition
	for _, s := range steps {
		power, peaks, total := tones(512, s.bins...)
		all = append(all, m.Update(peaks, power, total, g, at(s.ms))...)
	}
	return all
}

func TestNewManagerRejectsBadConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want error
	}{
		{"Zero capacity", Config{MaxTracks: 0, ResolutionHz: 1}, ErrCapacity},
		{"Zero resolution", Config{MaxTracks: 4}, ErrResolution},
		{"Negative tolerance", Config{MaxTracks: 4, ResolutionHz: 1, FrequencyToleranceHz: -1}, ErrTolerance},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewManager(tt.cfg); !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestPurity(t *testing.T) {
	power := []float64{1, 2, 4, 2, 1}
	tests := []struct {
		name  string
		bin   int
		total float64
		want  float64
	}{
		{"Centre", 2, 10, 0.8},
		{"Left edge", 0, 10, 0.3},
		{"Right edge", 4, 10, 0.3},
		{"Zero total", 2, 0, 0},
		{"Out of range", 7, 10, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Purity(power, tt.bin, tt.total); math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("Purity = %f, want %f", got, tt.want)
			}
		})
	}
}

func TestShortToneNeverActivates(t *testing.T) {
	m := newTestManager(t, Config{})
	// Present for 60 ms, well under the 100 ms persistence.
	got := run(m, wideGate, keyed(20, 80, 400, 70))
	if len(got) != 0 {
		t.Fatalf("short tone produced transitions: %+v", got)
	}
	if n := m.Count(Empty); n != m.Capacity() {
		t.Errorf("%d empty slots after revert, want %d", n, m.Capacity())
	}
}

func TestLongToneActivatesOnce(t *testing.T) {
	m := newTestManager(t, Config{})
	got := run(m, wideGate, keyed(20, 420, 800, 70))

	if len(got) != 2 {
		t.Fatalf("got %d transitions, want 2: %+v", len(got), got)
	}
	on, off := got[0], got[1]
	if on.Kind != Activated || off.Kind != Deactivated || on.Slot != off.Slot {
		t.Fatalf("transitions = %s/%s on slots %d/%d", on.Kind, off.Kind, on.Slot, off.Slot)
	}
	if !on.Track.ToneStartedAt.Equal(at(100)) {
		t.Errorf("activated at %v, want +100ms", on.Track.ToneStartedAt.Sub(epoch))
	}
	// Last seen at 400 ms, so the tone lasted 300 ms after confirmation.
	if off.ToneDuration != 300*time.Millisecond {
		t.Errorf("tone duration = %v, want 300ms", off.ToneDuration)
	}
	if !off.Track.LastSeenAt.Equal(at(400)) {
		t.Errorf("last seen at %v, want +400ms", off.Track.LastSeenAt.Sub(epoch))
	}
	if math.Abs(off.Track.FrequencyHz-700) > 1e-9 {
		t.Errorf("frequency = %f, want 700", off.Track.FrequencyHz)
	}
}

func TestJitteringToneActivatesOnce(t *testing.T) {
	m := newTestManager(t, Config{})
	// The peak wanders up to two bins (20 Hz) around 700 Hz, inside the
	// 30 Hz tolerance.
	jitter := []int{70, 72, 69, 71, 68, 70, 72, 69}
	steps := keyed(20, 420, 800)
	for i := range steps {
		if steps[i].ms < 420 {
			steps[i].bins = []int{jitter[i%len(jitter)]}
		}
	}
	got := run(m, wideGate, steps)

	if len(got) != 2 {
		t.Fatalf("got %d transitions, want 2: %+v", len(got), got)
	}
	on, off := got[0], got[1]
	if on.Kind != Activated || off.Kind != Deactivated || on.Slot != off.Slot {
		t.Fatalf("transitions = %s/%s on slots %d/%d", on.Kind, off.Kind, on.Slot, off.Slot)
	}
	if off.ToneDuration != 300*time.Millisecond {
		t.Errorf("tone duration = %v, want 300ms", off.ToneDuration)
	}
	if math.Abs(off.Track.FrequencyHz-700) > 20 {
		t.Errorf("frequency = %f, want within 20 Hz of 700", off.Track.FrequencyHz)
	}
	if n := m.Count(Empty); n != m.Capacity() {
		t.Errorf("%d empty slots after the tone, want %d", n, m.Capacity())
	}
}

func TestPendingRevertsWithoutTransition(t *testing.T) {
	m := newTestManager(t, Config{})
	power, peaks, total := tones(512, 70)
	m.Update(peaks, power, total, wideGate, at(0))
	if m.Tracks()[0].State != Pending {
		t.Fatalf("slot 0 state = %s, want pending", m.Tracks()[0].State)
	}

	empty, _, _ := tones(512)
	if got := m.Update(nil, empty, 0, wideGate, at(99)); len(got) != 0 || m.Tracks()[0].State != Pending {
		t.Fatalf("reverted early: %+v, state %s", got, m.Tracks()[0].State)
	}
	if got := m.Update(nil, empty, 0, wideGate, at(100)); len(got) != 0 {
		t.Errorf("revert emitted %+v", got)
	}
	if m.Tracks()[0].State != Empty {
		t.Errorf("slot 0 state = %s, want empty", m.Tracks()[0].State)
	}
}

func TestCapacityDropsExtraTones(t *testing.T) {
	m := newTestManager(t, Config{PurityThreshold: 0.1})
	power, peaks, total := tones(512, 50, 60, 70, 80, 90)
	m.Update(peaks, power, total, wideGate, at(0))

	if n := m.Count(Pending); n != 4 {
		t.Fatalf("%d pending tracks, want 4", n)
	}
	for _, tr := range m.Tracks() {
		if tr.FrequencyHz == 900 {
			t.Error("fifth tone claimed a slot")
		}
	}
}

func TestPeakQualification(t *testing.T) {
	tests := []struct {
		name   string
		bins   []int
		gate   Gate
		purity float64
		want   int
	}{
		{"Inside band", []int{70}, Gate{BandpassLowHz: 300, BandpassHighHz: 3000}, 0.2, 1},
		{"Below band", []int{20}, Gate{BandpassLowHz: 300, BandpassHighHz: 3000}, 0.2, 0},
		{"Above band", []int{400}, Gate{BandpassLowHz: 300, BandpassHighHz: 3000}, 0.2, 0},
		{"Band edges inclusive", []int{30, 300}, Gate{BandpassLowHz: 300, BandpassHighHz: 3000}, 0.2, 2},
		{"Impure", []int{50, 60, 70, 80, 90}, wideGate, 0.2, 0},
		{"Purity strictly above threshold", []int{50, 60}, wideGate, 0.5, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestManager(t, Config{PurityThreshold: tt.purity})
			power, peaks, total := tones(512, tt.bins...)
			m.Update(peaks, power, total, tt.gate, at(0))
			if n := m.Count(Pending); n != tt.want {
				t.Errorf("%d pending tracks, want %d", n, tt.want)
			}
		})
	}
}

func TestZeroTotalPowerCreatesNothing(t *testing.T) {
	m := newTestManager(t, Config{})
	power, peaks, _ := tones(512, 70)
	if got := m.Update(peaks, power, 0, wideGate, at(0)); len(got) != 0 {
		t.Errorf("transitions on zero power: %+v", got)
	}
	if n := m.Count(Empty); n != m.Capacity() {
		t.Errorf("%d empty slots, want %d", n, m.Capacity())
	}
}

func TestMatchingWithinTolerance(t *testing.T) {
	m := newTestManager(t, Config{})

	power, peaks, total := tones(512, 100)
	m.Update(peaks, power, total, wideGate, at(0))

	power, peaks, total = tones(512, 102)
	m.Update(peaks, power, total, wideGate, at(20))
	if n := m.Count(Pending); n != 1 {
		t.Fatalf("%d pending tracks, want 1", n)
	}
	if got := m.Tracks()[0].FrequencyHz; math.Abs(got-1002) > 1e-9 {
		t.Errorf("smoothed frequency = %f, want 1002", got)
	}

	power, peaks, total = tones(512, 106)
	m.Update(peaks, power, total, wideGate, at(40))
	if n := m.Count(Pending); n != 2 {
		t.Errorf("%d pending tracks, want 2 after a distant peak", n)
	}
}

func TestNearbyPeaksAbsorbedInOneFrame(t *testing.T) {
	m := newTestManager(t, Config{PurityThreshold: 0.1})
	power, peaks, total := tones(512, 100, 102)
	m.Update(peaks, power, total, wideGate, at(0))

	if n := m.Count(Pending); n != 1 {
		t.Fatalf("%d pending tracks, want 1", n)
	}
	if got := m.Tracks()[0].FrequencyHz; got != 1000 {
		t.Errorf("frequency = %f, want 1000", got)
	}
}

func TestTracksStaySeparated(t *testing.T) {
	m := newTestManager(t, Config{ResolutionHz: 1, PurityThreshold: 0.1})
	g := wideGate
	g.Persistence = 0

	power, peaks, total := tones(2048, 1000, 1031)
	m.Update(peaks, power, total, g, at(0))
	if n := m.Count(Active); n != 2 {
		t.Fatalf("%d active tracks, want 2", n)
	}

	// The second tone drifts down until its track would sit within
	// tolerance of the first.
	power, peaks, total = tones(2048, 1000, 1029)
	retired := false
	for i := 1; i <= 40; i++ {
		for _, tr := range m.Update(peaks, power, total, g, at(i*20)) {
			if tr.Kind == Deactivated && tr.Slot == 1 {
				retired = true
			}
		}
		live := m.Tracks()
		for a := range live {
			for b := a + 1; b < len(live); b++ {
				if live[a].State == Empty || live[b].State == Empty {
					continue
				}
				if d := math.Abs(live[a].FrequencyHz - live[b].FrequencyHz); d <= 30 {
					t.Fatalf("frame %d: slots %d and %d only %.2f Hz apart", i, a, b, d)
				}
			}
		}
	}
	if !retired {
		t.Error("younger track never retired")
	}
	if m.Tracks()[0].State != Active {
		t.Errorf("older track state = %s, want active", m.Tracks()[0].State)
	}
}

func TestReset(t *testing.T) {
	m := newTestManager(t, Config{})
	power, peaks, total := tones(512, 70)
	m.Update(peaks, power, total, wideGate, at(0))
	m.Reset()
	if n := m.Count(Empty); n != m.Capacity() {
		t.Errorf("%d empty slots after Reset, want %d", n, m.Capacity())
	}
	dst := make([]Track, m.Capacity())
	if n := m.CopyTracks(dst); n != m.Capacity() {
		t.Errorf("CopyTracks copied %d, want %d", n, m.Capacity())
	}
}

func TestUpdateHotPath(t *testing.T) {
	m := newTestManager(t, Config{PurityThreshold: 0.1})
	power, peaks, total := tones(512, 50, 70, 90)
	ms := 0
	m.Update(peaks, power, total, wideGate, at(ms))

	allocs := testing.AllocsPerRun(100, func() {
		ms += 20
		m.Update(peaks, power, total, wideGate, at(ms))
	})
	if allocs > 0 {
		t.Errorf("Expected zero allocations in Update hot path, got %.1f", allocs)
	}
}

func BenchmarkUpdate(b *testing.B) {
	m := newTestManager(b, Config{PurityThreshold: 0.1})
	power, peaks, total := tones(1024, 50, 70, 90, 110)
	now := epoch
	b.ReportAllocs()
	for b.Loop() {
		now = now.Add(46 * time.Millisecond)
		m.Update(peaks, power, total, wideGate, now)
	}
}
