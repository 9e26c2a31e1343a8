// SPDX-License-Identifier: MIT
package analysis

import (
	"testing"

	"tonewatch/pkg/synth"
)

func peakBins(peaks []Peak) []int {
	bins := make([]int, len(peaks))
	for i, p := range peaks {
		bins[i] = p.Bin
	}
	return bins
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestFindPeaksTable(t *testing.T) {
	tests := []struct {
		name        string
		power       []float64
		suppression int
		maxPeaks    int
		want        []int
	}{
		{
			name:        "Side lobe suppressed",
			power:       []float64{0, 2, 8, 3, 7, 1, 0, 0, 0, 0, 6, 0},
			suppression: 3,
			maxPeaks:    4,
			want:        []int{2, 10},
		},
		{
			name:        "No suppression reports every maximum",
			power:       []float64{0, 2, 8, 3, 7, 1, 0, 0, 0, 0, 6, 0},
			suppression: 0,
			maxPeaks:    4,
			want:        []int{2, 4, 10},
		},
		{
			name:        "Descending power order",
			power:       []float64{0, 1, 0, 0, 0, 9, 0, 0, 0, 4, 0},
			suppression: 1,
			maxPeaks:    3,
			want:        []int{5, 9, 1},
		},
		{
			name:        "Limited by maxPeaks",
			power:       []float64{0, 1, 0, 0, 0, 9, 0, 0, 0, 4, 0},
			suppression: 1,
			maxPeaks:    2,
			want:        []int{5, 9},
		},
		{
			name:        "Plateau resolves to lower index",
			power:       []float64{0, 5, 5, 0},
			suppression: 0,
			maxPeaks:    2,
			want:        []int{1},
		},
		{
			name:        "Equal peaks ordered by index",
			power:       []float64{0, 3, 0, 0, 3, 0},
			suppression: 0,
			maxPeaks:    2,
			want:        []int{1, 4},
		},
		{
			name:        "Edges never qualify",
			power:       []float64{9, 0, 0, 0, 9},
			suppression: 0,
			maxPeaks:    2,
			want:        []int{},
		},
		{
			name:        "Silence",
			power:       make([]float64, 16),
			suppression: 3,
			maxPeaks:    4,
			want:        []int{},
		},
		{
			name:        "Too short",
			power:       []float64{1, 2},
			suppression: 0,
			maxPeaks:    1,
			want:        []int{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewPeakDetector(tt.suppression, tt.maxPeaks)
			got := peakBins(d.FindPeaks(tt.power, tt.maxPeaks))
			if !equalInts(got, tt.want) {
				t.Errorf("FindPeaks = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFindPeaksMultiToneSeparation(t *testing.T) {
	a := newTestAnalyzer(t)
	const suppression = 3
	binA, binB := 40, 40+2*suppression+2

	frame := synth.MixFrame(testFrameSize, testSampleRate, 0,
		synth.Tone{FrequencyHz: synth.BinFrequency(binA, testFrameSize, testSampleRate), Amplitude: 0.5},
		synth.Tone{FrequencyHz: synth.BinFrequency(binB, testFrameSize, testSampleRate), Amplitude: 0.4},
	)
	spec := a.Analyze(frame, openBand)

	d := NewPeakDetector(suppression, 4)
	peaks := d.FindPeaks(spec.Power, 4)
	if len(peaks) < 2 {
		t.Fatalf("got %d peaks, want at least 2", len(peaks))
	}
	if peaks[0].Bin != binA || peaks[1].Bin != binB {
		t.Errorf("top peaks = %v, want [%d %d]", peakBins(peaks[:2]), binA, binB)
	}
}

func TestFindPeaksSingleLobeReportedOnce(t *testing.T) {
	a := newTestAnalyzer(t)
	// Half a bin off centre: energy spreads over two bins of similar height.
	freq := synth.BinFrequency(120, testFrameSize, testSampleRate) + a.Resolution()/2
	spec := a.Analyze(synth.SineFrame(testFrameSize, testSampleRate, freq, 0.8, 0), openBand)

	d := NewPeakDetector(3, 4)
	for _, p := range d.FindPeaks(spec.Power, 4) {
		if p.Bin >= 117 && p.Bin <= 124 && p.Bin != 120 && p.Bin != 121 {
			t.Errorf("lobe reported again at bin %d", p.Bin)
		}
	}
	lobe := 0
	for _, p := range d.FindPeaks(spec.Power, 4) {
		if p.Bin >= 117 && p.Bin <= 124 {
			lobe++
		}
	}
	if lobe != 1 {
		t.Errorf("lobe reported %d times, want once", lobe)
	}
}

func TestFindPeaksHotPath(t *testing.T) {
	power := make([]float64, testFrameSize/2)
	for i := range power {
		power[i] = float64((i * 37) % 101)
	}
	d := NewPeakDetector(3, 4)
	d.FindPeaks(power, 4)

	allocs := testing.AllocsPerRun(100, func() {
		d.FindPeaks(power, 4)
	})
	if allocs > 0 {
		t.Errorf("Expected zero allocations in FindPeaks hot path, got %.1f", allocs)
	}
}
