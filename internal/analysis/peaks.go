// SPDX-License-Identifier: MIT
package analysis

// Peak is one local maximum of a power spectrum.
type Peak struct {
	Bin   int
	Power float64
}

// PeakDetector extracts up to maxPeaks non-overlapping local maxima from a
// power spectrum using greedy non-maximum suppression: after a peak is taken,
// it and SuppressionBins neighbours on each side are excluded so one broad
// lobe is never reported twice.
//
// Buffers are sized on the first call for a given spectrum length and reused
// afterwards; the returned slice is overwritten by the next call.
type PeakDetector struct {
	suppression int
	used        []bool
	peaks       []Peak
}

// NewPeakDetector creates a detector that suppresses suppressionBins bins on
// each side of every accepted peak. Negative values are treated as zero.
func NewPeakDetector(suppressionBins, maxPeaks int) *PeakDetector {
	if suppressionBins < 0 {
		suppressionBins = 0
	}
	if maxPeaks < 0 {
		maxPeaks = 0
	}
	return &PeakDetector{
		suppression: suppressionBins,
		peaks:       make([]Peak, 0, maxPeaks),
	}
}

// SuppressionBins returns the half-width of the suppression window.
func (d *PeakDetector) SuppressionBins() int { return d.suppression }

// FindPeaks returns up to maxPeaks peaks in descending power order. A bin
// qualifies when it is not at either edge, has not been suppressed, and
// satisfies power[i] > power[i-1] && power[i] >= power[i+1]. Among
// qualifying bins the strongest wins, ties going to the lower index.
// The search stops early once no qualifying bin remains.
func (d *PeakDetector) FindPeaks(power []float64, maxPeaks int) []Peak {
	d.peaks = d.peaks[:0]
	n := len(power)
	if n < 3 || maxPeaks <= 0 {
		return d.peaks
	}

	if cap(d.used) < n {
		d.used = make([]bool, n)
	}
	used := d.used[:n]
	for i := range used {
		used[i] = false
	}

	for len(d.peaks) < maxPeaks {
		best := -1
		bestPower := 0.0
		for i := 1; i < n-1; i++ {
			if used[i] {
				continue
			}
			p := power[i]
			if p > power[i-1] && p >= power[i+1] && (best < 0 || p > bestPower) {
				best = i
				bestPower = p
			}
		}
		if best < 0 {
			break
		}

		d.peaks = append(d.peaks, Peak{Bin: best, Power: bestPower})

		lo := max(best-d.suppression, 0)
		hi := min(best+d.suppression, n-1)
		for j := lo; j <= hi; j++ {
			used[j] = true
		}
	}

	return d.peaks
}
