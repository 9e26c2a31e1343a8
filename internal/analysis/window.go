// SPDX-License-Identifier: MIT
package analysis

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/dsp/window"
)

// WindowFunc defines the type for selecting an FFT window function.
type WindowFunc int

// Enum for available window functions.
const (
	BartlettHann WindowFunc = iota
	Blackman
	BlackmanNuttall
	Hann
	Hamming
	Lanczos
	Nuttall
)

// String returns the config name of the window.
func (w WindowFunc) String() string {
	switch w {
	case BartlettHann:
		return "BartlettHann"
	case Blackman:
		return "Blackman"
	case BlackmanNuttall:
		return "BlackmanNuttall"
	case Hann:
		return "Hann"
	case Hamming:
		return "Hamming"
	case Lanczos:
		return "Lanczos"
	case Nuttall:
		return "Nuttall"
	default:
		return fmt.Sprintf("WindowFunc(%d)", int(w))
	}
}

// ParseWindowFunc converts a string name (case-insensitive) to a WindowFunc
// enum, returns a known default (Hann) and an error if the name is unknown.
func ParseWindowFunc(name string) (WindowFunc, error) {
	switch strings.ToLower(name) {
	case "bartletthann":
		return BartlettHann, nil
	case "blackman":
		return Blackman, nil
	case "blackmannuttall":
		return BlackmanNuttall, nil
	case "hann", "hanning", "":
		return Hann, nil
	case "hamming":
		return Hamming, nil
	case "lanczos":
		return Lanczos, nil
	case "nuttall":
		return Nuttall, nil
	default:
		return Hann, fmt.Errorf("unknown FFT window function name: '%s'", name)
	}
}

// Window holds precomputed tapering coefficients for one frame length.
// Coefficients are computed once at construction and never mutated.
type Window struct {
	kind   WindowFunc
	coeffs []float64
}

// NewWindow precomputes size coefficients of the given window. Unknown
// kinds fall back to Hann.
func NewWindow(kind WindowFunc, size int) *Window {
	coeffs := make([]float64, size)
	// gonum windows scale the slice in place, so start from ones.
	for i := range coeffs {
		coeffs[i] = 1.0
	}
	switch kind {
	case BartlettHann:
		window.BartlettHann(coeffs)
	case Blackman:
		window.Blackman(coeffs)
	case BlackmanNuttall:
		window.BlackmanNuttall(coeffs)
	case Hamming:
		window.Hamming(coeffs)
	case Lanczos:
		window.Lanczos(coeffs)
	case Nuttall:
		window.Nuttall(coeffs)
	default:
		kind = Hann
		window.Hann(coeffs)
	}
	return &Window{kind: kind, coeffs: coeffs}
}

// Kind returns the window function in use.
func (w *Window) Kind() WindowFunc { return w.kind }

// Len returns the number of coefficients.
func (w *Window) Len() int { return len(w.coeffs) }

// Coefficient returns coefficient i.
func (w *Window) Coefficient(i int) float64 { return w.coeffs[i] }

// Apply writes src[i]*scale*coeff[i] into dst as float64. Samples missing
// from a short src are zero-padded.
func (w *Window) Apply(dst []float64, src []float32, scale float64) {
	n := len(src)
	for i, c := range w.coeffs {
		if i < n {
			dst[i] = float64(src[i]) * scale * c
		} else {
			dst[i] = 0
		}
	}
}
