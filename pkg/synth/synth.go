// SPDX-License-Identifier: MIT

// Package synth generates deterministic test signals: bin-aligned sines,
// tone mixtures, silence and keyed tone sequences, all as normalized
// float32 frames.
package synth

import (
	"math"
	"math/rand"
)

// BinFrequency returns the centre frequency of bin for the given frame size.
func BinFrequency(bin, frameSize int, sampleRate float64) float64 {
	return float64(bin) * sampleRate / float64(frameSize)
}

// Tone describes one sine component of a synthetic frame.
type Tone struct {
	FrequencyHz float64
	Amplitude   float64
}

// SineFrame returns one frame holding a single sine. offset is the index of
// the first sample in the continuous signal, so consecutive frames stay
// phase coherent.
func SineFrame(size int, sampleRate, frequency, amplitude float64, offset int) []float32 {
	return MixFrame(size, sampleRate, offset, Tone{FrequencyHz: frequency, Amplitude: amplitude})
}

// MixFrame sums the given tones into one frame.
func MixFrame(size int, sampleRate float64, offset int, tones ...Tone) []float32 {
	frame := make([]float32, size)
	for i := range frame {
		t := float64(offset+i) / sampleRate
		var v float64
		for _, tone := range tones {
			v += tone.Amplitude * math.Sin(2*math.Pi*tone.FrequencyHz*t)
		}
		frame[i] = float32(v)
	}
	return frame
}

// AddNoise adds uniform noise of the given peak amplitude in place. The seed
// keeps test runs reproducible.
func AddNoise(frame []float32, amplitude float64, seed int64) []float32 {
	rng := rand.New(rand.NewSource(seed))
	for i := range frame {
		frame[i] += float32((rng.Float64()*2 - 1) * amplitude)
	}
	return frame
}

// Silence returns a zeroed frame.
func Silence(size int) []float32 {
	return make([]float32, size)
}

// Keyed describes an on/off keyed signal in whole frames: each element of
// Pattern is a run length, alternating tone-on and tone-off starting with on.
type Keyed struct {
	FrequencyHz float64
	Amplitude   float64
	Pattern     []int
}

// Frames renders the keyed signal as a frame sequence.
func (k Keyed) Frames(size int, sampleRate float64) [][]float32 {
	var frames [][]float32
	offset := 0
	for i, run := range k.Pattern {
		on := i%2 == 0
		for range run {
			if on {
				frames = append(frames, SineFrame(size, sampleRate, k.FrequencyHz, k.Amplitude, offset))
			} else {
				frames = append(frames, Silence(size))
			}
			offset += size
		}
	}
	return frames
}
