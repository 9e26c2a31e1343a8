// SPDX-License-Identifier: MIT
package audio

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"tonewatch/internal/config"
	"tonewatch/internal/detector"
	"tonewatch/internal/log"
)

var ErrNotWAV = errors.New("not a valid WAV file")

// PCM is the first channel of a WAV file as normalized floats.
type PCM struct {
	SampleRate float64
	Channels   int
	BitDepth   int
	Samples    []float32
}

// Duration is the playing time of the samples.
func (p *PCM) Duration() time.Duration {
	if p.SampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(len(p.Samples)) / p.SampleRate * float64(time.Second))
}

// ReadWAV decodes integer PCM and keeps the first channel.
func ReadWAV(r io.ReadSeeker) (*PCM, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, ErrNotWAV
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("decode PCM: %w", err)
	}
	channels := buf.Format.NumChannels
	if channels < 1 {
		return nil, fmt.Errorf("%w: no channels", ErrNotWAV)
	}

	depth := buf.SourceBitDepth
	var offset int
	if depth == 8 {
		offset = 128 // 8-bit WAV is unsigned
	}
	scale := float64(audio.IntMaxSignedValue(depth))
	if scale == 0 {
		return nil, fmt.Errorf("%w: unsupported bit depth %d", ErrNotWAV, depth)
	}

	samples := make([]float32, len(buf.Data)/channels)
	for i := range samples {
		samples[i] = float32(float64(buf.Data[i*channels]-offset) / scale)
	}

	return &PCM{
		SampleRate: float64(buf.Format.SampleRate),
		Channels:   channels,
		BitDepth:   depth,
		Samples:    samples,
	}, nil
}

// LoadWAV reads a WAV file from disk.
func LoadWAV(path string) (*PCM, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	pcm, err := ReadWAV(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return pcm, nil
}

// Replay feeds samples to proc in frames of frameSize, stamping frame i
// with start + i*step. A short last frame is zero padded. It returns the
// number of frames fed.
func Replay(samples []float32, frameSize int, start time.Time, step time.Duration, proc FrameProcessor) int {
	frame := make([]float32, frameSize)
	n := 0
	for off := 0; off < len(samples); off += frameSize {
		c := copy(frame, samples[off:])
		clear(frame[c:])
		proc.ProcessFrame(frame, start.Add(time.Duration(n)*step))
		n++
	}
	return n
}

// maxDecodeTail bounds the silence DecodeFile appends after the file.
const maxDecodeTail = time.Minute

// DecodeResult summarizes an offline run.
type DecodeResult struct {
	Snapshot   detector.Snapshot
	Frames     int
	Duration   time.Duration
	SampleRate float64
}

// DecodeFile runs a WAV file through a fresh detector built from cfg with
// the given tunables. The file's sample rate replaces the configured one.
// Silence is appended until every tone has retired and the last character
// has been closed.
func DecodeFile(path string, cfg *config.Config, params detector.Params) (*DecodeResult, error) {
	pcm, err := LoadWAV(path)
	if err != nil {
		return nil, err
	}

	opts := cfg.DetectorOptions()
	opts.SampleRate = pcm.SampleRate
	det, err := detector.New(opts, detector.NewTunables(params, pcm.SampleRate))
	if err != nil {
		return nil, err
	}
	log.Infof("Decoding %s: %d ch, %d-bit, %.0f Hz, %s",
		path, pcm.Channels, pcm.BitDepth, pcm.SampleRate, pcm.Duration())

	step := det.FrameDuration()
	start := time.Now()
	n := Replay(pcm.Samples, opts.FrameSize, start, step, det)

	// Tail: silence until the last tone retires and its character closes.
	// The gap unit can grow with that last tone, so the length is not
	// known up front.
	silent := make([]float32, opts.FrameSize)
	for tail := time.Duration(0); !det.Settled() && tail < maxDecodeTail; tail += step {
		det.ProcessFrame(silent, start.Add(time.Duration(n)*step))
		n++
	}

	return &DecodeResult{
		Snapshot:   det.Snapshot(),
		Frames:     n,
		Duration:   pcm.Duration(),
		SampleRate: pcm.SampleRate,
	}, nil
}
