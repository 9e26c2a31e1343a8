// SPDX-License-Identifier: MIT
package audio

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"tonewatch/internal/log"
)

// ErrBitDepth reports an unsupported recording bit depth.
var ErrBitDepth = errors.New("bit depth must be 16 or 24")

// Recorder encodes float samples in [-1, 1] as integer PCM WAV.
type Recorder struct {
	enc   *wav.Encoder
	buf   *audio.IntBuffer
	scale float64
}

// NewRecorder writes a WAV header to w. frameSize sizes the reusable
// conversion buffer (interleaved samples per Write call).
func NewRecorder(w io.WriteSeeker, sampleRate, bitDepth, channels, frameSize int) (*Recorder, error) {
	if bitDepth != 16 && bitDepth != 24 {
		return nil, ErrBitDepth
	}
	return &Recorder{
		enc: wav.NewEncoder(w, sampleRate, bitDepth, channels, 1),
		buf: &audio.IntBuffer{
			Format: &audio.Format{
				NumChannels: channels,
				SampleRate:  sampleRate,
			},
			Data:           make([]int, frameSize),
			SourceBitDepth: bitDepth,
		},
		scale: float64(audio.IntMaxSignedValue(bitDepth)),
	}, nil
}

// Write converts and appends samples, clipping anything outside [-1, 1].
func (r *Recorder) Write(samples []float32) error {
	if cap(r.buf.Data) < len(samples) {
		r.buf.Data = make([]int, len(samples))
	}
	r.buf.Data = r.buf.Data[:len(samples)]
	for i, s := range samples {
		v := float64(s)
		if v > 1 {
			v = 1
		} else if v < -1 {
			v = -1
		}
		r.buf.Data[i] = int(v * r.scale)
	}
	return r.enc.Write(r.buf)
}

// Close finalizes the WAV header. The underlying writer stays open.
func (r *Recorder) Close() error {
	return r.enc.Close()
}

// RecordingPath returns the configured output file, or a timestamped name
// inside the output directory, creating the directory if needed.
func RecordingPath(dir, file string, now time.Time) (string, error) {
	if file != "" {
		return file, nil
	}
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create recording directory: %w", err)
	}
	return filepath.Join(dir, now.Format("tonewatch-20060102-150405")+".wav"), nil
}

func (e *Engine) StartRecording(filename string) error {
	if e.isRecording.Load() {
		return fmt.Errorf("already recording")
	}

	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	rec, err := NewRecorder(file,
		int(e.config.Audio.SampleRate),
		e.config.Recording.BitDepth,
		e.config.Audio.InputChannels,
		len(e.inputBuffer))
	if err != nil {
		file.Close()
		os.Remove(filename)
		return err
	}

	e.recMu.Lock()
	e.recorder = rec
	e.recordFile = file
	e.writeFailures = 0
	e.recMu.Unlock()

	e.isRecording.Store(true)
	log.Infof("Recording to %s", filename)
	return nil
}

func (e *Engine) StopRecording() error {
	e.isRecording.Store(false)

	e.recMu.Lock()
	defer e.recMu.Unlock()
	if e.recorder == nil {
		return nil
	}

	errEnc := e.recorder.Close()
	errFile := e.recordFile.Close()
	name := e.recordFile.Name()
	e.recorder = nil
	e.recordFile = nil

	if err := errors.Join(errEnc, errFile); err != nil {
		return fmt.Errorf("stop recording: %w", err)
	}
	log.Infof("Recording saved to %s", name)
	return nil
}

// IsRecording reports whether input is being written to disk.
func (e *Engine) IsRecording() bool {
	return e.isRecording.Load()
}
