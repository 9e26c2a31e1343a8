// SPDX-License-Identifier: MIT
/*
Package audio feeds analysis frames to a FrameProcessor, either live from
PortAudio or offline from a WAV file.

Thread Safety:
- The stream callback runs on a locked OS thread and uses pre-allocated
  buffers only
- Recording state is switched atomically; the callback never blocks on it
*/
package audio

import (
	"fmt"
	"os"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gordonklaus/portaudio"

	"tonewatch/internal/config"
	"tonewatch/internal/log"
)

// maxWriteFailures stops a recording after this many consecutive failed writes.
const maxWriteFailures = 5

type Engine struct {
	config *config.Config
	proc   FrameProcessor

	// Audio input handling.
	inputBuffer  []float32 // interleaved, frames x channels
	monoFrame    []float32 // first channel only
	inputDevice  *portaudio.DeviceInfo
	inputLatency time.Duration
	inputStream  *portaudio.Stream

	// Recording state.
	isRecording   atomic.Bool
	recMu         sync.Mutex
	recorder      *Recorder
	recordFile    *os.File
	writeFailures int
}

func NewEngine(cfg *config.Config, proc FrameProcessor) (*Engine, error) {
	if proc == nil {
		return nil, fmt.Errorf("audio engine needs a frame processor")
	}
	inputDevice, err := InputDevice(cfg.Audio.InputDevice)
	if err != nil {
		return nil, err
	}

	channels := cfg.Audio.InputChannels
	if channels > inputDevice.MaxInputChannels {
		return nil, fmt.Errorf("device %s has %d input channels, %d requested",
			inputDevice.Name, inputDevice.MaxInputChannels, channels)
	}

	e := newEngine(cfg, proc)
	e.inputDevice = inputDevice
	if cfg.Audio.LowLatency {
		e.inputLatency = inputDevice.DefaultLowInputLatency
	} else {
		e.inputLatency = inputDevice.DefaultHighInputLatency
	}
	return e, nil
}

// newEngine allocates the stream buffers without touching PortAudio.
func newEngine(cfg *config.Config, proc FrameProcessor) *Engine {
	frames := cfg.Audio.FramesPerBuffer
	return &Engine{
		config:      cfg,
		proc:        proc,
		inputBuffer: make([]float32, frames*cfg.Audio.InputChannels),
		monoFrame:   make([]float32, frames),
	}
}

func (e *Engine) StartInputStream() error {
	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Channels: e.config.Audio.InputChannels,
			Device:   e.inputDevice,
			Latency:  e.inputLatency,
		},
		Output: portaudio.StreamDeviceParameters{
			Channels: 0,
			Device:   nil,
		},
		FramesPerBuffer: e.config.Audio.FramesPerBuffer,
		SampleRate:      e.config.Audio.SampleRate,
	}

	stream, err := portaudio.OpenStream(params, e.processInputStream)
	if err != nil {
		return fmt.Errorf("open input stream: %w", err)
	}
	e.inputStream = stream

	if err := e.inputStream.Start(); err != nil {
		e.inputStream.Close()
		e.inputStream = nil
		return fmt.Errorf("start input stream: %w", err)
	}

	log.Infof("Input stream started on %s (%d ch, %.0f Hz, %d frames)",
		e.inputDevice.Name, e.config.Audio.InputChannels,
		e.config.Audio.SampleRate, e.config.Audio.FramesPerBuffer)
	return nil
}

func (e *Engine) StopInputStream() error {
	if e.inputStream == nil {
		return nil
	}
	if err := e.inputStream.Stop(); err != nil {
		return err
	}
	if err := e.inputStream.Close(); err != nil {
		return err
	}
	e.inputStream = nil
	log.Infof("Input stream stopped")
	return nil
}

// processInputStream is the PortAudio callback.
func (e *Engine) processInputStream(in []float32) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	e.processBuffer(in, time.Now())
}

// processBuffer extracts the first channel, hands it to the processor and
// records the raw input when recording is on. No allocations unless the
// recorder writes.
func (e *Engine) processBuffer(in []float32, now time.Time) {
	n := copy(e.inputBuffer, in)
	buf := e.inputBuffer[:n]

	channels := e.config.Audio.InputChannels
	if channels == 1 {
		copy(e.monoFrame, buf)
	} else {
		for i := range e.monoFrame {
			j := i * channels
			if j < len(buf) {
				e.monoFrame[i] = buf[j]
			} else {
				e.monoFrame[i] = 0
			}
		}
	}
	e.proc.ProcessFrame(e.monoFrame, now)

	if e.isRecording.Load() {
		e.record(buf)
	}
}

// record never waits for the recorder lock; a frame is skipped while a
// start or stop is in progress.
func (e *Engine) record(buf []float32) {
	if !e.recMu.TryLock() {
		return
	}
	defer e.recMu.Unlock()
	if e.recorder == nil {
		return
	}

	if err := e.recorder.Write(buf); err != nil {
		e.writeFailures++
		log.Errorf("Error writing to WAV file: %v", err)
		if e.writeFailures >= maxWriteFailures {
			log.Errorf("Recording stopped after %d consecutive write failures", e.writeFailures)
			e.isRecording.Store(false)
		}
		return
	}
	e.writeFailures = 0
}

func (e *Engine) Close() error {
	if err := e.StopRecording(); err != nil {
		return err
	}
	return e.StopInputStream()
}
