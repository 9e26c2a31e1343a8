// SPDX-License-Identifier: MIT
package audio

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"tonewatch/internal/config"
	"tonewatch/internal/tracker"
	"tonewatch/pkg/synth"
)

// writeWAV renders frames to a mono 16-bit file.
func writeWAV(t *testing.T, frames [][]float32, frameSize int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "signal.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	rec, err := NewRecorder(f, testSampleRate, 16, 1, frameSize)
	if err != nil {
		t.Fatalf("NewRecorder: %v", err)
	}
	for _, frame := range frames {
		if err := rec.Write(frame); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}
	if err := rec.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	return path
}

func TestDecodeFile(t *testing.T) {
	tests := []struct {
		name    string
		pattern []int
		symbols string
		text    string
	}{
		// Both end right after the last tone; the tail has to finish them.
		{"K then E", []int{12, 4, 4, 4, 12, 14, 4}, "-.-.", "KE"},
		{"Long final tone", []int{4, 14, 100}, ".-", "ET"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.NewConfig()
			frameSize := cfg.Audio.FramesPerBuffer
			frames := synth.Keyed{
				FrequencyHz: synth.BinFrequency(32, frameSize, testSampleRate),
				Amplitude:   0.5,
				Pattern:     tt.pattern,
			}.Frames(frameSize, testSampleRate)
			path := writeWAV(t, frames, frameSize)

			res, err := DecodeFile(path, cfg, cfg.Params())
			if err != nil {
				t.Fatalf("DecodeFile: %v", err)
			}

			s := res.Snapshot
			if got := string(s.Symbols); got != tt.symbols {
				t.Errorf("symbols = %q, want %q", got, tt.symbols)
			}
			if got := string(s.Text); got != tt.text {
				t.Errorf("text = %q, want %q", got, tt.text)
			}
			for i, tr := range s.Tracks {
				if tr.State != tracker.Empty {
					t.Errorf("slot %d still %v after the tail", i, tr.State)
				}
			}
			if res.Frames <= len(frames) {
				t.Errorf("frames = %d, want a silent tail after %d signal frames", res.Frames, len(frames))
			}
			if res.SampleRate != testSampleRate {
				t.Errorf("sample rate = %.0f", res.SampleRate)
			}
		})
	}
}

func TestDecodeFileUsesFileSampleRate(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Audio.SampleRate = 8000

	path := writeWAV(t, [][]float32{synth.Silence(cfg.Audio.FramesPerBuffer)}, cfg.Audio.FramesPerBuffer)
	res, err := DecodeFile(path, cfg, cfg.Params())
	if err != nil {
		t.Fatalf("DecodeFile: %v", err)
	}
	if res.SampleRate != testSampleRate {
		t.Errorf("sample rate = %.0f, want the file's %d", res.SampleRate, testSampleRate)
	}
	if res.Snapshot.ResolutionHz <= 21 || res.Snapshot.ResolutionHz >= 22 {
		t.Errorf("resolution = %.2f Hz/bin, want 44.1 kHz spacing", res.Snapshot.ResolutionHz)
	}
}

func TestReadWAVRejectsGarbage(t *testing.T) {
	_, err := ReadWAV(bytes.NewReader([]byte("definitely not a riff file")))
	if !errors.Is(err, ErrNotWAV) {
		t.Errorf("ReadWAV() = %v, want ErrNotWAV", err)
	}
}

func TestLoadWAVMissingFile(t *testing.T) {
	if _, err := LoadWAV(filepath.Join(t.TempDir(), "absent.wav")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("LoadWAV() = %v, want ErrNotExist", err)
	}
}

func TestReplayFramesAndClock(t *testing.T) {
	const frameSize = 4
	samples := []float32{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	step := 10 * time.Millisecond

	var frames [][]float32
	var stamps []time.Time
	n := Replay(samples, frameSize, epoch, step, FrameProcessorFunc(func(f []float32, now time.Time) {
		frames = append(frames, append([]float32(nil), f...))
		stamps = append(stamps, now)
	}))

	if n != 3 || len(frames) != 3 {
		t.Fatalf("frames = %d, want 3", n)
	}
	last := frames[2]
	if last[0] != 9 || last[1] != 10 || last[2] != 0 || last[3] != 0 {
		t.Errorf("last frame = %v, want zero padded", last)
	}
	for i, s := range stamps {
		if want := epoch.Add(time.Duration(i) * step); !s.Equal(want) {
			t.Errorf("frame %d stamped %v, want %v", i, s, want)
		}
	}
}

func TestPCMDuration(t *testing.T) {
	p := &PCM{SampleRate: 1000, Samples: make([]float32, 1500)}
	if got := p.Duration(); got != 1500*time.Millisecond {
		t.Errorf("Duration() = %v", got)
	}
}
