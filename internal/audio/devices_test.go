// SPDX-License-Identifier: MIT
package audio

import (
	"bytes"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/gordonklaus/portaudio"
)

var mockDevices = []*portaudio.DeviceInfo{
	{
		Name:                    "Built-in Microphone",
		MaxInputChannels:        2,
		DefaultSampleRate:       44100,
		DefaultLowInputLatency:  5 * time.Millisecond,
		DefaultHighInputLatency: 20 * time.Millisecond,
		HostApi:                 &portaudio.HostApiInfo{Name: "Core Audio"},
	},
	{
		Name:              "Built-in Output",
		MaxOutputChannels: 2,
		DefaultSampleRate: 48000,
	},
	{
		Name:              "USB Interface",
		MaxInputChannels:  4,
		MaxOutputChannels: 4,
		DefaultSampleRate: 96000,
	},
}

// mockPortAudio swaps the PortAudio entry points for the test's duration.
func mockPortAudio(t *testing.T, devices []*portaudio.DeviceInfo, devErr, defErr error) {
	t.Helper()
	origDevices, origDefault := paLibDevicesFunc, paLibDefaultInputDeviceFunc
	t.Cleanup(func() {
		paLibDevicesFunc = origDevices
		paLibDefaultInputDeviceFunc = origDefault
	})
	paLibDevicesFunc = func() ([]*portaudio.DeviceInfo, error) { return devices, devErr }
	paLibDefaultInputDeviceFunc = func() (*portaudio.DeviceInfo, error) {
		if defErr != nil {
			return nil, defErr
		}
		return devices[0], nil
	}
}

func TestHostDevices(t *testing.T) {
	mockPortAudio(t, mockDevices, nil, nil)

	devices, err := HostDevices()
	if err != nil {
		t.Fatalf("HostDevices error: %v", err)
	}
	if len(devices) != len(mockDevices) {
		t.Fatalf("got %d devices, want %d", len(devices), len(mockDevices))
	}
	for i, d := range devices {
		if d.ID != i {
			t.Errorf("Device ID mismatch: got %d, want %d", d.ID, i)
		}
	}
	if !devices[0].IsDefaultInput || devices[2].IsDefaultInput {
		t.Error("default input not flagged on device 0 only")
	}
	if devices[0].HostAPI != "Core Audio" {
		t.Errorf("host API = %q", devices[0].HostAPI)
	}

	kinds := []string{"Input", "Output", "Input/Output"}
	for i, want := range kinds {
		if got := devices[i].Kind(); got != want {
			t.Errorf("device %d kind = %q, want %q", i, got, want)
		}
	}
}

func TestHostDevices_paDevicesError(t *testing.T) {
	mockPortAudio(t, nil, fmt.Errorf("mock error"), nil)

	_, err := HostDevices()
	if err == nil || !strings.Contains(err.Error(), "mock error") {
		t.Errorf("expected mock error, got %v", err)
	}
}

func TestInputDevice(t *testing.T) {
	mockPortAudio(t, mockDevices, nil, nil)

	tests := []struct {
		name   string
		id     int
		want   string
		substr string
	}{
		{"Default", -1, "Built-in Microphone", ""},
		{"Valid input device", 2, "USB Interface", ""},
		{"Negative ID", -2, "", "invalid device ID"},
		{"Too high ID", len(mockDevices) + 10, "", "invalid device ID"},
		{"Non-input device", 1, "", "does not support input"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dev, err := InputDevice(tt.id)
			if tt.substr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.substr) {
					t.Errorf("Error = %v, want substring %q", err, tt.substr)
				}
				return
			}
			if err != nil {
				t.Fatalf("InputDevice(%d) error: %v", tt.id, err)
			}
			if dev.Name != tt.want {
				t.Errorf("device = %q, want %q", dev.Name, tt.want)
			}
		})
	}
}

func TestInputDevice_paDefaultInputDeviceError(t *testing.T) {
	mockPortAudio(t, mockDevices, nil, fmt.Errorf("mock default input error"))

	_, err := InputDevice(-1)
	if err == nil || !strings.Contains(err.Error(), "mock default input error") {
		t.Errorf("expected mock error, got %v", err)
	}
}

func TestErrorInitialize(t *testing.T) {
	orig := paLibInitialize
	defer func() { paLibInitialize = orig }()

	paLibInitialize = func() error { return nil }
	if err := Initialize(); err != nil {
		t.Errorf("expected nil, got %v", err)
	}

	paLibInitialize = func() error { return fmt.Errorf("mock init error") }
	if err := Initialize(); err == nil || !strings.Contains(err.Error(), "mock init error") {
		t.Errorf("expected mock init error, got %v", err)
	}
}

func TestErrorTerminate(t *testing.T) {
	orig := paLibTerminate
	defer func() { paLibTerminate = orig }()

	paLibTerminate = func() error { return nil }
	if err := Terminate(); err != nil {
		t.Errorf("expected nil, got %v", err)
	}

	paLibTerminate = func() error { return fmt.Errorf("mock term error") }
	if err := Terminate(); err == nil || !strings.Contains(err.Error(), "mock term error") {
		t.Errorf("expected mock term error, got %v", err)
	}
}

func TestNilDevices(t *testing.T) {
	mockPortAudio(t, nil, nil, nil)

	devices, err := paDevices()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if devices == nil || len(devices) != 0 {
		t.Errorf("expected empty slice, got %v", devices)
	}
}

func TestPortAudioNotInitialized(t *testing.T) {
	mockPortAudio(t, nil, fmt.Errorf("PortAudio not initialized"), nil)

	devices, err := paDevices()
	if err == nil || !strings.Contains(err.Error(), "PortAudio not initialized") {
		t.Errorf("expected 'PortAudio not initialized' error, got %v", err)
	}
	if devices != nil {
		t.Errorf("expected devices to be nil on error, got %v", devices)
	}
}

func TestListDevices(t *testing.T) {
	mockPortAudio(t, mockDevices, nil, nil)

	var buf bytes.Buffer
	if err := ListDevices(&buf); err != nil {
		t.Fatalf("ListDevices: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"[0] Built-in Microphone (Input) *default input*",
		"Host API: Core Audio",
		"[1] Built-in Output (Output)",
		"[2] USB Interface (Input/Output)",
		"44.1 kHz",
		"Low=5.00ms, High=20.00ms",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("listing missing %q:\n%s", want, out)
		}
	}
}
