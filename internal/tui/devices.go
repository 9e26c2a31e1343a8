// SPDX-License-Identifier: MIT
package tui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"

	"tonewatch/internal/audio"
)

// ErrNoInputDevices is returned when nothing can be picked.
var ErrNoInputDevices = errors.New("no audio input devices found")

// ErrCancelled is returned when the picker is closed without a choice.
var ErrCancelled = errors.New("device selection cancelled")

// DevicePicker lists input-capable devices and lets the user choose one.
type DevicePicker struct {
	devices       []audio.Device
	selectedIndex int
	chosen        bool
	viewport      viewport.Model
	ready         bool
	help          help.Model
}

// NewDevicePicker keeps only devices with input channels and preselects
// the system default input.
func NewDevicePicker(all []audio.Device) DevicePicker {
	m := DevicePicker{help: help.New()}
	for _, d := range all {
		if d.MaxInputChannels < 1 {
			continue
		}
		if d.IsDefaultInput {
			m.selectedIndex = len(m.devices)
		}
		m.devices = append(m.devices, d)
	}
	return m
}

func (m DevicePicker) Init() tea.Cmd { return nil }

func (m DevicePicker) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-4)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - 4
		}
		m.help.Width = msg.Width

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, keys.Up):
			if m.selectedIndex > 0 {
				m.selectedIndex--
			}
		case key.Matches(msg, keys.Down):
			if m.selectedIndex < len(m.devices)-1 {
				m.selectedIndex++
			}
		case key.Matches(msg, keys.Select):
			if len(m.devices) > 0 {
				m.chosen = true
				return m, tea.Quit
			}
		}
	}

	if m.ready {
		m.viewport.SetContent(m.renderDevices())
	}
	return m, nil
}

func (m DevicePicker) View() string {
	body := m.renderDevices()
	if m.ready {
		body = m.viewport.View()
	}
	return fmt.Sprintf("%s\n\n%s\n\n%s",
		titleStyle.Render("Select Input Device"), body, m.help.View(pickerKeys{keys}))
}

func (m DevicePicker) renderDevices() string {
	if len(m.devices) == 0 {
		return "No audio input devices found."
	}
	var sb strings.Builder
	for i, d := range m.devices {
		info := fmt.Sprintf("[%d] %s (%s)\n    Input channels: %d, Default sample rate: %sHz\n",
			d.ID, d.Name, d.Kind(), d.MaxInputChannels, humanize.SIWithDigits(d.DefaultSampleRate, 1, ""))
		if i == m.selectedIndex {
			info = highlightStyle.Render(info)
		}
		sb.WriteString(info)
		sb.WriteString("\n")
	}
	return sb.String()
}

// Selected returns the chosen device once the user pressed enter.
func (m DevicePicker) Selected() (audio.Device, bool) {
	if !m.chosen || len(m.devices) == 0 {
		return audio.Device{}, false
	}
	return m.devices[m.selectedIndex], true
}

// PickDevice runs the picker and returns the chosen device.
func PickDevice(all []audio.Device) (audio.Device, error) {
	m := NewDevicePicker(all)
	if len(m.devices) == 0 {
		return audio.Device{}, ErrNoInputDevices
	}
	final, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	if err != nil {
		return audio.Device{}, err
	}
	d, ok := final.(DevicePicker).Selected()
	if !ok {
		return audio.Device{}, ErrCancelled
	}
	return d, nil
}
