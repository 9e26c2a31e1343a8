// SPDX-License-Identifier: MIT
package tui

import "github.com/charmbracelet/bubbles/key"

// Adjustment steps for one key press.
const (
	gainStep        = 1.0   // dB
	lowEdgeStep     = 10.0  // Hz
	highEdgeStep    = 100.0 // Hz
	persistenceStep = 10    // ms
	squelchStep     = 0.01
)

type keyMap struct {
	GainDown, GainUp               key.Binding
	LowDown, LowUp                 key.Binding
	HighDown, HighUp               key.Binding
	PersistDown, PersistUp         key.Binding
	Squelch                        key.Binding
	ThresholdDown, ThresholdUp     key.Binding
	Averaging, Clear, Quit, Select key.Binding
	Up, Down                       key.Binding
}

var keys = keyMap{
	GainDown:      key.NewBinding(key.WithKeys("g"), key.WithHelp("g/G", "gain ∓1dB")),
	GainUp:        key.NewBinding(key.WithKeys("G")),
	LowDown:       key.NewBinding(key.WithKeys("l"), key.WithHelp("l/L", "low ∓10Hz")),
	LowUp:         key.NewBinding(key.WithKeys("L")),
	HighDown:      key.NewBinding(key.WithKeys("h"), key.WithHelp("h/H", "high ∓100Hz")),
	HighUp:        key.NewBinding(key.WithKeys("H")),
	PersistDown:   key.NewBinding(key.WithKeys("p"), key.WithHelp("p/P", "persist ∓10ms")),
	PersistUp:     key.NewBinding(key.WithKeys("P")),
	Squelch:       key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "squelch")),
	ThresholdDown: key.NewBinding(key.WithKeys("t"), key.WithHelp("t/T", "threshold ∓0.01")),
	ThresholdUp:   key.NewBinding(key.WithKeys("T")),
	Averaging:     key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "averaging")),
	Clear:         key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "clear")),
	Quit:          key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	Select:        key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "select")),
	Up:            key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
	Down:          key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
}

// ShortHelp implements help.KeyMap for the monitor footer.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{
		k.GainDown, k.LowDown, k.HighDown, k.PersistDown,
		k.Squelch, k.ThresholdDown, k.Averaging, k.Clear, k.Quit,
	}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

// pickerKeys is the help.KeyMap of the device picker.
type pickerKeys struct{ keyMap }

func (k pickerKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Select, k.Quit}
}

func (k pickerKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}
