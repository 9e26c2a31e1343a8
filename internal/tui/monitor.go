// SPDX-License-Identifier: MIT

// Package tui renders the live detector state in the terminal and maps key
// presses onto the shared tunables.
package tui

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"tonewatch/internal/detector"
	"tonewatch/internal/tracker"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5")).
			Background(lipgloss.Color("#25A065")).
			Padding(0, 1).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5"))

	highlightStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#25A065")).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#767676"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#7D56F4")).
			Width(10)
)

const sparkLevels = " ▁▂▃▄▅▆▇█"

const defaultWidth = 80

// Source is what the monitor reads and controls. *detector.Detector
// satisfies it.
type Source interface {
	SnapshotInto(s *detector.Snapshot)
	Tunables() *detector.Tunables
	ClearSymbols()
}

type tickMsg time.Time

// Monitor is the Bubble Tea model of the live view.
type Monitor struct {
	source   Source
	interval time.Duration
	header   string // device and format line

	snap   detector.Snapshot
	width  int
	status string
	help   help.Model
}

// NewMonitor polls source every interval. header is shown under the title.
func NewMonitor(source Source, interval time.Duration, header string) Monitor {
	return Monitor{
		source:   source,
		interval: interval,
		header:   header,
		width:    defaultWidth,
		help:     help.New(),
	}
}

func (m Monitor) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m Monitor) Init() tea.Cmd {
	return m.tick()
}

func (m Monitor) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		m.source.SnapshotInto(&m.snap)
		return m, m.tick()

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width

	case tea.KeyMsg:
		if key.Matches(msg, keys.Quit) {
			return m, tea.Quit
		}
		m.status = m.handleKey(msg)
	}
	return m, nil
}

// handleKey applies a tunable adjustment and describes the result.
func (m Monitor) handleKey(msg tea.KeyMsg) string {
	t := m.source.Tunables()
	switch {
	case key.Matches(msg, keys.GainDown):
		return fmt.Sprintf("gain %+.0f dB", t.AdjustGainDB(-gainStep))
	case key.Matches(msg, keys.GainUp):
		return fmt.Sprintf("gain %+.0f dB", t.AdjustGainDB(gainStep))
	case key.Matches(msg, keys.LowDown):
		return fmt.Sprintf("low edge %.0f Hz", t.AdjustBandpassLow(-lowEdgeStep))
	case key.Matches(msg, keys.LowUp):
		return fmt.Sprintf("low edge %.0f Hz", t.AdjustBandpassLow(lowEdgeStep))
	case key.Matches(msg, keys.HighDown):
		return fmt.Sprintf("high edge %.0f Hz", t.AdjustBandpassHigh(-highEdgeStep))
	case key.Matches(msg, keys.HighUp):
		return fmt.Sprintf("high edge %.0f Hz", t.AdjustBandpassHigh(highEdgeStep))
	case key.Matches(msg, keys.PersistDown):
		return fmt.Sprintf("persistence %s", t.AdjustPersistence(-persistenceStep*time.Millisecond))
	case key.Matches(msg, keys.PersistUp):
		return fmt.Sprintf("persistence %s", t.AdjustPersistence(persistenceStep*time.Millisecond))
	case key.Matches(msg, keys.Squelch):
		return "squelch " + onOff(t.ToggleSquelch())
	case key.Matches(msg, keys.ThresholdDown):
		return fmt.Sprintf("squelch threshold %.2f", t.AdjustSquelchThreshold(-squelchStep))
	case key.Matches(msg, keys.ThresholdUp):
		return fmt.Sprintf("squelch threshold %.2f", t.AdjustSquelchThreshold(squelchStep))
	case key.Matches(msg, keys.Averaging):
		return "averaging " + onOff(t.ToggleAveraging())
	case key.Matches(msg, keys.Clear):
		m.source.ClearSymbols()
		return "symbols cleared"
	}
	return m.status
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

func (m Monitor) View() string {
	var sb strings.Builder
	s := &m.snap
	width := max(m.width, 20)

	sb.WriteString(titleStyle.Render("tonewatch"))
	if m.header != "" {
		sb.WriteString("  " + infoStyle.Render(m.header))
	}
	sb.WriteString("\n\n")

	sb.WriteString(m.renderTracks())
	sb.WriteString("\n")

	sb.WriteString(labelStyle.Render("Spectrum"))
	sb.WriteString(Sparkline(s.Visual, spectrumBins(s), width-11))
	sb.WriteString("\n")
	sb.WriteString(labelStyle.Render("Symbols"))
	sb.WriteString(tail(string(s.Symbols), width-11))
	sb.WriteString("\n")
	sb.WriteString(labelStyle.Render("Text"))
	sb.WriteString(highlightStyle.Render(tail(string(s.Text), width-11)))
	sb.WriteString("\n")
	sb.WriteString(labelStyle.Render("Speed"))
	fmt.Fprintf(&sb, "dot %.0f ms, %.1f WPM   frames %s", s.EstimatedDotMs, s.WPM, humanize.Comma(int64(s.Frames)))
	sb.WriteString("\n")
	sb.WriteString(labelStyle.Render("Params"))
	sb.WriteString(renderParams(m.source.Tunables().Load()))
	sb.WriteString("\n\n")

	if m.status != "" {
		sb.WriteString(dimStyle.Render(m.status))
	}
	sb.WriteString("\n")
	sb.WriteString(m.help.View(keys))
	return sb.String()
}

func (m Monitor) renderTracks() string {
	var sb strings.Builder
	sb.WriteString(dimStyle.Render(fmt.Sprintf("%-6s %-9s %10s %8s", "slot", "state", "freq", "purity")))
	sb.WriteString("\n")
	for i, tr := range m.snap.Tracks {
		line := fmt.Sprintf("%-6d %-9s", i, tr.State)
		if tr.State != tracker.Empty {
			line += fmt.Sprintf(" %7.1f Hz %7.1f%%", tr.FrequencyHz, tr.PurityPercent)
		}
		switch tr.State {
		case tracker.Active:
			line = highlightStyle.Render(line)
		case tracker.Empty:
			line = dimStyle.Render(line)
		}
		sb.WriteString(line)
		sb.WriteString("\n")
	}
	return sb.String()
}

func renderParams(p detector.Params) string {
	squelch := "off"
	if p.SquelchEnabled {
		squelch = fmt.Sprintf("%.2f", p.SquelchThreshold)
	}
	return fmt.Sprintf("gain %+.0f dB  band %.0f-%.0f Hz  persist %s  squelch %s  avg %s",
		p.GainDB, p.BandpassLowHz, p.BandpassHighHz, p.Persistence, squelch, onOff(p.AveragingEnabled))
}

// spectrumBins limits the graph to a little above the high band edge.
func spectrumBins(s *detector.Snapshot) int {
	n := len(s.Visual)
	if s.ResolutionHz <= 0 {
		return n
	}
	limit := int(s.Params.BandpassHighHz*1.25/s.ResolutionHz) + 1
	return min(max(limit, 32), n)
}

// Sparkline renders the first n values as width block characters, each
// the maximum of its group, scaled to the largest value shown.
func Sparkline(values []float64, n, width int) string {
	n = min(n, len(values))
	if n <= 0 || width <= 0 {
		return ""
	}
	width = min(width, n)

	levels := []rune(sparkLevels)
	cols := make([]float64, width)
	var peak float64
	for c := range cols {
		lo, hi := c*n/width, (c+1)*n/width
		for _, v := range values[lo:hi] {
			cols[c] = math.Max(cols[c], v)
		}
		peak = math.Max(peak, cols[c])
	}

	out := make([]rune, width)
	for c, v := range cols {
		idx := 0
		if peak > 0 {
			idx = int(math.Round(v / peak * float64(len(levels)-1)))
		}
		out[c] = levels[idx]
	}
	return string(out)
}

// tail keeps the last n bytes of s.
func tail(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if len(s) > n {
		return s[len(s)-n:]
	}
	return s
}

// Run starts the monitor full screen and blocks until the user quits.
func Run(m Monitor) error {
	_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}
