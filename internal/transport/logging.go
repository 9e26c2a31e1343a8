// SPDX-License-Identifier: MIT
package transport

import (
	"tonewatch/internal/log"
	"tonewatch/internal/tracker"
)

// LoggingTransport writes a one-line summary whenever the decoded output or
// the number of active tones changes. Used for headless runs.
type LoggingTransport struct {
	lastSymbols int
	lastText    int
	lastActive  int
}

func NewLoggingTransport() *LoggingTransport {
	log.Infof("Transport: Using LoggingTransport")
	return &LoggingTransport{lastActive: -1}
}

func (lt *LoggingTransport) Send(u *Update) error {
	s := u.Snapshot
	active := 0
	for _, tr := range s.Tracks {
		if tr.State == tracker.Active {
			active++
		}
	}
	if active == lt.lastActive && len(s.Symbols) == lt.lastSymbols && len(s.Text) == lt.lastText {
		return nil
	}
	lt.lastActive, lt.lastSymbols, lt.lastText = active, len(s.Symbols), len(s.Text)

	log.Infof("#%d active=%d dot=%.0fms (%.1f wpm) symbols=%q text=%q",
		u.Sequence, active, s.EstimatedDotMs, s.WPM, s.Symbols, s.Text)
	return nil
}

func (lt *LoggingTransport) Close() error {
	log.Debugf("LoggingTransport: Close called.")
	return nil
}

var _ Transport = (*LoggingTransport)(nil)
