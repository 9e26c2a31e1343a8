// SPDX-License-Identifier: MIT
package log

import (
	"bytes"
	"os"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want LogLevel
		ok   bool
	}{
		{"debug", LevelDebug, true},
		{" Info ", LevelInfo, true},
		{"warning", LevelWarn, true},
		{"ERROR", LevelError, true},
		{"verbose", LevelInfo, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseLevel(tt.in)
			if got != tt.want || ok != tt.ok {
				t.Errorf("ParseLevel(%q) = (%s, %v), want (%s, %v)", tt.in, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestLevelGating(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(os.Stderr)
	defer SetLevel(LevelInfo)

	SetLevel(LevelWarn)
	Infof("hidden %d", 1)
	Warnf("shown %d", 2)

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info line written at warn level: %q", out)
	}
	if !strings.Contains(out, "shown 2") || !strings.Contains(out, "WARN") {
		t.Errorf("warn line missing: %q", out)
	}

	buf.Reset()
	SetLevel(LevelDebug)
	Debugf("tone %s", "on")
	if !strings.Contains(buf.String(), "tone on") {
		t.Errorf("debug line missing at debug level: %q", buf.String())
	}
	if GetLevel() != LevelDebug {
		t.Errorf("GetLevel() = %s, want DEBUG", GetLevel())
	}
}
