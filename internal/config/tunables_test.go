// SPDX-License-Identifier: MIT
package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"tonewatch/internal/detector"
)

func TestTunablesRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "params")
	want := detector.Params{
		GainDB:           -3.5,
		BandpassLowHz:    420,
		BandpassHighHz:   1800,
		Persistence:      120 * time.Millisecond,
		SquelchEnabled:   true,
		SquelchThreshold: 0.03,
		AveragingEnabled: true,
	}
	if err := SaveTunables(path, want); err != nil {
		t.Fatalf("SaveTunables: %v", err)
	}
	got, err := LoadTunables(path, detector.DefaultParams())
	if err != nil {
		t.Fatalf("LoadTunables: %v", err)
	}
	if got != want {
		t.Errorf("loaded %+v, want %+v", got, want)
	}

	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Errorf("temp files left behind: %d entries", len(entries))
	}
}

func TestWriteTunablesFormat(t *testing.T) {
	var sb strings.Builder
	if err := WriteTunables(&sb, detector.DefaultParams()); err != nil {
		t.Fatalf("WriteTunables: %v", err)
	}
	out := sb.String()
	for _, want := range []string{"# tonewatch tunables\n", "persistence_ms=100\n", "squelch_threshold=\"0.01\"\n"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if i, j := strings.Index(out, "averaging_enabled"), strings.Index(out, "squelch_threshold"); i < 0 || i > j {
		t.Errorf("keys not sorted:\n%s", out)
	}
}

func TestLoadTunablesMissingFile(t *testing.T) {
	base := detector.DefaultParams()
	got, err := LoadTunables(filepath.Join(t.TempDir(), "absent"), base)
	if err != nil || got != base {
		t.Errorf("LoadTunables = (%+v, %v), want base and nil", got, err)
	}
}

func TestReadTunables(t *testing.T) {
	base := detector.DefaultParams()
	tests := []struct {
		name    string
		input   string
		check   func(detector.Params) bool
		wantErr string
	}{
		{
			name:  "Comments and blanks",
			input: "# saved\n\n  gain_db = 6 \n",
			check: func(p detector.Params) bool { return p.GainDB == 6 },
		},
		{
			name:  "Unknown keys ignored",
			input: "colour=blue\nsquelch_enabled=true\n",
			check: func(p detector.Params) bool { return p.SquelchEnabled },
		},
		{
			name:  "Quoted values",
			input: "gain_db=\"-3.5\"\nsquelch_threshold='0.05'\n",
			check: func(p detector.Params) bool { return p.GainDB == -3.5 && p.SquelchThreshold == 0.05 },
		},
		{
			name:    "Malformed value keeps base",
			input:   "bandpass_low_hz=low\nbandpass_high_hz=2500\n",
			check:   func(p detector.Params) bool { return p.BandpassLowHz == base.BandpassLowHz && p.BandpassHighHz == 2500 },
			wantErr: "bandpass_low_hz",
		},
		{
			name:    "Unparseable file keeps base",
			input:   "persistence_ms=200\ngain_db=\"6\n",
			check:   func(p detector.Params) bool { return p == base },
			wantErr: "parse tunables",
		},
		{
			name:    "Bad bool",
			input:   "averaging_enabled=sometimes\n",
			check:   func(p detector.Params) bool { return !p.AveragingEnabled },
			wantErr: "averaging_enabled",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ReadTunables(strings.NewReader(tt.input), base)
			if !tt.check(got) {
				t.Errorf("unexpected params %+v", got)
			}
			switch {
			case tt.wantErr == "" && err != nil:
				t.Errorf("unexpected error %v", err)
			case tt.wantErr != "" && (err == nil || !strings.Contains(err.Error(), tt.wantErr)):
				t.Errorf("error = %v, want it to mention %q", err, tt.wantErr)
			}
		})
	}
}
