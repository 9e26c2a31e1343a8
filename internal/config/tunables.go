// SPDX-License-Identifier: MIT
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"tonewatch/internal/detector"
)

// Keys of the tunables file.
const (
	keyGainDB           = "gain_db"
	keyBandpassLow      = "bandpass_low_hz"
	keyBandpassHigh     = "bandpass_high_hz"
	keyPersistence      = "persistence_ms"
	keySquelchEnabled   = "squelch_enabled"
	keySquelchThreshold = "squelch_threshold"
	keyAveraging        = "averaging_enabled"
)

// tunableKeys is the order keys are checked and reported in.
var tunableKeys = []string{
	keyGainDB, keyBandpassLow, keyBandpassHigh, keyPersistence,
	keySquelchEnabled, keySquelchThreshold, keyAveraging,
}

// LoadTunables reads a key=value tunables file over base. A missing file
// returns base unchanged with no error. Unknown keys are ignored and a
// malformed value keeps the base value; such problems are returned joined,
// alongside the best-effort result.
func LoadTunables(path string, base detector.Params) (detector.Params, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return base, nil
	}
	if err != nil {
		return base, fmt.Errorf("open tunables: %w", err)
	}
	defer f.Close()
	return ReadTunables(f, base)
}

// ReadTunables parses the key=value format from r. Comments, blank lines
// and quoting follow dotenv conventions. A file that does not parse at all
// leaves base untouched.
func ReadTunables(r io.Reader, base detector.Params) (detector.Params, error) {
	values, err := godotenv.Parse(r)
	if err != nil {
		return base, fmt.Errorf("parse tunables: %w", err)
	}

	p := base
	var errs []error
	for _, key := range tunableKeys {
		value, ok := values[key]
		if !ok {
			continue
		}
		if err := setTunable(&p, key, strings.TrimSpace(value)); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
		}
	}
	return p, errors.Join(errs...)
}

func setTunable(p *detector.Params, key, value string) error {
	switch key {
	case keyGainDB:
		return parseFloat(value, &p.GainDB)
	case keyBandpassLow:
		return parseFloat(value, &p.BandpassLowHz)
	case keyBandpassHigh:
		return parseFloat(value, &p.BandpassHighHz)
	case keyPersistence:
		ms, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		p.Persistence = time.Duration(ms) * time.Millisecond
	case keySquelchEnabled:
		return parseBool(value, &p.SquelchEnabled)
	case keySquelchThreshold:
		return parseFloat(value, &p.SquelchThreshold)
	case keyAveraging:
		return parseBool(value, &p.AveragingEnabled)
	}
	return nil
}

func parseFloat(s string, dst *float64) error {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	*dst = v
	return nil
}

func parseBool(s string, dst *bool) error {
	v, err := strconv.ParseBool(s)
	if err != nil {
		return err
	}
	*dst = v
	return nil
}

// SaveTunables writes p to path atomically (temp file plus rename).
func SaveTunables(path string, p detector.Params) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tunables-*")
	if err != nil {
		return fmt.Errorf("save tunables: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := WriteTunables(tmp, p); err != nil {
		tmp.Close()
		return fmt.Errorf("save tunables: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("save tunables: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("save tunables: %w", err)
	}
	return nil
}

// WriteTunables writes p in the key=value format, keys sorted.
func WriteTunables(w io.Writer, p detector.Params) error {
	content, err := godotenv.Marshal(map[string]string{
		keyGainDB:           strconv.FormatFloat(p.GainDB, 'g', -1, 64),
		keyBandpassLow:      strconv.FormatFloat(p.BandpassLowHz, 'g', -1, 64),
		keyBandpassHigh:     strconv.FormatFloat(p.BandpassHighHz, 'g', -1, 64),
		keyPersistence:      strconv.FormatInt(p.Persistence.Milliseconds(), 10),
		keySquelchEnabled:   strconv.FormatBool(p.SquelchEnabled),
		keySquelchThreshold: strconv.FormatFloat(p.SquelchThreshold, 'g', -1, 64),
		keyAveraging:        strconv.FormatBool(p.AveragingEnabled),
	})
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "# tonewatch tunables\n%s\n", content)
	return err
}
