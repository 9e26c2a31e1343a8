// SPDX-License-Identifier: MIT
package transport

import (
	jsoniter "github.com/json-iterator/go"

	"tonewatch/internal/tracker"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// SnapshotMessage is the JSON form of an Update.
type SnapshotMessage struct {
	Sequence     uint32         `json:"seq"`
	Timestamp    int64          `json:"ts"` // Unix nanoseconds
	Frames       uint64         `json:"frames"`
	ResolutionHz float64        `json:"resolution_hz"`
	Tracks       []TrackMessage `json:"tracks"`
	Spectrum     []float64      `json:"spectrum"`
	Symbols      string         `json:"symbols"`
	Text         string         `json:"text"`
	DotMs        float64        `json:"dot_ms"`
	WPM          float64        `json:"wpm"`
	Params       ParamsMessage  `json:"params"`
}

// TrackMessage describes one non-empty track slot.
type TrackMessage struct {
	Slot          int     `json:"slot"`
	State         string  `json:"state"`
	FrequencyHz   float64 `json:"frequency_hz"`
	PurityPercent float64 `json:"purity_pct"`
}

type ParamsMessage struct {
	GainDB           float64 `json:"gain_db"`
	BandpassLowHz    float64 `json:"bandpass_low_hz"`
	BandpassHighHz   float64 `json:"bandpass_high_hz"`
	PersistenceMs    int64   `json:"persistence_ms"`
	SquelchEnabled   bool    `json:"squelch_enabled"`
	SquelchThreshold float64 `json:"squelch_threshold"`
	AveragingEnabled bool    `json:"averaging_enabled"`
}

// NewSnapshotMessage converts an update. Empty slots are omitted.
func NewSnapshotMessage(u *Update) SnapshotMessage {
	s := u.Snapshot
	msg := SnapshotMessage{
		Sequence:     u.Sequence,
		Timestamp:    u.Timestamp.UnixNano(),
		Frames:       s.Frames,
		ResolutionHz: s.ResolutionHz,
		Tracks:       make([]TrackMessage, 0, len(s.Tracks)),
		Spectrum:     s.Visual,
		Symbols:      string(s.Symbols),
		Text:         string(s.Text),
		DotMs:        s.EstimatedDotMs,
		WPM:          s.WPM,
		Params: ParamsMessage{
			GainDB:           s.Params.GainDB,
			BandpassLowHz:    s.Params.BandpassLowHz,
			BandpassHighHz:   s.Params.BandpassHighHz,
			PersistenceMs:    s.Params.Persistence.Milliseconds(),
			SquelchEnabled:   s.Params.SquelchEnabled,
			SquelchThreshold: s.Params.SquelchThreshold,
			AveragingEnabled: s.Params.AveragingEnabled,
		},
	}
	for i, tr := range s.Tracks {
		if tr.State == tracker.Empty {
			continue
		}
		msg.Tracks = append(msg.Tracks, TrackMessage{
			Slot:          i,
			State:         tr.State.String(),
			FrequencyHz:   tr.FrequencyHz,
			PurityPercent: tr.PurityPercent,
		})
	}
	return msg
}

// EncodeSnapshot returns the JSON encoding of u.
func EncodeSnapshot(u *Update) ([]byte, error) {
	return json.Marshal(NewSnapshotMessage(u))
}
