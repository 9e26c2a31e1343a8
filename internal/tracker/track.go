// SPDX-License-Identifier: MIT

// Package tracker maintains a bounded table of sine-tone tracks. Each frame
// it matches spectral peaks against the table, applies the persistence
// debounce, and reports tracks that became confirmed (Activated) or ended
// (Deactivated).
package tracker

import (
	"fmt"
	"time"
)

// State is the lifecycle stage of a track slot.
type State uint8

const (
	// Empty marks a free slot.
	Empty State = iota
	// Pending is a candidate tone that has not yet persisted long enough.
	Pending
	// Active is a confirmed tone.
	Active
)

func (s State) String() string {
	switch s {
	case Empty:
		return "empty"
	case Pending:
		return "pending"
	case Active:
		return "active"
	default:
		return fmt.Sprintf("State(%d)", uint8(s))
	}
}

// Track is one candidate or confirmed tone. Timestamps are only meaningful
// for the states that set them: FirstSeenAt and LastSeenAt from Pending on,
// ToneStartedAt once Active.
type Track struct {
	FrequencyHz   float64
	PurityPercent float64
	State         State
	FirstSeenAt   time.Time
	LastSeenAt    time.Time
	ToneStartedAt time.Time
}

// TransitionKind is what happened to a track during one update.
type TransitionKind uint8

const (
	None TransitionKind = iota
	Activated
	Deactivated
)

func (k TransitionKind) String() string {
	switch k {
	case None:
		return "none"
	case Activated:
		return "activated"
	case Deactivated:
		return "deactivated"
	default:
		return fmt.Sprintf("TransitionKind(%d)", uint8(k))
	}
}

// Transition reports a state change of the track in Slot. Track is a copy
// taken at the moment of the change; for Deactivated it still carries the
// Active fields. ToneDuration is set for Deactivated only and equals
// LastSeenAt - ToneStartedAt.
type Transition struct {
	Slot         int
	Kind         TransitionKind
	Track        Track
	ToneDuration time.Duration
}
