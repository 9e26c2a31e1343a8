// SPDX-License-Identifier: MIT

// Package transport publishes detector snapshots to the outside world. A
// Publisher samples the detector on a ticker and hands each Update to every
// configured Transport.
package transport

import (
	"errors"
	"time"

	"tonewatch/internal/detector"
)

// ErrClosed is returned by Send after Close.
var ErrClosed = errors.New("transport closed")

// Update is one published sample of the detector state. Snapshot is owned
// by the publisher and reused for the next tick; a Transport must encode or
// copy what it needs before Send returns.
type Update struct {
	Sequence  uint32
	Timestamp time.Time
	Snapshot  *detector.Snapshot
}

// Transport delivers updates. Implementations must be safe for use from
// the publisher goroutine while Close is called from another.
type Transport interface {
	Send(u *Update) error
	Close() error
}

// SnapshotSource is the read side of a detector.
type SnapshotSource interface {
	SnapshotInto(s *detector.Snapshot)
}
