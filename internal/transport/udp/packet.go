// SPDX-License-Identifier: MIT
package udp

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"tonewatch/internal/tracker"
	"tonewatch/internal/transport"
)

/*
UDP Packet Structure (BigEndian)

+------------------------------------------------------------------------------+
| Field           | Data Type   | Size (Bytes) | Description                   |
|-----------------|-------------|--------------|-------------------------------|
| Sequence Number | uint32      | 4            | Monotonically increasing      |
| Timestamp       | int64       | 8            | Nanoseconds since epoch       |
| Dot Estimate    | float32     | 4            | Milliseconds                  |
| Track Count     | uint8       | 1            | Non-empty tracks (T)          |
| Tracks          | T * 10      | T * 10       | slot u8, state u8,            |
|                 |             |              | freq f32 (Hz), purity f32 (%) |
| Symbol Count    | uint16      | 2            | Symbols (S)                   |
| Symbols         | []byte      | S            | ASCII '.' and '-'             |
| Bin Count       | uint16      | 2            | Spectrum bins (N)             |
| Spectrum        | []float32   | N * 4        | Visual spectrum               |
+------------------------------------------------------------------------------+
*/

const (
	headerSize = 4 + 8 + 4 + 1
	trackSize  = 1 + 1 + 4 + 4
)

var ErrShortPacket = errors.New("udp: short packet")

// PacketTrack is a decoded track entry.
type PacketTrack struct {
	Slot          uint8
	State         tracker.State
	FrequencyHz   float32
	PurityPercent float32
}

// Packet is the decoded form of a datagram.
type Packet struct {
	Sequence  uint32
	Timestamp int64
	DotMs     float32
	Tracks    []PacketTrack
	Symbols   []byte
	Spectrum  []float32
}

// AppendPacket encodes u onto dst. Symbols and bins beyond the uint16 range
// are truncated.
func AppendPacket(dst []byte, u *transport.Update) []byte {
	s := u.Snapshot
	be := binary.BigEndian

	dst = be.AppendUint32(dst, u.Sequence)
	dst = be.AppendUint64(dst, uint64(u.Timestamp.UnixNano()))
	dst = be.AppendUint32(dst, math.Float32bits(float32(s.EstimatedDotMs)))

	countAt := len(dst)
	dst = append(dst, 0)
	var count uint8
	for i, tr := range s.Tracks {
		if tr.State == tracker.Empty || i > math.MaxUint8 || count == math.MaxUint8 {
			continue
		}
		dst = append(dst, uint8(i), uint8(tr.State))
		dst = be.AppendUint32(dst, math.Float32bits(float32(tr.FrequencyHz)))
		dst = be.AppendUint32(dst, math.Float32bits(float32(tr.PurityPercent)))
		count++
	}
	dst[countAt] = count

	symbols := s.Symbols
	if len(symbols) > math.MaxUint16 {
		symbols = symbols[len(symbols)-math.MaxUint16:]
	}
	dst = be.AppendUint16(dst, uint16(len(symbols)))
	dst = append(dst, symbols...)

	bins := s.Visual
	if len(bins) > math.MaxUint16 {
		bins = bins[:math.MaxUint16]
	}
	dst = be.AppendUint16(dst, uint16(len(bins)))
	for _, v := range bins {
		dst = be.AppendUint32(dst, math.Float32bits(float32(v)))
	}
	return dst
}

// ParsePacket decodes a datagram produced by AppendPacket.
func ParsePacket(b []byte) (Packet, error) {
	var p Packet
	be := binary.BigEndian
	if len(b) < headerSize {
		return p, fmt.Errorf("%w: %d bytes", ErrShortPacket, len(b))
	}
	p.Sequence = be.Uint32(b)
	p.Timestamp = int64(be.Uint64(b[4:]))
	p.DotMs = math.Float32frombits(be.Uint32(b[12:]))
	n := int(b[16])
	b = b[headerSize:]

	if len(b) < n*trackSize+2 {
		return p, fmt.Errorf("%w: tracks", ErrShortPacket)
	}
	p.Tracks = make([]PacketTrack, n)
	for i := range p.Tracks {
		p.Tracks[i] = PacketTrack{
			Slot:          b[0],
			State:         tracker.State(b[1]),
			FrequencyHz:   math.Float32frombits(be.Uint32(b[2:])),
			PurityPercent: math.Float32frombits(be.Uint32(b[6:])),
		}
		b = b[trackSize:]
	}

	ns := int(be.Uint16(b))
	b = b[2:]
	if len(b) < ns+2 {
		return p, fmt.Errorf("%w: symbols", ErrShortPacket)
	}
	p.Symbols = append([]byte(nil), b[:ns]...)
	b = b[ns:]

	nb := int(be.Uint16(b))
	b = b[2:]
	if len(b) < nb*4 {
		return p, fmt.Errorf("%w: spectrum", ErrShortPacket)
	}
	p.Spectrum = make([]float32, nb)
	for i := range p.Spectrum {
		p.Spectrum[i] = math.Float32frombits(be.Uint32(b[i*4:]))
	}
	return p, nil
}
