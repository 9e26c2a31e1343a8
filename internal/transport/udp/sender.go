// SPDX-License-Identifier: MIT

// Package udp sends detector snapshots as compact binary datagrams.
package udp

import (
	"fmt"
	"net"
	"sync"

	"tonewatch/internal/log"
	"tonewatch/internal/transport"
)

// UDPSender handles sending data packets over UDP.
type UDPSender struct {
	conn   *net.UDPConn
	mu     sync.Mutex // protects conn during Close
	closed bool
}

// NewUDPSender dials targetAddress ("host:port").
func NewUDPSender(targetAddress string) (*UDPSender, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", targetAddress)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve UDP target address '%s': %w", targetAddress, err)
	}
	conn, err := net.DialUDP("udp", nil, udpAddr)
	if err != nil {
		return nil, fmt.Errorf("failed to dial UDP for target '%s': %w", targetAddress, err)
	}
	log.Infof("UDP Sender: Connection established to %s", conn.RemoteAddr())
	return &UDPSender{conn: conn}, nil
}

// Send transmits data as one datagram.
func (s *UDPSender) Send(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return transport.ErrClosed
	}
	if _, err := s.conn.Write(data); err != nil {
		return fmt.Errorf("failed to send UDP packet: %w", err)
	}
	return nil
}

func (s *UDPSender) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	log.Infof("UDP Sender: Closing connection to %s", s.conn.RemoteAddr())
	if err := s.conn.Close(); err != nil {
		return fmt.Errorf("failed to close UDP connection: %w", err)
	}
	return nil
}

// Transport encodes each update with AppendPacket and sends it. Only the
// publisher goroutine calls Send, so the packet buffer is reused unlocked.
type Transport struct {
	sender *UDPSender
	buf    []byte
}

func NewTransport(targetAddress string) (*Transport, error) {
	sender, err := NewUDPSender(targetAddress)
	if err != nil {
		return nil, err
	}
	return &Transport{sender: sender, buf: make([]byte, 0, 8192)}, nil
}

func (t *Transport) Send(u *transport.Update) error {
	t.buf = AppendPacket(t.buf[:0], u)
	if err := t.sender.Send(t.buf); err != nil {
		return err
	}
	log.Debugf("UDP: Sent packet %d (%d bytes)", u.Sequence, len(t.buf))
	return nil
}

func (t *Transport) Close() error { return t.sender.Close() }

var _ transport.Transport = (*Transport)(nil)
