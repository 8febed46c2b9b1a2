// SPDX-License-Identifier: MIT
package udp

import (
	"errors"
	"fmt"
	"net"
	"sync/atomic"

	applog "popdetect/internal/log"
)

// MaxFrameSize is the largest UDP payload an IPv4 datagram can carry.
const MaxFrameSize = 65507

var (
	// ErrSenderClosed is returned by Send after Close.
	ErrSenderClosed = errors.New("envelope sender closed")
	// ErrFrameTooLarge is returned for frames that do not fit in one datagram.
	ErrFrameTooLarge = errors.New("envelope frame exceeds datagram size")
)

// UDPSender writes envelope frames, one datagram each, to a fixed listener. Send and Close may
// be called from different goroutines.
type UDPSender struct {
	conn atomic.Pointer[net.UDPConn]

	frames atomic.Uint64
	bytes  atomic.Uint64
}

// NewUDPSender connects to target, given as "host:port".
func NewUDPSender(target string) (*UDPSender, error) {
	addr, err := net.ResolveUDPAddr("udp", target)
	if err != nil {
		return nil, fmt.Errorf("envelope target %q: %w", target, err)
	}
	conn, err := net.DialUDP("udp", nil, addr)
	if err != nil {
		return nil, fmt.Errorf("envelope target %q: %w", target, err)
	}

	s := &UDPSender{}
	s.conn.Store(conn)
	applog.Infof("UDPSender: Envelope frames go to %s", conn.RemoteAddr())
	return s, nil
}

// Send writes frame as a single datagram.
func (s *UDPSender) Send(frame []byte) error {
	if len(frame) > MaxFrameSize {
		return fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, len(frame))
	}
	conn := s.conn.Load()
	if conn == nil {
		return ErrSenderClosed
	}

	n, err := conn.Write(frame)
	switch {
	case errors.Is(err, net.ErrClosed):
		return ErrSenderClosed
	case err != nil:
		applog.Warnf("UDPSender: Frame of %d bytes not sent: %v", len(frame), err)
		return fmt.Errorf("send envelope frame: %w", err)
	}
	s.frames.Add(1)
	s.bytes.Add(uint64(n))
	return nil
}

// Stats returns the number of frames and bytes sent so far.
func (s *UDPSender) Stats() (frames, bytes uint64) {
	return s.frames.Load(), s.bytes.Load()
}

// Close releases the socket. Closing twice is a no-op.
func (s *UDPSender) Close() error {
	conn := s.conn.Swap(nil)
	if conn == nil {
		return nil
	}
	frames, bytes := s.Stats()
	applog.Debugf("UDPSender: Closing %s after %d frame(s), %d bytes", conn.RemoteAddr(), frames, bytes)
	if err := conn.Close(); err != nil {
		return fmt.Errorf("close envelope socket: %w", err)
	}
	return nil
}
