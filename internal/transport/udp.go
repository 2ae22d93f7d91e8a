package transport

import (
	"context"
	"fmt"
	"net"
	"sync"
)

// UDPSink writes each payload as one datagram. The address is resolved once
// when the sink is created.
type UDPSink struct {
	mu     sync.Mutex
	addr   *net.UDPAddr
	conn   *net.UDPConn
	closed bool
}

// NewUDPSink resolves endpoint (host:port).
func NewUDPSink(endpoint string) (*UDPSink, error) {
	addr, err := net.ResolveUDPAddr("udp", endpoint)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", endpoint, err)
	}
	return &UDPSink{addr: addr}, nil
}

func (s *UDPSink) Send(_ context.Context, payload []byte, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if s.conn == nil {
		conn, err := net.DialUDP("udp", nil, s.addr)
		if err != nil {
			return fmt.Errorf("dial %s: %w", s.addr, err)
		}
		s.conn = conn
	}
	if _, err := s.conn.Write(payload); err != nil {
		return fmt.Errorf("write %s: %w", s.addr, err)
	}
	return nil
}

func (s *UDPSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	return err
}
