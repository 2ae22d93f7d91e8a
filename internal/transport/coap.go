package transport

import (
	"bytes"
	"context"
	"fmt"
	"sync"

	"github.com/plgd-dev/go-coap/v3/message"
	"github.com/plgd-dev/go-coap/v3/message/codes"
	"github.com/plgd-dev/go-coap/v3/udp"
	"github.com/plgd-dev/go-coap/v3/udp/client"
)

// CoAPPath is the resource datapoints are PUT to.
const CoAPPath = "/data"

// CoAPSink PUTs each payload to CoAPPath. The client is dialled on first use.
type CoAPSink struct {
	endpoint string

	mu     sync.Mutex
	conn   *client.Conn
	closed bool
}

// NewCoAPSink creates a sink for endpoint (host:port).
func NewCoAPSink(endpoint string) *CoAPSink {
	return &CoAPSink{endpoint: endpoint}
}

func (s *CoAPSink) dial() (*client.Conn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	if s.conn == nil {
		conn, err := udp.Dial(s.endpoint)
		if err != nil {
			return nil, fmt.Errorf("dial coap %s: %w", s.endpoint, err)
		}
		s.conn = conn
	}
	return s.conn, nil
}

func (s *CoAPSink) Send(ctx context.Context, payload []byte, contentType string) error {
	conn, err := s.dial()
	if err != nil {
		return err
	}
	format := message.TextPlain
	if contentType == ContentJSON {
		format = message.AppJSON
	}
	resp, err := conn.Put(ctx, CoAPPath, format, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("put coap %s: %w", s.endpoint, err)
	}
	if c := resp.Code(); c >= codes.BadRequest {
		return fmt.Errorf("put coap %s: unexpected code %v", s.endpoint, c)
	}
	return nil
}

func (s *CoAPSink) Close() error {
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
