// Package transport delivers encoded datapoints to a generator's endpoint.
package transport

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"mockfogload/internal/plan"
)

// Content types of encoded datapoints.
const (
	ContentJSON = "application/json"
	ContentText = "text/plain"
)

// ErrClosed is returned by Send once the sink has been closed.
var ErrClosed = errors.New("sink closed")

// Sink sends payloads to one endpoint over one protocol.
type Sink interface {
	Send(ctx context.Context, payload []byte, contentType string) error
	Close() error
}

// Open returns the sink for protocol and endpoint. HTTP endpoints are URLs,
// UDP and CoAP endpoints are host:port pairs.
func Open(protocol plan.Protocol, endpoint string, client *http.Client) (Sink, error) {
	switch protocol {
	case plan.ProtocolHTTP, "":
		return NewHTTPSink(endpoint, client), nil
	case plan.ProtocolUDP:
		return NewUDPSink(endpoint)
	case plan.ProtocolCoAP:
		return NewCoAPSink(endpoint), nil
	}
	return nil, fmt.Errorf("unsupported protocol %q", protocol)
}
