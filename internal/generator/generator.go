// Package generator runs the named synthetic data generators of one node and
// applies the reconfiguration events sent by the orchestrator.
package generator

import (
	"context"
	"sync/atomic"
	"time"

	"mockfogload/internal/datagen"
	"mockfogload/internal/plan"
	"mockfogload/internal/transport"
)

// Encoding selects how datapoints are serialized.
type Encoding string

const (
	EncodingJSON   Encoding = "json"
	EncodingFormat Encoding = "format"
)

// Defaults for a freshly created generator.
const (
	DefaultFrequency   = 100 * time.Millisecond
	DefaultGranularity = time.Hour
	DefaultEndpoint    = "http://localhost:3000/"
	DefaultProtocol    = plan.ProtocolHTTP
	DefaultSeed        = 42
)

// DefaultClock is the initial virtual time of every generator.
var DefaultClock = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

// Generator is one named emitter. All fields are guarded by the registry lock.
type Generator struct {
	ID          string
	Kind        string
	Seed        int64
	Active      bool
	Frequency   time.Duration
	Granularity time.Duration
	Protocol    plan.Protocol
	Endpoint    string
	Encoding    Encoding
	Template    string
	Clock       time.Time

	source datagen.Source
	sink   transport.Sink

	// cancel is the handle of the periodic task; non-nil iff Active.
	cancel context.CancelFunc
	// generation changes whenever the task is stopped or started, so a tick
	// belonging to an earlier task does nothing.
	generation uint64

	emitted atomic.Uint64
	failed  atomic.Uint64
}

func newGenerator(id, kind string, seed int64) (*Generator, error) {
	src, err := datagen.New(kind, seed)
	if err != nil {
		return nil, err
	}
	return &Generator{
		ID:          id,
		Kind:        kind,
		Seed:        seed,
		Frequency:   DefaultFrequency,
		Granularity: DefaultGranularity,
		Protocol:    DefaultProtocol,
		Endpoint:    DefaultEndpoint,
		Encoding:    EncodingJSON,
		Clock:       DefaultClock,
		source:      src,
	}, nil
}

// closeSink drops the cached transport so the next tick reopens it.
func (g *Generator) closeSink() error {
	if g.sink == nil {
		return nil
	}
	err := g.sink.Close()
	g.sink = nil
	return err
}

// Status is a point-in-time copy of a generator's state.
type Status struct {
	ID           string        `json:"id"`
	Kind         string        `json:"kind"`
	Active       bool          `json:"active"`
	Frequency    int64         `json:"frequency"`
	Granularity  int64         `json:"granularity"`
	Protocol     plan.Protocol `json:"protocol"`
	Endpoint     string        `json:"endpoint"`
	Encoding     Encoding      `json:"encoding"`
	FormatString string        `json:"format_string,omitempty"`
	VirtualTime  time.Time     `json:"virtual_time"`
	Emitted      uint64        `json:"emitted"`
	Failed       uint64        `json:"failed"`
}

func (g *Generator) status() Status {
	return Status{
		ID:           g.ID,
		Kind:         g.Kind,
		Active:       g.Active,
		Frequency:    g.Frequency.Milliseconds(),
		Granularity:  g.Granularity.Milliseconds(),
		Protocol:     g.Protocol,
		Endpoint:     g.Endpoint,
		Encoding:     g.Encoding,
		FormatString: g.Template,
		VirtualTime:  g.Clock,
		Emitted:      g.emitted.Load(),
		Failed:       g.failed.Load(),
	}
}
