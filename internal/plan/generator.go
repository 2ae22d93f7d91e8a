package plan

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Protocol is the transport a generator emits over.
type Protocol string

const (
	ProtocolHTTP Protocol = "HTTP"
	ProtocolUDP  Protocol = "UDP"
	ProtocolCoAP Protocol = "COAP"
)

// ParseProtocol accepts HTTP, UDP and COAP in any case.
func ParseProtocol(s string) (Protocol, error) {
	switch p := Protocol(strings.ToUpper(strings.TrimSpace(s))); p {
	case ProtocolHTTP, ProtocolUDP, ProtocolCoAP:
		return p, nil
	}
	return "", fmt.Errorf("unknown protocol %q", s)
}

// GeneratorChange reconfigures one generator. Every field except ID is
// optional; a nil field leaves the generator's current value unchanged.
type GeneratorChange struct {
	ID                 string  `yaml:"id" json:"id"`
	Kind               *string `yaml:"kind,omitempty" json:"kind,omitempty"`
	Endpoint           *string `yaml:"endpoint,omitempty" json:"endpoint,omitempty"`
	EndpointPort       *string `yaml:"endpoint_port,omitempty" json:"endpoint_port,omitempty"`
	Active             *bool   `yaml:"active,omitempty" json:"active,omitempty"`
	Frequency          *Number `yaml:"frequency,omitempty" json:"frequency,omitempty"`
	EventsPerSecond    *Number `yaml:"events_per_second,omitempty" json:"events_per_second,omitempty"`
	Granularity        *Number `yaml:"granularity,omitempty" json:"granularity,omitempty"`
	GranularitySeconds *Number `yaml:"granularity_seconds,omitempty" json:"granularity_seconds,omitempty"`
	VirtualTime        *Number `yaml:"virtual_time,omitempty" json:"virtual_time,omitempty"`
	Protocol           *string `yaml:"protocol,omitempty" json:"protocol,omitempty"`
	FormatString       *string `yaml:"format_string,omitempty" json:"format_string,omitempty"`
	Seed               *Number `yaml:"seed,omitempty" json:"seed,omitempty"`
}

// MaxEventsPerSecond is the highest rate a millisecond frequency can express.
const MaxEventsPerSecond = 1000

// Validate rejects changes that a generator runtime could not apply.
func (g GeneratorChange) Validate(isKind func(string) bool) error {
	if g.ID == "" {
		return fmt.Errorf("generator id is required")
	}
	if g.Kind != nil && isKind != nil && !isKind(*g.Kind) {
		return fmt.Errorf("generator %s: unknown kind %q", g.ID, *g.Kind)
	}
	if g.Protocol != nil {
		if _, err := ParseProtocol(*g.Protocol); err != nil {
			return fmt.Errorf("generator %s: %w", g.ID, err)
		}
	}
	if g.Endpoint != nil && g.EndpointPort == nil {
		return fmt.Errorf("generator %s: endpoint_port is required with endpoint", g.ID)
	}
	for name, n := range map[string]*Number{
		"frequency":           g.Frequency,
		"events_per_second":   g.EventsPerSecond,
		"granularity":         g.Granularity,
		"granularity_seconds": g.GranularitySeconds,
		"virtual_time":        g.VirtualTime,
	} {
		if n == nil {
			continue
		}
		v, err := n.Int64()
		if err != nil {
			return fmt.Errorf("generator %s: %s: %w", g.ID, name, err)
		}
		if v < 0 || (v == 0 && name != "virtual_time") {
			return fmt.Errorf("generator %s: %s must be positive", g.ID, name)
		}
		if name == "events_per_second" && v > MaxEventsPerSecond {
			return fmt.Errorf("generator %s: events_per_second %d exceeds %d", g.ID, v, MaxEventsPerSecond)
		}
	}
	return nil
}

// IsHTTP reports whether the change targets the HTTP transport, which is
// also the default when no protocol is given.
func (g GeneratorChange) IsHTTP() bool {
	if g.Protocol == nil {
		return true
	}
	p, err := ParseProtocol(*g.Protocol)
	return err == nil && p == ProtocolHTTP
}

// Number is an integer field that keeps its raw literal, so a malformed value
// is reported when the field is applied instead of failing the whole document.
// It decodes from JSON numbers, JSON strings and YAML scalars.
type Number string

// Int64 parses the literal.
func (n Number) Int64() (int64, error) {
	v, err := strconv.ParseInt(strings.TrimSpace(string(n)), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("malformed number %q", string(n))
	}
	return v, nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (n *Number) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*n = Number(s)
		return nil
	}
	*n = Number(b)
	return nil
}

// MarshalJSON writes well-formed integers as JSON numbers and anything else
// as a string.
func (n Number) MarshalJSON() ([]byte, error) {
	if v, err := n.Int64(); err == nil {
		return []byte(strconv.FormatInt(v, 10)), nil
	}
	return json.Marshal(string(n))
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (n *Number) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: expected a scalar number", value.Line)
	}
	*n = Number(value.Value)
	return nil
}

// Int returns a pointer to a Number holding v.
func Int(v int64) *Number {
	n := Number(strconv.FormatInt(v, 10))
	return &n
}

// String returns a pointer to s.
func String(s string) *string { return &s }

// Bool returns a pointer to b.
func Bool(b bool) *bool { return &b }
