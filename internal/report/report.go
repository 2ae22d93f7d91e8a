// Package report collects the per-stage status documents of node agents and
// appends them to one or more sinks.
package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Report is one collected status document.
type Report struct {
	Run         string
	Stage       string
	Host        string
	CollectedAt time.Time
	// Document is the agent's document annotated with stage and host.
	Document map[string]any
}

// JSON returns the annotated document.
func (r Report) JSON() ([]byte, error) {
	return json.Marshal(r.Document)
}

// Writer appends reports to a sink.
type Writer interface {
	Write(Report) error
}

// Annotate decodes raw and adds the stage and logical host id. An object gets
// the two fields merged in; any other JSON value is wrapped under "report".
func Annotate(raw []byte, stage, host string) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("decode report: %w", err)
	}
	doc, ok := v.(map[string]any)
	if !ok {
		doc = map[string]any{"report": v}
	}
	doc["stage"] = stage
	doc["host"] = host
	return doc, nil
}
