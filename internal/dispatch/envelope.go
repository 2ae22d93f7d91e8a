package dispatch

import (
	"encoding/json"
	"strconv"
	"time"
)

// TypeModify is the event type of every generator change.
const TypeModify = "modify"

// Envelope wraps one change for the node agent or generator runtime.
// Application and interface changes carry the stage id in ID, generator
// changes carry TypeModify in Type.
type Envelope struct {
	ID        string `json:"id,omitempty"`
	Type      string `json:"type,omitempty"`
	Timestamp string `json:"timestamp"`
	Data      any    `json:"data"`
}

// Timestamp formats t as epoch milliseconds.
func Timestamp(t time.Time) string {
	return strconv.FormatInt(t.UnixMilli(), 10)
}

// Encode serializes the envelope as a one-element JSON array, the batch form
// the receiving endpoints expect.
func (e Envelope) Encode() ([]byte, error) {
	return json.Marshal([]Envelope{e})
}
