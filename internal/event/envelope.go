package event

import (
	"encoding/json"
	"time"
)

// Envelope is the wire form of an Event.
type Envelope struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      Event     `json:"data"`
}

// Wrap builds the wire envelope for e.
func Wrap(e Event) Envelope {
	return Envelope{Type: e.EventType(), Timestamp: e.Timestamp(), Data: e}
}

// MarshalJSON encodes e inside its envelope.
func MarshalJSON(e Event) ([]byte, error) {
	return json.Marshal(Wrap(e))
}
