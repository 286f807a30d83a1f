package alert

import "encoding/json"

// MessageType identifies the kind of message carried by an Envelope.
type MessageType string

// MsgAlert carries an Event payload.
const MsgAlert MessageType = "alertEvent"

// Envelope wraps every message on the wire, whatever the transport.
type Envelope struct {
	Type    MessageType     `json:"type"`
	Seq     uint64          `json:"seq"`
	Payload json.RawMessage `json:"payload"`
}

// NewEnvelope wraps ev as an alertEvent message with the given sequence.
func NewEnvelope(seq uint64, ev Event) (Envelope, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Type: MsgAlert, Seq: seq, Payload: data}, nil
}

// Handshake is returned by the feed server before a polling session starts.
type Handshake struct {
	Seq        uint64   `json:"seq"`
	Transports []string `json:"transports"`
}
