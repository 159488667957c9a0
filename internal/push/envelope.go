package push

import "encoding/json"

// EventJoin is the handshake frame a client sends first, carrying its identity id.
const EventJoin = "join"

// Envelope is one frame on the push connection.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func NewEnvelope(event string, data interface{}) (Envelope, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Event: event, Data: raw}, nil
}
