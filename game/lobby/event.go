package lobby

import "encoding/json"

// EventType names a lobby notification.
type EventType string

const (
	EventStart        EventType = "start"
	EventOpponentLeft EventType = "opponent_left"
)

// Event is a notification the lobby emits to an occupant.
type Event struct {
	Type      EventType `json:"event"`
	SessionID string    `json:"session_id"`
	Role      Role      `json:"role,omitempty"`
}

// Encoder turns an Event into a wire payload.
type Encoder interface {
	Encode(Event) ([]byte, error)
}

// EncoderFunc adapts a function to Encoder.
type EncoderFunc func(Event) ([]byte, error)

// Encode calls f(e).
func (f EncoderFunc) Encode(e Event) ([]byte, error) { return f(e) }

// JSONEncoder encodes events as JSON objects, e.g.
// {"event":"start","session_id":"…","role":"player_one"}.
type JSONEncoder struct{}

// Encode marshals e with encoding/json.
func (JSONEncoder) Encode(e Event) ([]byte, error) {
	return json.Marshal(e)
}
