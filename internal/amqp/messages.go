package amqp

import (
	"encoding/json"
	"fmt"

	"michaucha/internal/core"
)

// encodeEvent serialises an event as the message body.
func encodeEvent(e core.Event) ([]byte, error) {
	return json.Marshal(e)
}

// decodeEvent parses a message body. Events without an id or type are
// rejected so they can be dead-lettered.
func decodeEvent(body []byte) (core.Event, error) {
	var e core.Event
	if err := json.Unmarshal(body, &e); err != nil {
		return core.Event{}, err
	}
	if e.ID == "" || e.Type == "" {
		return core.Event{}, fmt.Errorf("event missing id or type")
	}
	return e, nil
}

// routingKey is the event type, so consumers can bind by pattern.
func routingKey(e core.Event) string {
	return string(e.Type)
}
