package amqp

import (
	"encoding/json"
	"time"
)

// EntityChangeMessage announces that a trip or expense changed in the remote
// document store. Consumers interested in the full record fetch it themselves;
// the message carries identity only.
type EntityChangeMessage struct {
	Kind       string    `json:"kind"` // created | deleted
	Collection string    `json:"collection"`
	ID         string    `json:"id"`
	TripID     string    `json:"tripId,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

func NewEntityChangeMessage(kind, collection, id, tripID string) *EntityChangeMessage {
	return &EntityChangeMessage{
		Kind:       kind,
		Collection: collection,
		ID:         id,
		TripID:     tripID,
		Timestamp:  time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *EntityChangeMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// EntityChangeMessageFromJSON creates a message from JSON bytes
func EntityChangeMessageFromJSON(data []byte) (*EntityChangeMessage, error) {
	var msg EntityChangeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
