package amqp

import (
	"encoding/json"
	"time"
)

// Obligation lifecycle event names carried on the bus.
const (
	EventObligationCreated = "obligation.created"
	EventObligationUpdated = "obligation.updated"
	EventObligationDeleted = "obligation.deleted"
	EventSeriesCreated     = "series.created"
	EventSeriesDeleted     = "series.deleted"
	EventConfirmationAdded = "confirmation.recorded"
	EventObligationSettled = "obligation.settled"
)

// ObligationEventMessage is a lightweight notification: id plus event name.
// Consumers fetch current state from the database; the message is a nudge,
// not a snapshot.
type ObligationEventMessage struct {
	Event        string    `json:"event"`
	ObligationID int64     `json:"obligation_id,omitempty"`
	SeriesID     string    `json:"series_id,omitempty"`
	OwnerID      string    `json:"owner_id"`
	Timestamp    time.Time `json:"timestamp"`
}

// NewObligationEventMessage creates an event message stamped with now.
func NewObligationEventMessage(event, ownerID string, obligationID int64, seriesID string) *ObligationEventMessage {
	return &ObligationEventMessage{
		Event:        event,
		ObligationID: obligationID,
		SeriesID:     seriesID,
		OwnerID:      ownerID,
		Timestamp:    time.Now(),
	}
}

// ToJSON converts the message to JSON bytes.
func (m *ObligationEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ObligationEventMessageFromJSON creates a message from JSON bytes.
func ObligationEventMessageFromJSON(data []byte) (*ObligationEventMessage, error) {
	var msg ObligationEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
