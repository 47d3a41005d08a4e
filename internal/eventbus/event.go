package eventbus

import (
	"time"

	"github.com/google/uuid"
)

// Wildcard subscribes to every event type.
const Wildcard = "*"

// Event is an immutable pub/sub record. Event types are hierarchical
// strings such as "plugin/loaded". Callers must not mutate the payload
// after publishing.
type Event struct {
	Type          string         `json:"type"`
	ID            string         `json:"id"`
	Timestamp     time.Time      `json:"timestamp"`
	Source        string         `json:"source"`
	Payload       map[string]any `json:"payload,omitempty"`
	CorrelationID string         `json:"correlation_id,omitempty"`
}

func newEvent(eventType, source string, payload map[string]any, correlationID string) Event {
	return Event{
		Type:          eventType,
		ID:            uuid.NewString(),
		Timestamp:     time.Now().UTC(),
		Source:        source,
		Payload:       payload,
		CorrelationID: correlationID,
	}
}
