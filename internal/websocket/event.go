package websocket

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventType represents what happened to an entity
type EventType string

const (
	EventTypeUpdated    EventType = "updated"
	EventTypeDeleted    EventType = "deleted"
	EventTypeRecomputed EventType = "recomputed"
)

// EntityType represents the type of entity the event is about
type EntityType string

const (
	EntityTypeRevenue EntityType = "revenue"
)

// Event represents a WebSocket event message sent to clients
// Format: { type, entity, payload, timestamp }
type Event struct {
	Type      string      `json:"type"`      // Combined type e.g. "revenue.updated"
	Entity    EntityType  `json:"entity"`    // Entity type e.g. "revenue"
	Payload   interface{} `json:"payload"`   // Full entity data
	Timestamp time.Time   `json:"timestamp"` // Event timestamp
}

// NewEvent creates a new event with the given type, entity, and payload
func NewEvent(eventType EventType, entityType EntityType, payload interface{}) Event {
	return Event{
		Type:      fmt.Sprintf("%s.%s", entityType, eventType),
		Entity:    entityType,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	}
}

// ToJSON serializes the event to JSON bytes
func (e Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// RevenueUpdated creates a revenue.updated event
func RevenueUpdated(payload interface{}) Event {
	return NewEvent(EventTypeUpdated, EntityTypeRevenue, payload)
}

// RevenueDeleted creates a revenue.deleted event
func RevenueDeleted(payload interface{}) Event {
	return NewEvent(EventTypeDeleted, EntityTypeRevenue, payload)
}

// RevenueRecomputed creates a revenue.recomputed event
func RevenueRecomputed(payload interface{}) Event {
	return NewEvent(EventTypeRecomputed, EntityTypeRevenue, payload)
}
