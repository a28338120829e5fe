package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/dafibh/revledger/revledger-backend/internal/domain"
)

// InvoiceEventMessage is the wire form of an invoice lifecycle event.
// Updates may carry the new state in either invoice or currentInvoice.
type InvoiceEventMessage struct {
	EventID         string                  `json:"eventId,omitempty"`
	Type            domain.InvoiceEventKind `json:"type"`
	Invoice         *domain.InvoiceSnapshot `json:"invoice,omitempty"`
	PreviousInvoice *domain.InvoiceSnapshot `json:"previousInvoice,omitempty"`
	CurrentInvoice  *domain.InvoiceSnapshot `json:"currentInvoice,omitempty"`
	Timestamp       time.Time               `json:"timestamp"`
}

// NewInvoiceEventMessage wraps a domain event for publishing
func NewInvoiceEventMessage(event domain.InvoiceEvent) *InvoiceEventMessage {
	invoice := event.Invoice
	msg := &InvoiceEventMessage{
		EventID:   event.ID,
		Type:      event.Kind,
		Timestamp: event.OccurredAt,
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}
	if event.Kind == domain.InvoiceUpdated {
		msg.CurrentInvoice = &invoice
		msg.PreviousInvoice = event.Previous
	} else {
		msg.Invoice = &invoice
	}
	return msg
}

// ToJSON converts the message to JSON bytes
func (m *InvoiceEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ToEvent converts the message into a domain event. Field-level validation
// is left to the event service so bad payloads end up dead-lettered there.
func (m *InvoiceEventMessage) ToEvent() (domain.InvoiceEvent, error) {
	current := m.CurrentInvoice
	if current == nil {
		current = m.Invoice
	}
	if current == nil {
		return domain.InvoiceEvent{}, fmt.Errorf("%w: message has no invoice", domain.ErrValidationFailure)
	}

	return domain.InvoiceEvent{
		ID:         m.EventID,
		Kind:       m.Type,
		Invoice:    *current,
		Previous:   m.PreviousInvoice,
		OccurredAt: m.Timestamp,
	}, nil
}

// InvoiceEventMessageFromJSON creates a message from JSON bytes
func InvoiceEventMessageFromJSON(data []byte) (*InvoiceEventMessage, error) {
	var msg InvoiceEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
