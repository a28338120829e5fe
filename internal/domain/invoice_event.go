package domain

import "time"

// InvoiceEventKind is the lifecycle event published by the invoice subsystem
type InvoiceEventKind string

const (
	InvoiceCreated InvoiceEventKind = "invoice.created"
	InvoiceUpdated InvoiceEventKind = "invoice.updated"
	InvoiceDeleted InvoiceEventKind = "invoice.deleted"
)

// InvoiceEvent is a single invoice lifecycle notification.
// For updates Invoice carries the current state and Previous the prior one.
type InvoiceEvent struct {
	ID         string           `json:"eventId,omitempty"`
	Kind       InvoiceEventKind `json:"type"`
	Invoice    InvoiceSnapshot  `json:"invoice"`
	Previous   *InvoiceSnapshot `json:"previousInvoice,omitempty"`
	OccurredAt time.Time        `json:"timestamp"`
}

// EventOutcome is the result of handling one invoice event
type EventOutcome string

const (
	OutcomeApplied   EventOutcome = "applied"
	OutcomeNoop      EventOutcome = "noop"
	OutcomeDuplicate EventOutcome = "duplicate"
	OutcomeDropped   EventOutcome = "dropped"
	OutcomeFailed    EventOutcome = "failed"
)

// EventResult describes what handling an event did
type EventResult struct {
	EventID    string       `json:"eventId,omitempty"`
	Outcome    EventOutcome `json:"outcome"`
	ChangeType ChangeType   `json:"changeType,omitempty"`
	Periods    []string     `json:"periods,omitempty"`
	Error      string       `json:"error,omitempty"`
}

// DeadLetter is an event that could not be applied
type DeadLetter struct {
	EventID    string           `json:"eventId,omitempty"`
	Kind       InvoiceEventKind `json:"type"`
	InvoiceID  string           `json:"invoiceId"`
	Period     string           `json:"period,omitempty"`
	ChangeType ChangeType       `json:"changeType,omitempty"`
	Reason     string           `json:"reason"`
	Error      string           `json:"error"`
	Event      InvoiceEvent     `json:"event"`
	OccurredAt time.Time        `json:"occurredAt"`
}
