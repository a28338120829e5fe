package amqp

import (
	"context"
	"time"
	"unicode/utf8"

	"github.com/dafibh/revledger/revledger-backend/internal/domain"
	"github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

// EventHandler applies one invoice event
type EventHandler interface {
	Handle(ctx context.Context, event domain.InvoiceEvent) domain.EventResult
}

// DeadLetterRecorder stores messages that could not be applied
type DeadLetterRecorder interface {
	Record(ctx context.Context, letter domain.DeadLetter) error
}

// Consumer turns deliveries into invoice events.
// Undecodable messages are rejected without requeue; every decoded message
// is acked because the handler already dead-letters its own failures.
type Consumer struct {
	handler EventHandler
	sink    DeadLetterRecorder
	logger  zerolog.Logger
}

// NewConsumer creates a consumer; sink may be nil
func NewConsumer(handler EventHandler, sink DeadLetterRecorder, logger zerolog.Logger) *Consumer {
	return &Consumer{
		handler: handler,
		sink:    sink,
		logger:  logger.With().Str("component", "invoice_consumer").Logger(),
	}
}

// Process handles a single delivery and acknowledges it
func (c *Consumer) Process(ctx context.Context, delivery amqp091.Delivery) {
	msg, err := InvoiceEventMessageFromJSON(delivery.Body)
	if err == nil {
		var event domain.InvoiceEvent
		event, err = msg.ToEvent()
		if err == nil {
			result := c.handler.Handle(ctx, event)
			c.logger.Debug().
				Str("event_id", result.EventID).
				Str("outcome", string(result.Outcome)).
				Msg("Processed invoice event")
			if ackErr := delivery.Ack(false); ackErr != nil {
				c.logger.Error().Err(ackErr).Str("event_id", event.ID).Msg("Failed to ack delivery")
			}
			return
		}
	}

	c.logger.Error().
		Err(err).
		Str("message_id", delivery.MessageId).
		Msg("Failed to decode invoice event")
	c.recordUndecodable(ctx, delivery, err)

	// reject and don't requeue
	if nackErr := delivery.Nack(false, false); nackErr != nil {
		c.logger.Error().Err(nackErr).Str("message_id", delivery.MessageId).Msg("Failed to nack delivery")
	}
}

func (c *Consumer) recordUndecodable(ctx context.Context, delivery amqp091.Delivery, cause error) {
	if c.sink == nil {
		return
	}
	letter := domain.DeadLetter{
		EventID:    delivery.MessageId,
		Reason:     "decode",
		Error:      cause.Error() + ": " + truncate(string(delivery.Body), 512),
		OccurredAt: time.Now().UTC(),
	}
	if err := c.sink.Record(ctx, letter); err != nil {
		c.logger.Error().Err(err).Msg("Failed to record dead letter")
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
