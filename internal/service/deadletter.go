package service

import (
	"context"
	"errors"

	"github.com/dafibh/revledger/revledger-backend/internal/domain"
	"github.com/rs/zerolog"
)

// DeadLetterSink stores invoice events that could not be applied
type DeadLetterSink interface {
	Record(ctx context.Context, letter domain.DeadLetter) error
}

// LogDeadLetterSink writes dead letters to the structured log
type LogDeadLetterSink struct {
	logger zerolog.Logger
}

// NewLogDeadLetterSink creates a sink backed by logger
func NewLogDeadLetterSink(logger zerolog.Logger) *LogDeadLetterSink {
	return &LogDeadLetterSink{logger: logger.With().Str("component", "dead_letter").Logger()}
}

// Record implements DeadLetterSink
func (s *LogDeadLetterSink) Record(_ context.Context, letter domain.DeadLetter) error {
	s.logger.Error().
		Str("event_id", letter.EventID).
		Str("event_type", string(letter.Kind)).
		Str("invoice_id", letter.InvoiceID).
		Str("period", letter.Period).
		Str("change_type", string(letter.ChangeType)).
		Str("reason", letter.Reason).
		Str("error", letter.Error).
		Interface("event", letter.Event).
		Msg("Invoice event dead-lettered")
	return nil
}

// MultiDeadLetterSink fans a dead letter out to several sinks
type MultiDeadLetterSink []DeadLetterSink

// Record implements DeadLetterSink; it tries every sink and joins failures
func (m MultiDeadLetterSink) Record(ctx context.Context, letter domain.DeadLetter) error {
	var errs []error
	for _, sink := range m {
		if sink == nil {
			continue
		}
		if err := sink.Record(ctx, letter); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
