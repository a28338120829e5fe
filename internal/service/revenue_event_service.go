package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/dafibh/revledger/revledger-backend/internal/clock"
	"github.com/dafibh/revledger/revledger-backend/internal/domain"
	"github.com/dafibh/revledger/revledger-backend/internal/metrics"
	"github.com/dafibh/revledger/revledger-backend/internal/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Dead-letter reasons
const (
	ReasonValidation  = "validation"
	ReasonPeriod      = "invalid_period"
	ReasonNotFound    = "revenue_not_found"
	ReasonPersistence = "persistence"
	ReasonIdempotency = "idempotency"
	ReasonInternal    = "internal"
)

// RevenueEventService keeps revenue aggregates in step with invoice events.
// Handle never returns an error: failures are logged, dead-lettered and
// reported in the EventResult so one bad event cannot stall the consumer.
type RevenueEventService struct {
	revenueRepo    domain.RevenueRepository
	guard          *IdempotencyGuard
	resolver       domain.PeriodResolver
	sink           DeadLetterSink
	eventPublisher websocket.EventPublisher
	metrics        *metrics.RevenueMetrics
	clock          clock.Clock
	logger         zerolog.Logger
}

// NewRevenueEventService creates a new RevenueEventService
func NewRevenueEventService(revenueRepo domain.RevenueRepository, guard *IdempotencyGuard, resolver domain.PeriodResolver) *RevenueEventService {
	if guard == nil {
		guard = NewIdempotencyGuard(nil)
	}
	return &RevenueEventService{
		revenueRepo: revenueRepo,
		guard:       guard,
		resolver:    resolver,
		sink:        NewLogDeadLetterSink(log.Logger),
		clock:       clock.System{},
		logger:      log.Logger.With().Str("component", "revenue_events").Logger(),
	}
}

// SetEventPublisher sets the event publisher for real-time updates
func (s *RevenueEventService) SetEventPublisher(publisher websocket.EventPublisher) {
	s.eventPublisher = publisher
}

// SetDeadLetterSink replaces the default log-only sink
func (s *RevenueEventService) SetDeadLetterSink(sink DeadLetterSink) {
	if sink != nil {
		s.sink = sink
	}
}

// SetMetrics attaches event metrics
func (s *RevenueEventService) SetMetrics(m *metrics.RevenueMetrics) {
	s.metrics = m
}

// SetClock overrides the clock used for dead-letter timestamps
func (s *RevenueEventService) SetClock(c clock.Clock) {
	if c != nil {
		s.clock = c
	}
}

// publishEvent publishes a WebSocket event if a publisher is configured
func (s *RevenueEventService) publishEvent(event websocket.Event) {
	if s.eventPublisher != nil {
		s.eventPublisher.Publish(event)
	}
}

// HandleInvoiceCreated applies a newly created invoice
func (s *RevenueEventService) HandleInvoiceCreated(ctx context.Context, eventID string, invoice domain.InvoiceSnapshot) domain.EventResult {
	return s.Handle(ctx, domain.InvoiceEvent{ID: eventID, Kind: domain.InvoiceCreated, Invoice: invoice})
}

// HandleInvoiceUpdated applies the difference between two states of an invoice
func (s *RevenueEventService) HandleInvoiceUpdated(ctx context.Context, eventID string, previous, current domain.InvoiceSnapshot) domain.EventResult {
	return s.Handle(ctx, domain.InvoiceEvent{ID: eventID, Kind: domain.InvoiceUpdated, Invoice: current, Previous: &previous})
}

// HandleInvoiceDeleted withdraws a deleted invoice
func (s *RevenueEventService) HandleInvoiceDeleted(ctx context.Context, eventID string, invoice domain.InvoiceSnapshot) domain.EventResult {
	return s.Handle(ctx, domain.InvoiceEvent{ID: eventID, Kind: domain.InvoiceDeleted, Invoice: invoice})
}

// plan is the resolved form of an event. changeType is only set for updates.
type plan struct {
	changeType domain.ChangeType
	steps      []step
}

// step is one locked read-modify-write on a single period
type step struct {
	period   time.Time
	additive bool
	apply    func(domain.RevenueTotals) domain.RevenueTotals
}

// Handle dispatches an invoice event by kind
func (s *RevenueEventService) Handle(ctx context.Context, event domain.InvoiceEvent) domain.EventResult {
	started := time.Now()
	result := s.handle(ctx, event)
	s.metrics.RecordEvent(string(event.Kind), string(result.Outcome), time.Since(started))
	return result
}

func (s *RevenueEventService) handle(ctx context.Context, event domain.InvoiceEvent) domain.EventResult {
	result := domain.EventResult{EventID: event.ID}

	if err := validateEvent(event); err != nil {
		return s.drop(ctx, event, result, "", ReasonValidation, err)
	}

	p, err := s.plan(event)
	if err != nil {
		return s.drop(ctx, event, result, event.Invoice.Date, ReasonPeriod, err)
	}
	result.ChangeType = p.changeType

	if len(p.steps) == 0 {
		result.Outcome = domain.OutcomeNoop
		s.logger.Debug().
			Str("event_id", event.ID).
			Str("event_type", string(event.Kind)).
			Str("invoice_id", event.Invoice.ID).
			Str("change_type", string(p.changeType)).
			Msg("Invoice event has no revenue effect")
		return result
	}

	var saved []*domain.RevenueAggregate
	var failedPeriod time.Time
	executed, err := s.guard.Run(ctx, event.ID, func(ctx context.Context) (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("%w: panic applying event: %v", domain.ErrInternalError, r)
			}
		}()
		saved, failedPeriod, err = s.applySteps(ctx, p.steps)
		return err
	})

	if err != nil {
		result.Outcome = domain.OutcomeFailed
		result.Error = err.Error()
		period := ""
		if !failedPeriod.IsZero() {
			period = domain.FormatPeriod(failedPeriod)
		}
		s.deadLetter(ctx, event, p.changeType, period, reasonFor(err, executed), err)
		return result
	}
	if !executed {
		result.Outcome = domain.OutcomeDuplicate
		s.logger.Info().
			Str("event_id", event.ID).
			Str("event_type", string(event.Kind)).
			Str("invoice_id", event.Invoice.ID).
			Msg("Skipping already processed invoice event")
		return result
	}

	result.Outcome = domain.OutcomeApplied
	for _, aggregate := range saved {
		result.Periods = append(result.Periods, domain.FormatPeriod(aggregate.Period))
		s.publishEvent(websocket.RevenueUpdated(aggregate))
	}

	s.logger.Info().
		Str("event_id", event.ID).
		Str("event_type", string(event.Kind)).
		Str("invoice_id", event.Invoice.ID).
		Str("change_type", string(p.changeType)).
		Strs("periods", result.Periods).
		Msg("Revenue updated from invoice event")
	return result
}

// plan resolves periods and picks the arithmetic for an event
func (s *RevenueEventService) plan(event domain.InvoiceEvent) (plan, error) {
	current := event.Invoice

	switch event.Kind {
	case domain.InvoiceCreated:
		period, err := s.resolver.Parse(current.Date)
		if err != nil {
			return plan{}, err
		}
		if !domain.IsEligible(current.Status) {
			return plan{}, nil
		}
		return plan{steps: []step{addStep(period, current)}}, nil

	case domain.InvoiceDeleted:
		period, err := s.resolver.Parse(current.Date)
		if err != nil {
			return plan{}, err
		}
		if !domain.IsEligible(current.Status) {
			return plan{}, nil
		}
		return plan{steps: []step{removeStep(period, current)}}, nil

	case domain.InvoiceUpdated:
		return s.planUpdate(*event.Previous, current)
	}

	return plan{}, fmt.Errorf("%w: unknown event type %q", domain.ErrValidationFailure, event.Kind)
}

func (s *RevenueEventService) planUpdate(previous, current domain.InvoiceSnapshot) (plan, error) {
	period, err := s.resolver.Parse(current.Date)
	if err != nil {
		return plan{}, err
	}
	changeType := domain.DetectChange(previous, current)

	// An update that moves the invoice to another month is a removal from the
	// old period followed by an addition to the new one
	if previous.Date != "" {
		previousPeriod, err := s.resolver.Parse(previous.Date)
		if err != nil {
			return plan{}, err
		}
		if !previousPeriod.Equal(period) {
			s.logger.Debug().
				Str("invoice_id", current.ID).
				Str("from_period", domain.FormatPeriod(previousPeriod)).
				Str("to_period", domain.FormatPeriod(period)).
				Str("detected_change", string(changeType)).
				Msg("Invoice moved to another period")
			var steps []step
			if domain.IsEligible(previous.Status) {
				steps = append(steps, removeStep(previousPeriod, previous))
			}
			if domain.IsEligible(current.Status) {
				steps = append(steps, addStep(period, current))
			}
			if len(steps) == 0 {
				return plan{changeType: changeType}, nil
			}
			return plan{changeType: domain.ChangePeriodMove, steps: steps}, nil
		}
	}

	p := plan{changeType: changeType}
	switch changeType {
	case domain.ChangeIneligibleToEligible:
		p.steps = []step{addStep(period, current)}
	case domain.ChangeEligibleToIneligible:
		p.steps = []step{removeStep(period, previous)}
	case domain.ChangeEligibleStatus:
		// Only the previous amount moves; an amount change in the same
		// update is not applied
		p.steps = []step{{
			period: period,
			apply: func(t domain.RevenueTotals) domain.RevenueTotals {
				return t.MoveBucket(previous.Status, current.Status, previous.Amount)
			},
		}}
	case domain.ChangeEligibleAmount:
		p.steps = []step{{
			period: period,
			apply: func(t domain.RevenueTotals) domain.RevenueTotals {
				return t.ChangeAmount(current.Status, previous.Amount, current.Amount)
			},
		}}
	}
	return p, nil
}

func addStep(period time.Time, invoice domain.InvoiceSnapshot) step {
	return step{
		period:   period,
		additive: true,
		apply: func(t domain.RevenueTotals) domain.RevenueTotals {
			return t.Add(invoice.Status, invoice.Amount)
		},
	}
}

func removeStep(period time.Time, invoice domain.InvoiceSnapshot) step {
	return step{
		period: period,
		apply: func(t domain.RevenueTotals) domain.RevenueTotals {
			return t.Remove(invoice.Status, invoice.Amount)
		},
	}
}

// applySteps runs every step of a plan as one unit of work. Periods are
// locked in chronological order and each further lock is taken inside the
// previous one, so either all periods are written or none are. On failure it
// returns the period being worked on.
func (s *RevenueEventService) applySteps(ctx context.Context, steps []step) ([]*domain.RevenueAggregate, time.Time, error) {
	ordered := append([]step(nil), steps...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].period.Before(ordered[j].period)
	})

	saved := make([]*domain.RevenueAggregate, 0, len(ordered))
	var current time.Time

	var lockFrom func(repo domain.RevenueRepository, i int) error
	lockFrom = func(repo domain.RevenueRepository, i int) error {
		if i == len(ordered) {
			return nil
		}
		st := ordered[i]
		current = st.period
		return repo.WithPeriodLock(ctx, st.period, func(tx domain.RevenueRepository) error {
			aggregate, err := applyLocked(ctx, tx, st)
			if err != nil {
				return err
			}
			saved = append(saved, aggregate)
			return lockFrom(tx, i+1)
		})
	}

	if err := lockFrom(s.revenueRepo, 0); err != nil {
		return nil, current, err
	}
	return saved, time.Time{}, nil
}

// applyLocked loads, mutates and persists one period. The caller holds the
// period's lock.
func applyLocked(ctx context.Context, repo domain.RevenueRepository, st step) (*domain.RevenueAggregate, error) {
	existing, err := repo.FindByPeriod(ctx, st.period)
	if err != nil && !errors.Is(err, domain.ErrRevenueNotFound) {
		return nil, err
	}

	if existing == nil {
		if !st.additive {
			return nil, fmt.Errorf("%w: no aggregate for %s", domain.ErrRevenueNotFound, domain.FormatPeriod(st.period))
		}
		return repo.Create(ctx, &domain.RevenueAggregate{
			Period:            st.period,
			CalculationSource: domain.CalculationSourceInvoiceEvent,
			RevenueTotals:     st.apply(domain.RevenueTotals{}),
		})
	}

	return repo.Update(ctx, existing.ID, domain.RevenuePatch{
		Totals:            st.apply(existing.RevenueTotals),
		CalculationSource: domain.CalculationSourceInvoiceEvent,
	})
}

func validateEvent(event domain.InvoiceEvent) error {
	switch event.Kind {
	case domain.InvoiceCreated, domain.InvoiceDeleted:
	case domain.InvoiceUpdated:
		if event.Previous == nil {
			return fmt.Errorf("%w: update without previous invoice", domain.ErrValidationFailure)
		}
		if err := validateSnapshot(*event.Previous); err != nil {
			return err
		}
	default:
		return fmt.Errorf("%w: unknown event type %q", domain.ErrValidationFailure, event.Kind)
	}
	return validateSnapshot(event.Invoice)
}

func validateSnapshot(invoice domain.InvoiceSnapshot) error {
	if invoice.ID == "" {
		return fmt.Errorf("%w: invoice id is required", domain.ErrValidationFailure)
	}
	if invoice.Amount < 0 {
		return fmt.Errorf("%w: invoice %s has negative amount %d", domain.ErrValidationFailure, invoice.ID, invoice.Amount)
	}
	return nil
}

func reasonFor(err error, executed bool) string {
	switch {
	case !executed:
		return ReasonIdempotency
	case errors.Is(err, domain.ErrRevenueNotFound):
		return ReasonNotFound
	case errors.Is(err, domain.ErrPersistenceFailure):
		return ReasonPersistence
	default:
		return ReasonInternal
	}
}

func (s *RevenueEventService) drop(ctx context.Context, event domain.InvoiceEvent, result domain.EventResult, period, reason string, err error) domain.EventResult {
	result.Outcome = domain.OutcomeDropped
	result.Error = err.Error()
	s.deadLetter(ctx, event, "", period, reason, err)
	return result
}

func (s *RevenueEventService) deadLetter(ctx context.Context, event domain.InvoiceEvent, changeType domain.ChangeType, period, reason string, cause error) {
	s.logger.Error().
		Err(cause).
		Str("event_id", event.ID).
		Str("event_type", string(event.Kind)).
		Str("invoice_id", event.Invoice.ID).
		Str("period", period).
		Str("change_type", string(changeType)).
		Str("reason", reason).
		Msg("Failed to apply invoice event")

	s.metrics.RecordDeadLetter(reason)

	letter := domain.DeadLetter{
		EventID:    event.ID,
		Kind:       event.Kind,
		InvoiceID:  event.Invoice.ID,
		Period:     period,
		ChangeType: changeType,
		Reason:     reason,
		Error:      cause.Error(),
		Event:      event,
		OccurredAt: s.clock.Now(),
	}
	if err := s.sink.Record(ctx, letter); err != nil {
		s.logger.Error().
			Err(err).
			Str("event_id", event.ID).
			Msg("Failed to record dead letter")
	}
}
