package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/dafibh/revledger/revledger-backend/internal/clock"
	"github.com/dafibh/revledger/revledger-backend/internal/domain"
	"github.com/dafibh/revledger/revledger-backend/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, time.June, 15, 10, 30, 0, 0, time.UTC)

func period(year int, month time.Month) time.Time {
	return time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
}

func invoice(id string, status domain.InvoiceStatus, amount int64, date string) domain.InvoiceSnapshot {
	return domain.InvoiceSnapshot{ID: id, Status: status, Amount: amount, Date: date}
}

type eventFixture struct {
	repo      *testutil.MockRevenueRepository
	store     *testutil.MockIdempotencyStore
	sink      *testutil.RecordingDeadLetterSink
	publisher *testutil.RecordingPublisher
	service   *RevenueEventService
}

func newEventFixture() *eventFixture {
	repo := testutil.NewMockRevenueRepository()
	store := testutil.NewMockIdempotencyStore()
	sink := &testutil.RecordingDeadLetterSink{}
	publisher := &testutil.RecordingPublisher{}

	svc := NewRevenueEventService(repo, NewIdempotencyGuard(store), domain.NewPeriodResolver(2000, 2100))
	svc.SetDeadLetterSink(sink)
	svc.SetEventPublisher(publisher)
	svc.SetClock(clock.NewFakeClock(testNow))

	return &eventFixture{repo: repo, store: store, sink: sink, publisher: publisher, service: svc}
}

func TestHandleInvoiceCreated_NewPeriod(t *testing.T) {
	f := newEventFixture()

	result := f.service.HandleInvoiceCreated(context.Background(), "evt-1", invoice("inv-1", domain.InvoiceStatusPaid, 150000, "2025-01-15"))

	assert.Equal(t, domain.OutcomeApplied, result.Outcome)
	assert.Equal(t, []string{"2025-01-01"}, result.Periods)

	saved := f.repo.Get(period(2025, time.January))
	require.NotNil(t, saved)
	assert.Equal(t, domain.RevenueTotals{InvoiceCount: 1, TotalAmount: 150000, TotalPaidAmount: 150000}, saved.RevenueTotals)
	assert.Equal(t, domain.CalculationSourceInvoiceEvent, saved.CalculationSource)
	assert.Equal(t, 1, f.repo.CreateCalls)
	assert.Equal(t, []string{"revenue.updated"}, f.publisher.Types())
	assert.Empty(t, f.sink.All())
}

func TestHandleInvoiceCreated_ExistingPeriod(t *testing.T) {
	f := newEventFixture()
	f.repo.AddRevenue(&domain.RevenueAggregate{
		Period:        period(2025, time.January),
		RevenueTotals: domain.RevenueTotals{InvoiceCount: 1, TotalAmount: 150000, TotalPaidAmount: 150000},
	})

	result := f.service.HandleInvoiceCreated(context.Background(), "evt-2", invoice("inv-2", domain.InvoiceStatusPending, 50000, "2025-01-20"))

	assert.Equal(t, domain.OutcomeApplied, result.Outcome)
	saved := f.repo.Get(period(2025, time.January))
	assert.Equal(t, domain.RevenueTotals{
		InvoiceCount:       2,
		TotalAmount:        200000,
		TotalPaidAmount:    150000,
		TotalPendingAmount: 50000,
	}, saved.RevenueTotals)
	assert.Equal(t, 0, f.repo.CreateCalls)
	assert.Equal(t, 1, f.repo.UpdateCalls)
}

func TestHandleInvoiceCreated_IneligibleIsNoop(t *testing.T) {
	f := newEventFixture()

	result := f.service.HandleInvoiceCreated(context.Background(), "evt-1", invoice("inv-1", domain.InvoiceStatusCancelled, 150000, "2025-01-15"))

	assert.Equal(t, domain.OutcomeNoop, result.Outcome)
	assert.Empty(t, f.repo.Revenues)
	assert.Empty(t, f.publisher.Types())
	assert.Empty(t, f.store.Claimed)
}

func TestHandleInvoiceUpdated_StatusChange(t *testing.T) {
	f := newEventFixture()
	f.repo.AddRevenue(&domain.RevenueAggregate{
		Period:        period(2025, time.January),
		RevenueTotals: domain.RevenueTotals{InvoiceCount: 2, TotalAmount: 200000, TotalPaidAmount: 150000, TotalPendingAmount: 50000},
	})

	result := f.service.HandleInvoiceUpdated(context.Background(), "evt-3",
		invoice("inv-2", domain.InvoiceStatusPending, 50000, "2025-01-20"),
		invoice("inv-2", domain.InvoiceStatusPaid, 50000, "2025-01-20"))

	assert.Equal(t, domain.OutcomeApplied, result.Outcome)
	assert.Equal(t, domain.ChangeEligibleStatus, result.ChangeType)
	assert.Equal(t, domain.RevenueTotals{
		InvoiceCount:    2,
		TotalAmount:     200000,
		TotalPaidAmount: 200000,
	}, f.repo.Get(period(2025, time.January)).RevenueTotals)
}

func TestHandleInvoiceUpdated_StatusAndAmountMovesPreviousAmount(t *testing.T) {
	f := newEventFixture()
	f.repo.AddRevenue(&domain.RevenueAggregate{
		Period:        period(2025, time.March),
		RevenueTotals: domain.RevenueTotals{InvoiceCount: 1, TotalAmount: 1000, TotalPendingAmount: 1000},
	})

	result := f.service.HandleInvoiceUpdated(context.Background(), "evt-4",
		invoice("inv-9", domain.InvoiceStatusPending, 1000, "2025-03-02"),
		invoice("inv-9", domain.InvoiceStatusPaid, 1800, "2025-03-02"))

	assert.Equal(t, domain.ChangeEligibleStatus, result.ChangeType)
	assert.Equal(t, domain.RevenueTotals{
		InvoiceCount:    1,
		TotalAmount:     1000,
		TotalPaidAmount: 1000,
	}, f.repo.Get(period(2025, time.March)).RevenueTotals)
}

func TestHandleInvoiceUpdated_AmountChange(t *testing.T) {
	f := newEventFixture()
	f.repo.AddRevenue(&domain.RevenueAggregate{
		Period:        period(2025, time.March),
		RevenueTotals: domain.RevenueTotals{InvoiceCount: 1, TotalAmount: 1000, TotalPaidAmount: 1000},
	})

	result := f.service.HandleInvoiceUpdated(context.Background(), "evt-5",
		invoice("inv-9", domain.InvoiceStatusPaid, 1000, "2025-03-02"),
		invoice("inv-9", domain.InvoiceStatusPaid, 2500, "2025-03-02"))

	assert.Equal(t, domain.ChangeEligibleAmount, result.ChangeType)
	assert.Equal(t, domain.RevenueTotals{
		InvoiceCount:    1,
		TotalAmount:     2500,
		TotalPaidAmount: 2500,
	}, f.repo.Get(period(2025, time.March)).RevenueTotals)
}

func TestHandleInvoiceUpdated_BecomesIneligible(t *testing.T) {
	f := newEventFixture()
	f.repo.AddRevenue(&domain.RevenueAggregate{
		Period:        period(2025, time.March),
		RevenueTotals: domain.RevenueTotals{InvoiceCount: 1, TotalAmount: 1000, TotalPaidAmount: 1000},
	})

	result := f.service.HandleInvoiceUpdated(context.Background(), "evt-6",
		invoice("inv-9", domain.InvoiceStatusPaid, 1000, "2025-03-02"),
		invoice("inv-9", domain.InvoiceStatusCancelled, 1000, "2025-03-02"))

	assert.Equal(t, domain.OutcomeApplied, result.Outcome)
	assert.Equal(t, domain.ChangeEligibleToIneligible, result.ChangeType)
	assert.True(t, f.repo.Get(period(2025, time.March)).IsZero())
}

func TestHandleInvoiceUpdated_BecomesEligibleCreatesPeriod(t *testing.T) {
	f := newEventFixture()

	result := f.service.HandleInvoiceUpdated(context.Background(), "evt-7",
		invoice("inv-9", domain.InvoiceStatusCancelled, 1000, "2025-04-02"),
		invoice("inv-9", domain.InvoiceStatusPending, 1000, "2025-04-02"))

	assert.Equal(t, domain.ChangeIneligibleToEligible, result.ChangeType)
	assert.Equal(t, domain.RevenueTotals{
		InvoiceCount:       1,
		TotalAmount:        1000,
		TotalPendingAmount: 1000,
	}, f.repo.Get(period(2025, time.April)).RevenueTotals)
}

func TestHandleInvoiceUpdated_NoChange(t *testing.T) {
	f := newEventFixture()

	result := f.service.HandleInvoiceUpdated(context.Background(), "evt-8",
		invoice("inv-9", domain.InvoiceStatusPaid, 1000, "2025-04-02"),
		invoice("inv-9", domain.InvoiceStatusPaid, 1000, "2025-04-02"))

	assert.Equal(t, domain.OutcomeNoop, result.Outcome)
	assert.Equal(t, domain.ChangeNone, result.ChangeType)
	assert.Empty(t, f.repo.Revenues)
}

func TestHandleInvoiceUpdated_PeriodMove(t *testing.T) {
	f := newEventFixture()
	f.repo.AddRevenue(&domain.RevenueAggregate{
		Period:        period(2025, time.January),
		RevenueTotals: domain.RevenueTotals{InvoiceCount: 1, TotalAmount: 1000, TotalPaidAmount: 1000},
	})

	result := f.service.HandleInvoiceUpdated(context.Background(), "evt-9",
		invoice("inv-9", domain.InvoiceStatusPaid, 1000, "2025-01-31"),
		invoice("inv-9", domain.InvoiceStatusPaid, 1200, "2025-02-01"))

	assert.Equal(t, domain.OutcomeApplied, result.Outcome)
	assert.Equal(t, domain.ChangePeriodMove, result.ChangeType)
	assert.Equal(t, []string{"2025-01-01", "2025-02-01"}, result.Periods)
	assert.True(t, f.repo.Get(period(2025, time.January)).IsZero())
	assert.Equal(t, domain.RevenueTotals{InvoiceCount: 1, TotalAmount: 1200, TotalPaidAmount: 1200},
		f.repo.Get(period(2025, time.February)).RevenueTotals)
	assert.Equal(t, []string{"revenue.updated", "revenue.updated"}, f.publisher.Types())
}

func TestHandleInvoiceUpdated_PeriodMoveRollsBackOnFailure(t *testing.T) {
	f := newEventFixture()
	f.repo.AddRevenue(&domain.RevenueAggregate{
		Period:        period(2025, time.January),
		RevenueTotals: domain.RevenueTotals{InvoiceCount: 2, TotalAmount: 2000, TotalPaidAmount: 2000},
	})
	f.repo.CreateFn = func(ctx context.Context, aggregate *domain.RevenueAggregate) (*domain.RevenueAggregate, error) {
		return nil, fmt.Errorf("%w: disk full", domain.ErrPersistenceFailure)
	}
	previous := invoice("inv-1", domain.InvoiceStatusPaid, 1000, "2025-01-20")
	current := invoice("inv-1", domain.InvoiceStatusPaid, 1000, "2025-02-03")

	first := f.service.HandleInvoiceUpdated(context.Background(), "evt-move", previous, current)

	assert.Equal(t, domain.OutcomeFailed, first.Outcome)
	assert.Equal(t, domain.RevenueTotals{InvoiceCount: 2, TotalAmount: 2000, TotalPaidAmount: 2000},
		f.repo.Get(period(2025, time.January)).RevenueTotals)
	assert.Nil(t, f.repo.Get(period(2025, time.February)))
	letters := f.sink.All()
	require.Len(t, letters, 1)
	assert.Equal(t, ReasonPersistence, letters[0].Reason)
	assert.Equal(t, "2025-02-01", letters[0].Period)
	assert.Equal(t, domain.ChangePeriodMove, letters[0].ChangeType)
	assert.Empty(t, f.publisher.Types())

	// Redelivery after the store recovers moves exactly one invoice
	f.repo.CreateFn = nil
	second := f.service.HandleInvoiceUpdated(context.Background(), "evt-move", previous, current)

	assert.Equal(t, domain.OutcomeApplied, second.Outcome)
	assert.Equal(t, domain.RevenueTotals{InvoiceCount: 1, TotalAmount: 1000, TotalPaidAmount: 1000},
		f.repo.Get(period(2025, time.January)).RevenueTotals)
	assert.Equal(t, domain.RevenueTotals{InvoiceCount: 1, TotalAmount: 1000, TotalPaidAmount: 1000},
		f.repo.Get(period(2025, time.February)).RevenueTotals)
}

func TestHandleInvoiceUpdated_PeriodMoveBackwards(t *testing.T) {
	f := newEventFixture()
	f.repo.AddRevenue(&domain.RevenueAggregate{
		Period:        period(2025, time.March),
		RevenueTotals: domain.RevenueTotals{InvoiceCount: 1, TotalAmount: 700, TotalPendingAmount: 700},
	})

	result := f.service.HandleInvoiceUpdated(context.Background(), "evt-back",
		invoice("inv-3", domain.InvoiceStatusPending, 700, "2025-03-05"),
		invoice("inv-3", domain.InvoiceStatusPending, 700, "2025-02-27"))

	assert.Equal(t, domain.OutcomeApplied, result.Outcome)
	assert.Equal(t, domain.ChangePeriodMove, result.ChangeType)
	assert.Equal(t, []string{"2025-02-01", "2025-03-01"}, result.Periods)
	assert.True(t, f.repo.Get(period(2025, time.March)).IsZero())
	assert.Equal(t, int64(700), f.repo.Get(period(2025, time.February)).TotalPendingAmount)
}

func TestHandleInvoiceUpdated_IneligiblePeriodMoveIsNoop(t *testing.T) {
	f := newEventFixture()

	result := f.service.HandleInvoiceUpdated(context.Background(), "evt-void",
		invoice("inv-4", domain.InvoiceStatusCancelled, 700, "2025-03-05"),
		invoice("inv-4", domain.InvoiceStatusCancelled, 700, "2025-04-05"))

	assert.Equal(t, domain.OutcomeNoop, result.Outcome)
	assert.Equal(t, domain.ChangeNone, result.ChangeType)
	assert.Empty(t, f.repo.Revenues)
}

func TestHandleInvoiceUpdated_OppositeMovesDoNotDeadlock(t *testing.T) {
	f := newEventFixture()
	f.repo.AddRevenue(&domain.RevenueAggregate{
		Period:        period(2025, time.January),
		RevenueTotals: domain.RevenueTotals{InvoiceCount: 20, TotalAmount: 2000, TotalPaidAmount: 2000},
	})
	f.repo.AddRevenue(&domain.RevenueAggregate{
		Period:        period(2025, time.February),
		RevenueTotals: domain.RevenueTotals{InvoiceCount: 20, TotalAmount: 2000, TotalPaidAmount: 2000},
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(2)
			go func(i int) {
				defer wg.Done()
				f.service.HandleInvoiceUpdated(context.Background(), fmt.Sprintf("fwd-%d", i),
					invoice(fmt.Sprintf("a-%d", i), domain.InvoiceStatusPaid, 100, "2025-01-10"),
					invoice(fmt.Sprintf("a-%d", i), domain.InvoiceStatusPaid, 100, "2025-02-10"))
			}(i)
			go func(i int) {
				defer wg.Done()
				f.service.HandleInvoiceUpdated(context.Background(), fmt.Sprintf("back-%d", i),
					invoice(fmt.Sprintf("b-%d", i), domain.InvoiceStatusPaid, 100, "2025-02-10"),
					invoice(fmt.Sprintf("b-%d", i), domain.InvoiceStatusPaid, 100, "2025-01-10"))
			}(i)
		}
		wg.Wait()
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("opposite period moves did not finish")
	}

	assert.Equal(t, domain.RevenueTotals{InvoiceCount: 20, TotalAmount: 2000, TotalPaidAmount: 2000},
		f.repo.Get(period(2025, time.January)).RevenueTotals)
	assert.Equal(t, domain.RevenueTotals{InvoiceCount: 20, TotalAmount: 2000, TotalPaidAmount: 2000},
		f.repo.Get(period(2025, time.February)).RevenueTotals)
	assert.Empty(t, f.sink.All())
}

func TestHandleInvoiceDeleted(t *testing.T) {
	f := newEventFixture()
	f.repo.AddRevenue(&domain.RevenueAggregate{
		Period:        period(2025, time.January),
		RevenueTotals: domain.RevenueTotals{InvoiceCount: 2, TotalAmount: 200000, TotalPaidAmount: 200000},
	})

	result := f.service.HandleInvoiceDeleted(context.Background(), "evt-10", invoice("inv-1", domain.InvoiceStatusPaid, 150000, "2025-01-15"))

	assert.Equal(t, domain.OutcomeApplied, result.Outcome)
	assert.Equal(t, domain.RevenueTotals{InvoiceCount: 1, TotalAmount: 50000, TotalPaidAmount: 50000},
		f.repo.Get(period(2025, time.January)).RevenueTotals)
}

func TestHandleInvoiceDeleted_MissingAggregateIsDeadLettered(t *testing.T) {
	f := newEventFixture()

	result := f.service.HandleInvoiceDeleted(context.Background(), "evt-11", invoice("inv-1", domain.InvoiceStatusPaid, 150000, "2025-01-15"))

	assert.Equal(t, domain.OutcomeFailed, result.Outcome)
	assert.Empty(t, f.repo.Revenues)

	letters := f.sink.All()
	require.Len(t, letters, 1)
	assert.Equal(t, ReasonNotFound, letters[0].Reason)
	assert.Equal(t, "2025-01-01", letters[0].Period)
	assert.Equal(t, "evt-11", letters[0].EventID)
	assert.Equal(t, "inv-1", letters[0].InvoiceID)
	assert.Equal(t, testNow, letters[0].OccurredAt)

	// The claim is released so a redelivery can be retried
	assert.False(t, f.store.Claimed["evt-11"])
}

func TestHandle_DuplicateEvent(t *testing.T) {
	f := newEventFixture()
	created := invoice("inv-1", domain.InvoiceStatusPaid, 1000, "2025-01-15")

	first := f.service.HandleInvoiceCreated(context.Background(), "evt-dup", created)
	second := f.service.HandleInvoiceCreated(context.Background(), "evt-dup", created)

	assert.Equal(t, domain.OutcomeApplied, first.Outcome)
	assert.Equal(t, domain.OutcomeDuplicate, second.Outcome)
	assert.Equal(t, int64(1), f.repo.Get(period(2025, time.January)).InvoiceCount)
	assert.Empty(t, f.sink.All())
}

func TestHandle_EmptyEventIDIsNotDeduplicated(t *testing.T) {
	f := newEventFixture()
	created := invoice("inv-1", domain.InvoiceStatusPaid, 1000, "2025-01-15")

	f.service.HandleInvoiceCreated(context.Background(), "", created)
	f.service.HandleInvoiceCreated(context.Background(), "", created)

	assert.Equal(t, int64(2), f.repo.Get(period(2025, time.January)).InvoiceCount)
}

func TestHandle_Dropped(t *testing.T) {
	tests := []struct {
		name   string
		event  domain.InvoiceEvent
		reason string
	}{
		{
			name:   "missing invoice id",
			event:  domain.InvoiceEvent{ID: "e", Kind: domain.InvoiceCreated, Invoice: invoice("", domain.InvoiceStatusPaid, 1, "2025-01-01")},
			reason: ReasonValidation,
		},
		{
			name:   "negative amount",
			event:  domain.InvoiceEvent{ID: "e", Kind: domain.InvoiceCreated, Invoice: invoice("inv", domain.InvoiceStatusPaid, -1, "2025-01-01")},
			reason: ReasonValidation,
		},
		{
			name:   "update without previous",
			event:  domain.InvoiceEvent{ID: "e", Kind: domain.InvoiceUpdated, Invoice: invoice("inv", domain.InvoiceStatusPaid, 1, "2025-01-01")},
			reason: ReasonValidation,
		},
		{
			name:   "unknown kind",
			event:  domain.InvoiceEvent{ID: "e", Kind: "invoice.archived", Invoice: invoice("inv", domain.InvoiceStatusPaid, 1, "2025-01-01")},
			reason: ReasonValidation,
		},
		{
			name:   "unparseable date",
			event:  domain.InvoiceEvent{ID: "e", Kind: domain.InvoiceCreated, Invoice: invoice("inv", domain.InvoiceStatusPaid, 1, "not-a-date")},
			reason: ReasonPeriod,
		},
		{
			name:   "date out of range",
			event:  domain.InvoiceEvent{ID: "e", Kind: domain.InvoiceDeleted, Invoice: invoice("inv", domain.InvoiceStatusPaid, 1, "1990-05-01")},
			reason: ReasonPeriod,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newEventFixture()

			result := f.service.Handle(context.Background(), tt.event)

			assert.Equal(t, domain.OutcomeDropped, result.Outcome)
			assert.NotEmpty(t, result.Error)
			letters := f.sink.All()
			require.Len(t, letters, 1)
			assert.Equal(t, tt.reason, letters[0].Reason)
			assert.Empty(t, f.repo.Revenues)
			assert.Empty(t, f.store.Claimed)
		})
	}
}

func TestHandle_PersistenceFailure(t *testing.T) {
	f := newEventFixture()
	f.repo.CreateFn = func(ctx context.Context, aggregate *domain.RevenueAggregate) (*domain.RevenueAggregate, error) {
		return nil, fmt.Errorf("%w: connection reset", domain.ErrPersistenceFailure)
	}

	result := f.service.HandleInvoiceCreated(context.Background(), "evt-p", invoice("inv-1", domain.InvoiceStatusPaid, 1000, "2025-01-15"))

	assert.Equal(t, domain.OutcomeFailed, result.Outcome)
	assert.Contains(t, result.Error, "connection reset")
	letters := f.sink.All()
	require.Len(t, letters, 1)
	assert.Equal(t, ReasonPersistence, letters[0].Reason)
	assert.Empty(t, f.publisher.Types())
	assert.False(t, f.store.Claimed["evt-p"])
}

func TestHandle_IdempotencyStoreFailure(t *testing.T) {
	f := newEventFixture()
	f.store.ClaimFn = func(ctx context.Context, eventID string) (bool, error) {
		return false, errors.New("redis unavailable")
	}

	result := f.service.HandleInvoiceCreated(context.Background(), "evt-i", invoice("inv-1", domain.InvoiceStatusPaid, 1000, "2025-01-15"))

	assert.Equal(t, domain.OutcomeFailed, result.Outcome)
	letters := f.sink.All()
	require.Len(t, letters, 1)
	assert.Equal(t, ReasonIdempotency, letters[0].Reason)
	assert.Empty(t, f.repo.Revenues)
}

func TestHandle_PanicIsDeadLettered(t *testing.T) {
	f := newEventFixture()
	f.repo.CreateFn = func(ctx context.Context, aggregate *domain.RevenueAggregate) (*domain.RevenueAggregate, error) {
		panic("boom")
	}

	result := f.service.HandleInvoiceCreated(context.Background(), "evt-x", invoice("inv-1", domain.InvoiceStatusPaid, 1000, "2025-01-15"))

	assert.Equal(t, domain.OutcomeFailed, result.Outcome)
	letters := f.sink.All()
	require.Len(t, letters, 1)
	assert.Equal(t, ReasonInternal, letters[0].Reason)
	assert.Contains(t, letters[0].Error, "boom")
}

func TestHandle_DeadLetterSinkFailureIsSwallowed(t *testing.T) {
	f := newEventFixture()
	f.sink.RecordFn = func(ctx context.Context, letter domain.DeadLetter) error {
		return errors.New("bucket unavailable")
	}

	result := f.service.Handle(context.Background(), domain.InvoiceEvent{ID: "e", Kind: "bogus"})

	assert.Equal(t, domain.OutcomeDropped, result.Outcome)
	assert.Len(t, f.sink.All(), 1)
}

func TestHandle_ConcurrentEventsOnOnePeriod(t *testing.T) {
	f := newEventFixture()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			f.service.HandleInvoiceCreated(context.Background(), fmt.Sprintf("evt-%d", i),
				invoice(fmt.Sprintf("inv-%d", i), domain.InvoiceStatusPaid, 100, "2025-05-10"))
		}(i)
	}
	wg.Wait()

	saved := f.repo.Get(period(2025, time.May))
	require.NotNil(t, saved)
	assert.Equal(t, int64(50), saved.InvoiceCount)
	assert.Equal(t, int64(5000), saved.TotalAmount)
	assert.Equal(t, 1, f.repo.CreateCalls)
}

func TestHandle_UpdateUsesAggregateID(t *testing.T) {
	f := newEventFixture()
	existing := f.repo.AddRevenue(&domain.RevenueAggregate{
		Period:        period(2025, time.January),
		RevenueTotals: domain.RevenueTotals{InvoiceCount: 1, TotalAmount: 10, TotalPaidAmount: 10},
	})

	var updatedID uuid.UUID
	f.repo.UpdateFn = func(ctx context.Context, id uuid.UUID, patch domain.RevenuePatch) (*domain.RevenueAggregate, error) {
		updatedID = id
		return &domain.RevenueAggregate{ID: id, Period: existing.Period, RevenueTotals: patch.Totals}, nil
	}

	f.service.HandleInvoiceCreated(context.Background(), "evt-u", invoice("inv-2", domain.InvoiceStatusPaid, 5, "2025-01-02"))

	assert.Equal(t, existing.ID, updatedID)
}
