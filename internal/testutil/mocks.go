package testutil

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dafibh/revledger/revledger-backend/internal/domain"
	"github.com/dafibh/revledger/revledger-backend/internal/websocket"
	"github.com/google/uuid"
)

// MockRevenueRepository is a mock implementation of domain.RevenueRepository.
// It is safe for concurrent use and serializes WithPeriodLock per period.
type MockRevenueRepository struct {
	Revenues map[string]*domain.RevenueAggregate

	FindByPeriodFn    func(ctx context.Context, period time.Time) (*domain.RevenueAggregate, error)
	FindByDateRangeFn func(ctx context.Context, start, end time.Time) ([]*domain.RevenueAggregate, error)
	CreateFn          func(ctx context.Context, aggregate *domain.RevenueAggregate) (*domain.RevenueAggregate, error)
	UpdateFn          func(ctx context.Context, id uuid.UUID, patch domain.RevenuePatch) (*domain.RevenueAggregate, error)
	DeleteFn          func(ctx context.Context, id uuid.UUID) error

	CreateCalls int
	UpdateCalls int

	mu      sync.Mutex
	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

// NewMockRevenueRepository creates a new MockRevenueRepository
func NewMockRevenueRepository() *MockRevenueRepository {
	return &MockRevenueRepository{
		Revenues: make(map[string]*domain.RevenueAggregate),
		locks:    make(map[string]*sync.Mutex),
	}
}

// FindByPeriod retrieves the aggregate of one period
func (m *MockRevenueRepository) FindByPeriod(ctx context.Context, period time.Time) (*domain.RevenueAggregate, error) {
	if m.FindByPeriodFn != nil {
		return m.FindByPeriodFn(ctx, period)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if aggregate, ok := m.Revenues[domain.FormatPeriod(period)]; ok {
		copied := *aggregate
		return &copied, nil
	}
	return nil, domain.ErrRevenueNotFound
}

// FindByDateRange retrieves aggregates between start and end inclusive
func (m *MockRevenueRepository) FindByDateRange(ctx context.Context, start, end time.Time) ([]*domain.RevenueAggregate, error) {
	if m.FindByDateRangeFn != nil {
		return m.FindByDateRangeFn(ctx, start, end)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	var result []*domain.RevenueAggregate
	for _, aggregate := range m.Revenues {
		if aggregate.Period.Before(start) || aggregate.Period.After(end) {
			continue
		}
		copied := *aggregate
		result = append(result, &copied)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Period.Before(result[j].Period)
	})
	return result, nil
}

// Create stores a new aggregate
func (m *MockRevenueRepository) Create(ctx context.Context, aggregate *domain.RevenueAggregate) (*domain.RevenueAggregate, error) {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, aggregate)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	key := domain.FormatPeriod(aggregate.Period)
	if _, ok := m.Revenues[key]; ok {
		return nil, fmt.Errorf("%w: revenue for %s", domain.ErrAlreadyExists, key)
	}

	now := time.Now().UTC()
	stored := *aggregate
	stored.ID = uuid.New()
	stored.CreatedAt = now
	stored.UpdatedAt = now
	m.Revenues[key] = &stored
	m.CreateCalls++

	copied := stored
	return &copied, nil
}

// Update replaces the totals of an existing aggregate
func (m *MockRevenueRepository) Update(ctx context.Context, id uuid.UUID, patch domain.RevenuePatch) (*domain.RevenueAggregate, error) {
	if m.UpdateFn != nil {
		return m.UpdateFn(ctx, id, patch)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, aggregate := range m.Revenues {
		if aggregate.ID != id {
			continue
		}
		aggregate.RevenueTotals = patch.Totals
		if patch.CalculationSource != "" {
			aggregate.CalculationSource = patch.CalculationSource
		}
		aggregate.UpdatedAt = time.Now().UTC()
		m.UpdateCalls++

		copied := *aggregate
		return &copied, nil
	}
	return nil, domain.ErrRevenueNotFound
}

// Delete removes an aggregate by ID
func (m *MockRevenueRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if m.DeleteFn != nil {
		return m.DeleteFn(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	for key, aggregate := range m.Revenues {
		if aggregate.ID == id {
			delete(m.Revenues, key)
			return nil
		}
	}
	return domain.ErrRevenueNotFound
}

// WithPeriodLock starts a unit of work holding the period's mutex. Nested
// WithPeriodLock calls on the repository passed to fn join the same unit of
// work: a period it already holds is not locked again, and every lock is kept
// until the outermost call returns. When fn fails or panics, the periods the
// unit of work touched are restored.
func (m *MockRevenueRepository) WithPeriodLock(ctx context.Context, period time.Time, fn func(repo domain.RevenueRepository) error) error {
	uow := &mockUnitOfWork{
		MockRevenueRepository: m,
		snapshots:             make(map[string]*domain.RevenueAggregate),
	}

	committed := false
	defer func() {
		if !committed {
			uow.rollback()
		}
		uow.unlock()
	}()

	err := uow.WithPeriodLock(ctx, period, fn)
	committed = err == nil
	return err
}

func (m *MockRevenueRepository) periodMutex(key string) *sync.Mutex {
	m.locksMu.Lock()
	defer m.locksMu.Unlock()

	lock, ok := m.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		m.locks[key] = lock
	}
	return lock
}

// mockUnitOfWork is the repository handed to WithPeriodLock callbacks
type mockUnitOfWork struct {
	*MockRevenueRepository
	locked    []*sync.Mutex
	snapshots map[string]*domain.RevenueAggregate // nil means the period had no row
}

// WithPeriodLock joins the current unit of work
func (u *mockUnitOfWork) WithPeriodLock(ctx context.Context, period time.Time, fn func(repo domain.RevenueRepository) error) error {
	key := domain.FormatPeriod(period)
	if _, held := u.snapshots[key]; !held {
		lock := u.periodMutex(key)
		lock.Lock()
		u.locked = append(u.locked, lock)
		u.snapshots[key] = u.copyOf(key)
	}
	return fn(u)
}

func (u *mockUnitOfWork) copyOf(key string) *domain.RevenueAggregate {
	u.mu.Lock()
	defer u.mu.Unlock()

	if aggregate, ok := u.Revenues[key]; ok {
		copied := *aggregate
		return &copied
	}
	return nil
}

func (u *mockUnitOfWork) rollback() {
	u.mu.Lock()
	defer u.mu.Unlock()

	for key, snapshot := range u.snapshots {
		if snapshot == nil {
			delete(u.Revenues, key)
			continue
		}
		u.Revenues[key] = snapshot
	}
}

func (u *mockUnitOfWork) unlock() {
	for i := len(u.locked) - 1; i >= 0; i-- {
		u.locked[i].Unlock()
	}
}

// AddRevenue adds an aggregate to the mock repository (helper for tests)
func (m *MockRevenueRepository) AddRevenue(aggregate *domain.RevenueAggregate) *domain.RevenueAggregate {
	m.mu.Lock()
	defer m.mu.Unlock()

	if aggregate.ID == uuid.Nil {
		aggregate.ID = uuid.New()
	}
	m.Revenues[domain.FormatPeriod(aggregate.Period)] = aggregate
	return aggregate
}

// Get returns the stored aggregate of a period or nil (helper for tests)
func (m *MockRevenueRepository) Get(period time.Time) *domain.RevenueAggregate {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Revenues[domain.FormatPeriod(period)]
}

// MockInvoiceReader is a mock implementation of domain.InvoiceReader
type MockInvoiceReader struct {
	Invoices          []domain.InvoiceSnapshot
	ListByDateRangeFn func(ctx context.Context, start, end time.Time) ([]domain.InvoiceSnapshot, error)
	LastStart         time.Time
	LastEnd           time.Time
}

// NewMockInvoiceReader creates a new MockInvoiceReader
func NewMockInvoiceReader(invoices ...domain.InvoiceSnapshot) *MockInvoiceReader {
	return &MockInvoiceReader{Invoices: invoices}
}

// ListByDateRange returns invoices whose date falls between start and end
func (m *MockInvoiceReader) ListByDateRange(ctx context.Context, start, end time.Time) ([]domain.InvoiceSnapshot, error) {
	m.LastStart, m.LastEnd = start, end
	if m.ListByDateRangeFn != nil {
		return m.ListByDateRangeFn(ctx, start, end)
	}

	var result []domain.InvoiceSnapshot
	for _, invoice := range m.Invoices {
		date, err := time.Parse(domain.PeriodLayout, invoice.Date)
		if err != nil {
			continue
		}
		if date.Before(start) || date.After(end) {
			continue
		}
		result = append(result, invoice)
	}
	return result, nil
}

// MockIdempotencyStore is a mock implementation of domain.IdempotencyStore
type MockIdempotencyStore struct {
	Claimed   map[string]bool
	ClaimFn   func(ctx context.Context, eventID string) (bool, error)
	ReleaseFn func(ctx context.Context, eventID string) error
	mu        sync.Mutex
}

// NewMockIdempotencyStore creates a new MockIdempotencyStore
func NewMockIdempotencyStore() *MockIdempotencyStore {
	return &MockIdempotencyStore{Claimed: make(map[string]bool)}
}

// Claim marks eventID as taken
func (m *MockIdempotencyStore) Claim(ctx context.Context, eventID string) (bool, error) {
	if m.ClaimFn != nil {
		return m.ClaimFn(ctx, eventID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Claimed[eventID] {
		return false, nil
	}
	m.Claimed[eventID] = true
	return true, nil
}

// Release removes a claim
func (m *MockIdempotencyStore) Release(ctx context.Context, eventID string) error {
	if m.ReleaseFn != nil {
		return m.ReleaseFn(ctx, eventID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.Claimed, eventID)
	return nil
}

// RecordingDeadLetterSink keeps every dead letter in memory
type RecordingDeadLetterSink struct {
	Letters  []domain.DeadLetter
	RecordFn func(ctx context.Context, letter domain.DeadLetter) error
	mu       sync.Mutex
}

// Record stores the dead letter
func (s *RecordingDeadLetterSink) Record(ctx context.Context, letter domain.DeadLetter) error {
	s.mu.Lock()
	s.Letters = append(s.Letters, letter)
	s.mu.Unlock()
	if s.RecordFn != nil {
		return s.RecordFn(ctx, letter)
	}
	return nil
}

// All returns a snapshot of the recorded letters
func (s *RecordingDeadLetterSink) All() []domain.DeadLetter {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.DeadLetter(nil), s.Letters...)
}

// RecordingPublisher captures published WebSocket events
type RecordingPublisher struct {
	Events []websocket.Event
	mu     sync.Mutex
}

// Publish records the event
func (p *RecordingPublisher) Publish(event websocket.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Events = append(p.Events, event)
}

// Types returns the type of every recorded event in order
func (p *RecordingPublisher) Types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	types := make([]string, len(p.Events))
	for i, e := range p.Events {
		types[i] = e.Type
	}
	return types
}
