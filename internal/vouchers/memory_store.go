package vouchers

import (
	"context"
	"sort"
	"sync"

	"github.com/shopspring/decimal"
)

// MemoryStore is an in-memory voucher store for demo mode and testing.
type MemoryStore struct {
	events map[string]*Event
	mu     sync.RWMutex
}

// NewMemoryStore creates an empty in-memory voucher store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{events: make(map[string]*Event)}
}

func (m *MemoryStore) Create(_ context.Context, e *Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.events[e.ID]; exists {
		return ErrVoucherExists
	}
	cp := *e
	m.events[e.ID] = &cp
	return nil
}

func (m *MemoryStore) Get(_ context.Context, id string) (*Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.events[id]
	if !ok {
		return nil, ErrVoucherNotFound
	}
	cp := *e
	return &cp, nil
}

func (m *MemoryStore) ListByVenueDate(_ context.Context, venueID, date string) ([]*Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []*Event
	for _, e := range m.events {
		if e.VenueID == venueID && e.Date == date {
			cp := *e
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].IssuedAt.Before(result[j].IssuedAt)
	})
	return result, nil
}

func (m *MemoryStore) SumByVenueDate(_ context.Context, venueID, date string) (decimal.Decimal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sum := decimal.Zero
	for _, e := range m.events {
		if e.VenueID == venueID && e.Date == date {
			sum = sum.Add(e.Amount)
		}
	}
	return sum, nil
}
