package venues

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-memory venue store for demo/development mode.
type MemoryStore struct {
	venues map[string]*Venue
	mu     sync.RWMutex
}

// NewMemoryStore creates a new in-memory venue store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{venues: make(map[string]*Venue)}
}

func (m *MemoryStore) Create(ctx context.Context, v *Venue) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.venues[v.ID]; ok {
		return ErrVenueExists
	}
	cp := cloneVenue(v)
	m.venues[v.ID] = cp
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, id string) (*Venue, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.venues[id]
	if !ok {
		return nil, ErrVenueNotFound
	}
	return cloneVenue(v), nil
}

func (m *MemoryStore) Update(ctx context.Context, v *Venue) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.venues[v.ID]; !ok {
		return ErrVenueNotFound
	}
	v.UpdatedAt = time.Now()
	m.venues[v.ID] = cloneVenue(v)
	return nil
}

func (m *MemoryStore) List(ctx context.Context, limit int) ([]*Venue, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []*Venue
	for _, v := range m.venues {
		result = append(result, cloneVenue(v))
		if len(result) >= limit {
			break
		}
	}
	return result, nil
}

// cloneVenue copies a venue including its machine slice so callers can't
// mutate stored state.
func cloneVenue(v *Venue) *Venue {
	cp := *v
	cp.MachineIDs = append([]string(nil), v.MachineIDs...)
	return &cp
}
