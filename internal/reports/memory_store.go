package reports

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-memory report store for demo mode and testing.
type MemoryStore struct {
	reports map[string]*DailyReport
	mu      sync.RWMutex
}

// NewMemoryStore creates an empty in-memory report store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{reports: make(map[string]*DailyReport)}
}

func (m *MemoryStore) Create(_ context.Context, r *DailyReport) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.reports[r.ID]; exists {
		return ErrReportExists
	}
	m.reports[r.ID] = cloneReport(r)
	return nil
}

func (m *MemoryStore) Get(_ context.Context, id string) (*DailyReport, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.reports[id]
	if !ok {
		return nil, ErrReportNotFound
	}
	return cloneReport(r), nil
}

func (m *MemoryStore) ListByVenueDate(_ context.Context, venueID, date string) ([]*DailyReport, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []*DailyReport
	for _, r := range m.reports {
		if r.VenueID == venueID && r.Date == date {
			result = append(result, cloneReport(r))
		}
	}
	sortReportsByCreatedAt(result)
	return result, nil
}

func (m *MemoryStore) UpdateStatus(_ context.Context, id string, status Status) (*DailyReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.reports[id]
	if !ok {
		return nil, ErrReportNotFound
	}
	r.Status = status
	r.UpdatedAt = time.Now()
	return cloneReport(r), nil
}

func (m *MemoryStore) LatestBefore(_ context.Context, venueID string, before time.Time) (*DailyReport, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var latest *DailyReport
	for _, r := range m.reports {
		if r.VenueID != venueID || !r.PrintedAt.Before(before) {
			continue
		}
		if latest == nil || r.PrintedAt.After(latest.PrintedAt) {
			latest = r
		}
	}
	if latest == nil {
		return nil, ErrReportNotFound
	}
	return cloneReport(latest), nil
}

func sortReportsByCreatedAt(reports []*DailyReport) {
	sort.Slice(reports, func(i, j int) bool {
		return reports[i].CreatedAt.Before(reports[j].CreatedAt)
	})
}

func cloneReport(r *DailyReport) *DailyReport {
	cp := *r
	cp.MachineLines = append([]MachineLine(nil), r.MachineLines...)
	cp.AnomalyReasons = append([]string(nil), r.AnomalyReasons...)
	return &cp
}
