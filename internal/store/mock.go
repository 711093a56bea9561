package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fernandez-a/Tori-monitor/internal/model"
)

// Mock is an in-memory Store used by tests and local runs without a
// database. Safe for concurrent use.
type Mock struct {
	mu      sync.Mutex
	records map[string]model.StateRecord

	// FailID makes every write against that listing id return an error,
	// for exercising per-record failure isolation.
	FailID string

	// FailList makes ListMatching return an error.
	FailList bool
}

// NewMock creates an empty in-memory store.
func NewMock() *Mock {
	return &Mock{records: make(map[string]model.StateRecord)}
}

// Seed inserts a record directly, bypassing upsert semantics.
func (m *Mock) Seed(r model.StateRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[r.ID] = r
}

// Get returns a copy of the record for id.
func (m *Mock) Get(id string) (model.StateRecord, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[id]
	return r, ok
}

// Len returns the number of stored records.
func (m *Mock) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

func (m *Mock) ListMatching(_ context.Context, f model.Filter) ([]model.StateRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailList {
		return nil, fmt.Errorf("mock store: read rejected")
	}
	var out []model.StateRecord
	for _, r := range m.records {
		if f.Matches(r.Listing) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *Mock) UpsertAdded(_ context.Context, l model.Listing, notifiedAt *time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if l.ID == m.FailID {
		return fmt.Errorf("mock store: write rejected for %s", l.ID)
	}
	r := model.StateRecord{Listing: l, Status: model.StatusAdded}
	if prev, ok := m.records[l.ID]; ok {
		r.LastNotified = prev.LastNotified
	}
	if notifiedAt != nil {
		r.LastNotified = notifiedAt
	}
	m.records[l.ID] = r
	return nil
}

func (m *Mock) UpdatePrice(_ context.Context, id string, newPrice, oldPrice int, notifiedAt *time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id == m.FailID {
		return fmt.Errorf("mock store: write rejected for %s", id)
	}
	r, ok := m.records[id]
	if !ok {
		return fmt.Errorf("mock store: no record %s", id)
	}
	r.Price = newPrice
	r.OldPrice = &oldPrice
	r.Status = model.StatusPriceChanged
	if notifiedAt != nil {
		r.LastNotified = notifiedAt
	}
	m.records[id] = r
	return nil
}

func (m *Mock) MarkSold(_ context.Context, id string, notifiedAt *time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id == m.FailID {
		return fmt.Errorf("mock store: write rejected for %s", id)
	}
	r, ok := m.records[id]
	if !ok {
		return fmt.Errorf("mock store: no record %s", id)
	}
	r.Status = model.StatusSold
	if notifiedAt != nil {
		r.LastNotified = notifiedAt
	}
	m.records[id] = r
	return nil
}

func (m *Mock) DeleteAbsent(_ context.Context, f model.Filter, keep []string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	keepSet := make(map[string]struct{}, len(keep))
	for _, id := range keep {
		keepSet[id] = struct{}{}
	}
	var removed int64
	for id, r := range m.records {
		if !f.Matches(r.Listing) {
			continue
		}
		if _, ok := keepSet[id]; ok {
			continue
		}
		delete(m.records, id)
		removed++
	}
	return removed, nil
}
