package store

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/lanify/monitor/internal/alert"
)

type Memory struct {
	mu      sync.RWMutex
	records map[string]*alert.Record
}

func NewMemory() *Memory {
	return &Memory{
		records: make(map[string]*alert.Record),
	}
}

func (m *Memory) Init(context.Context) error { return nil }

func (m *Memory) Save(_ context.Context, rec *alert.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copy := *rec
	m.records[rec.ID] = &copy
	return nil
}

func (m *Memory) Get(_ context.Context, id string) (*alert.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	copy := *rec
	return &copy, nil
}

// List returns matching records ordered by timestamp, then ID.
func (m *Memory) List(_ context.Context, f Filter) ([]*alert.Record, error) {
	needle := strings.ToLower(f.VehicleID)

	m.mu.RLock()
	result := make([]*alert.Record, 0, len(m.records))
	for _, rec := range m.records {
		if needle != "" && !strings.Contains(strings.ToLower(rec.VehicleID), needle) {
			continue
		}
		copy := *rec
		result = append(result, &copy)
	}
	m.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		if !result[i].Timestamp.Equal(result[j].Timestamp) {
			return result[i].Timestamp.Before(result[j].Timestamp)
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

func (m *Memory) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[id]; !ok {
		return ErrNotFound
	}
	delete(m.records, id)
	return nil
}

func (m *Memory) Close() error { return nil }
