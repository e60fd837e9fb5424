package patient

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// memoryRepo keeps serialized records so callers never share memory with the
// store, mirroring what a real key-value backend does.
type memoryRepo struct {
	mu    sync.RWMutex
	data  map[string][]byte
	order []string // most recently saved first
}

func NewMemoryRepo() Repository {
	return &memoryRepo{data: make(map[string][]byte)}
}

func (m *memoryRepo) Save(_ context.Context, r *Record) error {
	raw, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode patient %s: %w", r.ID, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[r.ID] = raw
	m.order = append([]string{r.ID}, without(m.order, map[string]bool{r.ID: true})...)
	return nil
}

func (m *memoryRepo) Get(_ context.Context, id string) (*Record, error) {
	m.mu.RLock()
	raw, ok := m.data[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return decodeRecord(raw)
}

func (m *memoryRepo) List(_ context.Context) ([]*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*Record, 0, len(m.order))
	for _, id := range m.order {
		r, err := decodeRecord(m.data[id])
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

func (m *memoryRepo) Delete(ctx context.Context, id string) error {
	return m.DeleteMany(ctx, []string{id})
}

func (m *memoryRepo) DeleteMany(_ context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for id := range drop {
		delete(m.data, id)
	}
	m.order = without(m.order, drop)
	return nil
}

func (m *memoryRepo) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = make(map[string][]byte)
	m.order = nil
	return nil
}

func (m *memoryRepo) Size(_ context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var n int64
	for _, raw := range m.data {
		n += int64(len(raw))
	}
	return n, nil
}

func without(ids []string, drop map[string]bool) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if !drop[id] {
			out = append(out, id)
		}
	}
	return out
}

func decodeRecord(raw []byte) (*Record, error) {
	var r Record
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, fmt.Errorf("decode patient: %w", err)
	}
	return &r, nil
}
