package history

import (
	"context"
	"slices"
	"sync"
)

type MemoryRepository struct {
	mu      sync.RWMutex
	records []Record
	max     int
}

// NewMemoryRepository keeps at most max records; max <= 0 means unbounded.
func NewMemoryRepository(max int) *MemoryRepository {
	return &MemoryRepository{max: max}
}

func (r *MemoryRepository) InsertGameRecord(_ context.Context, rec Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, rec)
	if r.max > 0 && len(r.records) > r.max {
		r.records = append([]Record(nil), r.records[len(r.records)-r.max:]...)
	}
	return nil
}

func (r *MemoryRepository) ListGameRecords(_ context.Context, q Query) ([]Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Record
	for i := len(r.records) - 1; i >= 0; i-- {
		if q.Limit > 0 && len(out) == q.Limit {
			break
		}
		if q.Match(r.records[i]) {
			out = append(out, r.records[i])
		}
	}
	slices.Reverse(out)
	return out, nil
}

func (r *MemoryRepository) ClearGameRecords(_ context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := len(r.records)
	r.records = nil
	return n, nil
}
