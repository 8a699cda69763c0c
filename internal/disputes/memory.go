package disputes

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore is an in-memory DisputeStore. Batches apply under a write lock,
// so readers observe either all-prior or all-post state. Used by tests and
// local development without a database.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]Dispute
}

var _ DisputeStore = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]Dispute)}
}

// UpsertBatch merges the batch, replacing records whose IDs already exist
func (s *MemoryStore) UpsertBatch(ctx context.Context, batch []Dispute) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	inserted := 0
	for _, d := range batch {
		if _, exists := s.records[d.ID]; !exists {
			inserted++
		}
		s.records[d.ID] = d
	}
	return inserted, nil
}

// QueryDisputes returns disputes matching the filter, ordered by ID
func (s *MemoryStore) QueryDisputes(ctx context.Context, filter Filter) ([]Dispute, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]Dispute, 0)
	for _, d := range s.records {
		if filter.Matches(d) {
			result = append(result, d)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// ProviderIDs returns the distinct provider NPIs present in the store
func (s *MemoryStore) ProviderIDs(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	for _, d := range s.records {
		seen[d.ProviderNPI] = struct{}{}
	}
	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// Len returns the number of stored disputes
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
