package catalog

import (
	"context"
	"sort"
	"sync"
)

type MemStore struct {
	mu sync.RWMutex
	m  map[string]Item
}

func NewMemStore() *MemStore {
	return &MemStore{m: map[string]Item{}}
}

func (s *MemStore) Ping(ctx context.Context) error { return nil }

func (s *MemStore) Create(ctx context.Context, it Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.m[it.ID]; ok {
		return ErrDuplicateID
	}
	s.m[it.ID] = it
	return nil
}

func (s *MemStore) Get(ctx context.Context, id string) (Item, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	it, ok := s.m[id]
	return it, ok, nil
}

func (s *MemStore) List(ctx context.Context) ([]Item, error) {
	s.mu.RLock()
	out := make([]Item, 0, len(s.m))
	for _, it := range s.m {
		out = append(out, it)
	}
	s.mu.RUnlock()

	sortItems(out)
	return out, nil
}

func (s *MemStore) Update(ctx context.Context, it Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.m[it.ID]; !ok {
		return ErrUnknownID
	}
	s.m[it.ID] = it
	return nil
}

func (s *MemStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.m[id]; !ok {
		return ErrUnknownID
	}
	delete(s.m, id)
	return nil
}

func (s *MemStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.m)
}

// sortItems gives List a stable order for logs and tests. It is not part of
// the Store contract.
func sortItems(items []Item) {
	sort.Slice(items, func(i, j int) bool {
		if items[i].CreatedDate.Equal(items[j].CreatedDate) {
			return items[i].ID < items[j].ID
		}
		return items[i].CreatedDate.Before(items[j].CreatedDate)
	})
}
