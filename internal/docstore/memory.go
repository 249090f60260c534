package docstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/cgscacau/green-belt-app-sub001/internal/tabular"
)

// MemoryStore keeps documents in process memory. Documents are normalized
// and cloned on the way in and out, so callers never share state with it.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]map[string]map[string]any
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]map[string]map[string]any)}
}

func (s *MemoryStore) Get(ctx context.Context, collection, id string) (map[string]any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.data[collection][id]
	if !ok {
		return nil, ErrNotFound
	}
	return CloneDoc(doc), nil
}

func (s *MemoryStore) Set(ctx context.Context, collection, id string, doc map[string]any) error {
	norm, err := tabular.NormalizeDocument(doc)
	if err != nil {
		return fmt.Errorf("failed to normalize document: %w", err)
	}
	if norm == nil {
		norm = map[string]any{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	coll, ok := s.data[collection]
	if !ok {
		coll = make(map[string]map[string]any)
		s.data[collection] = coll
	}
	coll[id] = norm
	return nil
}

func (s *MemoryStore) Update(ctx context.Context, collection, id string, updates map[string]any) error {
	norm, err := tabular.NormalizeDocument(updates)
	if err != nil {
		return fmt.Errorf("failed to normalize update: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.data[collection][id]
	if !ok {
		return ErrNotFound
	}
	keys := make([]string, 0, len(norm))
	for k := range norm {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		SetPath(doc, k, norm[k])
	}
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, collection, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.data[collection], id)
	return nil
}

func (s *MemoryStore) Query(ctx context.Context, collection, field, op string, value any) ([]Document, error) {
	if op != OpEqual {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedOperator, op)
	}
	want, err := tabular.Normalize(value)
	if err != nil {
		return nil, fmt.Errorf("failed to normalize query value: %w", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Document
	for id, doc := range s.data[collection] {
		if got, ok := GetPath(doc, field); ok && ValuesEqual(got, want) {
			out = append(out, Document{ID: id, Data: CloneDoc(doc)})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) Ping(ctx context.Context) error { return nil }
