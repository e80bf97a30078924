package storage

import (
	"sort"
	"sync"

	"chordring/internal/domain"
	"chordring/internal/logger"
	"chordring/internal/ring"
)

// MemoryStorage is an in-memory, concurrency-safe Storage implementation.
type MemoryStorage struct {
	lgr  logger.Logger
	mu   sync.RWMutex
	data map[string]domain.Resource // keyed by ring.ID hex
}

// NewMemoryStorage returns a new, empty in-memory storage.
func NewMemoryStorage(lgr logger.Logger) *MemoryStorage {
	if lgr == nil {
		lgr = &logger.NopLogger{}
	}
	return &MemoryStorage{
		lgr:  lgr,
		data: make(map[string]domain.Resource),
	}
}

// Put inserts or updates the given resource in the store.
func (s *MemoryStorage) Put(resource domain.Resource) {
	key := resource.Key.Hex()
	s.mu.Lock()
	_, existed := s.data[key]
	s.data[key] = resource
	s.mu.Unlock()
	if existed {
		s.lgr.Debug("Put: resource updated", logger.FResource("resource", resource))
	} else {
		s.lgr.Debug("Put: resource inserted", logger.FResource("resource", resource))
	}
}

// Get retrieves the resource with the given id, or ErrResourceNotFound.
func (s *MemoryStorage) Get(id ring.ID) (domain.Resource, error) {
	key := id.Hex()
	s.mu.RLock()
	res, ok := s.data[key]
	s.mu.RUnlock()
	if !ok {
		return domain.Resource{}, domain.ErrResourceNotFound
	}
	return res, nil
}

// Delete removes the resource with the given id, or ErrResourceNotFound.
func (s *MemoryStorage) Delete(id ring.ID) error {
	key := id.Hex()
	s.mu.Lock()
	_, ok := s.data[key]
	if ok {
		delete(s.data, key)
	}
	s.mu.Unlock()
	if !ok {
		return domain.ErrResourceNotFound
	}
	return nil
}

// Between returns all resources with key in the circular interval (from, to].
func (s *MemoryStorage) Between(from, to ring.ID) []domain.Resource {
	s.mu.RLock()
	var result []domain.Resource
	for _, res := range s.data {
		if res.Key.Between(from, to) {
			result = append(result, res)
		}
	}
	s.mu.RUnlock()
	return result
}

// All returns a snapshot of every resource currently stored.
func (s *MemoryStorage) All() []domain.Resource {
	s.mu.RLock()
	result := make([]domain.Resource, 0, len(s.data))
	for _, res := range s.data {
		result = append(result, res)
	}
	s.mu.RUnlock()
	return result
}

// DebugLog emits a structured DEBUG-level snapshot of the storage contents.
func (s *MemoryStorage) DebugLog() {
	snapshot := s.All()
	sort.Slice(snapshot, func(i, j int) bool {
		return snapshot[i].Key.Hex() < snapshot[j].Key.Hex()
	})
	entries := make([]map[string]any, 0, len(snapshot))
	for _, res := range snapshot {
		entries = append(entries, map[string]any{
			"key":       res.Key.Hex(),
			"valueSize": len(res.Value),
		})
	}
	s.lgr.Debug("storage snapshot",
		logger.F("count", len(snapshot)),
		logger.F("resources", entries),
	)
}
