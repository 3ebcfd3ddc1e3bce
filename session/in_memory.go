package session

import (
	"errors"
	"sync"

	"github.com/hupe1980/reactloop/core"
)

// InMemoryStore is a volatile Store keeping records in a process local map.
// It is safe for concurrent access. Records are copied on the way in and out
// to prevent external mutation.
type InMemoryStore struct {
	mu      sync.RWMutex
	records map[string]Record
	order   []string
	limit   int
}

// NewInMemoryStore constructs an empty store. limit > 0 caps the number of
// retained records, evicting the oldest first.
func NewInMemoryStore(limit int) *InMemoryStore {
	return &InMemoryStore{records: make(map[string]Record), limit: limit}
}

// Save stores a copy of rec, replacing any record with the same ID.
func (s *InMemoryStore) Save(rec Record) error {
	if rec.ID == "" {
		return errors.New("session record id must not be empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[rec.ID]; !exists {
		s.order = append(s.order, rec.ID)
	}
	s.records[rec.ID] = clone(rec)

	if s.limit > 0 && len(s.order) > s.limit {
		evict := s.order[0]
		s.order = s.order[1:]
		delete(s.records, evict)
	}
	return nil
}

// Get returns a copy of the record with the given id.
func (s *InMemoryStore) Get(id string) (Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[id]
	if !ok {
		return Record{}, false
	}
	return clone(rec), true
}

// List returns copies of all records in insertion order.
func (s *InMemoryStore) List() []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Record, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, clone(s.records[id]))
	}
	return out
}

// Len returns the number of retained records.
func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

func clone(rec Record) Record {
	turns := make([]core.Turn, len(rec.Conversation))
	copy(turns, rec.Conversation)
	rec.Conversation = turns
	return rec
}
