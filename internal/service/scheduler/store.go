package scheduler

import (
	"sync"

	"github.com/replyforge/event-relay/internal/model"
)

// Record is the retry state for one in-flight event. It exists only
// while the event is in flight or awaiting its next retry; the
// scheduler removes it exactly once, on success or exhaustion.
type Record struct {
	Event    *model.Event
	Attempts int
}

// Store tracks in-flight retry records. The in-memory implementation is
// the deliberate default; the interface exists so a durable store can
// be substituted without touching the scheduler's retry logic.
type Store interface {
	Put(id string, rec *Record)
	Remove(id string)
	Size() int
}

type memoryStore struct {
	mu      sync.Mutex
	records map[string]*Record
}

func newMemoryStore() *memoryStore {
	return &memoryStore{records: make(map[string]*Record)}
}

func (s *memoryStore) Put(id string, rec *Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[id] = rec
}

func (s *memoryStore) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, id)
}

func (s *memoryStore) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}
