package sessions

import (
	"context"
	"sync"
	"time"

	"comparador/internal/models"
)

type memoryEntry struct {
	state   *models.SessionState
	expires time.Time
}

// MemoryStore is an in-process Store. Entries expire ttl after their last save.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

// NewMemoryStore creates a MemoryStore.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (s *MemoryStore) Load(ctx context.Context, sid string) (*models.SessionState, error) {
	s.mu.RLock()
	entry, ok := s.entries[sid]
	s.mu.RUnlock()

	if !ok {
		return &models.SessionState{}, nil
	}
	if s.now().After(entry.expires) {
		s.mu.Lock()
		if current, ok := s.entries[sid]; ok && current.expires.Equal(entry.expires) {
			delete(s.entries, sid)
		}
		s.mu.Unlock()
		return &models.SessionState{}, nil
	}
	return entry.state.Clone(), nil
}

func (s *MemoryStore) Save(ctx context.Context, sid string, state *models.SessionState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[sid] = memoryEntry{state: state.Clone(), expires: s.now().Add(s.ttl)}
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, sid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, sid)
	return nil
}

// Sweep evicts every expired entry, including ones never loaded again, and reports how many
// were removed.
func (s *MemoryStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for sid, entry := range s.entries {
		if now.After(entry.expires) {
			delete(s.entries, sid)
			removed++
		}
	}
	return removed
}

// RunSweeper calls Sweep every interval until ctx is done.
func (s *MemoryStore) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}

// Len reports how many entries are held. Expired entries count until swept or loaded.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
