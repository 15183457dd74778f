package ledger

import (
	"context"
	"sync"
	"time"

	"github.com/iliyamo/blueprint-paywall/internal/model"
)

// MemoryStore keeps records in process memory.  It ignores TTLs and loses
// everything on restart; other instances never see its contents.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]model.Fulfillment
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string]model.Fulfillment)}
}

func (s *MemoryStore) Get(_ context.Context, sessionID string) (*model.Fulfillment, error) {
	s.mu.RLock()
	f, ok := s.items[sessionID]
	s.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	return &f, nil
}

func (s *MemoryStore) Set(_ context.Context, f model.Fulfillment, _ time.Duration) error {
	s.mu.Lock()
	s.items[f.SessionID] = f
	s.mu.Unlock()
	return nil
}

// Len reports the number of records held.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}
