// Package idempotency stores client supplied idempotency keys so a
// resubmitted request is rejected instead of broadcast twice.
package idempotency

import (
	"context"
	"contract-orchestrator/internal/interfaces"
	"sync"
	"time"
)

var _ interfaces.IdempotencyStore = (*MemoryStore)(nil)

type entry struct {
	operation string
	txHash    string
	expires   time.Time
}

// MemoryStore keeps keys in process memory. Keys survive until ttl passes.
type MemoryStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]entry
	now     func() time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		ttl:     ttl,
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

func (s *MemoryStore) Reserve(_ context.Context, key, operation string) (bool, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if e, ok := s.entries[key]; ok && (s.ttl <= 0 || now.Before(e.expires)) {
		return false, e.txHash, nil
	}
	s.entries[key] = entry{operation: operation, expires: now.Add(s.ttl)}
	s.gc(now)
	return true, "", nil
}

func (s *MemoryStore) Record(_ context.Context, key, txHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		e = entry{expires: s.now().Add(s.ttl)}
	}
	e.txHash = txHash
	s.entries[key] = e
	return nil
}

func (s *MemoryStore) Release(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

// gc drops expired keys; callers hold s.mu
func (s *MemoryStore) gc(now time.Time) {
	if s.ttl <= 0 {
		return
	}
	for k, e := range s.entries {
		if !now.Before(e.expires) {
			delete(s.entries, k)
		}
	}
}
