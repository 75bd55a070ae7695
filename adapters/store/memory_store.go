package store

import (
	"context"
	"sync"
	"time"

	"github.com/layer-3/faucet/ports"
)

type nonceEntry struct {
	value     string
	createdAt time.Time
	expiresAt time.Time
}

// MemoryStore is an in-memory implementation of the NonceStore interface.
// Nonces do not survive a restart.
type MemoryStore struct {
	nonces map[string]nonceEntry
	mu     sync.Mutex
	now    func() time.Time
}

// NewMemoryStore creates a new in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		nonces: make(map[string]nonceEntry),
		now:    time.Now,
	}
}

var _ ports.NonceStore = (*MemoryStore)(nil)

// WithClock replaces the clock used for expiry
func (s *MemoryStore) WithClock(now func() time.Time) *MemoryStore {
	s.now = now
	return s
}

// Issue stores a fresh nonce for address
func (s *MemoryStore) Issue(ctx context.Context, address string, ttl time.Duration) (string, error) {
	nonce, err := generateNonce()
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.nonces[address] = nonceEntry{
		value:     nonce,
		createdAt: now,
		expiresAt: now.Add(ttl),
	}

	return nonce, nil
}

// Consume removes the nonce for address when it matches
func (s *MemoryStore) Consume(ctx context.Context, address, nonce string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, exists := s.nonces[address]
	if !exists || entry.value != nonce {
		return false, nil
	}

	// An expired entry is dropped either way.
	delete(s.nonces, address)
	return s.now().Before(entry.expiresAt), nil
}

// Prune drops expired nonces and returns how many were removed
func (s *MemoryStore) Prune() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for address, entry := range s.nonces {
		if !now.Before(entry.expiresAt) {
			delete(s.nonces, address)
			removed++
		}
	}
	return removed
}

// Len returns the number of stored nonces, expired ones included
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.nonces)
}

// RunJanitor prunes expired nonces every interval until ctx is done
func (s *MemoryStore) RunJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Prune()
		}
	}
}
