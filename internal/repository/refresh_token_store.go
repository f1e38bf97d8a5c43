package repository

import (
	"context"
	"sync"
	"time"
)

// RefreshTokenStore is the source of truth for refresh-credential validity.
// Implementations must keep add/remove/contains atomic per account so a revoke
// racing a rotation is visible to the next verification.
type RefreshTokenStore interface {
	Add(ctx context.Context, accountID, fingerprint string, ttl time.Duration) error
	Contains(ctx context.Context, accountID, fingerprint string) (bool, error)
	Remove(ctx context.Context, accountID, fingerprint string) error
	RemoveAll(ctx context.Context, accountID string) error
	ListActive(ctx context.Context, accountID string) ([]string, error)
}

type memoryRefreshTokenStore struct {
	mu     sync.Mutex
	tokens map[string]map[string]time.Time
	now    func() time.Time
}

// NewMemoryRefreshTokenStore returns an in-process store. Used in tests and as
// the fallback when Redis is not configured.
func NewMemoryRefreshTokenStore() RefreshTokenStore {
	return &memoryRefreshTokenStore{
		tokens: make(map[string]map[string]time.Time),
		now:    time.Now,
	}
}

func (s *memoryRefreshTokenStore) Add(_ context.Context, accountID, fingerprint string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.tokens[accountID]
	if !ok {
		set = make(map[string]time.Time)
		s.tokens[accountID] = set
	}
	set[fingerprint] = s.now().Add(ttl)
	return nil
}

func (s *memoryRefreshTokenStore) Contains(_ context.Context, accountID, fingerprint string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pruneLocked(accountID)
	expiry, ok := s.tokens[accountID][fingerprint]
	return ok && s.now().Before(expiry), nil
}

func (s *memoryRefreshTokenStore) Remove(_ context.Context, accountID, fingerprint string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens[accountID], fingerprint)
	return nil
}

func (s *memoryRefreshTokenStore) RemoveAll(_ context.Context, accountID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, accountID)
	return nil
}

func (s *memoryRefreshTokenStore) ListActive(_ context.Context, accountID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pruneLocked(accountID)
	fingerprints := make([]string, 0, len(s.tokens[accountID]))
	for fp := range s.tokens[accountID] {
		fingerprints = append(fingerprints, fp)
	}
	return fingerprints, nil
}

// pruneLocked drops expired entries; expiry is enforced lazily, there is no
// sweep process.
func (s *memoryRefreshTokenStore) pruneLocked(accountID string) {
	now := s.now()
	for fp, expiry := range s.tokens[accountID] {
		if !now.Before(expiry) {
			delete(s.tokens[accountID], fp)
		}
	}
}
