package authguard

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"
)

// TokenID derives the stable revocation identifier for a raw compact token.
// It is computable without verifying the token, which lets the guard consult
// the revocation store before signature checks.
func TokenID(rawToken string) string {
	sum := sha256.Sum256([]byte(rawToken))
	return hex.EncodeToString(sum[:])
}

// RevocationStore tracks tokens invalidated before their natural expiry.
// Entries only need to outlive the token they shadow; once a token is past
// its expiry plus skew tolerance, verification rejects it regardless.
type RevocationStore interface {
	// Revoke marks a token identifier as invalid until expiresAt. Revoking
	// an already revoked identifier is a no-op, not an error.
	Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error
	// IsRevoked reports whether the identifier has been revoked. Store
	// failures surface as errors so callers can fail closed.
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// MemoryRevocationStore is a process-local RevocationStore. Suitable for
// single-instance deployments and tests; multi-instance deployments should
// use the Redis-backed store.
type MemoryRevocationStore struct {
	mu      sync.RWMutex
	entries map[string]time.Time
	now     func() time.Time
}

// MemoryRevocationOption customizes the in-memory store.
type MemoryRevocationOption func(*MemoryRevocationStore)

// WithMemoryRevocationClock injects a custom clock (useful for tests).
func WithMemoryRevocationClock(clock func() time.Time) MemoryRevocationOption {
	return func(s *MemoryRevocationStore) {
		if clock != nil {
			s.now = clock
		}
	}
}

// NewMemoryRevocationStore creates an empty in-memory revocation store.
func NewMemoryRevocationStore(opts ...MemoryRevocationOption) *MemoryRevocationStore {
	s := &MemoryRevocationStore{
		entries: make(map[string]time.Time),
		now:     time.Now,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	return s
}

// Revoke implements RevocationStore.
func (s *MemoryRevocationStore) Revoke(_ context.Context, tokenID string, expiresAt time.Time) error {
	if tokenID == "" {
		return nil
	}

	now := s.now()
	retainUntil := expiresAt.Add(ClockSkewTolerance)
	if !retainUntil.After(now) {
		retainUntil = now.Add(ClockSkewTolerance)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.pruneLocked(now)
	s.entries[tokenID] = retainUntil

	return nil
}

// IsRevoked implements RevocationStore.
func (s *MemoryRevocationStore) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	now := s.now()

	s.mu.RLock()
	retainUntil, ok := s.entries[tokenID]
	s.mu.RUnlock()

	if !ok {
		return false, nil
	}

	if !retainUntil.After(now) {
		s.mu.Lock()
		s.pruneLocked(now)
		s.mu.Unlock()
		return false, nil
	}

	return true, nil
}

// Len reports how many live entries the store holds.
func (s *MemoryRevocationStore) Len() int {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.pruneLocked(now)
	return len(s.entries)
}

func (s *MemoryRevocationStore) pruneLocked(now time.Time) {
	for id, retainUntil := range s.entries {
		if !retainUntil.After(now) {
			delete(s.entries, id)
		}
	}
}
