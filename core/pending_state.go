package core

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

type MemoryPendingStateStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]PendingCheckout
}

func NewMemoryPendingStateStore(ttl time.Duration) *MemoryPendingStateStore {
	if ttl <= 0 {
		ttl = defaultPendingTTL
	}
	return &MemoryPendingStateStore{
		ttl:     ttl,
		now:     time.Now,
		entries: map[string]PendingCheckout{},
	}
}

// WithClock replaces the time source used to stamp and expire entries.
func (s *MemoryPendingStateStore) WithClock(now func() time.Time) *MemoryPendingStateStore {
	if s != nil && now != nil {
		s.now = now
	}
	return s
}

func (s *MemoryPendingStateStore) Put(_ context.Context, pending PendingCheckout) error {
	if s == nil {
		return fmt.Errorf("core: pending state store is not configured")
	}
	nonce := strings.TrimSpace(pending.Nonce)
	if nonce == "" {
		return fmt.Errorf("core: pending checkout nonce is required")
	}
	pending.Nonce = nonce

	now := s.now().UTC()
	if pending.CreatedAt.IsZero() {
		pending.CreatedAt = now
	}
	if pending.ExpiresAt.IsZero() {
		pending.ExpiresAt = pending.CreatedAt.Add(s.ttl)
	}

	s.mu.Lock()
	s.entries[nonce] = clonePendingCheckout(pending)
	s.mu.Unlock()
	return nil
}

func (s *MemoryPendingStateStore) Take(_ context.Context, nonce string) (PendingCheckout, error) {
	if s == nil {
		return PendingCheckout{}, fmt.Errorf("core: pending state store is not configured")
	}
	nonce = strings.TrimSpace(nonce)
	if nonce == "" {
		return PendingCheckout{}, ErrPendingCheckoutNotFound
	}

	s.mu.Lock()
	pending, ok := s.entries[nonce]
	if ok {
		delete(s.entries, nonce)
	}
	s.mu.Unlock()

	if !ok {
		return PendingCheckout{}, ErrPendingCheckoutNotFound
	}
	if pending.Expired(s.now().UTC()) {
		return PendingCheckout{}, fmt.Errorf("%w: expired", ErrPendingCheckoutNotFound)
	}
	return clonePendingCheckout(pending), nil
}

func (s *MemoryPendingStateStore) Sweep(_ context.Context, now time.Time) (int, error) {
	if s == nil {
		return 0, fmt.Errorf("core: pending state store is not configured")
	}
	if now.IsZero() {
		now = s.now()
	}
	now = now.UTC()

	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for nonce, pending := range s.entries {
		if pending.Expired(now) {
			delete(s.entries, nonce)
			removed++
		}
	}
	return removed, nil
}

func (s *MemoryPendingStateStore) Len() int {
	if s == nil {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func clonePendingCheckout(pending PendingCheckout) PendingCheckout {
	cloned := pending
	cloned.Legs = append([]CheckoutLeg(nil), pending.Legs...)
	return cloned
}

