package store

import (
	"context"
	"sync"

	"github.com/i474232898/weather-alerts/internal/subscription"
)

// MemoryStore is a concurrency-safe in-memory subscriber store.
// Listing order is insertion order.
type MemoryStore struct {
	mu sync.RWMutex

	// key: normalized email
	data  map[string]subscription.Subscriber
	order []string
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: make(map[string]subscription.Subscriber),
	}
}

// ListAll returns all subscribers in insertion order.
func (s *MemoryStore) ListAll(ctx context.Context) ([]subscription.Subscriber, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]subscription.Subscriber, 0, len(s.order))
	for _, email := range s.order {
		result = append(result, s.data[email])
	}
	return result, nil
}

// FindByEmail returns the subscriber for email.
func (s *MemoryStore) FindByEmail(ctx context.Context, email string) (subscription.Subscriber, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sub, ok := s.data[email]
	if !ok {
		return subscription.Subscriber{}, subscription.ErrNotFound
	}
	return sub, nil
}

// Create stores sub unless its email is already present.
func (s *MemoryStore) Create(ctx context.Context, sub subscription.Subscriber) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[sub.Email]; exists {
		return subscription.ErrDuplicateEmail
	}
	s.data[sub.Email] = sub
	s.order = append(s.order, sub.Email)
	return nil
}

// DeleteByEmail removes and returns the subscriber for email.
func (s *MemoryStore) DeleteByEmail(ctx context.Context, email string) (subscription.Subscriber, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub, ok := s.data[email]
	if !ok {
		return subscription.Subscriber{}, subscription.ErrNotFound
	}
	delete(s.data, email)
	for i, e := range s.order {
		if e == email {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return sub, nil
}
