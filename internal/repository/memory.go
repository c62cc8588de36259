package repository

import (
	"context"
	"sync"
	"time"

	"github.com/josh-kwaku/marketplace-payments/internal/domain"
)

// MemoryProcessedEventStore keeps processed ids in process memory. It is
// only suitable for development and tests with a single API instance.
type MemoryProcessedEventStore struct {
	mu     sync.Mutex
	events map[string]time.Time
}

func NewMemoryProcessedEventStore() *MemoryProcessedEventStore {
	return &MemoryProcessedEventStore{events: make(map[string]time.Time)}
}

func (s *MemoryProcessedEventStore) TestAndSet(_ context.Context, eventID string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.events[eventID]; ok {
		return false, nil
	}
	s.events[eventID] = at
	return true, nil
}

func (s *MemoryProcessedEventStore) Get(_ context.Context, eventID string) (*domain.ProcessedEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	at, ok := s.events[eventID]
	if !ok {
		return nil, nil
	}
	return &domain.ProcessedEvent{EventID: eventID, ProcessedAt: at}, nil
}

func (s *MemoryProcessedEventStore) Delete(_ context.Context, eventID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.events, eventID)
	return nil
}

func (s *MemoryProcessedEventStore) DeleteOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for id, at := range s.events {
		if at.Before(cutoff) {
			delete(s.events, id)
			n++
		}
	}
	return n, nil
}

func (s *MemoryProcessedEventStore) Ping(context.Context) error { return nil }
