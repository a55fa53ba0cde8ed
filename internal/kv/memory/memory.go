package memory

import (
	"context"
	"sync"

	"ledger/internal/kv"
)

var _ kv.Store = (*Store)(nil)

type Store struct {
	mu     sync.Mutex
	slots  map[string][]byte
	closed bool
	writes int
}

func New() *Store {
	return &Store{slots: make(map[string][]byte)}
}

// NewWithSlots returns a store pre-seeded with the given slots.
func NewWithSlots(slots map[string][]byte) *Store {
	s := New()
	for k, v := range slots {
		s.slots[k] = append([]byte(nil), v...)
	}
	return s
}

func (s *Store) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, false, kv.ErrClosed
	}
	v, ok := s.slots[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (s *Store) Set(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return kv.ErrClosed
	}
	s.slots[key] = append([]byte(nil), value...)
	s.writes++
	return nil
}

// Writes returns how many Set calls succeeded.
func (s *Store) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
